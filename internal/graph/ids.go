package graph

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// DefaultIDSeed seeds fresh-id generation for a compilation pass. Using a
// fixed seed makes repeated compiles of an unchanged network byte-identical,
// which callers rely on for caching and diffing.
const DefaultIDSeed uint64 = 0x6772617068646f63 // "graphdoc"

// IDGenerator yields fresh node ids from a seeded deterministic sequence.
// It is threaded explicitly through every recursive call rather than being a
// process-wide counter, so transformations stay pure and testable.
type IDGenerator struct {
	state uint64
}

// NewIDGenerator returns a generator seeded for one compilation pass.
func NewIDGenerator(seed uint64) *IDGenerator {
	return &IDGenerator{state: seed}
}

// Next returns the next fresh id. The sequence is a splitmix64 stream:
// well-spread 64-bit outputs, fully determined by the seed.
func (g *IDGenerator) Next() NodeID {
	g.state += 0x9E3779B97F4A7C15
	z := g.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return NodeID(z ^ (z >> 31))
}

// MergeIDs combines a parent and child id into a collision-resistant id for
// a spliced node. Hashing both ids keeps ids from a nested network from
// colliding with ids already present at the parent level, even after
// repeated nesting.
func MergeIDs(parent, child NodeID) NodeID {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(parent))
	binary.BigEndian.PutUint64(buf[8:], uint64(child))
	return NodeID(xxhash.Sum64(buf[:]))
}
