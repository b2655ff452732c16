package registry

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/GraphiteEditor/graphdoc/internal/graph"
)

// nodePath locates a node in the document structure: the sequence of
// (owning node id, network id) pairs from the root down to the node's
// network, plus the node's local id within that network.
type nodePath struct {
	segments []pathSegment
	localID  graph.NodeID
}

type pathSegment struct {
	ownerNode graph.NodeID
	network   NetworkID
}

func rootPath(localID graph.NodeID) nodePath {
	return nodePath{localID: localID}
}

func (p nodePath) child(network NetworkID, localID graph.NodeID) nodePath {
	segments := make([]pathSegment, len(p.segments), len(p.segments)+1)
	copy(segments, p.segments)
	segments = append(segments, pathSegment{ownerNode: p.localID, network: network})
	return nodePath{segments: segments, localID: localID}
}

// globalID derives the node's stable registry id. Root-level nodes keep their
// local id verbatim, preserving compatibility with pre-existing
// single-network documents. Nested nodes hash their entire path, so two
// structurally identical sub-network instances in different document
// positions get distinct ids while repeated conversions of the same document
// agree bit for bit.
func (p nodePath) globalID() GlobalNodeID {
	if len(p.segments) == 0 {
		return GlobalNodeID(p.localID)
	}
	var digest xxhash.Digest
	var buf [8]byte
	for _, segment := range p.segments {
		binary.BigEndian.PutUint64(buf[:], uint64(segment.ownerNode))
		_, _ = digest.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(segment.network))
		_, _ = digest.Write(buf[:])
	}
	binary.BigEndian.PutUint64(buf[:], uint64(p.localID))
	_, _ = digest.Write(buf[:])
	return GlobalNodeID(digest.Sum64())
}

// identityLocalID reserves local ids for synthesized export identity nodes
// from the top of the id space, where document content never lands.
func identityLocalID(exportIdx int) graph.NodeID {
	return graph.NodeID(math.MaxUint64 - uint64(exportIdx))
}
