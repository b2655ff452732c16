package graph

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns a 64-bit digest of the network's canonical JSON
// encoding. Two networks that serialize identically hash identically, which
// is the key the compiler caches resolved graphs under.
func (n *NodeNetwork) ContentHash() uint64 {
	data, err := json.Marshal(n)
	if err != nil {
		// The model only holds encodable values; a failure here is a bug.
		panic(fmt.Sprintf("graph: hashing network: %v", err))
	}
	return xxhash.Sum64(data)
}
