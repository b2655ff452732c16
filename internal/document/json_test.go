package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

func commitDelta(t *testing.T, doc *Document, change RegistryDelta, timestamp registry.Timestamp) *Delta {
	t.Helper()
	rev, err := doc.Commit(change, timestamp)
	require.NoError(t, err)
	return doc.History[rev]
}

func TestDeltaJSONRoundTrip(t *testing.T) {
	doc := testDocument(t)
	nodeID := registry.GlobalNodeID(0)

	deltas := []*Delta{
		commitDelta(t, doc, ChangeNodeAttribute{
			NodeID: nodeID,
			Delta: SetAttribute{
				AttrKey: registry.AttrVisible,
				Value:   registry.Attribute{Value: json.RawMessage(`false`), Timestamp: 5},
			},
		}, 5),
		commitDelta(t, doc, ChangeNodeInput{
			NodeID:     nodeID,
			InputIndex: 0,
			NewInput:   registry.ValueInput{Raw: json.RawMessage(`{"kind":"u32","value":9}`)},
		}, 6),
		commitDelta(t, doc, RemoveNode{NodeID: nodeID}, 7),
		commitDelta(t, doc, SetNetwork{Network: registry.RootNetworkID, Exports: nil}, 8),
	}

	for _, original := range deltas {
		raw, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded Delta
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.Equal(t, *original, decoded)
	}
}

func TestDeltaJSONPreservesPredecessorChain(t *testing.T) {
	doc := testDocument(t)
	nodeID := registry.GlobalNodeID(0)

	first := commitDelta(t, doc, RemoveNode{NodeID: nodeID}, 1)
	second := commitDelta(t, doc, SetNetwork{Network: 9, Exports: []registry.GlobalNodeID{nodeID}}, 2)
	require.NotNil(t, second.Predecessor)

	raw, err := json.Marshal(second)
	require.NoError(t, err)

	var decoded Delta
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.NotNil(t, decoded.Predecessor)
	require.Equal(t, first.ID, *decoded.Predecessor)
}

func TestDeltaJSONAddNodeCarriesFullNode(t *testing.T) {
	doc := testDocument(t)
	nodeID := registry.GlobalNodeID(0)

	removed := commitDelta(t, doc, RemoveNode{NodeID: nodeID}, 1)
	add, ok := removed.Reverse.(AddNode)
	require.True(t, ok)

	raw, err := json.Marshal(removed)
	require.NoError(t, err)

	var decoded Delta
	require.NoError(t, json.Unmarshal(raw, &decoded))
	decodedAdd, ok := decoded.Reverse.(AddNode)
	require.True(t, ok)
	require.Equal(t, add.Node, decodedAdd.Node)
}

func TestDeltaJSONRejectsUnknownKind(t *testing.T) {
	var decoded Delta
	err := json.Unmarshal([]byte(`{"id":1,"timestamp":0,"change":{"kind":"teleportNode"},"reverse":{"kind":"removeNode","nodeId":1}}`), &decoded)
	require.ErrorContains(t, err, "teleportNode")
}
