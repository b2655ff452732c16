package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleNetwork() *NodeNetwork {
	inner := NewNetwork(NodeRef{NodeID: 1})
	inner.Nodes[1] = NewNode("graphene_core::ops::AddPairNode",
		ImportInput{ImportIndex: 0, ImportType: Concrete("u32")},
		ImportInput{ImportIndex: 1, ImportType: Concrete("u32")},
	)

	root := NewNetwork(NodeRef{NodeID: 10})
	root.Nodes[10] = NewNetworkNode(inner,
		ValueInput{Value: U32Value(2), Exposed: true},
		ValueInput{Value: U32Value(3)},
	)
	root.Nodes[11] = NewNode(IdentityNodeIdentifier, ScopeInput{Key: "editor-api"})
	root.Nodes[11].Visible = false
	root.Nodes[11].ContextFeatures = FeatureFootprint | FeatureRealTime
	root.Nodes[11].SkipDeduplication = true
	root.Nodes[11].CallArgument = Concrete("Context")
	root.Nodes[12] = NewNode(IdentityNodeIdentifier, ReflectionInput{Metadata: MetadataNodePath})
	root.Nodes[13] = &Node{
		Inputs:         []NodeInput{InlineInput{Expr: "a + b", Type: Concrete("f64")}},
		Implementation: ExtractImpl{},
		CallArgument:   UnitType(),
		Visible:        true,
	}
	return root
}

func TestNetworkJSON_RoundTrip(t *testing.T) {
	original := sampleNetwork()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded NodeNetwork
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original, &decoded)
}

func TestNetworkJSON_CanonicalBytes(t *testing.T) {
	a, err := json.Marshal(sampleNetwork())
	require.NoError(t, err)
	b, err := json.Marshal(sampleNetwork())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestNodeJSON_VisibleDefaultsTrue(t *testing.T) {
	raw := []byte(`{"inputs":[],"implementation":{"kind":"extract"}}`)

	var node Node
	require.NoError(t, json.Unmarshal(raw, &node))
	require.True(t, node.Visible)
	require.Equal(t, UnitType(), node.CallArgument)
}

func TestNodeJSON_UnknownInputKind(t *testing.T) {
	raw := []byte(`{"inputs":[{"kind":"mystery"}],"implementation":{"kind":"extract"}}`)

	var node Node
	err := json.Unmarshal(raw, &node)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mystery")
}

func TestNodeJSON_UnknownImplementationKind(t *testing.T) {
	raw := []byte(`{"inputs":[],"implementation":{"kind":"quantum"}}`)

	var node Node
	require.Error(t, json.Unmarshal(raw, &node))
}

func TestNetworkJSON_BadNodeKey(t *testing.T) {
	raw := []byte(`{"exports":[],"nodes":{"not-a-number":{"inputs":[],"implementation":{"kind":"extract"}}}}`)

	var network NodeNetwork
	require.Error(t, json.Unmarshal(raw, &network))
}

func TestContentHash_StableAndSensitive(t *testing.T) {
	network := sampleNetwork()
	hash := network.ContentHash()
	require.Equal(t, hash, sampleNetwork().ContentHash())

	network.Nodes[10].Inputs[1] = ValueInput{Value: U32Value(4)}
	require.NotEqual(t, hash, network.ContentHash())
}

func TestTaggedValue_Equal(t *testing.T) {
	require.True(t, U32Value(7).Equal(U32Value(7)))
	require.False(t, U32Value(7).Equal(U32Value(8)))
	require.False(t, U32Value(7).Equal(F64Value(7)))
	require.True(t, NoneValue().Equal(NoneValue()))
}

func TestTaggedValue_EncodeDecode(t *testing.T) {
	original := StringValue("brush stroke")
	raw, err := original.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTaggedValue(raw)
	require.NoError(t, err)
	require.True(t, original.Equal(decoded))
}

func TestIsExposed(t *testing.T) {
	require.True(t, IsExposed(NodeRef{NodeID: 1}))
	require.True(t, IsExposed(NetworkInput{}))
	require.True(t, IsExposed(ImportInput{ImportType: Concrete("u32")}))
	require.True(t, IsExposed(ValueInput{Value: U32Value(0), Exposed: true}))
	require.False(t, IsExposed(ValueInput{Value: U32Value(0)}))
	require.False(t, IsExposed(ScopeInput{Key: "k"}))
	require.False(t, IsExposed(ReflectionInput{Metadata: MetadataNodePath}))
	require.False(t, IsExposed(InlineInput{}))
}

func TestPlaceholders(t *testing.T) {
	require.True(t, IsPlaceholder(NetworkInput{ImportIndex: 2}))
	require.True(t, IsPlaceholder(ImportInput{ImportIndex: 1, ImportType: Concrete("u32")}))
	require.False(t, IsPlaceholder(NodeRef{NodeID: 1}))

	require.Equal(t, 2, PlaceholderIndex(NetworkInput{ImportIndex: 2}))
	require.Equal(t, 1, PlaceholderIndex(ImportInput{ImportIndex: 1}))
	require.Equal(t, -1, PlaceholderIndex(ScopeInput{Key: "k"}))
}
