package compiler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GraphiteEditor/graphdoc/internal/cachemanager"
	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/proto"
)

const (
	consIdentifier = "graphene_core::structural::ConsNode"
	addIdentifier  = "graphene_core::ops::AddPairNode"
)

// consAddNetwork is the canonical two-node graph: an entry-point Cons and an
// AddPair consuming it.
func consAddNetwork() *graph.NodeNetwork {
	network := graph.NewNetwork(graph.NodeRef{NodeID: 1})
	network.Nodes[0] = graph.NewNode(consIdentifier,
		graph.ImportInput{ImportIndex: 0, ImportType: graph.Concrete("u32")},
		graph.ImportInput{ImportIndex: 1, ImportType: graph.Concrete("u32")},
	)
	network.Nodes[1] = graph.NewNode(addIdentifier, graph.NodeRef{NodeID: 0})
	return network
}

func TestCompile_FlatNetwork(t *testing.T) {
	resolved, err := New().Compile(context.Background(), consAddNetwork())
	require.NoError(t, err)

	require.Equal(t, []graph.NodeID{0}, resolved.Inputs)
	require.Equal(t, graph.NodeID(1), resolved.Output)

	cons, ok := resolved.Node(0)
	require.True(t, ok)
	require.Equal(t, proto.InputImport, cons.Input.Kind)

	add, ok := resolved.Node(1)
	require.True(t, ok)
	require.Equal(t, proto.InputNode, add.Input.Kind)
	require.Equal(t, graph.NodeID(0), add.Input.Node)
}

func TestCompile_NestedNetwork(t *testing.T) {
	inner := graph.NewNetwork(graph.NodeRef{NodeID: 10})
	inner.Nodes[10] = graph.NewNode(addIdentifier,
		graph.NetworkInput{ImportIndex: 0},
		graph.NetworkInput{ImportIndex: 1},
	)
	network := graph.NewNetwork(graph.NodeRef{NodeID: 0})
	network.Nodes[0] = graph.NewNetworkNode(inner,
		graph.ValueInput{Value: graph.U32Value(2)},
		graph.ValueInput{Value: graph.U32Value(3)},
	)

	resolved, err := New().Compile(context.Background(), network)
	require.NoError(t, err)

	// Spliced add node, stand-in identity, and two minted literal nodes.
	require.Len(t, resolved.Nodes, 4)
	for _, entry := range resolved.Nodes {
		require.NotEqual(t, proto.InputImport, entry.Node.Input.Kind)
	}
}

func TestCompile_DoesNotMutateInput(t *testing.T) {
	inner := graph.NewNetwork(graph.NodeRef{NodeID: 10})
	inner.Nodes[10] = graph.NewNode(addIdentifier, graph.NetworkInput{ImportIndex: 0})
	network := graph.NewNetwork(graph.NodeRef{NodeID: 0})
	network.Nodes[0] = graph.NewNetworkNode(inner, graph.ValueInput{Value: graph.U32Value(5)})

	before := network.ContentHash()
	_, err := New().Compile(context.Background(), network)
	require.NoError(t, err)
	require.Equal(t, before, network.ContentHash())
}

func TestCompile_Deterministic(t *testing.T) {
	inner := graph.NewNetwork(graph.NodeRef{NodeID: 10})
	inner.Nodes[10] = graph.NewNode(addIdentifier, graph.NetworkInput{ImportIndex: 0})
	network := graph.NewNetwork(graph.NodeRef{NodeID: 0})
	network.Nodes[0] = graph.NewNetworkNode(inner, graph.ValueInput{Value: graph.U32Value(5)})

	first, err := New().Compile(context.Background(), network)
	require.NoError(t, err)
	second, err := New().Compile(context.Background(), network)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCompile_UnresolvedImportFails(t *testing.T) {
	// A nested node with an unbound formal leaves a bare placeholder at the
	// top level, which the compile entry point rejects.
	inner := graph.NewNetwork(graph.NodeRef{NodeID: 10})
	inner.Nodes[10] = graph.NewNode(addIdentifier, graph.NetworkInput{ImportIndex: 0})
	network := graph.NewNetwork(graph.NodeRef{NodeID: 0})
	network.Nodes[0] = graph.NewNetworkNode(inner)

	_, err := New().Compile(context.Background(), network)
	var structural *graph.StructuralError
	require.ErrorAs(t, err, &structural)
}

func TestCompile_InvalidNetworkFails(t *testing.T) {
	network := graph.NewNetwork(graph.NodeRef{NodeID: 0})
	network.Nodes[0] = graph.NewNode(addIdentifier, graph.NodeRef{NodeID: 99})

	_, err := New().Compile(context.Background(), network)
	var structural *graph.StructuralError
	require.ErrorAs(t, err, &structural)
}

func TestCompile_CacheReuse(t *testing.T) {
	cache := cachemanager.NewInMemoryCacheManager[CacheKey, *proto.Network](
		"compile", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	c := New(WithCache(cache))

	first, err := c.Compile(context.Background(), consAddNetwork())
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), consAddNetwork())
	require.NoError(t, err)

	// Same pointer proves the second pass was served from the cache.
	require.Same(t, first, second)
}

func TestCompile_FailedPassNotCached(t *testing.T) {
	cache := cachemanager.NewInMemoryCacheManager[CacheKey, *proto.Network](
		"compile", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	c := New(WithCache(cache))

	broken := graph.NewNetwork(graph.NodeRef{NodeID: 0})
	broken.Nodes[0] = graph.NewNode(addIdentifier, graph.NodeRef{NodeID: 99})

	_, err := c.Compile(context.Background(), broken)
	require.Error(t, err)

	key := CacheKey(fmt.Sprintf("%016x", broken.ContentHash()))
	_, found := cache.Get(context.Background(), key)
	require.False(t, found)
}

func TestService_DeliversResult(t *testing.T) {
	service := NewService(New())

	result := <-service.Submit(context.Background(), "doc-1", consAddNetwork())
	require.NoError(t, result.Err)
	require.False(t, result.Superseded)
	require.NotNil(t, result.Network)
}

func TestService_ErrorDelivered(t *testing.T) {
	service := NewService(New())
	broken := graph.NewNetwork(graph.NodeRef{NodeID: 0})
	broken.Nodes[0] = graph.NewNode(addIdentifier, graph.NodeRef{NodeID: 99})

	result := <-service.Submit(context.Background(), "doc-1", broken)
	require.Error(t, result.Err)
}

func TestService_IndependentDocuments(t *testing.T) {
	service := NewService(New())

	a := service.Submit(context.Background(), "doc-a", consAddNetwork())
	b := service.Submit(context.Background(), "doc-b", consAddNetwork())

	require.False(t, (<-a).Superseded)
	require.False(t, (<-b).Superseded)
}

func TestService_NewestSubmissionWins(t *testing.T) {
	service := NewService(New())

	first := service.Submit(context.Background(), "doc-1", consAddNetwork())
	second := service.Submit(context.Background(), "doc-1", consAddNetwork())

	// The older request may or may not have finished before being
	// superseded; the newest one must always deliver a real result.
	<-first
	result := <-second
	require.False(t, result.Superseded)
	require.NoError(t, result.Err)
}

func TestService_CallerMayEditAfterSubmit(t *testing.T) {
	service := NewService(New())
	network := consAddNetwork()

	out := service.Submit(context.Background(), "doc-1", network)
	// Mutating after submit must not affect the in-flight compile.
	network.Nodes[1].Inputs[0] = graph.NodeRef{NodeID: 42}

	result := <-out
	require.NoError(t, result.Err)
}
