// Package graph defines the in-memory node-network model: typed nodes wired
// together by inputs, with nodes whose body is itself a nested sub-network.
// It provides the structural queries and integrity checks every other
// component builds on, plus deterministic identifier generation.
package graph

import (
	"sort"
)

// NodeID is an opaque 64-bit identifier, unique within the network that
// directly owns the node.
type NodeID uint64

// Well-known proto-node identifiers used by the compilation pipeline.
const (
	// IdentityNodeIdentifier names the transparent pass-through primitive.
	IdentityNodeIdentifier = "graphene_core::ops::identity::IdentityNode"
	// ValueNodeIdentifier names the primitive that yields a stored literal.
	ValueNodeIdentifier = "graphene_core::value::ClonedNode"
)

// Implementation is the closed set of node bodies.
type Implementation interface {
	isImplementation()
}

// ProtoImpl is a leaf implementation naming an executable primitive.
type ProtoImpl struct {
	Identifier string
}

// NetworkImpl nests a full sub-network as the node's body. The node owns the
// network outright; ownership is a strict tree with no back-references.
type NetworkImpl struct {
	Network *NodeNetwork
}

// ExtractImpl marks "take this node's implementation rather than its
// output". The network model carries it; the Registry converter and the
// proto-resolver both reject it.
type ExtractImpl struct{}

func (ProtoImpl) isImplementation()   {}
func (NetworkImpl) isImplementation() {}
func (ExtractImpl) isImplementation() {}

// Node is a single instantiated document node.
type Node struct {
	Inputs         []NodeInput
	Implementation Implementation

	// CallArgument is the call-site argument type the evaluator invokes the
	// node with.
	CallArgument Type
	// ContextFeatures are the execution-context features the node opts into.
	ContextFeatures ContextFeatures
	// Visible is the eye icon in the graph UI. Hidden nodes are swapped for
	// identity nodes during flattening by the editing layer.
	Visible bool
	// SkipDeduplication exempts the node from compile-time deduplication.
	SkipDeduplication bool
}

// NewNode returns a leaf node with the given primitive identifier and inputs,
// with default metadata (visible, unit call argument).
func NewNode(identifier string, inputs ...NodeInput) *Node {
	return &Node{
		Inputs:         inputs,
		Implementation: ProtoImpl{Identifier: identifier},
		CallArgument:   UnitType(),
		Visible:        true,
	}
}

// NewNetworkNode returns a node whose body is the given sub-network.
func NewNetworkNode(inner *NodeNetwork, inputs ...NodeInput) *Node {
	return &Node{
		Inputs:         inputs,
		Implementation: NetworkImpl{Network: inner},
		CallArgument:   UnitType(),
		Visible:        true,
	}
}

// NestedNetwork returns the node's body if it is a network implementation.
func (n *Node) NestedNetwork() (*NodeNetwork, bool) {
	impl, ok := n.Implementation.(NetworkImpl)
	if !ok {
		return nil, false
	}
	return impl.Network, true
}

// ProtoIdentifier returns the primitive identifier if the node is a leaf.
func (n *Node) ProtoIdentifier() (string, bool) {
	impl, ok := n.Implementation.(ProtoImpl)
	if !ok {
		return "", false
	}
	return impl.Identifier, true
}

// OutputCount is the number of outputs the node offers: one for leaves, the
// export count for nested networks.
func (n *Node) OutputCount() int {
	if inner, ok := n.NestedNetwork(); ok {
		return len(inner.Exports)
	}
	return 1
}

// Clone deep-copies the node, including any nested network body.
func (n *Node) Clone() *Node {
	out := *n
	out.Inputs = append([]NodeInput(nil), n.Inputs...)
	if impl, ok := n.Implementation.(NetworkImpl); ok {
		out.Implementation = NetworkImpl{Network: impl.Network.Clone()}
	}
	return &out
}

// NodeNetwork is a graph of nodes with declared unbound inputs (imports,
// referenced positionally by placeholder inputs) and declared outputs
// (exports).
type NodeNetwork struct {
	// Nodes maps each node's local id to the node.
	Nodes map[NodeID]*Node
	// Exports lists what the network produces, one entry per output. Each
	// entry is the input expression feeding that output.
	Exports []NodeInput
}

// NewNetwork returns an empty network.
func NewNetwork(exports ...NodeInput) *NodeNetwork {
	return &NodeNetwork{
		Nodes:   make(map[NodeID]*Node),
		Exports: exports,
	}
}

// Exists reports whether a node with the given id is present.
func (n *NodeNetwork) Exists(id NodeID) bool {
	_, ok := n.Nodes[id]
	return ok
}

// SortedNodeIDs returns the node ids in ascending order. Every walk that
// must be deterministic iterates in this order.
func (n *NodeNetwork) SortedNodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(n.Nodes))
	for id := range n.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NestedNetwork walks the path of node ids down through network
// implementations and returns the network at the end, or nil if any segment
// is missing or not a network node.
func (n *NodeNetwork) NestedNetwork(path ...NodeID) *NodeNetwork {
	network := n
	for _, segment := range path {
		node, ok := network.Nodes[segment]
		if !ok {
			return nil
		}
		inner, ok := node.NestedNetwork()
		if !ok {
			return nil
		}
		network = inner
	}
	return network
}

// Clone deep-copies the network. Callers that need the original after a
// flatten pass clone first; the flattener consumes its input in place.
func (n *NodeNetwork) Clone() *NodeNetwork {
	out := &NodeNetwork{
		Nodes:   make(map[NodeID]*Node, len(n.Nodes)),
		Exports: append([]NodeInput(nil), n.Exports...),
	}
	for id, node := range n.Nodes {
		out.Nodes[id] = node.Clone()
	}
	return out
}
