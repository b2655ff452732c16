// Package proto lowers flattened nodes into minimal construction records the
// executor consumes. A proto-node names its primitive, the source of its
// primary input, and the construction arguments used to instantiate it.
package proto

import (
	"sort"

	"github.com/GraphiteEditor/graphdoc/internal/graph"
)

// InputKind discriminates where a proto-node's primary input comes from.
type InputKind string

const (
	// InputNone marks a node constructed purely from literal arguments.
	InputNone InputKind = "none"
	// InputNode marks a node fed by another proto-node's output.
	InputNode InputKind = "node"
	// InputImport marks a node fed by the network's own unbound input slot.
	// Such nodes are the proto-network's entry points.
	InputImport InputKind = "import"
	// InputScope marks a node fed by an ambient caller-injected value,
	// looked up by key at evaluation time.
	InputScope InputKind = "scope"
)

// Input is the resolved primary input of a proto-node.
type Input struct {
	Kind InputKind
	// Node is set for InputNode.
	Node graph.NodeID
	// OutputIndex selects which output of Node feeds this node.
	OutputIndex int
	// Key is set for InputScope.
	Key string
}

// ConstructionArgs carries the per-node construction data: either literal
// values (for value-constructed nodes) or an ordered list of upstream node
// ids. Exactly one of the two slices is populated.
type ConstructionArgs struct {
	Values []graph.TaggedValue
	Nodes  []graph.NodeID
}

// Node is the executor-ready record for one computation step.
type Node struct {
	Identifier      string
	Input           Input
	Args            ConstructionArgs
	CallArgument    graph.Type
	ContextFeatures graph.ContextFeatures
	SkipDedup       bool
}

// Entry pairs a node id with its resolved proto-node.
type Entry struct {
	ID   graph.NodeID
	Node Node
}

// Network is the fully resolved output of a compile pass. Nodes are sorted
// ascending by id; downstream consumers rely on that ordering.
type Network struct {
	// Inputs lists the nodes fed by unbound import slots, ascending.
	Inputs []graph.NodeID
	// Output is the node whose value the network exports.
	Output graph.NodeID
	Nodes  []Entry
}

// Node returns the proto-node with the given id, if present.
func (n *Network) Node(id graph.NodeID) (Node, bool) {
	idx := sort.Search(len(n.Nodes), func(i int) bool { return n.Nodes[i].ID >= id })
	if idx < len(n.Nodes) && n.Nodes[idx].ID == id {
		return n.Nodes[idx].Node, true
	}
	return Node{}, false
}
