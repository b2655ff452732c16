// Package flatten inlines nested network bodies into a single flat network.
// After a pass, no node reachable from the flatten root has a network
// implementation; every placeholder input is either rewired to a node
// reference, backed by a freshly minted literal node, or propagated upward as
// a still-open import slot for the owning network's own flattening pass.
package flatten

import (
	"fmt"

	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/log"
)

type flattener struct {
	network *graph.NodeNetwork
	gen     *graph.IDGenerator
	visited map[graph.NodeID]bool
}

// Flatten rewrites network in place so that no network-implementation node
// remains reachable from root. Callers needing the original clone first.
// The generator supplies fresh ids for synthesized literal nodes and must be
// seeded identically across compiles of the same document.
func Flatten(network *graph.NodeNetwork, root graph.NodeID, gen *graph.IDGenerator) error {
	f := &flattener{
		network: network,
		gen:     gen,
		visited: make(map[graph.NodeID]bool),
	}
	return f.flatten(root)
}

// FlattenAll flattens every node in the network, in sorted id order.
func FlattenAll(network *graph.NodeNetwork, gen *graph.IDGenerator) error {
	f := &flattener{
		network: network,
		gen:     gen,
		visited: make(map[graph.NodeID]bool),
	}
	for _, id := range network.SortedNodeIDs() {
		if err := f.flatten(id); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) flatten(id graph.NodeID) error {
	if f.visited[id] {
		return nil
	}
	f.visited[id] = true

	node, ok := f.network.Nodes[id]
	if !ok {
		return &graph.StructuralError{Node: id, Reason: "flatten target not present in network"}
	}

	inner, nested := node.NestedNetwork()
	if !nested {
		// Leaf. Nothing to splice; follow references so every node reachable
		// from the root gets flattened.
		for _, in := range node.Inputs {
			if ref, isRef := graph.AsNodeRef(in); isRef {
				if err := f.flatten(ref.NodeID); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if len(inner.Exports) == 0 {
		return &graph.StructuralError{Node: id, Reason: "nested network declares no exports"}
	}

	delete(f.network.Nodes, id)
	log.Debug(log.CatFlatten, "splicing nested network", "node", id, "innerNodes", len(inner.Nodes))

	// Relocate the inner nodes under collision-resistant merged ids and
	// rewrite their sibling references to match.
	idMap := make(map[graph.NodeID]graph.NodeID, len(inner.Nodes))
	for _, childID := range inner.SortedNodeIDs() {
		idMap[childID] = graph.MergeIDs(id, childID)
	}
	spliced := make([]graph.NodeID, 0, len(inner.Nodes))
	for _, childID := range inner.SortedNodeIDs() {
		child := inner.Nodes[childID]
		for j, in := range child.Inputs {
			if ref, isRef := graph.AsNodeRef(in); isRef {
				child.Inputs[j] = graph.NodeRef{NodeID: idMap[ref.NodeID], OutputIndex: ref.OutputIndex}
			}
		}
		newID := idMap[childID]
		if f.network.Exists(newID) {
			// A merged id landing on an existing node breaks the determinism
			// guarantee callers depend on. Programming error, not user input.
			panic(fmt.Sprintf("flatten: id collision splicing node %d into parent as %d", childID, newID))
		}
		f.network.Nodes[newID] = child
		spliced = append(spliced, newID)
	}

	// Bind the outer node's actual inputs to the placeholder slots the inner
	// nodes declared. Actual i feeds every placeholder carrying import index
	// i; a slot with no matching actual stays open for the grandparent pass.
	// The slots are snapshotted before any binding happens: an actual that is
	// itself an open placeholder writes a new import index into its slots,
	// and those rewritten slots must not be captured by a later actual.
	type slot struct {
		node  graph.NodeID
		input int
	}
	slots := make(map[int][]slot)
	for _, splicedID := range spliced {
		for j, in := range f.network.Nodes[splicedID].Inputs {
			if graph.IsPlaceholder(in) {
				index := graph.PlaceholderIndex(in)
				slots[index] = append(slots[index], slot{node: splicedID, input: j})
			}
		}
	}
	for i, actual := range node.Inputs {
		targets := slots[i]
		if len(targets) == 0 {
			// No slot reads this actual; in particular no literal node is
			// minted for an unread value.
			continue
		}
		bound := f.bindActual(id, actual)
		for _, s := range targets {
			f.network.Nodes[s.node].Inputs[s.input] = bound
		}
	}

	// Stand in for the removed node with a transparent identity node under
	// the original id, fed by the inner network's first export. References to
	// the original id keep working unchanged.
	export := inner.Exports[0]
	if ref, isRef := graph.AsNodeRef(export); isRef {
		export = graph.NodeRef{NodeID: idMap[ref.NodeID], OutputIndex: ref.OutputIndex}
	}
	identity := graph.NewNode(graph.IdentityNodeIdentifier, export)
	identity.Visible = node.Visible
	f.network.Nodes[id] = identity

	for _, splicedID := range spliced {
		if err := f.flatten(splicedID); err != nil {
			return err
		}
	}
	return nil
}

// bindActual converts one actual input of the removed outer node into the
// input expression its placeholder slots receive.
func (f *flattener) bindActual(parent graph.NodeID, actual graph.NodeInput) graph.NodeInput {
	switch v := actual.(type) {
	case graph.NodeRef:
		return v
	case graph.ValueInput:
		// Once flat, the executor only understands node references, so the
		// literal moves into a node of its own.
		literalID := graph.MergeIDs(parent, f.gen.Next())
		if f.network.Exists(literalID) {
			panic(fmt.Sprintf("flatten: id collision minting literal node %d", literalID))
		}
		f.network.Nodes[literalID] = graph.NewNode(graph.ValueNodeIdentifier, v)
		log.Debug(log.CatFlatten, "minted literal node", "id", literalID, "kind", v.Value.Kind)
		return graph.NodeRef{NodeID: literalID}
	case graph.NetworkInput:
		// The outer node's own input is itself unbound. Propagate the open
		// slot so the next flattening level up can fill it.
		return v
	case graph.ImportInput:
		return v
	default:
		// Scope, Reflection and Inline are not resolved by flattening.
		return actual
	}
}

// CheckResolved reports the first node reachable from root that still
// carries a bare network placeholder. The top-level compile entry point
// treats that as an unresolved import; intermediate flattening levels do
// not. Typed import inputs are legal at the top level, marking the
// network's declared entry points.
func CheckResolved(network *graph.NodeNetwork, root graph.NodeID) error {
	visited := make(map[graph.NodeID]bool)
	var walk func(id graph.NodeID) error
	walk = func(id graph.NodeID) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		node, ok := network.Nodes[id]
		if !ok {
			return &graph.StructuralError{Node: id, Reason: "reference to missing node"}
		}
		for i, in := range node.Inputs {
			if placeholder, isBare := in.(graph.NetworkInput); isBare {
				return &graph.StructuralError{
					Node:   id,
					Reason: fmt.Sprintf("input %d is an unresolved import (slot %d)", i, placeholder.ImportIndex),
				}
			}
			if ref, isRef := graph.AsNodeRef(in); isRef {
				if err := walk(ref.NodeID); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(root)
}
