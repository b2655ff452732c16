package graph

import "fmt"

// Validate checks the network's structural invariants: every NodeRef
// (including in exports) resolves to a present node, and the reference graph
// induced by NodeRefs is acyclic. Nested network bodies are validated
// recursively. Violations are reported as *StructuralError, never panics.
func (n *NodeNetwork) Validate() error {
	for _, id := range n.SortedNodeIDs() {
		node := n.Nodes[id]
		for i, in := range node.Inputs {
			if ref, ok := AsNodeRef(in); ok && !n.Exists(ref.NodeID) {
				return &StructuralError{
					Node:   id,
					Reason: fmt.Sprintf("input %d references missing node %d", i, ref.NodeID),
				}
			}
		}
		if inner, ok := node.NestedNetwork(); ok {
			if err := inner.Validate(); err != nil {
				return err
			}
		}
	}
	for i, export := range n.Exports {
		if ref, ok := AsNodeRef(export); ok && !n.Exists(ref.NodeID) {
			return &StructuralError{
				Node:   ref.NodeID,
				Reason: fmt.Sprintf("export %d references missing node %d", i, ref.NodeID),
			}
		}
	}
	if cyclic, at := n.findCycle(); cyclic {
		return &StructuralError{Node: at, Reason: "cycle detected in node references"}
	}
	return nil
}

// IsAcyclic reports whether the reference graph induced by NodeRef inputs
// has no cycles.
func (n *NodeNetwork) IsAcyclic() bool {
	cyclic, _ := n.findCycle()
	return !cyclic
}

// findCycle peels nodes with no remaining dependencies until either the
// graph is exhausted (acyclic) or no such node remains (cycle). Returns one
// node that participates in a cycle when found.
func (n *NodeNetwork) findCycle() (bool, NodeID) {
	dependencies := make(map[NodeID][]NodeID, len(n.Nodes))
	for id, node := range n.Nodes {
		var deps []NodeID
		for _, in := range node.Inputs {
			if ref, ok := AsNodeRef(in); ok && n.Exists(ref.NodeID) {
				deps = append(deps, ref.NodeID)
			}
		}
		dependencies[id] = deps
	}
	for len(dependencies) > 0 {
		var disconnected NodeID
		found := false
		for id, deps := range dependencies {
			if len(deps) == 0 {
				disconnected = id
				found = true
				break
			}
		}
		if !found {
			// Every remaining node depends on another remaining node.
			for id := range dependencies {
				return true, id
			}
		}
		delete(dependencies, disconnected)
		for id, deps := range dependencies {
			kept := deps[:0]
			for _, dep := range deps {
				if dep != disconnected {
					kept = append(kept, dep)
				}
			}
			dependencies[id] = kept
		}
	}
	return false, 0
}
