package proto

import (
	"fmt"
	"sort"

	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/log"
)

// Resolve lowers one flattened node. The node's first input determines the
// construction shape; mixing literal and reference inputs is rejected rather
// than coerced.
func Resolve(id graph.NodeID, node *graph.Node) (Node, error) {
	identifier, ok := node.ProtoIdentifier()
	if !ok {
		construct := "network"
		if _, isExtract := node.Implementation.(graph.ExtractImpl); isExtract {
			construct = "extract"
		}
		return Node{}, &graph.UnsupportedConstructError{
			Node:      id,
			Construct: construct,
			Reason:    "only leaf implementations can be resolved; flatten first",
		}
	}

	resolved := Node{
		Identifier:      identifier,
		CallArgument:    node.CallArgument,
		ContextFeatures: node.ContextFeatures,
		SkipDedup:       node.SkipDeduplication,
	}

	if len(node.Inputs) == 0 {
		resolved.Input = Input{Kind: InputNone}
		return resolved, nil
	}

	switch first := node.Inputs[0].(type) {
	case graph.ValueInput:
		// Value-constructed: no upstream input, every argument is a literal.
		resolved.Input = Input{Kind: InputNone}
		resolved.Args.Values = []graph.TaggedValue{first.Value}
		for i, in := range node.Inputs[1:] {
			value, isValue := in.(graph.ValueInput)
			if !isValue {
				return Node{}, &graph.UnsupportedConstructError{
					Node:      id,
					Construct: string(in.Kind()),
					Reason:    fmt.Sprintf("input %d mixes a %s input into a value-constructed node", i+1, in.Kind()),
				}
			}
			resolved.Args.Values = append(resolved.Args.Values, value.Value)
		}
		return resolved, nil

	case graph.NodeRef:
		resolved.Input = Input{Kind: InputNode, Node: first.NodeID, OutputIndex: first.OutputIndex}
		for i, in := range node.Inputs[1:] {
			ref, isRef := graph.AsNodeRef(in)
			if !isRef {
				return Node{}, &graph.UnsupportedConstructError{
					Node:      id,
					Construct: string(in.Kind()),
					Reason:    fmt.Sprintf("input %d mixes a %s input into a node-constructed node", i+1, in.Kind()),
				}
			}
			resolved.Args.Nodes = append(resolved.Args.Nodes, ref.NodeID)
		}
		return resolved, nil

	case graph.NetworkInput, graph.ImportInput:
		// The node is an entry point: all of its slots are filled by the
		// caller, so there are no construction arguments to collect.
		resolved.Input = Input{Kind: InputImport}
		return resolved, nil

	case graph.ScopeInput:
		// Preserved as an opaque execution-time lookup rather than rejected.
		resolved.Input = Input{Kind: InputScope, Key: first.Key}
		return resolved, nil

	default:
		return Node{}, &graph.UnsupportedConstructError{
			Node:      id,
			Construct: string(node.Inputs[0].Kind()),
			Reason:    "input kind is not legal after flattening",
		}
	}
}

// ResolveNetwork lowers every node of a flattened network into a sorted
// proto-network. The network's first export names the output node.
func ResolveNetwork(network *graph.NodeNetwork) (*Network, error) {
	if len(network.Exports) == 0 {
		return nil, &graph.StructuralError{Reason: "network declares no exports"}
	}
	exportRef, ok := graph.AsNodeRef(network.Exports[0])
	if !ok {
		return nil, &graph.StructuralError{Reason: "network export is not a node reference"}
	}

	result := &Network{Output: exportRef.NodeID}
	for _, id := range network.SortedNodeIDs() {
		resolved, err := Resolve(id, network.Nodes[id])
		if err != nil {
			return nil, err
		}
		if resolved.Input.Kind == InputImport {
			result.Inputs = append(result.Inputs, id)
		}
		result.Nodes = append(result.Nodes, Entry{ID: id, Node: resolved})
	}
	sort.Slice(result.Inputs, func(i, j int) bool { return result.Inputs[i] < result.Inputs[j] })

	log.Debug(log.CatProto, "resolved network",
		"nodes", len(result.Nodes), "inputs", len(result.Inputs), "output", result.Output)
	return result, nil
}
