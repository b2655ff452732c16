package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/log"
)

// ToNetwork rebuilds the nested network model from a registry. For any
// registry produced by FromNetwork this is its inverse: node counts, export
// counts, implementation kinds, input counts and every stored attribute
// survive the round trip.
func ToNetwork(r *Registry) (*graph.NodeNetwork, error) {
	rootID, err := findRootNetworkID(r)
	if err != nil {
		return nil, err
	}
	network, err := decodeNetwork(r, rootID)
	if err != nil {
		return nil, err
	}
	log.Debug(log.CatRegistry, "decoded network", "rootNodes", len(network.Nodes))
	return network, nil
}

// findRootNetworkID locates the root level via the exported identity nodes;
// their network field names the network they belong to.
func findRootNetworkID(r *Registry) (NetworkID, error) {
	if len(r.ExportedNodes) == 0 {
		if _, ok := r.Networks[RootNetworkID]; ok {
			return RootNetworkID, nil
		}
		return 0, &graph.SerializationError{
			Field: "exported_nodes",
			Err:   fmt.Errorf("registry exports no nodes and has no root network"),
		}
	}
	instance, ok := r.NodeInstances[r.ExportedNodes[0]]
	if !ok {
		return 0, &graph.StructuralError{
			Node:   graph.NodeID(r.ExportedNodes[0]),
			Reason: "exported identity node is missing from node instances",
		}
	}
	return instance.Network, nil
}

func decodeNetwork(r *Registry, networkID NetworkID) (*graph.NodeNetwork, error) {
	network, ok := r.Networks[networkID]
	if !ok {
		return nil, &graph.SerializationError{
			Field: "networks",
			Err:   fmt.Errorf("network %d not found", networkID),
		}
	}

	identityIDs := make(map[GlobalNodeID]bool, len(network.Exports))
	for _, id := range network.Exports {
		identityIDs[id] = true
	}

	decoded := graph.NewNetwork()
	for _, globalID := range sortedInstanceIDs(r) {
		instance := r.NodeInstances[globalID]
		if instance.Network != networkID || identityIDs[globalID] {
			continue
		}
		localID := originalLocalID(instance, globalID)
		node, err := decodeNode(r, instance)
		if err != nil {
			return nil, err
		}
		decoded.Nodes[localID] = node
	}

	// Exports are read through their identity nodes: each identity's single
	// input is the real export expression.
	for _, identityID := range network.Exports {
		identity, ok := r.NodeInstances[identityID]
		if !ok {
			return nil, &graph.StructuralError{
				Node:   graph.NodeID(identityID),
				Reason: "export identity node is missing from node instances",
			}
		}
		if len(identity.Inputs) == 0 {
			return nil, &graph.StructuralError{
				Node:   graph.NodeID(identityID),
				Reason: "export identity node has no inputs",
			}
		}
		attrs := Attributes{}
		if len(identity.InputsAttributes) > 0 {
			attrs = identity.InputsAttributes[0]
		}
		export, err := decodeInput(r, identity.Inputs[0], attrs)
		if err != nil {
			return nil, err
		}
		decoded.Exports = append(decoded.Exports, export)
	}

	return decoded, nil
}

func decodeNode(r *Registry, instance Node) (*graph.Node, error) {
	inputs := make([]graph.NodeInput, 0, len(instance.Inputs))
	for i, in := range instance.Inputs {
		attrs := Attributes{}
		if i < len(instance.InputsAttributes) {
			attrs = instance.InputsAttributes[i]
		}
		decoded, err := decodeInput(r, in, attrs)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, decoded)
	}

	impl, err := decodeImplementation(r, instance.Implementation)
	if err != nil {
		return nil, err
	}

	node := &graph.Node{
		Inputs:         inputs,
		Implementation: impl,
		CallArgument:   graph.UnitType(),
		Visible:        true,
	}
	if attr, ok := instance.Attributes[AttrCallArgument]; ok {
		if err := json.Unmarshal(attr.Value, &node.CallArgument); err != nil {
			return nil, &graph.SerializationError{Field: AttrCallArgument, Err: err}
		}
	}
	if attr, ok := instance.Attributes[AttrContextFeatures]; ok {
		if err := json.Unmarshal(attr.Value, &node.ContextFeatures); err != nil {
			return nil, &graph.SerializationError{Field: AttrContextFeatures, Err: err}
		}
	}
	if attr, ok := instance.Attributes[AttrVisible]; ok {
		if err := json.Unmarshal(attr.Value, &node.Visible); err != nil {
			return nil, &graph.SerializationError{Field: AttrVisible, Err: err}
		}
	}
	if attr, ok := instance.Attributes[AttrSkipDedup]; ok {
		if err := json.Unmarshal(attr.Value, &node.SkipDeduplication); err != nil {
			return nil, &graph.SerializationError{Field: AttrSkipDedup, Err: err}
		}
	}
	return node, nil
}

func decodeImplementation(r *Registry, impl Implementation) (graph.Implementation, error) {
	switch v := impl.(type) {
	case ProtoRef:
		decl, ok := r.NodeDeclarations[v.Declaration]
		if !ok {
			return nil, &graph.SerializationError{
				Field: "node_declarations",
				Err:   fmt.Errorf("declaration %d not found", v.Declaration),
			}
		}
		return graph.ProtoImpl{Identifier: decl.Identifier}, nil
	case NetworkRef:
		nested, err := decodeNetwork(r, v.Network)
		if err != nil {
			return nil, err
		}
		return graph.NetworkImpl{Network: nested}, nil
	default:
		return nil, &graph.SerializationError{
			Field: "implementation",
			Err:   fmt.Errorf("unknown implementation kind %T", impl),
		}
	}
}

func decodeInput(r *Registry, in NodeInput, attrs Attributes) (graph.NodeInput, error) {
	switch v := in.(type) {
	case NodeInputRef:
		referenced, ok := r.NodeInstances[v.NodeID]
		if !ok {
			return nil, &graph.StructuralError{
				Node:   graph.NodeID(v.NodeID),
				Reason: "input references a missing registry node",
			}
		}
		return graph.NodeRef{
			NodeID:      originalLocalID(referenced, v.NodeID),
			OutputIndex: v.OutputIndex,
		}, nil
	case ValueInput:
		value, err := graph.DecodeTaggedValue(v.Raw)
		if err != nil {
			return nil, &graph.SerializationError{Field: "value", Err: err}
		}
		return graph.ValueInput{Value: value, Exposed: v.Exposed}, nil
	case ScopeInput:
		return graph.ScopeInput{Key: v.Key}, nil
	case ImportInput:
		// A stored import type marks a declared import; without one the slot
		// is a bare network placeholder.
		attr, ok := attrs[AttrImportType]
		if !ok {
			return graph.NetworkInput{ImportIndex: v.ImportIndex}, nil
		}
		var importType graph.Type
		if err := json.Unmarshal(attr.Value, &importType); err != nil {
			return nil, &graph.SerializationError{Field: AttrImportType, Err: err}
		}
		return graph.ImportInput{ImportIndex: v.ImportIndex, ImportType: importType}, nil
	case ReflectionInput:
		attr, ok := attrs[AttrReflectionMetadata]
		if !ok {
			return nil, &graph.SerializationError{
				Field: AttrReflectionMetadata,
				Err:   fmt.Errorf("reflection input carries no metadata attribute"),
			}
		}
		var metadata graph.ReflectionMetadata
		if err := json.Unmarshal(attr.Value, &metadata); err != nil {
			return nil, &graph.SerializationError{Field: AttrReflectionMetadata, Err: err}
		}
		return graph.ReflectionInput{Metadata: metadata}, nil
	default:
		return nil, &graph.SerializationError{
			Field: "inputs",
			Err:   fmt.Errorf("unknown input kind %T", in),
		}
	}
}

// originalLocalID recovers a node's per-level local id, falling back to the
// global id for registries written before local ids were recorded.
func originalLocalID(instance Node, globalID GlobalNodeID) graph.NodeID {
	attr, ok := instance.Attributes[AttrOriginalNodeID]
	if !ok {
		return graph.NodeID(globalID)
	}
	var localID uint64
	if err := json.Unmarshal(attr.Value, &localID); err != nil {
		return graph.NodeID(globalID)
	}
	return graph.NodeID(localID)
}

func sortedInstanceIDs(r *Registry) []GlobalNodeID {
	ids := make([]GlobalNodeID, 0, len(r.NodeInstances))
	for id := range r.NodeInstances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
