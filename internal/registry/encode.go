package registry

import (
	"encoding/json"
	"fmt"

	"github.com/GraphiteEditor/graphdoc/internal/graph"
	"github.com/GraphiteEditor/graphdoc/internal/log"
)

// FromNetwork converts a nested network into its flat registry form. The
// conversion is deterministic: repeated calls on an unchanged network produce
// bit-for-bit identical registries, including every GlobalNodeID.
func FromNetwork(network *graph.NodeNetwork) (*Registry, error) {
	enc := &encoder{
		registry:      NewRegistry(),
		nextNetworkID: RootNetworkID + 1,
	}
	exports, err := enc.encodeNetwork(network, RootNetworkID, nil)
	if err != nil {
		return nil, err
	}
	enc.registry.ExportedNodes = exports
	log.Debug(log.CatRegistry, "encoded network",
		"instances", len(enc.registry.NodeInstances),
		"networks", len(enc.registry.Networks),
		"declarations", len(enc.registry.NodeDeclarations))
	return enc.registry, nil
}

type encoder struct {
	registry      *Registry
	nextNetworkID NetworkID
}

// encodeNetwork converts one network level and returns the identity node ids
// synthesized for its exports.
func (e *encoder) encodeNetwork(network *graph.NodeNetwork, networkID NetworkID, parentPath *nodePath) ([]GlobalNodeID, error) {
	for _, localID := range network.SortedNodeIDs() {
		path := pathFor(parentPath, networkID, localID)
		globalID := path.globalID()

		encoded, err := e.encodeNode(network.Nodes[localID], localID, path, networkID, parentPath)
		if err != nil {
			return nil, err
		}

		// Keep the original local id so the reverse conversion can rebuild
		// each level's local id space.
		originalID, err := jsonAttr(uint64(localID))
		if err != nil {
			return nil, &graph.SerializationError{Field: AttrOriginalNodeID, Err: err}
		}
		encoded.Attributes[AttrOriginalNodeID] = originalID

		if _, taken := e.registry.NodeInstances[globalID]; taken {
			panic(fmt.Sprintf("registry: global id collision at node %d (global %d)", localID, globalID))
		}
		e.registry.NodeInstances[globalID] = encoded
	}

	identityIDs := make([]GlobalNodeID, 0, len(network.Exports))
	for exportIdx, export := range network.Exports {
		identityID := pathFor(parentPath, networkID, identityLocalID(exportIdx)).globalID()

		input, err := e.encodeInput(export, parentPath, networkID, graph.NodeID(0))
		if err != nil {
			return nil, err
		}
		inputAttrs, err := inputAttributes(export)
		if err != nil {
			return nil, err
		}

		e.registry.NodeInstances[identityID] = Node{
			Implementation:   ProtoRef{Declaration: e.internDeclaration(graph.IdentityNodeIdentifier)},
			Inputs:           []NodeInput{input},
			InputsAttributes: []Attributes{inputAttrs},
			Attributes:       Attributes{},
			Network:          networkID,
		}
		identityIDs = append(identityIDs, identityID)
	}

	e.registry.Networks[networkID] = Network{Exports: identityIDs}
	return identityIDs, nil
}

func (e *encoder) encodeNode(node *graph.Node, localID graph.NodeID, path nodePath, networkID NetworkID, parentPath *nodePath) (Node, error) {
	inputs := make([]NodeInput, 0, len(node.Inputs))
	inputsAttrs := make([]Attributes, 0, len(node.Inputs))
	for _, in := range node.Inputs {
		encoded, err := e.encodeInput(in, parentPath, networkID, localID)
		if err != nil {
			return Node{}, err
		}
		attrs, err := inputAttributes(in)
		if err != nil {
			return Node{}, err
		}
		inputs = append(inputs, encoded)
		inputsAttrs = append(inputsAttrs, attrs)
	}

	impl, err := e.encodeImplementation(node.Implementation, localID, path)
	if err != nil {
		return Node{}, err
	}

	attrs := make(Attributes, 5)
	for _, field := range []struct {
		key   string
		value any
	}{
		{AttrCallArgument, node.CallArgument},
		{AttrContextFeatures, node.ContextFeatures},
		{AttrVisible, node.Visible},
		{AttrSkipDedup, node.SkipDeduplication},
	} {
		attr, err := jsonAttr(field.value)
		if err != nil {
			return Node{}, &graph.SerializationError{Field: field.key, Err: err}
		}
		attrs[field.key] = attr
	}

	return Node{
		Implementation:   impl,
		Inputs:           inputs,
		InputsAttributes: inputsAttrs,
		Attributes:       attrs,
		Network:          networkID,
	}, nil
}

func (e *encoder) encodeImplementation(impl graph.Implementation, localID graph.NodeID, path nodePath) (Implementation, error) {
	switch v := impl.(type) {
	case graph.ProtoImpl:
		return ProtoRef{Declaration: e.internDeclaration(v.Identifier)}, nil
	case graph.NetworkImpl:
		nestedID := e.nextNetworkID
		e.nextNetworkID++
		if _, err := e.encodeNetwork(v.Network, nestedID, &path); err != nil {
			return nil, err
		}
		return NetworkRef{Network: nestedID}, nil
	case graph.ExtractImpl:
		return nil, &graph.UnsupportedConstructError{
			Node:      localID,
			Construct: "extract",
			Reason:    "extract implementations have no registry representation",
		}
	default:
		return nil, &graph.UnsupportedConstructError{
			Node:      localID,
			Construct: fmt.Sprintf("%T", impl),
			Reason:    "unknown implementation kind",
		}
	}
}

func (e *encoder) encodeInput(in graph.NodeInput, parentPath *nodePath, networkID NetworkID, owner graph.NodeID) (NodeInput, error) {
	switch v := in.(type) {
	case graph.NodeRef:
		// Sibling references remap to the sibling's global id.
		global := pathFor(parentPath, networkID, v.NodeID).globalID()
		return NodeInputRef{NodeID: global, OutputIndex: v.OutputIndex}, nil
	case graph.ValueInput:
		raw, err := v.Value.Encode()
		if err != nil {
			return nil, &graph.SerializationError{Field: "value", Err: err}
		}
		return ValueInput{Raw: raw, Exposed: v.Exposed}, nil
	case graph.ScopeInput:
		return ScopeInput{Key: v.Key}, nil
	case graph.NetworkInput:
		return ImportInput{ImportIndex: v.ImportIndex}, nil
	case graph.ImportInput:
		return ImportInput{ImportIndex: v.ImportIndex}, nil
	case graph.ReflectionInput:
		return ReflectionInput{}, nil
	case graph.InlineInput:
		return nil, &graph.UnsupportedConstructError{
			Node:      owner,
			Construct: "inline",
			Reason:    "inline inputs have no registry representation",
		}
	default:
		return nil, &graph.UnsupportedConstructError{
			Node:      owner,
			Construct: string(in.Kind()),
			Reason:    "unknown input kind",
		}
	}
}

// inputAttributes captures the per-input metadata that the flat input shape
// cannot carry directly. The presence of an import type is also what lets the
// decoder tell a typed import apart from a bare network placeholder.
func inputAttributes(in graph.NodeInput) (Attributes, error) {
	attrs := Attributes{}
	switch v := in.(type) {
	case graph.ImportInput:
		attr, err := jsonAttr(v.ImportType)
		if err != nil {
			return nil, &graph.SerializationError{Field: AttrImportType, Err: err}
		}
		attrs[AttrImportType] = attr
	case graph.ReflectionInput:
		attr, err := jsonAttr(v.Metadata)
		if err != nil {
			return nil, &graph.SerializationError{Field: AttrReflectionMetadata, Err: err}
		}
		attrs[AttrReflectionMetadata] = attr
	}
	return attrs, nil
}

func (e *encoder) internDeclaration(identifier string) DeclarationID {
	id := DeclareID(identifier)
	if _, ok := e.registry.NodeDeclarations[id]; !ok {
		e.registry.NodeDeclarations[id] = ProtoNode{
			Identifier: identifier,
			Attributes: Attributes{},
		}
	}
	return id
}

func pathFor(parent *nodePath, networkID NetworkID, localID graph.NodeID) nodePath {
	if parent == nil {
		return rootPath(localID)
	}
	return parent.child(networkID, localID)
}

func jsonAttr(v any) (Attribute, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{Value: raw, Timestamp: BaselineTimestamp}, nil
}
