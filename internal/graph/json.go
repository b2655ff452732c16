package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// The document file format: a kind-tagged JSON envelope per input and per
// implementation, and nodes keyed by their decimal id. Unknown kinds fail
// decoding rather than being dropped.

type inputEnvelope struct {
	Kind        InputKind           `json:"kind"`
	NodeID      *NodeID             `json:"nodeId,omitempty"`
	OutputIndex *int                `json:"outputIndex,omitempty"`
	Value       *TaggedValue        `json:"value,omitempty"`
	Exposed     *bool               `json:"exposed,omitempty"`
	ImportIndex *int                `json:"importIndex,omitempty"`
	ImportType  *Type               `json:"importType,omitempty"`
	Key         *string             `json:"key,omitempty"`
	Metadata    *ReflectionMetadata `json:"metadata,omitempty"`
	Expr        *string             `json:"expr,omitempty"`
	Type        *Type               `json:"type,omitempty"`
}

func encodeInput(in NodeInput) inputEnvelope {
	switch v := in.(type) {
	case NodeRef:
		return inputEnvelope{Kind: KindNode, NodeID: &v.NodeID, OutputIndex: &v.OutputIndex}
	case ValueInput:
		return inputEnvelope{Kind: KindValue, Value: &v.Value, Exposed: &v.Exposed}
	case NetworkInput:
		return inputEnvelope{Kind: KindNetwork, ImportIndex: &v.ImportIndex}
	case ScopeInput:
		return inputEnvelope{Kind: KindScope, Key: &v.Key}
	case ImportInput:
		return inputEnvelope{Kind: KindImport, ImportIndex: &v.ImportIndex, ImportType: &v.ImportType}
	case ReflectionInput:
		return inputEnvelope{Kind: KindReflection, Metadata: &v.Metadata}
	case InlineInput:
		return inputEnvelope{Kind: KindInline, Expr: &v.Expr, Type: &v.Type}
	default:
		panic(fmt.Sprintf("graph: unknown input variant %T", in))
	}
}

func (e inputEnvelope) decode() (NodeInput, error) {
	switch e.Kind {
	case KindNode:
		if e.NodeID == nil {
			return nil, fmt.Errorf("node input missing nodeId")
		}
		out := 0
		if e.OutputIndex != nil {
			out = *e.OutputIndex
		}
		return NodeRef{NodeID: *e.NodeID, OutputIndex: out}, nil
	case KindValue:
		if e.Value == nil {
			return nil, fmt.Errorf("value input missing value")
		}
		exposed := false
		if e.Exposed != nil {
			exposed = *e.Exposed
		}
		return ValueInput{Value: *e.Value, Exposed: exposed}, nil
	case KindNetwork:
		if e.ImportIndex == nil {
			return nil, fmt.Errorf("network input missing importIndex")
		}
		return NetworkInput{ImportIndex: *e.ImportIndex}, nil
	case KindScope:
		if e.Key == nil {
			return nil, fmt.Errorf("scope input missing key")
		}
		return ScopeInput{Key: *e.Key}, nil
	case KindImport:
		if e.ImportIndex == nil || e.ImportType == nil {
			return nil, fmt.Errorf("import input missing importIndex or importType")
		}
		return ImportInput{ImportIndex: *e.ImportIndex, ImportType: *e.ImportType}, nil
	case KindReflection:
		if e.Metadata == nil {
			return nil, fmt.Errorf("reflection input missing metadata")
		}
		return ReflectionInput{Metadata: *e.Metadata}, nil
	case KindInline:
		if e.Expr == nil || e.Type == nil {
			return nil, fmt.Errorf("inline input missing expr or type")
		}
		return InlineInput{Expr: *e.Expr, Type: *e.Type}, nil
	default:
		return nil, fmt.Errorf("unknown input kind %q", e.Kind)
	}
}

type implEnvelope struct {
	Kind       string       `json:"kind"`
	Identifier string       `json:"identifier,omitempty"`
	Network    *NodeNetwork `json:"network,omitempty"`
}

func encodeImplementation(impl Implementation) implEnvelope {
	switch v := impl.(type) {
	case ProtoImpl:
		return implEnvelope{Kind: "proto", Identifier: v.Identifier}
	case NetworkImpl:
		return implEnvelope{Kind: "network", Network: v.Network}
	case ExtractImpl:
		return implEnvelope{Kind: "extract"}
	default:
		panic(fmt.Sprintf("graph: unknown implementation variant %T", impl))
	}
}

func (e implEnvelope) decode() (Implementation, error) {
	switch e.Kind {
	case "proto":
		if e.Identifier == "" {
			return nil, fmt.Errorf("proto implementation missing identifier")
		}
		return ProtoImpl{Identifier: e.Identifier}, nil
	case "network":
		if e.Network == nil {
			return nil, fmt.Errorf("network implementation missing network")
		}
		return NetworkImpl{Network: e.Network}, nil
	case "extract":
		return ExtractImpl{}, nil
	default:
		return nil, fmt.Errorf("unknown implementation kind %q", e.Kind)
	}
}

type nodeEnvelope struct {
	Inputs            []inputEnvelope `json:"inputs"`
	Implementation    implEnvelope    `json:"implementation"`
	CallArgument      *Type           `json:"callArgument,omitempty"`
	ContextFeatures   ContextFeatures `json:"contextFeatures,omitempty"`
	Visible           *bool           `json:"visible,omitempty"`
	SkipDeduplication bool            `json:"skipDeduplication,omitempty"`
}

// MarshalJSON encodes the node with kind-tagged input and implementation
// envelopes.
func (n *Node) MarshalJSON() ([]byte, error) {
	env := nodeEnvelope{
		Inputs:            make([]inputEnvelope, len(n.Inputs)),
		Implementation:    encodeImplementation(n.Implementation),
		ContextFeatures:   n.ContextFeatures,
		SkipDeduplication: n.SkipDeduplication,
	}
	for i, in := range n.Inputs {
		env.Inputs[i] = encodeInput(in)
	}
	if n.CallArgument != (Type{}) {
		arg := n.CallArgument
		env.CallArgument = &arg
	}
	visible := n.Visible
	env.Visible = &visible
	return json.Marshal(env)
}

// UnmarshalJSON decodes the node. Visible defaults to true when absent.
func (n *Node) UnmarshalJSON(data []byte) error {
	var env nodeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	impl, err := env.Implementation.decode()
	if err != nil {
		return err
	}
	inputs := make([]NodeInput, len(env.Inputs))
	for i, in := range env.Inputs {
		decoded, err := in.decode()
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		inputs[i] = decoded
	}
	n.Inputs = inputs
	n.Implementation = impl
	n.ContextFeatures = env.ContextFeatures
	n.SkipDeduplication = env.SkipDeduplication
	if env.CallArgument != nil {
		n.CallArgument = *env.CallArgument
	} else {
		n.CallArgument = UnitType()
	}
	if env.Visible != nil {
		n.Visible = *env.Visible
	} else {
		n.Visible = true
	}
	return nil
}

type networkEnvelope struct {
	Exports []inputEnvelope  `json:"exports"`
	Nodes   map[string]*Node `json:"nodes"`
}

// MarshalJSON encodes the network with nodes keyed by decimal id. The
// encoding is canonical: encoding/json emits map keys in sorted order, so an
// unchanged network always serializes to the same bytes.
func (n *NodeNetwork) MarshalJSON() ([]byte, error) {
	env := networkEnvelope{
		Exports: make([]inputEnvelope, len(n.Exports)),
		Nodes:   make(map[string]*Node, len(n.Nodes)),
	}
	for i, export := range n.Exports {
		env.Exports[i] = encodeInput(export)
	}
	for id, node := range n.Nodes {
		env.Nodes[strconv.FormatUint(uint64(id), 10)] = node
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the network.
func (n *NodeNetwork) UnmarshalJSON(data []byte) error {
	var env networkEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	exports := make([]NodeInput, len(env.Exports))
	for i, export := range env.Exports {
		decoded, err := export.decode()
		if err != nil {
			return fmt.Errorf("export %d: %w", i, err)
		}
		exports[i] = decoded
	}
	nodes := make(map[NodeID]*Node, len(env.Nodes))
	for key, node := range env.Nodes {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("node id %q: %w", key, err)
		}
		nodes[NodeID(id)] = node
	}
	n.Exports = exports
	n.Nodes = nodes
	return nil
}
