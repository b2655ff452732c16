package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// JSON wire form: kind-tagged envelopes for the input and implementation
// sums, maps keyed by decimal id strings. This is the encoding the document
// store persists and the dump command prints.

type attrEnvelope struct {
	Value     json.RawMessage `json:"value"`
	Timestamp Timestamp       `json:"timestamp"`
}

// MarshalJSON encodes the attribute as a value/timestamp pair.
func (a Attribute) MarshalJSON() ([]byte, error) {
	return json.Marshal(attrEnvelope{Value: a.Value, Timestamp: a.Timestamp})
}

// UnmarshalJSON decodes the attribute.
func (a *Attribute) UnmarshalJSON(data []byte) error {
	var env attrEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	a.Value = env.Value
	a.Timestamp = env.Timestamp
	return nil
}

type registryInputEnvelope struct {
	Kind        string        `json:"kind"`
	NodeID      *GlobalNodeID `json:"nodeId,omitempty"`
	OutputIndex *int          `json:"outputIndex,omitempty"`
	Raw         []byte        `json:"raw,omitempty"`
	Exposed     *bool         `json:"exposed,omitempty"`
	Key         *string       `json:"key,omitempty"`
	ImportIndex *int          `json:"importIndex,omitempty"`
}

func encodeRegistryInput(in NodeInput) registryInputEnvelope {
	switch v := in.(type) {
	case NodeInputRef:
		return registryInputEnvelope{Kind: "node", NodeID: &v.NodeID, OutputIndex: &v.OutputIndex}
	case ValueInput:
		return registryInputEnvelope{Kind: "value", Raw: v.Raw, Exposed: &v.Exposed}
	case ScopeInput:
		return registryInputEnvelope{Kind: "scope", Key: &v.Key}
	case ImportInput:
		return registryInputEnvelope{Kind: "import", ImportIndex: &v.ImportIndex}
	case ReflectionInput:
		return registryInputEnvelope{Kind: "reflection"}
	default:
		panic(fmt.Sprintf("registry: unknown input variant %T", in))
	}
}

func (e registryInputEnvelope) decode() (NodeInput, error) {
	switch e.Kind {
	case "node":
		if e.NodeID == nil {
			return nil, fmt.Errorf("node input missing nodeId")
		}
		out := 0
		if e.OutputIndex != nil {
			out = *e.OutputIndex
		}
		return NodeInputRef{NodeID: *e.NodeID, OutputIndex: out}, nil
	case "value":
		exposed := false
		if e.Exposed != nil {
			exposed = *e.Exposed
		}
		return ValueInput{Raw: e.Raw, Exposed: exposed}, nil
	case "scope":
		if e.Key == nil {
			return nil, fmt.Errorf("scope input missing key")
		}
		return ScopeInput{Key: *e.Key}, nil
	case "import":
		if e.ImportIndex == nil {
			return nil, fmt.Errorf("import input missing importIndex")
		}
		return ImportInput{ImportIndex: *e.ImportIndex}, nil
	case "reflection":
		return ReflectionInput{}, nil
	default:
		return nil, fmt.Errorf("unknown registry input kind %q", e.Kind)
	}
}

// MarshalInput encodes a single node input in the registry wire form. The
// document history uses it to persist input-change deltas.
func MarshalInput(in NodeInput) ([]byte, error) {
	return json.Marshal(encodeRegistryInput(in))
}

// UnmarshalInput decodes a single node input from the registry wire form.
func UnmarshalInput(data []byte) (NodeInput, error) {
	var env registryInputEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.decode()
}

type registryImplEnvelope struct {
	Kind        string         `json:"kind"`
	Declaration *DeclarationID `json:"declaration,omitempty"`
	Network     *NetworkID     `json:"network,omitempty"`
}

func encodeRegistryImplementation(impl Implementation) registryImplEnvelope {
	switch v := impl.(type) {
	case ProtoRef:
		return registryImplEnvelope{Kind: "proto", Declaration: &v.Declaration}
	case NetworkRef:
		return registryImplEnvelope{Kind: "network", Network: &v.Network}
	default:
		panic(fmt.Sprintf("registry: unknown implementation variant %T", impl))
	}
}

func (e registryImplEnvelope) decode() (Implementation, error) {
	switch e.Kind {
	case "proto":
		if e.Declaration == nil {
			return nil, fmt.Errorf("proto implementation missing declaration")
		}
		return ProtoRef{Declaration: *e.Declaration}, nil
	case "network":
		if e.Network == nil {
			return nil, fmt.Errorf("network implementation missing network")
		}
		return NetworkRef{Network: *e.Network}, nil
	default:
		return nil, fmt.Errorf("unknown registry implementation kind %q", e.Kind)
	}
}

type nodeEnvelope struct {
	Implementation   registryImplEnvelope    `json:"implementation"`
	Inputs           []registryInputEnvelope `json:"inputs"`
	InputsAttributes []Attributes            `json:"inputsAttributes,omitempty"`
	Attributes       Attributes              `json:"attributes"`
	Network          NetworkID               `json:"network"`
}

// MarshalJSON encodes the node instance.
func (n Node) MarshalJSON() ([]byte, error) {
	env := nodeEnvelope{
		Implementation:   encodeRegistryImplementation(n.Implementation),
		Inputs:           make([]registryInputEnvelope, len(n.Inputs)),
		InputsAttributes: n.InputsAttributes,
		Attributes:       n.Attributes,
		Network:          n.Network,
	}
	for i, in := range n.Inputs {
		env.Inputs[i] = encodeRegistryInput(in)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the node instance.
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
	n.Implementation = impl
	n.Inputs = inputs
	n.InputsAttributes = env.InputsAttributes
	n.Attributes = env.Attributes
	n.Network = env.Network
	if n.InputsAttributes == nil {
		n.InputsAttributes = make([]Attributes, len(inputs))
		for i := range n.InputsAttributes {
			n.InputsAttributes[i] = Attributes{}
		}
	}
	if n.Attributes == nil {
		n.Attributes = Attributes{}
	}
	return nil
}

type protoNodeEnvelope struct {
	Identifier string     `json:"identifier"`
	Attributes Attributes `json:"attributes"`
}

type networkEnvelope struct {
	Exports []GlobalNodeID `json:"exports"`
}

type registryEnvelope struct {
	NodeDeclarations map[string]protoNodeEnvelope `json:"nodeDeclarations"`
	NodeInstances    map[string]Node              `json:"nodeInstances"`
	Networks         map[string]networkEnvelope   `json:"networks"`
	ExportedNodes    []GlobalNodeID               `json:"exportedNodes"`
}

// MarshalJSON encodes the registry with all maps keyed by decimal ids, so
// the output is canonical and diffable.
func (r *Registry) MarshalJSON() ([]byte, error) {
	env := registryEnvelope{
		NodeDeclarations: make(map[string]protoNodeEnvelope, len(r.NodeDeclarations)),
		NodeInstances:    make(map[string]Node, len(r.NodeInstances)),
		Networks:         make(map[string]networkEnvelope, len(r.Networks)),
		ExportedNodes:    r.ExportedNodes,
	}
	for id, decl := range r.NodeDeclarations {
		env.NodeDeclarations[strconv.FormatUint(uint64(id), 10)] = protoNodeEnvelope{
			Identifier: decl.Identifier,
			Attributes: decl.Attributes,
		}
	}
	for id, node := range r.NodeInstances {
		env.NodeInstances[strconv.FormatUint(uint64(id), 10)] = node
	}
	for id, network := range r.Networks {
		env.Networks[strconv.FormatUint(uint64(id), 10)] = networkEnvelope{Exports: network.Exports}
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the registry.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var env registryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	decoded := NewRegistry()
	for key, decl := range env.NodeDeclarations {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("declaration id %q: %w", key, err)
		}
		if decl.Attributes == nil {
			decl.Attributes = Attributes{}
		}
		decoded.NodeDeclarations[DeclarationID(id)] = ProtoNode{
			Identifier: decl.Identifier,
			Attributes: decl.Attributes,
		}
	}
	for key, node := range env.NodeInstances {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("instance id %q: %w", key, err)
		}
		decoded.NodeInstances[GlobalNodeID(id)] = node
	}
	for key, network := range env.Networks {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("network id %q: %w", key, err)
		}
		decoded.Networks[NetworkID(id)] = Network{Exports: network.Exports}
	}
	decoded.ExportedNodes = env.ExportedNodes
	*r = *decoded
	return nil
}
