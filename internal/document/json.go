package document

import (
	"encoding/json"
	"fmt"

	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

// JSON wire form for deltas, used by the document store and by sync peers.
// Each delta kind gets a tag; the reverse travels with the change so a peer
// can revert without replaying.

type attributeDeltaEnvelope struct {
	Kind  string              `json:"kind"`
	Key   string              `json:"key"`
	Value *registry.Attribute `json:"value,omitempty"`
}

func encodeAttributeDelta(delta AttributeDelta) (*attributeDeltaEnvelope, error) {
	switch d := delta.(type) {
	case SetAttribute:
		value := d.Value
		return &attributeDeltaEnvelope{Kind: "set", Key: d.AttrKey, Value: &value}, nil
	case RemoveAttribute:
		return &attributeDeltaEnvelope{Kind: "remove", Key: d.AttrKey}, nil
	default:
		return nil, fmt.Errorf("unknown attribute delta kind %T", delta)
	}
}

func (e *attributeDeltaEnvelope) decode() (AttributeDelta, error) {
	switch e.Kind {
	case "set":
		if e.Value == nil {
			return nil, fmt.Errorf("set attribute delta missing value")
		}
		return SetAttribute{AttrKey: e.Key, Value: *e.Value}, nil
	case "remove":
		return RemoveAttribute{AttrKey: e.Key}, nil
	default:
		return nil, fmt.Errorf("unknown attribute delta kind %q", e.Kind)
	}
}

type registryDeltaEnvelope struct {
	Kind       string                  `json:"kind"`
	NodeID     *registry.GlobalNodeID  `json:"nodeId,omitempty"`
	Node       *registry.Node          `json:"node,omitempty"`
	InputIndex *int                    `json:"inputIndex,omitempty"`
	NewInput   json.RawMessage         `json:"newInput,omitempty"`
	Attribute  *attributeDeltaEnvelope `json:"attribute,omitempty"`
	Network    *registry.NetworkID     `json:"network,omitempty"`
	Exports    []registry.GlobalNodeID `json:"exports,omitempty"`
}

func encodeRegistryDelta(delta RegistryDelta) (*registryDeltaEnvelope, error) {
	switch d := delta.(type) {
	case AddNode:
		node := d.Node
		return &registryDeltaEnvelope{Kind: "addNode", NodeID: &d.NodeID, Node: &node}, nil
	case RemoveNode:
		return &registryDeltaEnvelope{Kind: "removeNode", NodeID: &d.NodeID}, nil
	case ChangeNodeInput:
		raw, err := registry.MarshalInput(d.NewInput)
		if err != nil {
			return nil, err
		}
		index := d.InputIndex
		return &registryDeltaEnvelope{Kind: "changeNodeInput", NodeID: &d.NodeID, InputIndex: &index, NewInput: raw}, nil
	case ChangeNodeAttribute:
		attr, err := encodeAttributeDelta(d.Delta)
		if err != nil {
			return nil, err
		}
		return &registryDeltaEnvelope{Kind: "changeNodeAttribute", NodeID: &d.NodeID, Attribute: attr}, nil
	case ChangeNodeInputAttribute:
		attr, err := encodeAttributeDelta(d.Delta)
		if err != nil {
			return nil, err
		}
		index := d.InputIndex
		return &registryDeltaEnvelope{Kind: "changeNodeInputAttribute", NodeID: &d.NodeID, InputIndex: &index, Attribute: attr}, nil
	case SetNetwork:
		network := d.Network
		return &registryDeltaEnvelope{Kind: "setNetwork", Network: &network, Exports: d.Exports}, nil
	case RemoveNetwork:
		network := d.Network
		return &registryDeltaEnvelope{Kind: "removeNetwork", Network: &network}, nil
	default:
		return nil, fmt.Errorf("unknown delta kind %T", delta)
	}
}

func (e *registryDeltaEnvelope) decode() (RegistryDelta, error) {
	switch e.Kind {
	case "addNode":
		if e.NodeID == nil || e.Node == nil {
			return nil, fmt.Errorf("addNode delta missing node")
		}
		return AddNode{NodeID: *e.NodeID, Node: *e.Node}, nil
	case "removeNode":
		if e.NodeID == nil {
			return nil, fmt.Errorf("removeNode delta missing nodeId")
		}
		return RemoveNode{NodeID: *e.NodeID}, nil
	case "changeNodeInput":
		if e.NodeID == nil || e.InputIndex == nil || e.NewInput == nil {
			return nil, fmt.Errorf("changeNodeInput delta incomplete")
		}
		input, err := registry.UnmarshalInput(e.NewInput)
		if err != nil {
			return nil, err
		}
		return ChangeNodeInput{NodeID: *e.NodeID, InputIndex: *e.InputIndex, NewInput: input}, nil
	case "changeNodeAttribute":
		if e.NodeID == nil || e.Attribute == nil {
			return nil, fmt.Errorf("changeNodeAttribute delta incomplete")
		}
		attr, err := e.Attribute.decode()
		if err != nil {
			return nil, err
		}
		return ChangeNodeAttribute{NodeID: *e.NodeID, Delta: attr}, nil
	case "changeNodeInputAttribute":
		if e.NodeID == nil || e.InputIndex == nil || e.Attribute == nil {
			return nil, fmt.Errorf("changeNodeInputAttribute delta incomplete")
		}
		attr, err := e.Attribute.decode()
		if err != nil {
			return nil, err
		}
		return ChangeNodeInputAttribute{NodeID: *e.NodeID, InputIndex: *e.InputIndex, Delta: attr}, nil
	case "setNetwork":
		if e.Network == nil {
			return nil, fmt.Errorf("setNetwork delta missing network")
		}
		return SetNetwork{Network: *e.Network, Exports: e.Exports}, nil
	case "removeNetwork":
		if e.Network == nil {
			return nil, fmt.Errorf("removeNetwork delta missing network")
		}
		return RemoveNetwork{Network: *e.Network}, nil
	default:
		return nil, fmt.Errorf("unknown delta kind %q", e.Kind)
	}
}

type deltaEnvelope struct {
	Timestamp   registry.Timestamp     `json:"timestamp"`
	Predecessor *Rev                   `json:"predecessor,omitempty"`
	ID          Rev                    `json:"id"`
	Change      *registryDeltaEnvelope `json:"change"`
	Reverse     *registryDeltaEnvelope `json:"reverse"`
}

// MarshalJSON encodes the delta for storage or transfer.
func (d *Delta) MarshalJSON() ([]byte, error) {
	change, err := encodeRegistryDelta(d.Change)
	if err != nil {
		return nil, err
	}
	reverse, err := encodeRegistryDelta(d.Reverse)
	if err != nil {
		return nil, err
	}
	return json.Marshal(deltaEnvelope{
		Timestamp:   d.Timestamp,
		Predecessor: d.Predecessor,
		ID:          d.ID,
		Change:      change,
		Reverse:     reverse,
	})
}

// UnmarshalJSON decodes the delta.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var env deltaEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Change == nil || env.Reverse == nil {
		return fmt.Errorf("delta missing change or reverse")
	}
	change, err := env.Change.decode()
	if err != nil {
		return fmt.Errorf("change: %w", err)
	}
	reverse, err := env.Reverse.decode()
	if err != nil {
		return fmt.Errorf("reverse: %w", err)
	}
	d.Timestamp = env.Timestamp
	d.Predecessor = env.Predecessor
	d.ID = env.ID
	d.Change = change
	d.Reverse = reverse
	return nil
}
