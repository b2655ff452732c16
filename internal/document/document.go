// Package document layers an edit history over the registry form. Every edit
// is a delta paired with its precomputed reverse, chained by revision id, so
// any node or network can be restored from history and any delta reverted.
// Attribute writes are last-writer-wins on the logical timestamp; this
// package establishes the data shape a merge layer operates on, not a full
// merge algorithm.
package document

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/GraphiteEditor/graphdoc/internal/registry"
)

// Rev identifies one revision in the edit history.
type Rev uint64

var (
	ErrNodeExists         = errors.New("node already exists")
	ErrNodeNotFound       = errors.New("target node does not exist")
	ErrInputOutOfBounds   = errors.New("input index out of bounds")
	ErrNotFoundInHistory  = errors.New("not found in history")
	ErrMissingPredecessor = errors.New("delta predecessor missing from history")
)

// Delta is one recorded edit: the change, its reverse, and its position in
// the revision chain.
type Delta struct {
	Timestamp   registry.Timestamp
	Predecessor *Rev
	ID          Rev
	Change      RegistryDelta
	Reverse     RegistryDelta
}

// RegistryDelta is the closed set of edits the history can record. Input
// rewires to node or scope references are modeled as node remove/add pairs
// by the editing layer to avoid merge conflicts, so ChangeNodeInput refuses
// them.
type RegistryDelta interface {
	isRegistryDelta()
}

type AddNode struct {
	NodeID registry.GlobalNodeID
	Node   registry.Node
}

type RemoveNode struct {
	NodeID registry.GlobalNodeID
}

type ChangeNodeInput struct {
	NodeID     registry.GlobalNodeID
	InputIndex int
	NewInput   registry.NodeInput
}

type ChangeNodeAttribute struct {
	NodeID registry.GlobalNodeID
	Delta  AttributeDelta
}

type ChangeNodeInputAttribute struct {
	NodeID     registry.GlobalNodeID
	InputIndex int
	Delta      AttributeDelta
}

type SetNetwork struct {
	Network registry.NetworkID
	Exports []registry.GlobalNodeID
}

type RemoveNetwork struct {
	Network registry.NetworkID
}

func (AddNode) isRegistryDelta()                  {}
func (RemoveNode) isRegistryDelta()               {}
func (ChangeNodeInput) isRegistryDelta()          {}
func (ChangeNodeAttribute) isRegistryDelta()      {}
func (ChangeNodeInputAttribute) isRegistryDelta() {}
func (SetNetwork) isRegistryDelta()               {}
func (RemoveNetwork) isRegistryDelta()            {}

// AttributeDelta is a single attribute edit.
type AttributeDelta interface {
	isAttributeDelta()
	Key() string
}

type SetAttribute struct {
	AttrKey string
	Value   registry.Attribute
}

type RemoveAttribute struct {
	AttrKey string
}

func (SetAttribute) isAttributeDelta()    {}
func (RemoveAttribute) isAttributeDelta() {}

func (d SetAttribute) Key() string    { return d.AttrKey }
func (d RemoveAttribute) Key() string { return d.AttrKey }

// Document is a registry plus its edit history.
type Document struct {
	Registry *registry.Registry
	History  map[Rev]*Delta
	Head     Rev
}

// New wraps a registry with an empty history.
func New(reg *registry.Registry) *Document {
	return &Document{
		Registry: reg,
		History:  make(map[Rev]*Delta),
	}
}

// Commit applies a change, records it in the history with its reverse, and
// advances the head revision.
func (d *Document) Commit(change RegistryDelta, timestamp registry.Timestamp) (Rev, error) {
	reverse, err := d.computeReverse(change)
	if err != nil {
		return 0, err
	}

	delta := &Delta{
		Timestamp: timestamp,
		Change:    change,
		Reverse:   reverse,
	}
	if d.Head != 0 {
		head := d.Head
		delta.Predecessor = &head
	}
	delta.ID = revID(d.Head, timestamp, len(d.History))

	if err := d.applyChange(change); err != nil {
		return 0, err
	}
	d.History[delta.ID] = delta
	d.Head = delta.ID
	return delta.ID, nil
}

// ApplyDelta applies an externally produced delta, for example one received
// from a sync peer. Its predecessor must already be present.
func (d *Document) ApplyDelta(delta *Delta) error {
	if delta.Predecessor != nil {
		if _, ok := d.History[*delta.Predecessor]; !ok {
			return ErrMissingPredecessor
		}
	}
	if err := d.applyChange(delta.Change); err != nil {
		return err
	}
	d.History[delta.ID] = delta
	d.Head = delta.ID
	return nil
}

// RevertDelta applies a delta's reverse, undoing it.
func (d *Document) RevertDelta(delta *Delta) error {
	return d.applyChange(delta.Reverse)
}

// RestoreNodeFromHistory walks the history backwards looking for the delta
// that removed the node and reverts it.
func (d *Document) RestoreNodeFromHistory(nodeID registry.GlobalNodeID) error {
	for delta := range d.historyIter() {
		if add, ok := delta.Reverse.(AddNode); ok && add.NodeID == nodeID {
			return d.RevertDelta(delta)
		}
	}
	return ErrNotFoundInHistory
}

// RestoreNetworkFromHistory reinstates the most recent removed or replaced
// state of a network.
func (d *Document) RestoreNetworkFromHistory(networkID registry.NetworkID) error {
	for delta := range d.historyIter() {
		if set, ok := delta.Reverse.(SetNetwork); ok && set.Network == networkID {
			return d.RevertDelta(delta)
		}
	}
	return ErrNotFoundInHistory
}

func (d *Document) applyChange(change RegistryDelta) error {
	switch c := change.(type) {
	case AddNode:
		if _, exists := d.Registry.NodeInstances[c.NodeID]; exists {
			return ErrNodeExists
		}
		// Zero-value nodes arrive with nil maps; attribute deltas need them
		// allocated, matching the defaults the JSON decoder applies.
		node := c.Node
		if node.Attributes == nil {
			node.Attributes = registry.Attributes{}
		}
		if node.InputsAttributes == nil {
			node.InputsAttributes = make([]registry.Attributes, len(node.Inputs))
		}
		for i, attrs := range node.InputsAttributes {
			if attrs == nil {
				node.InputsAttributes[i] = registry.Attributes{}
			}
		}
		d.Registry.NodeInstances[c.NodeID] = node

	case RemoveNode:
		delete(d.Registry.NodeInstances, c.NodeID)

	case ChangeNodeInput:
		switch c.NewInput.(type) {
		case registry.NodeInputRef, registry.ScopeInput:
			return fmt.Errorf("input rewire to %T must be modeled as node add/remove", c.NewInput)
		}
		node, ok := d.Registry.NodeInstances[c.NodeID]
		if !ok {
			return ErrNodeNotFound
		}
		if c.InputIndex < 0 || c.InputIndex >= len(node.Inputs) {
			return ErrInputOutOfBounds
		}
		node.Inputs[c.InputIndex] = c.NewInput
		d.Registry.NodeInstances[c.NodeID] = node

	case ChangeNodeAttribute:
		if err := d.ensureNodeExists(c.NodeID); err != nil {
			return err
		}
		node := d.Registry.NodeInstances[c.NodeID]
		applyAttributeDelta(c.Delta, node.Attributes)

	case ChangeNodeInputAttribute:
		if err := d.ensureNodeExists(c.NodeID); err != nil {
			return err
		}
		node := d.Registry.NodeInstances[c.NodeID]
		if c.InputIndex < 0 || c.InputIndex >= len(node.InputsAttributes) {
			return ErrInputOutOfBounds
		}
		applyAttributeDelta(c.Delta, node.InputsAttributes[c.InputIndex])

	case SetNetwork:
		if network, ok := d.Registry.Networks[c.Network]; ok {
			network.Exports = c.Exports
			d.Registry.Networks[c.Network] = network
		} else {
			d.Registry.Networks[c.Network] = registry.Network{Exports: c.Exports}
		}

	case RemoveNetwork:
		delete(d.Registry.Networks, c.Network)

	default:
		return fmt.Errorf("unknown delta kind %T", change)
	}
	return nil
}

// ensureNodeExists restores a node from history before an attribute edit
// lands on it, so that out-of-order deltas still converge.
func (d *Document) ensureNodeExists(nodeID registry.GlobalNodeID) error {
	if _, ok := d.Registry.NodeInstances[nodeID]; ok {
		return nil
	}
	return d.RestoreNodeFromHistory(nodeID)
}

func (d *Document) computeReverse(change RegistryDelta) (RegistryDelta, error) {
	switch c := change.(type) {
	case AddNode:
		return RemoveNode{NodeID: c.NodeID}, nil

	case RemoveNode:
		node, ok := d.Registry.NodeInstances[c.NodeID]
		if !ok {
			return nil, ErrNodeNotFound
		}
		return AddNode{NodeID: c.NodeID, Node: node}, nil

	case ChangeNodeInput:
		node, ok := d.Registry.NodeInstances[c.NodeID]
		if !ok {
			return nil, ErrNodeNotFound
		}
		if c.InputIndex < 0 || c.InputIndex >= len(node.Inputs) {
			return nil, ErrInputOutOfBounds
		}
		return ChangeNodeInput{NodeID: c.NodeID, InputIndex: c.InputIndex, NewInput: node.Inputs[c.InputIndex]}, nil

	case ChangeNodeAttribute:
		node, ok := d.Registry.NodeInstances[c.NodeID]
		if !ok {
			return nil, ErrNodeNotFound
		}
		return ChangeNodeAttribute{NodeID: c.NodeID, Delta: reverseAttributeDelta(c.Delta, node.Attributes)}, nil

	case ChangeNodeInputAttribute:
		node, ok := d.Registry.NodeInstances[c.NodeID]
		if !ok {
			return nil, ErrNodeNotFound
		}
		if c.InputIndex < 0 || c.InputIndex >= len(node.InputsAttributes) {
			return nil, ErrInputOutOfBounds
		}
		return ChangeNodeInputAttribute{
			NodeID:     c.NodeID,
			InputIndex: c.InputIndex,
			Delta:      reverseAttributeDelta(c.Delta, node.InputsAttributes[c.InputIndex]),
		}, nil

	case SetNetwork:
		if network, ok := d.Registry.Networks[c.Network]; ok {
			return SetNetwork{Network: c.Network, Exports: network.Exports}, nil
		}
		return RemoveNetwork{Network: c.Network}, nil

	case RemoveNetwork:
		if network, ok := d.Registry.Networks[c.Network]; ok {
			return SetNetwork{Network: c.Network, Exports: network.Exports}, nil
		}
		return RemoveNetwork{Network: c.Network}, nil

	default:
		return nil, fmt.Errorf("unknown delta kind %T", change)
	}
}

func reverseAttributeDelta(delta AttributeDelta, attrs registry.Attributes) AttributeDelta {
	previous, ok := attrs[delta.Key()]
	if !ok {
		return RemoveAttribute{AttrKey: delta.Key()}
	}
	return SetAttribute{AttrKey: delta.Key(), Value: previous}
}

// applyAttributeDelta performs a last-writer-wins set or an unconditional
// remove. A set with an older timestamp than the current value is dropped.
func applyAttributeDelta(delta AttributeDelta, attrs registry.Attributes) {
	switch d := delta.(type) {
	case SetAttribute:
		current, ok := attrs[d.AttrKey]
		if !ok || d.Value.Timestamp > current.Timestamp {
			attrs[d.AttrKey] = d.Value
		}
	case RemoveAttribute:
		delete(attrs, d.AttrKey)
	}
}

// historyIter walks deltas from the head back to the first revision.
func (d *Document) historyIter() func(yield func(*Delta) bool) {
	return func(yield func(*Delta) bool) {
		rev := d.Head
		for {
			delta, ok := d.History[rev]
			if !ok {
				return
			}
			if !yield(delta) {
				return
			}
			if delta.Predecessor == nil {
				return
			}
			rev = *delta.Predecessor
		}
	}
}

// revID derives a revision id from the chain position so that independently
// replayed histories agree on ids.
func revID(head Rev, timestamp registry.Timestamp, length int) Rev {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(head))
	binary.BigEndian.PutUint64(buf[8:16], uint64(timestamp))
	binary.BigEndian.PutUint64(buf[16:], uint64(length))
	return Rev(xxhash.Sum64(buf[:]))
}
