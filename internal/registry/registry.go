// Package registry implements the flat, content-addressed storage form of a
// document's node graph and the bidirectional conversion to and from the
// nested network model. Global node ids are derived by hashing structural
// paths, so the same logical node keeps the same id across conversions and
// sessions, which is what makes attribute-level diffing and merging possible.
package registry

import (
	"encoding/json"

	"github.com/cespare/xxhash/v2"
)

// GlobalNodeID identifies a node across the whole registry, regardless of
// nesting depth.
type GlobalNodeID uint64

// NetworkID identifies one network level inside the registry. The root
// network is always id 0.
type NetworkID uint64

// RootNetworkID is the id assigned to the document's top-level network.
const RootNetworkID NetworkID = 0

// DeclarationID identifies an interned proto-node declaration. It is a
// content hash of the identifier so that equal primitives always share a
// declaration, independent of conversion order.
type DeclarationID uint64

// DeclareID returns the declaration id for a primitive identifier.
func DeclareID(identifier string) DeclarationID {
	return DeclarationID(xxhash.Sum64String(identifier))
}

// Timestamp is the logical clock value attached to every attribute. A fresh
// conversion stamps everything with BaselineTimestamp; a merge layer advances
// it on later edits and resolves conflicts last-writer-wins.
type Timestamp uint64

// BaselineTimestamp marks attributes written by an initial conversion.
const BaselineTimestamp Timestamp = 0

// Attribute is one timestamped metadata entry.
type Attribute struct {
	Value     json.RawMessage
	Timestamp Timestamp
}

// Attributes maps attribute keys to their current timestamped values.
type Attributes map[string]Attribute

// Node-level attribute keys.
const (
	AttrCallArgument    = "call_argument"
	AttrContextFeatures = "context_features"
	AttrVisible         = "visible"
	AttrSkipDedup       = "skip_deduplication"
	AttrOriginalNodeID  = "original_node_id"
)

// Input-level attribute keys.
const (
	AttrImportType         = "import_type"
	AttrReflectionMetadata = "reflection_metadata"
)

// Implementation is the closed set of registry node bodies. Nested networks
// are referenced by id rather than embedded; the instances of a nested level
// live in the registry's flat node map.
type Implementation interface {
	isRegistryImplementation()
}

// ProtoRef points at an interned declaration.
type ProtoRef struct {
	Declaration DeclarationID
}

// NetworkRef points at a nested network level.
type NetworkRef struct {
	Network NetworkID
}

func (ProtoRef) isRegistryImplementation()   {}
func (NetworkRef) isRegistryImplementation() {}

// NodeInput is the closed set of registry input expressions. Compared to the
// in-memory model, node references carry global ids, values carry encoded
// bytes, and import/reflection metadata moves into per-input attributes.
type NodeInput interface {
	isRegistryInput()
}

// NodeInputRef references another registry node's output.
type NodeInputRef struct {
	NodeID      GlobalNodeID
	OutputIndex int
}

// ValueInput is an encoded literal.
type ValueInput struct {
	Raw     []byte
	Exposed bool
}

// ScopeInput references an ambient caller-injected value.
type ScopeInput struct {
	Key string
}

// ImportInput marks an externally supplied input slot. The declared type, if
// any, is stored under AttrImportType in the input's attributes.
type ImportInput struct {
	ImportIndex int
}

// ReflectionInput is a marker; the metadata payload lives under
// AttrReflectionMetadata in the input's attributes.
type ReflectionInput struct{}

func (NodeInputRef) isRegistryInput()    {}
func (ValueInput) isRegistryInput()      {}
func (ScopeInput) isRegistryInput()      {}
func (ImportInput) isRegistryInput()     {}
func (ReflectionInput) isRegistryInput() {}

// Node is one registry node instance.
type Node struct {
	Implementation Implementation
	Inputs         []NodeInput
	// InputsAttributes holds one attribute map per input, parallel to Inputs.
	InputsAttributes []Attributes
	Attributes       Attributes
	// Network is the network level this node belongs to.
	Network NetworkID
}

// ProtoNode is an interned primitive declaration shared by every instance
// that names the same identifier.
type ProtoNode struct {
	Identifier string
	Attributes Attributes
}

// Network records one network level's exports. Exports always reference
// identity nodes, so downstream tooling has a single uniform way to look up
// what a network produces.
type Network struct {
	Exports []GlobalNodeID
}

// Registry is the flat persisted form of a document's node graph.
type Registry struct {
	NodeDeclarations map[DeclarationID]ProtoNode
	NodeInstances    map[GlobalNodeID]Node
	Networks         map[NetworkID]Network
	ExportedNodes    []GlobalNodeID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		NodeDeclarations: make(map[DeclarationID]ProtoNode),
		NodeInstances:    make(map[GlobalNodeID]Node),
		Networks:         make(map[NetworkID]Network),
	}
}

// Declaration returns the interned declaration a node's ProtoRef points at.
func (r *Registry) Declaration(impl Implementation) (ProtoNode, bool) {
	ref, ok := impl.(ProtoRef)
	if !ok {
		return ProtoNode{}, false
	}
	decl, ok := r.NodeDeclarations[ref.Declaration]
	return decl, ok
}
