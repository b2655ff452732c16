package graph

// InputKind discriminates NodeInput variants.
type InputKind string

const (
	KindNode       InputKind = "node"
	KindValue      InputKind = "value"
	KindNetwork    InputKind = "network"
	KindScope      InputKind = "scope"
	KindImport     InputKind = "import"
	KindReflection InputKind = "reflection"
	KindInline     InputKind = "inline"
)

// NodeInput is the closed set of possible inputs to a node. Every consumer
// switches exhaustively over the concrete variants so that adding a new one
// forces every consumer to handle it.
type NodeInput interface {
	isNodeInput()
	Kind() InputKind
}

// NodeRef references a sibling node's output within the same network.
type NodeRef struct {
	NodeID      NodeID
	OutputIndex int
}

// ValueInput is an inline literal. Exposed marks whether the value is
// user-editable in the graph UI; it has no effect on execution semantics but
// must survive every conversion losslessly.
type ValueInput struct {
	Value   TaggedValue
	Exposed bool
}

// NetworkInput is a placeholder meaning "this value comes from the owning
// network's unbound input slot ImportIndex". It is resolved during
// flattening for nested networks; at the root it marks a network-level input.
type NetworkInput struct {
	ImportIndex int
}

// ScopeInput references an ambient value injected by the caller at
// evaluation time. Flattening does not resolve it.
type ScopeInput struct {
	Key string
}

// ImportInput marks an externally supplied input together with its declared
// type. Used on sub-network bodies and root-level import nodes.
type ImportInput struct {
	ImportIndex int
	ImportType  Type
}

// ReflectionMetadata names the piece of inspection metadata a Reflection
// input asks for.
type ReflectionMetadata string

// MetadataNodePath requests the node's path in the document structure.
const MetadataNodePath ReflectionMetadata = "node_path"

// ReflectionInput is a non-functional marker carrying documentation and
// inspection metadata. It is never lowered into executable form.
type ReflectionInput struct {
	Metadata ReflectionMetadata
}

// InlineInput is a back-end-specific source fragment, only meaningful to a
// specialized compilation target. The Registry format rejects it.
type InlineInput struct {
	Expr string
	Type Type
}

func (NodeRef) isNodeInput()         {}
func (ValueInput) isNodeInput()      {}
func (NetworkInput) isNodeInput()    {}
func (ScopeInput) isNodeInput()      {}
func (ImportInput) isNodeInput()     {}
func (ReflectionInput) isNodeInput() {}
func (InlineInput) isNodeInput()     {}

func (NodeRef) Kind() InputKind         { return KindNode }
func (ValueInput) Kind() InputKind      { return KindValue }
func (NetworkInput) Kind() InputKind    { return KindNetwork }
func (ScopeInput) Kind() InputKind      { return KindScope }
func (ImportInput) Kind() InputKind     { return KindImport }
func (ReflectionInput) Kind() InputKind { return KindReflection }
func (InlineInput) Kind() InputKind     { return KindInline }

// IsExposed reports whether the input shows up as an editable parameter.
func IsExposed(in NodeInput) bool {
	switch v := in.(type) {
	case NodeRef, NetworkInput, ImportInput:
		return true
	case ValueInput:
		return v.Exposed
	case ScopeInput, ReflectionInput, InlineInput:
		return false
	default:
		return false
	}
}

// AsNodeRef returns the referenced node id if the input is a NodeRef.
func AsNodeRef(in NodeInput) (NodeRef, bool) {
	ref, ok := in.(NodeRef)
	return ref, ok
}

// IsPlaceholder reports whether the input is an unbound network-level slot,
// i.e. a formal parameter the flattener can bind an actual input to.
func IsPlaceholder(in NodeInput) bool {
	switch in.(type) {
	case NetworkInput, ImportInput:
		return true
	default:
		return false
	}
}

// PlaceholderIndex returns the import slot index of a placeholder input.
// Callers must check IsPlaceholder first.
func PlaceholderIndex(in NodeInput) int {
	switch v := in.(type) {
	case NetworkInput:
		return v.ImportIndex
	case ImportInput:
		return v.ImportIndex
	default:
		return -1
	}
}
