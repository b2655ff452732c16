package graph

import "fmt"

// StructuralError reports an ill-formed network: a dangling node reference,
// a cycle, or a placeholder input that survived top-level flattening. It is
// recoverable at the caller boundary; the editing layer keeps the previous
// good graph active and surfaces a diagnostic.
type StructuralError struct {
	Node   NodeID
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error at node %d: %s", e.Node, e.Reason)
}

// UnsupportedConstructError reports a construct a component refuses to
// lower or convert: Extract or Inline implementations, or a mix of literal
// and reference inputs at resolution time.
type UnsupportedConstructError struct {
	Node      NodeID
	Construct string
	Reason    string
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct %s at node %d: %s", e.Construct, e.Node, e.Reason)
}

// SerializationError reports a value or metadata field that could not be
// encoded or decoded during Registry conversion.
type SerializationError struct {
	Field string
	Err   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization of %s failed: %v", e.Field, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
