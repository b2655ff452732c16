package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TypeKind discriminates between concrete and generic type identifiers.
type TypeKind string

const (
	TypeConcrete TypeKind = "concrete"
	TypeGeneric  TypeKind = "generic"
)

// Type identifies a value type used for node construction arguments and
// declared import types. The value layer itself is an external collaborator;
// only the identifier shape matters here.
type Type struct {
	Kind TypeKind `json:"kind"`
	Name string   `json:"name"`
}

// Concrete returns a concrete type identifier.
func Concrete(name string) Type {
	return Type{Kind: TypeConcrete, Name: name}
}

// Generic returns a generic type identifier (an unbound type parameter).
func Generic(name string) Type {
	return Type{Kind: TypeGeneric, Name: name}
}

// UnitType is the default call-site argument type for nodes that declare none.
func UnitType() Type {
	return Concrete("()")
}

func (t Type) String() string {
	if t.Kind == TypeGeneric {
		return fmt.Sprintf("<%s>", t.Name)
	}
	return t.Name
}

// TaggedValue is a runtime value paired with its type tag. The payload is
// kept as raw JSON so the model stays agnostic of the value layer's
// concrete representation.
type TaggedValue struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NoneValue is the absent value.
func NoneValue() TaggedValue {
	return TaggedValue{Kind: "None"}
}

// U32Value wraps an unsigned 32-bit integer.
func U32Value(v uint32) TaggedValue {
	return taggedValue("U32", v)
}

// F64Value wraps a 64-bit float.
func F64Value(v float64) TaggedValue {
	return taggedValue("F64", v)
}

// StringValue wraps a string.
func StringValue(v string) TaggedValue {
	return taggedValue("String", v)
}

// BoolValue wraps a boolean.
func BoolValue(v bool) TaggedValue {
	return taggedValue("Bool", v)
}

func taggedValue(kind string, v any) TaggedValue {
	data, err := json.Marshal(v)
	if err != nil {
		// All constructor payloads above are primitives and cannot fail to encode.
		panic(fmt.Sprintf("graph: encoding %s value: %v", kind, err))
	}
	return TaggedValue{Kind: kind, Data: data}
}

// Type returns the type identifier for the value's tag.
func (t TaggedValue) Type() Type {
	return Concrete(t.Kind)
}

// Equal reports whether two tagged values have the same tag and payload.
func (t TaggedValue) Equal(other TaggedValue) bool {
	if t.Kind != other.Kind {
		return false
	}
	return bytes.Equal(compactJSON(t.Data), compactJSON(other.Data))
}

// Encode serializes the value for storage in a Registry value input.
func (t TaggedValue) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTaggedValue is the inverse of Encode.
func DecodeTaggedValue(raw []byte) (TaggedValue, error) {
	var t TaggedValue
	if err := json.Unmarshal(raw, &t); err != nil {
		return TaggedValue{}, err
	}
	return t, nil
}

func compactJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// ContextFeatures is a bitmask of execution-context features a node opts
// into. Preserved losslessly through the Registry; the evaluator interprets it.
type ContextFeatures uint32

const (
	FeatureFootprint ContextFeatures = 1 << iota
	FeatureRealTime
	FeatureAnimationTime
	FeatureDownstreamTransform
)

// Has reports whether all the given feature bits are set.
func (c ContextFeatures) Has(f ContextFeatures) bool {
	return c&f == f
}
