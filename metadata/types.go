// Package metadata builds and validates the per-type contract schema. A
// contract type is analyzed exactly once: the builder turns its struct
// declaration into an ordered field descriptor table, and the validator
// walks the declared type graph (never instance data) to reject defective
// shapes before any traffic flows.
package metadata

import (
	"reflect"
	"time"

	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/diag"
	"github.com/payrail/wirecontract/naming"
)

// ShapeKind is the structural role of a declared field.
type ShapeKind int

const (
	// ShapeScalar fields project as-is (primitives, time.Time, interfaces).
	ShapeScalar ShapeKind = iota
	// ShapeNested fields are struct values projected as nested maps.
	ShapeNested
	// ShapeCollection fields are slices or arrays.
	ShapeCollection
	// ShapeMap fields are generic key/value maps passed through unchanged.
	ShapeMap
)

// String returns the string representation of the shape kind.
func (k ShapeKind) String() string {
	switch k {
	case ShapeScalar:
		return "scalar"
	case ShapeNested:
		return "nested"
	case ShapeCollection:
		return "collection"
	case ShapeMap:
		return "map"
	default:
		return "unknown"
	}
}

// FieldDescriptor describes one declared contract field. Descriptors are
// ordered by declaration index and frozen once built.
type FieldDescriptor struct {
	// Name is the Go property name.
	Name string
	// WireName is the explicit wire key from the tag, empty when the
	// naming policy derives it.
	WireName string
	// Required fields must be present (non-nil) when projecting and
	// present in the wire map when hydrating.
	Required bool
	// Encrypted fields pass through the encryptor/decryptor.
	Encrypted bool
	// Shape is the structural role inferred from the Go type.
	Shape ShapeKind
	// Index is the reflect field index chain inside the contract struct.
	Index []int
	// Type is the field's type with pointers stripped.
	Type reflect.Type
	// Elem is the element type for collections, pointers stripped.
	Elem reflect.Type
}

// Key returns the wire key for the field: the explicit wire name when
// declared, otherwise the policy-derived name.
func (f *FieldDescriptor) Key(policy naming.Policy) string {
	if f.WireName != "" {
		return f.WireName
	}
	return policy.ConvertName(f.Name)
}

// ContractMetadata is the frozen schema for one contract type: operation
// descriptor plus the ordered field table. Instances are built once per
// type and never mutated afterward.
type ContractMetadata struct {
	// Type is the contract struct type.
	Type reflect.Type
	// Name is the contract type name used in diagnostics.
	Name string
	// Operation is the wire operation descriptor, zero when the type does
	// not implement contract.Contract.
	Operation contract.Operation
	// HasOperation records whether the type implements contract.Contract
	// at all; a zero Operation with HasOperation set means an empty id.
	HasOperation bool
	// Fields is the ordered field descriptor table.
	Fields []FieldDescriptor

	// tagWarnings holds non-blocking tag parse findings surfaced by the
	// validator (unknown tag options and the like).
	tagWarnings []diag.Diagnostic
}

// Pair binds a request contract type to its declared response type. Go has
// no type-level request/response association, so the pair is declared at
// registration and exchange sites, normally via PairOf.
type Pair struct {
	Request  reflect.Type
	Response reflect.Type
}

// PairOf returns the Pair for a request/response type pair.
func PairOf[Req contract.Contract, Resp any]() Pair {
	return Pair{
		Request:  reflect.TypeOf((*Req)(nil)).Elem(),
		Response: reflect.TypeOf((*Resp)(nil)).Elem(),
	}
}

// TypeOf returns the reflect.Type for T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

var (
	contractType = reflect.TypeOf((*contract.Contract)(nil)).Elem()
	emptyType    = reflect.TypeOf((*contract.Empty)(nil)).Elem()
	timeType     = reflect.TypeOf((*time.Time)(nil)).Elem()
)

// derefType strips pointer indirections from a type.
func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
