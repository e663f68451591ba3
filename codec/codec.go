// Package codec converts contract instances to and from the untyped wire
// representation. Two paths exist per type: a specialized projector and
// hydrator pair compiled once for flat shapes, and a generic reflective
// engine that interprets the frozen descriptor table for everything else.
// Both paths are pure functions of (instance or map, env, metadata) and
// are safe to run fully in parallel.
package codec

import (
	"reflect"
	"time"

	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/metadata"
	"github.com/payrail/wirecontract/naming"
)

var timeType = reflect.TypeOf((*time.Time)(nil)).Elem()

// MaxCollectionSize caps the element count of any projected collection.
const MaxCollectionSize = 1024

// maxDepth mirrors metadata.MaxNestingDepth for instance-time recursion.
const maxDepth = metadata.MaxNestingDepth

// Env carries the per-invocation collaborators: the naming policy for
// derived wire keys and the optional encryptor/decryptor. A nil Encryptor
// or Decryptor makes any touch of an `encrypted` field a hard error.
type Env struct {
	Naming    naming.Policy
	Encryptor contract.Encryptor
	Decryptor contract.Decryptor
}

func (e *Env) policy() naming.Policy {
	if e == nil || e.Naming == nil {
		return naming.SnakeCase
	}
	return e.Naming
}

func (e *Env) encryptor() contract.Encryptor {
	if e == nil {
		return nil
	}
	return e.Encryptor
}

func (e *Env) decryptor() contract.Decryptor {
	if e == nil {
		return nil
	}
	return e.Decryptor
}

// Resolver produces frozen metadata for a type. The registry passes its
// cached lookup here; a nil resolver falls back to building descriptors on
// the fly, which is correct but uncached.
type Resolver func(reflect.Type) (*metadata.ContractMetadata, error)

// Engine is the generic reflective projection/hydration path.
type Engine struct {
	resolve Resolver
}

// NewEngine returns an engine backed by the given resolver.
func NewEngine(resolve Resolver) *Engine {
	if resolve == nil {
		resolve = func(t reflect.Type) (*metadata.ContractMetadata, error) {
			return metadata.Build(t)
		}
	}
	return &Engine{resolve: resolve}
}

// Codec is a compiled projector/hydrator pair for one contract type.
type Codec struct {
	// Project converts an instance to a wire map without consulting the
	// reflective engine.
	Project func(src any, env *Env) (map[string]any, error)
	// Hydrate fills dst (a pointer to the contract struct) from a wire map.
	Hydrate func(wire map[string]any, dst any, env *Env) error
}

// deref strips pointer and interface indirections from a value.
func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// isAbsent reports whether a field value counts as null for the
// required/omit rules. Zero scalars are present; only nil-able kinds can
// be absent.
func isAbsent(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil()
	default:
		return false
	}
}
