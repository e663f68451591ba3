package codec

import (
	"fmt"
	"reflect"

	"github.com/payrail/wirecontract/diag"
	"github.com/payrail/wirecontract/metadata"
)

// Project converts a contract instance into a wire map using the generic
// reflective path. Null optional fields are omitted entirely; a null
// required field aborts the projection. The depth counter is checked on
// every recursive entry, before any value is inspected.
func (e *Engine) Project(src any, env *Env) (map[string]any, error) {
	return e.project(reflect.ValueOf(src), env, 0)
}

func (e *Engine) project(rv reflect.Value, env *Env, depth int) (map[string]any, error) {
	if depth > maxDepth {
		return nil, newError(diag.CodeNestingDepthExceeded, typeNameOf(rv), "",
			"projection exceeds maximum nesting depth of %d", maxDepth)
	}
	rv = deref(rv)
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot project %s: not a struct", typeNameOf(rv))
	}

	m, err := e.resolve(rv.Type())
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(m.Fields))
	for i := range m.Fields {
		f := &m.Fields[i]
		fv := rv.FieldByIndex(f.Index)
		if isAbsent(fv) {
			if f.Required {
				return nil, newError(diag.CodeMissingRequiredField, m.Name, f.Name,
					"required field is null")
			}
			continue // omit the key, never emit an explicit null
		}
		val, err := e.projectField(m, f, deref(fv), env, depth)
		if err != nil {
			return nil, err
		}
		out[f.Key(env.policy())] = val
	}
	return out, nil
}

func (e *Engine) projectField(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, fv reflect.Value, env *Env, depth int) (any, error) {
	switch f.Shape {
	case metadata.ShapeMap:
		if f.Encrypted {
			return nil, errEncryptedComplex(m, f, "map")
		}
		// Generic key/value maps pass through unchanged.
		return fv.Interface(), nil

	case metadata.ShapeNested:
		if f.Encrypted {
			return nil, errEncryptedComplex(m, f, "nested object")
		}
		return e.project(fv, env, depth+1)

	case metadata.ShapeCollection:
		return e.projectList(m, f, fv, env, depth)

	default:
		return e.projectScalar(m, f, fv, env)
	}
}

// projectList projects a slice or array, enforcing the size cap and the
// per-element rules. Inner lists recurse here so nothing escapes the cap.
func (e *Engine) projectList(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, fv reflect.Value, env *Env, depth int) (any, error) {
	n := fv.Len()
	if n > MaxCollectionSize {
		return nil, newError(diag.CodeCollectionTooLarge, m.Name, f.Name,
			"collection has %d elements, limit is %d", n, MaxCollectionSize)
	}
	list := make([]any, 0, n)
	for i := 0; i < n; i++ {
		ev := deref(fv.Index(i))
		if isAbsent(ev) || !ev.IsValid() {
			list = append(list, nil)
			continue
		}
		item, err := e.projectElement(m, f, ev, env, depth)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, nil
}

// projectElement applies the scalar/encryption/nested rules to one
// collection element at depth+1.
func (e *Engine) projectElement(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, ev reflect.Value, env *Env, depth int) (any, error) {
	switch {
	case ev.Kind() == reflect.Struct && ev.Type() != timeType:
		if f.Encrypted {
			return nil, errEncryptedComplex(m, f, "nested object")
		}
		return e.project(ev, env, depth+1)
	case ev.Kind() == reflect.Map:
		if f.Encrypted {
			return nil, errEncryptedComplex(m, f, "map")
		}
		return ev.Interface(), nil
	case ev.Kind() == reflect.Slice || ev.Kind() == reflect.Array:
		if f.Encrypted {
			return nil, errEncryptedComplex(m, f, "nested list")
		}
		return e.projectList(m, f, ev, env, depth)
	default:
		return e.projectScalar(m, f, ev, env)
	}
}

// errEncryptedComplex rejects the encrypted flag on values encryption
// cannot cover. The validator flags these declarations as Critical; the
// engines refuse them too so a direct caller can never leak plaintext.
func errEncryptedComplex(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, kind string) error {
	return newError(diag.CodeTypeMismatch, m.Name, f.Name,
		"encrypted field cannot hold a %s value", kind)
}

func (e *Engine) projectScalar(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, fv reflect.Value, env *Env) (any, error) {
	raw := fv.Interface()
	if !f.Encrypted {
		return raw, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, newError(diag.CodeTypeMismatch, m.Name, f.Name,
			"encrypted field must hold a string, got %T", raw)
	}
	enc := env.encryptor()
	if enc == nil {
		return nil, newError(diag.CodeEncryptorMissing, m.Name, f.Name,
			"no encryptor configured for encrypted field")
	}
	ct, err := enc.Encrypt(s)
	if err != nil {
		return nil, &Error{
			Code: diag.CodeEncryptionFailed, Contract: m.Name, Field: f.Name,
			Message: "encryption failed", Cause: err,
		}
	}
	return ct, nil
}

func typeNameOf(v reflect.Value) string {
	if !v.IsValid() {
		return "<nil>"
	}
	t := v.Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
