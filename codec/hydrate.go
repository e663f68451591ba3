package codec

import (
	"fmt"
	"math"
	"reflect"

	"github.com/payrail/wirecontract/diag"
	"github.com/payrail/wirecontract/metadata"
)

// Hydrate rebuilds a typed contract instance from a wire map. dst must be
// a non-nil pointer to the contract struct. Fields absent from the map are
// left at their zero value unless required; wire values are never silently
// coerced into incompatible property types.
func (e *Engine) Hydrate(wire map[string]any, dst any, env *Env) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("hydrate target must be a non-nil pointer, got %T", dst)
	}
	return e.hydrate(wire, rv.Elem(), env)
}

// HydrateAs is the generic convenience form of Hydrate.
func HydrateAs[T any](e *Engine, wire map[string]any, env *Env) (T, error) {
	var out T
	err := e.Hydrate(wire, &out, env)
	return out, err
}

func (e *Engine) hydrate(wire map[string]any, rv reflect.Value, env *Env) error {
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("cannot hydrate into %s: not a struct", rv.Type())
	}
	m, err := e.resolve(rv.Type())
	if err != nil {
		return err
	}

	for i := range m.Fields {
		f := &m.Fields[i]
		key := f.Key(env.policy())
		raw, ok := wire[key]
		if !ok || raw == nil {
			if f.Required {
				return newError(diag.CodeMissingResponseField, m.Name, f.Name,
					"required field %q absent from wire map", key)
			}
			continue
		}
		if err := e.assign(m, f, rv.FieldByIndex(f.Index), raw, env); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) assign(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, fv reflect.Value, raw any, env *Env) error {
	for fv.Kind() == reflect.Pointer {
		fv.Set(reflect.New(fv.Type().Elem()))
		fv = fv.Elem()
	}

	switch f.Shape {
	case metadata.ShapeMap:
		if f.Encrypted {
			return errEncryptedComplex(m, f, "map")
		}
		rvv := reflect.ValueOf(raw)
		if !rvv.Type().AssignableTo(fv.Type()) {
			return e.mismatch(m, f, fv.Type(), raw)
		}
		fv.Set(rvv)
		return nil

	case metadata.ShapeNested:
		if f.Encrypted {
			return errEncryptedComplex(m, f, "nested object")
		}
		mm, ok := raw.(map[string]any)
		if !ok {
			return e.mismatch(m, f, fv.Type(), raw)
		}
		return e.hydrate(mm, fv, env)

	case metadata.ShapeCollection:
		list, ok := raw.([]any)
		if !ok {
			return e.mismatch(m, f, fv.Type(), raw)
		}
		return e.assignList(m, f, fv, list, env)

	default:
		val, err := e.decryptIfNeeded(m, f, raw, env)
		if err != nil {
			return err
		}
		return e.setScalar(m, f, fv, val)
	}
}

// assignList rebuilds a typed slice from a wire list, applying the
// per-element rules. Inner lists recurse here, mirroring projectList.
func (e *Engine) assignList(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, fv reflect.Value, list []any, env *Env) error {
	if fv.Kind() != reflect.Slice {
		return e.mismatch(m, f, fv.Type(), list)
	}
	out := reflect.MakeSlice(fv.Type(), 0, len(list))
	elemType := fv.Type().Elem()
	for _, item := range list {
		ev := reflect.New(elemType).Elem()
		if item != nil {
			if err := e.assignElement(m, f, ev, item, env); err != nil {
				return err
			}
		}
		out = reflect.Append(out, ev)
	}
	fv.Set(out)
	return nil
}

func (e *Engine) assignElement(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, ev reflect.Value, raw any, env *Env) error {
	for ev.Kind() == reflect.Pointer {
		ev.Set(reflect.New(ev.Type().Elem()))
		ev = ev.Elem()
	}
	switch {
	case ev.Kind() == reflect.Struct && ev.Type() != timeType:
		if f.Encrypted {
			return errEncryptedComplex(m, f, "nested object")
		}
		mm, ok := raw.(map[string]any)
		if !ok {
			return e.mismatch(m, f, ev.Type(), raw)
		}
		return e.hydrate(mm, ev, env)
	case ev.Kind() == reflect.Map:
		if f.Encrypted {
			return errEncryptedComplex(m, f, "map")
		}
		rvv := reflect.ValueOf(raw)
		if !rvv.Type().AssignableTo(ev.Type()) {
			return e.mismatch(m, f, ev.Type(), raw)
		}
		ev.Set(rvv)
		return nil
	case ev.Kind() == reflect.Slice:
		if f.Encrypted {
			return errEncryptedComplex(m, f, "nested list")
		}
		inner, ok := raw.([]any)
		if !ok {
			return e.mismatch(m, f, ev.Type(), raw)
		}
		return e.assignList(m, f, ev, inner, env)
	default:
		val, err := e.decryptIfNeeded(m, f, raw, env)
		if err != nil {
			return err
		}
		return e.setScalar(m, f, ev, val)
	}
}

func (e *Engine) decryptIfNeeded(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, raw any, env *Env) (any, error) {
	if !f.Encrypted {
		return raw, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, newError(diag.CodeTypeMismatch, m.Name, f.Name,
			"encrypted field must arrive as a string, got %T", raw)
	}
	dec := env.decryptor()
	if dec == nil {
		return nil, newError(diag.CodeDecryptionFailed, m.Name, f.Name,
			"no decryptor configured for encrypted field")
	}
	pt, err := dec.Decrypt(s)
	if err != nil {
		return nil, &Error{
			Code: diag.CodeDecryptionFailed, Contract: m.Name, Field: f.Name,
			Message: "decryption failed", Cause: err,
		}
	}
	return pt, nil
}

// setScalar coerces a wire scalar into the declared property type. Only
// lossless conversions are allowed; anything else is a TypeMismatch.
func (e *Engine) setScalar(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, fv reflect.Value, raw any) error {
	return setScalarValue(m.Name, f.Name, fv, raw)
}

func setScalarValue(contractName, fieldName string, fv reflect.Value, raw any) error {
	rvv := reflect.ValueOf(raw)
	t := fv.Type()

	if rvv.Type().AssignableTo(t) {
		fv.Set(rvv)
		return nil
	}

	tk := t.Kind()
	rk := rvv.Kind()
	switch {
	case isIntKind(tk) && isIntKind(rk):
		i := rvv.Int()
		if fv.OverflowInt(i) {
			return mismatch(contractName, fieldName, t, raw)
		}
		fv.SetInt(i)
		return nil
	case isIntKind(tk) && isFloatKind(rk):
		// JSON numbers arrive as float64; accept only integral values.
		fl := rvv.Float()
		if fl != math.Trunc(fl) || fv.OverflowInt(int64(fl)) {
			return mismatch(contractName, fieldName, t, raw)
		}
		fv.SetInt(int64(fl))
		return nil
	case isUintKind(tk) && isIntKind(rk):
		i := rvv.Int()
		if i < 0 || fv.OverflowUint(uint64(i)) {
			return mismatch(contractName, fieldName, t, raw)
		}
		fv.SetUint(uint64(i))
		return nil
	case isUintKind(tk) && isFloatKind(rk):
		fl := rvv.Float()
		if fl < 0 || fl != math.Trunc(fl) || fv.OverflowUint(uint64(fl)) {
			return mismatch(contractName, fieldName, t, raw)
		}
		fv.SetUint(uint64(fl))
		return nil
	case isFloatKind(tk) && (isIntKind(rk) || isFloatKind(rk)):
		var fl float64
		if isIntKind(rk) {
			fl = float64(rvv.Int())
		} else {
			fl = rvv.Float()
		}
		fv.SetFloat(fl)
		return nil
	case tk == reflect.String && rk == reflect.String:
		fv.SetString(rvv.String())
		return nil
	case tk == reflect.Bool && rk == reflect.Bool:
		fv.SetBool(rvv.Bool())
		return nil
	}

	return mismatch(contractName, fieldName, t, raw)
}

func (e *Engine) mismatch(m *metadata.ContractMetadata, f *metadata.FieldDescriptor, want reflect.Type, raw any) error {
	return mismatch(m.Name, f.Name, want, raw)
}

func mismatch(contractName, fieldName string, want reflect.Type, raw any) error {
	return newError(diag.CodeTypeMismatch, contractName, fieldName,
		"cannot coerce %T into %s", raw, want)
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
