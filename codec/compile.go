package codec

import (
	"reflect"

	"github.com/payrail/wirecontract/diag"
	"github.com/payrail/wirecontract/metadata"
	"github.com/payrail/wirecontract/naming"
)

// compiledField is one row of the closure table a compiled codec runs
// over. Wire keys with explicit names are resolved at compile time; only
// derived names consult the policy per call.
type compiledField struct {
	name      string
	wireName  string
	index     []int
	required  bool
	encrypted bool
	passMap   bool
}

func (cf *compiledField) key(policy naming.Policy) string {
	if cf.wireName != "" {
		return cf.wireName
	}
	return policy.ConvertName(cf.name)
}

// Compile synthesizes a specialized projector/hydrator pair for a
// flat-enough contract: scalars and passthrough maps only. Shapes that
// need recursive handling return nil, signaling the generic reflective
// path. A panic during compilation also means nil; compilation failures
// must never take the process down.
func Compile(m *metadata.ContractMetadata) (c *Codec) {
	defer func() {
		if recover() != nil {
			c = nil
		}
	}()

	table := make([]compiledField, 0, len(m.Fields))
	for i := range m.Fields {
		f := &m.Fields[i]
		switch f.Shape {
		case metadata.ShapeNested, metadata.ShapeCollection:
			return nil
		case metadata.ShapeMap:
			// Encrypted maps never compile; the generic path rejects the
			// combination instead of passing the payload through.
			if f.Encrypted {
				return nil
			}
			table = append(table, compiledField{
				name: f.Name, wireName: f.WireName, index: f.Index,
				required: f.Required, passMap: true,
			})
		default:
			table = append(table, compiledField{
				name: f.Name, wireName: f.WireName, index: f.Index,
				required: f.Required, encrypted: f.Encrypted,
			})
		}
	}

	name := m.Name
	structType := m.Type

	project := func(src any, env *Env) (map[string]any, error) {
		rv := deref(reflect.ValueOf(src))
		if !rv.IsValid() || rv.Type() != structType {
			return nil, newError(diag.CodeTypeMismatch, name, "",
				"compiled projector got %T", src)
		}
		out := make(map[string]any, len(table))
		for i := range table {
			cf := &table[i]
			fv := rv.FieldByIndex(cf.index)
			if isAbsent(fv) {
				if cf.required {
					return nil, newError(diag.CodeMissingRequiredField, name, cf.name,
						"required field is null")
				}
				continue
			}
			fv = deref(fv)
			if cf.passMap {
				out[cf.key(env.policy())] = fv.Interface()
				continue
			}
			raw := fv.Interface()
			if cf.encrypted {
				s, ok := raw.(string)
				if !ok {
					return nil, newError(diag.CodeTypeMismatch, name, cf.name,
						"encrypted field must hold a string, got %T", raw)
				}
				enc := env.encryptor()
				if enc == nil {
					return nil, newError(diag.CodeEncryptorMissing, name, cf.name,
						"no encryptor configured for encrypted field")
				}
				ct, err := enc.Encrypt(s)
				if err != nil {
					return nil, &Error{
						Code: diag.CodeEncryptionFailed, Contract: name, Field: cf.name,
						Message: "encryption failed", Cause: err,
					}
				}
				raw = ct
			}
			out[cf.key(env.policy())] = raw
		}
		return out, nil
	}

	hydrate := func(wire map[string]any, dst any, env *Env) error {
		// The coercion rules are shared with the reflective path; the win
		// here is skipping metadata resolution and shape dispatch.
		rv := reflect.ValueOf(dst)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != structType {
			return newError(diag.CodeTypeMismatch, name, "",
				"compiled hydrator got %T", dst)
		}
		rv = rv.Elem()
		for i := range table {
			cf := &table[i]
			raw, ok := wire[cf.key(env.policy())]
			if !ok || raw == nil {
				if cf.required {
					return newError(diag.CodeMissingResponseField, name, cf.name,
						"required field %q absent from wire map", cf.key(env.policy()))
				}
				continue
			}
			fv := rv.FieldByIndex(cf.index)
			for fv.Kind() == reflect.Pointer {
				fv.Set(reflect.New(fv.Type().Elem()))
				fv = fv.Elem()
			}
			if cf.passMap {
				rvv := reflect.ValueOf(raw)
				if !rvv.Type().AssignableTo(fv.Type()) {
					return newError(diag.CodeTypeMismatch, name, cf.name,
						"cannot coerce %T into %s", raw, fv.Type())
				}
				fv.Set(rvv)
				continue
			}
			if cf.encrypted {
				s, ok := raw.(string)
				if !ok {
					return newError(diag.CodeTypeMismatch, name, cf.name,
						"encrypted field must arrive as a string, got %T", raw)
				}
				dec := env.decryptor()
				if dec == nil {
					return newError(diag.CodeDecryptionFailed, name, cf.name,
						"no decryptor configured for encrypted field")
				}
				pt, err := dec.Decrypt(s)
				if err != nil {
					return &Error{
						Code: diag.CodeDecryptionFailed, Contract: name, Field: cf.name,
						Message: "decryption failed", Cause: err,
					}
				}
				raw = pt
			}
			if err := setScalarValue(name, cf.name, fv, raw); err != nil {
				return err
			}
		}
		return nil
	}

	return &Codec{Project: project, Hydrate: hydrate}
}
