package metadata

import (
	"fmt"
	"reflect"

	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/diag"
)

// Build constructs the descriptor table for a contract struct type. It
// performs no structural validation beyond requiring a struct; defects are
// the validator's job. Build is deterministic and safe to call from
// multiple goroutines; caching is the registry's job.
func Build(t reflect.Type) (*ContractMetadata, error) {
	st := derefType(t)
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("contract type must be a struct, got %s", t)
	}

	m := &ContractMetadata{
		Type: st,
		Name: typeName(st),
	}
	m.Operation, m.HasOperation = operationOf(st)
	buildFields(m, st)
	return m, nil
}

// operationOf reads the wire operation descriptor from the type when it
// implements contract.Contract (with either receiver form).
func operationOf(t reflect.Type) (contract.Operation, bool) {
	if !reflect.PointerTo(t).Implements(contractType) {
		return contract.Operation{}, false
	}
	c := reflect.New(t).Interface().(contract.Contract)
	return c.Operation(), true
}

func buildFields(m *ContractMetadata, st reflect.Type) {
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		wt := parseWireTag(sf.Tag.Get(TagName))
		if wt.skip {
			continue
		}
		for _, opt := range wt.unknown {
			m.tagWarnings = append(m.tagWarnings, diag.New(
				diag.SeverityWarning, diag.CodeUnknownTagOption,
				m.Name, sf.Name,
				fmt.Sprintf("unknown wire tag option %q", opt),
			).With("option", opt))
		}

		shape, elem := classify(sf.Type)
		m.Fields = append(m.Fields, FieldDescriptor{
			Name:      sf.Name,
			WireName:  wt.name,
			Required:  wt.required,
			Encrypted: wt.encrypted,
			Shape:     shape,
			Index:     sf.Index,
			Type:      derefType(sf.Type),
			Elem:      elem,
		})
	}
}

// classify infers the structural role of a field from its Go type.
func classify(ft reflect.Type) (ShapeKind, reflect.Type) {
	ft = derefType(ft)
	switch ft.Kind() {
	case reflect.Map:
		return ShapeMap, nil
	case reflect.Slice, reflect.Array:
		return ShapeCollection, derefType(ft.Elem())
	case reflect.Struct:
		if ft == timeType {
			return ShapeScalar, nil
		}
		return ShapeNested, nil
	default:
		return ShapeScalar, nil
	}
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
