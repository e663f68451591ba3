package metadata

import (
	"fmt"
	"reflect"

	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/diag"
	"github.com/payrail/wirecontract/naming"
)

// MaxNestingDepth is the deepest nested object level a contract may
// declare. The request root sits at depth 0.
const MaxNestingDepth = 3

// Validate runs the full structural check set against a declared pair and
// returns every diagnostic found. It is a pure function of the declared
// type graph: instance data is never inspected. Both consumption modes
// (aggregate and fail-fast) are thin drivers over this.
func Validate(p Pair) []diag.Diagnostic {
	var diags []diag.Diagnostic

	req, err := Build(p.Request)
	if err != nil {
		return []diag.Diagnostic{diag.New(
			diag.SeverityError, diag.CodeMissingOperation,
			typeName(derefType(p.Request)), "",
			err.Error(),
		)}
	}

	// Missing or empty operation descriptor.
	if !req.HasOperation || req.Operation.ID == "" {
		msg := "contract does not declare a wire operation"
		if req.HasOperation {
			msg = "wire operation id is empty"
		}
		diags = append(diags, diag.New(
			diag.SeverityError, diag.CodeMissingOperation, req.Name, "", msg))
	}

	// Interaction-mode violation: one-way pairs must use the sentinel.
	if req.HasOperation && req.Operation.Mode == contract.OneWay &&
		p.Response != nil && derefType(p.Response) != emptyType {
		diags = append(diags, diag.New(
			diag.SeverityError, diag.CodeInteractionMode, req.Name, "",
			fmt.Sprintf("one-way operation %q must pair with contract.Empty, got %s",
				req.Operation.ID, typeName(derefType(p.Response))),
		).With("response", typeName(derefType(p.Response))))
	}

	w := &graphWalker{root: req.Name}
	w.walk(req.Type, 0, "")
	diags = append(diags, w.diags...)
	diags = append(diags, req.tagWarnings...)

	// The response graph obeys the same field rules, without requiring an
	// operation descriptor of its own.
	if p.Response != nil {
		if rt := derefType(p.Response); rt != emptyType && rt.Kind() == reflect.Struct {
			resp, err := Build(rt)
			if err == nil {
				rw := &graphWalker{root: resp.Name}
				rw.walk(resp.Type, 0, "")
				diags = append(diags, rw.diags...)
				diags = append(diags, resp.tagWarnings...)
			}
		}
	}

	return diags
}

// ValidateAll is the aggregate driver: it validates every pair and folds
// the results into one report, so a single startup pass surfaces every
// defect across the contract set.
func ValidateAll(pairs ...Pair) *diag.Report {
	report := diag.NewReport()
	for _, p := range pairs {
		report.AddContract(Validate(p))
	}
	return report
}

// ValidateStrict is the fail-fast driver used on lazy lookups: it returns
// a *diag.ContractError as soon as the check set records anything Error or
// worse, and nil otherwise.
func ValidateStrict(p Pair) error {
	name := typeName(derefType(p.Request))
	return diag.ErrorFrom(name, Validate(p))
}

// graphWalker traverses the declared property graph, carrying the depth
// counter and the ancestor chain for cycle detection. The bound keeps the
// recursion trivially shallow.
type graphWalker struct {
	root  string
	stack []reflect.Type
	diags []diag.Diagnostic
}

func (w *graphWalker) walk(t reflect.Type, depth int, path string) {
	for _, anc := range w.stack {
		if anc == t {
			w.diags = append(w.diags, diag.New(
				diag.SeverityError, diag.CodeCyclicReference, w.root, path,
				fmt.Sprintf("cyclic reference through %s", typeName(t)),
			).With("type", typeName(t)))
			return
		}
	}
	w.stack = append(w.stack, t)
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	m, err := Build(t)
	if err != nil {
		return
	}
	// Duplicate detection derives keys under the default policy, since
	// validation runs before any per-invocation policy exists.
	seen := make(map[string]string, len(m.Fields))
	for i := range m.Fields {
		f := &m.Fields[i]
		fieldPath := joinPath(path, f.Name)
		key := f.Key(naming.SnakeCase)
		if prev, ok := seen[key]; ok {
			w.diags = append(w.diags, diag.New(
				diag.SeverityWarning, diag.CodeDuplicateWireKey, w.root, fieldPath,
				fmt.Sprintf("wire key %q is already produced by property %s", key, prev),
			).With("key", key).With("previous", prev))
		} else {
			seen[key] = f.Name
		}
		w.checkField(f, depth, fieldPath)
	}
}

func (w *graphWalker) checkField(f *FieldDescriptor, depth int, path string) {
	if f.Encrypted && f.WireName == "" {
		w.diags = append(w.diags, diag.New(
			diag.SeverityCritical, diag.CodeEncryptedNeedsName, w.root, path,
			"encrypted field must declare an explicit wire name"))
	}
	if f.Encrypted && !encryptable(f) {
		w.diags = append(w.diags, diag.New(
			diag.SeverityCritical, diag.CodeEncryptedNotScalar, w.root, path,
			fmt.Sprintf("encrypted field must hold string values, not a %s shape", f.Shape)))
	}

	switch f.Shape {
	case ShapeNested:
		if f.WireName == "" {
			w.diags = append(w.diags, diag.New(
				diag.SeverityError, diag.CodeComplexNeedsName, w.root, path,
				"nested-object field must declare an explicit wire name"))
		}
		w.descend(f.Type, depth, path)
	case ShapeCollection:
		if f.Elem != nil && f.Elem.Kind() == reflect.Struct && f.Elem != timeType {
			if f.WireName == "" {
				w.diags = append(w.diags, diag.New(
					diag.SeverityError, diag.CodeComplexNeedsName, w.root, path,
					"collection-of-objects field must declare an explicit wire name"))
			}
			w.descend(f.Elem, depth, path+"[]")
		}
	}
}

// descend recurses into a nested struct one level down, flagging the depth
// breach instead of recursing when the child would sit past the limit.
// Declared shape decides this, so nil instance values cannot hide it.
func (w *graphWalker) descend(t reflect.Type, depth int, path string) {
	if depth+1 > MaxNestingDepth {
		w.diags = append(w.diags, diag.New(
			diag.SeverityError, diag.CodeNestingTooDeep, w.root, path,
			fmt.Sprintf("object graph exceeds maximum nesting depth of %d", MaxNestingDepth),
		).With("depth", depth+1).With("max", MaxNestingDepth))
		return
	}
	w.walk(t, depth+1, path)
}

// encryptable reports whether the encrypted flag can work for a shape:
// scalar fields and collections of scalars. Nested objects, maps, nested
// lists, and collections of objects have no string payload to encrypt.
func encryptable(f *FieldDescriptor) bool {
	switch f.Shape {
	case ShapeScalar:
		return true
	case ShapeCollection:
		if f.Elem == nil {
			return true
		}
		switch f.Elem.Kind() {
		case reflect.Map, reflect.Slice, reflect.Array:
			return false
		case reflect.Struct:
			return f.Elem == timeType
		default:
			return true
		}
	default:
		return false
	}
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
