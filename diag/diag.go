// Package diag provides structured diagnostics for contract validation and
// codec execution. Every problem the engine can detect carries a stable
// machine-readable code, a severity, and the contract/property it applies
// to, so tooling never needs to parse free-text messages.
package diag

import (
	"encoding/json"
	"fmt"
)

// Code is a unique diagnostic code (e.g. "STR003", "PRJ101").
type Code string

// Category groups diagnostic codes by the phase that can raise them.
type Category string

const (
	// CategoryStructural covers startup-time contract shape defects (STR001-099).
	CategoryStructural Category = "structural"
	// CategoryProjection covers outbound request-time failures (PRJ100-199).
	CategoryProjection Category = "projection"
	// CategoryHydration covers inbound response-time failures (HYD200-299).
	CategoryHydration Category = "hydration"
)

// Structural codes, raised by the metadata validator before any traffic flows.
const (
	// CodeMissingOperation: the contract's operation descriptor is absent
	// or its operation id is empty.
	CodeMissingOperation Code = "STR001"
	// CodeInteractionMode: a one-way operation's declared response type is
	// not the empty-response sentinel.
	CodeInteractionMode Code = "STR002"
	// CodeNestingTooDeep: the declared object graph exceeds the maximum
	// nesting depth.
	CodeNestingTooDeep Code = "STR003"
	// CodeCyclicReference: the declared object graph references itself.
	CodeCyclicReference Code = "STR004"
	// CodeEncryptedNeedsName: an encrypted field relies on naming-policy
	// derivation instead of an explicit wire name.
	CodeEncryptedNeedsName Code = "STR005"
	// CodeComplexNeedsName: a nested-object or collection field has no
	// explicit wire name.
	CodeComplexNeedsName Code = "STR006"
	// CodeUnknownTagOption: a `wire` tag carries an option the engine does
	// not understand. Warning only; the option is ignored.
	CodeUnknownTagOption Code = "STR007"
	// CodeEncryptedNotScalar: `encrypted` is declared on a shape encryption
	// cannot cover (nested object, map, or collection of objects). Critical,
	// since the engine would otherwise have to emit the payload in plaintext.
	CodeEncryptedNotScalar Code = "STR008"
	// CodeDuplicateWireKey: two properties resolve to the same wire key, so
	// one silently overwrites the other in the projected map. Derived keys
	// are checked under the default naming policy.
	CodeDuplicateWireKey Code = "STR009"
)

// Projection codes, raised while converting an instance to a wire map.
const (
	// CodeMissingRequiredField: a required property is nil at projection time.
	CodeMissingRequiredField Code = "PRJ101"
	// CodeEncryptorMissing: an encrypted field was projected without a
	// configured encryptor.
	CodeEncryptorMissing Code = "PRJ102"
	// CodeCollectionTooLarge: a collection exceeds the maximum element count.
	CodeCollectionTooLarge Code = "PRJ103"
	// CodeNestingDepthExceeded: instance recursion crossed the depth limit.
	CodeNestingDepthExceeded Code = "PRJ104"
	// CodeEncryptionFailed: the configured encryptor rejected a field value.
	CodeEncryptionFailed Code = "PRJ105"
)

// Hydration codes, raised while rebuilding a typed instance from a wire map.
const (
	// CodeMissingResponseField: a required field is absent from the wire map.
	CodeMissingResponseField Code = "HYD201"
	// CodeTypeMismatch: a wire value cannot be coerced to the declared
	// property type without loss.
	CodeTypeMismatch Code = "HYD202"
	// CodeDecryptionFailed: the decryptor rejected an encrypted wire value.
	CodeDecryptionFailed Code = "HYD203"
)

// CodeWarmupFailed is raised by preload warmup when exercising a compiled
// codec fails for a reason other than missing instance data.
const CodeWarmupFailed Code = "STR090"

// Category returns the category a code belongs to.
func (c Code) Category() Category {
	switch {
	case len(c) >= 3 && c[:3] == "STR":
		return CategoryStructural
	case len(c) >= 3 && c[:3] == "PRJ":
		return CategoryProjection
	default:
		return CategoryHydration
	}
}

// Severity indicates how bad a diagnostic is. Anything Error or worse
// blocks the contract from serving traffic.
type Severity string

const (
	// SeverityWarning flags a suspicious declaration that still works.
	SeverityWarning Severity = "warning"
	// SeverityError blocks the contract but not the process.
	SeverityError Severity = "error"
	// SeverityCritical flags defects that could leak data (e.g. an
	// encrypted field that would fall back to a derived plaintext name).
	SeverityCritical Severity = "critical"
)

// Blocks reports whether the severity is Error or worse.
func (s Severity) Blocks() bool {
	return s == SeverityError || s == SeverityCritical
}

// Diagnostic is one validation or runtime problem attached to a contract.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	// Contract is the declared contract type name (e.g. "AuthorizeRequest").
	Contract string `json:"contract"`
	// Path is the property path inside the contract ("Card.Number"), empty
	// for contract-level diagnostics.
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	// Context carries structured arguments (limits, offending type names)
	// so machine consumers never parse Message.
	Context map[string]any `json:"context,omitempty"`
}

// New constructs a diagnostic.
func New(sev Severity, code Code, contractName, path, message string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Contract: contractName,
		Path:     path,
		Message:  message,
	}
}

// With attaches one structured context argument and returns the diagnostic.
func (d Diagnostic) With(key string, value any) Diagnostic {
	ctx := make(map[string]any, len(d.Context)+1)
	for k, v := range d.Context {
		ctx[k] = v
	}
	ctx[key] = value
	d.Context = ctx
	return d
}

// String returns the compact one-line form used in logs.
func (d Diagnostic) String() string {
	loc := d.Contract
	if d.Path != "" {
		loc += "." + d.Path
	}
	return fmt.Sprintf("%s: %s: %s [%s]", loc, d.Severity, d.Message, d.Code)
}

// ToJSON returns the diagnostic as indented JSON.
func (d Diagnostic) ToJSON() (string, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
