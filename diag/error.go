package diag

import (
	"fmt"
)

// ContractError is the fail-fast form of structural validation: it carries
// every diagnostic recorded for one contract type and is raised when any
// of them is Error or worse. It is returned from lazy per-request lookups,
// where aggregate reporting would hide the failure.
type ContractError struct {
	Contract    string
	Diagnostics []Diagnostic
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	first := e.First()
	if first == nil {
		return fmt.Sprintf("contract %s: invalid", e.Contract)
	}
	n := 0
	for _, d := range e.Diagnostics {
		if d.Severity.Blocks() {
			n++
		}
	}
	if n > 1 {
		return fmt.Sprintf("%s (+%d more)", first.String(), n-1)
	}
	return first.String()
}

// First returns the first Error-or-worse diagnostic, or nil.
func (e *ContractError) First() *Diagnostic {
	for i := range e.Diagnostics {
		if e.Diagnostics[i].Severity.Blocks() {
			return &e.Diagnostics[i]
		}
	}
	return nil
}

// ErrorFrom returns a ContractError when diags contains an Error-or-worse
// entry, nil otherwise. This is the single place that decides whether a
// diagnostic list blocks a contract.
func ErrorFrom(contractName string, diags []Diagnostic) error {
	if !blocking(diags) {
		return nil
	}
	return &ContractError{Contract: contractName, Diagnostics: diags}
}
