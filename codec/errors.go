package codec

import (
	"fmt"

	"github.com/payrail/wirecontract/diag"
)

// Error is the single error type raised by projection and hydration. It
// carries a diagnostic code and the contract/field it applies to, so
// callers and tooling dispatch on Code instead of parsing messages.
type Error struct {
	Code     diag.Code
	Contract string
	Field    string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	loc := e.Contract
	if e.Field != "" {
		loc += "." + e.Field
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v [%s]", loc, e.Message, e.Cause, e.Code)
	}
	return fmt.Sprintf("%s: %s [%s]", loc, e.Message, e.Code)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// Diagnostic converts the error to its diag.Diagnostic form for report
// aggregation (used by preload warmup).
func (e *Error) Diagnostic() diag.Diagnostic {
	return diag.New(diag.SeverityError, e.Code, e.Contract, e.Field, e.Message)
}

func newError(code diag.Code, contractName, field, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Contract: contractName,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	}
}
