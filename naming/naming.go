// Package naming provides wire field name derivation policies. A policy is
// consulted only for fields that declare no explicit wire name; encrypted
// and complex-shaped fields must always name themselves explicitly and
// never reach a policy.
package naming

import (
	"strings"
	"unicode"
)

// Policy derives a wire field name from a Go property name.
type Policy interface {
	ConvertName(propertyName string) string
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(string) string

// ConvertName calls f.
func (f PolicyFunc) ConvertName(propertyName string) string { return f(propertyName) }

// SnakeCase converts CamelCase property names to snake_case wire names.
// Acronyms collapse to a single segment (HTTPStatus -> http_status).
var SnakeCase Policy = PolicyFunc(toSnakeCase)

// Identity passes property names through unchanged.
var Identity Policy = PolicyFunc(func(s string) string { return s })

// LowerCamel lowercases the first rune of the property name, leaving the
// rest untouched (OrderID -> orderID).
var LowerCamel Policy = PolicyFunc(func(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
})

func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				// Underscore before an uppercase rune when the previous
				// rune is lowercase, or when this rune starts the tail of
				// an acronym (HTTPRequest -> http_request).
				if unicode.IsLower(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
