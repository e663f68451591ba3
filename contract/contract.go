// Package contract defines the declaration surface for typed wire contracts.
// Application code declares one struct per gateway exchange, implements
// Contract to attach the wire operation descriptor, and annotates fields
// with the `wire` struct tag. Everything else (validation, compilation,
// projection, hydration) is derived from these declarations.
package contract

// InteractionMode describes how an operation exchanges data with the
// provider.
type InteractionMode int

const (
	// RequestResponse operations send a request map and hydrate a typed
	// response from the provider's reply.
	RequestResponse InteractionMode = iota
	// OneWay operations send a request map and expect no payload back.
	// Their declared response type must be Empty.
	OneWay
)

// String returns the string representation of the interaction mode.
func (m InteractionMode) String() string {
	switch m {
	case RequestResponse:
		return "request-response"
	case OneWay:
		return "one-way"
	default:
		return "unknown"
	}
}

// Operation is the wire operation descriptor attached to a contract type.
// ID is the provider-side operation identifier and must be non-empty.
type Operation struct {
	// ID is the wire operation identifier (e.g. "payment.authorize").
	ID string `json:"id"`
	// Method is the provider verb or method tag (e.g. "POST").
	Method string `json:"method,omitempty"`
	// Mode selects request/response or one-way interaction.
	Mode InteractionMode `json:"mode"`
	// Version is the protocol version tag (e.g. "2023-10").
	Version string `json:"version,omitempty"`
}

// Contract is implemented by every request type. The returned descriptor
// must be constant for the type: it is read once when metadata is built
// and frozen for the life of the process.
type Contract interface {
	Operation() Operation
}

// Empty is the sentinel response type for one-way operations. A one-way
// contract paired with any other response type fails structural
// validation.
type Empty struct{}
