// Package registry is the process-wide cache of frozen contract metadata.
// An entry is built exactly once per contract type, on first lookup or in
// bulk via Preload, then never mutated or evicted. Concurrent first-time
// lookups race, but the atomic get-or-insert plus a per-entry once
// guarantees a single winning build: no caller ever observes a second
// codec pair or a partially initialized entry.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/payrail/wirecontract/codec"
	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/diag"
	"github.com/payrail/wirecontract/metadata"
)

var emptyType = reflect.TypeOf((*contract.Empty)(nil)).Elem()

// Entry is the frozen result of one contract build: request and response
// descriptors plus their compiled codecs. A nil Codec means the shape was
// too complex to specialize and the generic reflective path serves it.
type Entry struct {
	// Meta is the request contract's frozen descriptor.
	Meta *metadata.ContractMetadata
	// Response is the declared response type (contract.Empty for one-way).
	Response reflect.Type
	// ResponseMeta is the response descriptor, nil for contract.Empty.
	ResponseMeta *metadata.ContractMetadata
	// Codec projects/hydrates the request type when non-nil.
	Codec *codec.Codec
	// ResponseCodec hydrates the response type when non-nil.
	ResponseCodec *codec.Codec
}

// Compiled reports whether the request side got a specialized codec.
func (e *Entry) Compiled() bool { return e.Codec != nil }

// Registry maps contract types to frozen entries. The zero value is not
// usable; construct with New.
type Registry struct {
	slots  sync.Map // reflect.Type -> *slot
	nested sync.Map // reflect.Type -> *nestedSlot
	engine *codec.Engine
	logger *zap.Logger
}

type slot struct {
	once  sync.Once
	entry *Entry
	err   error
}

type nestedSlot struct {
	once sync.Once
	meta *metadata.ContractMetadata
	err  error
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a structured logger; the default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New constructs an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.engine = codec.NewEngine(r.metadataFor)
	return r
}

// Lookup returns the frozen entry for a pair, building it on first use.
// Validation runs fail-fast here: a defective contract surfaces as a
// *diag.ContractError and the failure itself is frozen, since a structural
// defect cannot heal without a new process.
func (r *Registry) Lookup(p metadata.Pair) (*Entry, error) {
	key := indirect(p.Request)
	actual, _ := r.slots.LoadOrStore(key, &slot{})
	s := actual.(*slot)
	s.once.Do(func() {
		s.entry, s.err = r.build(p)
	})
	if s.err != nil {
		return nil, s.err
	}
	if rt := indirect(p.Response); rt != nil && s.entry.Response != nil && rt != s.entry.Response {
		return nil, fmt.Errorf("contract %s is already bound to response %s, not %s",
			s.entry.Meta.Name, s.entry.Response, rt)
	}
	return s.entry, nil
}

func (r *Registry) build(p metadata.Pair) (*Entry, error) {
	diags := metadata.Validate(p)
	m, err := metadata.Build(p.Request)
	if err != nil {
		return nil, err
	}
	if verr := diag.ErrorFrom(m.Name, diags); verr != nil {
		r.logger.Warn("contract validation failed",
			zap.String("contract", m.Name),
			zap.Int("diagnostics", len(diags)))
		return nil, verr
	}

	e := &Entry{
		Meta:     m,
		Response: indirect(p.Response),
		Codec:    codec.Compile(m),
	}
	if e.Response != nil && e.Response != emptyType && e.Response.Kind() == reflect.Struct {
		rm, err := metadata.Build(e.Response)
		if err != nil {
			return nil, err
		}
		e.ResponseMeta = rm
		e.ResponseCodec = codec.Compile(rm)
	}

	r.logger.Debug("contract metadata frozen",
		zap.String("contract", m.Name),
		zap.String("operation", m.Operation.ID),
		zap.Bool("compiled", e.Codec != nil))
	return e, nil
}

// metadataFor is the engine's resolver: it caches built (not validated)
// descriptors for nested types reached during reflective recursion, with
// the same get-or-insert discipline as top-level entries.
func (r *Registry) metadataFor(t reflect.Type) (*metadata.ContractMetadata, error) {
	actual, _ := r.nested.LoadOrStore(t, &nestedSlot{})
	s := actual.(*nestedSlot)
	s.once.Do(func() {
		s.meta, s.err = metadata.Build(t)
	})
	return s.meta, s.err
}

// Project converts a request instance to a wire map, preferring the
// compiled projector.
func (r *Registry) Project(e *Entry, src any, env *codec.Env) (map[string]any, error) {
	if e.Codec != nil {
		return e.Codec.Project(src, env)
	}
	return r.engine.Project(src, env)
}

// Hydrate fills a response instance from a wire map, preferring the
// compiled response hydrator.
func (r *Registry) Hydrate(e *Entry, wire map[string]any, dst any, env *codec.Env) error {
	if e.ResponseCodec != nil {
		return e.ResponseCodec.Hydrate(wire, dst, env)
	}
	return r.engine.Hydrate(wire, dst, env)
}

// Engine exposes the registry-backed reflective engine.
func (r *Registry) Engine() *codec.Engine { return r.engine }

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// defaultRegistry backs the package-level convenience API.
var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Lookup resolves a pair against the default registry.
func Lookup(p metadata.Pair) (*Entry, error) { return defaultRegistry.Lookup(p) }
