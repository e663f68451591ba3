// Package gateway sequences one request/response exchange through four
// fixed stages: Validate (registry lookup, which freezes metadata on first
// use), Project, Execute (the externally supplied callback and the only
// suspension point), and Hydrate. Stages never run out of order and any
// failure aborts the exchange.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payrail/wirecontract/codec"
	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/metadata"
	"github.com/payrail/wirecontract/naming"
	"github.com/payrail/wirecontract/registry"
)

// ExecuteFunc performs the provider call for one exchange. It receives the
// projected request map and must return the provider's response map. It is
// the only stage that may block, and the only stage cancellation reaches.
type ExecuteFunc func(ctx context.Context, op OperationContext, req map[string]any) (map[string]any, error)

// OperationContext identifies one exchange to the execute callback.
type OperationContext struct {
	// ExchangeID is unique per exchange, for correlation.
	ExchangeID string
	// OperationID is the resolved wire operation id.
	OperationID string
	Method      string
	Version     string
	Mode        contract.InteractionMode
}

// Stage names one of the four pipeline stages.
type Stage string

const (
	StageValidate Stage = "validate"
	StageProject  Stage = "project"
	StageExecute  Stage = "execute"
	StageHydrate  Stage = "hydrate"
)

// ExchangeError wraps any failure inside the pipeline with the stage it
// occurred in. The original error is preserved as the cause.
type ExchangeError struct {
	Stage     Stage
	Operation string
	Contract  string
	Err       error
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s stage failed for contract %s (operation %q): %v",
		e.Stage, e.Contract, e.Operation, e.Err)
}

// Unwrap returns the cause.
func (e *ExchangeError) Unwrap() error { return e.Err }

// Gateway holds the wiring shared by all exchanges: the metadata registry,
// the execute callback, and the per-process env (naming policy, crypto).
type Gateway struct {
	registry *registry.Registry
	exec     ExecuteFunc
	env      codec.Env
	logger   *zap.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRegistry replaces the default process-wide registry.
func WithRegistry(r *registry.Registry) Option {
	return func(g *Gateway) {
		if r != nil {
			g.registry = r
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithNaming sets the naming policy for derived wire keys.
func WithNaming(p naming.Policy) Option {
	return func(g *Gateway) { g.env.Naming = p }
}

// WithCrypto supplies the encryptor/decryptor pair for `encrypted` fields.
func WithCrypto(enc contract.Encryptor, dec contract.Decryptor) Option {
	return func(g *Gateway) {
		g.env.Encryptor = enc
		g.env.Decryptor = dec
	}
}

// New constructs a gateway around an execute callback.
func New(exec ExecuteFunc, opts ...Option) *Gateway {
	g := &Gateway{
		registry: registry.Default(),
		exec:     exec,
		env:      codec.Env{Naming: naming.SnakeCase},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ErrNoExecutor is returned when a gateway was built without an execute
// callback.
var ErrNoExecutor = errors.New("gateway has no execute function")

// Exchange runs one request through the pipeline and returns the hydrated
// response. Resp must be the response type the request was declared with;
// for one-way operations that is contract.Empty.
func Exchange[Req contract.Contract, Resp any](ctx context.Context, g *Gateway, req Req) (Resp, error) {
	var zero Resp
	pair := metadata.PairOf[Req, Resp]()

	// Stage 1: validate. The lookup freezes metadata on first use and
	// fails fast on any structural defect.
	entry, err := g.registry.Lookup(pair)
	if err != nil {
		return zero, &ExchangeError{
			Stage: StageValidate, Contract: typeLabel(pair.Request), Err: err,
		}
	}

	op := OperationContext{
		ExchangeID:  uuid.NewString(),
		OperationID: entry.Meta.Operation.ID,
		Method:      entry.Meta.Operation.Method,
		Version:     entry.Meta.Operation.Version,
		Mode:        entry.Meta.Operation.Mode,
	}
	log := g.logger.With(
		zap.String("exchange_id", op.ExchangeID),
		zap.String("operation", op.OperationID),
		zap.String("contract", entry.Meta.Name),
	)

	// Stage 2: project. Synchronous, CPU-bound, not cancellable.
	wire, err := g.registry.Project(entry, req, &g.env)
	if err != nil {
		log.Debug("projection failed", zap.Error(err))
		return zero, &ExchangeError{
			Stage: StageProject, Operation: op.OperationID,
			Contract: entry.Meta.Name, Err: err,
		}
	}

	// Stage 3: execute. The only suspension point; ctx applies here.
	if g.exec == nil {
		return zero, &ExchangeError{
			Stage: StageExecute, Operation: op.OperationID,
			Contract: entry.Meta.Name, Err: ErrNoExecutor,
		}
	}
	start := time.Now()
	respMap, err := g.exec(ctx, op, wire)
	if err != nil {
		log.Debug("execute failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return zero, &ExchangeError{
			Stage: StageExecute, Operation: op.OperationID,
			Contract: entry.Meta.Name, Err: err,
		}
	}
	log.Debug("execute complete", zap.Duration("took", time.Since(start)))

	// Stage 4: hydrate. One-way operations carry no payload back.
	if op.Mode == contract.OneWay {
		if v, ok := any(contract.Empty{}).(Resp); ok {
			return v, nil
		}
		return zero, nil
	}
	var out Resp
	if err := g.registry.Hydrate(entry, respMap, &out, &g.env); err != nil {
		log.Debug("hydration failed", zap.Error(err))
		return zero, &ExchangeError{
			Stage: StageHydrate, Operation: op.OperationID,
			Contract: entry.Meta.Name, Err: err,
		}
	}
	return out, nil
}

func typeLabel(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
