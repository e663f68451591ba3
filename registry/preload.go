package registry

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/payrail/wirecontract/codec"
	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/diag"
	"github.com/payrail/wirecontract/metadata"
	"github.com/payrail/wirecontract/naming"
)

// PreloadOptions configures a bulk preload.
type PreloadOptions struct {
	// Warmup exercises each compiled projector and hydrator once against
	// a default-constructed instance, so compilation defects surface at
	// startup instead of on first real traffic. Missing-data errors from
	// zero-value instances are expected and ignored.
	Warmup bool
}

// StartupError carries the full diagnostic report when a preload finds
// anything Error or worse. A process receiving it must not serve traffic.
type StartupError struct {
	Report *diag.Report
}

// Error implements the error interface.
func (e *StartupError) Error() string {
	return fmt.Sprintf("contract preload failed: %d of %d contracts invalid (%d critical, %d errors)",
		e.Report.Failed, e.Report.Failed+e.Report.Succeeded,
		e.Report.Count(diag.SeverityCritical), e.Report.Count(diag.SeverityError))
}

// Preload bulk-builds metadata for every pair, continuing past per-type
// failures so one pass surfaces every defect. The aggregate report is
// always returned; the error is a *StartupError exactly when the report
// contains an Error-or-worse diagnostic.
func (r *Registry) Preload(pairs []metadata.Pair, opts PreloadOptions) (*diag.Report, error) {
	report := diag.NewReport()
	for _, p := range pairs {
		diags := metadata.Validate(p)
		if !hasBlocking(diags) {
			entry, err := r.Lookup(p)
			if err == nil && opts.Warmup {
				diags = append(diags, r.warmup(entry)...)
			}
		}
		report.AddContract(diags)
	}

	r.logger.Info("contract preload complete",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("diagnostics", len(report.Diagnostics)))

	if report.HasBlocking() {
		return report, &StartupError{Report: report}
	}
	return report, nil
}

// Preload runs a bulk preload against the default registry.
func Preload(pairs []metadata.Pair, opts PreloadOptions) (*diag.Report, error) {
	return defaultRegistry.Preload(pairs, opts)
}

// warmup projects a zero-value request and hydrates an empty wire map into
// a zero-value response, with identity crypto so encrypted flat contracts
// warm without key material.
func (r *Registry) warmup(e *Entry) []diag.Diagnostic {
	env := &codec.Env{
		Naming:    naming.SnakeCase,
		Encryptor: identityCrypto{},
		Decryptor: identityCrypto{},
	}
	var out []diag.Diagnostic

	src := reflect.New(e.Meta.Type).Interface()
	if _, err := r.Project(e, src, env); err != nil {
		out = appendWarmupFailure(out, e.Meta.Name, err)
	}
	if e.ResponseMeta != nil {
		dst := reflect.New(e.Response).Interface()
		if err := r.Hydrate(e, map[string]any{}, dst, env); err != nil {
			out = appendWarmupFailure(out, e.Meta.Name, err)
		}
	}
	return out
}

// appendWarmupFailure converts a warmup error into a diagnostic, skipping
// the missing-data codes a zero-value instance legitimately triggers.
func appendWarmupFailure(out []diag.Diagnostic, contractName string, err error) []diag.Diagnostic {
	var ce *codec.Error
	if errors.As(err, &ce) {
		if ce.Code == diag.CodeMissingRequiredField || ce.Code == diag.CodeMissingResponseField {
			return out
		}
		return append(out, ce.Diagnostic())
	}
	return append(out, diag.New(diag.SeverityError, diag.CodeWarmupFailed,
		contractName, "", err.Error()))
}

func hasBlocking(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity.Blocks() {
			return true
		}
	}
	return false
}

// identityCrypto passes values through unchanged; used only for warmup.
type identityCrypto struct{}

func (identityCrypto) Encrypt(s string) (string, error) { return s, nil }
func (identityCrypto) Decrypt(s string) (string, error) { return s, nil }

var _ contract.Encryptor = identityCrypto{}
var _ contract.Decryptor = identityCrypto{}
