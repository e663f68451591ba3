package diag

import (
	"encoding/json"
	"sort"
)

// Report aggregates diagnostics across many contract types, typically from
// a bulk preload. A single pass over a contract set surfaces every defect
// at once instead of fix-one-rerun-find-the-next.
type Report struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	// Succeeded counts contract types that validated with nothing worse
	// than a warning.
	Succeeded int `json:"succeeded"`
	// Failed counts contract types with at least one Error-or-worse
	// diagnostic.
	Failed int `json:"failed"`
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{}
}

// AddContract records the outcome for one contract type, folding its
// diagnostics into the aggregate.
func (r *Report) AddContract(diags []Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, diags...)
	if blocking(diags) {
		r.Failed++
	} else {
		r.Succeeded++
	}
}

// Merge folds another report into this one.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
}

// HasBlocking reports whether any diagnostic is Error or worse.
func (r *Report) HasBlocking() bool {
	return blocking(r.Diagnostics)
}

// Count returns the number of diagnostics at exactly the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// ByContract groups diagnostics by contract name, sorted for stable output.
func (r *Report) ByContract() map[string][]Diagnostic {
	out := make(map[string][]Diagnostic)
	for _, d := range r.Diagnostics {
		out[d.Contract] = append(out[d.Contract], d)
	}
	return out
}

// ContractNames returns the sorted set of contract names that have at
// least one diagnostic.
func (r *Report) ContractNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, d := range r.Diagnostics {
		if _, ok := seen[d.Contract]; !ok {
			seen[d.Contract] = struct{}{}
			names = append(names, d.Contract)
		}
	}
	sort.Strings(names)
	return names
}

// ToJSON returns the report as indented JSON, suitable for CI artifacts
// consumed by wirevet.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ParseReport parses a serialized report produced by ToJSON.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func blocking(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity.Blocks() {
			return true
		}
	}
	return false
}
