package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Format returns a human-readable multi-line rendering of the report for
// terminal output. Colors honor color.NoColor.
func Format(r *Report) string {
	var b strings.Builder

	header := color.New(color.Bold)
	if r.HasBlocking() {
		header = color.New(color.FgRed, color.Bold)
	}
	fmt.Fprintf(&b, "%s\n\n", header.Sprintf(
		"Contract validation: %d succeeded, %d failed (%d critical, %d errors, %d warnings)",
		r.Succeeded, r.Failed,
		r.Count(SeverityCritical), r.Count(SeverityError), r.Count(SeverityWarning)))

	byContract := r.ByContract()
	for _, name := range r.ContractNames() {
		fmt.Fprintf(&b, "%s\n", color.New(color.Bold).Sprint(name))
		for _, d := range byContract[name] {
			fmt.Fprintf(&b, "  %s\n", FormatDiagnostic(d))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// FormatDiagnostic returns the one-line colored form of a diagnostic.
func FormatDiagnostic(d Diagnostic) string {
	sev := severityColor(d.Severity).Sprintf("%-8s", string(d.Severity))
	loc := d.Contract
	if d.Path != "" {
		loc += "." + d.Path
	}
	line := fmt.Sprintf("%s %s  %s  %s", sev, color.CyanString("%s", string(d.Code)), loc, d.Message)
	if len(d.Context) > 0 {
		var parts []string
		for k, v := range d.Context {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		line += color.New(color.Faint).Sprintf(" (%s)", strings.Join(parts, " "))
	}
	return line
}

// FormatCompact returns the uncolored single-line form, one diagnostic per
// line, for log shipping.
func FormatCompact(r *Report) string {
	var b strings.Builder
	for _, d := range r.Diagnostics {
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	return b.String()
}

func severityColor(s Severity) *color.Color {
	switch s {
	case SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case SeverityError:
		return color.New(color.FgRed)
	case SeverityWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Reset)
	}
}
