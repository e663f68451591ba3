// wirevet renders a contract diagnostic report for console or CI
// consumption. Services export the report from their startup preload
// (diag.Report.ToJSON); wirevet pretty-prints it and sets the exit code
// from the worst severity found, so a pipeline step can gate deploys on
// contract health.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/payrail/wirecontract/diag"
)

var (
	Version = "dev"

	flagJSON        bool
	flagCompact     bool
	flagNoColor     bool
	flagMinSeverity string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wirevet [report.json]",
		Short: "Render and gate on a wire contract diagnostic report",
		Long: `wirevet reads a diagnostic report produced by a contract preload
(diag.Report serialized as JSON) from a file or stdin, renders it for
humans or machines, and exits non-zero when the report should block
a deploy.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run,
	}
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "re-emit the report as JSON")
	rootCmd.Flags().BoolVar(&flagCompact, "compact", false, "one diagnostic per line, no color")
	rootCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.Flags().StringVar(&flagMinSeverity, "min-severity", "error",
		"lowest severity that fails the run (warning|error|critical)")
	rootCmd.Version = Version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagNoColor {
		color.NoColor = true
	}
	threshold, err := parseSeverity(flagMinSeverity)
	if err != nil {
		return err
	}

	data, err := readInput(args)
	if err != nil {
		return err
	}
	report, err := diag.ParseReport(data)
	if err != nil {
		return fmt.Errorf("parse report: %w", err)
	}

	switch {
	case flagJSON:
		out, err := report.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	case flagCompact:
		fmt.Fprint(cmd.OutOrStdout(), diag.FormatCompact(report))
	default:
		fmt.Fprint(cmd.OutOrStdout(), diag.Format(report))
	}

	if failsAt(report, threshold) {
		os.Exit(1)
	}
	return nil
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}

// rank orders severities for threshold comparison.
func rank(s diag.Severity) int {
	switch s {
	case diag.SeverityCritical:
		return 3
	case diag.SeverityError:
		return 2
	case diag.SeverityWarning:
		return 1
	default:
		return 0
	}
}

func parseSeverity(s string) (diag.Severity, error) {
	switch s {
	case "warning":
		return diag.SeverityWarning, nil
	case "error":
		return diag.SeverityError, nil
	case "critical":
		return diag.SeverityCritical, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

func failsAt(r *diag.Report, threshold diag.Severity) bool {
	for _, d := range r.Diagnostics {
		if rank(d.Severity) >= rank(threshold) {
			return true
		}
	}
	return false
}
