package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/violation-audit/internal/config"
)

// runtimeFlagSet tracks shared run/init flags before they are converted into config overrides.
type runtimeFlagSet struct {
	artifacts       string
	audits          string
	workers         int
	outputDir       string
	formats         string
	locale          string
	summaryFile     string
	metricsFile     string
	failOnViolation bool
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.artifacts, "artifacts", "", "Path to the captured artifacts file (.json or .msgpack)")
	cmd.Flags().StringVar(&flags.audits, "audits", "", "Comma-separated audit ids to run (see `list`)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, fmt.Sprintf("Number of audits evaluated concurrently (1-%d)", config.MaxWorkers))
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Directory for result files")
	cmd.Flags().StringVar(&flags.formats, "formats", "", "Comma-separated output formats (json,csv,msgpack)")
	cmd.Flags().StringVar(&flags.locale, "locale", "", "Locale for audit titles and headings (en, es)")
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "Optional summary JSON output path")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Optional Prometheus textfile output path")
	cmd.Flags().BoolVar(&flags.failOnViolation, "fail-on-violation", false, "Exit non-zero when any audit fails or errors")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{}
	if cmd.Flags().Changed("artifacts") {
		ov.Artifacts = f.artifacts
	}

	if cmd.Flags().Changed("audits") {
		ov.Audits = config.ParseAuditList(f.audits)
	}

	if cmd.Flags().Changed("workers") {
		ov.Workers = f.workers
		ov.WorkersSet = true
	}

	if cmd.Flags().Changed("output-dir") {
		ov.OutputDir = f.outputDir
	}

	if cmd.Flags().Changed("formats") {
		ov.Formats = config.ParseFormats(f.formats)
	}

	if cmd.Flags().Changed("locale") {
		ov.Locale = f.locale
	}

	if cmd.Flags().Changed("summary-file") {
		ov.SummaryFile = f.summaryFile
	}

	if cmd.Flags().Changed("metrics-file") {
		ov.MetricsFile = f.metricsFile
	}

	if cmd.Flags().Changed("fail-on-violation") {
		ov.FailOnViolation = &f.failOnViolation
	}

	return ov
}
