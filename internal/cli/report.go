package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/violation-audit/internal/report"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var summaryPath string
	var noColor bool
	var width int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a result file written by run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			doc, err := report.ReadFile(inputPath)
			if err != nil {
				return err
			}

			opts := report.RenderOptions{Color: !noColor && isTerminal(cmd.OutOrStdout()), Width: width}
			if err := report.Render(cmd.OutOrStdout(), doc, opts); err != nil {
				return err
			}

			if summaryPath != "" {
				if err := writeReportSummary(summaryPath, report.Summarize(doc)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", summaryPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a .json or .msgpack result file")
	cmd.Flags().StringVar(&summaryPath, "summary-file", "", "Optional path to store summary JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().IntVar(&width, "width", 0, "Column width for audit titles")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}

func writeReportSummary(path string, summary report.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
