package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/violation-audit/internal/artifact"
	"github.com/example/violation-audit/internal/audit"
	"github.com/example/violation-audit/internal/config"
	"github.com/example/violation-audit/internal/events"
	"github.com/example/violation-audit/internal/location"
	"github.com/example/violation-audit/internal/metrics"
	"github.com/example/violation-audit/internal/report"
	"github.com/example/violation-audit/internal/violation"
)

func newRunCmd(a *app) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the selected audits against a captured artifacts file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loader.Load(flags.toOverrides(cmd))
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			emitter := events.NewEmitter(cmd.OutOrStdout())
			outcome, err := executeRun(cmd.Context(), cfg, emitter, a.log())
			if err != nil {
				return err
			}

			if cfg.FailOnViolation && outcome.Summary.Failed+outcome.Summary.Errored > 0 {
				return fmt.Errorf("%d of %d audits did not pass", outcome.Summary.Failed+outcome.Summary.Errored, outcome.Summary.Audits)
			}
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

// runOutcome is what one pass of the pipeline produced.
type runOutcome struct {
	Document report.Document
	Summary  report.Summary
	Outputs  []string
}

// executeRun loads the artifacts, evaluates every configured audit and writes the
// result files. It is shared by the run and watch commands.
func executeRun(ctx context.Context, cfg config.RuntimeConfig, emitter *events.Emitter, logger *slog.Logger) (runOutcome, error) {
	started := time.Now()

	registry, custom, err := buildRegistry(cfg.CustomAudits)
	if err != nil {
		return runOutcome{}, err
	}

	defs, err := registry.Build(cfg.Audits)
	if err != nil {
		return runOutcome{}, err
	}

	localizer, err := report.NewLocalizer(cfg.Locale, custom)
	if err != nil {
		return runOutcome{}, err
	}

	if err := emitter.Emit(events.Event{Type: events.TypeRunStart, Message: "Starting audit run", Fields: map[string]interface{}{
		"artifacts": cfg.Artifacts,
		"audits":    len(defs),
		"workers":   cfg.Workers,
		"locale":    localizer.Locale(),
	}}); err != nil {
		return runOutcome{}, err
	}

	snap, err := artifact.Load(cfg.Artifacts)
	if err != nil {
		return runOutcome{}, err
	}

	resolver, warnings := location.NewResolverFromSnapshot(snap)
	for _, w := range warnings {
		logger.Warn("source map ignored", "error", w)
		if err := emitter.Emit(events.Event{Type: events.TypeResolverWarning, Message: w.Error()}); err != nil {
			return runOutcome{}, err
		}
	}

	results, err := audit.Run(ctx, defs, snap, resolver, cfg.Workers)
	if err != nil {
		return runOutcome{}, err
	}
	results = localizer.Localize(results)

	m := metrics.New()
	for _, res := range results {
		logger.Debug("audit evaluated", "audit", res.ID, "violations", len(res.Details.Items), "errored", res.Errored())
		m.ObserveResult(res)
		if err := emitter.EmitResult(res); err != nil {
			return runOutcome{}, err
		}
	}

	now := time.Now().UTC()
	doc := report.Document{
		RunID:       emitter.RunID(),
		GeneratedAt: now.Format(time.RFC3339),
		Artifacts:   cfg.Artifacts,
		Locale:      localizer.Locale(),
		Audits:      results,
	}
	outcome := runOutcome{Document: doc, Summary: report.Summarize(doc)}

	timestamp := now.Format("20060102_150405")
	for _, format := range cfg.Formats {
		outputPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("audit_%s.%s", timestamp, format))
		if err := report.WriteFile(outputPath, format, doc); err != nil {
			return runOutcome{}, fmt.Errorf("write %s: %w", outputPath, err)
		}
		outcome.Outputs = append(outcome.Outputs, outputPath)
		if err := emitter.Emit(events.Event{Type: events.TypeArtifactWritten, Fields: map[string]interface{}{"path": outputPath, "format": format}}); err != nil {
			return runOutcome{}, err
		}
	}

	if cfg.SummaryFile != "" {
		if err := writeSummary(cfg.SummaryFile, doc, outcome); err != nil {
			return runOutcome{}, err
		}
	}

	m.ObserveRunDuration(time.Since(started))
	if cfg.MetricsFile != "" {
		if err := ensureOutputDir(filepath.Dir(cfg.MetricsFile)); err != nil {
			return runOutcome{}, err
		}
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return runOutcome{}, fmt.Errorf("write metrics: %w", err)
		}
	}

	s := outcome.Summary
	err = emitter.Emit(events.Event{Type: events.TypeRunFinished, Message: "Audit run complete", Fields: map[string]interface{}{
		"audits":     s.Audits,
		"passed":     s.Passed,
		"failed":     s.Failed,
		"errored":    s.Errored,
		"violations": s.Violations,
		"outputs":    len(outcome.Outputs),
	}})
	return outcome, err
}

// buildRegistry extends the built-in audits with the configured custom audits and
// returns their English strings keyed by audit id.
func buildRegistry(customAudits []config.CustomAudit) (audit.Registry, map[string]report.Strings, error) {
	registry := audit.DefaultRegistry.Clone()
	custom := map[string]report.Strings{}

	for _, ca := range customAudits {
		sig, err := violation.Compile(ca.Pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("custom audit %s: %w", ca.ID, err)
		}
		scoring, err := audit.ParseScoringMode(ca.Scoring)
		if err != nil {
			return nil, nil, fmt.Errorf("custom audit %s: %w", ca.ID, err)
		}
		if err := registry.Register(audit.Definition{
			ID:        ca.ID,
			Signature: sig,
			Scoring:   scoring,
			Dedupe:    ca.Dedupe,
			Sources:   ca.Sources,
		}); err != nil {
			return nil, nil, err
		}
		custom[ca.ID] = report.Strings{Title: ca.Title, FailureTitle: ca.FailureTitle, Description: ca.Description}
	}

	return registry, custom, nil
}

func writeSummary(path string, doc report.Document, outcome runOutcome) error {
	summary := map[string]interface{}{
		"runId":       doc.RunID,
		"generatedAt": doc.GeneratedAt,
		"artifacts":   doc.Artifacts,
		"summary":     outcome.Summary,
		"outputs":     outcome.Outputs,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}

	if err := ensureOutputDir(filepath.Dir(path)); err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}
