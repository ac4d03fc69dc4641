package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/violation-audit/internal/artifact"
	"github.com/example/violation-audit/internal/audit"
	"github.com/example/violation-audit/internal/config"
	"github.com/example/violation-audit/internal/location"
)

type doctorCheck struct {
	Name   string
	Status string // "✓", "✗" or "⊘"
	Detail string
	Error  error
}

func newDoctorCmd(a *app) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration, artifacts and source maps before a run",
		Long: `The doctor subcommand checks everything a run depends on:
- Go runtime version
- Configuration validity
- Artifacts file presence and decoding
- Artifacts required by the selected audits
- Source maps that would be ignored during location resolution
- Output directory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loader.Load(flags.toOverrides(cmd))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			checks := runDoctorChecks(&cfg)
			printDoctorReport(cmd, checks)

			for _, check := range checks {
				if check.Error != nil {
					return fmt.Errorf("doctor checks failed")
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "\n✓ All checks passed. Ready to run.")
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

func runDoctorChecks(cfg *config.RuntimeConfig) []doctorCheck {
	checks := []doctorCheck{checkGoVersion(), checkConfiguration(cfg)}

	auditCheck, required := checkAudits(cfg)
	checks = append(checks, auditCheck)

	artifactsCheck, snap := checkArtifacts(cfg.Artifacts)
	checks = append(checks, artifactsCheck)

	if snap != nil {
		checks = append(checks, checkRequiredArtifacts(snap, required), checkSourceMaps(snap))
	}

	checks = append(checks, checkOutputDirectory(cfg.OutputDir))

	return checks
}

func checkGoVersion() doctorCheck {
	return doctorCheck{
		Name:   "Go Runtime",
		Status: "✓",
		Detail: fmt.Sprintf("Version %s", runtime.Version()),
	}
}

func checkConfiguration(cfg *config.RuntimeConfig) doctorCheck {
	if err := cfg.Validate(); err != nil {
		return doctorCheck{
			Name:   "Configuration",
			Status: "✗",
			Detail: "Invalid configuration",
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Configuration",
		Status: "✓",
		Detail: fmt.Sprintf("%d audits, %d workers, formats=%s", len(cfg.Audits), cfg.Workers, strings.Join(cfg.Formats, ",")),
	}
}

// checkAudits resolves the configured audit ids and returns the artifacts they need.
func checkAudits(cfg *config.RuntimeConfig) (doctorCheck, []string) {
	check := doctorCheck{Name: "Audits"}

	registry, _, err := buildRegistry(cfg.CustomAudits)
	if err == nil {
		var defs []audit.Definition
		defs, err = registry.Build(cfg.Audits)
		if err == nil {
			var required []string
			seen := map[string]struct{}{}
			for _, def := range defs {
				for _, name := range def.RequiredArtifacts {
					if _, ok := seen[name]; !ok {
						seen[name] = struct{}{}
						required = append(required, name)
					}
				}
			}
			check.Status = "✓"
			check.Detail = strings.Join(cfg.Audits, ", ")
			return check, required
		}
	}

	check.Status = "✗"
	check.Detail = "Cannot resolve audits"
	check.Error = err
	return check, nil
}

func checkArtifacts(path string) (doctorCheck, *artifact.Snapshot) {
	if path == "" {
		return doctorCheck{Name: "Artifacts", Status: "⊘", Detail: "Skipped (no artifacts configured)"}, nil
	}

	snap, err := artifact.Load(path)
	if err != nil {
		return doctorCheck{Name: "Artifacts", Status: "✗", Detail: path, Error: err}, nil
	}

	return doctorCheck{
		Name:   "Artifacts",
		Status: "✓",
		Detail: fmt.Sprintf("%d console messages, %d scripts, %d source maps", len(snap.ConsoleMessages), len(snap.Scripts), len(snap.SourceMaps)),
	}, snap
}

func checkRequiredArtifacts(snap *artifact.Snapshot, required []string) doctorCheck {
	if err := snap.Require(required...); err != nil {
		return doctorCheck{Name: "Required Artifacts", Status: "✗", Detail: "Missing from artifacts file", Error: err}
	}

	detail := strings.Join(required, ", ")
	if detail == "" {
		detail = "None"
	}
	return doctorCheck{Name: "Required Artifacts", Status: "✓", Detail: detail}
}

// checkSourceMaps reports unusable source maps. They only degrade locations, so the check never fails.
func checkSourceMaps(snap *artifact.Snapshot) doctorCheck {
	if !snap.Has(artifact.SourceMaps) {
		return doctorCheck{Name: "Source Maps", Status: "⊘", Detail: "None captured"}
	}

	_, warnings := location.NewResolverFromSnapshot(snap)
	if len(warnings) == 0 {
		return doctorCheck{Name: "Source Maps", Status: "✓", Detail: fmt.Sprintf("%d usable", len(snap.SourceMaps))}
	}

	msgs := make([]string, 0, len(warnings))
	for _, w := range warnings {
		msgs = append(msgs, w.Error())
	}
	return doctorCheck{
		Name:   "Source Maps",
		Status: "⊘",
		Detail: fmt.Sprintf("%d of %d ignored: %s", len(warnings), len(snap.SourceMaps), strings.Join(msgs, "; ")),
	}
}

func checkOutputDirectory(outputDir string) doctorCheck {
	if err := ensureOutputDir(outputDir); err != nil {
		return doctorCheck{
			Name:   "Output Directory",
			Status: "✗",
			Detail: outputDir,
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Output Directory",
		Status: "✓",
		Detail: outputDir,
	}
}

func printDoctorReport(cmd *cobra.Command, checks []doctorCheck) {
	fmt.Fprintln(cmd.OutOrStdout(), "Running environment diagnostics...")

	for _, check := range checks {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-30s %s\n", check.Status, check.Name+":", check.Detail)
		if check.Error != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "   Error: %v\n", check.Error)
		}
	}
}
