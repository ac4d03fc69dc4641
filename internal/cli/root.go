package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/violation-audit/internal/config"
)

var version = "dev"

// Execute builds the root command tree and runs the CLI until ctx is done.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{loader: &config.Loader{ConfigPath: config.DefaultConfigPath}}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "violation-audit",
		Short:         "Score captured page diagnostics against best-practice violation audits",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("violation-audit version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to violation-audit.yml or .toml (optional)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.LogLevel, "log-level", "warn", "Log level for stderr diagnostics: debug, info, warn, error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if rootOpts.ConfigPath != "" {
			a.loader.ConfigPath = rootOpts.ConfigPath
		}
		logger, err := newLogger(cmd.ErrOrStderr(), rootOpts.LogLevel)
		if err != nil {
			return err
		}
		a.logger = logger
		return nil
	}

	rootCmd.AddCommand(
		newInitCmd(a),
		newRunCmd(a),
		newWatchCmd(a),
		newReportCmd(),
		newDoctorCmd(a),
		newListCmd(a),
	)

	return rootCmd
}

type rootOptions struct {
	ConfigPath string
	LogLevel   string
}

// app holds state shared by sub-commands.
type app struct {
	loader *config.Loader
	logger *slog.Logger
}

func (a *app) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.logger
}
