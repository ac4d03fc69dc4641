package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	flags := &runtimeFlagSet{}
	var skipArtifactsCheck bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Validate the configuration and prepare the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loader.Load(flags.toOverrides(cmd))
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if _, _, err := buildRegistry(cfg.CustomAudits); err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			if !skipArtifactsCheck {
				info, err := os.Stat(cfg.Artifacts)
				if err != nil {
					return fmt.Errorf("artifacts file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("artifacts path %s is a directory", cfg.Artifacts)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Environment looks good. Output will be stored in %s\n", cfg.OutputDir)
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().BoolVar(&skipArtifactsCheck, "skip-artifacts-check", false, "Allow init to pass before the artifacts file has been captured")

	return cmd
}
