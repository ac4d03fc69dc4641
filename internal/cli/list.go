package cli

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/example/violation-audit/internal/config"
	"github.com/example/violation-audit/internal/report"
)

func newListCmd(a *app) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available audits, including custom audits from the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loader.Load(overridesForLocale(cmd, locale))
			if err != nil {
				return err
			}

			registry, custom, err := buildRegistry(cfg.CustomAudits)
			if err != nil {
				return err
			}

			localizer, err := report.NewLocalizer(cfg.Locale, custom)
			if err != nil {
				return err
			}

			ids := registry.IDs()
			idWidth := 0
			for _, id := range ids {
				if w := runewidth.StringWidth(id); w > idWidth {
					idWidth = w
				}
			}

			out := cmd.OutOrStdout()
			for _, id := range ids {
				def := registry[id]()
				fmt.Fprintf(out, "%s  %-12s  %s\n", runewidth.FillRight(id, idWidth), def.Scoring, def.Signature)
				if title := localizer.Lookup(id+".title", ""); title != "" {
					fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight("", idWidth), title)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "", "Locale for audit titles (en, es)")

	return cmd
}

func overridesForLocale(cmd *cobra.Command, locale string) config.Overrides {
	if cmd.Flags().Changed("locale") {
		return config.Overrides{Locale: locale}
	}
	return config.Overrides{}
}
