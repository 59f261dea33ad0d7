// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugcheck/plugcheck/internal/config"
	"github.com/plugcheck/plugcheck/internal/issue"
)

func newExplainCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [failure-kind]",
		Short: "Explain a failure kind",
		Long: `Render the help page for a failure kind or harness issue.

Without an argument, list every known page. Names are matched ignoring
case, dashes and underscores.

Examples:
  plugcheck explain
  plugcheck explain CountMismatch
  plugcheck explain null-result-on-success`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				t := newTable("Name", "Summary")
				for _, is := range issue.Values() {
					t.Row(is.Name(), is.Summary())
				}
				fmt.Fprintln(app.stdout, t.Render())
				return nil
			}

			is, ok := issue.Lookup(args[0])
			if !ok {
				return app.failWith(cmd, fmt.Errorf("no page named %q; run 'plugcheck explain' for the list", args[0]))
			}

			style := string(config.ColorSchemeAuto)
			if cfg, err := app.loadConfig(cmd.Context()); err == nil && cfg.UI.ColorScheme != "" {
				style = string(cfg.UI.ColorScheme)
			}
			rendered, err := is.Render(style)
			if err != nil {
				return app.failWith(cmd, err)
			}
			fmt.Fprint(app.stdout, rendered)
			return nil
		},
	}
}
