// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/plugcheck/plugcheck/internal/oracle"
)

func newListCommand(app *App) *cobra.Command {
	var oracleFile string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the validation registry",
		Long: `Show the validation registry: every module entry with its expected
descriptor count, followed by the descriptor-count groups.

Examples:
  plugcheck list
  plugcheck list --oracle ./oracle.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.failWith(cmd, err)
			}
			reg, err := loadOracle(cfg, oracleFile)
			if err != nil {
				return app.failWith(cmd, err)
			}
			renderRegistry(app.stdout, reg)
			return nil
		},
	}
	listCmd.Flags().StringVar(&oracleFile, "oracle", "", "registry file (.cue or .toml) replacing the embedded one")
	return listCmd
}

func renderRegistry(w io.Writer, reg *oracle.Oracle) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Registry"), SubtitleStyle.Render(fmt.Sprintf("%s (version %s)", reg.Source(), reg.Version())))
	if d := reg.Description(); d != "" {
		fmt.Fprintln(w, SubtitleStyle.Render(d))
	}
	fmt.Fprintln(w)

	entries := newTable("Module", "Kind", "Descriptors", "Factory", "Input", "Expected", "Skip")
	for _, p := range reg.Entries() {
		input := "no"
		if p.Entry.NeedsInput {
			input = "yes"
		}
		entries.Row(p.Module, string(p.Entry.Kind), p.Entry.Descriptors, p.Entry.Factory, input,
			strconv.Itoa(p.Entry.Expected), strconv.Itoa(len(p.Entry.Skip)))
	}
	fmt.Fprintln(w, entries.Render())

	groups := reg.Groups()
	if len(groups) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Descriptor count groups"))
	counts := newTable("Kind", "Symbol", "Module", "Expected")
	for _, g := range groups {
		for _, m := range g.Modules() {
			counts.Row(string(g.Kind), g.Symbol, m, strconv.Itoa(g.Expected[m]))
		}
	}
	fmt.Fprintln(w, counts.Render())
}
