// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugcheck/plugcheck/internal/config"
	"github.com/plugcheck/plugcheck/internal/oracle"
)

// newConfigCommand creates the `plugcheck config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage plugcheck configuration",
		Long: `Manage plugcheck configuration.

Configuration is stored in:
  - Linux: ~/.config/plugcheck/config.cue
  - macOS: ~/Library/Application Support/plugcheck/config.cue
  - Windows: %APPDATA%\plugcheck\config.cue

A config.cue in the working directory is used when none exists there.
PLUGCHECK_* environment variables override file values, for example
PLUGCHECK_ISOLATION=inline or PLUGCHECK_UI_VERBOSE=true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(app)
			if err != nil {
				return app.failWith(cmd, err)
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Init(config.LoadOptions{}, force)
			if errors.Is(err, config.ErrConfigExists) {
				fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Config file already exists:"), path)
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("Use --force to overwrite it."))
				return nil
			}
			if err != nil {
				return app.failWith(cmd, err)
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created config file:"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cfgCmd.AddCommand(initCmd)

	var dumpOracle, dumpOracleSchema, dumpSchema bool
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output configuration, registry or schemas as CUE",
		Long: `Output the effective configuration as CUE.

With --oracle, output the embedded validation registry instead; it is a
starting point for a custom registry passed with 'plugcheck run --oracle'.
With --oracle-schema or --schema, output the schema the registry or the
configuration is validated against.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case dumpOracle:
				fmt.Fprint(app.stdout, string(oracle.DefaultDocument()))
			case dumpOracleSchema:
				fmt.Fprint(app.stdout, string(oracle.Schema()))
			case dumpSchema:
				fmt.Fprint(app.stdout, config.Schema())
			default:
				cfg, err := app.loadConfig(cmd.Context())
				if err != nil {
					return app.failWith(cmd, err)
				}
				fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			}
			return nil
		},
	}
	dumpCmd.Flags().BoolVar(&dumpOracle, "oracle", false, "output the embedded validation registry")
	dumpCmd.Flags().BoolVar(&dumpOracleSchema, "oracle-schema", false, "output the validation registry schema")
	dumpCmd.Flags().BoolVar(&dumpSchema, "schema", false, "output the configuration schema")
	dumpCmd.MarkFlagsMutuallyExclusive("oracle", "oracle-schema", "schema")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

// configFilePath returns the file configuration is read from, or the path
// 'config init' would create when none exists yet.
func configFilePath(app *App) (string, error) {
	path, err := config.Locate(config.LoadOptions{ConfigFilePath: app.configPath})
	if err != nil || path != "" {
		return path, err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt), nil
}

func showConfig(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return app.failWith(cmd, err)
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	located, _ := config.Locate(config.LoadOptions{ConfigFilePath: app.configPath})
	if located == "" {
		located = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), located)
	fmt.Fprintln(w)

	modulesDir := cfg.ModulesDir
	if modulesDir == "" {
		if resolved, err := app.modulesDir(cfg, ""); err == nil {
			modulesDir = resolved + " " + SubtitleStyle.Render("(default)")
		}
	}
	oracleFile := cfg.OracleFile
	if oracleFile == "" {
		oracleFile = oracle.DefaultSource + " " + SubtitleStyle.Render("(default)")
	}
	tests := make([]string, len(cfg.Tests))
	for i, t := range cfg.Tests {
		tests[i] = string(t)
	}

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("modules_dir"), valueStyle.Render(modulesDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("oracle_file"), valueStyle.Render(oracleFile))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("isolation"), valueStyle.Render(string(cfg.Isolation)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("tests"), valueStyle.Render(strings.Join(tests, ", ")))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}
