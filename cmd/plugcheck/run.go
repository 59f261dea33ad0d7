// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/plugcheck/plugcheck/internal/config"
	"github.com/plugcheck/plugcheck/internal/contain"
	"github.com/plugcheck/plugcheck/internal/harness"
	"github.com/plugcheck/plugcheck/internal/module"
	"github.com/plugcheck/plugcheck/internal/orchestrator"
)

type runOptions struct {
	tests      []string
	oracleFile string
	modulesDir string
	isolation  string
}

func newRunCommand(app *App) *cobra.Command {
	opts := &runOptions{}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the validation tests",
		Long: `Run the registered validation tests against the plugin modules.

Tests run one after another; a failing or crashing test never stops the
run. The exit status is 0 when every test passed and 1 otherwise.

Tests:
  descriptor-counts   Compare descriptor counts across module groups
  entity-validation   Create and release every registered entity
  module-reload       Load every module twice and compare counts

Examples:
  plugcheck run
  plugcheck run --test entity-validation --modules-dir ./build/filters
  plugcheck run --oracle ./oracle.toml --isolation inline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, app, opts)
		},
	}

	runCmd.Flags().StringArrayVarP(&opts.tests, "test", "t", nil, "test to run (repeatable; default from config)")
	runCmd.Flags().StringVar(&opts.oracleFile, "oracle", "", "registry file (.cue or .toml) replacing the embedded one")
	runCmd.Flags().StringVar(&opts.modulesDir, "modules-dir", "", "directory plugin modules are loaded from")
	runCmd.Flags().StringVar(&opts.isolation, "isolation", "", "containment boundary: process or inline")

	return runCmd
}

func runTests(cmd *cobra.Command, app *App, opts *runOptions) error {
	ctx := cmd.Context()

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.failWith(cmd, err)
	}
	logger := app.newLogger()

	names, err := selectTests(cfg, opts.tests)
	if err != nil {
		return app.failWith(cmd, err)
	}
	mode, err := selectIsolation(cfg, opts.isolation)
	if err != nil {
		return app.failWith(cmd, err)
	}
	reg, err := loadOracle(cfg, opts.oracleFile)
	if err != nil {
		return app.failWith(cmd, err)
	}
	dir, err := app.modulesDir(cfg, opts.modulesDir)
	if err != nil {
		return app.failWith(cmd, err)
	}
	prober, err := app.Probers(mode, logger)
	if err != nil {
		return app.failWith(cmd, err)
	}

	logger.Debug("Starting run", "oracle", reg.Source(), "version", reg.Version(),
		"modulesDir", dir, "isolation", mode, "tests", names)

	h := harness.New(prober, reg, module.Resolver{Dir: dir}, logger)
	orch := orchestrator.New(app.stdout,
		orchestrator.WithStyles(orchestratorStyles()),
		orchestrator.WithLogger(logger),
	)

	var reports []*harness.Report
	for _, name := range names {
		fn, ok := h.Test(name)
		if !ok {
			return app.failWith(cmd, fmt.Errorf("unknown test %q", name))
		}
		if err := orch.Register(name, func(ctx context.Context) (int, error) {
			rep, err := fn(ctx)
			if rep != nil {
				reports = append(reports, rep)
				for _, w := range rep.Warnings {
					logger.Warn(w, "test", name)
				}
			}
			if err != nil {
				return 0, err
			}
			return rep.Failed(), nil
		}); err != nil {
			return app.failWith(cmd, err)
		}
	}

	sum, runErr := orch.Run(ctx)
	renderFailures(app.stdout, reports)
	if runErr != nil {
		return app.failWith(cmd, runErr)
	}
	if code := sum.ExitCode(); !code.IsSuccess() {
		silence(cmd)
		return &ExitError{Code: code}
	}
	return nil
}

// selectTests returns the tests to run: the --test flags, else the config.
func selectTests(cfg *config.Config, flags []string) ([]string, error) {
	if len(flags) == 0 {
		names := make([]string, len(cfg.Tests))
		for i, n := range cfg.Tests {
			names[i] = string(n)
		}
		return names, nil
	}
	var names []string
	for _, f := range flags {
		name := config.TestName(f)
		if valid, errs := name.IsValid(); !valid {
			return nil, errs[0]
		}
		if !slices.Contains(names, f) {
			names = append(names, f)
		}
	}
	return names, nil
}

// selectIsolation returns the containment mode: the flag, else the config.
func selectIsolation(cfg *config.Config, flag string) (contain.Mode, error) {
	if flag == "" {
		flag = string(cfg.Isolation)
	}
	return contain.ParseMode(flag)
}

// renderFailures prints one table row per failed check.
func renderFailures(w io.Writer, reports []*harness.Report) {
	rows := [][]string{}
	for _, rep := range reports {
		for _, f := range rep.Failures {
			index, entity := "", ""
			if f.Index >= 0 {
				index = strconv.Itoa(f.Index)
				entity = f.Name
				if entity == "" {
					entity = f.ID.String()
				}
			}
			rows = append(rows, []string{rep.Test, f.Module, f.Symbol, index, entity, string(f.Failure), f.Message})
		}
	}
	if len(rows) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Failures"))
	fmt.Fprintln(w, newTable("Test", "Module", "Symbol", "#", "Entity", "Failure", "Message").Rows(rows...).Render())
}
