// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/plugcheck/plugcheck/internal/config"
	"github.com/plugcheck/plugcheck/internal/contain"
	"github.com/plugcheck/plugcheck/internal/harness"
	"github.com/plugcheck/plugcheck/internal/oracle"
	"github.com/plugcheck/plugcheck/internal/probe"
)

type (
	// ProberFactory builds the containment boundary probe jobs run behind.
	ProberFactory func(mode contain.Mode, logger *log.Logger) (harness.Prober, error)

	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every Cobra handler receives an App reference.
	App struct {
		Config     config.Provider
		Probers    ProberFactory
		Executable func() (string, error)
		stdout     io.Writer
		stderr     io.Writer

		// Persistent flag values, bound by NewRootCommand.
		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     config.Provider
		Probers    ProberFactory
		Executable func() (string, error)
		Stdout     io.Writer
		Stderr     io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Executable == nil {
		deps.Executable = os.Executable
	}

	app := &App{
		Config:     deps.Config,
		Probers:    deps.Probers,
		Executable: deps.Executable,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
	if app.Probers == nil {
		app.Probers = app.nativeProbers
	}
	return app, nil
}

// nativeProbers builds a boundary around the operating system loader.
// Process workers are this binary re-executed as "internal probe".
func (a *App) nativeProbers(mode contain.Mode, logger *log.Logger) (harness.Prober, error) {
	switch mode {
	case contain.ModeInline:
		return contain.NewInline(probe.NewNativeRunner(logger)), nil
	case contain.ModeProcess:
		var args []string
		if a.verbose {
			args = append(args, "--verbose")
		}
		command, err := contain.SelfCommand(args...)
		if err != nil {
			return nil, err
		}
		return contain.NewProcess(command, contain.WithLogger(logger), contain.WithStderr(a.stderr)), nil
	default:
		_, errs := mode.IsValid()
		return nil, errs[0]
	}
}

// loadConfig loads configuration honoring --config. The verbose flag and
// the config file's ui.verbose are merged into a.verbose.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, err
	}
	if cfg.UI.Verbose {
		a.verbose = true
	}
	return cfg, nil
}

// newLogger returns the logger passed down to every layer.
func (a *App) newLogger() *log.Logger {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// loadOracle returns the registry named by override, by the config file,
// or the embedded default, in that order.
func loadOracle(cfg *config.Config, override string) (*oracle.Oracle, error) {
	path := override
	if path == "" && cfg != nil {
		path = cfg.OracleFile
	}
	if path == "" {
		return oracle.Default()
	}
	return oracle.Load(path)
}

// modulesDir returns the directory module names are resolved against.
func (a *App) modulesDir(cfg *config.Config, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	exe, err := a.Executable()
	if err != nil {
		return "", fmt.Errorf("locating plugcheck executable: %w", err)
	}
	return cfg.ResolveModulesDir(exe), nil
}
