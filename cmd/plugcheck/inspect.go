// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/plugcheck/plugcheck/internal/module"
	"github.com/plugcheck/plugcheck/internal/oracle"
	"github.com/plugcheck/plugcheck/internal/probe"
	"github.com/plugcheck/plugcheck/pkg/abi"
)

type inspectOptions struct {
	kind       string
	symbol     string
	oracleFile string
	modulesDir string
	isolation  string
}

func newInspectCommand(app *App) *cobra.Command {
	opts := &inspectOptions{}
	inspectCmd := &cobra.Command{
		Use:   "inspect <module>",
		Short: "Print the descriptor table a module exports",
		Long: `Load a module, call one descriptor export and print every decoded
record: index, GUID and display name. No entity is created.

The module is a registry name (resolved against the modules directory
with the platform's library naming) or a path to a library file. When the
registry declares an entry of that kind for the module, its descriptor
export is used and the count is compared with the registry's.

Kinds: filter, signal, model, discrete_model, approximator, solver, metric

Examples:
  plugcheck inspect signal --kind filter
  plugcheck inspect ./build/libmetric.so --kind metric
  plugcheck inspect model --kind model --symbol do_get_model_descriptors_v2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectModule(cmd, app, args[0], opts)
		},
	}

	inspectCmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "entity kind whose descriptor layout to decode (required)")
	inspectCmd.Flags().StringVar(&opts.symbol, "symbol", "", "descriptor export to call (default: the registry's, else the kind's conventional export)")
	inspectCmd.Flags().StringVar(&opts.oracleFile, "oracle", "", "validation registry file (CUE or TOML)")
	inspectCmd.Flags().StringVar(&opts.modulesDir, "modules-dir", "", "directory plugin modules are loaded from")
	inspectCmd.Flags().StringVar(&opts.isolation, "isolation", "", "containment boundary: process or inline")
	_ = inspectCmd.MarkFlagRequired("kind")

	return inspectCmd
}

func inspectModule(cmd *cobra.Command, app *App, name string, opts *inspectOptions) error {
	ctx := cmd.Context()

	kind, err := abi.ParseKind(opts.kind)
	if err != nil {
		return app.failWith(cmd, err)
	}
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.failWith(cmd, err)
	}
	logger := app.newLogger()

	symbol, expected := opts.symbol, -1
	if reg, err := loadOracle(cfg, opts.oracleFile); err != nil {
		if opts.oracleFile != "" {
			return app.failWith(cmd, err)
		}
		logger.Debug("Registry unavailable, using conventional exports", "error", err)
	} else if e, ok := registryEntry(reg, name, kind); ok {
		if symbol == "" {
			symbol = e.Descriptors
		}
		if symbol == e.Descriptors {
			expected = e.Expected
		}
	}
	if symbol == "" {
		symbol = kind.DescriptorSymbol()
	}
	mode, err := selectIsolation(cfg, opts.isolation)
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

	job := probe.Job{
		Module:  name,
		Path:    module.Resolver{Dir: dir}.Path(name),
		Entries: []probe.Entry{{Kind: kind, Descriptors: symbol}},
		Records: true,
	}
	c := probe.NewCollector(job)
	if err := prober.Probe(ctx, job, c.Emit); err != nil {
		return app.failWith(cmd, err)
	}
	res := c.Result()

	if res.Failure != probe.FailureNone {
		return app.failWith(cmd, fmt.Errorf("%s: %s", res.Failure, res.Message))
	}
	er := res.Entries[0]
	if er.Failure != probe.FailureNone {
		return app.failWith(cmd, fmt.Errorf("%s: %s: %s", symbol, er.Failure, er.Message))
	}

	fmt.Fprintf(app.stdout, "%s %s %s\n", TitleStyle.Render(name), CmdStyle.Render(symbol), SubtitleStyle.Render("("+job.Path+")"))
	if er.Missing {
		fmt.Fprintln(app.stdout, WarningStyle.Render(fmt.Sprintf("%s is not exported; the module has 0 %s descriptors", symbol, kind)))
		return nil
	}

	t := newTable("#", "GUID", "Name")
	for _, rec := range er.Records {
		t.Row(strconv.Itoa(rec.Index), rec.ID.String(), rec.Name)
	}
	fmt.Fprintln(app.stdout, t.Render())
	fmt.Fprintln(app.stdout, SuccessStyle.Render(fmt.Sprintf("%d %s descriptor(s), stride %d bytes", er.Count, kind, kind.Stride())))
	switch {
	case expected < 0:
	case er.Count == expected:
		fmt.Fprintln(app.stdout, SuccessStyle.Render("matches the registry"))
	default:
		fmt.Fprintln(app.stdout, WarningStyle.Render(fmt.Sprintf("the registry expects %d", expected)))
	}
	return nil
}

// registryEntry finds the registry entry of kind for module name. Model and
// discrete model entries share a descriptor export, so either matches the
// other.
func registryEntry(reg *oracle.Oracle, name string, kind abi.Kind) (oracle.Entry, bool) {
	m, ok := reg.Module(name)
	if !ok {
		return oracle.Entry{}, false
	}
	for _, e := range m.Entries {
		if e.Kind == kind {
			return e, true
		}
	}
	for _, e := range m.Entries {
		if e.Kind.DescriptorSymbol() == kind.DescriptorSymbol() {
			return e, true
		}
	}
	return oracle.Entry{}, false
}
