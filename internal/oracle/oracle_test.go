// SPDX-License-Identifier: MPL-2.0

package oracle

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/plugcheck/plugcheck/internal/issue"
	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	o, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if o.Version() != "1.0" || o.Source() != DefaultSource {
		t.Errorf("Version() = %q, Source() = %q", o.Version(), o.Source())
	}

	signal, ok := o.Module("signal")
	if !ok {
		t.Fatal("default oracle has no signal module")
	}
	filter := signal.Entries[0]
	if filter.Kind != abi.KindFilter || filter.Expected != 11 || !filter.NeedsInput {
		t.Errorf("signal filter entry = %+v", filter)
	}
	if filter.Descriptors != "do_get_filter_descriptors" || filter.Factory != "do_create_filter" {
		t.Errorf("symbols not defaulted: %q %q", filter.Descriptors, filter.Factory)
	}

	stochastic, _ := o.Module("stochastic")
	if got := stochastic.Entries[0].Factory; got != "do_solve_generic" {
		t.Errorf("solver factory = %q", got)
	}

	if got := len(o.Entries()); got != 19 {
		t.Errorf("len(Entries()) = %d, want 19", got)
	}

	groups := o.Groups()
	if len(groups) != 6 {
		t.Fatalf("len(Groups()) = %d, want 6", len(groups))
	}
	metric := groups[5]
	if metric.Kind != abi.KindMetric || metric.Symbol != "do_get_metric_descriptors" {
		t.Errorf("metric group = %+v", metric)
	}
	if want := []string{"data", "icarus", "metric"}; !slices.Equal(metric.Modules(), want) {
		t.Errorf("Modules() = %v, want %v", metric.Modules(), want)
	}
	if metric.Expected["metric"] != 21 {
		t.Errorf("metric count = %d", metric.Expected["metric"])
	}
}

func TestAccessorsCopy(t *testing.T) {
	t.Parallel()

	o, err := Load("testdata/custom.toml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	mods := o.Modules()
	mods[0].Entries[0].Skip[0] = guid.Nil
	mods[0].Name = "changed"
	g := o.Groups()
	g[0].Expected["signal"] = 99

	again, _ := o.Module("signal")
	if again.Entries[0].Skip[0].IsZero() {
		t.Error("Modules() leaked internal skip list")
	}
	if o.Groups()[0].Expected["signal"] != 11 {
		t.Error("Groups() leaked internal map")
	}
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()

	o, err := Load("testdata/custom.toml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if o.Description() != "Single filter module" {
		t.Errorf("Description() = %q", o.Description())
	}

	pairs := o.Entries()
	if len(pairs) != 2 {
		t.Fatalf("len(Entries()) = %d", len(pairs))
	}
	filter := pairs[0].Entry
	if pairs[0].Module != "signal" || filter.Expected != 11 || !filter.NeedsInput {
		t.Errorf("filter pair = %+v", pairs[0])
	}
	want := guid.MustParse("{6A2D3E51-0C7B-4F8E-9A11-2B3C4D5E6F70}")
	if len(filter.Skip) != 1 || filter.Skip[0] != want {
		t.Errorf("Skip = %v", filter.Skip)
	}

	sig := pairs[1].Entry
	if sig.Factory != "do_create_signal_v2" || sig.NeedsInput {
		t.Errorf("signal entry = %+v", sig)
	}

	pe := filter.Probe()
	if pe.Kind != abi.KindFilter || !pe.Skips(want) || pe.Factory != "do_create_filter" {
		t.Errorf("Probe() = %+v", pe)
	}

	g := o.Groups()[0]
	if g.Symbol != "do_get_filter_descriptors" || g.Entry().Descriptors != g.Symbol || g.Entry().Factory != "" {
		t.Errorf("group = %+v", g)
	}
}

func TestLoadCUE(t *testing.T) {
	t.Parallel()

	o, err := Load("testdata/custom.cue")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	m, ok := o.Module("libsignal.so")
	if !ok || len(m.Probes()) != 1 || m.Probes()[0].Kind != abi.KindMetric {
		t.Errorf("module = %+v", m)
	}
	if len(o.Groups()) != 0 {
		t.Errorf("Groups() = %v, want none", o.Groups())
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     string
		sentinel error
		contains string
	}{
		{
			name:     "no modules",
			filename: "o.cue",
			data:     `version: "1.0", modules: []`,
			sentinel: ErrEmptyRegistry,
		},
		{
			name:     "modules without entries",
			filename: "o.toml",
			data:     "version = \"1.0\"\n[[modules]]\nname = \"signal\"\nentries = []\n",
			sentinel: ErrEmptyRegistry,
		},
		{
			name:     "duplicate module",
			filename: "o.cue",
			data: `version: "1.0"
modules: [
	{name: "a", entries: [{kind: "filter", expected: 1}]},
	{name: "a", entries: [{kind: "signal", expected: 1}]},
]`,
			sentinel: ErrDuplicateModule,
		},
		{
			name:     "reserved module name",
			filename: "o.cue",
			data:     `version: "1.0", modules: [{name: "aux", entries: [{kind: "filter", expected: 1}]}]`,
			sentinel: ErrReservedModuleName,
		},
		{
			name:     "unknown kind",
			filename: "o.cue",
			data:     `version: "1.0", modules: [{name: "a", entries: [{kind: "widget", expected: 1}]}]`,
			contains: "kind",
		},
		{
			name:     "negative count in TOML",
			filename: "o.toml",
			data:     "version = \"1.0\"\n[[modules]]\nname = \"a\"\n[[modules.entries]]\nkind = \"filter\"\nexpected = -1\n",
			contains: "expected",
		},
		{
			name:     "unknown field",
			filename: "o.cue",
			data:     `version: "1.0", modules: [{name: "a", entries: [{kind: "filter", expected: 1, count: 2}]}]`,
			contains: "count",
		},
		{
			name:     "bad guid",
			filename: "o.cue",
			data:     `version: "1.0", modules: [{name: "a", entries: [{kind: "filter", expected: 1, skip: ["nope"]}]}]`,
			contains: "skip",
		},
		{
			name:     "TOML syntax",
			filename: "o.toml",
			data:     "version = \n",
			contains: "o.toml:1",
		},
		{
			name:     "unsupported extension",
			filename: "o.yaml",
			data:     "version: 1",
			sentinel: ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.data), tt.filename)
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Operation != "load oracle" || !ae.HasSuggestions() {
				t.Errorf("error is not an actionable load error: %#v", err)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error = %v, want mention of %q", err, tt.contains)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load("testdata/nope.cue")
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Operation != "read oracle" {
		t.Errorf("Load() error = %v", err)
	}
}
