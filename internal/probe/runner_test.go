// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/plugcheck/plugcheck/internal/descriptor"
	"github.com/plugcheck/plugcheck/internal/testutil/plugintest"
	"github.com/plugcheck/plugcheck/pkg/abi"
)

const signalPath = "/plugins/libsignal.so"

func filterEntry() Entry {
	return Entry{
		Kind:        abi.KindFilter,
		Descriptors: "do_get_filter_descriptors",
		Factory:     "do_create_filter",
		NeedsInput:  true,
	}
}

func run(t *testing.T, w *plugintest.World, job Job) Result {
	t.Helper()

	c := NewCollector(job)
	if err := NewRunner(w, w, w.Memory(), nil).Run(context.Background(), job, c.Emit); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	res := c.Result()
	if !res.Done {
		t.Fatal("job did not report done")
	}
	if w.OpenHandles() != 0 {
		t.Errorf("%d module handles left open", w.OpenHandles())
	}
	return res
}

func TestSignalFiltersAllCreated(t *testing.T) {
	t.Parallel()

	w := plugintest.NewWorld()
	w.Add(signalPath, plugintest.NewPlugin(
		plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, plugintest.Named(11, "signal filter")...),
		plugintest.WithFactory("do_create_filter", plugintest.Succeed()),
	))

	res := run(t, w, Job{Module: "signal", Path: signalPath, Entries: []Entry{filterEntry()}, Create: true})

	er := res.Entries[0]
	if er.Count != 11 || er.Failed() {
		t.Fatalf("entry = %+v", er)
	}
	if er.Created() != 11 {
		t.Errorf("Created() = %d, want 11", er.Created())
	}
	calls := w.Calls()
	if len(calls) != 11 {
		t.Fatalf("factory calls = %d, want 11", len(calls))
	}
	for i, c := range calls {
		if c.ID != plugintest.ID(i) || c.Input == 0 {
			t.Errorf("call %d = %+v", i, c)
		}
	}
	if w.Outstanding() != 0 || w.DoubleReleases() != 0 {
		t.Errorf("outstanding = %d double = %d", w.Outstanding(), w.DoubleReleases())
	}
	if w.Loads(signalPath) != 1 {
		t.Errorf("loads = %d, want 1", w.Loads(signalPath))
	}
}

func TestMissingDescriptorExportCountsZero(t *testing.T) {
	t.Parallel()

	w := plugintest.NewWorld()
	w.Add("/plugins/libmetric.so", plugintest.NewPlugin(
		plugintest.WithFactory("do_create_metric", plugintest.Succeed()),
	))

	res := run(t, w, Job{
		Module: "metric",
		Path:   "/plugins/libmetric.so",
		Entries: []Entry{{
			Kind:        abi.KindMetric,
			Descriptors: "do_get_metric_descriptors",
			Factory:     "do_create_metric",
			NeedsInput:  true,
		}},
		Create: true,
	})

	er := res.Entries[0]
	if !er.Enumerated || !er.Missing || er.Count != 0 || er.Failed() {
		t.Errorf("entry = %+v, want missing with count 0 and no failure", er)
	}
	if len(w.Calls()) != 0 {
		t.Errorf("factory called %d times for a missing export", len(w.Calls()))
	}
}

func TestCreationOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		factory      plugintest.Factory
		wantFailure  FailureKind
		wantReleased bool
	}{
		{name: "success", factory: plugintest.Succeed(), wantReleased: true},
		{name: "failure with null", factory: plugintest.Fail(abi.StatusFail), wantFailure: FailureCreationFailed},
		{name: "failure with object", factory: plugintest.FailWithObject(abi.StatusInvalidArg), wantFailure: FailureCreationFailed, wantReleased: true},
		{name: "null on success", factory: plugintest.NullOnSuccess(), wantFailure: FailureNullResultOnSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := plugintest.NewWorld()
			w.Add(signalPath, plugintest.NewPlugin(
				plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, plugintest.Named(2, "f")...),
				plugintest.WithFactory("do_create_filter", tt.factory),
			))

			res := run(t, w, Job{Module: "signal", Path: signalPath, Entries: []Entry{filterEntry()}, Create: true})

			crs := res.Entries[0].Creations
			if len(crs) != 2 {
				t.Fatalf("creations = %d, want 2", len(crs))
			}
			for _, cr := range crs {
				if cr.Failure != tt.wantFailure {
					t.Errorf("record %d failure = %q, want %q", cr.Index, cr.Failure, tt.wantFailure)
				}
				if cr.Released != tt.wantReleased {
					t.Errorf("record %d released = %v, want %v", cr.Index, cr.Released, tt.wantReleased)
				}
			}
			if w.Outstanding() != 0 || w.DoubleReleases() != 0 {
				t.Errorf("outstanding = %d double = %d", w.Outstanding(), w.DoubleReleases())
			}
		})
	}
}

func TestEntryLevelFailures(t *testing.T) {
	t.Parallel()

	stride := uintptr(abi.KindSignal.Stride())
	tests := []struct {
		name  string
		table plugintest.Table
		noFac bool
		want  FailureKind
	}{
		{
			name:  "truncated range",
			table: plugintest.Table{Kind: abi.KindSignal, Range: &descriptor.Range{Begin: 0x5000, End: 0x5000 + 3*stride - 4}},
			want:  FailureMalformedRange,
		},
		{
			name:  "one null bound",
			table: plugintest.Table{Kind: abi.KindSignal, Range: &descriptor.Range{Begin: 0x5000}},
			want:  FailureMalformedRange,
		},
		{
			name:  "failing status",
			table: plugintest.Table{Kind: abi.KindSignal, Status: abi.StatusFail},
			want:  FailureDescriptorQueryFailed,
		},
		{
			name:  "unmapped range",
			table: plugintest.Table{Kind: abi.KindSignal, Range: &descriptor.Range{Begin: 0x5000, End: 0x5000 + stride}},
			want:  FailureCrashed,
		},
		{
			name:  "export panics",
			table: plugintest.Table{Kind: abi.KindSignal, Panic: "illegal instruction"},
			want:  FailureCrashed,
		},
		{
			name:  "factory missing",
			table: plugintest.Table{Kind: abi.KindSignal, Records: plugintest.IDs(2)},
			noFac: true,
			want:  FailureSymbolNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := []plugintest.PluginOption{
				plugintest.WithRawTable("do_get_signal_descriptors", tt.table),
				plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, plugintest.IDs(1)...),
				plugintest.WithFactory("do_create_filter", plugintest.Succeed()),
			}
			if !tt.noFac {
				opts = append(opts, plugintest.WithFactory("do_create_signal", plugintest.Succeed()))
			}
			w := plugintest.NewWorld()
			w.Add(signalPath, plugintest.NewPlugin(opts...))

			res := run(t, w, Job{
				Module: "signal",
				Path:   signalPath,
				Entries: []Entry{
					{Kind: abi.KindSignal, Descriptors: "do_get_signal_descriptors", Factory: "do_create_signal"},
					filterEntry(),
				},
				Create: true,
			})

			if got := res.Entries[0].Failure; got != tt.want {
				t.Errorf("entry failure = %q (%s), want %q", got, res.Entries[0].Message, tt.want)
			}
			if next := res.Entries[1]; next.Failed() || next.Created() != 1 {
				t.Errorf("following entry = %+v, want one clean creation", next)
			}
		})
	}
}

func TestCrashIsLocalToOneEntity(t *testing.T) {
	t.Parallel()

	w := plugintest.NewWorld()
	w.Add(signalPath, plugintest.NewPlugin(
		plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, plugintest.IDs(4)...),
		plugintest.WithFactory("do_create_filter", plugintest.PanicOn(plugintest.ID(1))),
	))

	res := run(t, w, Job{Module: "signal", Path: signalPath, Entries: []Entry{filterEntry()}, Create: true})

	crs := res.Entries[0].Creations
	if len(crs) != 4 {
		t.Fatalf("creations = %d, want 4", len(crs))
	}
	for i, cr := range crs {
		want := FailureNone
		if i == 1 {
			want = FailureCrashed
		}
		if cr.Failure != want {
			t.Errorf("record %d failure = %q, want %q", i, cr.Failure, want)
		}
	}
}

func TestModuleNotFound(t *testing.T) {
	t.Parallel()

	res := run(t, plugintest.NewWorld(), Job{Module: "ghost", Path: "/plugins/libghost.so", Entries: []Entry{filterEntry()}, Create: true})
	if res.Failure != FailureModuleNotFound {
		t.Errorf("module failure = %q, want ModuleNotFound", res.Failure)
	}
	if res.Entries[0].Enumerated {
		t.Error("entry enumerated without a module")
	}
}

func TestSkipListAndResume(t *testing.T) {
	t.Parallel()

	w := plugintest.NewWorld()
	w.Add(signalPath, plugintest.NewPlugin(
		plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, plugintest.IDs(3)...),
		plugintest.WithTable("do_get_signal_descriptors", abi.KindSignal, plugintest.IDs(6)...),
		plugintest.WithFactory("do_create_filter", plugintest.Succeed()),
		plugintest.WithFactory("do_create_signal", plugintest.Succeed()),
	))

	signals := Entry{Kind: abi.KindSignal, Descriptors: "do_get_signal_descriptors", Factory: "do_create_signal"}
	signals.Skip = append(signals.Skip, plugintest.ID(4))

	res := run(t, w, Job{
		Module:  "signal",
		Path:    signalPath,
		Entries: []Entry{filterEntry(), signals},
		Create:  true,
		Resume:  Cursor{Entry: 1, Index: 3},
	})

	if res.Entries[0].Enumerated {
		t.Error("entry before the resume cursor was processed")
	}
	crs := res.Entries[1].Creations
	if len(crs) != 3 {
		t.Fatalf("creations = %d, want 3", len(crs))
	}
	if crs[0].Index != 3 || crs[1].Index != 4 || !crs[1].Skipped || crs[2].Index != 5 {
		t.Errorf("creations = %+v", crs)
	}
	if len(w.Calls()) != 2 {
		t.Errorf("factory calls = %d, want 2", len(w.Calls()))
	}
}

func TestEnumerateOnly(t *testing.T) {
	t.Parallel()

	w := plugintest.NewWorld()
	w.Add(signalPath, plugintest.NewPlugin(
		plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, plugintest.IDs(11)...),
	))

	res := run(t, w, Job{Module: "signal", Path: signalPath, Entries: []Entry{filterEntry()}})
	if res.Entries[0].Count != 11 || res.Entries[0].Failed() {
		t.Errorf("entry = %+v", res.Entries[0])
	}
	if len(w.Calls()) != 0 {
		t.Errorf("factory called during enumeration-only job")
	}
}

func TestRecordsListing(t *testing.T) {
	t.Parallel()

	w := plugintest.NewWorld()
	recs := plugintest.Named(2, "lowpass")
	recs = append(recs, descriptor.Record{ID: plugintest.ID(2)})
	w.Add(signalPath, plugintest.NewPlugin(
		plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, recs...),
	))

	res := run(t, w, Job{Module: "signal", Path: signalPath, Entries: []Entry{filterEntry()}, Records: true})
	got := res.Entries[0].Records
	if len(got) != 3 {
		t.Fatalf("records = %+v", got)
	}
	if got[1].Index != 1 || got[1].ID != plugintest.ID(1) || got[1].Name != "lowpass 1" {
		t.Errorf("record 1 = %+v", got[1])
	}
	if got[2].Name != plugintest.ID(2).String() {
		t.Errorf("unnamed record name = %q, want GUID text", got[2].Name)
	}
	if len(w.Calls()) != 0 {
		t.Error("listing must not call factories")
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	w := plugintest.NewWorld()
	w.Add(signalPath, plugintest.NewPlugin(
		plugintest.WithTable("do_get_filter_descriptors", abi.KindFilter, plugintest.IDs(2)...),
		plugintest.WithFactory("do_create_filter", plugintest.Succeed()),
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRunner(w, w, w.Memory(), nil).Run(ctx, Job{Path: signalPath, Entries: []Entry{filterEntry()}, Create: true}, func(Event) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if w.OpenHandles() != 0 {
		t.Errorf("module left loaded after cancellation")
	}
}
