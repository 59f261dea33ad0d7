// SPDX-License-Identifier: MPL-2.0

// Package harness holds the registered validation tests. Each test turns
// registry entries into probe jobs, hands them to a containment boundary
// and classifies what comes back into the failure taxonomy.
package harness

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/plugcheck/plugcheck/internal/module"
	"github.com/plugcheck/plugcheck/internal/oracle"
	"github.com/plugcheck/plugcheck/internal/probe"
	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

const (
	// DescriptorCounts checks every descriptor-count group.
	DescriptorCounts = "descriptor-counts"
	// EntityValidation enumerates and creates every registry entity.
	EntityValidation = "entity-validation"
	// ModuleReload enumerates every module twice and compares counts.
	ModuleReload = "module-reload"
)

type (
	// Prober runs one probe job and streams its events. contain.Inline and
	// contain.Process implement it.
	Prober interface {
		Probe(ctx context.Context, job probe.Job, emit probe.Sink) error
	}

	// TestFunc runs one validation test.
	TestFunc func(ctx context.Context) (*Report, error)

	// Harness runs validation tests against one oracle.
	Harness struct {
		prober   Prober
		oracle   *oracle.Oracle
		resolver module.Resolver
		logger   *log.Logger
	}

	// Failure is one failed check.
	Failure struct {
		Module string
		Kind   abi.Kind
		Symbol string
		// Index is the record index, or -1 for entry and module level failures.
		Index   int
		ID      guid.GUID
		Name    string
		Failure probe.FailureKind
		Message string
	}

	// Report is the outcome of one test.
	Report struct {
		Test     string
		Checks   int
		Warnings []string
		Failures []Failure
	}
)

// Names returns every test in default run order.
func Names() []string {
	return []string{DescriptorCounts, EntityValidation, ModuleReload}
}

// New returns a Harness. A nil logger discards output.
func New(prober Prober, o *oracle.Oracle, resolver module.Resolver, logger *log.Logger) *Harness {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Harness{prober: prober, oracle: o, resolver: resolver, logger: logger}
}

// Test looks up a test by name.
func (h *Harness) Test(name string) (TestFunc, bool) {
	switch name {
	case DescriptorCounts:
		return h.DescriptorCounts, true
	case EntityValidation:
		return h.EntityValidation, true
	case ModuleReload:
		return h.ModuleReload, true
	default:
		return nil, false
	}
}

// Failed returns the number of failed checks.
func (r *Report) Failed() int { return len(r.Failures) }

// Passed returns the number of passed checks.
func (r *Report) Passed() int { return r.Checks - len(r.Failures) }

func (r *Report) pass() { r.Checks++ }

func (r *Report) fail(f Failure) {
	r.Checks++
	r.Failures = append(r.Failures, f)
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// String renders the failure on one line.
func (f Failure) String() string {
	where := f.Module
	if f.Symbol != "" {
		where += " " + f.Symbol
	}
	if f.Index >= 0 {
		name := f.Name
		if name == "" {
			name = f.ID.String()
		}
		where += fmt.Sprintf(" [%d] %s", f.Index, name)
	}
	return fmt.Sprintf("%s: %s: %s", where, f.Failure, f.Message)
}

// run hands one job to the prober and folds its events.
func (h *Harness) run(ctx context.Context, name string, entries []probe.Entry, create bool) (probe.Result, error) {
	job := probe.Job{
		Module:  name,
		Path:    h.resolver.Path(name),
		Entries: entries,
		Create:  create,
	}
	c := probe.NewCollector(job)
	err := h.prober.Probe(ctx, job, c.Emit)
	return c.Result(), err
}

func moduleFailure(name string, res probe.Result) Failure {
	return Failure{Module: name, Index: -1, Failure: res.Failure, Message: res.Message}
}

// entryFailure blames the factory once the descriptors were enumerated and
// the descriptor export before that.
func entryFailure(name string, er probe.EntryResult) Failure {
	symbol := er.Entry.Descriptors
	if er.Enumerated && er.Entry.Factory != "" {
		symbol = er.Entry.Factory
	}
	return Failure{
		Module:  name,
		Kind:    er.Entry.Kind,
		Symbol:  symbol,
		Index:   -1,
		Failure: er.Failure,
		Message: er.Message,
	}
}

// incomplete reports a job that ended without a done event and without a
// module failure explaining why.
func incomplete(res probe.Result) bool {
	return !res.Done && res.Failure == probe.FailureNone
}
