// SPDX-License-Identifier: MPL-2.0

// Package orchestrator runs a fixed list of named test functions one after
// another, prints a line per test and a closing summary, and fixes the
// process exit status.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/plugcheck/plugcheck/pkg/types"
)

const (
	// StateRunning accepts registrations and runs tests.
	StateRunning State = iota
	// StateReported is final: the summary was printed and the exit status
	// is fixed.
	StateReported
)

var (
	// ErrReported is returned when an orchestrator is used after its summary
	// was emitted.
	ErrReported = errors.New("orchestrator already reported")

	// ErrDuplicateTest is the sentinel error wrapped by DuplicateTestError.
	ErrDuplicateTest = errors.New("duplicate test name")
)

type (
	// State is the orchestrator lifecycle state.
	State int

	// Func is one test function. It returns the number of failures it
	// found; a non-nil error counts as at least one.
	Func func(ctx context.Context) (failures int, err error)

	// Clock supplies time for durations.
	Clock interface {
		Now() time.Time
		Since(t time.Time) time.Duration
	}

	// Styles renders the bracketed tags of console lines.
	Styles struct {
		Info    lipgloss.Style
		Test    lipgloss.Style
		Pass    lipgloss.Style
		Fail    lipgloss.Style
		Skip    lipgloss.Style
		Summary lipgloss.Style
	}

	// Result is the outcome of one test function.
	Result struct {
		Name     string
		Failures int
		Err      error
		// Panic holds the recovered value when the test function panicked.
		Panic    any
		Skipped  bool
		Duration time.Duration
	}

	// Summary aggregates every Result of a run.
	Summary struct {
		Results     []Result
		Duration    time.Duration
		Interrupted bool
	}

	// DuplicateTestError is returned when a name is registered twice.
	DuplicateTestError struct {
		Name string
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Orchestrator sequences test functions. It is not safe for concurrent
	// use.
	Orchestrator struct {
		out    io.Writer
		clock  Clock
		styles Styles
		logger *log.Logger
		names  []string
		funcs  map[string]Func
		state  State
	}

	realClock struct{}
)

// Error implements the error interface.
func (e *DuplicateTestError) Error() string {
	return fmt.Sprintf("test %q is already registered", e.Name)
}

// Unwrap returns ErrDuplicateTest for errors.Is compatibility.
func (e *DuplicateTestError) Unwrap() error { return ErrDuplicateTest }

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateReported:
		return "Reported"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PlainStyles renders tags without decoration.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Info: plain, Test: plain, Pass: plain, Fail: plain, Skip: plain, Summary: plain}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithStyles sets the tag styles.
func WithStyles(s Styles) Option {
	return func(o *Orchestrator) { o.styles = s }
}

// WithLogger sets the logger used for test errors and panics.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New returns an orchestrator that prints to out.
func New(out io.Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		out:    out,
		clock:  realClock{},
		styles: PlainStyles(),
		logger: log.New(io.Discard),
		funcs:  make(map[string]Func),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Register appends a test function. Tests run in registration order.
func (o *Orchestrator) Register(name string, fn Func) error {
	if o.state == StateReported {
		return ErrReported
	}
	if _, ok := o.funcs[name]; ok {
		return &DuplicateTestError{Name: name}
	}
	o.names = append(o.names, name)
	o.funcs[name] = fn
	return nil
}

// Run executes every registered test in order, prints the summary and moves
// to StateReported. A failing or panicking test never stops the run. When
// ctx is cancelled the remaining tests are skipped and the summary marks
// the run as interrupted.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if o.state == StateReported {
		return nil, ErrReported
	}

	sum := &Summary{Results: make([]Result, 0, len(o.names))}
	start := o.clock.Now()
	o.printf(o.styles.Info, "INFO", "Running %d registered test(s)...", len(o.names))

	for _, name := range o.names {
		if ctx.Err() != nil {
			sum.Interrupted = true
			sum.Results = append(sum.Results, Result{Name: name, Skipped: true})
			o.printf(o.styles.Skip, "SKIP", "%s", name)
			continue
		}
		o.printf(o.styles.Test, "TEST", "Running %s...", name)
		res := o.runOne(ctx, name, o.funcs[name])
		sum.Results = append(sum.Results, res)
		if res.Failed() {
			o.printf(o.styles.Fail, "FAIL", "%s failed with code %d", name, res.Code())
		} else {
			o.printf(o.styles.Pass, "PASS", "%s", name)
		}
	}
	sum.Duration = o.clock.Since(start)

	_, _ = fmt.Fprintln(o.out)
	o.printf(o.styles.Summary, "SUMMARY", "%s", sum.Line())
	o.state = StateReported

	if sum.Interrupted {
		return sum, fmt.Errorf("test run interrupted: %w", ctx.Err())
	}
	return sum, nil
}

func (o *Orchestrator) runOne(ctx context.Context, name string, fn Func) (res Result) {
	res.Name = name
	start := o.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Panic = r
			o.logger.Error("Test panicked", "test", name, "panic", r)
		}
		res.Duration = o.clock.Since(start)
	}()

	res.Failures, res.Err = fn(ctx)
	if res.Err != nil {
		o.logger.Error("Test returned an error", "test", name, "error", res.Err)
	}
	return res
}

func (o *Orchestrator) printf(style lipgloss.Style, tag, format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, "%s %s\n", style.Render("["+tag+"]"), fmt.Sprintf(format, args...))
}

// Failed reports whether the test counts as failed.
func (r Result) Failed() bool {
	return r.Failures > 0 || r.Err != nil || r.Panic != nil
}

// Code is the value printed on a FAIL line: the failure count, raised to 1
// when the test errored or panicked without counting anything.
func (r Result) Code() int {
	if r.Failures == 0 && (r.Err != nil || r.Panic != nil) {
		return 1
	}
	return r.Failures
}

// Failed returns the number of failed tests.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Failures returns the cumulative failure count over all tests.
func (s *Summary) Failures() int {
	n := 0
	for _, r := range s.Results {
		if r.Failed() {
			n += r.Code()
		}
	}
	return n
}

// ExitCode is ExitSuccess when every test ran and none failed, ExitFailure
// otherwise.
func (s *Summary) ExitCode() types.ExitCode {
	if s.Interrupted || s.Failures() > 0 {
		return types.ExitFailure
	}
	return types.ExitSuccess
}

// Line renders the summary sentence.
func (s *Summary) Line() string {
	if s.Interrupted {
		skipped := 0
		for _, r := range s.Results {
			if r.Skipped {
				skipped++
			}
		}
		return fmt.Sprintf("Interrupted: %d test(s) failed, %d skipped.", s.Failed(), skipped)
	}
	if failed := s.Failed(); failed > 0 {
		return fmt.Sprintf("%d test(s) failed, %d failure(s) in %s.", failed, s.Failures(), s.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("All tests passed in %s.", s.Duration.Round(time.Millisecond))
}

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }
