// SPDX-License-Identifier: MPL-2.0

package contain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/plugcheck/plugcheck/internal/issue"
	"github.com/plugcheck/plugcheck/internal/probe"
)

type (
	// CommandFunc builds the command that starts one worker. The command's
	// stdin, stdout and stderr are set by Process.
	CommandFunc func(ctx context.Context) *exec.Cmd

	// Process runs probe jobs in supervised worker processes.
	Process struct {
		command CommandFunc
		stderr  io.Writer
		logger  *log.Logger
	}

	// ProcessOption configures a Process.
	ProcessOption func(*Process)
)

// WithStderr sets where worker stderr goes. The default is os.Stderr.
// Crash reports are diverted to the debug log.
func WithStderr(w io.Writer) ProcessOption {
	return func(p *Process) { p.stderr = w }
}

// WithLogger sets the supervisor's logger.
func WithLogger(l *log.Logger) ProcessOption {
	return func(p *Process) { p.logger = l }
}

// NewProcess returns a supervisor that starts workers with command.
func NewProcess(command CommandFunc, opts ...ProcessOption) *Process {
	p := &Process{command: command, stderr: os.Stderr, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SelfCommand returns a CommandFunc that re-executes the running binary as
// "<exe> internal probe [args...]".
func SelfCommand(args ...string) (CommandFunc, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating harness executable: %w", err)
	}
	argv := append([]string{"internal", "probe"}, args...)
	return func(ctx context.Context) *exec.Cmd {
		return exec.CommandContext(ctx, exe, argv...)
	}, nil
}

// Probe runs job, restarting the worker after each crash until the job is
// finished. Every crash is reported as a Crashed event for the entity or
// entry that was in flight; the crashed call itself is never retried.
func (p *Process) Probe(ctx context.Context, job probe.Job, emit probe.Sink) error {
	for attempt := 1; ; attempt++ {
		t := newTracker()
		resume := job.Resume
		sink := func(ev probe.Event) {
			t.observe(ev)
			if resume.Index > 0 && ev.Entry == resume.Entry &&
				(ev.Type == probe.EventEntry || ev.Type == probe.EventEnumerated) {
				return
			}
			emit(ev)
		}

		detail, err := p.runWorker(ctx, job, sink)
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if t.done {
			return nil
		}

		p.logger.Warn("Probe worker died", "module", job.Module, "attempt", attempt, "exit", detail)
		next, ok := t.recover(job, detail, emit)
		if !ok {
			return nil
		}
		job.Resume = next
	}
}

// runWorker runs one worker to completion. It returns a description of how
// the worker exited, or an error when it could not be started at all.
func (p *Process) runWorker(ctx context.Context, job probe.Job, sink probe.Sink) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encoding probe job: %w", err)
	}

	cmd := p.command(ctx)
	cmd.Stdin = bytes.NewReader(payload)
	stderr := &crashLog{out: p.stderr, logger: p.logger, module: job.Module}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("creating worker pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", issue.NewErrorContext().
			WithOperation("start probe worker").
			WithResource(cmd.Path).
			WithSuggestion("Run with --isolation inline to probe in-process").
			WithIssue(issue.WorkerStartFailedId).
			Wrap(err).
			BuildError()
	}
	p.logger.Debug("Started probe worker", "module", job.Module, "pid", cmd.Process.Pid,
		"resumeEntry", job.Resume.Entry, "resumeIndex", job.Resume.Index)

	readErr := ReadFrames(stdout, sink, func(line string) {
		p.logger.Debug("Module output", "module", job.Module, "line", line)
	})
	waitErr := cmd.Wait()
	stderr.flush()

	switch {
	case waitErr != nil && stderr.cause != "":
		return waitErr.Error() + ": " + stderr.cause, nil
	case waitErr != nil:
		return waitErr.Error(), nil
	case readErr != nil:
		return "reading worker output: " + readErr.Error(), nil
	default:
		return "exit status 0", nil
	}
}
