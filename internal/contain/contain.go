// SPDX-License-Identifier: MPL-2.0

// Package contain keeps faults in foreign code from taking the harness down.
//
// Process, the default boundary, runs each probe job in a re-executed
// worker and turns a dying worker into a Crashed outcome for whatever was in
// flight before resuming with a fresh worker. Inline runs the probe in the
// harness process and can only recover Go panics; it exists for debugging
// and tests.
package contain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plugcheck/plugcheck/internal/probe"
)

const (
	// ModeProcess runs probes in a supervised worker process.
	ModeProcess Mode = "process"
	// ModeInline runs probes in the harness process.
	ModeInline Mode = "inline"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid isolation mode")

type (
	// Mode selects a containment boundary.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	InvalidModeError struct {
		Value Mode
	}

	// Inline runs probe jobs in-process.
	Inline struct {
		runner *probe.Runner
	}
)

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid isolation mode %q (valid: %s, %s)", e.Value, ModeProcess, ModeInline)
}

// Unwrap returns ErrInvalidMode for errors.Is compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// ParseMode converts a user-supplied name into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if valid, errs := m.IsValid(); !valid {
		return "", errs[0]
	}
	return m, nil
}

// IsValid returns whether the Mode is one of the defined modes.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModeProcess, ModeInline:
		return true, nil
	default:
		return false, []error{&InvalidModeError{Value: m}}
	}
}

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// NewInline returns an in-process boundary around runner.
func NewInline(runner *probe.Runner) *Inline {
	return &Inline{runner: runner}
}

// Probe runs job in-process. Panics in foreign calls are recovered by the
// runner; hardware faults the Go runtime cannot turn into panics still
// terminate the process.
func (in *Inline) Probe(ctx context.Context, job probe.Job, emit probe.Sink) error {
	return in.runner.Run(ctx, job, emit)
}
