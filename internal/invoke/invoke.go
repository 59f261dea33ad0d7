// SPDX-License-Identifier: MPL-2.0

// Package invoke calls module factory entry points and owns the lifetime
// of what they return.
package invoke

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/plugcheck/plugcheck/internal/refobj"
	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

var (
	// ErrCreationFailed is returned when a factory reports a failing status.
	ErrCreationFailed = errors.New("entity creation failed")
	// ErrNullResultOnSuccess is returned when a factory reports success but
	// hands back no object.
	ErrNullResultOnSuccess = errors.New("factory succeeded without a result")
)

type (
	// Invoker creates entities through a Caller.
	Invoker struct {
		caller abi.Caller
		logger *log.Logger
	}

	// Outcome is the result of one factory call.
	Outcome struct {
		ID     guid.GUID
		Status abi.Status
		// Created is the pointer the factory returned, already released.
		Created uintptr
		// Released reports whether Release was issued on Created.
		Released bool
		// ReleaseCount is the count the created object reported on release.
		ReleaseCount uint32
		// InputSupplied reports whether an input object was passed.
		InputSupplied bool
		// InputRemaining is the input object's count after the harness
		// dropped its own reference. Non-zero means the module still holds it.
		InputRemaining int32
		// Err is nil on success, or wraps ErrCreationFailed or
		// ErrNullResultOnSuccess.
		Err error
	}

	// CreationError is returned when a factory reports a failing status.
	CreationError struct {
		ID       guid.GUID
		Status   abi.Status
		Released bool
	}

	// NullResultError is returned when a factory succeeds with a null result.
	NullResultError struct {
		ID     guid.GUID
		Status abi.Status
	}
)

// Error implements the error interface.
func (e *CreationError) Error() string {
	msg := fmt.Sprintf("creating %s returned %s", e.ID, e.Status)
	if e.Released {
		msg += " (partial object released)"
	}
	return msg
}

// Unwrap returns ErrCreationFailed for errors.Is compatibility.
func (e *CreationError) Unwrap() error { return ErrCreationFailed }

// Error implements the error interface.
func (e *NullResultError) Error() string {
	return fmt.Sprintf("creating %s returned %s with a null object", e.ID, e.Status)
}

// Unwrap returns ErrNullResultOnSuccess for errors.Is compatibility.
func (e *NullResultError) Unwrap() error { return ErrNullResultOnSuccess }

// New returns an Invoker. A nil logger discards output.
func New(caller abi.Caller, logger *log.Logger) *Invoker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Invoker{caller: caller, logger: logger}
}

// Create calls factory for id. When needsInput is set a fresh reference
// counted object is supplied and the harness's reference to it is dropped
// before returning. A non-null result is released exactly once whatever the
// status was.
func (inv *Invoker) Create(factory uintptr, id guid.GUID, needsInput bool) Outcome {
	out := Outcome{ID: id}

	var input *refobj.Object
	var inputPtr uintptr
	if needsInput {
		input = refobj.New()
		inputPtr = input.Ptr()
		out.InputSupplied = true
	}

	out.Status, out.Created = inv.caller.Create(factory, id, inputPtr)

	if out.Created != 0 {
		out.ReleaseCount = inv.caller.Release(out.Created)
		out.Released = true
	}
	if input != nil {
		input.Release()
		out.InputRemaining = input.Count()
	}

	switch {
	case out.Status.Failed():
		out.Err = &CreationError{ID: id, Status: out.Status, Released: out.Released}
	case out.Created == 0:
		out.Err = &NullResultError{ID: id, Status: out.Status}
	}

	inv.logger.Debug("factory call",
		"id", id,
		"status", out.Status,
		"released", out.Released,
		"inputRemaining", out.InputRemaining,
	)
	return out
}
