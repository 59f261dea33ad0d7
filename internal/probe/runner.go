// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/plugcheck/plugcheck/internal/descriptor"
	"github.com/plugcheck/plugcheck/internal/invoke"
	"github.com/plugcheck/plugcheck/internal/module"
	"github.com/plugcheck/plugcheck/pkg/abi"
)

// Runner executes probe jobs against real or simulated modules.
type Runner struct {
	loader module.Loader
	caller abi.Caller
	memory descriptor.Memory
	logger *log.Logger
}

// NewRunner returns a Runner. A nil logger discards output.
func NewRunner(loader module.Loader, caller abi.Caller, memory descriptor.Memory, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{loader: loader, caller: caller, memory: memory, logger: logger}
}

// NewNativeRunner returns a Runner bound to the operating system loader and
// the process address space.
func NewNativeRunner(logger *log.Logger) *Runner {
	return NewRunner(module.NewLoader(), abi.NativeCaller{}, descriptor.ForeignMemory{}, logger)
}

// Run executes job, sending every event to emit. It returns a non-nil error
// only when ctx is cancelled; probe failures are reported as events. The
// calling goroutine stays on one OS thread for the whole job.
func (r *Runner) Run(ctx context.Context, job Job, emit Sink) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	logger := r.logger.With("module", job.Module)
	logger.Info("Loading module", "path", job.Path)

	h, err := r.loader.Load(job.Path)
	if err != nil {
		logger.Error("Load failed", "error", err)
		emit(Event{Type: EventModuleError, Failure: Classify(err), Message: err.Error()})
		emit(Event{Type: EventDone})
		return nil
	}
	unload := sync.OnceFunc(func() {
		if cerr := h.Close(); cerr != nil {
			logger.Warn("Unload failed", "error", cerr)
			return
		}
		logger.Debug("Unloaded module")
	})
	defer unload()

	inv := invoke.New(r.caller, r.logger)
	for i := job.Resume.Entry; i < len(job.Entries); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(Event{Type: EventEntry, Entry: i})
		if err := r.runEntry(ctx, h, inv, job, i, emit); err != nil {
			return err
		}
	}

	emit(Event{Type: EventUnload})
	unload()
	emit(Event{Type: EventDone})
	return nil
}

func (r *Runner) runEntry(ctx context.Context, h module.Handle, inv *invoke.Invoker, job Job, i int, emit Sink) error {
	entry := job.Entries[i]
	logger := r.logger.With("module", job.Module, "kind", entry.Kind)
	entryErr := func(err error) {
		logger.Error("Entry failed", "error", err)
		emit(Event{Type: EventEntryError, Entry: i, Failure: Classify(err), Message: err.Error()})
	}

	export, err := h.Symbol(entry.Descriptors)
	if err != nil {
		logger.Warn("Descriptor export missing, counting 0", "symbol", entry.Descriptors, "error", err)
		emit(Event{Type: EventEnumerated, Entry: i, Missing: true})
		return nil
	}
	logger.Debug("Resolved symbol", "symbol", entry.Descriptors)

	var table *descriptor.Table
	err = guard("enumerate "+entry.Descriptors, func() error {
		status, begin, end := r.caller.Descriptors(export)
		if status.Failed() {
			return &QueryError{Symbol: entry.Descriptors, Status: status}
		}
		var derr error
		table, derr = descriptor.Decode(r.memory, descriptor.Range{Begin: begin, End: end}, entry.Kind)
		return derr
	})
	if err != nil {
		entryErr(err)
		return nil
	}
	logger.Info("Enumerated descriptors", "count", table.Len())
	emit(Event{Type: EventEnumerated, Entry: i, Count: table.Len()})

	if job.Records {
		for idx := range table.Len() {
			rec := table.At(idx)
			id := rec.ID
			emit(Event{Type: EventRecord, Entry: i, Index: idx, ID: &id, Name: rec.DisplayName()})
		}
	}

	if !job.Create || table.Len() == 0 {
		return nil
	}

	factory, err := h.Symbol(entry.Factory)
	if err != nil {
		entryErr(err)
		return nil
	}
	logger.Debug("Resolved symbol", "symbol", entry.Factory)

	for idx := job.Resume.start(i); idx < table.Len(); idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := table.At(idx)
		id := rec.ID
		if rec.NameErr != nil {
			logger.Debug("Unreadable display name", "id", id, "error", rec.NameErr)
		}
		if entry.Skips(id) {
			logger.Info("Skipping entity", "id", id)
			emit(Event{Type: EventSkipped, Entry: i, Index: idx, ID: &id, Name: rec.DisplayName()})
			continue
		}

		logger.Info("Creating instance", "name", rec.DisplayName())
		emit(Event{Type: EventBegin, Entry: i, Index: idx, ID: &id, Name: rec.DisplayName()})
		emit(r.create(inv, factory, entry, i, idx, rec))
	}
	return nil
}

func (r *Runner) create(inv *invoke.Invoker, factory uintptr, entry Entry, i, idx int, rec descriptor.Record) Event {
	id := rec.ID
	ev := Event{Type: EventCreated, Entry: i, Index: idx, ID: &id, Name: rec.DisplayName()}

	var out invoke.Outcome
	err := guard("create "+rec.DisplayName(), func() error {
		out = inv.Create(factory, rec.ID, entry.NeedsInput)
		return out.Err
	})
	ev.Status = out.Status
	ev.Released = out.Released
	ev.InputRemaining = out.InputRemaining
	if err != nil {
		ev.Failure = Classify(err)
		ev.Message = err.Error()
		r.logger.Error("Could not create entity", "name", rec.DisplayName(), "error", err)
	} else {
		r.logger.Info("Created instance", "name", rec.DisplayName())
	}
	return ev
}

// guard runs fn, turning a panic (including a memory fault surfaced as a
// runtime panic) into a *CrashError.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &CrashError{Op: op, Detail: fmt.Sprint(p)}
		}
	}()
	return fn()
}
