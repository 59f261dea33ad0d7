// SPDX-License-Identifier: MPL-2.0

package contain

import (
	"github.com/plugcheck/plugcheck/internal/probe"
)

// tracker follows a worker's event stream closely enough to say what was in
// flight when the worker died.
type tracker struct {
	entry      int
	enumerated bool
	pending    *probe.Event
	unloading  bool
	done       bool
}

func newTracker() *tracker {
	return &tracker{entry: -1}
}

func (t *tracker) observe(ev probe.Event) {
	switch ev.Type {
	case probe.EventEntry:
		t.entry = ev.Entry
		t.enumerated = false
		t.pending = nil
	case probe.EventEnumerated, probe.EventEntryError:
		t.enumerated = true
	case probe.EventBegin:
		begin := ev
		t.pending = &begin
	case probe.EventCreated, probe.EventSkipped:
		t.pending = nil
	case probe.EventUnload:
		t.unloading = true
	case probe.EventDone:
		t.done = true
	}
}

// recover reports the crash described by detail against whatever was in
// flight and returns the cursor a new worker should resume at. ok is false
// when the job cannot be resumed; the final events have then been emitted.
func (t *tracker) recover(job probe.Job, detail string, emit probe.Sink) (next probe.Cursor, ok bool) {
	msg := "worker died: " + detail
	crashed := func(ev probe.Event) probe.Event {
		ev.Failure = probe.FailureCrashed
		ev.Message = msg
		return ev
	}

	switch {
	case t.unloading || t.entry < 0:
		emit(crashed(probe.Event{Type: probe.EventModuleError}))
		emit(probe.Event{Type: probe.EventDone})
		return probe.Cursor{}, false
	case t.pending != nil:
		ev := *t.pending
		ev.Type = probe.EventCreated
		emit(crashed(ev))
		next = probe.Cursor{Entry: ev.Entry, Index: ev.Index + 1}
	default:
		emit(crashed(probe.Event{Type: probe.EventEntryError, Entry: t.entry}))
		next = probe.Cursor{Entry: t.entry + 1}
	}

	if next.Entry >= len(job.Entries) {
		emit(probe.Event{Type: probe.EventUnload})
		emit(probe.Event{Type: probe.EventDone})
		return next, false
	}
	return next, true
}
