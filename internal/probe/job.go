// SPDX-License-Identifier: MPL-2.0

// Package probe exercises one plugin module: load it, enumerate every
// requested descriptor export, create each entity, unload. Progress is
// reported as a stream of events so the same runner can work in-process or
// inside a supervised worker whose output is read back frame by frame.
package probe

import (
	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

const (
	// EventEntry starts processing of Job.Entries[Entry].
	EventEntry EventType = "entry"
	// EventEnumerated reports the decoded descriptor count of an entry.
	EventEnumerated EventType = "enumerated"
	// EventRecord lists one decoded record of an entry when Job.Records is
	// set.
	EventRecord EventType = "record"
	// EventBegin precedes a factory call for record Index.
	EventBegin EventType = "begin"
	// EventCreated reports the outcome of the factory call for record Index.
	EventCreated EventType = "created"
	// EventSkipped reports a record excluded by the entry's skip list.
	EventSkipped EventType = "skipped"
	// EventEntryError ends an entry early with a failure.
	EventEntryError EventType = "entry-error"
	// EventModuleError ends the whole job early with a failure.
	EventModuleError EventType = "module-error"
	// EventUnload precedes unloading the module after the last entry.
	EventUnload EventType = "unload"
	// EventDone is the last event of a job that ran to completion.
	EventDone EventType = "done"
)

type (
	// EventType discriminates Event.
	EventType string

	// Entry is one descriptor export to enumerate and, optionally, the
	// factory to create its entities with.
	Entry struct {
		Kind        abi.Kind    `json:"kind"`
		Descriptors string      `json:"descriptors"`
		Factory     string      `json:"factory,omitempty"`
		NeedsInput  bool        `json:"needsInput,omitempty"`
		Skip        []guid.GUID `json:"skip,omitempty"`
	}

	// Cursor is a position inside a job: entry index and record index.
	Cursor struct {
		Entry int `json:"entry"`
		Index int `json:"index"`
	}

	// Job is everything needed to probe one module. Exactly one module
	// handle is used for the whole job.
	Job struct {
		// Module is the registry name, for reporting.
		Module string `json:"module"`
		// Path is the resolved file to load.
		Path    string  `json:"path"`
		Entries []Entry `json:"entries"`
		// Create enables factory calls; without it only enumeration runs.
		Create bool `json:"create"`
		// Records asks for one record event per decoded descriptor.
		Records bool `json:"records,omitempty"`
		// Resume is where to pick up after a worker crash. Entries before
		// Resume.Entry are skipped, as are records before Resume.Index in
		// that entry.
		Resume Cursor `json:"resume"`
	}

	// Event is one step of a probe.
	Event struct {
		Type  EventType `json:"type"`
		Entry int       `json:"entry"`
		Index int       `json:"index,omitempty"`
		// ID and Name identify the record for record/begin/created/skipped.
		ID   *guid.GUID `json:"id,omitempty"`
		Name string     `json:"name,omitempty"`
		// Count and Missing describe an enumerated entry.
		Count   int  `json:"count,omitempty"`
		Missing bool `json:"missing,omitempty"`
		// Status, Released and InputRemaining describe a factory call.
		Status         abi.Status `json:"status,omitempty"`
		Released       bool       `json:"released,omitempty"`
		InputRemaining int32      `json:"inputRemaining,omitempty"`
		// Failure is set when the step failed.
		Failure FailureKind `json:"failure,omitempty"`
		Message string      `json:"message,omitempty"`
	}

	// Sink receives events in order.
	Sink func(Event)
)

// Skips reports whether id is on the entry's skip list.
func (e Entry) Skips(id guid.GUID) bool {
	for _, s := range e.Skip {
		if s == id {
			return true
		}
	}
	return false
}

// Failed reports whether the event carries a failure.
func (e Event) Failed() bool { return e.Failure != FailureNone }

// start returns the first record index to process for entry i.
func (c Cursor) start(i int) int {
	if i == c.Entry {
		return c.Index
	}
	return 0
}
