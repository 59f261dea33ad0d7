// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

type (
	// Creation is the recorded outcome for one descriptor record.
	Creation struct {
		Index          int
		ID             guid.GUID
		Name           string
		Skipped        bool
		Status         abi.Status
		Released       bool
		InputRemaining int32
		Failure        FailureKind
		Message        string
	}

	// Record is one listed descriptor.
	Record struct {
		Index int
		ID    guid.GUID
		Name  string
	}

	// EntryResult is the recorded outcome of one job entry.
	EntryResult struct {
		Entry      Entry
		Enumerated bool
		Count      int
		Missing    bool
		Failure    FailureKind
		Message    string
		Records    []Record
		Creations  []Creation
	}

	// Result is the recorded outcome of one job.
	Result struct {
		Module  string
		Path    string
		Failure FailureKind
		Message string
		Entries []EntryResult
		Done    bool
	}

	// Collector folds an event stream into a Result.
	Collector struct {
		res Result
	}
)

// NewCollector returns a Collector for job.
func NewCollector(job Job) *Collector {
	c := &Collector{res: Result{Module: job.Module, Path: job.Path}}
	c.res.Entries = make([]EntryResult, len(job.Entries))
	for i, e := range job.Entries {
		c.res.Entries[i].Entry = e
	}
	return c
}

// Emit records ev. Its method value is a Sink.
func (c *Collector) Emit(ev Event) {
	if ev.Type == EventModuleError {
		c.res.Failure = ev.Failure
		c.res.Message = ev.Message
		return
	}
	if ev.Type == EventDone {
		c.res.Done = true
		return
	}
	if ev.Entry < 0 || ev.Entry >= len(c.res.Entries) {
		return
	}
	er := &c.res.Entries[ev.Entry]

	switch ev.Type {
	case EventEnumerated:
		er.Enumerated = true
		er.Count = ev.Count
		er.Missing = ev.Missing
	case EventEntryError:
		er.Failure = ev.Failure
		er.Message = ev.Message
	case EventRecord:
		rec := Record{Index: ev.Index, Name: ev.Name}
		if ev.ID != nil {
			rec.ID = *ev.ID
		}
		er.Records = append(er.Records, rec)
	case EventSkipped, EventCreated:
		cr := Creation{
			Index:          ev.Index,
			Name:           ev.Name,
			Skipped:        ev.Type == EventSkipped,
			Status:         ev.Status,
			Released:       ev.Released,
			InputRemaining: ev.InputRemaining,
			Failure:        ev.Failure,
			Message:        ev.Message,
		}
		if ev.ID != nil {
			cr.ID = *ev.ID
		}
		er.Creations = append(er.Creations, cr)
	}
}

// Result returns the folded result.
func (c *Collector) Result() Result { return c.res }

// Created returns how many records were created successfully.
func (er EntryResult) Created() int {
	n := 0
	for _, cr := range er.Creations {
		if !cr.Skipped && cr.Failure == FailureNone {
			n++
		}
	}
	return n
}

// Failed reports whether the entry or any of its creations failed.
func (er EntryResult) Failed() bool {
	if er.Failure != FailureNone {
		return true
	}
	for _, cr := range er.Creations {
		if cr.Failed() {
			return true
		}
	}
	return false
}

// Failed reports whether the creation failed.
func (cr Creation) Failed() bool { return cr.Failure != FailureNone }
