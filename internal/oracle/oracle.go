// SPDX-License-Identifier: MPL-2.0

// Package oracle holds the validation registry: which plugin modules to
// test, which descriptor exports each must provide, how many records those
// exports report and which factory creates the entities.
//
// The embedded default describes the reference plugin set. Users can point
// the harness at their own oracle written in CUE or TOML; both are validated
// against the same CUE schema.
package oracle

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/plugcheck/plugcheck/internal/probe"
	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

var (
	// ErrEmptyRegistry is returned when an oracle declares no module entries.
	ErrEmptyRegistry = errors.New("oracle declares no module entries")

	// ErrReservedModuleName is returned for module names Windows cannot load
	// from disk, such as "con" or "aux".
	ErrReservedModuleName = errors.New("module name is reserved on Windows")

	// ErrDuplicateModule is the sentinel error wrapped by DuplicateModuleError.
	ErrDuplicateModule = errors.New("duplicate module")
)

type (
	// Oracle is an immutable, validated registry.
	Oracle struct {
		version     string
		description string
		source      string
		modules     []Module
		groups      []Group
	}

	// Module lists the entries expected from one plugin module.
	Module struct {
		Name    string
		Entries []Entry
	}

	// Entry is one descriptor export of a module together with its expected
	// record count and creation parameters.
	Entry struct {
		Kind        abi.Kind
		Descriptors string
		Factory     string
		NeedsInput  bool
		Expected    int
		Skip        []guid.GUID
	}

	// Pair is an entry qualified by its module name.
	Pair struct {
		Module string
		Entry  Entry
	}

	// Group is one descriptor export checked across several modules by
	// count alone.
	Group struct {
		Kind     abi.Kind
		Symbol   string
		Expected map[string]int
	}

	// DuplicateModuleError is returned when a module name appears twice.
	DuplicateModuleError struct {
		Name string
	}
)

// Version returns the document format version.
func (o *Oracle) Version() string { return o.version }

// Description returns the optional free-form description.
func (o *Oracle) Description() string { return o.description }

// Source names where the oracle was loaded from.
func (o *Oracle) Source() string { return o.source }

// Modules returns the declared modules in document order.
func (o *Oracle) Modules() []Module {
	out := make([]Module, len(o.modules))
	for i, m := range o.modules {
		out[i] = m.clone()
	}
	return out
}

// Module looks up a module by name.
func (o *Oracle) Module(name string) (Module, bool) {
	for _, m := range o.modules {
		if m.Name == name {
			return m.clone(), true
		}
	}
	return Module{}, false
}

// Entries flattens every module's entries, keeping document order.
func (o *Oracle) Entries() []Pair {
	var out []Pair
	for _, m := range o.modules {
		for _, e := range m.Entries {
			out = append(out, Pair{Module: m.Name, Entry: e.clone()})
		}
	}
	return out
}

// Groups returns the descriptor-count groups in document order.
func (o *Oracle) Groups() []Group {
	out := make([]Group, len(o.groups))
	for i, g := range o.groups {
		out[i] = Group{Kind: g.Kind, Symbol: g.Symbol, Expected: maps.Clone(g.Expected)}
	}
	return out
}

// Probe converts the entry to the probe runner's form.
func (e Entry) Probe() probe.Entry {
	return probe.Entry{
		Kind:        e.Kind,
		Descriptors: e.Descriptors,
		Factory:     e.Factory,
		NeedsInput:  e.NeedsInput,
		Skip:        slices.Clone(e.Skip),
	}
}

func (e Entry) clone() Entry {
	e.Skip = slices.Clone(e.Skip)
	return e
}

// Probes converts every entry of the module.
func (m Module) Probes() []probe.Entry {
	out := make([]probe.Entry, len(m.Entries))
	for i, e := range m.Entries {
		out[i] = e.Probe()
	}
	return out
}

func (m Module) clone() Module {
	entries := make([]Entry, len(m.Entries))
	for i, e := range m.Entries {
		entries[i] = e.clone()
	}
	return Module{Name: m.Name, Entries: entries}
}

// Modules returns the group's module names, sorted.
func (g Group) Modules() []string {
	names := maps.Keys(g.Expected)
	slices.Sort(names)
	return names
}

// Entry returns the enumeration-only probe entry for the group.
func (g Group) Entry() probe.Entry {
	return probe.Entry{Kind: g.Kind, Descriptors: g.Symbol}
}

// Error implements the error interface.
func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %q is declared more than once", e.Name)
}

// Unwrap returns ErrDuplicateModule for errors.Is compatibility.
func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }
