// SPDX-License-Identifier: MPL-2.0

package abi

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/plugcheck/plugcheck/pkg/guid"
)

const (
	// KindFilter identifies filter descriptors.
	KindFilter Kind = "filter"
	// KindSignal identifies signal descriptors.
	KindSignal Kind = "signal"
	// KindModel identifies model descriptors.
	KindModel Kind = "model"
	// KindDiscreteModel identifies discrete model descriptors. They share the
	// model descriptor table but are created through the discrete model factory.
	KindDiscreteModel Kind = "discrete_model"
	// KindApproximator identifies approximator descriptors.
	KindApproximator Kind = "approximator"
	// KindSolver identifies solver descriptors.
	KindSolver Kind = "solver"
	// KindMetric identifies metric descriptors.
	KindMetric Kind = "metric"

	// NoNameField marks a layout whose records carry only a GUID.
	NoNameField = -1
)

// PointerSize is the width of a pointer in the module ABI.
const PointerSize = int(unsafe.Sizeof(uintptr(0)))

// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
var ErrInvalidKind = errors.New("invalid entity kind")

type (
	// Kind names one entity kind a module can export. The set is closed;
	// every value has a fixed Layout.
	Kind string

	// InvalidKindError is returned when a Kind value is not recognized.
	InvalidKindError struct {
		Value Kind
	}

	// Layout describes the binary shape of one descriptor record.
	Layout struct {
		// StrideWords is the record width in pointer-sized words.
		StrideWords int
		// GUIDOffset is the byte offset of the identity GUID.
		GUIDOffset int
		// NameOffset is the byte offset of the wide display-name pointer,
		// or NoNameField.
		NameOffset int
	}

	kindInfo struct {
		layout      Layout
		descriptors string
		factory     string
	}
)

var kinds = map[Kind]kindInfo{
	KindFilter: {
		layout:      Layout{StrideWords: 8, GUIDOffset: 0, NameOffset: 16},
		descriptors: "do_get_filter_descriptors",
		factory:     "do_create_filter",
	},
	KindSignal: {
		layout:      Layout{StrideWords: 9, GUIDOffset: 0, NameOffset: 16},
		descriptors: "do_get_signal_descriptors",
		factory:     "do_create_signal",
	},
	KindModel: {
		layout:      Layout{StrideWords: 9, GUIDOffset: 0, NameOffset: 16},
		descriptors: "do_get_model_descriptors",
		factory:     "do_create_discrete_model",
	},
	KindDiscreteModel: {
		layout:      Layout{StrideWords: 9, GUIDOffset: 0, NameOffset: 16},
		descriptors: "do_get_model_descriptors",
		factory:     "do_create_discrete_model",
	},
	KindApproximator: {
		layout:      Layout{StrideWords: 2, GUIDOffset: 0, NameOffset: NoNameField},
		descriptors: "do_get_approximator_descriptors",
		factory:     "do_create_approximator",
	},
	KindSolver: {
		layout:      Layout{StrideWords: 2, GUIDOffset: 0, NameOffset: NoNameField},
		descriptors: "do_get_solver_descriptors",
		factory:     "do_solve_generic",
	},
	KindMetric: {
		layout:      Layout{StrideWords: 2, GUIDOffset: 0, NameOffset: NoNameField},
		descriptors: "do_get_metric_descriptors",
		factory:     "do_create_metric",
	},
}

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindFilter, KindSignal, KindModel, KindDiscreteModel, KindApproximator, KindSolver, KindMetric}
}

// ParseKind converts a user-supplied name into a Kind. Matching is case
// insensitive and accepts "approx" as an alias of "approximator".
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "approx" {
		k = KindApproximator
	}
	if valid, errs := k.IsValid(); !valid {
		return "", errs[0]
	}
	return k, nil
}

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid entity kind %q (valid: %s)", e.Value, strings.Join(kindNames(), ", "))
}

// Unwrap returns ErrInvalidKind for errors.Is compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// IsValid returns whether the Kind is one of the known kinds.
func (k Kind) IsValid() (bool, []error) {
	if _, ok := kinds[k]; !ok {
		return false, []error{&InvalidKindError{Value: k}}
	}
	return true, nil
}

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// Layout returns the record layout of k. Unknown kinds yield the zero Layout.
func (k Kind) Layout() Layout { return kinds[k].layout }

// Stride returns the byte width of one record of kind k on this platform.
func (k Kind) Stride() int { return k.Layout().Stride() }

// DescriptorSymbol is the conventional descriptor export for k.
func (k Kind) DescriptorSymbol() string { return kinds[k].descriptors }

// FactorySymbol is the conventional factory export for k.
func (k Kind) FactorySymbol() string { return kinds[k].factory }

// Stride returns the byte width of one record.
func (l Layout) Stride() int { return l.StrideWords * PointerSize }

// RecordSize is the number of bytes the fields of one record occupy. A
// stride below it cannot be decoded on this platform.
func (l Layout) RecordSize() int {
	n := l.GUIDOffset + guid.Size
	if l.HasName() {
		n = max(n, l.NameOffset+PointerSize)
	}
	return n
}

// HasName reports whether records of this layout carry a display-name pointer.
func (l Layout) HasName() bool { return l.NameOffset != NoNameField }

func kindNames() []string {
	names := make([]string, 0, len(kinds))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return names
}
