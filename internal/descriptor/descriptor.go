// SPDX-License-Identifier: MPL-2.0

// Package descriptor decodes the fixed-stride descriptor tables plugin
// modules export. A table is copied out of foreign memory once and then
// iterated from the owned copy.
package descriptor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/guid"
)

var (
	// ErrMalformedRange is returned when a [begin, end) range cannot hold a
	// whole number of records.
	ErrMalformedRange = errors.New("malformed descriptor range")
	// ErrFault is returned when reading foreign memory faulted.
	ErrFault = errors.New("fault reading foreign memory")
)

type (
	// Range is the [Begin, End) byte range a descriptor export reported.
	Range struct {
		Begin uintptr
		End   uintptr
	}

	// MalformedRangeError describes a rejected descriptor range.
	MalformedRangeError struct {
		Kind   abi.Kind
		Range  Range
		Stride int
		Reason string
	}

	// Record is one decoded descriptor.
	Record struct {
		// ID is the entity identity.
		ID guid.GUID
		// Name is the display name, empty when the layout has none or the
		// pointer was null.
		Name string
		// NameErr is set when the name pointer could not be read.
		NameErr error
	}

	// Table is a decoded descriptor table. It holds an owned copy of the
	// record bytes and can be iterated any number of times.
	Table struct {
		kind   abi.Kind
		layout abi.Layout
		raw    []byte
		mem    Memory
	}
)

// Error implements the error interface.
func (e *MalformedRangeError) Error() string {
	return fmt.Sprintf("malformed %s descriptor range [0x%X, 0x%X) (stride %d): %s",
		e.Kind, e.Range.Begin, e.Range.End, e.Stride, e.Reason)
}

// Unwrap returns ErrMalformedRange for errors.Is compatibility.
func (e *MalformedRangeError) Unwrap() error { return ErrMalformedRange }

// Len returns the byte length of the range. It is only meaningful for a
// validated range.
func (r Range) Len() uintptr { return r.End - r.Begin }

// IsEmpty reports whether both bounds are null.
func (r Range) IsEmpty() bool { return r.Begin == 0 && r.End == 0 }

// Count returns the number of records of kind in r, or a
// *MalformedRangeError.
func Count(r Range, kind abi.Kind) (int, error) {
	return count(r, kind, kind.Layout())
}

func count(r Range, kind abi.Kind, layout abi.Layout) (int, error) {
	stride := layout.Stride()
	malformed := func(reason string) error {
		return &MalformedRangeError{Kind: kind, Range: r, Stride: stride, Reason: reason}
	}

	switch {
	case stride <= 0:
		return 0, malformed("unknown entity kind")
	case r.IsEmpty():
		return 0, nil
	case stride < layout.RecordSize():
		return 0, malformed(fmt.Sprintf("stride cannot hold a %d-byte record on this platform", layout.RecordSize()))
	case r.Begin == 0 || r.End == 0:
		return 0, malformed("exactly one bound is null")
	case r.End < r.Begin:
		return 0, malformed("end precedes begin")
	case r.Len()%uintptr(stride) != 0:
		return 0, malformed(fmt.Sprintf("length %d is not a multiple of the stride", r.Len()))
	}
	return int(r.Len() / uintptr(stride)), nil
}

// Decode validates r for kind and copies the table out of mem.
func Decode(mem Memory, r Range, kind abi.Kind) (*Table, error) {
	n, err := Count(r, kind)
	if err != nil {
		return nil, err
	}
	t := &Table{kind: kind, layout: kind.Layout(), mem: mem}
	if n == 0 {
		return t, nil
	}
	raw, err := mem.Read(r.Begin, int(r.Len()))
	if err != nil {
		return nil, fmt.Errorf("copying %d %s descriptors: %w", n, kind, err)
	}
	t.raw = raw
	return t, nil
}

// Kind returns the entity kind the table was decoded as.
func (t *Table) Kind() abi.Kind { return t.kind }

// Len returns the number of records.
func (t *Table) Len() int {
	if stride := t.layout.Stride(); stride > 0 {
		return len(t.raw) / stride
	}
	return 0
}

// At decodes record i. It panics if i is out of range.
func (t *Table) At(i int) Record {
	stride := t.layout.Stride()
	rec := t.raw[i*stride : (i+1)*stride]

	id, err := guid.FromBytes(rec[t.layout.GUIDOffset:])
	if err != nil {
		// Count rejects strides narrower than the record.
		panic(fmt.Sprintf("descriptor: %s record %d: %v", t.kind, i, err))
	}
	r := Record{ID: id}
	if !t.layout.HasName() {
		return r
	}

	ptr := readPointer(rec[t.layout.NameOffset:])
	if ptr == 0 {
		return r
	}
	r.Name, r.NameErr = t.mem.WideString(ptr)
	return r
}

// All yields every record with its index. Names are read lazily as records
// are yielded.
func (t *Table) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i := range t.Len() {
			if !yield(i, t.At(i)) {
				return
			}
		}
	}
}

// ids returns the identities of every record in table order.
func (t *Table) ids() []guid.GUID {
	ids := make([]guid.GUID, 0, t.Len())
	for _, rec := range t.All() {
		ids = append(ids, rec.ID)
	}
	return ids
}

// DisplayName returns the record's name, or the canonical GUID text when the
// name is missing or unreadable.
func (r Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID.String()
}

func readPointer(b []byte) uintptr {
	if abi.PointerSize == 8 {
		return uintptr(binary.NativeEndian.Uint64(b))
	}
	return uintptr(binary.NativeEndian.Uint32(b))
}
