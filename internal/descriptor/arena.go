// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unicode/utf16"

	"github.com/plugcheck/plugcheck/pkg/abi"
)

const (
	arenaBase  = 0x1000_0000
	arenaAlign = 16
)

type (
	// Arena is a simulated address space implementing Memory. It backs the
	// fake modules used in tests and dry runs; reads outside an allocated
	// region fail with ErrFault like a bad foreign pointer would.
	Arena struct {
		mu      sync.Mutex
		next    uintptr
		regions []region
	}

	region struct {
		base uintptr
		data []byte
	}
)

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{next: arenaBase}
}

// Alloc copies data into the arena and returns its address.
func (a *Arena) Alloc(data []byte) uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()

	base := a.next
	a.regions = append(a.regions, region{base: base, data: append([]byte(nil), data...)})
	size := uintptr(len(data))
	a.next = base + (size+arenaAlign)/arenaAlign*arenaAlign
	return base
}

// AllocWide stores s as a NUL-terminated platform wide string.
func (a *Arena) AllocWide(s string) uintptr {
	var buf []byte
	if WideCharSize == 2 {
		for _, u := range utf16.Encode([]rune(s)) {
			buf = binary.NativeEndian.AppendUint16(buf, u)
		}
		buf = binary.NativeEndian.AppendUint16(buf, 0)
	} else {
		for _, r := range s {
			buf = binary.NativeEndian.AppendUint32(buf, uint32(r))
		}
		buf = binary.NativeEndian.AppendUint32(buf, 0)
	}
	return a.Alloc(buf)
}

// Table lays out recs with the layout of kind and returns the range a
// descriptor export would report. Names are stored as wide strings; an empty
// name is stored as a null pointer.
func (a *Arena) Table(kind abi.Kind, recs ...Record) Range {
	layout := kind.Layout()
	stride := layout.Stride()
	buf := make([]byte, stride*len(recs))
	for i, rec := range recs {
		row := buf[i*stride : (i+1)*stride]
		copy(row[layout.GUIDOffset:], rec.ID[:])
		if layout.HasName() && rec.Name != "" {
			writePointer(row[layout.NameOffset:], a.AllocWide(rec.Name))
		}
	}
	begin := a.Alloc(buf)
	return Range{Begin: begin, End: begin + uintptr(len(buf))}
}

// Read implements Memory.
func (a *Arena) Read(addr uintptr, n int) ([]byte, error) {
	data, err := a.locate(addr, n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// WideString implements Memory.
func (a *Arena) WideString(addr uintptr) (string, error) {
	data, err := a.locate(addr, 0)
	if err != nil {
		return "", err
	}
	var units []uint32
	for off := 0; off+WideCharSize <= len(data) && len(units) < MaxNameChars; off += WideCharSize {
		var c uint32
		if WideCharSize == 2 {
			c = uint32(binary.NativeEndian.Uint16(data[off:]))
		} else {
			c = binary.NativeEndian.Uint32(data[off:])
		}
		if c == 0 {
			return decodeWide(units), nil
		}
		units = append(units, c)
	}
	return "", unterminated(addr)
}

// locate returns the arena bytes from addr to the end of its region,
// requiring at least n of them.
func (a *Arena) locate(addr uintptr, n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range a.regions {
		if addr < r.base || addr > r.base+uintptr(len(r.data)) {
			continue
		}
		off := int(addr - r.base)
		if off+n > len(r.data) {
			break
		}
		return r.data[off:], nil
	}
	return nil, fmt.Errorf("%w at 0x%X: %d bytes outside any mapping", ErrFault, addr, n)
}

func writePointer(b []byte, p uintptr) {
	if abi.PointerSize == 8 {
		binary.NativeEndian.PutUint64(b, uint64(p))
		return
	}
	binary.NativeEndian.PutUint32(b, uint32(p))
}
