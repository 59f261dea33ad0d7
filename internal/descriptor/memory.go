// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"fmt"
	"runtime/debug"
	"unicode/utf16"
	"unsafe"
)

// MaxNameChars bounds how far a display name is scanned for its terminator.
const MaxNameChars = 4096

type (
	// Memory reads foreign memory. Production code uses ForeignMemory; tests
	// use an Arena.
	Memory interface {
		// Read copies n bytes starting at addr.
		Read(addr uintptr, n int) ([]byte, error)
		// WideString reads a NUL-terminated platform wide string at addr.
		WideString(addr uintptr) (string, error)
	}

	// ForeignMemory reads the process address space directly. Faults are
	// turned into ErrFault.
	ForeignMemory struct{}
)

// Read implements Memory.
func (ForeignMemory) Read(addr uintptr, n int) (out []byte, err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer recoverFault(addr, &err)

	src := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n) //nolint:govet // foreign memory
	out = make([]byte, n)
	copy(out, src)
	return out, nil
}

// WideString implements Memory.
func (ForeignMemory) WideString(addr uintptr) (s string, err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer recoverFault(addr, &err)

	units := make([]uint32, 0, 32)
	for i := range MaxNameChars {
		p := unsafe.Pointer(addr + uintptr(i*WideCharSize)) //nolint:govet // foreign memory
		var c uint32
		if WideCharSize == 2 {
			c = uint32(*(*uint16)(p))
		} else {
			c = *(*uint32)(p)
		}
		if c == 0 {
			return decodeWide(units), nil
		}
		units = append(units, c)
	}
	return "", unterminated(addr)
}

func unterminated(addr uintptr) error {
	return fmt.Errorf("%w at 0x%X: no terminator within %d characters", ErrFault, addr, MaxNameChars)
}

// recoverFault must be deferred directly by the reading function, after
// panic-on-fault was enabled for the calling goroutine.
func recoverFault(addr uintptr, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w at 0x%X: %v", ErrFault, addr, r)
	}
}

func decodeWide(units []uint32) string {
	if WideCharSize == 2 {
		u16 := make([]uint16, len(units))
		for i, u := range units {
			u16[i] = uint16(u)
		}
		return string(utf16.Decode(u16))
	}
	runes := make([]rune, len(units))
	for i, u := range units {
		runes[i] = rune(u)
	}
	return string(runes)
}
