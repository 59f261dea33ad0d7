// SPDX-License-Identifier: MPL-2.0

// Package guid provides the 16-byte GUID value exchanged with plugin modules.
//
// A GUID is kept in its in-memory layout as produced by the module
// (Data1 uint32, Data2 uint16 and Data3 uint16 little-endian, followed by the
// 8 bytes of Data4), so it can be copied to and from foreign memory verbatim.
// Text conversions go through github.com/google/uuid, which expects the
// big-endian RFC 4122 byte order.
package guid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Size is the byte width of a GUID.
const Size = 16

// ErrInvalidGUID is the sentinel error wrapped by InvalidGUIDError.
var ErrInvalidGUID = errors.New("invalid GUID")

type (
	// GUID is a Windows-style globally unique identifier in memory layout.
	GUID [Size]byte

	// InvalidGUIDError is returned when a textual GUID cannot be parsed.
	InvalidGUIDError struct {
		Value string
		Err   error
	}
)

// Nil is the all-zero GUID.
var Nil GUID

// Error implements the error interface.
func (e *InvalidGUIDError) Error() string {
	return fmt.Sprintf("invalid GUID %q: %v", e.Value, e.Err)
}

// Unwrap returns ErrInvalidGUID for errors.Is compatibility.
func (e *InvalidGUIDError) Unwrap() error { return ErrInvalidGUID }

// FromBytes copies a GUID out of b. b must hold at least Size bytes.
func FromBytes(b []byte) (GUID, error) {
	var g GUID
	if len(b) < Size {
		return g, fmt.Errorf("guid: need %d bytes, got %d", Size, len(b))
	}
	copy(g[:], b[:Size])
	return g, nil
}

// Parse accepts the canonical braced form as well as every form accepted
// by uuid.Parse (plain, urn:uuid: prefixed, 32 hex digits).
func Parse(s string) (GUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return Nil, &InvalidGUIDError{Value: s, Err: err}
	}
	return fromUUID(u), nil
}

// MustParse is like Parse but panics on error. Intended for tables of
// well-known identifiers.
func MustParse(s string) GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// Data1 returns the first (little-endian) field.
func (g GUID) Data1() uint32 { return binary.LittleEndian.Uint32(g[0:4]) }

// Data2 returns the second field.
func (g GUID) Data2() uint16 { return binary.LittleEndian.Uint16(g[4:6]) }

// Data3 returns the third field.
func (g GUID) Data3() uint16 { return binary.LittleEndian.Uint16(g[6:8]) }

// IsZero reports whether g is the nil GUID.
func (g GUID) IsZero() bool { return g == Nil }

// UUID converts g to RFC 4122 byte order.
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], g.Data1())
	binary.BigEndian.PutUint16(u[4:6], g.Data2())
	binary.BigEndian.PutUint16(u[6:8], g.Data3())
	copy(u[8:], g[8:])
	return u
}

// String returns the canonical registry form, e.g.
// {6A2D3E51-0C7B-4F8E-9A11-2B3C4D5E6F70}.
func (g GUID) String() string {
	return "{" + strings.ToUpper(g.UUID().String()) + "}"
}

// MarshalText implements encoding.TextMarshaler.
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GUID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func fromUUID(u uuid.UUID) GUID {
	var g GUID
	binary.LittleEndian.PutUint32(g[0:4], binary.BigEndian.Uint32(u[0:4]))
	binary.LittleEndian.PutUint16(g[4:6], binary.BigEndian.Uint16(u[4:6]))
	binary.LittleEndian.PutUint16(g[6:8], binary.BigEndian.Uint16(u[6:8]))
	copy(g[8:], u[8:])
	return g
}
