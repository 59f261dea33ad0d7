// SPDX-License-Identifier: MPL-2.0

package abi

import "fmt"

// Well-known status codes.
const (
	StatusOK          Status = 0
	StatusFalse       Status = 1
	StatusNotImpl     Status = -0x7FFFBFFF // 0x80004001
	StatusNoInterface Status = -0x7FFFBFFE // 0x80004002
	StatusPointer     Status = -0x7FFFBFFD // 0x80004003
	StatusFail        Status = -0x7FFFBFFB // 0x80004005
	StatusInvalidArg  Status = -0x7FF8FFA9 // 0x80070057
)

// Status is the HRESULT returned by every module entry point. Negative
// values denote failure.
type Status int32

// Failed reports whether s denotes failure.
func (s Status) Failed() bool { return s < 0 }

// Succeeded reports whether s denotes success (including S_FALSE).
func (s Status) Succeeded() bool { return s >= 0 }

// String renders the status as a 32-bit hex code, with a symbolic name
// when one is known.
func (s Status) String() string {
	hex := fmt.Sprintf("0x%08X", uint32(s))
	if name, ok := statusNames[s]; ok {
		return name + " (" + hex + ")"
	}
	return hex
}

var statusNames = map[Status]string{
	StatusOK:          "S_OK",
	StatusFalse:       "S_FALSE",
	StatusNotImpl:     "E_NOTIMPL",
	StatusNoInterface: "E_NOINTERFACE",
	StatusPointer:     "E_POINTER",
	StatusFail:        "E_FAIL",
	StatusInvalidArg:  "E_INVALIDARG",
}
