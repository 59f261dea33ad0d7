// SPDX-License-Identifier: MPL-2.0

//go:build !(darwin || freebsd || (linux && (amd64 || arm64)) || windows)

package refobj

import "unsafe"

// Foreign callbacks are unavailable here; the slots stay null so objects
// still count references for Go callers.
var vtblSlots [3]uintptr

func vtable() uintptr {
	return uintptr(unsafe.Pointer(&vtblSlots))
}
