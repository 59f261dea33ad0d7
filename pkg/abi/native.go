// SPDX-License-Identifier: MPL-2.0

//go:build darwin || freebsd || linux || windows

package abi

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/plugcheck/plugcheck/pkg/guid"
)

// NativeCaller calls foreign entry points with purego. Out-parameters live
// in pinned Go memory for the duration of the call.
type NativeCaller struct{}

// Descriptors implements Caller.
func (NativeCaller) Descriptors(export uintptr) (Status, uintptr, uintptr) {
	out := new([2]uintptr)
	var pinner runtime.Pinner
	pinner.Pin(out)
	defer pinner.Unpin()

	r1, _, _ := purego.SyscallN(export,
		uintptr(unsafe.Pointer(&out[0])),
		uintptr(unsafe.Pointer(&out[1])),
	)
	return Status(int32(r1)), out[0], out[1]
}

// Create implements Caller.
func (NativeCaller) Create(factory uintptr, id guid.GUID, input uintptr) (Status, uintptr) {
	idCopy := new(guid.GUID)
	*idCopy = id
	created := new(uintptr)

	var pinner runtime.Pinner
	pinner.Pin(idCopy)
	pinner.Pin(created)
	defer pinner.Unpin()

	r1, _, _ := purego.SyscallN(factory,
		uintptr(unsafe.Pointer(idCopy)),
		input,
		uintptr(unsafe.Pointer(created)),
	)
	return Status(int32(r1)), *created
}

// Release implements Caller.
func (NativeCaller) Release(object uintptr) uint32 {
	fn := VTableSlot(object, ReleaseSlot)
	r1, _, _ := purego.SyscallN(fn, object)
	return uint32(r1)
}

// VTableSlot reads entry slot of the vtable of the COM object at object.
func VTableSlot(object uintptr, slot int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(object)) //nolint:govet // foreign memory
	return *(*uintptr)(unsafe.Pointer(vtbl + uintptr(slot*PointerSize)))
}
