// SPDX-License-Identifier: MPL-2.0

// Package abi describes the binary contract between plugcheck and the plugin
// modules it validates: the closed set of entity kinds with their descriptor
// record layouts, HRESULT status codes, and the Caller through which every
// call into foreign code is made.
//
// Entry point signatures (platform C calling convention):
//
//	HRESULT do_get_<kind>_descriptors(const void** begin, const void** end);
//	HRESULT do_create_<kind>(const GUID* id, IUnknown* input, IUnknown** created);
//
// Created objects are IUnknown-derived; they are released through vtable
// slot 2.
package abi

import "github.com/plugcheck/plugcheck/pkg/guid"

// ReleaseSlot is the IUnknown vtable index of Release.
const ReleaseSlot = 2

// Caller performs calls into foreign code. Production code uses
// NativeCaller; tests substitute fakes keyed by address.
type Caller interface {
	// Descriptors calls a descriptor export and returns its status and the
	// [begin, end) range it reported.
	Descriptors(export uintptr) (status Status, begin, end uintptr)

	// Create calls a factory with the entity id and an optional input
	// object (0 for none). It returns the status and the created pointer.
	Create(factory uintptr, id guid.GUID, input uintptr) (status Status, created uintptr)

	// Release calls IUnknown::Release on object and returns the reported
	// remaining reference count.
	Release(object uintptr) uint32
}
