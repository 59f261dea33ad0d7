// SPDX-License-Identifier: MPL-2.0

//go:build !(darwin || freebsd || linux || windows)

package abi

import "github.com/plugcheck/plugcheck/pkg/guid"

// NativeCaller is unavailable on this platform; every call reports
// E_NOTIMPL without touching foreign memory.
type NativeCaller struct{}

// Descriptors implements Caller.
func (NativeCaller) Descriptors(uintptr) (Status, uintptr, uintptr) { return StatusNotImpl, 0, 0 }

// Create implements Caller.
func (NativeCaller) Create(uintptr, guid.GUID, uintptr) (Status, uintptr) { return StatusNotImpl, 0 }

// Release implements Caller.
func (NativeCaller) Release(uintptr) uint32 { return 0 }
