// SPDX-License-Identifier: MPL-2.0

//go:build darwin || freebsd || (linux && (amd64 || arm64)) || windows

package refobj

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/plugcheck/plugcheck/pkg/abi"
)

var (
	vtblOnce  sync.Once
	vtblSlots [3]uintptr
)

// vtable returns the address of the shared IUnknown vtable. Callbacks are
// created once per process; purego callbacks are never freed.
func vtable() uintptr {
	vtblOnce.Do(func() {
		vtblSlots[0] = purego.NewCallback(func(this, riid, ppv uintptr) (r uintptr) {
			defer func() {
				if recover() != nil {
					r = statusWord(abi.StatusFail)
				}
			}()
			return queryInterface(this, riid, ppv)
		})
		vtblSlots[1] = purego.NewCallback(func(this uintptr) (r uintptr) {
			defer func() { _ = recover() }()
			return addRef(this)
		})
		vtblSlots[abi.ReleaseSlot] = purego.NewCallback(func(this uintptr) (r uintptr) {
			defer func() { _ = recover() }()
			return release(this)
		})
	})
	return uintptr(unsafe.Pointer(&vtblSlots))
}
