// SPDX-License-Identifier: MPL-2.0

//go:build windows

package module

import (
	"os"

	"golang.org/x/sys/windows"
)

type (
	nativeLoader struct{}

	winHandle struct {
		path   string
		handle windows.Handle
	}
)

// Load maps the DLL at path. LOAD_WITH_ALTERED_SEARCH_PATH makes the module's
// own directory the first place its dependencies are searched.
func (nativeLoader) Load(path string) (Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &NotFoundError{Path: path, Err: err}
	}
	h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return nil, &NotFoundError{Path: path, Err: err}
	}
	return &winHandle{path: path, handle: h}, nil
}

func (w *winHandle) Path() string { return w.path }

func (w *winHandle) Symbol(name string) (uintptr, error) {
	if w.handle == 0 {
		return 0, &SymbolError{Module: w.path, Symbol: name, Err: ErrClosed}
	}
	if err := checkSymbolName(name); err != nil {
		return 0, &SymbolError{Module: w.path, Symbol: name, Err: err}
	}
	addr, err := windows.GetProcAddress(w.handle, name)
	if err != nil {
		return 0, &SymbolError{Module: w.path, Symbol: name, Err: err}
	}
	return addr, nil
}

func (w *winHandle) Close() error {
	if w.handle == 0 {
		return nil
	}
	h := w.handle
	w.handle = 0
	return windows.FreeLibrary(h)
}
