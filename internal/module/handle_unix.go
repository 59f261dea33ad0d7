// SPDX-License-Identifier: MPL-2.0

//go:build darwin || freebsd || linux

package module

import (
	"os"

	"github.com/ebitengine/purego"
)

type (
	nativeLoader struct{}

	dlHandle struct {
		path   string
		handle uintptr
	}
)

// Load maps the shared library at path with RTLD_NOW|RTLD_LOCAL so unresolved
// imports fail here and not on first call.
func (nativeLoader) Load(path string) (Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &NotFoundError{Path: path, Err: err}
	}
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, &NotFoundError{Path: path, Err: err}
	}
	return &dlHandle{path: path, handle: h}, nil
}

func (d *dlHandle) Path() string { return d.path }

func (d *dlHandle) Symbol(name string) (uintptr, error) {
	if d.handle == 0 {
		return 0, &SymbolError{Module: d.path, Symbol: name, Err: ErrClosed}
	}
	if err := checkSymbolName(name); err != nil {
		return 0, &SymbolError{Module: d.path, Symbol: name, Err: err}
	}
	addr, err := purego.Dlsym(d.handle, name)
	if err != nil {
		return 0, &SymbolError{Module: d.path, Symbol: name, Err: err}
	}
	return addr, nil
}

func (d *dlHandle) Close() error {
	if d.handle == 0 {
		return nil
	}
	h := d.handle
	d.handle = 0
	return purego.Dlclose(h)
}
