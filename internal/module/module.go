// SPDX-License-Identifier: MPL-2.0

// Package module owns the lifetime of loaded plugin modules: loading a shared
// library, resolving exported symbols by their exact name, and unloading it.
package module

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleNotFound is returned when a module cannot be loaded.
	ErrModuleNotFound = errors.New("module not found")
	// ErrSymbolNotFound is returned when a module does not export a symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrClosed is returned when resolving a symbol on an unloaded module.
	ErrClosed = errors.New("module already unloaded")
)

type (
	// Handle is one loaded module. Addresses returned by Symbol are valid
	// only until Close.
	Handle interface {
		// Path returns the path the module was loaded from.
		Path() string
		// Symbol resolves an exported symbol by exact, case-sensitive name.
		Symbol(name string) (uintptr, error)
		// Close unloads the module. Calling Close more than once is a no-op.
		Close() error
	}

	// Loader loads modules from the filesystem.
	Loader interface {
		Load(path string) (Handle, error)
	}

	// NotFoundError is returned when a module cannot be loaded.
	NotFoundError struct {
		Path string
		Err  error
	}

	// SymbolError is returned when a symbol cannot be resolved.
	SymbolError struct {
		Module string
		Symbol string
		Err    error
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load module %s: %v", e.Path, e.Err)
	}
	return "failed to load module " + e.Path
}

// Unwrap returns ErrModuleNotFound for errors.Is compatibility.
func (e *NotFoundError) Unwrap() error { return ErrModuleNotFound }

// Error implements the error interface.
func (e *SymbolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("module %s does not export %q: %v", e.Module, e.Symbol, e.Err)
	}
	return fmt.Sprintf("module %s does not export %q", e.Module, e.Symbol)
}

// Unwrap returns ErrSymbolNotFound for errors.Is compatibility.
func (e *SymbolError) Unwrap() error { return ErrSymbolNotFound }

// NewLoader returns the loader for the running platform.
func NewLoader() Loader {
	return nativeLoader{}
}

// checkSymbolName rejects names that cannot be passed to the OS loader
// unambiguously. Exported names are narrow ASCII; anything else would need
// a code-page conversion and is treated as not found.
func checkSymbolName(name string) error {
	if name == "" {
		return errors.New("empty symbol name")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == 0 || c >= 0x80 {
			return fmt.Errorf("symbol name %q is not plain ASCII", name)
		}
	}
	return nil
}
