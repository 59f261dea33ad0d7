// SPDX-License-Identifier: MPL-2.0

package module

import (
	"path/filepath"
	"runtime"

	"github.com/plugcheck/plugcheck/pkg/platform"
)

// Resolver maps registry module names to filesystem paths.
//
// A name without an extension is turned into the platform's shared library
// file name; a name with an extension is used verbatim. Relative results
// are joined to Dir.
type Resolver struct {
	// Dir is the directory relative module names are resolved against.
	Dir string
	// GOOS selects the naming convention. Empty means runtime.GOOS.
	GOOS string
}

// FileName returns the platform file name for a module name.
func (r Resolver) FileName(name string) string {
	if filepath.Ext(name) != "" {
		return name
	}
	dir, base := filepath.Split(name)
	return dir + platform.LibraryFileName(r.goos(), base)
}

// Path returns the absolute or Dir-relative path of the named module.
func (r Resolver) Path(name string) string {
	file := r.FileName(name)
	if filepath.IsAbs(file) || r.Dir == "" {
		return file
	}
	return filepath.Join(r.Dir, file)
}

func (r Resolver) goos() string {
	if r.GOOS != "" {
		return r.GOOS
	}
	return runtime.GOOS
}
