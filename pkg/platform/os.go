// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"path"
	"path/filepath"
	"strings"
)

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	IOS     = "ios"
	Linux   = "linux"
)

// windowsReservedNames cannot be used as file names on Windows, with or
// without an extension.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// LibraryFileName returns the shared library file name goos uses for a
// library called base: base.dll, libbase.dylib or libbase.so.
func LibraryFileName(goos, base string) string {
	switch goos {
	case Windows:
		return base + ".dll"
	case Darwin, IOS:
		return "lib" + base + ".dylib"
	default:
		return "lib" + base + ".so"
	}
}

// IsWindowsReservedName reports whether the final element of name is a
// Windows reserved device name. Any extension is ignored.
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(path.Base(filepath.ToSlash(name)))
	if idx := strings.Index(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return windowsReservedNames[upper]
}
