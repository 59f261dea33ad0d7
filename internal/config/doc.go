// SPDX-License-Identifier: MPL-2.0

// Package config handles harness configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/plugcheck/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/plugcheck/config.cue on macOS, %APPDATA%\plugcheck\config.cue
// on Windows), or from the file named by --config. PLUGCHECK_* environment variables
// override file values (PLUGCHECK_MODULES_DIR, PLUGCHECK_ISOLATION, PLUGCHECK_UI_VERBOSE, ...).
//
// Files are validated against the embedded config_schema.cue before they are merged.
package config
