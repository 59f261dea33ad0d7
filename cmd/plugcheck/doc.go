// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for plugcheck.
//
// This package implements the Cobra command hierarchy: the root command,
// the run, list, inspect and explain commands, configuration management,
// and the hidden internal probe worker that the process isolation mode
// re-executes.
package cmd
