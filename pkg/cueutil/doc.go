// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates documents against embedded CUE schemas.
//
// Every document plugcheck reads (the harness configuration and validation
// oracles) goes through the same flow:
//
//  1. Compile the embedded schema and look up its root definition
//  2. Compile (or encode) the user document and unify it with that definition
//  3. Validate and decode into a Go value
//
// # Usage
//
//	//go:embed oracle_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[document](
//	    schemaBytes,
//	    data,
//	    "#Oracle",
//	    cueutil.WithFilename("oracle.cue"),
//	)
//
// Documents that arrive in another format (TOML) are decoded to plain Go
// values first and validated with ValidateValue.
package cueutil
