// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// ValidationError is a CUE error flattened for display. It unwraps to the
// original CUE error.
type ValidationError struct {
	File  string
	Lines []string
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Lines) == 1 {
		return e.File + ": " + e.Lines[0]
	}
	return e.File + ": validation failed:\n  " + strings.Join(e.Lines, "\n  ")
}

// Unwrap returns the underlying CUE error.
func (e *ValidationError) Unwrap() error { return e.Err }

// FormatError flattens a CUE error into "<file>: <path>: <message>" lines,
// with list indices rendered as modules[3].entries[0].kind.
func FormatError(err error, filename string) error {
	if err == nil {
		return nil
	}

	list := errors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", filename, err)
	}

	lines := make([]string, 0, len(list))
	for _, e := range list {
		path := formatPath(errors.Path(e))
		msg := e.Error()
		if path != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
			msg = path + ": " + msg
		}
		lines = append(lines, msg)
	}

	return &ValidationError{File: filename, Lines: lines, Err: err}
}

func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			sb.WriteString("[" + part + "]")
		case i > 0:
			sb.WriteString("." + part)
		default:
			sb.WriteString(part)
		}
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects documents larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
