// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/plugcheck/plugcheck/pkg/types"
)

// ExitError carries a process exit status out of a RunE handler. The handler
// that returns it has already shown the user everything about Err; the top
// level only exits with Code.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns Err's message, or the bare exit status when Err is nil.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + e.Code.String()
	}
	return e.Err.Error()
}

// Unwrap returns Err.
func (e *ExitError) Unwrap() error { return e.Err }

// exitStatus maps the error returned by the command tree to an exit status.
func exitStatus(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return types.ExitFailure
}

// errorHandler is fang's error hook. ExitErrors were rendered by the handler
// that returned them; cobra's own errors (bad flags, unknown commands) still
// get fang's styled output.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// silence stops cobra from printing usage or the error after a handler has
// rendered the failure itself.
func silence(cmd *cobra.Command) {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
}

// failWith renders err on stderr and returns it as an ExitError, which
// errorHandler leaves alone.
func (a *App) failWith(cmd *cobra.Command, err error) error {
	silence(cmd)
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))
	return &ExitError{Code: types.ExitFailure, Err: err}
}
