// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/plugcheck/plugcheck/internal/contain"
	"github.com/plugcheck/plugcheck/internal/probe"
	"github.com/plugcheck/plugcheck/pkg/types"
)

// newInternalCommand creates the parent command for internal subcommands.
// These are hidden commands used for inter-process communication.
func newInternalCommand(app *App) *cobra.Command {
	internalCmd := &cobra.Command{
		Use:    "internal",
		Short:  "Internal commands (not for direct use)",
		Hidden: true,
	}

	internalCmd.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Run one probe job read from stdin",
		Long: `Run one probe job read as JSON from stdin, writing one event frame per
line to stdout. Started by 'plugcheck run' in process isolation mode; a
crash in plugin code ends this process instead of the harness.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			silence(cmd)
			logger := app.newLogger()
			runner := probe.NewNativeRunner(logger)
			if err := contain.Serve(cmd.Context(), cmd.InOrStdin(), app.stdout, runner); err != nil {
				logger.Error("Probe worker failed", "error", err)
				return &ExitError{Code: types.ExitWorkerError, Err: err}
			}
			return nil
		},
	})

	return internalCmd
}
