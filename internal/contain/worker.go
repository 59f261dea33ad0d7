// SPDX-License-Identifier: MPL-2.0

package contain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/plugcheck/plugcheck/internal/probe"
)

// Serve is the worker side of Process: it decodes one job from in, runs it
// and writes framed events to out. Frames are written unbuffered so that
// everything before a crash reaches the supervisor.
func Serve(ctx context.Context, in io.Reader, out io.Writer, runner *probe.Runner) error {
	var job probe.Job
	if err := json.NewDecoder(in).Decode(&job); err != nil {
		return fmt.Errorf("decoding probe job: %w", err)
	}

	var writeErr error
	err := runner.Run(ctx, job, func(ev probe.Event) {
		if writeErr == nil {
			writeErr = WriteFrame(out, ev)
		}
	})
	if err != nil {
		return err
	}
	return writeErr
}
