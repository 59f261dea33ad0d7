// SPDX-License-Identifier: MPL-2.0

package contain

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Lines that open a runtime crash report on a worker's stderr.
var crashHeaders = []string{
	"panic: ",
	"fatal error: ",
	"unexpected fault address",
	"SIGSEGV",
	"SIGBUS",
	"SIGILL",
	"SIGFPE",
	"Exception 0x",
}

// crashLog is a worker's stderr. Lines pass through to out until the worker
// starts a crash report; from then on every line goes to the debug log and
// the first one is kept as the crash cause. It has a single writer, the
// copying goroutine of exec.Cmd, and is read only after Wait.
type crashLog struct {
	out    io.Writer
	logger *log.Logger
	module string

	buf      []byte
	crashing bool
	cause    string
}

func (c *crashLog) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	for {
		i := bytes.IndexByte(c.buf, '\n')
		if i < 0 {
			break
		}
		c.line(string(bytes.TrimSuffix(c.buf[:i], []byte("\r"))))
		c.buf = c.buf[i+1:]
	}
	return len(p), nil
}

// flush handles a trailing line without a newline.
func (c *crashLog) flush() {
	if len(c.buf) > 0 {
		c.line(string(c.buf))
		c.buf = nil
	}
}

func (c *crashLog) line(s string) {
	if !c.crashing && isCrashHeader(s) {
		c.crashing = true
		c.cause = strings.TrimSpace(s)
	}
	if c.crashing {
		c.logger.Debug("Worker crash report", "module", c.module, "line", s)
		return
	}
	fmt.Fprintln(c.out, s)
}

func isCrashHeader(s string) bool {
	for _, h := range crashHeaders {
		if strings.HasPrefix(s, h) {
			return true
		}
	}
	return false
}
