// SPDX-License-Identifier: MPL-2.0

package contain

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/plugcheck/plugcheck/internal/probe"
)

// FramePrefix starts every event line a worker writes to stdout. Anything
// else on stdout was printed by foreign code.
const FramePrefix = "\x1eplugcheck:"

// WriteFrame writes ev as one framed line.
func WriteFrame(w io.Writer, ev probe.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Type, err)
	}
	line := make([]byte, 0, len(FramePrefix)+len(data)+1)
	line = append(line, FramePrefix...)
	line = append(line, data...)
	line = append(line, '\n')
	_, err = w.Write(line)
	return err
}

// ReadFrames reads r until EOF, passing decoded events to onEvent and every
// other non-empty line, or line fragment before a frame, to onForeign.
func ReadFrames(r io.Reader, onEvent probe.Sink, onForeign func(string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			handleLine(strings.TrimRight(line, "\r\n"), onEvent, onForeign)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func handleLine(line string, onEvent probe.Sink, onForeign func(string)) {
	idx := strings.Index(line, FramePrefix)
	if idx < 0 {
		if line != "" {
			onForeign(line)
		}
		return
	}
	if idx > 0 {
		onForeign(line[:idx])
	}
	var ev probe.Event
	if err := json.Unmarshal([]byte(line[idx+len(FramePrefix):]), &ev); err != nil {
		onForeign(line[idx:])
		return
	}
	onEvent(ev)
}
