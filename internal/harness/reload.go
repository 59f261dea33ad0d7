// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"context"
	"fmt"

	"github.com/plugcheck/plugcheck/internal/probe"
)

// ModuleReload enumerates every registry module in two separate load/unload
// cycles. The counts of each entry must be identical across both cycles.
func (h *Harness) ModuleReload(ctx context.Context) (*Report, error) {
	rep := &Report{Test: ModuleReload}

	for _, m := range h.oracle.Modules() {
		logger := h.logger.With("test", ModuleReload, "module", m.Name)

		var runs [2]probe.Result
		failed := false
		for i := range runs {
			res, err := h.run(ctx, m.Name, m.Probes(), false)
			if err != nil {
				return rep, err
			}
			if res.Failure != probe.FailureNone {
				logger.Error("Failed to load module", "cycle", i+1, "failure", res.Failure)
				rep.fail(moduleFailure(m.Name, res))
				failed = true
				break
			}
			runs[i] = res
		}
		if failed {
			continue
		}

		for i := range m.Entries {
			first, second := runs[0].Entries[i], runs[1].Entries[i]
			switch {
			case first.Failure != probe.FailureNone:
				rep.fail(entryFailure(m.Name, first))
			case second.Failure != probe.FailureNone:
				rep.fail(entryFailure(m.Name, second))
			case first.Count != second.Count || first.Missing != second.Missing:
				logger.Error("Descriptor count changed across reload",
					"symbol", first.Entry.Descriptors, "first", first.Count, "second", second.Count)
				rep.fail(Failure{
					Module:  m.Name,
					Kind:    first.Entry.Kind,
					Symbol:  first.Entry.Descriptors,
					Index:   -1,
					Failure: probe.FailureCountMismatch,
					Message: fmt.Sprintf("first load %d, second load %d", first.Count, second.Count),
				})
			default:
				logger.Debug("Reload stable", "symbol", first.Entry.Descriptors, "count", first.Count)
				rep.pass()
			}
		}
	}
	return rep, nil
}
