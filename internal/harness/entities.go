// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"context"

	"github.com/plugcheck/plugcheck/internal/probe"
)

// EntityValidation probes every registry module with one job: each entry is
// enumerated, its count compared with the registry and every record not on
// the skip list created and released.
func (h *Harness) EntityValidation(ctx context.Context) (*Report, error) {
	rep := &Report{Test: EntityValidation}

	for _, m := range h.oracle.Modules() {
		logger := h.logger.With("test", EntityValidation, "module", m.Name)
		logger.Info("Testing module")

		res, err := h.run(ctx, m.Name, m.Probes(), true)
		if err != nil {
			return rep, err
		}
		if res.Failure != probe.FailureNone {
			logger.Error("Failed to load module", "failure", res.Failure)
			rep.fail(moduleFailure(m.Name, res))
			continue
		}

		for i, er := range res.Entries {
			h.checkCount(rep, m.Name, er, m.Entries[i].Expected)

			for _, cr := range er.Creations {
				switch {
				case cr.Skipped:
					rep.warn("%s: skipped %s", m.Name, cr.Name)
				case cr.Failed():
					rep.fail(Failure{
						Module:  m.Name,
						Kind:    er.Entry.Kind,
						Symbol:  er.Entry.Factory,
						Index:   cr.Index,
						ID:      cr.ID,
						Name:    cr.Name,
						Failure: cr.Failure,
						Message: cr.Message,
					})
				default:
					rep.pass()
				}
			}
		}

		if incomplete(res) {
			rep.fail(Failure{Module: m.Name, Index: -1, Failure: probe.FailureCrashed, Message: "probe ended early"})
		}
	}
	return rep, nil
}
