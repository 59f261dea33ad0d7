// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/plugcheck/plugcheck/internal/probe"
)

// DescriptorCounts enumerates every descriptor-count group. Each module is
// loaded once, with one entry per group that lists it. A missing export
// counts as zero records. A module that cannot be loaded passes only where
// every group expects zero records from it.
func (h *Harness) DescriptorCounts(ctx context.Context) (*Report, error) {
	rep := &Report{Test: DescriptorCounts}
	groups := h.oracle.Groups()

	var modules []string
	for _, g := range groups {
		for _, m := range g.Modules() {
			if !slices.Contains(modules, m) {
				modules = append(modules, m)
			}
		}
	}
	slices.Sort(modules)

	for _, name := range modules {
		var (
			entries  []probe.Entry
			expected []int
		)
		for _, g := range groups {
			if want, ok := g.Expected[name]; ok {
				entries = append(entries, g.Entry())
				expected = append(expected, want)
			}
		}

		logger := h.logger.With("test", DescriptorCounts, "module", name)
		res, err := h.run(ctx, name, entries, false)
		if err != nil {
			return rep, err
		}

		if res.Failure != probe.FailureNone {
			if res.Failure == probe.FailureModuleNotFound && slices.Max(expected) == 0 {
				logger.Warn("Module not loadable, all expected counts are 0", "error", res.Message)
				rep.warn("%s: not loadable, counted 0 for %d export(s)", name, len(entries))
				for range entries {
					rep.pass()
				}
				continue
			}
			logger.Error("Failed to load module", "failure", res.Failure)
			rep.fail(moduleFailure(name, res))
			continue
		}
		if incomplete(res) {
			rep.fail(Failure{Module: name, Index: -1, Failure: probe.FailureCrashed, Message: "probe ended early"})
			continue
		}

		for i, er := range res.Entries {
			h.checkCount(rep, name, er, expected[i])
		}
	}
	return rep, nil
}

// checkCount records an entry's failure, if any, and compares the count of
// every entry that was enumerated against the expected count.
func (h *Harness) checkCount(rep *Report, name string, er probe.EntryResult, want int) bool {
	logger := h.logger.With("module", name, "symbol", er.Entry.Descriptors)
	if er.Failure != probe.FailureNone {
		f := entryFailure(name, er)
		logger.Error(entryFailureText(er), "failed", f.Symbol, "failure", er.Failure, "error", er.Message)
		rep.fail(f)
	}
	if !er.Enumerated {
		if er.Failure == probe.FailureNone {
			rep.fail(Failure{
				Module: name, Kind: er.Entry.Kind, Symbol: er.Entry.Descriptors, Index: -1,
				Failure: probe.FailureCrashed, Message: "entry was never enumerated",
			})
		}
		return false
	}
	if er.Missing {
		logger.Warn("Descriptor export missing, counted 0")
		rep.warn("%s: %s not exported, counted 0", name, er.Entry.Descriptors)
	}

	logger.Info("Descriptor count", "expected", want, "actual", er.Count)
	if er.Count != want {
		logger.Error("Descriptor count mismatch", "expected", want, "actual", er.Count)
		rep.fail(Failure{
			Module: name, Kind: er.Entry.Kind, Symbol: er.Entry.Descriptors, Index: -1,
			Failure: probe.FailureCountMismatch,
			Message: fmt.Sprintf("expected %d, actual %d", want, er.Count),
		})
		return false
	}
	rep.pass()
	return er.Failure == probe.FailureNone
}

func entryFailureText(er probe.EntryResult) string {
	switch {
	case !er.Enumerated:
		return "Failed to get descriptors"
	case er.Failure == probe.FailureSymbolNotFound:
		return "Factory export missing"
	case er.Failure == probe.FailureCrashed:
		return "Module crashed after enumeration"
	default:
		return "Entry failed after enumeration"
	}
}
