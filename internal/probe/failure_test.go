// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"errors"
	"fmt"
	"testing"

	"github.com/plugcheck/plugcheck/internal/descriptor"
	"github.com/plugcheck/plugcheck/internal/invoke"
	"github.com/plugcheck/plugcheck/internal/module"
	"github.com/plugcheck/plugcheck/pkg/abi"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "nil", err: nil, want: FailureNone},
		{name: "module", err: &module.NotFoundError{Path: "x"}, want: FailureModuleNotFound},
		{name: "symbol", err: &module.SymbolError{Module: "x", Symbol: "y"}, want: FailureSymbolNotFound},
		{name: "range", err: &descriptor.MalformedRangeError{Kind: abi.KindFilter}, want: FailureMalformedRange},
		{name: "query", err: &QueryError{Symbol: "s", Status: abi.StatusFail}, want: FailureDescriptorQueryFailed},
		{name: "creation", err: &invoke.CreationError{Status: abi.StatusFail}, want: FailureCreationFailed},
		{name: "null result", err: &invoke.NullResultError{}, want: FailureNullResultOnSuccess},
		{name: "wrapped fault", err: fmt.Errorf("copying: %w", descriptor.ErrFault), want: FailureCrashed},
		{name: "crash", err: &CrashError{Op: "create", Detail: "boom"}, want: FailureCrashed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseFailureKind(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"CreationFailed", "creation-failed", "CREATION_FAILED"} {
		got, err := ParseFailureKind(in)
		if err != nil || got != FailureCreationFailed {
			t.Errorf("ParseFailureKind(%q) = %q, %v", in, got, err)
		}
	}

	_, err := ParseFailureKind("exploded")
	if !errors.Is(err, ErrInvalidFailureKind) {
		t.Errorf("ParseFailureKind(exploded) error = %v", err)
	}

	for _, k := range FailureKinds() {
		if ok, errs := k.IsValid(); !ok {
			t.Errorf("%s.IsValid() = %v", k, errs)
		}
	}
	if ok, _ := FailureNone.IsValid(); ok {
		t.Error("FailureNone should not be a valid failure kind")
	}
}
