// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "load oracle"},
			expected: "failed to load oracle",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "load oracle", Resource: "./oracle.toml"},
			expected: "failed to load oracle: ./oracle.toml",
		},
		{
			name:     "operation with cause",
			err:      &ActionableError{Operation: "parse config", Cause: errors.New("syntax error at line 5")},
			expected: "failed to parse config: syntax error at line 5",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load oracle",
				Resource:  "./oracle.cue",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to load oracle: ./oracle.cue: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := &ActionableError{Operation: "test", Cause: fmt.Errorf("wrapped: %w", cause)}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "test"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "simple",
			err:      &ActionableError{Operation: "load config"},
			contains: []string{"failed to load config"},
			excludes: []string{"•", "Error chain"},
		},
		{
			name: "suggestions",
			err: &ActionableError{
				Operation:   "load oracle",
				Resource:    "./oracle.cue",
				Suggestions: []string{"Run 'plugcheck config init'", "Check file permissions"},
			},
			contains: []string{"./oracle.cue", "• Run 'plugcheck config init'", "• Check file permissions"},
		},
		{
			name: "linked issue",
			err: &ActionableError{
				Operation: "load oracle",
				Issue:     OracleInvalidId,
			},
			contains: []string{"• Run 'plugcheck explain OracleInvalid' for details"},
		},
		{
			name: "unknown issue is ignored",
			err: &ActionableError{
				Operation: "load oracle",
				Issue:     Id(999),
			},
			excludes: []string{"explain"},
		},
		{
			name: "verbose chain",
			err: &ActionableError{
				Operation: "start probe worker",
				Cause:     fmt.Errorf("exec: %w", errors.New("permission denied")),
			},
			verbose:  true,
			contains: []string{"Error chain:", "1. exec: permission denied", "2. permission denied"},
		},
		{
			name: "non-verbose hides chain",
			err: &ActionableError{
				Operation: "start probe worker",
				Cause:     errors.New("permission denied"),
			},
			excludes: []string{"Error chain:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.err.Format(tt.verbose)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Format() = %q, missing %q", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Format() = %q, should not contain %q", got, unwanted)
				}
			}
		})
	}
}

func TestActionableError_FormatKeepsSuggestions(t *testing.T) {
	t.Parallel()

	sugs := make([]string, 1, 4)
	sugs[0] = "first"
	err := &ActionableError{Operation: "x", Suggestions: sugs, Issue: CrashedId}
	_ = err.Format(false)
	if len(err.Suggestions) != 1 || sugs[:2][1] != "" {
		t.Error("Format() must not modify Suggestions")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("load oracle").
		WithResource("oracle.toml").
		WithSuggestion("one").
		WithSuggestions("two", "three").
		WithIssue(OracleInvalidId).
		Wrap(cause).
		Build()

	if ae.Operation != "load oracle" || ae.Resource != "oracle.toml" || ae.Issue != OracleInvalidId {
		t.Errorf("Build() = %+v", ae)
	}
	if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
		t.Errorf("Suggestions = %v", ae.Suggestions)
	}
	if !errors.Is(ae, cause) {
		t.Error("Build() lost the cause")
	}

	if NewErrorContext().Build() != nil {
		t.Error("Build() without operation should be nil")
	}
	if NewErrorContext().WithResource("x").BuildError() != nil {
		t.Error("BuildError() without operation should be nil")
	}
}
