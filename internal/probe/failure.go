// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plugcheck/plugcheck/internal/descriptor"
	"github.com/plugcheck/plugcheck/internal/invoke"
	"github.com/plugcheck/plugcheck/internal/module"
	"github.com/plugcheck/plugcheck/pkg/abi"
)

const (
	// FailureNone marks a successful step.
	FailureNone FailureKind = ""
	// FailureModuleNotFound means the module could not be loaded.
	FailureModuleNotFound FailureKind = "ModuleNotFound"
	// FailureSymbolNotFound means a required export is missing.
	FailureSymbolNotFound FailureKind = "SymbolNotFound"
	// FailureMalformedRange means the descriptor range is not a whole
	// number of records.
	FailureMalformedRange FailureKind = "MalformedRange"
	// FailureDescriptorQueryFailed means the descriptor export returned a
	// failing status.
	FailureDescriptorQueryFailed FailureKind = "DescriptorQueryFailed"
	// FailureCountMismatch means the descriptor count differs from the
	// registry's expectation.
	FailureCountMismatch FailureKind = "CountMismatch"
	// FailureCreationFailed means a factory returned a failing status.
	FailureCreationFailed FailureKind = "CreationFailed"
	// FailureNullResultOnSuccess means a factory succeeded with no object.
	FailureNullResultOnSuccess FailureKind = "NullResultOnSuccess"
	// FailureCrashed means foreign code faulted.
	FailureCrashed FailureKind = "Crashed"
)

var (
	// ErrInvalidFailureKind is the sentinel error wrapped by InvalidFailureKindError.
	ErrInvalidFailureKind = errors.New("invalid failure kind")
	// ErrCrashed is the sentinel for faults intercepted during a foreign call.
	ErrCrashed = errors.New("foreign code crashed")
	// ErrDescriptorQueryFailed is the sentinel wrapped by QueryError.
	ErrDescriptorQueryFailed = errors.New("descriptor query failed")
)

type (
	// FailureKind classifies why a step of a probe failed.
	FailureKind string

	// InvalidFailureKindError is returned when a FailureKind value is not recognized.
	InvalidFailureKindError struct {
		Value FailureKind
	}

	// CrashError describes a fault intercepted during a foreign call.
	CrashError struct {
		Op     string
		Detail string
	}

	// QueryError is returned when a descriptor export reports a failing status.
	QueryError struct {
		Symbol string
		Status abi.Status
	}
)

// FailureKinds returns every failure kind in reporting order.
func FailureKinds() []FailureKind {
	return []FailureKind{
		FailureModuleNotFound,
		FailureSymbolNotFound,
		FailureMalformedRange,
		FailureDescriptorQueryFailed,
		FailureCountMismatch,
		FailureCreationFailed,
		FailureNullResultOnSuccess,
		FailureCrashed,
	}
}

// ParseFailureKind matches s case-insensitively, ignoring '-' and '_'.
func ParseFailureKind(s string) (FailureKind, error) {
	norm := func(v string) string {
		return strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(v))
	}
	want := norm(s)
	for _, k := range FailureKinds() {
		if norm(string(k)) == want {
			return k, nil
		}
	}
	return "", &InvalidFailureKindError{Value: FailureKind(s)}
}

// Classify maps an error returned by the module, descriptor or invoke
// packages to its FailureKind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, module.ErrModuleNotFound):
		return FailureModuleNotFound
	case errors.Is(err, module.ErrSymbolNotFound):
		return FailureSymbolNotFound
	case errors.Is(err, descriptor.ErrMalformedRange):
		return FailureMalformedRange
	case errors.Is(err, ErrDescriptorQueryFailed):
		return FailureDescriptorQueryFailed
	case errors.Is(err, invoke.ErrCreationFailed):
		return FailureCreationFailed
	case errors.Is(err, invoke.ErrNullResultOnSuccess):
		return FailureNullResultOnSuccess
	default:
		// Faults reading foreign memory and recovered panics land here.
		return FailureCrashed
	}
}

// Error implements the error interface.
func (e *InvalidFailureKindError) Error() string {
	names := make([]string, 0, len(FailureKinds()))
	for _, k := range FailureKinds() {
		names = append(names, string(k))
	}
	return fmt.Sprintf("invalid failure kind %q (valid: %s)", e.Value, strings.Join(names, ", "))
}

// Unwrap returns ErrInvalidFailureKind for errors.Is compatibility.
func (e *InvalidFailureKindError) Unwrap() error { return ErrInvalidFailureKind }

// IsValid returns whether the FailureKind is a known failure.
func (k FailureKind) IsValid() (bool, []error) {
	for _, known := range FailureKinds() {
		if k == known {
			return true, nil
		}
	}
	return false, []error{&InvalidFailureKindError{Value: k}}
}

// String returns the string representation of the FailureKind.
func (k FailureKind) String() string { return string(k) }

// Error implements the error interface.
func (e *CrashError) Error() string {
	return fmt.Sprintf("crashed during %s: %s", e.Op, e.Detail)
}

// Unwrap returns ErrCrashed for errors.Is compatibility.
func (e *CrashError) Unwrap() error { return ErrCrashed }

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%s returned %s", e.Symbol, e.Status)
}

// Unwrap returns ErrDescriptorQueryFailed for errors.Is compatibility.
func (e *QueryError) Unwrap() error { return ErrDescriptorQueryFailed }
