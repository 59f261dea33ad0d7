// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// IsolationProcess runs every probe job in a re-executed worker process.
	// Defined locally to avoid coupling config to internal/contain.
	IsolationProcess Isolation = "process"
	// IsolationInline runs probe jobs in the harness process.
	IsolationInline Isolation = "inline"

	// TestDescriptorCounts checks descriptor counts per export group.
	TestDescriptorCounts TestName = "descriptor-counts"
	// TestEntityValidation enumerates and creates every registry entity.
	TestEntityValidation TestName = "entity-validation"
	// TestModuleReload loads every module twice and compares counts.
	TestModuleReload TestName = "module-reload"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidIsolation is returned when an Isolation value is not recognized.
	ErrInvalidIsolation = errors.New("invalid isolation")
	// ErrInvalidTestName is returned when a TestName value is not recognized.
	ErrInvalidTestName = errors.New("invalid test name")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Isolation selects the containment boundary for foreign code.
	Isolation string

	// InvalidIsolationError is returned when an Isolation value is not recognized.
	// It wraps ErrInvalidIsolation for errors.Is() compatibility.
	InvalidIsolationError struct {
		Value Isolation
	}

	// TestName names one registered validation test.
	TestName string

	// InvalidTestNameError is returned when a TestName value is not recognized.
	// It wraps ErrInvalidTestName for errors.Is() compatibility.
	InvalidTestNameError struct {
		Value TestName
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the harness configuration.
	Config struct {
		// ModulesDir is where relative module names resolve. Empty selects
		// DefaultModulesDir.
		ModulesDir string `json:"modules_dir" mapstructure:"modules_dir"`
		// OracleFile overrides the embedded validation oracle.
		OracleFile string `json:"oracle_file" mapstructure:"oracle_file"`
		// Isolation selects how foreign code is contained.
		Isolation Isolation `json:"isolation" mapstructure:"isolation"`
		// Tests lists the tests to run, in order.
		Tests []TestName `json:"tests" mapstructure:"tests"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

// TestNames returns every registered test in default run order.
func TestNames() []TestName {
	return []TestName{TestDescriptorCounts, TestEntityValidation, TestModuleReload}
}

// DefaultModulesDir returns the modules directory of the build layout the
// harness ships in: the binary sits two levels below the build root, next
// to compiled/Debug/filters.
func DefaultModulesDir(executable string) string {
	return filepath.Clean(filepath.Join(filepath.Dir(executable), "..", "..", "compiled", "Debug", "filters"))
}

// ResolveModulesDir returns ModulesDir, or DefaultModulesDir(executable)
// when it is unset.
func (c Config) ResolveModulesDir(executable string) string {
	if strings.TrimSpace(c.ModulesDir) != "" {
		return c.ModulesDir
	}
	return DefaultModulesDir(executable)
}

// IsValid returns whether the UIConfig has valid fields.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig and the field errors for errors.Is()
// compatibility.
func (e *InvalidUIConfigError) Unwrap() []error {
	return append([]error{ErrInvalidUIConfig}, e.FieldErrors...)
}

// IsValid returns whether the Config has valid fields. Every test name must
// be known and appear once.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Isolation.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	seen := make(map[TestName]bool, len(c.Tests))
	for _, name := range c.Tests {
		if valid, fieldErrs := name.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("test %q listed more than once", name))
		}
		seen[name] = true
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is()
// compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the Isolation.
func (i Isolation) String() string { return string(i) }

// IsValid returns whether the Isolation is a known containment mode.
func (i Isolation) IsValid() (bool, []error) {
	switch i {
	case IsolationProcess, IsolationInline:
		return true, nil
	default:
		return false, []error{&InvalidIsolationError{Value: i}}
	}
}

// Error implements the error interface for InvalidIsolationError.
func (e *InvalidIsolationError) Error() string {
	return fmt.Sprintf("invalid isolation %q (valid: process, inline)", e.Value)
}

// Unwrap returns ErrInvalidIsolation for errors.Is() compatibility.
func (e *InvalidIsolationError) Unwrap() error { return ErrInvalidIsolation }

// String returns the string representation of the TestName.
func (n TestName) String() string { return string(n) }

// IsValid returns whether the TestName names a registered test.
func (n TestName) IsValid() (bool, []error) {
	switch n {
	case TestDescriptorCounts, TestEntityValidation, TestModuleReload:
		return true, nil
	default:
		return false, []error{&InvalidTestNameError{Value: n}}
	}
}

// Error implements the error interface for InvalidTestNameError.
func (e *InvalidTestNameError) Error() string {
	return fmt.Sprintf("invalid test name %q (valid: descriptor-counts, entity-validation, module-reload)", e.Value)
}

// Unwrap returns ErrInvalidTestName for errors.Is() compatibility.
func (e *InvalidTestNameError) Unwrap() error { return ErrInvalidTestName }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ModulesDir: "",
		OracleFile: "",
		Isolation:  IsolationProcess,
		Tests:      TestNames(),
		UI: UIConfig{
			Verbose:     false,
			ColorScheme: ColorSchemeAuto,
		},
	}
}
