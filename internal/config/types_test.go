// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Isolation != IsolationProcess {
		t.Errorf("Isolation = %q, want process", cfg.Isolation)
	}
	if len(cfg.Tests) != 3 || cfg.Tests[0] != TestDescriptorCounts {
		t.Errorf("Tests = %v", cfg.Tests)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto || cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestConfigIsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Config)
		sentinel error
	}{
		{name: "bad isolation", mutate: func(c *Config) { c.Isolation = "sandbox" }, sentinel: ErrInvalidIsolation},
		{name: "bad test", mutate: func(c *Config) { c.Tests = []TestName{"smoke"} }, sentinel: ErrInvalidTestName},
		{name: "bad color", mutate: func(c *Config) { c.UI.ColorScheme = "neon" }, sentinel: ErrInvalidColorScheme},
		{name: "duplicate test", mutate: func(c *Config) { c.Tests = []TestName{TestModuleReload, TestModuleReload} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			valid, errs := cfg.IsValid()
			if valid || len(errs) != 1 {
				t.Fatalf("IsValid() = %v, %v", valid, errs)
			}
			if !errors.Is(errs[0], ErrInvalidConfig) {
				t.Errorf("error does not wrap ErrInvalidConfig: %v", errs[0])
			}
			var ce *InvalidConfigError
			if !errors.As(errs[0], &ce) {
				t.Fatalf("error is %T", errs[0])
			}
			if tt.sentinel != nil && !errors.Is(errors.Join(ce.FieldErrors...), tt.sentinel) {
				t.Errorf("field errors %v do not wrap %v", ce.FieldErrors, tt.sentinel)
			}
			if tt.sentinel != nil && !errors.Is(errs[0], tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", errs[0], tt.sentinel)
			}
		})
	}
}

func TestDefaultModulesDir(t *testing.T) {
	t.Parallel()

	exe := filepath.Join("opt", "suite", "bin", "Debug", "plugcheck")
	want := filepath.Join("opt", "suite", "compiled", "Debug", "filters")
	if got := DefaultModulesDir(exe); got != want {
		t.Errorf("DefaultModulesDir() = %q, want %q", got, want)
	}

	cfg := Config{}
	if got := cfg.ResolveModulesDir(exe); got != want {
		t.Errorf("ResolveModulesDir() = %q, want %q", got, want)
	}
	cfg.ModulesDir = "/plugins"
	if got := cfg.ResolveModulesDir(exe); got != "/plugins" {
		t.Errorf("ResolveModulesDir() = %q", got)
	}
}

func TestTypedValues(t *testing.T) {
	t.Parallel()

	for _, n := range TestNames() {
		if valid, _ := n.IsValid(); !valid {
			t.Errorf("%s should be valid", n)
		}
	}
	_, errs := Isolation("x").IsValid()
	if len(errs) != 1 || errs[0].Error() != `invalid isolation "x" (valid: process, inline)` {
		t.Errorf("Isolation errors = %v", errs)
	}
	if IsolationInline.String() != "inline" || ColorSchemeDark.String() != "dark" || TestModuleReload.String() != "module-reload" {
		t.Error("String() mismatch")
	}
}

func TestInvalidUIConfigErrorUnwrap(t *testing.T) {
	t.Parallel()

	_, errs := UIConfig{ColorScheme: "neon"}.IsValid()
	if len(errs) != 1 {
		t.Fatalf("IsValid() errors = %v", errs)
	}
	if !errors.Is(errs[0], ErrInvalidUIConfig) {
		t.Error("error does not wrap ErrInvalidUIConfig")
	}
	if !errors.Is(errs[0], ErrInvalidColorScheme) {
		t.Error("error does not wrap ErrInvalidColorScheme")
	}
}
