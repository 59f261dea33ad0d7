// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/plugcheck/plugcheck/internal/issue"
	"github.com/plugcheck/plugcheck/internal/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	return testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "config.cue"), content)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
modules_dir: "/opt/plugins"
isolation:   "inline"
tests: ["module-reload"]
ui: verbose: true
`)
	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.ModulesDir != "/opt/plugins" || cfg.Isolation != IsolationInline || !cfg.UI.Verbose {
		t.Errorf("cfg = %+v", cfg)
	}
	if !slices.Equal(cfg.Tests, []TestName{TestModuleReload}) {
		t.Errorf("Tests = %v", cfg.Tests)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("unset key lost its default: %q", cfg.UI.ColorScheme)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want none", resolved)
	}
	if cfg.Isolation != IsolationProcess || len(cfg.Tests) != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: `modules: "x"`, want: "modules"},
		{name: "bad isolation", content: `isolation: "sandbox"`, want: "isolation"},
		{name: "bad test name", content: `tests: ["smoke"]`, want: "tests[0]"},
		{name: "syntax", content: `isolation: `, want: "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: writeConfig(t, tt.content)})
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error = %v, want ActionableError", err)
			}
			if ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Issue = %d", ae.Issue)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PLUGCHECK_ISOLATION", "inline")
	t.Setenv("PLUGCHECK_UI_VERBOSE", "true")
	t.Setenv("PLUGCHECK_ORACLE_FILE", "/etc/oracle.toml")

	path := writeConfig(t, `isolation: "process"`)
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Isolation != IsolationInline || !cfg.UI.Verbose || cfg.OracleFile != "/etc/oracle.toml" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestEnvironmentOverrideValidated(t *testing.T) {
	t.Setenv("PLUGCHECK_ISOLATION", "sandbox")

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), `"sandbox"`) {
		t.Errorf("error = %v, want invalid isolation", err)
	}
}

func TestInitAndRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := Init(LoadOptions{ConfigDirPath: dir}, false)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	located, err := Locate(LoadOptions{ConfigDirPath: dir})
	if err != nil || located != path {
		t.Errorf("Locate() = %q, %v", located, err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Isolation != IsolationProcess || len(cfg.Tests) != 3 {
		t.Errorf("round trip cfg = %+v", cfg)
	}

	if _, err := Init(LoadOptions{ConfigDirPath: dir}, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second Init() error = %v, want ErrConfigExists", err)
	}
	if _, err := Init(LoadOptions{ConfigDirPath: dir}, true); err != nil {
		t.Errorf("forced Init() error: %v", err)
	}
}

func TestGenerateCUE(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ModulesDir = `C:\plugins`
	out := GenerateCUE(cfg)
	for _, want := range []string{
		`modules_dir: "C:\\plugins"`,
		`// oracle_file:`,
		`isolation: "process"`,
		`tests: ["descriptor-counts", "entity-validation", "module-reload"]`,
		`color_scheme: "auto"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("GenerateCUE() missing %q:\n%s", want, out)
		}
	}
}

func TestConfigDirOverride(t *testing.T) {
	SetConfigDirOverride("/tmp/plugcheck-test")
	t.Cleanup(Reset)

	dir, err := ConfigDir()
	if err != nil || dir != "/tmp/plugcheck-test" {
		t.Errorf("ConfigDir() = %q, %v", dir, err)
	}
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	base := DefaultConfig()
	p := NewStaticProvider(base)
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigFilePath: "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Tests[0] = "changed"
	if base.Tests[0] != TestDescriptorCounts {
		t.Error("static provider leaked its config")
	}
}

func TestConfigDirFromHome(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is Linux specific")
	}
	home := t.TempDir()
	testutil.SetHomeDir(t, home)
	t.Setenv("XDG_CONFIG_HOME", "")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".config", AppName); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestLocateWorkingDirectory(t *testing.T) {
	wd := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(wd, "config.cue"), `isolation: "inline"`)
	testutil.MustChdir(t, wd)

	path, err := Locate(LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil || path != "config.cue" {
		t.Fatalf("Locate() = %q, %v", path, err)
	}
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Isolation != IsolationInline {
		t.Errorf("Isolation = %q, want inline", cfg.Isolation)
	}
}
