// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets scripts invoke "plugcheck" without building the binary:
// testscript re-executes this test binary under that name.
func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"plugcheck": func() { os.Exit(execute(context.Background())) },
	})
}

// TestScripts runs the CLI scripts in testdata/script. Scripts only use the
// inline isolation mode; the process mode re-executes the running binary,
// which under test is the test binary and not plugcheck.
func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
		Setup: func(env *testscript.Env) error {
			home := filepath.Join(env.WorkDir, "home")
			env.Setenv("HOME", home)
			env.Setenv("USERPROFILE", home)
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
			env.Setenv("APPDATA", filepath.Join(home, "AppData"))
			env.Setenv("NO_COLOR", "1")
			return nil
		},
	})
}
