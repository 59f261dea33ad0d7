// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestFakeClock(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	start := c.Now()
	if start != time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("default start = %v", start)
	}
	c.Advance(1500 * time.Millisecond)
	if got := c.Since(start); got != 1500*time.Millisecond {
		t.Errorf("Since() = %v", got)
	}

	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if NewFakeClock(fixed).Now() != fixed {
		t.Error("NewFakeClock ignored its initial time")
	}
}

func TestMustWriteFile(t *testing.T) {
	t.Parallel()

	path := MustWriteFile(t, filepath.Join(t.TempDir(), "a", "b", "oracle.cue"), `version: "1.0"`)
	data, err := os.ReadFile(path)
	if err != nil || string(data) != `version: "1.0"` {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}
}

func TestProcessParallelism(t *testing.T) {
	t.Setenv("PLUGCHECK_TEST_PROCESS_PARALLEL", "7")
	if got := processParallelism(); got != 7 {
		t.Errorf("processParallelism() = %d, want 7", got)
	}
	t.Setenv("PLUGCHECK_TEST_PROCESS_PARALLEL", "zero")
	if got := processParallelism(); got != min(runtime.GOMAXPROCS(0), 4) {
		t.Errorf("processParallelism() = %d", got)
	}
}

func TestSetHomeDirAndChdir(t *testing.T) {
	dir := t.TempDir()
	SetHomeDir(t, dir)
	home, err := os.UserHomeDir()
	if err != nil || home != dir {
		t.Errorf("UserHomeDir() = %q, %v", home, err)
	}

	MustChdir(t, dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if resolved, _ := filepath.EvalSymlinks(dir); wd != dir && wd != resolved {
		t.Errorf("Getwd() = %q, want %q", wd, dir)
	}
}
