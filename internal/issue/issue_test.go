// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/glamour"
)

func TestValuesOrderedAndComplete(t *testing.T) {
	t.Parallel()

	all := Values()
	if len(all) != int(WorkerStartFailedId) {
		t.Fatalf("len(Values()) = %d, want %d", len(all), WorkerStartFailedId)
	}
	for i, is := range all {
		if is.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d", i, is.Id())
		}
		if is.Name() == "" || is.Summary() == "" || strings.TrimSpace(string(is.MarkdownMsg())) == "" {
			t.Errorf("issue %d lacks content", is.Id())
		}
		if Get(is.Id()) != is {
			t.Errorf("Get(%d) mismatch", is.Id())
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want Id
	}{
		{name: "ModuleNotFound", want: ModuleNotFoundId},
		{name: "null-result-on-success", want: NullResultOnSuccessId},
		{name: "  crashed ", want: CrashedId},
		{name: "oracle_invalid", want: OracleInvalidId},
		{name: "Count Mismatch", want: CountMismatchId},
	}
	for _, tt := range tests {
		got, ok := Lookup(tt.name)
		if !ok || got.Id() != tt.want {
			t.Errorf("Lookup(%q) = %v, %v", tt.name, got, ok)
		}
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("Lookup(nope) should fail")
	}
}

func TestMarkdownLinks(t *testing.T) {
	t.Parallel()

	md := Get(ModuleNotFoundId).Markdown()
	if !strings.Contains(md, "## See also:") || !strings.Contains(md, "<https://man7.org/linux/man-pages/man3/dlopen.3.html>") {
		t.Errorf("Markdown() = %q", md)
	}
	if strings.Contains(Get(CrashedId).Markdown(), "See also") {
		t.Error("issue without links should have no See also section")
	}

	links := Get(ModuleNotFoundId).ExtLinks()
	links[0] = "changed"
	if Get(ModuleNotFoundId).ExtLinks()[0] == "changed" {
		t.Error("ExtLinks() should return a copy")
	}
}

func TestRender(t *testing.T) {
	// Swaps the package-level renderer.
	orig := render
	t.Cleanup(func() { render = orig })

	var gotIn, gotStyle string
	render = func(in, style string) (string, error) {
		gotIn, gotStyle = in, style
		return "rendered", nil
	}
	out, err := Get(CrashedId).Render("dark")
	if err != nil || out != "rendered" || gotStyle != "dark" || !strings.Contains(gotIn, "Foreign code crashed") {
		t.Errorf("Render() = %q, %v (in %q, style %q)", out, err, gotIn, gotStyle)
	}

	render = func(string, string) (string, error) { return "", errors.New("bad style") }
	if _, err := Get(CrashedId).Render("nope"); err == nil {
		t.Error("Render() should propagate renderer errors")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	t.Parallel()

	for _, is := range Values() {
		if _, err := glamour.Render(is.Markdown(), "notty"); err != nil {
			t.Errorf("issue %s failed to render: %v", is.Name(), err)
		}
	}
}
