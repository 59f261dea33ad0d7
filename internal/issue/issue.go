// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

// Catalog identifiers. The first eight mirror the probe failure taxonomy.
const (
	ModuleNotFoundId Id = iota + 1
	SymbolNotFoundId
	MalformedRangeId
	DescriptorQueryFailedId
	CountMismatchId
	CreationFailedId
	NullResultOnSuccessId
	CrashedId
	ConfigLoadFailedId
	OracleInvalidId
	WorkerStartFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Renderer interface {
		Render(in string, stylePath string) (string, error)
	}

	Issue struct {
		id       Id          // ID used to lookup the issue
		name     string      // name accepted by Lookup and shown by `plugcheck explain`
		summary  string      // one line for listings
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		extLinks []HttpLink  // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
}

func (i *Issue) Summary() string {
	return i.summary
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the page with its "See also" section appended.
func (i *Issue) Markdown() string {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also:\n")
		for _, link := range i.extLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return sb.String()
}

func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	moduleNotFoundIssue = &Issue{
		id:      ModuleNotFoundId,
		name:    "ModuleNotFound",
		summary: "the plugin module could not be loaded",
		mdMsg: `
# Module not found!

The dynamic library for a module listed in the oracle could not be loaded.

## Things you can try:
- Check the modules directory plugcheck resolved:
~~~
$ plugcheck config show
~~~

- Point plugcheck at the build output explicitly:
~~~
$ plugcheck run --modules-dir ./compiled/Debug/filters
~~~

- Names without an extension follow the platform convention:
  ` + "`signal`" + ` is loaded as ` + "`signal.dll`, `libsignal.so` or `libsignal.dylib`" + `.
- A module that exists but depends on a missing shared library fails the
  same way. Inspect its dependencies with ` + "`ldd`, `otool -L` or `dumpbin /dependents`" + `.`,
		extLinks: []HttpLink{
			"https://man7.org/linux/man-pages/man3/dlopen.3.html",
			"https://learn.microsoft.com/en-us/windows/win32/api/libloaderapi/nf-libloaderapi-loadlibraryexw",
		},
	}

	symbolNotFoundIssue = &Issue{
		id:      SymbolNotFoundId,
		name:    "SymbolNotFound",
		summary: "a factory export is missing from the module",
		mdMsg: `
# Symbol not found!

The module loaded, but a factory export named in the oracle is missing.
A missing *descriptor* export is not an error: it counts as zero records.

## Things you can try:
- List the module's exports:
~~~
$ nm -D --defined-only libsignal.so | grep do_
~~~

- Make sure the export is not name-mangled (declare it ` + "`extern \"C\"`" + `).
- Override the symbol in the oracle when the module uses a non-default name:
~~~cue
{kind: "signal", factory: "do_create_signal_v2", expected: 24}
~~~`,
		extLinks: []HttpLink{"https://man7.org/linux/man-pages/man3/dlsym.3.html"},
	}

	malformedRangeIssue = &Issue{
		id:      MalformedRangeId,
		name:    "MalformedRange",
		summary: "the descriptor range is not a whole number of records",
		mdMsg: `
# Malformed descriptor range!

The descriptor export returned a [begin, end) range that cannot be a table
of records of the requested kind. One of:

- the byte length is not a multiple of the record stride,
- exactly one of begin and end is null,
- end lies before begin.

## Things you can try:
- Check the record layout the module was compiled with. Strides are in
  pointer-sized words: filter 8, model and signal 9, solver, approximator
  and metric 2.
- Decode the table directly to see what plugcheck reads:
~~~
$ plugcheck inspect signal --kind filter
~~~`,
	}

	descriptorQueryFailedIssue = &Issue{
		id:      DescriptorQueryFailedId,
		name:    "DescriptorQueryFailed",
		summary: "the descriptor export returned a failing status",
		mdMsg: `
# Descriptor query failed!

The descriptor export returned a failing HRESULT, so its range was ignored.

## Things you can try:
- Look up the reported status code. ` + "`E_NOTIMPL`" + ` usually means the
  module does not provide this kind at all; drop the entry from the oracle
  or set its expected count to 0 with a matching export.
- Run with ` + "`--verbose`" + ` to see the exact status for each export.`,
		extLinks: []HttpLink{"https://learn.microsoft.com/en-us/windows/win32/seccrypto/common-hresult-values"},
	}

	countMismatchIssue = &Issue{
		id:      CountMismatchId,
		name:    "CountMismatch",
		summary: "the module reports a different number of descriptors than expected",
		mdMsg: `
# Descriptor count mismatch!

The module reported a different number of descriptor records than the oracle
expects.

## Things you can try:
- If entities were added or removed on purpose, update the ` + "`expected`" + ` count
  in your oracle:
~~~
$ plugcheck config dump --oracle > oracle.cue
~~~

- Compare the decoded table with the oracle:
~~~
$ plugcheck inspect model --kind signal
~~~`,
	}

	creationFailedIssue = &Issue{
		id:      CreationFailedId,
		name:    "CreationFailed",
		summary: "a factory returned a failing status",
		mdMsg: `
# Entity creation failed!

A factory returned a failing HRESULT for a descriptor the module itself
advertised. Any object it returned anyway was released.

## Things you can try:
- Check whether the entity needs an input object. Set ` + "`needs_input: true`" + `
  on the oracle entry so plugcheck passes one.
- Exclude a known-bad entity while it is being fixed:
~~~cue
{kind: "filter", expected: 11, skip: ["{6A2D3E51-0C7B-4F8E-9A11-2B3C4D5E6F70}"]}
~~~`,
	}

	nullResultOnSuccessIssue = &Issue{
		id:      NullResultOnSuccessId,
		name:    "NullResultOnSuccess",
		summary: "a factory succeeded without returning an object",
		mdMsg: `
# Factory returned no object!

A factory reported success but left the output pointer null. Callers cannot
tell this apart from a missing entity, so it is always a defect in the module.

## Things you can try:
- Make the factory return a failing status when it cannot build the entity.
- Check that the factory writes the output parameter on every success path.`,
	}

	crashedIssue = &Issue{
		id:      CrashedId,
		name:    "Crashed",
		summary: "foreign code faulted during a call",
		mdMsg: `
# Foreign code crashed!

A call into the module faulted. With process isolation (the default) the
probe worker died and plugcheck resumed with the next entity; the crashed
entity counts as one failure.

## Things you can try:
- Re-run only the affected module under a debugger. Inline isolation keeps
  everything in one process:
~~~
$ plugcheck run --isolation inline --test entity-validation
~~~

- A crash during enumeration usually means the descriptor table points at
  freed or unmapped memory.
- A crash during the unload step usually means a static destructor or a
  worker thread outlives the module.`,
	}

	configLoadFailedIssue = &Issue{
		id:      ConfigLoadFailedId,
		name:    "ConfigLoadFailed",
		summary: "the harness configuration could not be loaded",
		mdMsg: `
# Failed to load configuration!

The configuration file exists but could not be parsed or validated.

## Things you can try:
- Show which file plugcheck reads:
~~~
$ plugcheck config path
~~~

- Write a fresh file with the defaults:
~~~
$ plugcheck config init
~~~

- Known keys:
~~~cue
modules_dir: "/opt/plugins/filters"
oracle_file: "oracle.cue"
isolation:   "process" // or "inline"
tests: ["descriptor-counts", "entity-validation", "module-reload"]
ui: {verbose: false, color_scheme: "auto"}
~~~`,
	}

	oracleInvalidIssue = &Issue{
		id:      OracleInvalidId,
		name:    "OracleInvalid",
		summary: "the validation oracle is malformed",
		mdMsg: `
# Invalid oracle!

The oracle file failed schema validation or declares no module entries.

## Example oracle:
~~~cue
version: "1.0"
modules: [
	{name: "signal", entries: [
		{kind: "filter", needs_input: true, expected: 11},
		{kind: "signal", expected: 24},
	]},
]
descriptor_groups: [
	{kind: "filter", expected: {signal: 11, matlab: 0}},
]
~~~

## The same in TOML:
~~~toml
version = "1.0"

[[modules]]
name = "signal"

  [[modules.entries]]
  kind = "filter"
  needs_input = true
  expected = 11
~~~

## Things you can try:
- Print the full schema:
~~~
$ plugcheck config dump --oracle-schema
~~~`,
	}

	workerStartFailedIssue = &Issue{
		id:      WorkerStartFailedId,
		name:    "WorkerStartFailed",
		summary: "the isolated probe worker could not be started",
		mdMsg: `
# Probe worker failed to start!

Process isolation re-executes the plugcheck binary for every module. That
process could not be started.

## Things you can try:
- Make sure the plugcheck binary is still present and executable.
- Fall back to in-process probing:
~~~
$ plugcheck run --isolation inline
~~~`,
	}

	issues = map[Id]*Issue{
		moduleNotFoundIssue.Id():        moduleNotFoundIssue,
		symbolNotFoundIssue.Id():        symbolNotFoundIssue,
		malformedRangeIssue.Id():        malformedRangeIssue,
		descriptorQueryFailedIssue.Id(): descriptorQueryFailedIssue,
		countMismatchIssue.Id():         countMismatchIssue,
		creationFailedIssue.Id():        creationFailedIssue,
		nullResultOnSuccessIssue.Id():   nullResultOnSuccessIssue,
		crashedIssue.Id():               crashedIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		oracleInvalidIssue.Id():         oracleInvalidIssue,
		workerStartFailedIssue.Id():     workerStartFailedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

// Get returns the issue registered under id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an issue by name. Case, dashes, underscores and spaces are
// ignored, so "null-result-on-success" matches NullResultOnSuccess.
func Lookup(name string) (*Issue, bool) {
	key := normalize(name)
	for _, i := range issues {
		if normalize(i.name) == key {
			return i, true
		}
	}
	return nil, false
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
