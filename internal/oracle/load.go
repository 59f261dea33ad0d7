// SPDX-License-Identifier: MPL-2.0

package oracle

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/plugcheck/plugcheck/internal/issue"
	"github.com/plugcheck/plugcheck/pkg/abi"
	"github.com/plugcheck/plugcheck/pkg/cueutil"
	"github.com/plugcheck/plugcheck/pkg/guid"
	"github.com/plugcheck/plugcheck/pkg/platform"
)

// DefaultSource is the Source of the embedded oracle.
const DefaultSource = "<embedded>/default_oracle.cue"

// ErrUnsupportedFormat is returned for oracle files that are neither CUE nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported oracle format")

var (
	//go:embed oracle_schema.cue
	schema []byte

	//go:embed default_oracle.cue
	defaultOracle []byte
)

type (
	document struct {
		Version     string      `json:"version"`
		Description string      `json:"description,omitempty"`
		Modules     []moduleDoc `json:"modules"`
		Groups      []groupDoc  `json:"descriptor_groups,omitempty"`
	}

	moduleDoc struct {
		Name    string     `json:"name"`
		Entries []entryDoc `json:"entries"`
	}

	entryDoc struct {
		Kind        string   `json:"kind"`
		Descriptors string   `json:"descriptors,omitempty"`
		Factory     string   `json:"factory,omitempty"`
		NeedsInput  bool     `json:"needs_input"`
		Expected    int      `json:"expected"`
		Skip        []string `json:"skip,omitempty"`
	}

	groupDoc struct {
		Kind     string         `json:"kind"`
		Symbol   string         `json:"symbol,omitempty"`
		Expected map[string]int `json:"expected"`
	}
)

// Schema returns the embedded CUE schema.
func Schema() []byte { return schema }

// DefaultDocument returns the embedded registry document.
func DefaultDocument() []byte { return defaultOracle }

// Default returns the embedded oracle for the reference plugin set.
func Default() (*Oracle, error) {
	return Parse(defaultOracle, DefaultSource)
}

// Load reads an oracle file. The format follows the extension: .cue or .toml.
func Load(path string) (*Oracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("read oracle").
			WithResource(path).
			WithSuggestion("Check the --oracle flag or the oracle_file configuration key").
			Wrap(err).
			Build()
	}
	return Parse(data, path)
}

// Parse decodes and validates an oracle. filename selects the format and
// names the document in errors.
func Parse(data []byte, filename string) (*Oracle, error) {
	var (
		doc *document
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cue":
		doc, err = parseCUE(data, filename)
	case ".toml":
		doc, err = parseTOML(data, filename)
	default:
		err = fmt.Errorf("%w: %q (want .cue or .toml)", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err == nil {
		var o *Oracle
		if o, err = build(doc, filename); err == nil {
			return o, nil
		}
	}

	return nil, issue.NewErrorContext().
		WithOperation("load oracle").
		WithResource(filename).
		WithSuggestions(suggestionsFor(err)...).
		WithIssue(issue.OracleInvalidId).
		Wrap(err).
		Build()
}

func parseCUE(data []byte, filename string) (*document, error) {
	res, err := cueutil.ParseAndDecode[document](schema, data, "#Oracle", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func parseTOML(data []byte, filename string) (*document, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %s", filename, row, col, derr.Error())
		}
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	res, err := cueutil.ValidateValue[document](schema, raw, "#Oracle", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func build(doc *document, source string) (*Oracle, error) {
	o := &Oracle{
		version:     doc.Version,
		description: doc.Description,
		source:      source,
	}

	seen := make(map[string]bool, len(doc.Modules))
	entries := 0
	for _, md := range doc.Modules {
		if seen[md.Name] {
			return nil, &DuplicateModuleError{Name: md.Name}
		}
		seen[md.Name] = true
		if platform.IsWindowsReservedName(md.Name) {
			return nil, fmt.Errorf("%w: %q", ErrReservedModuleName, md.Name)
		}

		m := Module{Name: md.Name}
		for i, ed := range md.Entries {
			e, err := buildEntry(ed)
			if err != nil {
				return nil, fmt.Errorf("module %q entry %d: %w", md.Name, i, err)
			}
			m.Entries = append(m.Entries, e)
		}
		entries += len(m.Entries)
		o.modules = append(o.modules, m)
	}
	if entries == 0 {
		return nil, ErrEmptyRegistry
	}

	for i, gd := range doc.Groups {
		kind, err := abi.ParseKind(gd.Kind)
		if err != nil {
			return nil, fmt.Errorf("descriptor group %d: %w", i, err)
		}
		symbol := gd.Symbol
		if symbol == "" {
			symbol = kind.DescriptorSymbol()
		}
		o.groups = append(o.groups, Group{Kind: kind, Symbol: symbol, Expected: gd.Expected})
	}
	return o, nil
}

func buildEntry(ed entryDoc) (Entry, error) {
	kind, err := abi.ParseKind(ed.Kind)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		Kind:        kind,
		Descriptors: ed.Descriptors,
		Factory:     ed.Factory,
		NeedsInput:  ed.NeedsInput,
		Expected:    ed.Expected,
	}
	if e.Descriptors == "" {
		e.Descriptors = kind.DescriptorSymbol()
	}
	if e.Factory == "" {
		e.Factory = kind.FactorySymbol()
	}
	for _, s := range ed.Skip {
		id, err := guid.Parse(s)
		if err != nil {
			return Entry{}, fmt.Errorf("skip list: %w", err)
		}
		e.Skip = append(e.Skip, id)
	}
	return e, nil
}

func suggestionsFor(err error) []string {
	switch {
	case errors.Is(err, ErrEmptyRegistry):
		return []string{"Declare at least one module with at least one entry under 'modules'"}
	case errors.Is(err, ErrDuplicateModule):
		return []string{"Merge the entries of a module into a single 'modules' item"}
	case errors.Is(err, ErrReservedModuleName):
		return []string{"Rename the module; Windows cannot load a library named after a device"}
	case errors.Is(err, ErrUnsupportedFormat):
		return []string{"Rename the file to .cue or .toml"}
	default:
		return []string{"Compare the document against the schema: plugcheck config dump --oracle-schema"}
	}
}
