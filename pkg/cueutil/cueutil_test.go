// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Doc: {
	name:   string & !=""
	count:  int & >=0
	strict: bool | *false
	items?: [...{id: string}]
}
`

type testDoc struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Strict bool   `json:"strict"`
	Items  []struct {
		ID string `json:"id"`
	} `json:"items,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr string
		check   func(*testing.T, *testDoc)
	}{
		{
			name: "valid with default",
			data: `name: "signal", count: 11`,
			check: func(t *testing.T, d *testDoc) {
				t.Helper()
				if d.Name != "signal" || d.Count != 11 || d.Strict {
					t.Errorf("decoded %+v", d)
				}
			},
		},
		{
			name:    "constraint violation names the path",
			data:    `name: "x", count: 1, items: [{id: 3}]`,
			wantErr: "items[0].id",
		},
		{
			name:    "negative count",
			data:    `name: "x", count: -1`,
			wantErr: "count",
		},
		{
			name:    "syntax error",
			data:    `name: "x" count`,
			wantErr: "doc.cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(tt.data), "#Doc", WithFilename("doc.cue"))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAndDecode() error: %v", err)
			}
			tt.check(t, res.Value)
		})
	}
}

func TestValidateValue(t *testing.T) {
	t.Parallel()

	res, err := ValidateValue[testDoc]([]byte(testSchema), map[string]any{
		"name":  "metric",
		"count": int64(21),
	}, "#Doc")
	if err != nil {
		t.Fatalf("ValidateValue() error: %v", err)
	}
	if res.Value.Name != "metric" || res.Value.Count != 21 || res.Value.Strict {
		t.Errorf("decoded %+v", res.Value)
	}

	_, err = ValidateValue[testDoc]([]byte(testSchema), map[string]any{"name": "", "count": int64(1)}, "#Doc", WithFilename("oracle.toml"))
	if err == nil || !strings.Contains(err.Error(), "oracle.toml") {
		t.Errorf("ValidateValue() error = %v, want failure naming oracle.toml", err)
	}
}

func TestMissingDefinition(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`name: "x", count: 1`), "#Nope")
	if err == nil || !strings.Contains(err.Error(), "#Nope") {
		t.Errorf("error = %v, want missing definition", err)
	}
}

func TestFileSizeLimit(t *testing.T) {
	t.Parallel()

	data := []byte(`name: "` + strings.Repeat("a", 200) + `", count: 1`)
	_, err := ParseAndDecode[testDoc]([]byte(testSchema), data, "#Doc", WithMaxFileSize(64))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("error = %v, want size limit", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{path: nil, want: ""},
		{path: []string{"version"}, want: "version"},
		{path: []string{"modules", "3", "entries", "0", "kind"}, want: "modules[3].entries[0].kind"},
		{path: []string{"descriptor_groups", "1", "expected", "signal"}, want: "descriptor_groups[1].expected.signal"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFormatErrorPlain(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "x.cue") != nil {
		t.Error("FormatError(nil) should be nil")
	}
	cause := errors.New("boom")
	err := FormatError(cause, "x.cue")
	if !errors.Is(err, cause) || err.Error() != "x.cue: boom" {
		t.Errorf("FormatError() = %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.File != "x.cue" {
		t.Errorf("FormatError() = %T, want *ValidationError", err)
	}
}
