// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult holds a decoded document and the unified CUE value it came
// from.
type ParseResult[T any] struct {
	Value   *T
	Unified cue.Value
}

// ParseAndDecode compiles data as CUE, unifies it with the schemaPath
// definition in schema, validates it and decodes it into a T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	root, err := schemaRoot(ctx, schema, schemaPath)
	if err != nil {
		return nil, err
	}

	user := ctx.CompileBytes(data, cue.Filename(o.filename))
	if user.Err() != nil {
		return nil, FormatError(user.Err(), o.filename)
	}
	return decode[T](root.Unify(user), o)
}

// ParseAndDecodeString is ParseAndDecode with a string schema.
func ParseAndDecodeString[T any](schema string, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return ParseAndDecode[T]([]byte(schema), data, schemaPath, opts...)
}

// ValidateValue encodes an already decoded Go value (for example the map a
// TOML decoder produced), unifies it with the schemaPath definition and
// decodes the result into a T. Schema defaults are applied as with
// ParseAndDecode.
func ValidateValue[T any](schema []byte, value any, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := applyOptions(opts)

	ctx := cuecontext.New()
	root, err := schemaRoot(ctx, schema, schemaPath)
	if err != nil {
		return nil, err
	}

	user := ctx.Encode(value)
	if user.Err() != nil {
		return nil, FormatError(user.Err(), o.filename)
	}
	return decode[T](root.Unify(user), o)
}

func applyOptions(opts []Option) parseOptions {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func schemaRoot(ctx *cue.Context, schema []byte, schemaPath string) (cue.Value, error) {
	compiled := ctx.CompileBytes(schema)
	if compiled.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", compiled.Err())
	}
	root := compiled.LookupPath(cue.ParsePath(schemaPath))
	if root.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, root.Err())
	}
	return root, nil
}

func decode[T any](unified cue.Value, o parseOptions) (*ParseResult[T], error) {
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}
	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &ParseResult[T]{Value: &out, Unified: unified}, nil
}
