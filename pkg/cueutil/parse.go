// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// ParseResult contains the result of a successful parse.
type ParseResult[T any] struct {
	// Value is the decoded Go struct.
	Value *T

	// Unified is the schema-unified CUE value.
	Unified cue.Value
}

// ExtractYAML converts YAML data into a CUE value without applying a schema.
// Callers use it to inspect discriminating fields, such as an API version,
// before committing to a schema.
func ExtractYAML(data []byte, opts ...Option) (cue.Value, error) {
	o := applyOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}
	return compileYAML(cuecontext.New(), data, o.filename)
}

// DecodeValue unifies an already-extracted user value with the schema and
// decodes it into T. The value must come from ExtractYAML.
func DecodeValue[T any](schema []byte, userValue cue.Value, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := applyOptions(opts)
	return decodeWithSchema[T](userValue.Context(), schema, userValue, schemaPath, o)
}

func compileYAML(ctx *cue.Context, data []byte, filename string) (cue.Value, error) {
	f, err := cueyaml.Extract(filename, data)
	if err != nil {
		return cue.Value{}, FormatError(err, filename)
	}
	v := ctx.BuildFile(f)
	if v.Err() != nil {
		return cue.Value{}, FormatError(v.Err(), filename)
	}
	return v, nil
}

func decodeWithSchema[T any](ctx *cue.Context, schema []byte, userValue cue.Value, schemaPath string, o options) (*ParseResult[T], error) {
	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, o.filename)
	}

	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}
