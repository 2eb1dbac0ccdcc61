// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
)

const testSchema = `
#Doc: {
	name:  string
	count: int | *1
	tags?: [...string]
}
`

type testDoc struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func decodeYAML(data []byte, opts ...Option) (*ParseResult[testDoc], error) {
	v, err := ExtractYAML(data, opts...)
	if err != nil {
		return nil, err
	}
	return DecodeValue[testDoc]([]byte(testSchema), v, "#Doc", opts...)
}

func TestDecodeYAML(t *testing.T) {
	t.Parallel()

	result, err := decodeYAML([]byte("name: demo\ntags: [a, b]\n"), WithFilename("doc.yaml"))
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if result.Value.Name != "demo" {
		t.Errorf("Name = %q, want demo", result.Value.Name)
	}
	if result.Value.Count != 1 {
		t.Errorf("Count = %d, want schema default 1", result.Value.Count)
	}
	if len(result.Value.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", result.Value.Tags)
	}
}

func TestDecodeYAML_TypeMismatch(t *testing.T) {
	t.Parallel()

	_, err := decodeYAML([]byte("name: demo\ncount: many\n"), WithFilename("doc.yaml"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error should be *SchemaError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "count") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestDecodeYAML_Concrete(t *testing.T) {
	t.Parallel()

	_, err := decodeYAML([]byte("count: 2\n"), WithFilename("doc.yaml"), WithConcrete(true))
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error should be *SchemaError, got %T: %v", err, err)
	}
	if len(schemaErr.Issues) == 0 || schemaErr.Issues[0].CUEPath != "name" {
		t.Errorf("issues = %+v, want one at name", schemaErr.Issues)
	}
}

func TestExtractYAML_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ExtractYAML([]byte("name: [unclosed\n"), WithFilename("bad.yaml"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "bad.yaml") {
		t.Errorf("error should contain filename, got: %v", err)
	}
}

func TestExtractYAML_SizeLimit(t *testing.T) {
	t.Parallel()

	_, err := ExtractYAML([]byte("name: demo\n"), WithMaxFileSize(4))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestExtractYAMLThenDecode(t *testing.T) {
	t.Parallel()

	v, err := ExtractYAML([]byte("name: staged\ncount: 3\n"), WithFilename("s.yaml"))
	if err != nil {
		t.Fatalf("ExtractYAML() error = %v", err)
	}
	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil || name != "staged" {
		t.Fatalf("name lookup = %q, %v", name, err)
	}
	result, err := DecodeValue[testDoc]([]byte(testSchema), v, "#Doc", WithFilename("s.yaml"))
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if result.Value.Count != 3 {
		t.Errorf("Count = %d, want 3", result.Value.Count)
	}
}
