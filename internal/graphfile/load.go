package graphfile

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Load reads a graph document, choosing the decoder by file extension:
// .cue for CUE, anything else for YAML (which also accepts JSON).
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	if filepath.Ext(path) == ".cue" {
		return DecodeCUE(path, data)
	}
	return DecodeYAML(data)
}

// DecodeYAML parses a YAML document. Unknown fields are rejected.
func DecodeYAML(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &doc, nil
}

// DecodeCUE evaluates a CUE document, unifies it with the #Document schema
// and decodes the result. filename is used in error positions only.
func DecodeCUE(filename string, data []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("building schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	value = schema.LookupPath(cue.ParsePath("#Document")).Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid graph document: %w", err)
	}

	var doc Document
	if err := value.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding graph document: %w", err)
	}
	return &doc, nil
}
