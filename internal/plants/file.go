package plants

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed plants_schema.json
var plantsSchemaJSON string

var (
	compileOnce  sync.Once
	plantsSchema *jsonschema.Schema
	compileErr   error
)

// FileSchema returns the compiled JSON Schema for plant files.
func FileSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("plants_schema.json", strings.NewReader(plantsSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("plants_schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile plants schema: %w", err)
			return
		}
		plantsSchema = schema
	})
	return plantsSchema, compileErr
}

// Decode validates a plants file and decodes it. Per-plant "_meta" entries are
// accepted and ignored.
func Decode(data []byte) ([]Plant, error) {
	schema, err := FileSchema()
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("plants file is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("plants file does not match schema: %w", err)
	}
	var list []Plant
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode plants: %w", err)
	}
	return list, nil
}

// FileSource reads plants from a JSON file.
type FileSource struct {
	Path string
}

// Load reads and validates the file.
func (s FileSource) Load(ctx context.Context) ([]Plant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
