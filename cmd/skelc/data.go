package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/value"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// loadDataFile reads a YAML data file and decodes it into a generic
// map[string]any (via yaml.v3, which already normalizes nested mappings to
// map[string]any and sequences to []any for us), optionally validating it
// against a JSON Schema first.
func loadDataFile(path, schemaPath string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing data file as YAML: %w", err)
	}

	if schemaPath != "" {
		if err := validateData(doc, schemaPath); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// validateData checks doc against a JSON Schema file. jsonschema/v5 expects
// JSON-shaped values (json.Number rather than yaml.v3's bare int/int64), so
// doc is round-tripped through encoding/json first - the same normalization
// the teacher's core/types.Validator performs before compiling a schema.
func validateData(doc map[string]any, schemaPath string) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", schemaPath, err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalizing data file for schema validation: %w", err)
	}
	var jsonDoc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&jsonDoc); err != nil {
		return fmt.Errorf("normalizing data file for schema validation: %w", err)
	}

	if err := schema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("data file does not satisfy schema %s: %w", schemaPath, err)
	}
	return nil
}

// toValue converts a yaml.v3-decoded Go value into the engine's Value type,
// the boundary between the CLI's JSON/YAML-shaped world and pkgs/value's
// closed set of kinds.
func toValue(v any) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(x)
	case int:
		return value.Int(int64(x))
	case int64:
		return value.Int(x)
	case float64:
		return value.Float(x)
	case string:
		return value.String(x)
	case []any:
		items := make([]value.Value, len(x))
		for i, item := range x {
			items[i] = toValue(item)
		}
		return value.Vector(items)
	case map[string]any:
		m := value.NewMap()
		ref := m.MapRef()
		for k, item := range x {
			ref.Set(value.String(k), toValue(item))
		}
		return m
	case map[any]any:
		// yaml.v2-style untyped mapping key, defensive: yaml.v3 normally
		// decodes into map[string]any for string-keyed documents.
		m := value.NewMap()
		ref := m.MapRef()
		for k, item := range x {
			ref.Set(toValue(k), toValue(item))
		}
		return m
	default:
		return value.String(fmt.Sprintf("%v", x))
	}
}

// bindGlobals installs every top-level key of doc as a global on ctx.
func bindGlobals(ctx *evalctx.Context, doc map[string]any) {
	for k, v := range doc {
		ctx.SetGlobal(k, toValue(v))
	}
}
