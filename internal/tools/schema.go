package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema renders the definition's parameters as a JSON Schema
// object suitable for LLM function-calling manifests and for argument
// validation.
func (d Definition) JSONSchema() map[string]any {
	properties := make(map[string]any, len(d.Parameters))
	var required []string
	for _, p := range d.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var schemaCache sync.Map // schema JSON -> *jsonschema.Schema

// compiledSchema compiles the definition's parameter schema, caching
// by rendered JSON.
func (d Definition) compiledSchema() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(d.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("encode schema for %s: %w", d.Name, err)
	}

	key := string(raw)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString(d.Name+".schema.json", key)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", d.Name, err)
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}

// ValidateArgs checks args against the parameter schema. A nil args
// map is treated as empty.
func (d Definition) ValidateArgs(args map[string]any) error {
	schema, err := d.compiledSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so typed values (int, etc.) become the
	// plain forms the validator expects.
	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	if decoded == nil {
		decoded = map[string]any{}
	}

	if err := schema.Validate(decoded); err != nil {
		return err
	}
	return nil
}

// ApplyDefaults returns a copy of args with declared defaults filled
// in for absent parameters. The input map is not modified.
func (d Definition) ApplyDefaults(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range d.Parameters {
		if p.Default == nil {
			continue
		}
		if _, present := out[p.Name]; !present {
			out[p.Name] = p.Default
		}
	}
	return out
}
