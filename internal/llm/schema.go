package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// QuestionListSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It is sent to the oracle as an output constraint and used locally to validate.
func QuestionListSchema() map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"text":      map[string]any{"type": "string", "minLength": 1},
			"type":      map[string]any{"type": "string", "minLength": 1},
			"category":  map[string]any{"type": "string"},
			"required":  map[string]any{"type": "boolean"},
			"options":   map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}},
			"help_text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"questions": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"questions"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
