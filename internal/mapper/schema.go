package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// analysisSchema constrains the raw provider payload before mapping: a
// documents array whose entries carry a fields object.
func analysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"documents": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"docType": map[string]any{"type": "string"},
						"fields":  map[string]any{"type": "object"},
					},
					"required": []string{"fields"},
				},
			},
		},
		"required": []string{"documents"},
	}
}

// ValidateRaw validates a raw provider payload against the analysis schema.
func ValidateRaw(data []byte) error {
	b, err := json.Marshal(analysisSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analysis.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("analysis.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("analysis result does not match schema: %w", err)
	}
	return nil
}
