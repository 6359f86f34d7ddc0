package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateResultJSONSchema produces a JSON Schema Draft 2020-12 document
// from the Go TestResult struct using invopop/jsonschema.
func GenerateResultJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&TestResult{})
	s.ID = "https://github.com/camarero-ai/dinerbench/schemas/result-v0.json"
	s.Title = "Dinerbench Test Result v0"
	s.Description = "Schema for persisted dinerbench test result JSON documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result schema: %w", err)
	}
	return data, nil
}
