package llm

import (
	"encoding/json"
	"fmt"
)

// jsonSchema lets a plain map satisfy json.Marshaler for the OpenAI response format.
type jsonSchema map[string]any

func (s jsonSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(s))
}

func describeSchema(schema map[string]any) (string, error) {
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode response schema: %w", err)
	}
	return string(b), nil
}
