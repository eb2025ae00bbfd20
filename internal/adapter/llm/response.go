package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lingo-quiz/internal/domain"
)

var errNoJSONObject = errors.New("no JSON object found in LLM response")

// ExtractJSONObject strips reasoning blocks and surrounding prose from a model
// reply and returns the outermost JSON object.
func ExtractJSONObject(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)

	for {
		thinkStart := strings.Index(cleaned, "<think>")
		if thinkStart == -1 {
			break
		}
		thinkEnd := strings.Index(cleaned, "</think>")
		if thinkEnd == -1 || thinkEnd < thinkStart {
			break
		}
		cleaned = strings.TrimSpace(cleaned[:thinkStart] + cleaned[thinkEnd+len("</think>"):])
	}

	jsonStart := strings.Index(cleaned, "{")
	jsonEnd := strings.LastIndex(cleaned, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return "", domain.NewLLMError(domain.LLMInvalidResponse, fmt.Errorf("%w: %s", errNoJSONObject, truncate(cleaned, 200)))
	}

	candidate := cleaned[jsonStart : jsonEnd+1]
	if !json.Valid([]byte(candidate)) {
		return "", domain.NewLLMError(domain.LLMInvalidResponse, fmt.Errorf("malformed JSON in LLM response: %s", truncate(candidate, 200)))
	}
	return candidate, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
