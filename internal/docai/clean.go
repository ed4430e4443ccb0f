package docai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanOutput strips leading/trailing whitespace and a wrapping Markdown
// code fence (```json ... ``` or plain ``` ... ```) from model output.
func CleanOutput(raw string) string {
	out := strings.TrimSpace(raw)
	if strings.HasPrefix(out, "```json") {
		out = strings.TrimSpace(strings.TrimPrefix(out, "```json"))
	} else if strings.HasPrefix(out, "```") {
		out = strings.TrimSpace(strings.TrimPrefix(out, "```"))
	}
	if strings.HasSuffix(out, "```") {
		out = strings.TrimSpace(strings.TrimSuffix(out, "```"))
	}
	return out
}

// ParseJSONObject cleans model output and unmarshals it into a map.
func ParseJSONObject(raw string) (map[string]any, error) {
	cleaned := CleanOutput(raw)
	if cleaned == "" {
		return nil, ErrEmptyOutput
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return parsed, nil
}
