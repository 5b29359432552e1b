package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/cleanscan/internal/waste"
)

// extractJSON pulls the JSON object out of a free-text model answer,
// tolerating markdown code fences and surrounding prose.
func extractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty answer", waste.ErrNoStructuredResult)
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found in response", waste.ErrMalformedResult)
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("%w: invalid JSON object in response", waste.ErrMalformedResult)
	}
	text = text[startIdx : endIdx+1]

	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: answer is not valid JSON", waste.ErrMalformedResult)
	}
	return json.RawMessage(text), nil
}
