package scanning

import (
	"encoding/json"
	"fmt"

	"github.com/zombor/cleanscan/internal/waste"
)

// functionCall is one function call part returned by a provider
type functionCall struct {
	name string
	args map[string]any
}

// toolArguments returns the encoded arguments of the first call to toolName.
func toolArguments(provider, toolName string, calls []functionCall) (json.RawMessage, error) {
	for _, fc := range calls {
		if fc.name != toolName {
			continue
		}
		raw, err := json.Marshal(fc.args)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding function call arguments: %v", waste.ErrMalformedResult, err)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %s returned no function call", waste.ErrNoStructuredResult, provider)
}
