package scanning

import (
	"context"
	"encoding/json"

	"github.com/zombor/cleanscan/internal/waste"
)

// ToolName is the function name the model must answer through
const ToolName = "classify_waste"

const toolDescription = "Return waste classification results for all items detected in the image"

// Image is a decoded still image ready to be sent to a provider
type Image struct {
	Data     []byte
	MIMEType string
}

// Request is the provider-agnostic descriptor of one classification call
type Request struct {
	Instruction     string
	Schema          *Schema
	ToolName        string
	ToolDescription string
	Image           Image
	Language        waste.Language
	Location        *waste.Location
}

// Classifier executes a Request against an external vision model.
// Classify makes exactly one attempt and returns the raw structured answer,
// unvalidated. Failures wrap one of the waste error sentinels.
type Classifier interface {
	// Name identifies the provider in logs and metrics
	Name() string
	Classify(ctx context.Context, req *Request) (json.RawMessage, error)
	// Close releases provider resources
	Close() error
}
