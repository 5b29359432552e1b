package scanning

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/zombor/cleanscan/internal/waste"
)

// Vertex implements the Classifier interface using Vertex AI, authenticated
// with project credentials instead of an API key
type Vertex struct {
	client    *genai.Client
	modelName string
}

// NewVertex creates a new Vertex Classifier. credentialsFile is optional;
// application default credentials are used when it is empty.
func NewVertex(ctx context.Context, projectID, location, modelName, credentialsFile string) (*Vertex, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: vertex project is required", waste.ErrUnauthorized)
	}
	if location == "" {
		location = "us-central1"
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vertex client: %w", err)
	}

	return &Vertex{client: client, modelName: modelName}, nil
}

// Name returns the provider name
func (v *Vertex) Name() string { return "vertex" }

// Classify forces a single classify_waste function call and returns its arguments
func (v *Vertex) Classify(ctx context.Context, req *Request) (json.RawMessage, error) {
	img, err := PrepareImage(req.Image)
	if err != nil {
		return nil, err
	}

	model := v.client.GenerativeModel(v.modelName)
	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        req.ToolName,
			Description: req.ToolDescription,
			Parameters:  vertexSchema(req.Schema),
		}},
	}}
	model.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode:                 genai.FunctionCallingAny,
			AllowedFunctionNames: []string{req.ToolName},
		},
	}

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		genai.Text(req.Instruction),
	)
	if err != nil {
		return nil, apiError(v.Name(), err)
	}

	return toolArguments(v.Name(), req.ToolName, vertexCalls(resp))
}

// Close closes the Vertex client
func (v *Vertex) Close() error {
	return v.client.Close()
}

func vertexCalls(resp *genai.GenerateContentResponse) []functionCall {
	var calls []functionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if fc, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, functionCall{name: fc.Name, args: fc.Args})
			}
		}
	}
	return calls
}

var vertexTypes = schemaTypes[genai.Type]{
	object: genai.TypeObject,
	array:  genai.TypeArray,
	number: genai.TypeNumber,
	str:    genai.TypeString,
}

func vertexSchema(s *Schema) *genai.Schema {
	return convertSchema(s, func(s *Schema, items *genai.Schema, props map[string]*genai.Schema) *genai.Schema {
		return &genai.Schema{
			Type:        vertexTypes.of(s.Type),
			Description: s.Description,
			Enum:        s.Enum,
			Items:       items,
			Properties:  props,
			Required:    s.Required,
		}
	})
}
