package scanning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/cleanscan/internal/waste"
)

// Gemini implements the Classifier interface using the Gemini API with
// function calling
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a new Gemini Classifier instance
func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", waste.ErrUnauthorized)
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
	}, nil
}

// Name returns the provider name
func (g *Gemini) Name() string { return "gemini" }

// Classify forces a single classify_waste function call and returns its arguments
func (g *Gemini) Classify(ctx context.Context, req *Request) (json.RawMessage, error) {
	img, err := PrepareImage(req.Image)
	if err != nil {
		return nil, err
	}

	// A fresh model handle per call keeps tool settings out of shared state
	model := g.client.GenerativeModel(g.modelName)
	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        req.ToolName,
			Description: req.ToolDescription,
			Parameters:  geminiSchema(req.Schema),
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
		return nil, apiError(g.Name(), err)
	}

	return toolArguments(g.Name(), req.ToolName, geminiCalls(resp))
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

func geminiCalls(resp *genai.GenerateContentResponse) []functionCall {
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

var geminiTypes = schemaTypes[genai.Type]{
	object: genai.TypeObject,
	array:  genai.TypeArray,
	number: genai.TypeNumber,
	str:    genai.TypeString,
}

func geminiSchema(s *Schema) *genai.Schema {
	return convertSchema(s, func(s *Schema, items *genai.Schema, props map[string]*genai.Schema) *genai.Schema {
		return &genai.Schema{
			Type:        geminiTypes.of(s.Type),
			Description: s.Description,
			Enum:        s.Enum,
			Items:       items,
			Properties:  props,
			Required:    s.Required,
		}
	})
}
