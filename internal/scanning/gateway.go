package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/cleanscan/internal/waste"
)

const (
	DefaultGatewayURL   = "https://ai.gateway.lovable.dev/v1"
	DefaultGatewayModel = "google/gemini-2.5-flash"
)

// Gateway implements the Classifier interface against an OpenAI-compatible
// chat completions endpoint using forced tool calling
type Gateway struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGateway creates a new Gateway Classifier. An empty key is accepted here
// and reported as Unauthorized on every Classify call.
func NewGateway(baseURL, apiKey, model string, timeout time.Duration) *Gateway {
	if baseURL == "" {
		baseURL = DefaultGatewayURL
	}
	if model == "" {
		model = DefaultGatewayModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type gatewayRequest struct {
	Model      string           `json:"model"`
	Messages   []gatewayMessage `json:"messages"`
	Tools      []gatewayTool    `json:"tools"`
	ToolChoice gatewayTool      `json:"tool_choice"`
}

type gatewayMessage struct {
	Role    string           `json:"role"`
	Content []gatewayContent `json:"content"`
}

type gatewayContent struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	ImageURL *gatewayImageURL `json:"image_url,omitempty"`
}

type gatewayImageURL struct {
	URL string `json:"url"`
}

type gatewayTool struct {
	Type     string          `json:"type"`
	Function gatewayFunction `json:"function"`
}

type gatewayFunction struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

type gatewayResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Name returns the provider name
func (g *Gateway) Name() string { return "gateway" }

// Classify sends one chat completion request and returns the tool call arguments
func (g *Gateway) Classify(ctx context.Context, req *Request) (json.RawMessage, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: gateway api key not configured", waste.ErrUnauthorized)
	}

	img, err := PrepareImage(req.Image)
	if err != nil {
		return nil, err
	}

	body := gatewayRequest{
		Model: g.model,
		Messages: []gatewayMessage{{
			Role: "user",
			Content: []gatewayContent{
				{Type: "text", Text: req.Instruction},
				{Type: "image_url", ImageURL: &gatewayImageURL{URL: img.DataURL()}},
			},
		}},
		Tools: []gatewayTool{{
			Type: "function",
			Function: gatewayFunction{
				Name:        req.ToolName,
				Description: req.ToolDescription,
				Parameters:  req.Schema,
			},
		}},
		ToolChoice: gatewayTool{Type: "function", Function: gatewayFunction{Name: req.ToolName}},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: calling gateway: %v", waste.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("AI gateway error", "status", resp.StatusCode, "body", string(errBody))
		return nil, statusError(g.Name(), resp.StatusCode)
	}

	var chatResp gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%w: decoding gateway response: %v", waste.ErrUpstream, err)
	}

	if len(chatResp.Choices) == 0 || len(chatResp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: gateway returned no tool call", waste.ErrNoStructuredResult)
	}

	args := strings.TrimSpace(chatResp.Choices[0].Message.ToolCalls[0].Function.Arguments)
	if !json.Valid([]byte(args)) {
		return nil, fmt.Errorf("%w: tool call arguments are not valid JSON", waste.ErrMalformedResult)
	}

	return json.RawMessage(args), nil
}

// Close is a no-op for the HTTP client
func (g *Gateway) Close() error {
	return nil
}
