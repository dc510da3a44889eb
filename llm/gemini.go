package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/everydev1618/fincoach/errdefs"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini is an LLM implementation using the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// GeminiOption configures the Gemini backend.
type GeminiOption func(*Gemini)

// WithGeminiModel sets the model identifier.
func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// NewGemini creates a Gemini client authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, errdefs.Invalid("GOOGLE_API_KEY", "is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize gemini client: %w", err)
	}

	g := &Gemini{client: client, model: DefaultGeminiModel}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate sends the conversation to Gemini and returns its proposal.
func (g *Gemini) Generate(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error) {
	start := time.Now()

	contents, system := geminiContents(messages)
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  geminiSchema(t.InputSchema),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, geminiError(err)
	}

	result := &Response{LatencyMs: time.Since(start).Milliseconds()}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: empty response from %s", g.model)
	}
	for i, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
		case part.Text != "":
			result.Content += part.Text
		}
	}

	log.WithFields(log.Fields{
		"model":         g.model,
		"latency_ms":    result.LatencyMs,
		"input_tokens":  result.InputTokens,
		"output_tokens": result.OutputTokens,
		"tool_calls":    len(result.ToolCalls),
	}).Debug("gemini response")
	return result, nil
}

// geminiContents converts messages into Gemini contents. System messages are
// folded into a single system instruction.
func geminiContents(messages []Message) ([]*genai.Content, string) {
	var (
		contents []*genai.Content
		system   []string
		lastTool bool
	)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			c := &genai.Content{Role: string(genai.RoleModel)}
			if strings.TrimSpace(m.Content) != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Arguments,
				}})
			}
			contents = append(contents, c)
		case RoleTool:
			if m.ToolResult == nil {
				continue
			}
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolResult.CallID,
				Name:     m.ToolResult.Name,
				Response: m.ToolResult.Content,
			}}
			// Responses to parallel calls share one content.
			if n := len(contents); n > 0 && lastTool {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
			} else {
				contents = append(contents, &genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{part}})
			}
			lastTool = true
			continue
		}
		lastTool = false
	}
	return contents, strings.Join(system, "\n\n")
}

// geminiSchema converts a JSON schema map into a Gemini schema.
func geminiSchema(in map[string]any) *genai.Schema {
	if in == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := in["type"].(string); ok {
		s.Type = geminiType(t)
	}
	if d, ok := in["description"].(string); ok {
		s.Description = d
	}
	if enum, ok := in["enum"].([]string); ok {
		s.Enum = enum
	}
	if props, ok := in["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = geminiSchema(pm)
			}
		}
	}
	if req, ok := in["required"].([]string); ok && len(req) > 0 {
		s.Required = req
	}
	return s
}

func geminiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// geminiError maps API failures to ExternalServiceError so they can be retried by status.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &errdefs.ExternalServiceError{Service: "gemini", Status: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &errdefs.ExternalServiceError{Service: "gemini", Status: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini: %w", err)
}
