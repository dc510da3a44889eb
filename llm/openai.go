package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"github.com/everydev1618/fincoach/errdefs"
)

// DefaultOpenAIModel is the model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI is an LLM implementation using an OpenAI-compatible chat API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// OpenAIOption configures the OpenAI backend.
type OpenAIOption func(*openai.ClientConfig, *OpenAI)

// WithOpenAIModel sets the model identifier.
func WithOpenAIModel(model string) OpenAIOption {
	return func(_ *openai.ClientConfig, o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithOpenAIBaseURL points the client at a compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAI) {
		cfg.BaseURL = url
	}
}

// NewOpenAI creates an OpenAI client authenticated with apiKey.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	o := &OpenAI{model: DefaultOpenAIModel}
	for _, opt := range opts {
		opt(&cfg, o)
	}
	o.client = openai.NewClientWithConfig(cfg)
	return o
}

// Generate sends the conversation to the chat completions endpoint.
func (o *OpenAI) Generate(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error) {
	start := time.Now()

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		msg, err := openaiMessage(m)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, msg)
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, openaiError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty response from %s", o.model)
	}

	choice := resp.Choices[0].Message
	result := &Response{
		Content:      choice.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
	}
	for _, tc := range choice.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("openai: decode arguments for %s: %w", tc.Function.Name, err)
			}
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	log.WithFields(log.Fields{
		"model":      o.model,
		"latency_ms": result.LatencyMs,
		"tool_calls": len(result.ToolCalls),
	}).Debug("openai response")
	return result, nil
}

func openaiMessage(m Message) (openai.ChatCompletionMessage, error) {
	switch m.Role {
	case RoleSystem:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content}, nil
	case RoleUser:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content}, nil
	case RoleAssistant:
		msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				return msg, fmt.Errorf("openai: encode arguments for %s: %w", tc.Name, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		return msg, nil
	case RoleTool:
		if m.ToolResult == nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("openai: tool message without result")
		}
		content, err := json.Marshal(m.ToolResult.Content)
		if err != nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("openai: encode result for %s: %w", m.ToolResult.Name, err)
		}
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    string(content),
			Name:       m.ToolResult.Name,
			ToolCallID: m.ToolResult.CallID,
		}, nil
	}
	return openai.ChatCompletionMessage{}, fmt.Errorf("openai: unknown role %q", m.Role)
}

func openaiError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &errdefs.ExternalServiceError{Service: "openai", Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &errdefs.ExternalServiceError{Service: "openai", Status: reqErr.HTTPStatusCode, Err: reqErr.Err}
	}
	return fmt.Errorf("openai: %w", err)
}
