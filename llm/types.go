package llm

import "context"

// LLM is the interface for reasoning-engine backends.
//
// Given the conversation so far and the declared tools, a backend proposes
// the next action: either a final text answer or one or more tool calls.
type LLM interface {
	Generate(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error)
}

// Func adapts a function to the LLM interface.
type Func func(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error) {
	return f(ctx, messages, tools)
}

// Message represents a conversation message.
type Message struct {
	Role    Role
	Content string

	// ToolCalls are the calls requested by an assistant message.
	ToolCalls []ToolCall

	// ToolResult is set on RoleTool messages.
	ToolResult *ToolResult
}

// Role identifies the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Response is the response from an LLM call.
type Response struct {
	// Content is the text response
	Content string

	// ToolCalls are any tool calls the model wants to make
	ToolCalls []ToolCall

	// Token counts
	InputTokens  int
	OutputTokens int

	// Latency in milliseconds
	LatencyMs int64
}

// Final reports whether the response is a final answer.
func (r *Response) Final() bool {
	return len(r.ToolCalls) == 0
}

// ToolCall represents a tool call from the LLM.
type ToolCall struct {
	// ID is the unique identifier for this tool call
	ID string

	// Name is the tool being called
	Name string

	// Arguments are the parameters passed to the tool
	Arguments map[string]any
}

// ToolResult carries the structured outcome of a tool call back to the model.
type ToolResult struct {
	CallID  string
	Name    string
	Content map[string]any
}

// ToolSchema describes a tool for the LLM.
type ToolSchema struct {
	// Name of the tool
	Name string `json:"name"`

	// Description of what the tool does
	Description string `json:"description"`

	// InputSchema is the JSON Schema for parameters
	InputSchema map[string]any `json:"input_schema"`
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ToolMessage builds the message returning a tool result to the model.
func ToolMessage(call ToolCall, content map[string]any) Message {
	return Message{
		Role:       RoleTool,
		ToolResult: &ToolResult{CallID: call.ID, Name: call.Name, Content: content},
	}
}
