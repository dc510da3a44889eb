// Package llmtest provides a scripted reasoning engine for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/everydev1618/fincoach/llm"
)

// Step is one scripted reply. Exactly one of Response or Err is used.
type Step struct {
	Response *llm.Response
	Err      error
}

// Scripted replays a fixed sequence of replies and records every request.
type Scripted struct {
	mu    sync.Mutex
	steps []Step
	calls [][]llm.Message
	tools [][]llm.ToolSchema
}

// New returns a Scripted engine that replies with steps in order.
func New(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Text is a final text reply.
func Text(content string) Step {
	return Step{Response: &llm.Response{Content: content}}
}

// Call is a reply requesting a single tool call.
func Call(id, name string, args map[string]any) Step {
	return Step{Response: &llm.Response{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: args}}}}
}

// Fail is a reply that returns err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Generate returns the next scripted reply.
func (s *Scripted) Generate(ctx context.Context, messages []llm.Message, tools []llm.ToolSchema) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, append([]llm.Message(nil), messages...))
	s.tools = append(s.tools, tools)
	if len(s.steps) == 0 {
		return nil, fmt.Errorf("llmtest: script exhausted after %d calls", len(s.calls))
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Calls returns the number of Generate calls so far.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Messages returns the messages sent on the i-th call.
func (s *Scripted) Messages(i int) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

// Tools returns the tool schemas offered on the i-th call.
func (s *Scripted) Tools(i int) []llm.ToolSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools[i]
}
