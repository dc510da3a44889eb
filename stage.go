package fincoach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/everydev1618/fincoach/errdefs"
	"github.com/everydev1618/fincoach/llm"
	"github.com/everydev1618/fincoach/tools"
)

// DefaultMaxIterations is the default maximum tool call loop iterations.
const DefaultMaxIterations = 10

// ReasoningStage is a pipeline stage driven by a reasoning engine. It asks the
// model for the next action, runs any requested tools and feeds their results
// back until the model gives a final answer.
type ReasoningStage struct {
	// StageName identifies the stage in logs and errors.
	StageName string

	// Instruction is the system prompt.
	Instruction string

	// InputKeys are blackboard keys rendered into the prompt.
	InputKeys []string

	// Output is the blackboard key the final answer is committed under.
	Output string

	// Tools are the capabilities the model may invoke. May be nil.
	Tools *tools.Registry

	// Model proposes the next action.
	Model llm.LLM

	// MaxIterations limits tool call loop iterations (default: DefaultMaxIterations)
	MaxIterations int
}

func (s *ReasoningStage) Name() string      { return s.StageName }
func (s *ReasoningStage) OutputKey() string { return s.Output }

// Run executes the tool loop and returns the model's final text.
func (s *ReasoningStage) Run(ctx context.Context, input string, bb *Blackboard) (any, error) {
	if s.Model == nil {
		return nil, fmt.Errorf("stage %s: no model configured", s.StageName)
	}

	messages := []llm.Message{llm.SystemMessage(s.systemPrompt(bb))}
	if strings.TrimSpace(input) != "" {
		messages = append(messages, llm.UserMessage(input))
	}

	var toolSchemas []llm.ToolSchema
	if s.Tools != nil {
		toolSchemas = s.Tools.Schemas()
	}

	maxIterations := DefaultMaxIterations
	if s.MaxIterations > 0 {
		maxIterations = s.MaxIterations
	}

	entry := log.WithField("stage", s.StageName)
	for i := 0; i < maxIterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := s.Model.Generate(ctx, messages, toolSchemas)
		if err != nil {
			return nil, err
		}

		if resp.Final() {
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			var res tools.Result
			if s.Tools == nil {
				res = tools.Error((&tools.ToolError{ToolName: tc.Name, Err: tools.ErrToolNotFound}).Error())
			} else {
				res = s.Tools.Execute(ctx, tc.Name, tc.Arguments)
			}
			if escalates(res.Err) {
				entry.WithField("tool", tc.Name).WithError(res.Err).Warn("remote failure in tool")
				return nil, &tools.ToolError{ToolName: tc.Name, Err: res.Err}
			}
			messages = append(messages, llm.ToolMessage(tc, res.Map()))
		}
	}

	return nil, ErrMaxIterationsExceeded
}

// systemPrompt renders the instruction followed by the requested blackboard
// entries. Entries that were never written are marked as unavailable.
func (s *ReasoningStage) systemPrompt(bb *Blackboard) string {
	if len(s.InputKeys) == 0 || bb == nil {
		return s.Instruction
	}

	var b strings.Builder
	b.WriteString(s.Instruction)
	for _, key := range s.InputKeys {
		fmt.Fprintf(&b, "\n\n<%s>\n", key)
		v, ok := bb.Get(key)
		if !ok {
			b.WriteString("(not available)")
		} else {
			b.WriteString(render(v))
		}
		fmt.Fprintf(&b, "\n</%s>", key)
	}
	return b.String()
}

func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// escalates reports whether a tool failure must abort the stage instead of
// being handed back to the model. Remote failures that the retry policy gave
// up on, or that it would never retry, end the run.
func escalates(err error) bool {
	if err == nil {
		return false
	}
	var exhausted *errdefs.ExhaustedRetryError
	var external *errdefs.ExternalServiceError
	var stage *StageError
	return errors.As(err, &exhausted) || errors.As(err, &external) || errors.As(err, &stage)
}
