package fincoach

import (
	"context"
	"fmt"
	"strings"
)

// FailureMessage is shown to the user when a turn aborts.
const FailureMessage = "Sorry, I couldn't complete that request right now. Your data is safe; please try again in a moment."

// ResponseKey is the blackboard key holding the router's answer.
const ResponseKey = "response"

// Router handles one user utterance per call. A single reasoning stage,
// guided by its instruction, decides which capabilities to invoke or answers
// directly. Each turn runs on its own blackboard.
type Router struct {
	pipeline *Pipeline
}

// NewRouter creates a router around stage. The stage's output key is forced
// to ResponseKey.
func NewRouter(stage *ReasoningStage, opts ...PipelineOption) *Router {
	stage.Output = ResponseKey
	if stage.StageName == "" {
		stage.StageName = "root"
	}
	return &Router{pipeline: NewPipeline("root", []Stage{stage}, opts...)}
}

// Handle runs one turn. A non-nil error means the turn aborted; callers
// should show FailureMessage rather than the error text.
func (r *Router) Handle(ctx context.Context, utterance string) (string, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return "", nil
	}

	res, err := r.pipeline.Run(ctx, utterance, NewBlackboard())
	if err != nil {
		return "", err
	}
	out, _ := res.Blackboard.Get(ResponseKey)
	if s, ok := out.(string); ok {
		return s, nil
	}
	return fmt.Sprint(out), nil
}
