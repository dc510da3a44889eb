package llm

import (
	"context"

	"github.com/everydev1618/fincoach/retry"
)

// Retrying decorates an LLM with a retry policy.
type Retrying struct {
	next   LLM
	policy retry.Policy
	opts   []retry.Option
}

// WithRetry wraps next so that every Generate call follows policy.
func WithRetry(next LLM, policy retry.Policy, opts ...retry.Option) *Retrying {
	return &Retrying{
		next:   next,
		policy: policy,
		opts:   append([]retry.Option{retry.WithName("llm.generate")}, opts...),
	}
}

// Generate calls the wrapped backend under the retry policy.
func (r *Retrying) Generate(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (*Response, error) {
		return r.next.Generate(ctx, messages, tools)
	}, r.opts...)
}
