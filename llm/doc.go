// Package llm provides reasoning-engine backends for the fincoach pipeline.
//
// # Gemini Backend
//
// The default backend is Google's Gemini API:
//
//	model, err := llm.NewGemini(ctx, os.Getenv("GOOGLE_API_KEY"), llm.WithGeminiModel("gemini-2.5-flash"))
//
// # OpenAI Backend
//
// Any OpenAI-compatible chat completions endpoint can be used instead:
//
//	model := llm.NewOpenAI(os.Getenv("OPENAI_API_KEY"), llm.WithOpenAIModel("gpt-4o-mini"))
//
// # Retries
//
// Backends never retry on their own. Wrap them with the configured policy:
//
//	model = llm.WithRetry(model, cfg.Retry)
//
// Remote failures are reported as *errdefs.ExternalServiceError so the retry
// policy can decide by status code.
//
// # Implementing Custom Backends
//
// To implement a custom backend, implement the one-method LLM interface:
//
//	type LLM interface {
//	    Generate(ctx context.Context, messages []Message, tools []ToolSchema) (*Response, error)
//	}
package llm
