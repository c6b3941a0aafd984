package driven

import "context"

// CompletionService produces language model completions. Every stage of
// the map-reduce pipeline that needs a model goes through this interface.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - OpenAI (GPT-4, GPT-4o)
//   - Ollama (local models)
type CompletionService interface {
	// Complete produces a completion for the prompt. The system prompt
	// may be empty. Returns the completion text and the total tokens
	// consumed by the call (prompt plus completion).
	Complete(ctx context.Context, prompt, system string, opts CompleteOptions) (string, int, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup before committing to a long run.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures a completion call.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
