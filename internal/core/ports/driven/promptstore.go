package driven

// Prompt names recognised by the prompt store.
const (
	// PromptChunkSystem is the system prompt sent with every per-chunk
	// completion call.
	PromptChunkSystem = "chunk_system"

	// PromptAggregateSystem is the system prompt sent with aggregation
	// completion calls.
	PromptAggregateSystem = "aggregate_system"
)

// PromptStore loads named prompt templates, letting users customise the
// system prompts sent with completion calls. Implementations fall back
// to embedded defaults when a prompt has not been customised.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads.
	Reload()

	// Dir returns the directory prompts are loaded from.
	Dir() string
}
