// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - RecordSource: Loads record collections (JSON files, JSONL streams)
//   - CompletionService: Language model completions. The map-reduce
//     pipeline cannot run without one.
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ResultCache: Chunk-result caching. Without it, every chunk is
//     re-processed on repeated queries.
//   - TraceStore: Execution trace persistence. Without it, traces are
//     returned in-memory only.
//   - ConfigStore: Application configuration. Without it, defaults apply.
//   - PromptStore: Customisable system prompts. Without it, built-in
//     prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
