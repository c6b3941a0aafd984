package driven

import "context"

// ResultCache stores chunk-level completion results keyed by a
// deterministic digest of the chunk content and the query. This is an
// optional service - when nil, chunks are re-processed on every query.
type ResultCache interface {
	// Get retrieves a cached result. The second return is false on a
	// cache miss.
	Get(ctx context.Context, key string) (CachedResult, bool, error)

	// Put stores a result under the key, overwriting any existing entry.
	Put(ctx context.Context, key string, result CachedResult) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Len returns the number of entries in the cache.
	Len(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// CachedResult is the persisted portion of a chunk result.
type CachedResult struct {
	// Content is the completion output for the chunk.
	Content string

	// TokensUsed is the token cost of the original call.
	TokensUsed int

	// Model is the model name the result was produced with.
	Model string
}
