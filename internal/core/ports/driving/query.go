package driving

import (
	"context"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

// QueryService answers natural-language questions over a loaded record
// collection.
type QueryService interface {
	// LoadCollection loads the collection at path, infers its schema,
	// and prepares it for querying. Replaces any previously loaded
	// collection.
	LoadCollection(ctx context.Context, path string) (*domain.Schema, error)

	// Query runs the full map-reduce pipeline against the loaded
	// collection and returns the synthesised answer.
	Query(ctx context.Context, query string, opts QueryOptions) (*domain.QueryResult, error)

	// Schema returns the schema of the loaded collection.
	Schema() (*domain.Schema, error)
}

// QueryOptions tunes a single query run.
type QueryOptions struct {
	// ChunkingStrategy overrides automatic strategy selection when set.
	ChunkingStrategy domain.ChunkingStrategy

	// ForceFullScan disables chunk filtering for this query.
	ForceFullScan bool

	// DisableCache bypasses the result cache for this query.
	DisableCache bool

	// TraceLevel overrides the configured trace capture level when set.
	TraceLevel domain.TraceLevel
}
