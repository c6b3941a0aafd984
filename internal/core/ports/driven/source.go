package driven

import (
	"context"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

// RecordSource loads record collections from storage.
type RecordSource interface {
	// Load reads the collection at the given path and returns its
	// records in source order. Supports JSON arrays, wrapped objects
	// with a records array, and JSONL streams.
	Load(ctx context.Context, path string) ([]domain.Record, error)

	// Stat returns the size in bytes of the collection without loading
	// it.
	Stat(ctx context.Context, path string) (int64, error)
}
