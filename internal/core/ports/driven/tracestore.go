package driven

import (
	"context"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

// TraceStore persists execution traces for later inspection. This is an
// optional service - when nil, traces are returned in-memory only.
type TraceStore interface {
	// Save persists the trace and returns the location it was written
	// to (e.g. a file path).
	Save(ctx context.Context, trace *domain.Trace) (string, error)

	// SaveReport persists a citation report alongside the traces and
	// returns the location it was written to.
	SaveReport(ctx context.Context, report *domain.CitationReport) (string, error)
}
