package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoCollection indicates no collection has been loaded.
	// Query and schema operations require a prior Load call.
	ErrNoCollection = errors.New("no collection loaded")

	// ErrInvalidSchema indicates the collection root is neither an array
	// nor an object, or no record parsed as structured data.
	// Loading aborts; no partial schema is produced.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrCompletionUnavailable indicates the completion service is not
	// configured. Features requiring it (summarisation, hierarchical
	// aggregation) degrade to concatenation.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrBudgetExceeded indicates the query's token budget was reached.
	// This is a soft stop: remaining chunks are skipped, not an abort.
	ErrBudgetExceeded = errors.New("token budget exceeded")

	// ErrAggregationFailed indicates a synthesis call failed at every
	// level and even the concatenation fallback produced no content.
	ErrAggregationFailed = errors.New("aggregation failed")

	// ErrUnsupportedStrategy indicates an unknown chunking strategy.
	ErrUnsupportedStrategy = errors.New("unsupported chunking strategy")
)
