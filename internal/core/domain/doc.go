// Package domain defines the core business entities for Inquest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: A single semi-structured record from a collection
//   - Schema: The inferred shape of a loaded collection
//   - Chunk: A bounded, addressable slice of the collection
//   - QueryPlan: The execution plan derived from a natural-language query
//   - ChunkResult: The completion output for one chunk
//   - Citation: A verifiable quoted excerpt with source attribution
//   - Trace: The append-only audit log for one query execution
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
