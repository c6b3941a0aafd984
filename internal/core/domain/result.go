package domain

import (
	"strings"
	"time"
)

// NoRelevantContent is the sentinel output a chunk instruction asks the
// completion service to emit when a chunk holds nothing relevant. Chunks
// producing it are counted as processed but excluded from aggregation.
const NoRelevantContent = "NO_RELEVANT_CONTENT"

// ChunkResult is the outcome of processing one chunk.
type ChunkResult struct {
	// ChunkIndex identifies the source chunk; unique per execution.
	ChunkIndex int

	// Success is false when the completion call failed.
	Success bool

	// Content is the raw completion output, or an error description.
	Content string

	// TokensUsed is the completion tokens consumed for this chunk.
	TokensUsed int

	// Duration is the wall time of the completion call.
	Duration time.Duration

	// WasCached is true when the result was served from the cache.
	WasCached bool

	// WasFiltered is true when the chunk was skipped without a
	// completion call (filter miss, limit cap, or budget stop).
	WasFiltered bool

	// StartRecord is the chunk's first record index in the collection,
	// carried so citations can be resolved without the chunk itself.
	StartRecord int
}

// Relevant reports whether the result should feed aggregation.
// Substring rather than equality: models sometimes wrap the marker in
// prose.
func (r ChunkResult) Relevant() bool {
	return r.Success && r.Content != "" && !strings.Contains(r.Content, NoRelevantContent)
}

// ExecutionResult is the full outcome of running a plan over chunks.
type ExecutionResult struct {
	// Query is the originating query text.
	Query string

	// Success is false only when execution as a whole failed.
	Success bool

	// ChunkResults holds one result per chunk, sorted by chunk index.
	ChunkResults []ChunkResult

	// TotalChunks is the number of chunks the pass produced.
	TotalChunks int

	// ChunksProcessed counts chunks that went through a completion call
	// (or cache hit) successfully.
	ChunksProcessed int

	// ChunksFiltered counts chunks skipped without a completion call.
	ChunksFiltered int

	// ChunksCached counts cache hits.
	ChunksCached int

	// TotalTokens is the cumulative completion tokens consumed.
	TotalTokens int

	// Duration is the wall time of the whole execution.
	Duration time.Duration

	// Err describes the failure when Success is false.
	Err string
}

// AggregationStrategy selects how chunk results are combined.
type AggregationStrategy string

// Aggregation strategies.
const (
	// StrategyConcatenate joins results without a completion call.
	StrategyConcatenate AggregationStrategy = "concatenate"

	// StrategySummarize synthesizes with one completion call.
	StrategySummarize AggregationStrategy = "summarize"

	// StrategyHierarchical reduces batches level by level, bounding
	// completion calls to O(log_k(N)) levels.
	StrategyHierarchical AggregationStrategy = "hierarchical"

	// StrategyMerge combines structured outputs (counts, lists).
	StrategyMerge AggregationStrategy = "merge"
)

// AggregationResult is the synthesized answer over chunk results.
type AggregationResult struct {
	// Content is the final synthesized text.
	Content string

	// Strategy is the aggregation strategy that produced Content.
	Strategy AggregationStrategy

	// Levels is the number of reduction levels performed.
	Levels int

	// TokensUsed is the completion tokens consumed by aggregation.
	TokensUsed int

	// SourceChunks lists the contributing chunk indices in ascending
	// order.
	SourceChunks []int
}

// VerificationResult summarises citation verification for an answer.
type VerificationResult struct {
	// HasCitations is true when at least one citation was found.
	HasCitations bool

	// CitationsFound and CitationsVerified count extraction and
	// successful cross-checks against source records.
	CitationsFound    int
	CitationsVerified int

	// UniqueAuthors counts distinct attributed authors.
	UniqueAuthors int

	// Sentiment mention counts.
	PositiveMentions int
	NegativeMentions int
	NeutralMentions  int

	// Issues lists advisory verification problems; the answer is still
	// returned.
	Issues []string

	// ReferenceIDs lists citation reference ids for independent lookup.
	ReferenceIDs []string
}

// QueryResult is the top-level outcome of one query call.
// It is created at the end of the call and immutable once returned;
// the caller always receives a QueryResult, never a panic.
type QueryResult struct {
	// Answer is the final synthesized answer text.
	Answer string

	// Success is false when planning or execution failed fatally.
	Success bool

	// Query is the original query text.
	Query string

	// SourcePath names the loaded collection, when file-backed.
	SourcePath string

	// ChunksProcessed and ChunksFiltered mirror the execution stats.
	ChunksProcessed int
	ChunksFiltered  int

	// TotalTokens is the cumulative tokens across execution and
	// aggregation.
	TotalTokens int

	// Duration is the wall time of the query.
	Duration time.Duration

	// Trace is the full execution trace for the query.
	Trace *Trace

	// CitationReport is populated for exhaustive queries.
	CitationReport *CitationReport

	// Verification summarises citation verification, when performed.
	Verification *VerificationResult

	// Err describes the failure when Success is false.
	Err string
}
