package domain

import (
	"fmt"
	"strings"
)

// Chunk is a bounded, addressable slice of the record collection sent
// as one unit to the completion service. Produced by the chunker;
// consumed read-only by the executor.
type Chunk struct {
	// Index is the zero-based chunk position, unique per pass.
	Index int

	// TotalChunks is the total number of chunks in the pass,
	// or TotalUnknown if the pass is streamed.
	TotalChunks int

	// Records are the records contained in this chunk.
	Records []Record

	// Text is the pre-formatted content sent to the completion service.
	Text string

	// StartRecord and EndRecord are the inclusive record index range
	// within the original collection. With overlap configured, adjacent
	// chunks intentionally share records and their ranges overlap.
	StartRecord int
	EndRecord   int

	// CharCount is len(Text).
	CharCount int

	// GroupKey and GroupValue identify the grouping used to form this
	// chunk (e.g. "date" / "2024-03-01"), when a grouped strategy ran.
	GroupKey   string
	GroupValue string

	// StartTimestamp and EndTimestamp bound the chunk's records in time,
	// when the schema has a timestamp field.
	StartTimestamp string
	EndTimestamp   string
}

// RecordCount returns the number of records in the chunk.
func (c *Chunk) RecordCount() int {
	return len(c.Records)
}

// PromptContext formats the chunk for completion-service consumption,
// prefixing positional and grouping metadata before the content.
func (c *Chunk) PromptContext() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[Chunk %d", c.Index+1)
	if c.TotalChunks > 0 {
		fmt.Fprintf(&b, " of %d", c.TotalChunks)
	}
	fmt.Fprintf(&b, " | Records %d-%d]\n", c.StartRecord+1, c.EndRecord+1)

	if c.GroupKey != "" && c.GroupValue != "" {
		fmt.Fprintf(&b, "[%s: %s]\n", c.GroupKey, c.GroupValue)
	}
	if c.StartTimestamp != "" && c.EndTimestamp != "" {
		fmt.Fprintf(&b, "[Time: %s to %s]\n", c.StartTimestamp, c.EndTimestamp)
	}

	b.WriteString("\n")
	b.WriteString(c.Text)

	return b.String()
}

// Preview returns the first n characters of the chunk text for tracing.
func (c *Chunk) Preview(n int) string {
	if len(c.Text) <= n {
		return c.Text
	}
	return c.Text[:n] + "..."
}

// ChunkingStrategy selects how the collection is split into chunks.
type ChunkingStrategy string

// Chunking strategies.
const (
	// StrategyAuto picks a strategy from the schema: time-bucketed when a
	// timestamp field exists, field-grouped when a group field is
	// configured, else record- or size-based.
	StrategyAuto ChunkingStrategy = "auto"

	// StrategyRecords splits into fixed record counts.
	StrategyRecords ChunkingStrategy = "records"

	// StrategySize bounds chunks by character size.
	StrategySize ChunkingStrategy = "size"

	// StrategyTime sorts by timestamp and buckets by truncated date.
	StrategyTime ChunkingStrategy = "time"

	// StrategyField groups records by a configured field value.
	StrategyField ChunkingStrategy = "field"
)
