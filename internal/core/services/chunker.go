package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// ChunkerService splits a record collection into chunks sized for a
// model context window.
type ChunkerService struct {
	recordsPerChunk int
	maxChunkChars   int
	overlap         int
}

// NewChunkerService creates a chunker with the given bounds. Overlap is
// the number of records consecutive record-count chunks share.
func NewChunkerService(recordsPerChunk, maxChunkChars, overlap int) *ChunkerService {
	if recordsPerChunk <= 0 {
		recordsPerChunk = 50
	}
	if maxChunkChars <= 0 {
		maxChunkChars = 12000
	}
	if overlap < 0 || overlap >= recordsPerChunk {
		overlap = 0
	}
	return &ChunkerService{
		recordsPerChunk: recordsPerChunk,
		maxChunkChars:   maxChunkChars,
		overlap:         overlap,
	}
}

// Chunk splits the records using the given strategy. StrategyAuto picks
// the best strategy for the schema.
func (c *ChunkerService) Chunk(
	records []domain.Record, schema *domain.Schema, strategy domain.ChunkingStrategy,
) ([]domain.Chunk, error) {
	logger.Section("Chunking")

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to chunk", domain.ErrInvalidInput)
	}

	if strategy == domain.StrategyAuto || strategy == "" {
		strategy = c.pickStrategy(schema)
		logger.Info("Auto-selected chunking strategy: %s", strategy)
	} else {
		logger.Info("Chunking strategy: %s", strategy)
	}

	var chunks []domain.Chunk
	var err error

	switch strategy {
	case domain.StrategyRecords:
		chunks = c.chunkByRecords(records, schema)
	case domain.StrategySize:
		chunks = c.chunkBySize(records, schema)
	case domain.StrategyTime:
		chunks, err = c.chunkByTime(records, schema)
	case domain.StrategyField:
		chunks, err = c.chunkByField(records, schema)
	default:
		return nil, fmt.Errorf("%w: chunking strategy %q", domain.ErrUnsupportedStrategy, strategy)
	}
	if err != nil {
		return nil, err
	}

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].TotalChunks = len(chunks)
	}

	logger.Info("Produced %d chunks from %d records", len(chunks), len(records))
	return chunks, nil
}

// pickStrategy chooses the strategy automatically: temporal collections
// chunk by time, collections with a grouping field chunk by field,
// message logs by record count, everything else by size.
func (c *ChunkerService) pickStrategy(schema *domain.Schema) domain.ChunkingStrategy {
	if schema == nil {
		return domain.StrategySize
	}
	if schema.TimestampField != "" {
		return domain.StrategyTime
	}
	if len(schema.GroupableFields()) > 0 {
		return domain.StrategyField
	}
	if schema.Format.IsMessageLog() {
		return domain.StrategyRecords
	}
	return domain.StrategySize
}

// chunkByRecords produces fixed-size chunks of recordsPerChunk records,
// with consecutive chunks sharing overlap records. Index ranges reflect
// the duplicated records.
func (c *ChunkerService) chunkByRecords(records []domain.Record, schema *domain.Schema) []domain.Chunk {
	step := c.recordsPerChunk - c.overlap
	var chunks []domain.Chunk

	for start := 0; start < len(records); start += step {
		end := start + c.recordsPerChunk
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, c.buildChunk(records[start:end], schema, start, end))
		if end == len(records) {
			break
		}
	}

	return chunks
}

// chunkBySize packs records into chunks bounded by maxChunkChars. A
// chunk never exceeds the bound unless a single record is itself larger
// than the bound, in which case it forms its own chunk.
func (c *ChunkerService) chunkBySize(records []domain.Record, schema *domain.Schema) []domain.Chunk {
	var chunks []domain.Chunk
	start := 0
	size := 0

	for i, r := range records {
		line := len(formatRecord(r, schema)) + 1
		if i > start && size+line > c.maxChunkChars {
			chunks = append(chunks, c.buildChunk(records[start:i], schema, start, i))
			start = i
			size = 0
		}
		size += line
	}
	if start < len(records) {
		chunks = append(chunks, c.buildChunk(records[start:], schema, start, len(records)))
	}

	return chunks
}

// chunkByTime sorts records by timestamp and buckets them by calendar
// date. Oversized buckets are split into sub-chunks.
func (c *ChunkerService) chunkByTime(records []domain.Record, schema *domain.Schema) ([]domain.Chunk, error) {
	if schema == nil || schema.TimestampField == "" {
		return nil, fmt.Errorf("%w: time chunking requires a timestamp field", domain.ErrInvalidSchema)
	}

	type indexed struct {
		record domain.Record
		index  int
		ts     string
	}

	ordered := make([]indexed, len(records))
	for i, r := range records {
		ordered[i] = indexed{record: r, index: i, ts: r.StringField(schema.TimestampField)}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ts < ordered[j].ts
	})

	// Bucket by the date prefix of the timestamp.
	var buckets [][]indexed
	var currentDate string
	for _, item := range ordered {
		date := item.ts
		if len(date) > 10 {
			date = date[:10]
		}
		if len(buckets) == 0 || date != currentDate {
			buckets = append(buckets, nil)
			currentDate = date
		}
		buckets[len(buckets)-1] = append(buckets[len(buckets)-1], item)
	}

	logger.Debug("Time chunking: %d date buckets", len(buckets))

	var chunks []domain.Chunk
	for _, bucket := range buckets {
		// Split buckets that are more than twice the record bound.
		parts := [][]indexed{bucket}
		if len(bucket) > 2*c.recordsPerChunk {
			parts = nil
			for start := 0; start < len(bucket); start += c.recordsPerChunk {
				end := start + c.recordsPerChunk
				if end > len(bucket) {
					end = len(bucket)
				}
				parts = append(parts, bucket[start:end])
			}
		}

		for _, part := range parts {
			recs := make([]domain.Record, len(part))
			for i, item := range part {
				recs[i] = item.record
			}
			ch := c.buildChunk(recs, schema, part[0].index, part[len(part)-1].index+1)
			ch.StartTimestamp = part[0].ts
			ch.EndTimestamp = part[len(part)-1].ts
			chunks = append(chunks, ch)
		}
	}

	return chunks, nil
}

// chunkByField groups records by the value of the schema's first
// groupable field. Groups keep the collection's record ordering.
func (c *ChunkerService) chunkByField(records []domain.Record, schema *domain.Schema) ([]domain.Chunk, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: field chunking requires a schema", domain.ErrInvalidSchema)
	}
	groupable := schema.GroupableFields()
	if len(groupable) == 0 {
		return nil, fmt.Errorf("%w: field chunking requires a groupable field", domain.ErrInvalidSchema)
	}
	field := groupable[0]
	logger.Debug("Field chunking on %q", field)

	type group struct {
		value   string
		records []domain.Record
		first   int
		last    int
	}

	groups := make(map[string]*group)
	var order []string
	for i, r := range records {
		value := r.StringField(field)
		g, ok := groups[value]
		if !ok {
			g = &group{value: value, first: i}
			groups[value] = g
			order = append(order, value)
		}
		g.records = append(g.records, r)
		g.last = i
	}

	var chunks []domain.Chunk
	for _, value := range order {
		g := groups[value]
		// Split oversized groups by record count.
		for start := 0; start < len(g.records); start += c.recordsPerChunk {
			end := start + c.recordsPerChunk
			if end > len(g.records) {
				end = len(g.records)
			}
			ch := c.buildChunk(g.records[start:end], schema, g.first, g.last+1)
			ch.GroupKey = field
			ch.GroupValue = value
			chunks = append(chunks, ch)
		}
	}

	return chunks, nil
}

// buildChunk renders the records into chunk text and fills the index
// range metadata.
func (c *ChunkerService) buildChunk(
	records []domain.Record, schema *domain.Schema, start, end int,
) domain.Chunk {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(formatRecord(r, schema))
		b.WriteString("\n")
	}
	text := b.String()

	return domain.Chunk{
		Records:     records,
		Text:        text,
		StartRecord: start,
		EndRecord:   end,
		CharCount:   len(text),
	}
}

// formatRecord renders one record as a chunk text line. Message-log
// formats get a readable transcript line; everything else gets compact
// JSON with the content field hoisted to the front.
func formatRecord(r domain.Record, schema *domain.Schema) string {
	format := domain.FormatUnknown
	if schema != nil {
		format = schema.Format
	}

	switch format {
	case domain.FormatDiscord:
		line := fmt.Sprintf("[%s] %s: %s",
			r.StringField("timestamp"), r.StringField("author"), r.StringField("content"))
		if n := arrayLen(r, "attachments"); n > 0 {
			line += fmt.Sprintf(" [+%d attachment(s)]", n)
		}
		if n := arrayLen(r, "embeds"); n > 0 {
			line += fmt.Sprintf(" [+%d embed(s)]", n)
		}
		return line

	case domain.FormatSlack:
		return fmt.Sprintf("[%s] %s: %s",
			r.StringField("ts"), r.StringField("user"), r.StringField("text"))

	default:
		if schema != nil && schema.ContentField != "" {
			if content := r.StringField(schema.ContentField); content != "" {
				rest := make(domain.Record, len(r))
				for k, v := range r {
					if k != schema.ContentField {
						rest[k] = v
					}
				}
				if len(rest) == 0 {
					return content
				}
				return content + " | " + rest.Compact()
			}
		}
		return r.Compact()
	}
}

// arrayLen returns the length of an array-valued field, 0 otherwise.
func arrayLen(r domain.Record, name string) int {
	if arr, ok := r[name].([]any); ok {
		return len(arr)
	}
	return 0
}
