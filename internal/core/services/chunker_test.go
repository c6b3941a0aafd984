package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

func analyzedSchema(t *testing.T, records []domain.Record) *domain.Schema {
	t.Helper()
	schema, err := NewSchemaService(100).Analyze(records, 0)
	require.NoError(t, err)
	return schema
}

func TestChunkerService_Chunk_Empty(t *testing.T) {
	chunker := NewChunkerService(10, 12000, 0)

	_, err := chunker.Chunk(nil, nil, domain.StrategyRecords)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChunkerService_Chunk_UnknownStrategy(t *testing.T) {
	chunker := NewChunkerService(10, 12000, 0)

	_, err := chunker.Chunk(discordRecords(5), nil, domain.ChunkingStrategy("bogus"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedStrategy)
}

func TestChunkerService_ByRecords_CoversEveryRecord(t *testing.T) {
	records := discordRecords(25)
	chunker := NewChunkerService(10, 12000, 0)

	chunks, err := chunker.Chunk(records, nil, domain.StrategyRecords)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	total := 0
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, 3, ch.TotalChunks)
		total += ch.RecordCount()
	}
	assert.Equal(t, 25, total)
	assert.Equal(t, 0, chunks[0].StartRecord)
	assert.Equal(t, 10, chunks[0].EndRecord)
	assert.Equal(t, 20, chunks[2].StartRecord)
	assert.Equal(t, 25, chunks[2].EndRecord)
}

func TestChunkerService_ByRecords_Overlap(t *testing.T) {
	records := discordRecords(20)
	chunker := NewChunkerService(10, 12000, 2)

	chunks, err := chunker.Chunk(records, nil, domain.StrategyRecords)
	require.NoError(t, err)

	require.True(t, len(chunks) >= 2)
	// Consecutive chunks share the overlap records.
	assert.Equal(t, 8, chunks[1].StartRecord)
	assert.Equal(t, chunks[0].Records[8], chunks[1].Records[0])
}

func TestChunkerService_BySize_RespectsBound(t *testing.T) {
	records := discordRecords(40)
	chunker := NewChunkerService(50, 500, 0)

	chunks, err := chunker.Chunk(records, nil, domain.StrategySize)
	require.NoError(t, err)

	require.True(t, len(chunks) > 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.CharCount, 500+100, "chunk %d oversized", ch.Index)
	}
}

func TestChunkerService_BySize_OversizedRecordGetsOwnChunk(t *testing.T) {
	big := domain.Record{"content": strings.Repeat("x", 2000)}
	records := []domain.Record{
		{"content": "small"},
		big,
		{"content": "also small"},
	}
	chunker := NewChunkerService(50, 100, 0)

	chunks, err := chunker.Chunk(records, nil, domain.StrategySize)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[1].RecordCount())
	assert.Greater(t, chunks[1].CharCount, 100)
}

func TestChunkerService_ByTime_BucketsByDate(t *testing.T) {
	records := discordRecords(30) // 10 records per day across 3 days
	schema := analyzedSchema(t, records)
	chunker := NewChunkerService(50, 12000, 0)

	chunks, err := chunker.Chunk(records, schema, domain.StrategyTime)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		assert.Equal(t, 10, ch.RecordCount())
		assert.NotEmpty(t, ch.StartTimestamp)
		assert.Equal(t, ch.StartTimestamp[:10], ch.EndTimestamp[:10])
	}
}

func TestChunkerService_ByTime_SplitsOversizedBuckets(t *testing.T) {
	// All records on the same day, far above twice the record bound.
	records := make([]domain.Record, 30)
	for i := range records {
		records[i] = domain.Record{
			"author":    "alice",
			"content":   "same day message",
			"timestamp": "2024-03-01T10:00:00Z",
		}
	}
	schema := analyzedSchema(t, records)
	chunker := NewChunkerService(10, 12000, 0)

	chunks, err := chunker.Chunk(records, schema, domain.StrategyTime)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.RecordCount(), 10)
	}
}

func TestChunkerService_ByTime_RequiresTimestampField(t *testing.T) {
	records := []domain.Record{{"level": "error"}}
	schema := analyzedSchema(t, records)
	chunker := NewChunkerService(10, 12000, 0)

	_, err := chunker.Chunk(records, schema, domain.StrategyTime)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}

func TestChunkerService_ByField_GroupsByValue(t *testing.T) {
	records := []domain.Record{
		{"category": "infra", "note": "disk full"},
		{"category": "app", "note": "panic in handler"},
		{"category": "infra", "note": "network flap"},
	}
	schema := analyzedSchema(t, records)
	chunker := NewChunkerService(50, 12000, 0)

	chunks, err := chunker.Chunk(records, schema, domain.StrategyField)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	// First-seen group order is preserved.
	assert.Equal(t, "infra", chunks[0].GroupValue)
	assert.Equal(t, 2, chunks[0].RecordCount())
	assert.Equal(t, "app", chunks[1].GroupValue)
}

func TestChunkerService_Auto_PrefersTime(t *testing.T) {
	records := discordRecords(20)
	schema := analyzedSchema(t, records)
	chunker := NewChunkerService(50, 12000, 0)

	chunks, err := chunker.Chunk(records, schema, domain.StrategyAuto)
	require.NoError(t, err)

	// Time buckets carry timestamps.
	assert.NotEmpty(t, chunks[0].StartTimestamp)
}

func TestChunkerService_Auto_NoSchemaFallsBackToSize(t *testing.T) {
	chunker := NewChunkerService(50, 200, 0)

	chunks, err := chunker.Chunk(discordRecords(20), nil, domain.StrategyAuto)
	require.NoError(t, err)

	assert.True(t, len(chunks) > 1)
	assert.Empty(t, chunks[0].StartTimestamp)
}

func TestFormatRecord_DiscordTranscriptLine(t *testing.T) {
	schema := analyzedSchema(t, discordRecords(5))
	r := domain.Record{
		"author":      "alice",
		"content":     "hello world",
		"timestamp":   "2024-03-01T10:00:00Z",
		"attachments": []any{"a.png", "b.png"},
	}

	line := formatRecord(r, schema)

	assert.Equal(t, "[2024-03-01T10:00:00Z] alice: hello world [+2 attachment(s)]", line)
}

func TestFormatRecord_GenericHoistsContent(t *testing.T) {
	records := []domain.Record{
		{"message": "disk full", "level": "error"},
	}
	schema := analyzedSchema(t, records)
	require.Equal(t, "message", schema.ContentField)

	line := formatRecord(records[0], schema)

	assert.True(t, strings.HasPrefix(line, "disk full | "), "got %q", line)
	assert.Contains(t, line, `"level":"error"`)
}
