package domain

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrace_DefaultsToFull(t *testing.T) {
	trace := NewTrace("q", "")

	assert.Equal(t, TraceLevelFull, trace.Level)
}

func TestTrace_Add_AssignsSequence(t *testing.T) {
	trace := NewTrace("q", TraceLevelFull)

	trace.Add(TraceQueryStart, "start")
	trace.AddChunk(TraceChunkStart, 3, "records 0-9")
	trace.Add(TraceQueryEnd, "end")

	entries := trace.Snapshot()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i, e.Seq)
		assert.False(t, e.Timestamp.IsZero())
	}
	assert.Equal(t, -1, entries[0].ChunkIndex)
	assert.Equal(t, 3, entries[1].ChunkIndex)
}

func TestTrace_RunningTotals(t *testing.T) {
	trace := NewTrace("q", TraceLevelFull)

	trace.AddCompletion(TraceCompletionEnd, 0, 120, time.Second, "")
	trace.AddCompletion(TraceCompletionEnd, 1, 80, time.Second, "")
	trace.AddChunk(TraceChunkEnd, 0, "")
	trace.AddChunk(TraceChunkEnd, 1, "")
	trace.AddChunk(TraceChunkSkip, 2, "no filter match")

	assert.Equal(t, 2, trace.CompletionCalls)
	assert.Equal(t, 200, trace.TotalTokens)
	assert.Equal(t, 2, trace.ChunksProcessed)
	assert.Equal(t, 1, trace.ChunksSkipped)
}

func TestTrace_MinimalLevelDropsPipelineEvents(t *testing.T) {
	trace := NewTrace("q", TraceLevelMinimal)

	trace.Add(TraceQueryStart, "start")
	trace.Add(TracePlanStart, "")
	trace.AddChunk(TraceChunkEnd, 0, "")
	trace.Add(TraceError, "boom")
	trace.Add(TraceQueryEnd, "end")

	entries := trace.Snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, TraceQueryStart, entries[0].Event)
	assert.Equal(t, TraceError, entries[1].Event)
	assert.Equal(t, TraceQueryEnd, entries[2].Event)
}

func TestTrace_SummaryLevelKeepsTotalsDropsChunkEntries(t *testing.T) {
	trace := NewTrace("q", TraceLevelSummary)

	trace.Add(TraceQueryStart, "start")
	trace.AddChunk(TraceChunkStart, 0, "")
	trace.AddCompletion(TraceCompletionEnd, 0, 50, time.Second, "")
	trace.AddChunk(TraceChunkEnd, 0, "")
	trace.Add(TraceAggregateStart, "")

	entries := trace.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, TraceQueryStart, entries[0].Event)
	assert.Equal(t, TraceAggregateStart, entries[1].Event)

	assert.Equal(t, 1, trace.CompletionCalls)
	assert.Equal(t, 50, trace.TotalTokens)
	assert.Equal(t, 1, trace.ChunksProcessed)
}

func TestTrace_NilSafe(t *testing.T) {
	var trace *Trace

	trace.Add(TraceInfo, "ignored")
	trace.AddChunk(TraceChunkEnd, 0, "ignored")

	assert.Zero(t, trace.Len())
	assert.Nil(t, trace.Snapshot())
}

func TestTrace_ConcurrentAppend(t *testing.T) {
	trace := NewTrace("q", TraceLevelFull)

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				trace.AddCompletion(TraceCompletionEnd, w, 1, 0, "")
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, trace.Len())
	assert.Equal(t, workers*perWorker, trace.CompletionCalls)
	assert.Equal(t, workers*perWorker, trace.TotalTokens)

	// Sequence numbers are unique and dense.
	seen := make(map[int]bool)
	for _, e := range trace.Snapshot() {
		assert.False(t, seen[e.Seq])
		seen[e.Seq] = true
	}
}

func TestTrace_JSONRoundTrip(t *testing.T) {
	trace := NewTrace("what happened", TraceLevelFull)
	trace.Add(TraceQueryStart, "start")
	trace.AddCompletion(TraceCompletionEnd, 0, 42, time.Second, "done")

	data, err := trace.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "what happened", decoded["query"])
	assert.Equal(t, float64(42), decoded["total_tokens"])
	entries, ok := decoded["entries"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 2)
}

func TestTrace_Markdown(t *testing.T) {
	trace := NewTrace("what happened", TraceLevelFull)
	trace.Add(TraceQueryStart, "start")
	trace.AddChunk(TraceChunkEnd, 2, "10 tokens")

	md := trace.Markdown()

	assert.Contains(t, md, "# Execution Trace")
	assert.Contains(t, md, "**Query:** what happened")
	assert.Contains(t, md, "[chunk 2]")
	assert.Contains(t, md, "Chunks processed: 1")
}
