package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

func chunkResult(index int, content string) domain.ChunkResult {
	return domain.ChunkResult{
		ChunkIndex: index,
		Success:    true,
		Content:    content,
	}
}

func aggPlan(intent domain.QueryIntent) *domain.QueryPlan {
	return &domain.QueryPlan{
		Query:                "q",
		Intent:               intent,
		AggregateInstruction: "Combine the findings.",
	}
}

func TestAggregatorService_Aggregate_NoRelevantResults(t *testing.T) {
	agg := NewAggregatorService(&fakeCompletion{})
	results := []domain.ChunkResult{
		{ChunkIndex: 0, Success: true, Content: domain.NoRelevantContent},
		{ChunkIndex: 1, Success: false},
	}

	out, err := agg.Aggregate(context.Background(), aggPlan(domain.IntentSearch), results, domain.NewTrace("q", domain.TraceLevelFull))
	require.NoError(t, err)

	assert.Contains(t, out.Content, "No relevant content")
	assert.Equal(t, domain.StrategyConcatenate, out.Strategy)
	assert.Empty(t, out.SourceChunks)
}

func TestAggregatorService_Aggregate_CountMerge(t *testing.T) {
	agg := NewAggregatorService(&fakeCompletion{})
	results := []domain.ChunkResult{
		chunkResult(0, "COUNT: 3\n- first example\n- second example"),
		chunkResult(1, "COUNT: 2\n- third example"),
		chunkResult(2, "COUNT: 0"),
	}

	out, err := agg.Aggregate(context.Background(), aggPlan(domain.IntentCount), results, domain.NewTrace("q", domain.TraceLevelFull))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyMerge, out.Strategy)
	assert.Contains(t, out.Content, "Total count: 5 (from 3 chunks)")
	assert.Contains(t, out.Content, "first example")
	assert.Equal(t, []int{0, 1, 2}, out.SourceChunks)
	assert.Zero(t, out.TokensUsed, "merge makes no completion calls")
}

func TestAggregatorService_Aggregate_SmallSetConcatenates(t *testing.T) {
	completion := &fakeCompletion{}
	agg := NewAggregatorService(completion)
	results := []domain.ChunkResult{
		chunkResult(0, "short finding one"),
		chunkResult(2, "short finding two"),
	}

	out, err := agg.Aggregate(context.Background(), aggPlan(domain.IntentSearch), results, domain.NewTrace("q", domain.TraceLevelFull))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyConcatenate, out.Strategy)
	assert.Contains(t, out.Content, "[Chunk 0]")
	assert.Contains(t, out.Content, "[Chunk 2]")
	assert.Zero(t, completion.callCount())
}

func TestAggregatorService_Aggregate_MediumSetSummarizes(t *testing.T) {
	completion := &fakeCompletion{
		reply: func(prompt, _ string) (string, int, error) {
			assert.Contains(t, prompt, "Combine the findings.")
			return "synthesized answer", 20, nil
		},
	}
	agg := NewAggregatorService(completion)
	results := []domain.ChunkResult{
		chunkResult(0, strings.Repeat("finding text ", 200)),
		chunkResult(1, strings.Repeat("more findings ", 200)),
		chunkResult(2, "short"),
		chunkResult(3, "also short"),
	}

	out, err := agg.Aggregate(context.Background(), aggPlan(domain.IntentSummarize), results, domain.NewTrace("q", domain.TraceLevelFull))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategySummarize, out.Strategy)
	assert.Equal(t, "synthesized answer", out.Content)
	assert.Equal(t, 20, out.TokensUsed)
	assert.Equal(t, 1, out.Levels)
}

func TestAggregatorService_Aggregate_SummarizeFallsBackOnError(t *testing.T) {
	completion := &fakeCompletion{
		reply: func(_, _ string) (string, int, error) {
			return "", 0, errors.New("model down")
		},
	}
	agg := NewAggregatorService(completion)
	results := []domain.ChunkResult{
		chunkResult(0, strings.Repeat("finding text ", 200)),
		chunkResult(1, strings.Repeat("more findings ", 200)),
		chunkResult(2, "short"),
		chunkResult(3, "tail"),
	}

	out, err := agg.Aggregate(context.Background(), aggPlan(domain.IntentSummarize), results, domain.NewTrace("q", domain.TraceLevelFull))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyConcatenate, out.Strategy)
	assert.Contains(t, out.Content, "finding text")
}

func TestAggregatorService_Aggregate_ManyResultsGoHierarchical(t *testing.T) {
	completion := &fakeCompletion{
		reply: func(_, _ string) (string, int, error) {
			return "reduced", 5, nil
		},
	}
	agg := NewAggregatorService(completion)

	results := make([]domain.ChunkResult, 25)
	for i := range results {
		results[i] = chunkResult(i, strings.Repeat("finding ", 300))
	}

	out, err := agg.Aggregate(context.Background(), aggPlan(domain.IntentSummarize), results, domain.NewTrace("q", domain.TraceLevelFull))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyHierarchical, out.Strategy)
	// 25 inputs reduce to 3, then to 1.
	assert.Equal(t, 2, out.Levels)
	assert.Equal(t, "reduced", out.Content)
	assert.Equal(t, 4*5, out.TokensUsed, "three batches at level one, one at level two")
}

func TestAggregatorService_Aggregate_HierarchicalLevelFailureConcatenates(t *testing.T) {
	completion := &fakeCompletion{
		reply: func(_, _ string) (string, int, error) {
			return "", 0, errors.New("model down")
		},
	}
	agg := NewAggregatorService(completion)

	results := make([]domain.ChunkResult, 25)
	for i := range results {
		results[i] = chunkResult(i, strings.Repeat("finding ", 300))
	}

	out, err := agg.Aggregate(context.Background(), aggPlan(domain.IntentSummarize), results, domain.NewTrace("q", domain.TraceLevelFull))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyHierarchical, out.Strategy)
	assert.Contains(t, out.Content, "finding")
	assert.Zero(t, out.TokensUsed)
}

func TestAggregatorService_Aggregate_NoCompletionConcatenates(t *testing.T) {
	agg := NewAggregatorService(nil)

	results := make([]domain.ChunkResult, 12)
	for i := range results {
		results[i] = chunkResult(i, strings.Repeat("finding ", 300))
	}

	out, err := agg.Aggregate(context.Background(), aggPlan(domain.IntentSummarize), results, domain.NewTrace("q", domain.TraceLevelFull))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyConcatenate, out.Strategy)
}
