package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

const exhaustiveOutput = `Found the following mentions:

### Finding 1
> "The new search is fantastic, so much faster"
**Source:** @alice | 2024-03-01T10:02:00Z | #general
**Record Index:** 2
**Sentiment:** Positive
**Key Insight:** Users notice the speed improvement.

### Finding 2
> "search keeps timing out for me"
**Source:** @bob | 2024-03-01T10:05:00Z | #feedback
**Record Index:** 5
**Sentiment:** Negative
**Context:** Reported during the beta rollout.
`

func TestCitationService_Extract_StructuredFindings(t *testing.T) {
	svc := NewCitationService()

	citations := svc.Extract(exhaustiveOutput, 3)

	require.Len(t, citations, 2)

	first := citations[0]
	assert.Equal(t, "The new search is fantastic, so much faster", first.Quote)
	assert.Equal(t, "alice", first.Author)
	assert.Equal(t, "2024-03-01T10:02:00Z", first.Timestamp)
	assert.Equal(t, "general", first.Channel)
	assert.Equal(t, 3, first.ChunkIndex)
	assert.Equal(t, 2, first.RecordIndex)
	assert.Equal(t, domain.SentimentPositive, first.Sentiment)
	assert.Equal(t, "Users notice the speed improvement.", first.Insight)

	second := citations[1]
	assert.Equal(t, "bob", second.Author)
	assert.Equal(t, 5, second.RecordIndex)
	assert.Equal(t, domain.SentimentNegative, second.Sentiment)
	assert.Equal(t, "Reported during the beta rollout.", second.Context)
}

func TestCitationService_Extract_ReferenceID(t *testing.T) {
	svc := NewCitationService()

	citations := svc.Extract(exhaustiveOutput, 3)

	require.Len(t, citations, 2)
	assert.Equal(t, "3.2", citations[0].ReferenceID())
	assert.Equal(t, "3.5", citations[1].ReferenceID())
}

func TestCitationService_Extract_BlockquoteFallback(t *testing.T) {
	svc := NewCitationService()
	response := "Relevant content found:\n\n> this quote is long enough to keep\n\n> no\n"

	citations := svc.Extract(response, 0)

	require.Len(t, citations, 1)
	assert.Equal(t, "this quote is long enough to keep", citations[0].Quote)
	assert.Empty(t, citations[0].Author)
}

func TestCitationService_Extract_NoCitations(t *testing.T) {
	svc := NewCitationService()

	citations := svc.Extract("Nothing quotable here.", 0)

	assert.Empty(t, citations)
}

func TestCitationService_Merge_DedupsAndSorts(t *testing.T) {
	svc := NewCitationService()

	perChunk := [][]domain.Citation{
		{
			{Quote: "duplicate quote text", ChunkIndex: 1, RecordIndex: 0},
			{Quote: "unique from chunk one", ChunkIndex: 1, RecordIndex: 4},
		},
		{
			{Quote: "Duplicate Quote Text", ChunkIndex: 0, RecordIndex: 2},
			{Quote: "unique from chunk zero", ChunkIndex: 0, RecordIndex: 1},
		},
	}

	merged := svc.Merge(perChunk)

	// Case-insensitive dedup keeps the first occurrence.
	require.Len(t, merged, 3)
	assert.Equal(t, "unique from chunk zero", merged[0].Quote)
	assert.Equal(t, "duplicate quote text", merged[1].Quote)
	assert.Equal(t, 1, merged[1].ChunkIndex)
	assert.Equal(t, "unique from chunk one", merged[2].Quote)
}

func TestCitationService_Verify_MatchesRecord(t *testing.T) {
	svc := NewCitationService()
	records := discordRecords(20)
	chunker := NewChunkerService(10, 12000, 0)
	chunks, err := chunker.Chunk(records, nil, domain.StrategyRecords)
	require.NoError(t, err)

	citations := []domain.Citation{
		{Quote: "message number 3", Author: "alice", ChunkIndex: 0, RecordIndex: 3, Sentiment: domain.SentimentPositive},
		{Quote: "message number 15", Author: "bob", ChunkIndex: 1, RecordIndex: 5, Sentiment: domain.SentimentNegative},
		{Quote: "completely fabricated quote", Author: "carol", ChunkIndex: 1, RecordIndex: 6, Sentiment: domain.SentimentNeutral},
	}

	result := svc.Verify(citations, chunks, "content")

	assert.True(t, result.HasCitations)
	assert.Equal(t, 3, result.CitationsFound)
	assert.Equal(t, 2, result.CitationsVerified)
	assert.Equal(t, 3, result.UniqueAuthors)
	assert.Equal(t, 1, result.PositiveMentions)
	assert.Equal(t, 1, result.NegativeMentions)
	assert.Equal(t, 1, result.NeutralMentions)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "1.6")
	assert.Equal(t, []string{"0.3", "1.5", "1.6"}, result.ReferenceIDs)
}

func TestCitationService_Verify_RecordIndexOutOfRange(t *testing.T) {
	svc := NewCitationService()
	chunks := []domain.Chunk{{Index: 0, Records: discordRecords(5)}}

	citations := []domain.Citation{
		{Quote: "anything", ChunkIndex: 0, RecordIndex: 99},
		{Quote: "anything else", ChunkIndex: 7, RecordIndex: 0},
	}

	result := svc.Verify(citations, chunks, "content")

	assert.Zero(t, result.CitationsVerified)
	require.Len(t, result.Issues, 2)
	assert.Contains(t, result.Issues[0], "out of range")
	assert.Contains(t, result.Issues[1], "chunk not found")
}

func TestCitationService_ExtractAll_SkipsIrrelevant(t *testing.T) {
	svc := NewCitationService()

	results := []domain.ChunkResult{
		{ChunkIndex: 0, Success: true, Content: exhaustiveOutput},
		{ChunkIndex: 1, Success: true, Content: domain.NoRelevantContent},
		{ChunkIndex: 2, Success: false, Content: "error text"},
	}

	citations := svc.ExtractAll(results)

	assert.Len(t, citations, 2)
	for _, c := range citations {
		assert.Equal(t, 0, c.ChunkIndex)
	}
}

func TestDetectSentiment(t *testing.T) {
	assert.Equal(t, domain.SentimentPositive, detectSentiment("**Sentiment:** Positive"))
	assert.Equal(t, domain.SentimentNegative, detectSentiment("**Sentiment:** Negative"))
	assert.Equal(t, domain.SentimentMixed, detectSentiment("**Sentiment:** Mixed"))
	assert.Equal(t, domain.SentimentNeutral, detectSentiment("no marker at all"))
}

func TestWordOverlap(t *testing.T) {
	assert.Equal(t, 1.0, wordOverlap("exact words here", "the exact words here too"))
	assert.Equal(t, 0.0, wordOverlap("nothing matches", "entirely different content"))
	assert.Equal(t, 0.0, wordOverlap("", "anything"))
}
