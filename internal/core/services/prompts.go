package services

import (
	"fmt"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

// chunkPrompt builds the per-chunk instruction for the given intent.
// The chunk text itself is appended by the executor.
func chunkPrompt(query string, intent domain.QueryIntent, schema *domain.Schema) string {
	format := domain.FormatUnknown
	contentField := "N/A"
	if schema != nil {
		format = schema.Format
		if schema.ContentField != "" {
			contentField = schema.ContentField
		}
	}

	base := fmt.Sprintf(`You are analyzing a portion of a JSON data export.
Format: %s
Content field: %s

USER QUERY: %s

`, format, contentField, query)

	switch intent {
	case domain.IntentSearch:
		return base + fmt.Sprintf(`TASK: Search this chunk for content relevant to the query.

If you find relevant content:
- Quote the exact relevant parts
- Note who said it and when (if available)
- Explain why it's relevant

If nothing relevant is found, respond with "%s"
`, domain.NoRelevantContent)

	case domain.IntentCount:
		return base + `TASK: Count items matching the query criteria in this chunk.

Provide:
- Count of matching items
- Brief examples (up to 3)

Format: COUNT: [number]
`

	case domain.IntentSummarize:
		return base + `TASK: Summarize content in this chunk related to the query.

Provide:
- Key themes or topics discussed
- Notable quotes or statements
- Main conclusions or decisions

Keep summary concise but comprehensive.
`

	case domain.IntentTimeline:
		return base + `TASK: Extract timeline information related to the query.

For each relevant event:
- Date/time
- What happened
- Who was involved

Format chronologically.
`

	case domain.IntentExtract:
		return base + `TASK: Extract all items matching the query criteria.

List each matching item with:
- The content itself
- Source/author
- Timestamp

Format as a list.
`

	case domain.IntentExhaustive:
		// The finding layout below is parsed by CitationService; change
		// the two together.
		return base + fmt.Sprintf(`TASK: Find EVERY SINGLE mention related to the query in this chunk.
This is an exhaustive extraction - we need COMPLETE coverage.

For EACH relevant mention, you MUST provide:

1. **EXACT QUOTE**: The verbatim text (use > blockquote)
2. **CITATION**:
   - Author/username (who said it)
   - Timestamp (when they said it)
   - Message ID or record index (if available)
   - Channel/thread name (if applicable)
3. **CONTEXT**: What was being discussed before/after
4. **SENTIMENT**: Positive/negative/neutral opinion
5. **IMPLICATIONS**: What this statement means or suggests

FORMAT each finding as:

### Finding N

> "[Exact quote from the source]"

**Source:** @username | timestamp | channel/thread
**Record Index:** [record index within this chunk]
**Context:** [What was the surrounding discussion]
**Sentiment:** [Positive/Negative/Neutral/Mixed]
**Key Insight:** [What this tells us]

---

CRITICAL REQUIREMENTS:
- Do NOT summarize - extract EVERY instance
- Do NOT skip minor mentions - capture everything
- Include partial mentions and implications
- Provide enough context to verify the source

If nothing relevant is found, respond with "%s"
`, domain.NoRelevantContent)

	default:
		return base + `TASK: Analyze this chunk for insights related to the query.

Provide:
- Key findings
- Relevant evidence or quotes
- Any patterns observed

Be thorough but focused on the query.
`
	}
}

// aggregatePrompt builds the synthesis instruction for combining chunk
// results.
func aggregatePrompt(query string, intent domain.QueryIntent) string {
	base := fmt.Sprintf(`You are synthesizing findings from multiple chunks of data to answer:

QUERY: %s

Below are the findings from each chunk. Synthesize them into a comprehensive answer.

`, query)

	switch intent {
	case domain.IntentCount:
		return base + `Sum up all counts and provide the total.
List example items from across all chunks.
`

	case domain.IntentTimeline:
		return base + `Merge all timeline entries chronologically.
Remove duplicates and create a cohesive timeline.
`

	case domain.IntentCompare:
		return base + `Identify and highlight the key differences and similarities.
Organize by comparison dimension.
`

	case domain.IntentExhaustive:
		return base + `This is an EXHAUSTIVE extraction. Your job is to compile ALL findings.

DO NOT summarize or consolidate. PRESERVE every individual citation.

Structure your response as:

## Summary Statistics
- Total mentions found: [N]
- Unique contributors: [N]
- Sentiment breakdown: Positive [N], Negative [N], Neutral [N]

## All Citations (Chronological)

[Include EVERY finding from the chunks, organized chronologically]

### Citation 1
> "[Exact quote]"
**Source:** @username | timestamp | location
**Record Ref:** [chunk.record for verification]
**Sentiment:** [sentiment]
**Key Point:** [what this means]

[Continue for ALL citations...]

## Analysis

### Common Themes
[Group the citations by theme]

### Notable Opinions
[Highlight particularly insightful or influential statements]

### Contradictions or Debates
[Note where people disagree]

## Verification References
[List all record references for independent verification]

CRITICAL: Do NOT omit any citations. Include everything found.
`

	default:
		return base + `Synthesize all findings into a coherent answer.
- Identify common themes across chunks
- Highlight key insights
- Note any contradictions
- Cite specific sources when relevant
`
	}
}
