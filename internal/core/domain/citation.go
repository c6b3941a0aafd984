package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentiment classifies the opinion expressed by a cited quote.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// Citation is a single citable reference extracted from a chunk output.
// It carries everything needed to verify the source independently.
type Citation struct {
	// Quote is the exact quoted excerpt.
	Quote string

	// Author is who said it, when attributed.
	Author string

	// Timestamp is when it was said, when attributed.
	Timestamp string

	// Channel is the channel or thread name, when attributed.
	Channel string

	// ChunkIndex and RecordIndex locate the source: RecordIndex is the
	// record's position within the chunk, so the original record is
	// chunk.StartRecord + RecordIndex in the collection.
	ChunkIndex  int
	RecordIndex int

	// Context describes the surrounding discussion.
	Context string

	// Sentiment tags the quoted opinion.
	Sentiment Sentiment

	// Insight is the free-text note on what the quote means.
	Insight string
}

// ReferenceID returns the "chunkIndex.recordIndex" locator for the
// citation, e.g. "3.15".
func (c Citation) ReferenceID() string {
	return fmt.Sprintf("%d.%d", c.ChunkIndex, c.RecordIndex)
}

// SourceLine formats the attribution as a single pipe-delimited line.
func (c Citation) SourceLine() string {
	var parts []string
	if c.Author != "" {
		parts = append(parts, "@"+c.Author)
	}
	if c.Timestamp != "" {
		parts = append(parts, c.Timestamp)
	}
	if c.Channel != "" {
		parts = append(parts, "#"+c.Channel)
	}
	if len(parts) == 0 {
		return "Unknown source"
	}
	return strings.Join(parts, " | ")
}

// DedupKey normalises the quote for cross-chunk deduplication:
// case-folded and truncated to 100 characters.
func (c Citation) DedupKey() string {
	key := strings.ToLower(strings.TrimSpace(c.Quote))
	if len(key) > 100 {
		key = key[:100]
	}
	return key
}

// Markdown renders the citation as a display block.
func (c Citation) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "> %q\n\n", c.Quote)
	fmt.Fprintf(&b, "**Source:** %s\n", c.SourceLine())
	fmt.Fprintf(&b, "**Ref:** `%s`\n", c.ReferenceID())

	if c.Sentiment != "" && c.Sentiment != SentimentNeutral {
		fmt.Fprintf(&b, "**Sentiment:** %s\n", c.Sentiment)
	}
	if c.Insight != "" {
		fmt.Fprintf(&b, "**Insight:** %s\n", c.Insight)
	}
	if c.Context != "" {
		fmt.Fprintf(&b, "**Context:** %s\n", c.Context)
	}

	return strings.TrimRight(b.String(), "\n")
}

// SortCitations orders citations by (chunk index, record index) for
// stable, deterministic cross-chunk merging.
func SortCitations(citations []Citation) {
	sort.SliceStable(citations, func(i, j int) bool {
		if citations[i].ChunkIndex != citations[j].ChunkIndex {
			return citations[i].ChunkIndex < citations[j].ChunkIndex
		}
		return citations[i].RecordIndex < citations[j].RecordIndex
	})
}

// CitationReport is the complete citation output for one query.
type CitationReport struct {
	// Query is the originating query text.
	Query string

	// SourcePath names the collection, when file-backed.
	SourcePath string

	// Citations holds the deduplicated citations in merge order.
	Citations []Citation

	// TotalFound is len(Citations).
	TotalFound int

	// UniqueAuthors counts distinct attributed authors.
	UniqueAuthors int

	// SentimentBreakdown counts citations per sentiment.
	SentimentBreakdown map[Sentiment]int

	// Verified is true when every citation passed verification.
	Verified bool

	// VerificationIssues lists advisory verification problems.
	VerificationIssues []string

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time
}

// NewCitationReport builds a report over the given citations, computing
// the aggregate statistics.
func NewCitationReport(query, sourcePath string, citations []Citation) *CitationReport {
	r := &CitationReport{
		Query:       query,
		SourcePath:  sourcePath,
		Citations:   citations,
		TotalFound:  len(citations),
		GeneratedAt: time.Now(),
		SentimentBreakdown: map[Sentiment]int{
			SentimentPositive: 0,
			SentimentNegative: 0,
			SentimentNeutral:  0,
			SentimentMixed:    0,
		},
	}

	authors := make(map[string]bool)
	for _, c := range citations {
		if c.Author != "" {
			authors[c.Author] = true
		}
		sentiment := c.Sentiment
		if sentiment == "" {
			sentiment = SentimentNeutral
		}
		r.SentimentBreakdown[sentiment]++
	}
	r.UniqueAuthors = len(authors)

	return r
}

// ReferenceIDs returns all citation reference ids in report order.
func (r *CitationReport) ReferenceIDs() []string {
	ids := make([]string, len(r.Citations))
	for i, c := range r.Citations {
		ids[i] = c.ReferenceID()
	}
	return ids
}

// Markdown renders the full citation report.
func (r *CitationReport) Markdown() string {
	var b strings.Builder

	b.WriteString("# Citation Report\n\n")
	fmt.Fprintf(&b, "**Query:** %s\n", r.Query)
	if r.SourcePath != "" {
		fmt.Fprintf(&b, "**Source:** `%s`\n", r.SourcePath)
	}
	fmt.Fprintf(&b, "**Generated:** %s\n\n", r.GeneratedAt.Format(time.RFC3339))
	b.WriteString("---\n\n")

	b.WriteString("## Summary Statistics\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Total Citations | %d |\n", r.TotalFound)
	fmt.Fprintf(&b, "| Unique Contributors | %d |\n", r.UniqueAuthors)
	fmt.Fprintf(&b, "| Positive | %d |\n", r.SentimentBreakdown[SentimentPositive])
	fmt.Fprintf(&b, "| Negative | %d |\n", r.SentimentBreakdown[SentimentNegative])
	fmt.Fprintf(&b, "| Neutral | %d |\n", r.SentimentBreakdown[SentimentNeutral])
	fmt.Fprintf(&b, "| Mixed | %d |\n", r.SentimentBreakdown[SentimentMixed])
	b.WriteString("\n---\n\n## All Citations\n\n")

	for i, c := range r.Citations {
		fmt.Fprintf(&b, "### Citation %d\n\n", i+1)
		b.WriteString(c.Markdown())
		b.WriteString("\n\n---\n\n")
	}

	b.WriteString("## Verification\n\n")
	if r.Verified {
		b.WriteString("**Status:** Verified\n\n")
	} else {
		b.WriteString("**Status:** Not Verified\n\n")
	}
	if len(r.VerificationIssues) > 0 {
		b.WriteString("**Issues:**\n")
		for _, issue := range r.VerificationIssues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Reference Index\n\nUse these references to look up original records:\n\n")
	for _, ref := range r.ReferenceIDs() {
		fmt.Fprintf(&b, "- `%s`\n", ref)
	}

	return b.String()
}
