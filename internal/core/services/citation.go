package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// CitationService extracts structured citations from completion outputs
// and verifies them against the original records.
type CitationService struct{}

// NewCitationService creates a citation service.
func NewCitationService() *CitationService {
	return &CitationService{}
}

var (
	// findingRe matches the structured finding blocks the exhaustive
	// prompt asks for: a heading, a blockquote, and a Source line.
	findingRe = regexp.MustCompile(`(?is)###\s*(?:Finding|Citation)\s*\d+\s*\n+>\s*["']?(.+?)["']?\s*\n+\*\*Source:\*\*\s*(.+?)\n`)

	// recordIndexRe matches the optional Record Index line after a finding.
	recordIndexRe = regexp.MustCompile(`\*\*Record\s*(?:Index|Ref):\*\*\s*(?:\d+\.)?(\d+)`)

	// insightRe matches the Insight line after a finding.
	insightRe = regexp.MustCompile(`\*\*(?:Key\s*)?Insight:\*\*\s*(.+)`)

	// contextLineRe matches the Context line after a finding.
	contextLineRe = regexp.MustCompile(`\*\*Context:\*\*\s*(.+)`)

	// blockquoteRe is the unstructured fallback.
	blockquoteRe = regexp.MustCompile(`>\s*["']?(.+?)["']?\s*\n`)

	// datePartRe and timePartRe classify source line segments as timestamps.
	datePartRe = regexp.MustCompile(`^\d{4}[-/]`)
	timePartRe = regexp.MustCompile(`^\d{1,2}:\d{2}`)
)

// Extract parses citations out of one chunk's completion output. When
// the output carries no structured findings, bare blockquotes longer
// than a few words are kept with unknown attribution.
func (s *CitationService) Extract(response string, chunkIndex int) []domain.Citation {
	var citations []domain.Citation

	matches := findingRe.FindAllStringSubmatchIndex(response, -1)
	for ordinal, loc := range matches {
		quote := strings.Trim(strings.TrimSpace(response[loc[2]:loc[3]]), `"'`)
		sourceLine := strings.TrimSpace(response[loc[4]:loc[5]])

		citation := domain.Citation{
			Quote:       quote,
			ChunkIndex:  chunkIndex,
			RecordIndex: ordinal,
			Sentiment:   domain.SentimentNeutral,
		}

		// Source line format: @username | timestamp | #channel
		for _, part := range strings.Split(sourceLine, "|") {
			part = strings.TrimSpace(part)
			switch {
			case strings.HasPrefix(part, "@"):
				citation.Author = strings.TrimPrefix(part, "@")
			case strings.Contains(part, "#"):
				citation.Channel = strings.TrimSpace(strings.ReplaceAll(part, "#", ""))
			case datePartRe.MatchString(part) || timePartRe.MatchString(part):
				citation.Timestamp = part
			}
		}

		// The lines after the finding carry the optional fields. Look
		// only a short distance ahead, and never past the next finding.
		after := lookahead(response, loc[1], 500)
		if next := strings.Index(after, "###"); next >= 0 {
			after = after[:next]
		}

		if m := recordIndexRe.FindStringSubmatch(after); m != nil {
			if idx, err := strconv.Atoi(m[1]); err == nil {
				citation.RecordIndex = idx
			}
		}
		sentimentWindow := after
		if len(sentimentWindow) > 200 {
			sentimentWindow = sentimentWindow[:200]
		}
		citation.Sentiment = detectSentiment(sentimentWindow)
		if m := insightRe.FindStringSubmatch(after); m != nil {
			citation.Insight = strings.TrimSpace(m[1])
		}
		if m := contextLineRe.FindStringSubmatch(after); m != nil {
			citation.Context = strings.TrimSpace(m[1])
		}

		citations = append(citations, citation)
	}

	if len(citations) == 0 {
		for i, m := range blockquoteRe.FindAllStringSubmatch(response, -1) {
			quote := strings.TrimSpace(m[1])
			if len(quote) > 10 {
				citations = append(citations, domain.Citation{
					Quote:       quote,
					ChunkIndex:  chunkIndex,
					RecordIndex: i,
					Sentiment:   domain.SentimentNeutral,
				})
			}
		}
	}

	return citations
}

// ExtractAll extracts citations from every relevant chunk result and
// merges them.
func (s *CitationService) ExtractAll(results []domain.ChunkResult) []domain.Citation {
	perChunk := make([][]domain.Citation, 0, len(results))
	for _, r := range results {
		if !r.Relevant() {
			continue
		}
		perChunk = append(perChunk, s.Extract(r.Content, r.ChunkIndex))
	}
	merged := s.Merge(perChunk)
	logger.Info("Extracted %d citations from %d chunk outputs", len(merged), len(perChunk))
	return merged
}

// Merge combines per-chunk citation lists, dropping duplicate quotes.
// The first occurrence of a quote wins. Output is sorted by chunk and
// record index.
func (s *CitationService) Merge(perChunk [][]domain.Citation) []domain.Citation {
	var all []domain.Citation
	seen := make(map[string]bool)

	for _, citations := range perChunk {
		for _, c := range citations {
			key := c.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, c)
		}
	}

	domain.SortCitations(all)
	return all
}

// Verify checks each citation's quote against the record it references
// using word-set overlap. A citation passes when at least half its
// words appear in the referenced record. The result is advisory; it
// never blocks the answer.
func (s *CitationService) Verify(
	citations []domain.Citation, chunks []domain.Chunk, contentField string,
) *domain.VerificationResult {
	result := &domain.VerificationResult{
		HasCitations:   len(citations) > 0,
		CitationsFound: len(citations),
	}

	chunkByIndex := make(map[int]*domain.Chunk, len(chunks))
	for i := range chunks {
		chunkByIndex[chunks[i].Index] = &chunks[i]
	}

	authors := make(map[string]bool)

	for _, c := range citations {
		if c.Author != "" {
			authors[c.Author] = true
		}
		switch c.Sentiment {
		case domain.SentimentPositive:
			result.PositiveMentions++
		case domain.SentimentNegative:
			result.NegativeMentions++
		default:
			result.NeutralMentions++
		}
		result.ReferenceIDs = append(result.ReferenceIDs, c.ReferenceID())

		chunk, ok := chunkByIndex[c.ChunkIndex]
		if !ok {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Ref %s: chunk not found", c.ReferenceID()))
			continue
		}
		if c.RecordIndex < 0 || c.RecordIndex >= len(chunk.Records) {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Ref %s: record index out of range", c.ReferenceID()))
			continue
		}

		record := chunk.Records[c.RecordIndex]
		content := record.StringField(contentField)
		if content == "" {
			content = record.Compact()
		}

		if wordOverlap(c.Quote, content) > 0.5 {
			result.CitationsVerified++
		} else {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Ref %s: quote not found in record", c.ReferenceID()))
		}
	}

	result.UniqueAuthors = len(authors)
	if result.CitationsVerified < result.CitationsFound {
		logger.Warn("Citation verification: %d of %d verified",
			result.CitationsVerified, result.CitationsFound)
	}
	return result
}

// Report builds the full citation report, including verification when
// chunks are provided.
func (s *CitationService) Report(
	query, sourcePath string, citations []domain.Citation, chunks []domain.Chunk, contentField string,
) *domain.CitationReport {
	report := domain.NewCitationReport(query, sourcePath, citations)
	if len(chunks) > 0 {
		verification := s.Verify(citations, chunks, contentField)
		report.Verified = verification.CitationsVerified == verification.CitationsFound
		report.VerificationIssues = verification.Issues
	}
	return report
}

// detectSentiment scans the text following a finding for a sentiment
// marker.
func detectSentiment(text string) domain.Sentiment {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "positive"):
		return domain.SentimentPositive
	case strings.Contains(lower, "negative"):
		return domain.SentimentNegative
	case strings.Contains(lower, "mixed"):
		return domain.SentimentMixed
	default:
		return domain.SentimentNeutral
	}
}

// wordOverlap returns the fraction of quote words present in content.
func wordOverlap(quote, content string) float64 {
	quoteWords := wordSet(quote)
	if len(quoteWords) == 0 {
		return 0
	}
	contentWords := wordSet(content)

	matched := 0
	for w := range quoteWords {
		if contentWords[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(quoteWords))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

// lookahead returns up to n bytes of s starting at offset.
func lookahead(s string, offset, n int) string {
	if offset >= len(s) {
		return ""
	}
	end := offset + n
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end]
}
