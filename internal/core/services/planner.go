package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// PlannerService turns a natural-language query into a deterministic
// execution plan: intent, filters, prompts, and cost estimates.
type PlannerService struct {
	schema *domain.Schema
}

// NewPlannerService creates a planner for the given schema.
func NewPlannerService(schema *domain.Schema) *PlannerService {
	return &PlannerService{schema: schema}
}

// exhaustiveIndicators trigger exhaustive extraction when found anywhere
// in the query.
var exhaustiveIndicators = []string{
	"what are people saying",
	"everything about",
	"all mentions",
	"every mention",
	"everything said about",
	"all the discussions",
	"comprehensive",
	"exhaustive",
	"each instance",
	"every single",
	"all instances",
	"cite all",
	"full context",
}

// opinionPatterns also trigger exhaustive extraction: asking what people
// think needs every mention, not a summary.
var opinionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`what (?:do|are|did) (?:people|they|users?|members?) (?:say|think|mention)`),
	regexp.MustCompile(`opinions? (?:on|about|regarding)`),
	regexp.MustCompile(`thoughts? (?:on|about|regarding)`),
	regexp.MustCompile(`feedback (?:on|about|regarding)`),
	regexp.MustCompile(`discussion (?:on|about|regarding)`),
}

var (
	searchIndicators    = []string{"find", "search", "look for", "where", "who said", "mentions"}
	countIndicators     = []string{"how many", "count", "number of", "total"}
	timelineIndicators  = []string{"when", "timeline", "over time", "history", "chronological"}
	compareIndicators   = []string{"compare", "difference", "versus", "vs", "between"}
	extractIndicators   = []string{"extract", "list", "get all", "show me all"}
	summarizeIndicators = []string{"summarize", "summary", "main topics", "what about", "discuss"}
)

var (
	quotedPhraseRe = regexp.MustCompile(`"([^"]+)"`)
	aboutRe        = regexp.MustCompile(`(?:about|regarding|mentioning|related to)\s+(\w+(?:\s+\w+)?)`)
	channelRe      = regexp.MustCompile(`(?:in|from|channel)\s+#?(\w+)`)
	authorRe       = regexp.MustCompile(`(?:by|from user|user)\s+@?(\w+)`)
)

// stopWords are excluded from fallback keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true,
	"what": true, "where": true, "when": true, "who": true,
	"how": true, "why": true, "which": true,
	"about": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true,
	"and": true, "or": true, "but": true, "not": true,
	"all": true, "any": true, "some": true,
	"do": true, "does": true, "did": true, "can": true,
	"could": true, "would": true, "should": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true,
}

// Plan builds the execution plan for a query.
func (p *PlannerService) Plan(query string) (*domain.QueryPlan, error) {
	logger.Section("Query Planning")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	intent := p.detectIntent(query)
	logger.Info("Detected intent: %s", intent)

	filter := p.extractFilters(query)
	logger.Debug("Filter: keywords=%v, channel=%q, author=%q",
		filter.Keywords, filter.Channel, filter.Author)

	fullScan := requiresFullScan(intent, filter)

	plan := &domain.QueryPlan{
		Query:                query,
		Intent:               intent,
		Filter:               filter,
		RequireFullScan:      fullScan,
		ParallelOK:           intent != domain.IntentTimeline,
		ChunkInstruction:     chunkPrompt(query, intent, p.schema),
		AggregateInstruction: aggregatePrompt(query, intent),
	}
	if !fullScan {
		plan.ChunkLimit = 100
	}

	plan.EstimatedChunks = p.estimateChunks(filter)
	if plan.EstimatedChunks > 0 {
		plan.EstimatedTokens = plan.EstimatedChunks * 5000
	}

	plan.Reasoning = buildReasoning(intent, filter, fullScan)
	logger.Debug("Plan: %s", plan.Reasoning)

	return plan, nil
}

// detectIntent classifies the query, checking the most specific intents
// first. Exhaustive beats everything: a query asking what people think
// must never degrade to a summary.
func (p *PlannerService) detectIntent(query string) domain.QueryIntent {
	lower := strings.ToLower(query)

	for _, ind := range exhaustiveIndicators {
		if strings.Contains(lower, ind) {
			return domain.IntentExhaustive
		}
	}
	for _, pattern := range opinionPatterns {
		if pattern.MatchString(lower) {
			return domain.IntentExhaustive
		}
	}

	if containsAny(lower, searchIndicators) {
		return domain.IntentSearch
	}
	if containsAny(lower, countIndicators) {
		return domain.IntentCount
	}
	if containsAny(lower, timelineIndicators) {
		return domain.IntentTimeline
	}
	if containsAny(lower, compareIndicators) {
		return domain.IntentCompare
	}
	if containsAny(lower, extractIndicators) {
		return domain.IntentExtract
	}
	if containsAny(lower, summarizeIndicators) {
		return domain.IntentSummarize
	}

	if strings.Contains(query, "?") ||
		strings.HasPrefix(lower, "what") ||
		strings.HasPrefix(lower, "why") ||
		strings.HasPrefix(lower, "how") {
		return domain.IntentAnalyze
	}

	return domain.IntentSummarize
}

// extractFilters pulls keywords, channel and author constraints out of
// the query text.
func (p *PlannerService) extractFilters(query string) domain.FilterCriteria {
	var criteria domain.FilterCriteria
	lower := strings.ToLower(query)

	// Quoted phrases are exact keywords.
	for _, m := range quotedPhraseRe.FindAllStringSubmatch(query, -1) {
		criteria.Keywords = append(criteria.Keywords, m[1])
	}

	if m := aboutRe.FindStringSubmatch(lower); m != nil {
		criteria.Keywords = append(criteria.Keywords, m[1])
	}

	// Channel filters only make sense for message logs.
	if p.schema != nil && p.schema.Format.IsMessageLog() {
		if m := channelRe.FindStringSubmatch(lower); m != nil {
			criteria.Channel = m[1]
		}
	}

	if m := authorRe.FindStringSubmatch(lower); m != nil {
		criteria.Author = m[1]
	}

	// Fallback: take the first few meaningful words as keywords.
	if len(criteria.Keywords) == 0 {
		for _, word := range strings.Fields(lower) {
			word = strings.Trim(word, `.,!?"'`)
			if len(word) > 3 && !stopWords[word] {
				criteria.Keywords = append(criteria.Keywords, word)
				if len(criteria.Keywords) == 3 {
					break
				}
			}
		}
	}

	return criteria
}

// requiresFullScan decides whether every chunk must be processed.
func requiresFullScan(intent domain.QueryIntent, criteria domain.FilterCriteria) bool {
	switch intent {
	case domain.IntentCount, domain.IntentExhaustive, domain.IntentCompare:
		return true
	}
	// Without filters there is nothing to narrow by.
	return len(criteria.Keywords) == 0 && criteria.Channel == "" && criteria.Author == ""
}

// estimateChunks is a pre-flight cost estimate: keyword filters are
// assumed to drop ~90% of records, field filters ~80%.
func (p *PlannerService) estimateChunks(criteria domain.FilterCriteria) int {
	if p.schema == nil || p.schema.TotalRecords <= 0 {
		return 0
	}

	estimated := float64(p.schema.TotalRecords)
	switch {
	case len(criteria.Keywords) > 0:
		estimated *= 0.1
	case criteria.Channel != "" || criteria.Author != "":
		estimated *= 0.2
	}

	chunks := int(estimated / 50)
	if chunks < 1 {
		chunks = 1
	}
	return chunks
}

// buildReasoning explains the planning decisions for the trace.
func buildReasoning(intent domain.QueryIntent, criteria domain.FilterCriteria, fullScan bool) string {
	parts := []string{fmt.Sprintf("Detected intent: %s", intent)}

	if len(criteria.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("Keywords to search: %s", strings.Join(criteria.Keywords, ", ")))
	}
	if criteria.Channel != "" {
		parts = append(parts, fmt.Sprintf("Filtering to channel: %s", criteria.Channel))
	}
	if criteria.Author != "" {
		parts = append(parts, fmt.Sprintf("Filtering to author: %s", criteria.Author))
	}
	if fullScan {
		parts = append(parts, "Full scan required for comprehensive answer")
	} else {
		parts = append(parts, "Can use keyword filtering to reduce chunks")
	}

	return strings.Join(parts, "; ")
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
