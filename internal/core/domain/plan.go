package domain

import "strings"

// QueryIntent is the classified purpose of a query. It drives prompt
// templates, scan requirements and aggregation strategy.
type QueryIntent string

// Query intents, in rough planner priority order.
const (
	// IntentExhaustive requires every matching mention to be found and
	// individually cited, never summarised away.
	IntentExhaustive QueryIntent = "exhaustive"

	// IntentSearch finds specific content.
	IntentSearch QueryIntent = "search"

	// IntentCount counts occurrences across the full collection.
	IntentCount QueryIntent = "count"

	// IntentTimeline produces a chronological account.
	IntentTimeline QueryIntent = "timeline"

	// IntentCompare contrasts different parts of the collection.
	IntentCompare QueryIntent = "compare"

	// IntentExtract lists matching items.
	IntentExtract QueryIntent = "extract"

	// IntentSummarize condenses topics and themes.
	IntentSummarize QueryIntent = "summarize"

	// IntentAnalyze performs open-ended analysis.
	IntentAnalyze QueryIntent = "analyze"
)

// FilterCriteria filters chunks before any completion call is made.
// Matching is cheap case-insensitive substring testing.
type FilterCriteria struct {
	// Keywords must appear (any of them) in a chunk's text.
	Keywords []string

	// ExcludeKeywords must not appear in a record's text.
	ExcludeKeywords []string

	// FieldFilters require exact field-value equality on records.
	FieldFilters map[string]string

	// Author restricts to records mentioning the given author.
	Author string

	// Channel restricts to records mentioning the given channel.
	Channel string
}

// Empty reports whether no filter criteria were derived.
func (f FilterCriteria) Empty() bool {
	return len(f.Keywords) == 0 && f.Author == "" && f.Channel == ""
}

// MatchesText reports whether pre-formatted chunk text passes the
// keyword, author and channel filters.
func (f FilterCriteria) MatchesText(text string) bool {
	lower := strings.ToLower(text)

	if len(f.Keywords) > 0 {
		found := false
		for _, kw := range f.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, kw := range f.ExcludeKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}

	if f.Channel != "" && !strings.Contains(lower, strings.ToLower(f.Channel)) {
		return false
	}
	if f.Author != "" && !strings.Contains(lower, strings.ToLower(f.Author)) {
		return false
	}

	return true
}

// MatchesRecord reports whether a single record passes the criteria.
// contentField, when known, limits keyword matching to the main content.
func (f FilterCriteria) MatchesRecord(r Record, contentField string) bool {
	if len(f.Keywords) > 0 {
		var content string
		if contentField != "" {
			content = strings.ToLower(r.StringField(contentField))
		}
		if content == "" {
			content = strings.ToLower(r.Compact())
		}
		found := false
		for _, kw := range f.Keywords {
			if strings.Contains(content, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.ExcludeKeywords) > 0 {
		whole := strings.ToLower(r.Compact())
		for _, kw := range f.ExcludeKeywords {
			if strings.Contains(whole, strings.ToLower(kw)) {
				return false
			}
		}
	}

	for name, expected := range f.FieldFilters {
		if _, ok := r[name]; ok && r.StringField(name) != expected {
			return false
		}
	}

	return true
}

// QueryPlan is the immutable execution plan for one query.
type QueryPlan struct {
	// Query is the original natural-language query text.
	Query string

	// Intent is the detected query intent.
	Intent QueryIntent

	// Filter holds the criteria used to skip chunks cheaply.
	Filter FilterCriteria

	// RequireFullScan forces processing of every chunk.
	RequireFullScan bool

	// ChunkLimit caps processed chunks when a full scan is not required.
	// Zero means no cap.
	ChunkLimit int

	// ParallelOK is false for intents that depend on strict emission
	// order, such as timeline queries.
	ParallelOK bool

	// ChunkInstruction is the per-chunk prompt template.
	ChunkInstruction string

	// AggregateInstruction is the synthesis prompt template.
	AggregateInstruction string

	// EstimatedChunks and EstimatedTokens are heuristic cost estimates
	// recorded for diagnostics only; never used for correctness.
	EstimatedChunks int
	EstimatedTokens int

	// Reasoning explains the planning decisions for the trace.
	Reasoning string
}
