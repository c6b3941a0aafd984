package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// Aggregation thresholds: small result sets are concatenated verbatim,
// oversized ones are reduced hierarchically.
const (
	concatMaxChars   = 5000
	concatMaxResults = 3
	hierMinChars     = 50000
	hierMinResults   = 10
	hierBatchSize    = 10
)

// AggregatorService combines per-chunk results into one answer.
type AggregatorService struct {
	completion   driven.CompletionService
	systemPrompt string
}

// NewAggregatorService creates an aggregator. The completion service is
// optional; without it every strategy degrades to concatenation.
func NewAggregatorService(completion driven.CompletionService) *AggregatorService {
	return &AggregatorService{completion: completion}
}

// SetSystemPrompt sets the system prompt sent with aggregation
// completion calls. Empty means no system prompt.
func (a *AggregatorService) SetSystemPrompt(prompt string) {
	a.systemPrompt = prompt
}

// countLineRe matches the structured count the chunk prompt asks for.
var countLineRe = regexp.MustCompile(`COUNT:\s*(\d+)`)

// Aggregate combines the relevant chunk results into a single answer
// using a strategy picked from the intent and the volume of material.
func (a *AggregatorService) Aggregate(
	ctx context.Context, plan *domain.QueryPlan, results []domain.ChunkResult, trace *domain.Trace,
) (*domain.AggregationResult, error) {
	logger.Section("Aggregation")

	relevant := relevantResults(results)
	logger.Info("Relevant results: %d of %d", len(relevant), len(results))

	if len(relevant) == 0 {
		return &domain.AggregationResult{
			Content:  "No relevant content was found for this query.",
			Strategy: domain.StrategyConcatenate,
		}, nil
	}

	strategy := a.pickStrategy(plan.Intent, relevant)
	logger.Info("Aggregation strategy: %s", strategy)
	trace.Add(domain.TraceAggregateStart, fmt.Sprintf("strategy=%s results=%d", strategy, len(relevant)))

	var agg *domain.AggregationResult
	var err error

	switch strategy {
	case domain.StrategyMerge:
		agg = a.merge(relevant)
	case domain.StrategyConcatenate:
		agg = a.concatenate(relevant)
	case domain.StrategyHierarchical:
		agg, err = a.hierarchical(ctx, plan, relevant, trace)
	default:
		agg, err = a.summarize(ctx, plan, relevant)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregating results: %w", err)
	}

	for _, r := range relevant {
		agg.SourceChunks = append(agg.SourceChunks, r.ChunkIndex)
	}
	trace.AddCompletion(domain.TraceAggregateEnd, -1, agg.TokensUsed, 0,
		fmt.Sprintf("strategy=%s levels=%d", agg.Strategy, agg.Levels))

	return agg, nil
}

// relevantResults keeps successful results that carry actual content.
func relevantResults(results []domain.ChunkResult) []domain.ChunkResult {
	out := make([]domain.ChunkResult, 0, len(results))
	for _, r := range results {
		if r.Relevant() {
			out = append(out, r)
		}
	}
	return out
}

// pickStrategy selects the strategy: counts merge mechanically, small
// outputs concatenate, oversized ones reduce hierarchically, everything
// else gets a single synthesis call.
func (a *AggregatorService) pickStrategy(
	intent domain.QueryIntent, results []domain.ChunkResult,
) domain.AggregationStrategy {
	if intent == domain.IntentCount {
		return domain.StrategyMerge
	}

	total := 0
	for _, r := range results {
		total += len(r.Content)
	}

	if total < concatMaxChars && len(results) <= concatMaxResults {
		return domain.StrategyConcatenate
	}
	if (total > hierMinChars || len(results) > hierMinResults) && a.completion != nil {
		return domain.StrategyHierarchical
	}
	if a.completion == nil {
		return domain.StrategyConcatenate
	}
	return domain.StrategySummarize
}

// merge combines structured COUNT outputs without a completion call:
// counts are summed and a handful of example lines are kept.
func (a *AggregatorService) merge(results []domain.ChunkResult) *domain.AggregationResult {
	const maxExamples = 5

	total := 0
	counted := 0
	var examples []string

	for _, r := range results {
		for _, line := range strings.Split(r.Content, "\n") {
			if m := countLineRe.FindStringSubmatch(line); m != nil {
				n, err := strconv.Atoi(m[1])
				if err == nil {
					total += n
					counted++
				}
				continue
			}
			line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
			if line != "" && len(examples) < maxExamples {
				examples = append(examples, line)
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total count: %d (from %d chunks)\n", total, counted)
	if len(examples) > 0 {
		b.WriteString("\nExamples:\n")
		for _, ex := range examples {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}

	return &domain.AggregationResult{
		Content:  b.String(),
		Strategy: domain.StrategyMerge,
	}
}

// concatenate joins results verbatim with chunk markers.
func (a *AggregatorService) concatenate(results []domain.ChunkResult) *domain.AggregationResult {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[Chunk %d]\n%s", r.ChunkIndex, strings.TrimSpace(r.Content))
	}
	return &domain.AggregationResult{
		Content:  b.String(),
		Strategy: domain.StrategyConcatenate,
	}
}

// summarize synthesizes all results with a single completion call,
// falling back to concatenation when the call fails.
func (a *AggregatorService) summarize(
	ctx context.Context, plan *domain.QueryPlan, results []domain.ChunkResult,
) (*domain.AggregationResult, error) {
	if a.completion == nil {
		return a.concatenate(results), nil
	}

	prompt := plan.AggregateInstruction + "\n\n" + joinFindings(results)

	content, tokens, err := a.completion.Complete(ctx, prompt, a.systemPrompt, driven.CompleteOptions{})
	if err != nil {
		logger.Warn("Synthesis call failed, falling back to concatenation: %v", err)
		out := a.concatenate(results)
		return out, nil
	}

	return &domain.AggregationResult{
		Content:    content,
		Strategy:   domain.StrategySummarize,
		Levels:     1,
		TokensUsed: tokens,
	}, nil
}

// hierarchical reduces results level by level: each level batches up to
// hierBatchSize findings into one completion call, repeating until one
// result remains. A level that fails entirely is concatenated instead
// so the pipeline still produces an answer.
func (a *AggregatorService) hierarchical(
	ctx context.Context, plan *domain.QueryPlan, results []domain.ChunkResult, trace *domain.Trace,
) (*domain.AggregationResult, error) {
	current := make([]string, len(results))
	for i, r := range results {
		current[i] = fmt.Sprintf("[Chunk %d]\n%s", r.ChunkIndex, strings.TrimSpace(r.Content))
	}

	// The reduction is logarithmic in the number of results; the cap
	// guards against a batch that never shrinks.
	maxLevels := 1
	for n := len(current); n > 1; n = (n + hierBatchSize - 1) / hierBatchSize {
		maxLevels++
	}
	if maxLevels > 10 {
		maxLevels = 10
	}

	totalTokens := 0
	levels := 0

	for len(current) > 1 && levels < maxLevels {
		levels++
		logger.Debug("Hierarchical level %d: %d inputs", levels, len(current))

		var next []string
		levelFailed := true

		for start := 0; start < len(current); start += hierBatchSize {
			end := start + hierBatchSize
			if end > len(current) {
				end = len(current)
			}
			batch := current[start:end]

			if len(batch) == 1 {
				next = append(next, batch[0])
				levelFailed = false
				continue
			}

			prompt := plan.AggregateInstruction + "\n\n" + strings.Join(batch, "\n\n---\n\n")
			content, tokens, err := a.completion.Complete(ctx, prompt, a.systemPrompt, driven.CompleteOptions{})
			if err != nil {
				logger.Warn("Hierarchical batch failed at level %d: %v", levels, err)
				trace.Add(domain.TraceWarning, fmt.Sprintf("hierarchical batch failed at level %d", levels))
				next = append(next, strings.Join(batch, "\n\n---\n\n"))
				continue
			}
			totalTokens += tokens
			levelFailed = false
			next = append(next, content)
		}

		if levelFailed {
			// Every batch at this level failed; stop reducing.
			logger.Warn("Hierarchical level %d failed entirely, concatenating remainder", levels)
			return &domain.AggregationResult{
				Content:    strings.Join(next, "\n\n---\n\n"),
				Strategy:   domain.StrategyHierarchical,
				Levels:     levels,
				TokensUsed: totalTokens,
			}, nil
		}

		current = next
	}

	return &domain.AggregationResult{
		Content:    strings.Join(current, "\n\n---\n\n"),
		Strategy:   domain.StrategyHierarchical,
		Levels:     levels,
		TokensUsed: totalTokens,
	}, nil
}

// joinFindings renders chunk results for a synthesis prompt.
func joinFindings(results []domain.ChunkResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "=== Findings from chunk %d ===\n%s", r.ChunkIndex, strings.TrimSpace(r.Content))
	}
	return b.String()
}
