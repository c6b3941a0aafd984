package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// ExecutorService runs a query plan against the chunks: filtering,
// cache lookups, parallel completion calls, and budget enforcement.
type ExecutorService struct {
	completion   driven.CompletionService
	cache        driven.ResultCache
	parallelism  int
	tokenBudget  int
	limiter      *rate.Limiter
	systemPrompt string
}

// NewExecutorService creates an executor. The cache is optional (can be
// nil). A zero tokenBudget means unlimited; a zero requestsPerSecond
// disables rate limiting.
func NewExecutorService(
	completion driven.CompletionService,
	cache driven.ResultCache,
	parallelism, tokenBudget int,
	requestsPerSecond float64,
) *ExecutorService {
	if parallelism <= 0 {
		parallelism = 5
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &ExecutorService{
		completion:  completion,
		cache:       cache,
		parallelism: parallelism,
		tokenBudget: tokenBudget,
		limiter:     limiter,
	}
}

// SetSystemPrompt sets the system prompt sent with every chunk
// completion call. Empty means no system prompt.
func (e *ExecutorService) SetSystemPrompt(prompt string) {
	e.systemPrompt = prompt
}

// Execute runs the plan over the chunks and returns per-chunk results
// sorted by chunk index. A single chunk failure does not abort the run;
// its result is recorded as unsuccessful and execution continues.
func (e *ExecutorService) Execute(
	ctx context.Context, plan *domain.QueryPlan, chunks []domain.Chunk, trace *domain.Trace,
) (*domain.ExecutionResult, error) {
	logger.Section("Chunk Execution")
	started := time.Now()

	if e.completion == nil {
		return nil, domain.ErrCompletionUnavailable
	}

	result := &domain.ExecutionResult{
		Query:       plan.Query,
		TotalChunks: len(chunks),
	}

	// Pre-filter chunks by substring match against the plan's filter.
	// Full-scan plans process everything.
	selected := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if !plan.RequireFullScan && !plan.Filter.Empty() && !plan.Filter.MatchesText(chunk.Text) {
			result.ChunksFiltered++
			trace.AddChunk(domain.TraceChunkSkip, chunk.Index, "no filter match")
			continue
		}
		selected = append(selected, chunk)
	}
	logger.Info("Chunks: %d total, %d filtered out, %d selected",
		len(chunks), result.ChunksFiltered, len(selected))

	// Cap the selection when the plan allows it.
	if !plan.RequireFullScan && plan.ChunkLimit > 0 && len(selected) > plan.ChunkLimit {
		logger.Warn("Capping selection at plan limit: %d chunks", plan.ChunkLimit)
		for _, chunk := range selected[plan.ChunkLimit:] {
			result.ChunksFiltered++
			trace.AddChunk(domain.TraceChunkSkip, chunk.Index, "over chunk limit")
		}
		selected = selected[:plan.ChunkLimit]
	}

	width := e.parallelism
	if !plan.ParallelOK {
		// Timeline queries depend on chunk ordering.
		width = 1
	}
	logger.Debug("Worker pool width: %d", width)

	var tokensUsed atomic.Int64
	results := make([]domain.ChunkResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)

	for i, chunk := range selected {
		g.Go(func() error {
			// Soft budget: read before dispatch, never cancels work
			// already in flight.
			if e.tokenBudget > 0 && tokensUsed.Load() >= int64(e.tokenBudget) {
				logger.Warn("Token budget reached, skipping chunk %d", chunk.Index)
				trace.AddChunk(domain.TraceChunkSkip, chunk.Index, "token budget reached")
				results[i] = domain.ChunkResult{
					ChunkIndex:  chunk.Index,
					Success:     false,
					WasFiltered: true,
					StartRecord: chunk.StartRecord,
				}
				return nil
			}

			cr := e.processChunk(gctx, plan, chunk, trace)
			tokensUsed.Add(int64(cr.TokensUsed))
			results[i] = cr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("executing chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	for _, cr := range results {
		if cr.WasFiltered {
			result.ChunksFiltered++
			continue
		}
		result.ChunksProcessed++
		if cr.WasCached {
			result.ChunksCached++
		}
	}
	result.ChunkResults = results
	result.TotalTokens = int(tokensUsed.Load())
	result.Duration = time.Since(started)
	result.Success = true

	logger.Info("Execution done: %d processed, %d cached, %d tokens, %s",
		result.ChunksProcessed, result.ChunksCached, result.TotalTokens, result.Duration)

	return result, nil
}

// processChunk runs one chunk: cache lookup, rate limit, completion
// call, cache store. Errors are captured in the result, not returned.
func (e *ExecutorService) processChunk(
	ctx context.Context, plan *domain.QueryPlan, chunk domain.Chunk, trace *domain.Trace,
) domain.ChunkResult {
	started := time.Now()
	trace.AddChunk(domain.TraceChunkStart, chunk.Index, fmt.Sprintf("records %d-%d", chunk.StartRecord, chunk.EndRecord))

	result := domain.ChunkResult{
		ChunkIndex:  chunk.Index,
		StartRecord: chunk.StartRecord,
	}

	key := cacheKey(chunk, plan.Query)

	if e.cache != nil {
		cached, hit, err := e.cache.Get(ctx, key)
		if err != nil {
			logger.Warn("Cache lookup failed for chunk %d: %v", chunk.Index, err)
		} else if hit {
			logger.Debug("Cache hit for chunk %d", chunk.Index)
			result.Success = true
			result.Content = cached.Content
			result.WasCached = true
			result.Duration = time.Since(started)
			trace.AddChunk(domain.TraceChunkEnd, chunk.Index, "cache hit")
			return result
		}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			result.Duration = time.Since(started)
			trace.AddChunk(domain.TraceError, chunk.Index, fmt.Sprintf("rate limiter: %v", err))
			return result
		}
	}

	prompt := plan.ChunkInstruction + "\n\nDATA:\n" + chunk.PromptContext()

	trace.AddChunk(domain.TraceCompletionStart, chunk.Index, "completion dispatch")
	content, tokens, err := e.completion.Complete(ctx, prompt, e.systemPrompt, driven.CompleteOptions{})
	callDuration := time.Since(started)
	trace.AddCompletion(domain.TraceCompletionEnd, chunk.Index, tokens, callDuration, "completion returned")

	if err != nil {
		logger.Warn("Chunk %d completion failed: %v", chunk.Index, err)
		result.Duration = callDuration
		trace.AddChunk(domain.TraceError, chunk.Index, fmt.Sprintf("completion: %v", err))
		return result
	}

	result.Success = true
	result.Content = content
	result.TokensUsed = tokens
	result.Duration = time.Since(started)
	trace.AddChunk(domain.TraceChunkEnd, chunk.Index, fmt.Sprintf("%d tokens", tokens))

	if e.cache != nil && result.Relevant() {
		entry := driven.CachedResult{
			Content:    content,
			TokensUsed: tokens,
			Model:      e.completion.ModelName(),
		}
		if err := e.cache.Put(ctx, key, entry); err != nil {
			logger.Warn("Cache store failed for chunk %d: %v", chunk.Index, err)
		}
	}

	return result
}

// cacheKey derives a deterministic key from the chunk's position, its
// content, and the query. Any change to the underlying data or the
// question produces a different key.
func cacheKey(chunk domain.Chunk, query string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|", chunk.Index)
	h.Write([]byte(chunk.Text))
	h.Write([]byte("|"))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}
