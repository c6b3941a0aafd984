package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driving"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// Ensure ExplorerService implements the interface.
var _ driving.QueryService = (*ExplorerService)(nil)

// ExplorerService orchestrates the full query pipeline: load, infer
// schema, chunk, plan, execute, aggregate, cite, trace.
type ExplorerService struct {
	source     driven.RecordSource
	completion driven.CompletionService
	cache      driven.ResultCache
	traceStore driven.TraceStore
	prompts    driven.PromptStore
	config     domain.ExplorerConfig

	schemaSvc   *SchemaService
	chunkerSvc  *ChunkerService
	citationSvc *CitationService

	mu         sync.RWMutex
	records    []domain.Record
	schema     *domain.Schema
	sourcePath string
}

// NewExplorerService creates the orchestrator. The cache and trace
// store are optional (can be nil).
func NewExplorerService(
	source driven.RecordSource,
	completion driven.CompletionService,
	cache driven.ResultCache,
	traceStore driven.TraceStore,
	config domain.ExplorerConfig,
) (*ExplorerService, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("explorer config: %w", err)
	}
	return &ExplorerService{
		source:      source,
		completion:  completion,
		cache:       cache,
		traceStore:  traceStore,
		config:      config,
		schemaSvc:   NewSchemaService(config.SchemaSampleSize),
		chunkerSvc:  NewChunkerService(config.RecordsPerChunk, config.MaxChunkChars, config.ChunkOverlap),
		citationSvc: NewCitationService(),
	}, nil
}

// SetPromptStore sets an optional store of user-customised system
// prompts for completion calls.
func (e *ExplorerService) SetPromptStore(prompts driven.PromptStore) {
	e.prompts = prompts
}

// loadPrompt reads a named system prompt, returning empty on any
// failure so a broken prompt store never blocks a query.
func (e *ExplorerService) loadPrompt(name string) string {
	if e.prompts == nil {
		return ""
	}
	prompt, err := e.prompts.Load(name)
	if err != nil {
		logger.Warn("Loading prompt %q: %v", name, err)
		return ""
	}
	return prompt
}

// LoadCollection loads the collection at path, infers its schema, and
// prepares it for querying. Replaces any previously loaded collection.
func (e *ExplorerService) LoadCollection(ctx context.Context, path string) (*domain.Schema, error) {
	logger.Section("Collection Load")
	logger.Info("Loading %s", path)

	if e.source == nil {
		return nil, fmt.Errorf("record source unavailable")
	}

	records, err := e.source.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading collection: %w", err)
	}

	size, err := e.source.Stat(ctx, path)
	if err != nil {
		logger.Warn("Stat failed for %s: %v", path, err)
		size = 0
	}

	schema, err := e.schemaSvc.Analyze(records, size)
	if err != nil {
		return nil, fmt.Errorf("inferring schema: %w", err)
	}

	e.mu.Lock()
	e.records = records
	e.schema = schema
	e.sourcePath = path
	e.mu.Unlock()

	logger.Info("Loaded %d records (%s)", len(records), schema.Format)
	return schema, nil
}

// LoadRecords loads an in-memory record collection under the given
// name, for callers that already hold the records. Replaces any
// previously loaded collection.
func (e *ExplorerService) LoadRecords(records []domain.Record, name string) (*domain.Schema, error) {
	schema, err := e.schemaSvc.Analyze(records, 0)
	if err != nil {
		return nil, fmt.Errorf("inferring schema: %w", err)
	}

	e.mu.Lock()
	e.records = records
	e.schema = schema
	e.sourcePath = name
	e.mu.Unlock()

	logger.Info("Loaded %d in-memory records (%s)", len(records), schema.Format)
	return schema, nil
}

// Schema returns the schema of the loaded collection.
func (e *ExplorerService) Schema() (*domain.Schema, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.schema == nil {
		return nil, domain.ErrNoCollection
	}
	return e.schema, nil
}

// Query runs the full map-reduce pipeline against the loaded collection.
// The caller always receives a QueryResult: a panic anywhere in the
// pipeline is recovered into an unsuccessful result.
func (e *ExplorerService) Query(
	ctx context.Context, query string, opts driving.QueryOptions,
) (result *domain.QueryResult, err error) {
	started := time.Now()

	e.mu.RLock()
	records := e.records
	schema := e.schema
	sourcePath := e.sourcePath
	e.mu.RUnlock()

	result = &domain.QueryResult{
		Query:      query,
		SourcePath: sourcePath,
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Query pipeline panicked: %v", r)
			result.Success = false
			result.Err = fmt.Sprintf("internal error: %v", r)
			result.Duration = time.Since(started)
			err = nil
		}
	}()

	if schema == nil {
		result.Err = domain.ErrNoCollection.Error()
		return result, domain.ErrNoCollection
	}
	if e.completion == nil {
		result.Err = domain.ErrCompletionUnavailable.Error()
		return result, domain.ErrCompletionUnavailable
	}

	level := e.config.TraceLevel
	if opts.TraceLevel != "" {
		level = opts.TraceLevel
	}
	trace := domain.NewTrace(query, level)
	result.Trace = trace
	trace.Add(domain.TraceQueryStart, query)

	// Plan.
	trace.Add(domain.TracePlanStart, "")
	planner := NewPlannerService(schema)
	plan, err := planner.Plan(query)
	if err != nil {
		result.Err = err.Error()
		trace.Add(domain.TraceError, result.Err)
		return result, fmt.Errorf("planning query: %w", err)
	}
	if opts.ForceFullScan {
		plan.RequireFullScan = true
		plan.ChunkLimit = 0
	}
	trace.AddDetail(domain.TracePlanEnd, plan.Reasoning, map[string]any{
		"intent":           string(plan.Intent),
		"full_scan":        plan.RequireFullScan,
		"estimated_chunks": plan.EstimatedChunks,
	})

	// Chunk.
	chunks, err := e.chunkerSvc.Chunk(records, schema, opts.ChunkingStrategy)
	if err != nil {
		result.Err = err.Error()
		trace.Add(domain.TraceError, result.Err)
		return result, fmt.Errorf("chunking collection: %w", err)
	}
	trace.Add(domain.TraceInfo, fmt.Sprintf("%d chunks", len(chunks)))

	// Execute.
	cache := e.cache
	if opts.DisableCache || !e.config.CacheEnabled {
		cache = nil
	}
	executor := NewExecutorService(
		e.completion, cache,
		e.config.Parallelism, e.config.TokenBudget, e.config.RequestsPerSecond,
	)
	executor.SetSystemPrompt(e.loadPrompt(driven.PromptChunkSystem))
	execution, err := executor.Execute(ctx, plan, chunks, trace)
	if err != nil {
		result.Err = err.Error()
		trace.Add(domain.TraceError, result.Err)
		return result, fmt.Errorf("executing plan: %w", err)
	}
	result.ChunksProcessed = execution.ChunksProcessed
	result.ChunksFiltered = execution.ChunksFiltered
	result.TotalTokens = execution.TotalTokens

	// Aggregate.
	aggregator := NewAggregatorService(e.completion)
	aggregator.SetSystemPrompt(e.loadPrompt(driven.PromptAggregateSystem))
	aggregation, err := aggregator.Aggregate(ctx, plan, execution.ChunkResults, trace)
	if err != nil {
		result.Err = err.Error()
		trace.Add(domain.TraceError, result.Err)
		return result, fmt.Errorf("aggregating results: %w", err)
	}
	result.Answer = strings.TrimSpace(aggregation.Content)
	result.TotalTokens += aggregation.TokensUsed

	// Citations for exhaustive queries, cheap answer checks otherwise.
	if e.config.CitationsEnabled && plan.Intent == domain.IntentExhaustive {
		trace.Add(domain.TraceCitationStart, "")
		citations := e.citationSvc.ExtractAll(execution.ChunkResults)
		verification := e.citationSvc.Verify(citations, chunks, schema.ContentField)
		report := domain.NewCitationReport(query, sourcePath, citations)
		report.Verified = verification.CitationsVerified == verification.CitationsFound
		report.VerificationIssues = verification.Issues
		result.CitationReport = report
		result.Verification = verification
		trace.Add(domain.TraceCitationEnd,
			fmt.Sprintf("%d citations, %d verified", verification.CitationsFound, verification.CitationsVerified))
	} else {
		result.Verification = basicVerification(result.Answer, query)
	}
	result.Answer = postProcessAnswer(result.Answer, result.Verification)

	result.Success = true
	result.Duration = time.Since(started)
	trace.Add(domain.TraceQueryEnd, fmt.Sprintf("%d tokens in %s", result.TotalTokens, result.Duration))

	if e.traceStore != nil {
		if path, saveErr := e.traceStore.Save(ctx, trace); saveErr != nil {
			logger.Warn("Trace save failed: %v", saveErr)
		} else {
			logger.Debug("Trace saved to %s", path)
		}
		if result.CitationReport != nil {
			if path, saveErr := e.traceStore.SaveReport(ctx, result.CitationReport); saveErr != nil {
				logger.Warn("Citation report save failed: %v", saveErr)
			} else {
				logger.Debug("Citation report saved to %s", path)
			}
		}
	}

	return result, nil
}
