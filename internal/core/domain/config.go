package domain

import "fmt"

// ExplorerConfig carries the tunable parameters for the query pipeline.
type ExplorerConfig struct {
	// RecordsPerChunk bounds record-count chunking.
	RecordsPerChunk int

	// MaxChunkChars bounds size-based chunking.
	MaxChunkChars int

	// ChunkOverlap is how many records consecutive chunks share.
	ChunkOverlap int

	// Parallelism is the worker pool width for chunk execution.
	Parallelism int

	// TokenBudget is the soft cap on total completion tokens per query.
	// Zero means unlimited.
	TokenBudget int

	// RequestsPerSecond rate-limits completion calls. Zero disables
	// limiting.
	RequestsPerSecond float64

	// CacheEnabled turns the chunk-result cache on.
	CacheEnabled bool

	// CitationsEnabled turns citation extraction and verification on.
	CitationsEnabled bool

	// TraceLevel controls execution trace capture.
	TraceLevel TraceLevel

	// SchemaSampleSize is how many records schema inference examines.
	SchemaSampleSize int
}

// DefaultExplorerConfig returns the balanced defaults.
func DefaultExplorerConfig() ExplorerConfig {
	return ExplorerConfig{
		RecordsPerChunk:   50,
		MaxChunkChars:     12000,
		ChunkOverlap:      0,
		Parallelism:       5,
		TokenBudget:       0,
		RequestsPerSecond: 0,
		CacheEnabled:      true,
		CitationsEnabled:  true,
		TraceLevel:        TraceLevelFull,
		SchemaSampleSize:  100,
	}
}

// Preset names accepted by ExplorerConfigForPreset.
const (
	PresetFast     = "fast"
	PresetBalanced = "balanced"
	PresetThorough = "thorough"
	PresetBudget   = "budget"
)

// ExplorerConfigForPreset returns the config for a named preset.
func ExplorerConfigForPreset(name string) (ExplorerConfig, error) {
	cfg := DefaultExplorerConfig()
	switch name {
	case PresetBalanced, "":
		return cfg, nil
	case PresetFast:
		cfg.RecordsPerChunk = 100
		cfg.Parallelism = 10
		cfg.CitationsEnabled = false
		cfg.TraceLevel = TraceLevelSummary
		return cfg, nil
	case PresetThorough:
		cfg.RecordsPerChunk = 25
		cfg.ChunkOverlap = 5
		cfg.Parallelism = 3
		cfg.SchemaSampleSize = 250
		return cfg, nil
	case PresetBudget:
		cfg.RecordsPerChunk = 100
		cfg.Parallelism = 2
		cfg.TokenBudget = 50000
		cfg.RequestsPerSecond = 1
		cfg.TraceLevel = TraceLevelSummary
		return cfg, nil
	default:
		return cfg, fmt.Errorf("%w: unknown preset %q", ErrInvalidInput, name)
	}
}

// Validate checks the config for values the pipeline cannot run with.
func (c ExplorerConfig) Validate() error {
	if c.RecordsPerChunk <= 0 {
		return fmt.Errorf("%w: records per chunk must be positive", ErrInvalidInput)
	}
	if c.MaxChunkChars <= 0 {
		return fmt.Errorf("%w: max chunk chars must be positive", ErrInvalidInput)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.RecordsPerChunk {
		return fmt.Errorf("%w: chunk overlap must be in [0, records per chunk)", ErrInvalidInput)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("%w: parallelism must be positive", ErrInvalidInput)
	}
	if c.TokenBudget < 0 {
		return fmt.Errorf("%w: token budget cannot be negative", ErrInvalidInput)
	}
	if c.SchemaSampleSize <= 0 {
		return fmt.Errorf("%w: schema sample size must be positive", ErrInvalidInput)
	}
	return nil
}
