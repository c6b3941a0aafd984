// Package cli provides the command-line interface for Inquest.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cachememory "github.com/custodia-labs/inquest-cli/internal/adapters/driven/cache/memory"
	cachesqlite "github.com/custodia-labs/inquest-cli/internal/adapters/driven/cache/sqlite"
	configfile "github.com/custodia-labs/inquest-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/inquest-cli/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/inquest-cli/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/inquest-cli/internal/adapters/driven/llm/openai"
	sourcefile "github.com/custodia-labs/inquest-cli/internal/adapters/driven/source/file"
	tracefile "github.com/custodia-labs/inquest-cli/internal/adapters/driven/trace/file"
	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driving"
	"github.com/custodia-labs/inquest-cli/internal/core/services"
	"github.com/custodia-labs/inquest-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Shared services wired in initServices and used by the subcommands.
var (
	configStore  driven.ConfigStore
	queryService driving.QueryService
	resultCache  driven.ResultCache
)

var (
	flagVerbose bool
	flagPreset  string
	flagNoCache bool
)

var rootCmd = &cobra.Command{
	Use:   "inquest",
	Short: "Query large JSON collections with natural language",
	Long: `Inquest answers natural language questions over large JSON record
collections (chat exports, logs) by chunking them, running each chunk
through a completion model in parallel, and aggregating the results.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		if cmd.Name() == "version" {
			return nil
		}
		return initServices()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagPreset, "preset", "", "config preset: fast, balanced, thorough, budget")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "disable the chunk result cache")
}

// initServices wires the adapters into the core. Subcommands that don't
// need a completion backend (version, cache clear) still get config.
func initServices() error {
	if queryService != nil {
		return nil
	}

	store, err := configfile.NewConfigStore(os.Getenv("INQUEST_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	configStore = store

	cfg, err := explorerConfig(store)
	if err != nil {
		return err
	}
	if flagNoCache {
		cfg.CacheEnabled = false
	}

	completion, err := completionService(store)
	if err != nil {
		return err
	}

	var cache driven.ResultCache
	if cfg.CacheEnabled {
		sqliteCache, err := cachesqlite.NewCache(store.GetString("cache.dir"))
		if err != nil {
			logger.Warn("SQLite cache unavailable, using in-memory cache: %v", err)
			cache = cachememory.NewCache()
		} else {
			cache = sqliteCache
		}
	}
	resultCache = cache

	var traceStore driven.TraceStore
	if store.GetBool("trace.save") {
		ts, err := tracefile.NewStore(store.GetString("trace.dir"))
		if err != nil {
			logger.Warn("Trace store unavailable: %v", err)
		} else {
			traceStore = ts
		}
	}

	explorer, err := services.NewExplorerService(
		sourcefile.NewSource(), completion, cache, traceStore, cfg)
	if err != nil {
		return fmt.Errorf("creating explorer: %w", err)
	}
	if prompts, err := configfile.NewPromptStore(store.GetString("prompts.dir")); err == nil {
		explorer.SetPromptStore(prompts)
	}
	queryService = explorer

	return nil
}

// explorerConfig builds the pipeline config from the preset and config
// file overrides.
func explorerConfig(store driven.ConfigStore) (domain.ExplorerConfig, error) {
	preset := flagPreset
	if preset == "" {
		preset = store.GetString("preset")
	}
	cfg, err := domain.ExplorerConfigForPreset(preset)
	if err != nil {
		return cfg, err
	}

	if v := store.GetInt("chunking.records_per_chunk"); v > 0 {
		cfg.RecordsPerChunk = v
	}
	if v := store.GetInt("chunking.max_chunk_chars"); v > 0 {
		cfg.MaxChunkChars = v
	}
	if v := store.GetInt("chunking.overlap"); v > 0 {
		cfg.ChunkOverlap = v
	}
	if v := store.GetInt("execution.parallelism"); v > 0 {
		cfg.Parallelism = v
	}
	if v := store.GetInt("execution.token_budget"); v > 0 {
		cfg.TokenBudget = v
	}
	if v := store.GetFloat("execution.requests_per_second"); v > 0 {
		cfg.RequestsPerSecond = v
	}
	if v := store.GetString("trace.level"); v != "" {
		cfg.TraceLevel = domain.TraceLevel(v)
	}

	return cfg, nil
}

// completionService selects the completion backend from config. The
// provider defaults to anthropic when an API key is found, otherwise
// ollama for a zero-config local setup.
func completionService(store driven.ConfigStore) (driven.CompletionService, error) {
	provider := store.GetString("llm.provider")
	if provider == "" {
		if apiKey(store, "ANTHROPIC_API_KEY", "llm.anthropic.api_key") != "" {
			provider = "anthropic"
		} else if apiKey(store, "OPENAI_API_KEY", "llm.openai.api_key") != "" {
			provider = "openai"
		} else {
			provider = "ollama"
		}
	}

	logger.Info("Completion provider: %s", provider)

	switch provider {
	case "anthropic":
		return anthropic.NewCompletionService(anthropic.Config{
			APIKey:  apiKey(store, "ANTHROPIC_API_KEY", "llm.anthropic.api_key"),
			BaseURL: store.GetString("llm.anthropic.base_url"),
			Model:   store.GetString("llm.anthropic.model"),
		})
	case "openai":
		return openai.NewCompletionService(openai.Config{
			APIKey:  apiKey(store, "OPENAI_API_KEY", "llm.openai.api_key"),
			BaseURL: store.GetString("llm.openai.base_url"),
			Model:   store.GetString("llm.openai.model"),
		})
	case "ollama":
		return ollama.NewCompletionService(ollama.Config{
			BaseURL: store.GetString("llm.ollama.base_url"),
			Model:   store.GetString("llm.ollama.model"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (expected anthropic, openai, or ollama)", provider)
	}
}

// apiKey reads a credential from the environment first, then config.
func apiKey(store driven.ConfigStore, envVar, configKey string) string {
	if key := os.Getenv(envVar); key != "" {
		return key
	}
	return store.GetString(configKey)
}
