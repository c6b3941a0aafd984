package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driving"
)

var (
	flagFullScan  bool
	flagStrategy  string
	flagJSON      bool
	flagShowTrace bool
	flagSaveTrace string
)

var queryCmd = &cobra.Command{
	Use:   "query <file> <question>",
	Short: "Ask a natural language question over a JSON collection",
	Long: `Load a JSON collection (array, wrapped object, or JSONL) and answer a
natural language question over it.

Examples:
  inquest query export.json "how many messages mention the beta"
  inquest query export.json "find every complaint about latency" --full-scan
  inquest query logs.jsonl "summarize the errors" --strategy time`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&flagFullScan, "full-scan", false, "process every chunk, ignoring filters and limits")
	queryCmd.Flags().StringVar(&flagStrategy, "strategy", "", "chunking strategy: auto, records, size, time, field")
	queryCmd.Flags().BoolVar(&flagJSON, "json", false, "output the result as JSON")
	queryCmd.Flags().BoolVar(&flagShowTrace, "show-trace", false, "print the execution trace after the answer")
	queryCmd.Flags().StringVar(&flagSaveTrace, "save-trace", "", "write the execution trace to a markdown file")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	path, question := args[0], args[1]
	ctx := cmd.Context()

	schema, err := queryService.LoadCollection(ctx, path)
	if err != nil {
		return fmt.Errorf("loading collection: %w", err)
	}
	if !flagJSON {
		fmt.Printf("Loaded %d records (%s format)\n\n", schema.TotalRecords, schema.Format)
	}

	opts := driving.QueryOptions{
		ChunkingStrategy: domain.ChunkingStrategy(flagStrategy),
		ForceFullScan:    flagFullScan,
		DisableCache:     flagNoCache,
	}

	start := time.Now()
	result, err := queryService.Query(ctx, question, opts)
	if err != nil {
		return err
	}

	if flagSaveTrace != "" && result.Trace != nil {
		if err := os.WriteFile(flagSaveTrace, []byte(result.Trace.Markdown()), 0644); err != nil {
			return fmt.Errorf("saving trace: %w", err)
		}
	}

	if flagJSON {
		return printQueryJSON(result)
	}

	if !result.Success {
		return fmt.Errorf("query failed: %s", result.Err)
	}

	fmt.Println(result.Answer)
	fmt.Printf("\n---\nChunks: %d processed, %d filtered | Tokens: %d | Time: %s\n",
		result.ChunksProcessed, result.ChunksFiltered, result.TotalTokens,
		time.Since(start).Round(time.Millisecond))

	if result.CitationReport != nil {
		fmt.Printf("Citations: %d found", result.CitationReport.TotalFound)
		if result.Verification != nil {
			fmt.Printf(", %d verified", result.Verification.CitationsVerified)
		}
		fmt.Println()
	}

	if flagShowTrace && result.Trace != nil {
		fmt.Println()
		fmt.Println(result.Trace.Markdown())
	}

	return nil
}

func printQueryJSON(result *domain.QueryResult) error {
	out := map[string]any{
		"answer":           result.Answer,
		"success":          result.Success,
		"query":            result.Query,
		"source":           result.SourcePath,
		"chunks_processed": result.ChunksProcessed,
		"chunks_filtered":  result.ChunksFiltered,
		"total_tokens":     result.TotalTokens,
		"duration_ms":      result.Duration.Milliseconds(),
	}
	if result.Err != "" {
		out["error"] = result.Err
	}
	if result.Verification != nil {
		out["citations_found"] = result.Verification.CitationsFound
		out["citations_verified"] = result.Verification.CitationsVerified
		out["citation_refs"] = result.Verification.ReferenceIDs
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
