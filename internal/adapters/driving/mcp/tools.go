package mcp

import (
	"context"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
	"github.com/custodia-labs/inquest-cli/internal/core/ports/driving"
)

// LoadCollectionInput is the input schema for the load_collection tool.
type LoadCollectionInput struct {
	Path string `json:"path" jsonschema:"path to the JSON or JSONL collection file to load"`
}

// LoadCollectionOutput is the output schema for the load_collection tool.
type LoadCollectionOutput struct {
	Format       string   `json:"format"`
	TotalRecords int      `json:"total_records"`
	Fields       []string `json:"fields"`
	Channels     []string `json:"channels,omitempty"`
}

// QueryInput is the input schema for the query_records tool.
type QueryInput struct {
	Query        string `json:"query" jsonschema:"natural language question to answer over the loaded collection"`
	FullScan     bool   `json:"full_scan,omitempty" jsonschema:"process every chunk instead of filtering (slower but complete)"`
	DisableCache bool   `json:"disable_cache,omitempty" jsonschema:"bypass the chunk result cache for this query"`
}

// QueryOutput is the output schema for the query_records tool.
type QueryOutput struct {
	Answer          string   `json:"answer"`
	ChunksProcessed int      `json:"chunks_processed"`
	ChunksFiltered  int      `json:"chunks_filtered"`
	TotalTokens     int      `json:"total_tokens"`
	DurationMs      int64    `json:"duration_ms"`
	CitationRefs    []string `json:"citation_refs,omitempty"`
}

// SchemaInput is the input schema for the get_schema tool.
type SchemaInput struct{}

// SchemaOutput is the output schema for the get_schema tool.
type SchemaOutput struct {
	Format         string   `json:"format"`
	TotalRecords   int      `json:"total_records"`
	TimestampField string   `json:"timestamp_field,omitempty"`
	ContentField   string   `json:"content_field,omitempty"`
	IDField        string   `json:"id_field,omitempty"`
	Fields         []string `json:"fields"`
	Channels       []string `json:"channels,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "load_collection",
		Description: "Load a JSON record collection and infer its schema",
	}, s.handleLoadCollection)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_records",
		Description: "Answer a natural language question over the loaded collection",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_schema",
		Description: "Return the inferred schema of the loaded collection",
	}, s.handleSchema)
}

// handleLoadCollection handles the load_collection tool invocation.
func (s *Server) handleLoadCollection(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LoadCollectionInput,
) (*mcp.CallToolResult, LoadCollectionOutput, error) {
	schema, err := s.ports.Query.LoadCollection(ctx, input.Path)
	if err != nil {
		return nil, LoadCollectionOutput{}, err
	}

	return nil, LoadCollectionOutput{
		Format:       string(schema.Format),
		TotalRecords: schema.TotalRecords,
		Fields:       fieldNames(schema),
		Channels:     schema.Channels,
	}, nil
}

// handleQuery handles the query_records tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	opts := driving.QueryOptions{
		ForceFullScan: input.FullScan,
		DisableCache:  input.DisableCache,
	}

	result, err := s.ports.Query.Query(ctx, input.Query, opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Answer:          result.Answer,
		ChunksProcessed: result.ChunksProcessed,
		ChunksFiltered:  result.ChunksFiltered,
		TotalTokens:     result.TotalTokens,
		DurationMs:      result.Duration.Milliseconds(),
	}
	if result.Verification != nil {
		output.CitationRefs = result.Verification.ReferenceIDs
	}

	return nil, output, nil
}

// handleSchema handles the get_schema tool invocation.
func (s *Server) handleSchema(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ SchemaInput,
) (*mcp.CallToolResult, SchemaOutput, error) {
	schema, err := s.ports.Query.Schema()
	if err != nil {
		return nil, SchemaOutput{}, err
	}

	return nil, SchemaOutput{
		Format:         string(schema.Format),
		TotalRecords:   schema.TotalRecords,
		TimestampField: schema.TimestampField,
		ContentField:   schema.ContentField,
		IDField:        schema.IDField,
		Fields:         fieldNames(schema),
		Channels:       schema.Channels,
	}, nil
}

// fieldNames lists the schema's field names in sorted order.
func fieldNames(schema *domain.Schema) []string {
	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
