package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Inquest resources.
	uriScheme = "inquest://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the loaded collection's schema.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "schema",
		Name:        "schema",
		Description: "Inferred schema of the currently loaded collection",
		MIMEType:    "application/json",
	}, s.handleSchemaResource)
}

// handleSchemaResource returns the loaded collection's schema.
func (s *Server) handleSchemaResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	schema, err := s.ports.Query.Schema()
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	type fieldInfo struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Nullable bool   `json:"nullable"`
	}
	type schemaInfo struct {
		Format         string      `json:"format"`
		TotalRecords   int         `json:"total_records"`
		TimestampField string      `json:"timestamp_field,omitempty"`
		ContentField   string      `json:"content_field,omitempty"`
		IDField        string      `json:"id_field,omitempty"`
		Fields         []fieldInfo `json:"fields"`
		Channels       []string    `json:"channels,omitempty"`
	}

	info := schemaInfo{
		Format:         string(schema.Format),
		TotalRecords:   schema.TotalRecords,
		TimestampField: schema.TimestampField,
		ContentField:   schema.ContentField,
		IDField:        schema.IDField,
		Channels:       schema.Channels,
	}
	for _, name := range fieldNames(schema) {
		f := schema.Fields[name]
		info.Fields = append(info.Fields, fieldInfo{
			Name:     f.Name,
			Type:     string(f.Type),
			Nullable: f.Nullable,
		})
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling schema: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
