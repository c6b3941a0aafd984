// Package mcp provides an MCP (Model Context Protocol) server adapter for Inquest.
// It enables AI assistants to load JSON record collections and query them.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
