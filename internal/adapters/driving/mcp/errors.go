// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// drawing interpretation engine. It lets AI assistants ask questions about a
// House-Tree-Person drawing and read the prompt catalog.
package mcp

import "errors"

// ErrMissingAnalysisService is returned when the analysis service is not provided.
var ErrMissingAnalysisService = errors.New("mcp: analysis service is required")
