package mcp

import (
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driving"
)

// Ports aggregates the interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Analysis answers questions about drawings.
	Analysis driving.AnalysisService

	// Prompts exposes the prompt catalog as resources. Optional.
	Prompts driven.PromptCatalog
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	return nil
}
