package driving

import (
	"context"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// AnalysisService answers questions about a drawing.
type AnalysisService interface {
	// Analyze validates the request, runs the interpretation workflow and
	// returns the final answer. A rejected question yields
	// domain.FallbackAnswer with a nil error.
	Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResponse, error)

	// Trace runs the workflow like Analyze but returns the final state.
	// The answer cache is bypassed.
	Trace(ctx context.Context, req domain.AnalysisRequest) (*domain.WorkflowState, error)
}
