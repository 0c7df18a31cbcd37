package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// ToolInterpretDrawing is the name of the interpretation tool.
const ToolInterpretDrawing = "interpret_drawing"

// InterpretInput is the input schema for the interpret_drawing tool.
type InterpretInput struct {
	Question string `json:"question" jsonschema:"an observation or question about the drawing, in Korean"`
	Category string `json:"category" jsonschema:"the drawing: HOME, TREE, PERSON1 or PERSON2"`
}

// InterpretOutput is the output schema for the interpret_drawing tool.
type InterpretOutput struct {
	Answer string `json:"answer"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolInterpretDrawing,
		Description: "Interpret an observation about a House-Tree-Person drawing. " +
			"Unrelated questions are answered with a request to re-enter the observation.",
	}, s.handleInterpret)
}

// handleInterpret handles the interpret_drawing tool invocation.
func (s *Server) handleInterpret(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input InterpretInput,
) (*mcp.CallToolResult, InterpretOutput, error) {
	resp, err := s.ports.Analysis.Analyze(ctx, domain.AnalysisRequest{
		Question: input.Question,
		Category: input.Category,
	})
	if err != nil {
		return nil, InterpretOutput{}, err
	}
	return nil, InterpretOutput{Answer: resp.Answer}, nil
}
