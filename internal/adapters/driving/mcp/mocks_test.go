package mcp

import (
	"context"
	"sort"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	answer  string
	err     error
	lastReq domain.AnalysisRequest
}

func (m *mockAnalysisService) Analyze(_ context.Context, req domain.AnalysisRequest) (*domain.AnalysisResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AnalysisResponse{Answer: m.answer}, nil
}

func (m *mockAnalysisService) Trace(_ context.Context, req domain.AnalysisRequest) (*domain.WorkflowState, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.WorkflowState{Generation: m.answer}, nil
}

// mockPromptCatalog is a mock implementation of driven.PromptCatalog.
type mockPromptCatalog struct {
	templates map[string]string
}

func (m *mockPromptCatalog) Render(name string, _ map[string]string) (string, error) {
	t, ok := m.templates[name]
	if !ok {
		return "", domain.ErrTemplate
	}
	return t, nil
}

func (m *mockPromptCatalog) Template(name string) (string, bool) {
	t, ok := m.templates[name]
	return t, ok
}

func (m *mockPromptCatalog) Names() []string {
	names := make([]string, 0, len(m.templates))
	for n := range m.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
