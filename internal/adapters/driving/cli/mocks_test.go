package cli

import (
	"context"
	"sort"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

const testAnswer = "창문이 크게 그려진 집은 타인과의 교류에 열려 있음을 나타낼 수 있습니다."

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	answer  string
	state   *domain.WorkflowState
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
	return m.state, nil
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error

	llmProvider   domain.AIProvider
	llmModel      string
	llmAPIKey     string
	embedProvider domain.AIProvider
	embedModel    string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llmProvider, m.llmModel, m.llmAPIKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, _ string) error {
	m.embedProvider, m.embedModel = provider, model
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.pingErr }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

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

// setupTestServices injects mocks and returns a cleanup that restores the
// package state, including flag values left behind by earlier executions.
func setupTestServices() func() {
	settingsService = &mockSettingsService{settings: domain.DefaultAppSettings()}
	analysisService = &mockAnalysisService{answer: testAnswer}
	promptCatalog = &mockPromptCatalog{templates: map[string]string{
		"relevance_check": "입력: {question}\n",
		"generate_answer": "참고 자료:\n{context}\n",
	}}
	metricsGatherer = nil

	return resetServices
}

func resetServices() {
	settingsService = nil
	analysisService = nil
	promptCatalog = nil
	metricsGatherer = nil
	closeServices()

	askCategory = ""
	askJSON = false
	askTrace = false
	serveAddr = ""
	tuiCategory = ""
	configDir = ""
	verbose = false
	rootCmd.SetArgs(nil)
	rootCmd.SetIn(nil)
}
