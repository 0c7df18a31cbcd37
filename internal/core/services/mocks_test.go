package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockPrompts implements driven.PromptCatalog. A rendered prompt is the
// template name on the first line followed by key=value lines, which lets
// mockLLM route responses by template.
type mockPrompts struct {
	missing map[string]bool
}

func (m *mockPrompts) Render(name string, vars map[string]string) (string, error) {
	if m.missing[name] {
		return "", fmt.Errorf("%w: unknown template %q", domain.ErrTemplate, name)
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s=%s", k, vars[k])
	}
	return b.String(), nil
}

func (m *mockPrompts) Template(name string) (string, bool) {
	return "", !m.missing[name]
}

func (m *mockPrompts) Names() []string {
	return []string{
		domain.NodeDecomposeQuery, domain.NodeGenerateAnswer,
		domain.NodeHallucinationCheck, domain.NodeRelevanceCheck,
	}
}

// mockLLM implements driven.LLMService with scripted responses per template.
// The last scripted response for a template repeats once the script runs out.
type mockLLM struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string]error
	calls     []string
	prompts   []string
	delay     time.Duration
}

func newMockLLM(responses map[string][]string) *mockLLM {
	return &mockLLM{responses: responses, errs: map[string]error{}}
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	template, _, _ := strings.Cut(prompt, "\n")

	m.mu.Lock()
	m.calls = append(m.calls, template)
	m.prompts = append(m.prompts, prompt)
	n := 0
	for _, c := range m.calls {
		if c == template {
			n++
		}
	}
	script := m.responses[template]
	err := m.errs[template]
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if len(script) == 0 {
		return "", fmt.Errorf("no scripted response for %q", template)
	}
	if n > len(script) {
		n = len(script)
	}
	return script[n-1], nil
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) callCount(template string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == template {
			n++
		}
	}
	return n
}

func (m *mockLLM) callOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mockRetriever implements driven.Retriever with fixed results per query.
type mockRetriever struct {
	mu      sync.Mutex
	results map[string][]string
	err     error
	queries []string
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, k int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	texts := m.results[query]
	if len(texts) > k {
		texts = texts[:k]
	}
	return texts, nil
}

func (m *mockRetriever) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// mockRanker implements driven.Ranker with fixed hits.
type mockRanker struct {
	kind domain.RetrieverKind
	hits []domain.RetrievedPassage
	err  error
}

func (m *mockRanker) Rank(_ context.Context, _ string, k int) ([]domain.RetrievedPassage, error) {
	if m.err != nil {
		return nil, m.err
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockRanker) Kind() domain.RetrieverKind { return m.kind }

// mockCache implements driven.AnswerCache.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]string{}}
}

func (m *mockCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key, answer string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = answer
	m.sets++
	return nil
}

func (m *mockCache) Close() error { return nil }

// recordingObserver collects workflow events.
type recordingObserver struct {
	mu     sync.Mutex
	events []WorkflowEvent
}

func (r *recordingObserver) OnEvent(e WorkflowEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingObserver) ofType(t WorkflowEventType) []WorkflowEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []WorkflowEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// newTestEngine wires the interpretation graph over mocks.
func newTestEngine(llm *mockLLM, retriever *mockRetriever, opts ...EngineOption) (*Engine, error) {
	nodes, err := NewInterpretationNodes(llm, &mockPrompts{}, retriever, NodesConfig{K: 3})
	if err != nil {
		return nil, err
	}
	graph, err := NewInterpretationGraph(nodes)
	if err != nil {
		return nil, err
	}
	return NewEngine(graph, opts...), nil
}
