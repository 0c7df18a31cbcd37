package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
)

// contextSeparator joins retrieved passages inside prompts.
const contextSeparator = "\n\n"

// InterpretationNodes holds the collaborators of the interpretation nodes.
type InterpretationNodes struct {
	llm         driven.LLMService
	prompts     driven.PromptCatalog
	retriever   driven.Retriever
	k           int
	callTimeout time.Duration
	genOpts     driven.GenerateOptions
}

// NodesConfig configures InterpretationNodes.
type NodesConfig struct {
	// K is the number of passages retrieved per sub-question.
	K int

	// CallTimeout bounds each LLM or retriever call. Zero means no bound
	// beyond the run context.
	CallTimeout time.Duration

	// Generate is passed to every LLM call.
	Generate driven.GenerateOptions
}

// NewInterpretationNodes creates the node set. All collaborators are required.
func NewInterpretationNodes(
	llm driven.LLMService,
	prompts driven.PromptCatalog,
	retriever driven.Retriever,
	cfg NodesConfig,
) (*InterpretationNodes, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: LLM service is required", domain.ErrConfig)
	}
	if prompts == nil {
		return nil, fmt.Errorf("%w: prompt catalog is required", domain.ErrConfig)
	}
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", domain.ErrConfig)
	}
	if cfg.K < 1 {
		cfg.K = domain.DefaultRetrievalK
	}
	return &InterpretationNodes{
		llm:         llm,
		prompts:     prompts,
		retriever:   retriever,
		k:           cfg.K,
		callTimeout: cfg.CallTimeout,
		genOpts:     cfg.Generate,
	}, nil
}

// NewInterpretationGraph wires the five interpretation nodes:
//
//	relevance_check -> decompose_query | END
//	decompose_query -> retrieve -> generate_answer -> hallucination_check
//	hallucination_check -> generate_answer | END
func NewInterpretationGraph(n *InterpretationNodes) (*Graph, error) {
	return NewGraph(domain.NodeRelevanceCheck,
		[]Node{
			{Name: domain.NodeRelevanceCheck, Run: n.RelevanceCheck},
			{Name: domain.NodeDecomposeQuery, Run: n.DecomposeQuery},
			{Name: domain.NodeRetrieve, Run: n.Retrieve},
			{Name: domain.NodeGenerateAnswer, Run: n.GenerateAnswer},
			{Name: domain.NodeHallucinationCheck, Run: n.HallucinationCheck},
		},
		[]Edge{
			{
				From:    domain.NodeRelevanceCheck,
				When:    DecideAfterRelevance,
				Targets: []string{domain.NodeDecomposeQuery, domain.NodeEnd},
			},
			{From: domain.NodeDecomposeQuery, To: domain.NodeRetrieve},
			{From: domain.NodeRetrieve, To: domain.NodeGenerateAnswer},
			{From: domain.NodeGenerateAnswer, To: domain.NodeHallucinationCheck},
			{
				From:    domain.NodeHallucinationCheck,
				When:    DecideAfterHallucination,
				Targets: []string{domain.NodeGenerateAnswer, domain.NodeEnd},
			},
		},
	)
}

// RelevanceCheck judges whether the question is about an HTP drawing.
// A rejected question gets the fallback answer as its generation.
func (n *InterpretationNodes) RelevanceCheck(ctx context.Context, state *domain.WorkflowState) error {
	out, err := n.complete(ctx, domain.NodeRelevanceCheck, map[string]string{
		driven.VarQuestion: state.OriginalQuestion,
	})
	if err != nil {
		return err
	}
	decision, err := domain.ParseDecision(out)
	if err != nil {
		return err
	}
	state.RelevanceCheck = decision
	if decision == domain.DecisionNo {
		state.Generation = domain.FallbackAnswer
	}
	return nil
}

// DecomposeQuery splits the question into retrieval sub-queries.
func (n *InterpretationNodes) DecomposeQuery(ctx context.Context, state *domain.WorkflowState) error {
	out, err := n.complete(ctx, domain.NodeDecomposeQuery, map[string]string{
		driven.VarQuestion: state.OriginalQuestion,
	})
	if err != nil {
		return err
	}
	queries, err := ParseSubQueries(out)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		queries = []string{state.OriginalQuestion}
	}
	state.DecomposedQuestions = queries
	return nil
}

// Retrieve fetches passages for every sub-question. Sub-questions are
// retrieved concurrently; results are merged in sub-question order so the
// contexts match a sequential run.
func (n *InterpretationNodes) Retrieve(ctx context.Context, state *domain.WorkflowState) error {
	queries := state.DecomposedQuestions
	if len(queries) == 0 {
		queries = []string{state.OriginalQuestion}
	}

	results := make([][]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			callCtx, cancel := n.withTimeout(gctx)
			defer cancel()
			texts, err := n.retriever.Retrieve(callCtx, q, n.k)
			if err != nil {
				return fmt.Errorf("retrieve %q: %w", q, err)
			}
			results[i] = texts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, texts := range results {
		state.AddContexts(texts...)
	}
	return nil
}

// GenerateAnswer produces an answer from the question and retrieved contexts.
func (n *InterpretationNodes) GenerateAnswer(ctx context.Context, state *domain.WorkflowState) error {
	out, err := n.complete(ctx, domain.NodeGenerateAnswer, map[string]string{
		driven.VarQuestion: state.OriginalQuestion,
		driven.VarContext:  strings.Join(state.RetrievedContexts, contextSeparator),
	})
	if err != nil {
		return err
	}
	state.SetGeneration(out)
	return nil
}

// HallucinationCheck judges whether the generation makes claims the
// retrieved contexts do not support.
func (n *InterpretationNodes) HallucinationCheck(ctx context.Context, state *domain.WorkflowState) error {
	out, err := n.complete(ctx, domain.NodeHallucinationCheck, map[string]string{
		driven.VarContext:    strings.Join(state.RetrievedContexts, contextSeparator),
		driven.VarGeneration: state.Generation,
	})
	if err != nil {
		return err
	}
	decision, err := domain.ParseDecision(out)
	if err != nil {
		return err
	}
	state.HallucinationCheck = decision
	return nil
}

// complete renders template with vars and sends it to the LLM.
func (n *InterpretationNodes) complete(ctx context.Context, template string, vars map[string]string) (string, error) {
	prompt, err := n.prompts.Render(template, vars)
	if err != nil {
		return "", err
	}
	callCtx, cancel := n.withTimeout(ctx)
	defer cancel()
	out, err := n.llm.Generate(callCtx, prompt, n.genOpts)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

func (n *InterpretationNodes) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if n.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, n.callTimeout)
}

// subQueries is the structured output of the decompose_query prompt.
type subQueries struct {
	Queries []string `json:"queries"`
}

// ParseSubQueries extracts the "queries" list from model output. The JSON
// object may be wrapped in a Markdown code fence or surrounded by prose.
// Blank entries are dropped and duplicates collapsed, keeping first
// occurrence. Output without a parseable object is domain.ErrMalformedOutput.
func ParseSubQueries(raw string) ([]string, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in %q", domain.ErrMalformedOutput, raw)
	}

	var parsed subQueries
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedOutput, err)
	}

	seen := make(map[string]struct{}, len(parsed.Queries))
	queries := make([]string, 0, len(parsed.Queries))
	for _, q := range parsed.Queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}
	return queries, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
