package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

const chimneyQuestion = "이 그림에서 보이는 굴뚝의 의미는?"

func noop(context.Context, *domain.WorkflowState) error { return nil }

func happyLLM() *mockLLM {
	return newMockLLM(map[string][]string{
		domain.NodeRelevanceCheck:     {"yes"},
		domain.NodeDecomposeQuery:     {`{"queries": ["굴뚝의 의미", "집 그림의 해석"]}`},
		domain.NodeGenerateAnswer:     {"굴뚝은 가족 간 소통을 의미합니다."},
		domain.NodeHallucinationCheck: {"no"},
	})
}

func happyRetriever() *mockRetriever {
	return &mockRetriever{results: map[string][]string{
		"굴뚝의 의미":    {"굴뚝은 가정 내 정서적 교류를 상징한다.", "연기가 나는 굴뚝은 따뜻한 가족 분위기를 나타낸다."},
		"집 그림의 해석": {"집 그림은 가정생활에 대한 인식을 반영한다.", "연기가 나는 굴뚝은 따뜻한 가족 분위기를 나타낸다."},
	}}
}

// --- Graph construction ---

func TestNewGraph_Validation(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		nodes []Node
		edges []Edge
	}{
		{
			name:  "unknown entry",
			entry: "missing",
			nodes: []Node{{Name: "a", Run: noop}},
			edges: []Edge{{From: "a", To: domain.NodeEnd}},
		},
		{
			name:  "duplicate node",
			entry: "a",
			nodes: []Node{{Name: "a", Run: noop}, {Name: "a", Run: noop}},
			edges: []Edge{{From: "a", To: domain.NodeEnd}},
		},
		{
			name:  "unknown target",
			entry: "a",
			nodes: []Node{{Name: "a", Run: noop}},
			edges: []Edge{{From: "a", To: "b"}},
		},
		{
			name:  "unknown source",
			entry: "a",
			nodes: []Node{{Name: "a", Run: noop}},
			edges: []Edge{{From: "a", To: domain.NodeEnd}, {From: "z", To: "a"}},
		},
		{
			name:  "node without outgoing edge",
			entry: "a",
			nodes: []Node{{Name: "a", Run: noop}, {Name: "b", Run: noop}},
			edges: []Edge{{From: "a", To: "b"}},
		},
		{
			name:  "two outgoing edges",
			entry: "a",
			nodes: []Node{{Name: "a", Run: noop}},
			edges: []Edge{{From: "a", To: domain.NodeEnd}, {From: "a", To: "a"}},
		},
		{
			name:  "conditional without targets",
			entry: "a",
			nodes: []Node{{Name: "a", Run: noop}},
			edges: []Edge{{From: "a", When: func(*domain.WorkflowState) string { return domain.NodeEnd }}},
		},
		{
			name:  "nil node func",
			entry: "a",
			nodes: []Node{{Name: "a"}},
			edges: []Edge{{From: "a", To: domain.NodeEnd}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGraph(tt.entry, tt.nodes, tt.edges)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, domain.ErrConfig)
		})
	}
}

func TestNewInterpretationGraph_Valid(t *testing.T) {
	nodes, err := NewInterpretationNodes(happyLLM(), &mockPrompts{}, happyRetriever(), NodesConfig{})
	require.NoError(t, err)

	g, err := NewInterpretationGraph(nodes)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeRelevanceCheck, g.Entry())
}

func TestEngine_ConditionChoosingUndeclaredTarget(t *testing.T) {
	g, err := NewGraph("a",
		[]Node{{Name: "a", Run: noop}},
		[]Edge{{
			From:    "a",
			When:    func(*domain.WorkflowState) string { return "elsewhere" },
			Targets: []string{domain.NodeEnd},
		}},
	)
	require.NoError(t, err)

	state, err := NewEngine(g).Run(context.Background(), "q", domain.CategoryHome)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

// --- Engine runs ---

func TestEngine_AnswersRelevantQuestion(t *testing.T) {
	llm := happyLLM()
	retriever := happyRetriever()
	engine, err := newTestEngine(llm, retriever)
	require.NoError(t, err)

	state, err := engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	require.NoError(t, err)

	assert.Equal(t, "굴뚝은 가족 간 소통을 의미합니다.", state.Generation)
	assert.Equal(t, domain.DecisionYes, state.RelevanceCheck)
	assert.Equal(t, domain.DecisionNo, state.HallucinationCheck)
	assert.Equal(t, []string{"굴뚝의 의미", "집 그림의 해석"}, state.DecomposedQuestions)
	assert.Equal(t, []string{
		"굴뚝은 가정 내 정서적 교류를 상징한다.",
		"연기가 나는 굴뚝은 따뜻한 가족 분위기를 나타낸다.",
		"집 그림은 가정생활에 대한 인식을 반영한다.",
	}, state.RetrievedContexts)
	assert.Equal(t, []string{
		domain.NodeRelevanceCheck, domain.NodeDecomposeQuery, domain.NodeRetrieve,
		domain.NodeGenerateAnswer, domain.NodeHallucinationCheck,
	}, state.Steps)
	assert.NotEmpty(t, state.RunID)
	assert.Equal(t, 2, retriever.callCount())
}

func TestEngine_RejectsIrrelevantQuestion(t *testing.T) {
	llm := newMockLLM(map[string][]string{
		domain.NodeRelevanceCheck: {"no"},
	})
	retriever := happyRetriever()
	engine, err := newTestEngine(llm, retriever)
	require.NoError(t, err)

	state, err := engine.Run(context.Background(), "오늘 날씨 어때?", domain.CategoryHome)
	require.NoError(t, err)

	assert.Equal(t, domain.FallbackAnswer, state.Generation)
	assert.Equal(t, "관찰 결과를 다시 입력해주세요.", state.Generation)
	assert.Equal(t, []string{domain.NodeRelevanceCheck}, state.Steps)
	assert.Equal(t, 0, llm.callCount(domain.NodeDecomposeQuery))
	assert.Equal(t, 0, llm.callCount(domain.NodeGenerateAnswer))
	assert.Equal(t, 0, llm.callCount(domain.NodeHallucinationCheck))
	assert.Equal(t, 0, retriever.callCount())
}

func TestEngine_NodeOrdering(t *testing.T) {
	llm := happyLLM()
	engine, err := newTestEngine(llm, happyRetriever())
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	require.NoError(t, err)

	assert.Equal(t, []string{
		domain.NodeRelevanceCheck, domain.NodeDecomposeQuery,
		domain.NodeGenerateAnswer, domain.NodeHallucinationCheck,
	}, llm.callOrder())
}

func TestEngine_RegeneratesUntilGrounded(t *testing.T) {
	llm := newMockLLM(map[string][]string{
		domain.NodeRelevanceCheck:     {"yes"},
		domain.NodeDecomposeQuery:     {`{"queries": ["굴뚝의 의미"]}`},
		domain.NodeGenerateAnswer:     {"first", "second", "third"},
		domain.NodeHallucinationCheck: {"yes", "YES ", "no"},
	})
	retriever := happyRetriever()
	engine, err := newTestEngine(llm, retriever)
	require.NoError(t, err)

	state, err := engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	require.NoError(t, err)

	assert.Equal(t, "third", state.Generation)
	assert.Equal(t, 3, llm.callCount(domain.NodeGenerateAnswer))
	assert.Equal(t, 3, llm.callCount(domain.NodeHallucinationCheck))
	assert.Len(t, state.Steps, 9)
	// Regeneration reuses the contexts from the single retrieval.
	assert.Equal(t, 1, retriever.callCount())
}

func TestEngine_IterationLimitExceeded(t *testing.T) {
	llm := newMockLLM(map[string][]string{
		domain.NodeRelevanceCheck:     {"yes"},
		domain.NodeDecomposeQuery:     {`{"queries": ["굴뚝의 의미"]}`},
		domain.NodeGenerateAnswer:     {"unsupported"},
		domain.NodeHallucinationCheck: {"yes"},
	})
	engine, err := newTestEngine(llm, happyRetriever())
	require.NoError(t, err)
	require.Equal(t, 15, engine.MaxSteps())

	state, err := engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	assert.Nil(t, state)
	require.ErrorIs(t, err, domain.ErrIterationLimitExceeded)

	// Steps 4, 6, ..., 14 generate; 5, 7, ..., 15 check.
	assert.Equal(t, 6, llm.callCount(domain.NodeGenerateAnswer))
	assert.Equal(t, 6, llm.callCount(domain.NodeHallucinationCheck))
}

func TestEngine_CustomMaxSteps(t *testing.T) {
	engine, err := newTestEngine(happyLLM(), happyRetriever(), WithMaxSteps(4))
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	assert.ErrorIs(t, err, domain.ErrIterationLimitExceeded)

	engine, err = newTestEngine(happyLLM(), happyRetriever(), WithMaxSteps(5))
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	assert.NoError(t, err)
}

func TestEngine_UnexpectedClassification(t *testing.T) {
	llm := newMockLLM(map[string][]string{
		domain.NodeRelevanceCheck: {"maybe"},
	})
	engine, err := newTestEngine(llm, happyRetriever())
	require.NoError(t, err)

	state, err := engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, domain.ErrUnexpectedClassification)
	assert.Contains(t, err.Error(), domain.NodeRelevanceCheck)
}

func TestEngine_RetrievalUnavailable(t *testing.T) {
	retriever := &mockRetriever{err: domain.ErrRetrievalUnavailable}
	engine, err := newTestEngine(happyLLM(), retriever)
	require.NoError(t, err)

	state, err := engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
}

func TestEngine_EmptyRetrievalStillGenerates(t *testing.T) {
	llm := happyLLM()
	engine, err := newTestEngine(llm, &mockRetriever{})
	require.NoError(t, err)

	state, err := engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	require.NoError(t, err)
	assert.Empty(t, state.RetrievedContexts)
	assert.Equal(t, 1, llm.callCount(domain.NodeGenerateAnswer))
}

func TestEngine_CancelledBeforeStart(t *testing.T) {
	llm := happyLLM()
	engine, err := newTestEngine(llm, happyRetriever())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := engine.Run(ctx, chimneyQuestion, domain.CategoryHome)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, llm.callOrder())
}

func TestEngine_CancelledMidRun(t *testing.T) {
	llm := happyLLM()
	llm.delay = time.Second
	engine, err := newTestEngine(llm, happyRetriever())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	state, err := engine.Run(ctx, chimneyQuestion, domain.CategoryHome)
	assert.Nil(t, state)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestEngine_Deterministic(t *testing.T) {
	run := func() *domain.WorkflowState {
		engine, err := newTestEngine(happyLLM(), happyRetriever())
		require.NoError(t, err)
		state, err := engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
		require.NoError(t, err)
		return state
	}

	first, second := run(), run()

	diff := cmp.Diff(first, second, cmpopts.IgnoreFields(domain.WorkflowState{}, "RunID"))
	assert.Empty(t, diff)
}

func TestEngine_ObserverEvents(t *testing.T) {
	obs := &recordingObserver{}
	engine, err := newTestEngine(happyLLM(), happyRetriever(), WithObserver(MultiObserver{obs, LogObserver{}}))
	require.NoError(t, err)

	state, err := engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	require.NoError(t, err)

	assert.Len(t, obs.ofType(EventNodeEnter), 5)
	assert.Len(t, obs.ofType(EventNodeExit), 5)
	transitions := obs.ofType(EventTransition)
	require.Len(t, transitions, 5)
	assert.Equal(t, domain.NodeEnd, transitions[4].Next)
	complete := obs.ofType(EventRunComplete)
	require.Len(t, complete, 1)
	assert.Equal(t, state.RunID, complete[0].RunID)
	assert.Equal(t, 5, complete[0].Step)
	assert.Empty(t, obs.ofType(EventRunError))
}

func TestEngine_ObserverSeesError(t *testing.T) {
	obs := &recordingObserver{}
	llm := newMockLLM(map[string][]string{domain.NodeRelevanceCheck: {"perhaps"}})
	engine, err := newTestEngine(llm, happyRetriever(), WithObserver(obs))
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), chimneyQuestion, domain.CategoryHome)
	require.Error(t, err)

	errs := obs.ofType(EventRunError)
	require.Len(t, errs, 1)
	assert.Equal(t, domain.NodeRelevanceCheck, errs[0].Node)
	assert.ErrorIs(t, errs[0].Error, domain.ErrUnexpectedClassification)
}
