package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

func executeAsk(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"ask"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
	assert.Equal(t, "Interpret an observation about a drawing", askCmd.Short)
}

func TestAskCmd_Flags(t *testing.T) {
	category := askCmd.Flags().Lookup("category")
	require.NotNil(t, category)
	assert.Equal(t, "c", category.Shorthand)

	assert.NotNil(t, askCmd.Flags().Lookup("json"))
	assert.NotNil(t, askCmd.Flags().Lookup("trace"))
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeAsk(t, "--category", "HOME", "창문이 매우 크게 그려져 있어요")

	require.NoError(t, err)
	assert.Equal(t, testAnswer+"\n", out)

	mock := analysisService.(*mockAnalysisService)
	assert.Equal(t, "HOME", mock.lastReq.Category)
	assert.Equal(t, "창문이 매우 크게 그려져 있어요", mock.lastReq.Question)
}

func TestAskCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeAsk(t, "-c", "TREE", "--json", "뿌리가 강조되어 있어요")

	require.NoError(t, err)
	var resp domain.AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, testAnswer, resp.Answer)
}

func TestAskCmd_ReadsQuestionFromStdin(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("  사람의 손이 생략되어 있어요\n"))
	_, err := executeAsk(t, "-c", "PERSON1")

	require.NoError(t, err)
	mock := analysisService.(*mockAnalysisService)
	assert.Equal(t, "사람의 손이 생략되어 있어요", mock.lastReq.Question)
	assert.Equal(t, "PERSON1", mock.lastReq.Category)
}

func TestAskCmd_EmptyStdin(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("   \n"))
	_, err := executeAsk(t, "-c", "HOME")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is required")
}

func TestAskCmd_TooManyArgs(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := executeAsk(t, "one", "two")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg(s)")
}

func TestAskCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	analysisService = &mockAnalysisService{err: fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, "CAR")}
	_, err := executeAsk(t, "-c", "CAR", "창문")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "analysis failed")
}

func traceState() *domain.WorkflowState {
	return &domain.WorkflowState{
		RunID:               "run-1",
		OriginalQuestion:    "창문이 크고 문이 없어요",
		Category:            domain.CategoryHome,
		DecomposedQuestions: []string{"창문이 크다", "문이 없다"},
		RetrievedContexts:   []string{"큰 창문은 개방성을 나타낸다.", "문의 생략은 접근 거부를 나타낼 수 있다."},
		Generation:          testAnswer,
		RelevanceCheck:      domain.DecisionYes,
		HallucinationCheck:  domain.DecisionNo,
		Steps: []string{
			domain.NodeRelevanceCheck, domain.NodeDecomposeQuery, domain.NodeRetrieve,
			domain.NodeGenerateAnswer, domain.NodeHallucinationCheck,
		},
	}
}

func TestAskCmd_Trace(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	analysisService = &mockAnalysisService{state: traceState()}
	out, err := executeAsk(t, "-c", "HOME", "--trace", "창문이 크고 문이 없어요")

	require.NoError(t, err)
	assert.Contains(t, out, "Run: run-1")
	assert.Contains(t, out, "relevance_check -> decompose_query -> retrieve -> generate_answer -> hallucination_check")
	assert.Contains(t, out, "1. 창문이 크다")
	assert.Contains(t, out, "Passages (2):")
	assert.True(t, strings.HasSuffix(out, testAnswer+"\n"))
}

func TestAskCmd_TraceJSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	analysisService = &mockAnalysisService{state: traceState()}
	out, err := executeAsk(t, "-c", "HOME", "--trace", "--json", "창문이 크고 문이 없어요")

	require.NoError(t, err)
	var got traceOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "HOME", got.Category)
	assert.Equal(t, []string{"창문이 크다", "문이 없다"}, got.DecomposedQuestions)
	assert.Equal(t, "yes", got.Relevance)
	assert.Equal(t, testAnswer, got.Answer)
}

func TestNewTraceOutput_RejectedUsesFallback(t *testing.T) {
	state := &domain.WorkflowState{
		RunID:          "run-2",
		Category:       domain.CategoryTree,
		RelevanceCheck: domain.DecisionNo,
		Steps:          []string{domain.NodeRelevanceCheck},
	}

	out := newTraceOutput(state)

	assert.Equal(t, domain.FallbackAnswer, out.Answer)
	assert.Equal(t, "no", out.Relevance)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "짧은 문장", truncate("짧은   문장", 10))
	assert.Equal(t, "가나다...", truncate("가나다라마", 3))
	assert.Equal(t, "a b", truncate("a\nb", 5))
}
