package services

import "github.com/custodia-labs/htp-rag/internal/core/domain"

// DecideAfterRelevance continues to decomposition only for relevant questions.
func DecideAfterRelevance(state *domain.WorkflowState) string {
	if state.RelevanceCheck == domain.DecisionYes {
		return domain.NodeDecomposeQuery
	}
	return domain.NodeEnd
}

// DecideAfterHallucination regenerates while the answer is judged unsupported.
// A "yes" from the hallucination check means the answer contains claims the
// retrieved contexts do not back.
func DecideAfterHallucination(state *domain.WorkflowState) string {
	if state.HallucinationCheck == domain.DecisionYes {
		return domain.NodeGenerateAnswer
	}
	return domain.NodeEnd
}
