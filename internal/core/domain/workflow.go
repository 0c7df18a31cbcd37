package domain

import (
	"fmt"
	"strings"
)

// FallbackAnswer is returned when the relevance check rejects the question.
const FallbackAnswer = "관찰 결과를 다시 입력해주세요."

// Node names of the interpretation workflow. They double as the keys of the
// prompt catalog.
const (
	NodeRelevanceCheck     = "relevance_check"
	NodeDecomposeQuery     = "decompose_query"
	NodeRetrieve           = "retrieve"
	NodeGenerateAnswer     = "generate_answer"
	NodeHallucinationCheck = "hallucination_check"

	// NodeEnd is the terminal marker returned by edges and conditions.
	NodeEnd = "__end__"
)

// Decision is a normalised yes/no judgement produced by a check node.
type Decision string

// Possible decisions.
const (
	DecisionUnset Decision = ""
	DecisionYes   Decision = "yes"
	DecisionNo    Decision = "no"
)

// ParseDecision normalises raw text generator output into a Decision.
// Surrounding whitespace is ignored and case is folded; anything that is not
// exactly "yes" or "no" afterwards is ErrUnexpectedClassification.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionYes:
		return DecisionYes, nil
	case DecisionNo:
		return DecisionNo, nil
	default:
		return DecisionUnset, fmt.Errorf("%w: %q", ErrUnexpectedClassification, raw)
	}
}

// IsSet reports whether the decision has been made.
func (d Decision) IsSet() bool {
	return d != DecisionUnset
}

// String returns the string representation.
func (d Decision) String() string {
	if d == DecisionUnset {
		return "unset"
	}
	return string(d)
}

// WorkflowState is the record threaded through one interpretation run.
// It is created per request and discarded once the answer is extracted.
type WorkflowState struct {
	// RunID correlates log lines of a single run.
	RunID string

	// OriginalQuestion is the caller's question. Immutable after creation.
	OriginalQuestion string

	// Category is the drawing subject. Immutable after creation.
	Category Category

	// DecomposedQuestions holds the sub-queries produced by decomposition.
	DecomposedQuestions []string

	// RetrievedContexts holds deduplicated passages, in first-seen order.
	// Once populated it is never cleared during the run.
	RetrievedContexts []string

	// Generation is the latest candidate answer.
	Generation string

	// RelevanceCheck is the relevance judgement on the question.
	RelevanceCheck Decision

	// HallucinationCheck is the grounding judgement on Generation.
	HallucinationCheck Decision

	// Steps lists executed nodes in order.
	Steps []string
}

// NewWorkflowState returns a state with only the required fields set.
func NewWorkflowState(runID, question string, category Category) *WorkflowState {
	return &WorkflowState{
		RunID:            runID,
		OriginalQuestion: question,
		Category:         category,
	}
}

// AddContexts appends passages not already present, keeping first-seen order.
func (s *WorkflowState) AddContexts(passages ...string) {
	seen := make(map[string]struct{}, len(s.RetrievedContexts)+len(passages))
	for _, p := range s.RetrievedContexts {
		seen[p] = struct{}{}
	}
	for _, p := range passages {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		s.RetrievedContexts = append(s.RetrievedContexts, p)
	}
}

// SetGeneration replaces the candidate answer and invalidates the previous
// grounding judgement.
func (s *WorkflowState) SetGeneration(text string) {
	s.Generation = text
	s.HallucinationCheck = DecisionUnset
}

// Rejected reports whether the relevance check turned the question away.
func (s *WorkflowState) Rejected() bool {
	return s.RelevanceCheck == DecisionNo
}
