package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/logger"
)

// Error codes carried in error bodies.
const (
	CodeInvalidInput         = "invalid_input"
	CodeModelOutput          = "model_output"
	CodeRateLimited          = "rate_limited"
	CodeLLMUnavailable       = "llm_unavailable"
	CodeRetrievalUnavailable = "retrieval_unavailable"
	CodeIterationLimit       = "iteration_limit"
	CodeTimeout              = "timeout"
	CodeInternal             = "internal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps an analysis error to a status and code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, domain.ErrUnexpectedClassification), errors.Is(err, domain.ErrMalformedOutput):
		return http.StatusBadGateway, CodeModelOutput
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusBadGateway, CodeLLMUnavailable
	case errors.Is(err, domain.ErrRetrievalUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, CodeRetrievalUnavailable
	case errors.Is(err, domain.ErrIterationLimitExceeded):
		return http.StatusGatewayTimeout, CodeIterationLimit
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}
