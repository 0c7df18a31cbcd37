package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates the service was assembled from invalid configuration:
	// a missing prompt catalog, a missing template key, a malformed graph or
	// fusion weights that do not sum to one.
	ErrConfig = errors.New("configuration error")

	// ErrTemplate indicates a prompt could not be rendered because a
	// placeholder had no value or the template name is unknown.
	ErrTemplate = errors.New("template error")

	// ErrUnexpectedClassification indicates a yes/no judgement from the
	// text generator normalised to something other than "yes" or "no".
	ErrUnexpectedClassification = errors.New("unexpected classification")

	// ErrMalformedOutput indicates structured text generator output could
	// not be parsed.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrRetrievalUnavailable indicates the passage pool does not exist.
	// An existing but empty pool is not an error.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrIterationLimitExceeded indicates the workflow reached its node
	// execution bound without terminating.
	ErrIterationLimitExceeded = errors.New("iteration limit exceeded")

	// ErrLLMUnavailable indicates the LLM service is not configured or
	// not reachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrRateLimited indicates a provider rejected a call with HTTP 429.
	// It is always wrapped together with ErrLLMUnavailable.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
