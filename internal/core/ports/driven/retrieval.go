package driven

import (
	"context"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// PassageStore is the read-only passage pool.
// Opening a store whose backing pool does not exist fails with
// domain.ErrRetrievalUnavailable; an existing empty pool lists nothing.
type PassageStore interface {
	// List returns every passage in the pool in a stable order.
	List(ctx context.Context) ([]domain.Passage, error)

	// Count returns the number of passages.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// Ranker scores the pool against a query.
// Results are at most k hits, best first, with scores normalised to [0,1].
type Ranker interface {
	// Rank returns the top k passages for query.
	Rank(ctx context.Context, query string, k int) ([]domain.RetrievedPassage, error)

	// Kind identifies the ranker.
	Kind() domain.RetrieverKind
}

// Retriever returns the top k passage texts for a query.
type Retriever interface {
	// Retrieve returns at most k passage texts, best first.
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}
