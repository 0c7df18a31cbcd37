package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
)

// Ensure PassageStore implements the interface.
var _ driven.PassageStore = (*PassageStore)(nil)

// PassageStore is an in-memory implementation of driven.PassageStore.
// Passages are listed in the order they were given.
type PassageStore struct {
	mu       sync.RWMutex
	passages []domain.Passage
}

// NewPassageStore creates a store holding a copy of passages.
func NewPassageStore(passages ...domain.Passage) *PassageStore {
	return &PassageStore{passages: slices.Clone(passages)}
}

// List returns every passage in insertion order.
func (s *PassageStore) List(ctx context.Context) ([]domain.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.passages), nil
}

// Count returns the number of passages.
func (s *PassageStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages), nil
}

// Close is a no-op.
func (s *PassageStore) Close() error {
	return nil
}
