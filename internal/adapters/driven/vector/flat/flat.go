// Package flat provides an exact semantic ranker: cosine similarity between
// the query embedding and every pool embedding, held in memory.
package flat

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
)

// Ensure Ranker implements the interface.
var _ driven.Ranker = (*Ranker)(nil)

// Ranker scores passages by cosine similarity.
type Ranker struct {
	embedder driven.EmbeddingService
	entries  []entry
	dim      int
}

type entry struct {
	text string
	vec  []float32
	norm float64
}

// New loads every embedded passage from store.
// Passages without an embedding, or with a zero vector, are skipped.
// Embeddings of differing length are domain.ErrConfig.
func New(ctx context.Context, store driven.PassageStore, embedder driven.EmbeddingService) (*Ranker, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: flat ranker needs an embedding service", domain.ErrConfig)
	}
	passages, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("flat: list passages: %w", err)
	}

	r := &Ranker{embedder: embedder}
	seen := make(map[string]struct{}, len(passages))
	for _, p := range passages {
		if len(p.Embedding) == 0 {
			continue
		}
		if _, dup := seen[p.Content]; dup {
			continue
		}
		if r.dim == 0 {
			r.dim = len(p.Embedding)
		} else if len(p.Embedding) != r.dim {
			return nil, fmt.Errorf("%w: passage %s has %d dimensions, pool has %d",
				domain.ErrConfig, p.ID, len(p.Embedding), r.dim)
		}
		n := norm(p.Embedding)
		if n == 0 {
			continue
		}
		seen[p.Content] = struct{}{}
		r.entries = append(r.entries, entry{text: p.Content, vec: p.Embedding, norm: n})
	}
	return r, nil
}

// Kind identifies the ranker.
func (r *Ranker) Kind() domain.RetrieverKind {
	return domain.RetrieverSemantic
}

// Len returns the number of searchable passages.
func (r *Ranker) Len() int {
	return len(r.entries)
}

// Dimensions returns the pool embedding size, or 0 for an empty pool.
func (r *Ranker) Dimensions() int {
	return r.dim
}

// Rank embeds query and returns the k nearest passages.
// Scores are (cos+1)/2, best first; ties keep pool order.
func (r *Ranker) Rank(ctx context.Context, query string, k int) ([]domain.RetrievedPassage, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if len(r.entries) == 0 {
		return nil, nil
	}

	q, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != r.dim {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, pool has %d",
			domain.ErrConfig, len(q), r.dim)
	}
	qn := norm(q)
	if qn == 0 {
		return nil, nil
	}

	type hit struct {
		idx   int
		score float64
	}
	hits := make([]hit, len(r.entries))
	for i, e := range r.entries {
		cos := dot(q, e.vec) / (qn * e.norm)
		hits[i] = hit{i, clamp01((cos + 1) / 2)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]domain.RetrievedPassage, len(hits))
	for i, h := range hits {
		out[i] = domain.RetrievedPassage{
			Text:      r.entries[h.idx].text,
			Retriever: domain.RetrieverSemantic,
			Score:     h.score,
		}
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
