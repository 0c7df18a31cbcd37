package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
	"github.com/custodia-labs/htp-rag/internal/logger"
)

// Ensure HybridRetriever implements the interface.
var _ driven.Retriever = (*HybridRetriever)(nil)

// scoreTieEpsilon treats fused scores closer than this as equal.
const scoreTieEpsilon = 1e-12

// fusedPassage holds intermediate fusion state for one passage text.
type fusedPassage struct {
	text         string
	lexical      float64
	semantic     float64
	lexicalRank  int // -1 when absent from the lexical top-k
	semanticRank int // -1 when absent from the semantic top-k
	score        float64
}

// HybridRetriever fuses a lexical and a semantic ranker with fixed weights.
type HybridRetriever struct {
	lexical        driven.Ranker
	semantic       driven.Ranker
	weightLexical  float64
	weightSemantic float64
}

// NewHybridRetriever creates a retriever. The weights must be non-negative
// and sum to one. A nil ranker is allowed only when its weight is zero.
func NewHybridRetriever(lexical, semantic driven.Ranker, weightLexical, weightSemantic float64) (*HybridRetriever, error) {
	if weightLexical < 0 || weightSemantic < 0 || math.Abs(weightLexical+weightSemantic-1) > 1e-9 {
		return nil, fmt.Errorf("%w: fusion weights %.3f/%.3f must be non-negative and sum to 1",
			domain.ErrConfig, weightLexical, weightSemantic)
	}
	if lexical == nil && weightLexical > 0 {
		return nil, fmt.Errorf("%w: lexical ranker is required for weight %.3f", domain.ErrConfig, weightLexical)
	}
	if semantic == nil && weightSemantic > 0 {
		return nil, fmt.Errorf("%w: semantic ranker is required for weight %.3f", domain.ErrConfig, weightSemantic)
	}
	return &HybridRetriever{
		lexical:        lexical,
		semantic:       semantic,
		weightLexical:  weightLexical,
		weightSemantic: weightSemantic,
	}, nil
}

// Retrieve returns at most k passage texts ordered by
// weightLexical*lexical + weightSemantic*semantic, descending. Each ranker
// contributes its own top k; a passage missing from a ranker's list scores 0
// for that ranker. Ties keep the semantic ranker's order, then the lexical
// ranker's order for passages only the lexical ranker found.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}

	var lexicalHits, semanticHits []domain.RetrievedPassage
	g, gctx := errgroup.WithContext(ctx)
	if r.lexical != nil {
		g.Go(func() error {
			hits, err := r.lexical.Rank(gctx, query, k)
			if err != nil {
				return fmt.Errorf("lexical rank: %w", err)
			}
			lexicalHits = hits
			return nil
		})
	}
	if r.semantic != nil {
		g.Go(func() error {
			hits, err := r.semantic.Rank(gctx, query, k)
			if err != nil {
				return fmt.Errorf("semantic rank: %w", err)
			}
			semanticHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("Hybrid retrieve %q: %d lexical + %d semantic hits", query, len(lexicalHits), len(semanticHits))

	fused := r.fuse(lexicalHits, semanticHits, k)
	texts := make([]string, len(fused))
	for i, p := range fused {
		texts[i] = p.text
	}
	return texts, nil
}

// fuse merges both hit lists by passage text and returns the best k.
func (r *HybridRetriever) fuse(lexicalHits, semanticHits []domain.RetrievedPassage, k int) []fusedPassage {
	byText := make(map[string]*fusedPassage, len(lexicalHits)+len(semanticHits))
	order := make([]*fusedPassage, 0, len(lexicalHits)+len(semanticHits))
	get := func(text string) *fusedPassage {
		if p, ok := byText[text]; ok {
			return p
		}
		p := &fusedPassage{text: text, lexicalRank: -1, semanticRank: -1}
		byText[text] = p
		order = append(order, p)
		return p
	}

	for i, hit := range semanticHits {
		if i >= k {
			break
		}
		p := get(hit.Text)
		if p.semanticRank < 0 {
			p.semanticRank = i
			p.semantic = clamp01(hit.Score)
		}
	}
	for i, hit := range lexicalHits {
		if i >= k {
			break
		}
		p := get(hit.Text)
		if p.lexicalRank < 0 {
			p.lexicalRank = i
			p.lexical = clamp01(hit.Score)
		}
	}

	for _, p := range order {
		p.score = r.weightLexical*p.lexical + r.weightSemantic*p.semantic
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if math.Abs(a.score-b.score) > scoreTieEpsilon {
			return a.score > b.score
		}
		return tieBefore(a, b)
	})

	if len(order) > k {
		order = order[:k]
	}
	out := make([]fusedPassage, len(order))
	for i, p := range order {
		out[i] = *p
	}
	return out
}

// tieBefore orders equally scored passages by semantic rank first.
func tieBefore(a, b *fusedPassage) bool {
	switch {
	case a.semanticRank >= 0 && b.semanticRank >= 0:
		return a.semanticRank < b.semanticRank
	case a.semanticRank >= 0:
		return true
	case b.semanticRank >= 0:
		return false
	default:
		return a.lexicalRank < b.lexicalRank
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
