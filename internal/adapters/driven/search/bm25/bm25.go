// Package bm25 provides the lexical ranker: Okapi BM25 over the passage pool.
//
// The index is built once from the pool and never changes. Hangul words
// also index their character bigrams, so a query for 굴뚝 still matches
// 굴뚝의 or 굴뚝은 where the particle is fused to the noun.
package bm25

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
)

// Ensure Ranker implements the interface.
var _ driven.Ranker = (*Ranker)(nil)

// Default BM25 parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Ranker scores passages with BM25.
type Ranker struct {
	k1, b    float64
	docs     []document
	df       map[string]int
	avgLen   float64
	postings map[string][]int
}

type document struct {
	text string
	tf   map[string]int
	len  int
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithParams overrides k1 and b.
func WithParams(k1, b float64) Option {
	return func(r *Ranker) {
		r.k1 = k1
		r.b = b
	}
}

// New builds the index from every passage in store.
// Passages with identical content are indexed once.
func New(ctx context.Context, store driven.PassageStore, opts ...Option) (*Ranker, error) {
	passages, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("bm25: list passages: %w", err)
	}
	return NewFromPassages(passages, opts...), nil
}

// NewFromPassages builds the index from passages in order.
func NewFromPassages(passages []domain.Passage, opts ...Option) *Ranker {
	r := &Ranker{
		k1:       DefaultK1,
		b:        DefaultB,
		df:       make(map[string]int),
		postings: make(map[string][]int),
	}
	for _, opt := range opts {
		opt(r)
	}

	seen := make(map[string]struct{}, len(passages))
	total := 0
	for _, p := range passages {
		if _, dup := seen[p.Content]; dup {
			continue
		}
		seen[p.Content] = struct{}{}

		terms := Tokenize(p.Content)
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		idx := len(r.docs)
		for t := range tf {
			r.df[t]++
			r.postings[t] = append(r.postings[t], idx)
		}
		r.docs = append(r.docs, document{text: p.Content, tf: tf, len: len(terms)})
		total += len(terms)
	}
	if len(r.docs) > 0 {
		r.avgLen = float64(total) / float64(len(r.docs))
	}
	return r
}

// Kind identifies the ranker.
func (r *Ranker) Kind() domain.RetrieverKind {
	return domain.RetrieverLexical
}

// Len returns the number of indexed passages.
func (r *Ranker) Len() int {
	return len(r.docs)
}

// Rank returns up to k passages with a positive score, best first.
// Scores are divided by the best score so the top hit is 1.
func (r *Ranker) Rank(ctx context.Context, query string, k int) ([]domain.RetrievedPassage, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r.docs) == 0 {
		return nil, nil
	}

	scores := make(map[int]float64)
	queried := make(map[string]struct{})
	for _, term := range Tokenize(query) {
		if _, ok := queried[term]; ok {
			continue
		}
		queried[term] = struct{}{}

		docs := r.postings[term]
		if len(docs) == 0 {
			continue
		}
		idf := r.idf(term)
		for _, i := range docs {
			scores[i] += idf * r.termWeight(r.docs[i], term)
		}
	}

	type hit struct {
		idx   int
		score float64
	}
	hits := make([]hit, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			hits = append(hits, hit{i, s})
		}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].idx < hits[b].idx
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	if len(hits) == 0 {
		return nil, nil
	}

	top := hits[0].score
	out := make([]domain.RetrievedPassage, len(hits))
	for i, h := range hits {
		out[i] = domain.RetrievedPassage{
			Text:      r.docs[h.idx].text,
			Retriever: domain.RetrieverLexical,
			Score:     h.score / top,
		}
	}
	return out, nil
}

// idf is the non-negative BM25 inverse document frequency.
func (r *Ranker) idf(term string) float64 {
	n := float64(len(r.docs))
	df := float64(r.df[term])
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

func (r *Ranker) termWeight(d document, term string) float64 {
	tf := float64(d.tf[term])
	norm := 1 - r.b
	if r.avgLen > 0 {
		norm += r.b * float64(d.len) / r.avgLen
	}
	return tf * (r.k1 + 1) / (tf + r.k1*norm)
}

// Tokenize lower-cases text and splits it into letter/digit runs.
// Runs containing Hangul also emit their character bigrams.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, f)
		runes := []rune(f)
		if len(runes) < 3 || !hasHangul(runes) {
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			terms = append(terms, string(runes[i:i+2]))
		}
	}
	return terms
}

func hasHangul(runes []rune) bool {
	for _, c := range runes {
		if unicode.Is(unicode.Hangul, c) {
			return true
		}
	}
	return false
}
