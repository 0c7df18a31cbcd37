package flat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/htp-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

// stubEmbedder maps known queries to fixed vectors.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int              { return 2 }
func (s *stubEmbedder) ModelName() string            { return "stub" }
func (s *stubEmbedder) Ping(_ context.Context) error { return nil }
func (s *stubEmbedder) Close() error                 { return nil }

func pool() *memory.PassageStore {
	return memory.NewPassageStore(
		domain.Passage{ID: "east", Content: "east", Embedding: []float32{1, 0}},
		domain.Passage{ID: "north", Content: "north", Embedding: []float32{0, 1}},
		domain.Passage{ID: "west", Content: "west", Embedding: []float32{-1, 0}},
		domain.Passage{ID: "northeast", Content: "northeast", Embedding: []float32{1, 1}},
		domain.Passage{ID: "bare", Content: "bare"},
		domain.Passage{ID: "zero", Content: "zero", Embedding: []float32{0, 0}},
	)
}

func TestNew_SkipsUnembeddedAndZeroVectors(t *testing.T) {
	r, err := New(context.Background(), pool(), &stubEmbedder{})
	require.NoError(t, err)

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 2, r.Dimensions())
	assert.Equal(t, domain.RetrieverSemantic, r.Kind())
}

func TestNew_DimensionMismatch(t *testing.T) {
	store := memory.NewPassageStore(
		domain.Passage{ID: "a", Content: "a", Embedding: []float32{1, 0}},
		domain.Passage{ID: "b", Content: "b", Embedding: []float32{1, 0, 0}},
	)
	_, err := New(context.Background(), store, &stubEmbedder{})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(context.Background(), pool(), nil)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestRank_OrdersByCosine(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	r, err := New(context.Background(), pool(), embedder)
	require.NoError(t, err)

	hits, err := r.Rank(context.Background(), "q", 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	assert.Equal(t, "east", hits[0].Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "northeast", hits[1].Text)
	assert.InDelta(t, (1/1.4142135623730951+1)/2, hits[1].Score, 1e-6)
	assert.Equal(t, "north", hits[2].Text)
	assert.InDelta(t, 0.5, hits[2].Score, 1e-9)
	assert.Equal(t, "west", hits[3].Text)
	assert.InDelta(t, 0.0, hits[3].Score, 1e-9)
}

func TestRank_TruncatesToK(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{"q": {0, 1}}}
	r, err := New(context.Background(), pool(), embedder)
	require.NoError(t, err)

	hits, err := r.Rank(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "north", hits[0].Text)
}

func TestRank_EmptyPoolSkipsEmbedding(t *testing.T) {
	embedder := &stubEmbedder{}
	r, err := New(context.Background(), memory.NewPassageStore(), embedder)
	require.NoError(t, err)

	hits, err := r.Rank(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, embedder.calls)
}

func TestRank_Errors(t *testing.T) {
	boom := errors.New("boom")
	r, err := New(context.Background(), pool(), &stubEmbedder{err: boom})
	require.NoError(t, err)

	_, err = r.Rank(context.Background(), "q", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = r.Rank(context.Background(), "q", 2)
	assert.ErrorIs(t, err, boom)

	r, err = New(context.Background(), pool(), &stubEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}})
	require.NoError(t, err)
	_, err = r.Rank(context.Background(), "q", 2)
	assert.ErrorIs(t, err, domain.ErrConfig)
}
