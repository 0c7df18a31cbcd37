// Package postgres provides a passage pool stored in PostgreSQL with the
// pgvector extension, and a semantic ranker that searches it in the database.
//
// Expected schema:
//
//	CREATE EXTENSION IF NOT EXISTS vector;
//	CREATE TABLE passages (
//	    seq       BIGSERIAL PRIMARY KEY,
//	    id        TEXT NOT NULL UNIQUE,
//	    content   TEXT NOT NULL,
//	    category  TEXT NOT NULL DEFAULT '',
//	    embedding vector
//	);
package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.PassageStore = (*Store)(nil)

// connectTimeout bounds the reachability check in Open.
const connectTimeout = 5 * time.Second

// Store is a passage pool backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and checks that it answers.
// A malformed URL is domain.ErrConfig; an unreachable database is
// domain.ErrRetrievalUnavailable.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse database url: %v", domain.ErrConfig, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", domain.ErrRetrievalUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrRetrievalUnavailable, err)
	}

	return &Store{pool: pool}, nil
}

// List returns every passage in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Passage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, category, embedding FROM passages ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var passages []domain.Passage
	for rows.Next() {
		var p domain.Passage
		var vec *pgvector.Vector
		if err := rows.Scan(&p.ID, &p.Content, &p.Category, &vec); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		if vec != nil {
			p.Embedding = vec.Slice()
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}
	return passages, nil
}

// Count returns the number of passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SemanticRanker returns a ranker that runs nearest-neighbour search in
// the database with the cosine distance operator.
func (s *Store) SemanticRanker(embedder driven.EmbeddingService) *Ranker {
	return &Ranker{pool: s.pool, embedder: embedder}
}

// Ensure Ranker implements the interface.
var _ driven.Ranker = (*Ranker)(nil)

// Ranker is the pgvector semantic ranker.
type Ranker struct {
	pool     *pgxpool.Pool
	embedder driven.EmbeddingService
}

// nearestSQL collapses duplicate texts to their closest row.
const nearestSQL = `
	SELECT content, MIN(embedding <=> $1) AS distance
	FROM passages
	WHERE embedding IS NOT NULL
	GROUP BY content
	ORDER BY distance, MIN(seq)
	LIMIT $2`

// Kind identifies the ranker.
func (r *Ranker) Kind() domain.RetrieverKind {
	return domain.RetrieverSemantic
}

// Rank embeds query and returns the k closest passages.
func (r *Ranker) Rank(ctx context.Context, query string, k int) ([]domain.RetrievedPassage, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}

	q, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := r.pool.Query(ctx, nearestSQL, pgvector.NewVector(q), k)
	if err != nil {
		return nil, fmt.Errorf("%w: nearest neighbours: %v", domain.ErrRetrievalUnavailable, err)
	}
	defer rows.Close()

	var out []domain.RetrievedPassage
	for rows.Next() {
		var text string
		var distance float64
		if err := rows.Scan(&text, &distance); err != nil {
			return nil, fmt.Errorf("scanning neighbour: %w", err)
		}
		out = append(out, domain.RetrievedPassage{
			Text:      text,
			Retriever: domain.RetrieverSemantic,
			Score:     DistanceScore(distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating neighbours: %w", err)
	}
	return out, nil
}

// DistanceScore maps a cosine distance in [0,2] to a score in [0,1].
// NaN (a zero vector on either side) scores 0.
func DistanceScore(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}
	return math.Max(0, math.Min(1, 1-distance/2))
}
