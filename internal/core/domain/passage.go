package domain

// Passage is an entry in the read-only passage pool.
type Passage struct {
	// ID is the stable identifier within the pool.
	ID string

	// Content is the passage text returned to the workflow.
	Content string

	// Category optionally tags the drawing subject the passage discusses.
	Category string

	// Embedding is the precomputed semantic vector. May be empty when the
	// pool only serves lexical retrieval.
	Embedding []float32
}

// RetrieverKind names the ranker that produced a hit.
type RetrieverKind string

// Ranker kinds.
const (
	RetrieverLexical  RetrieverKind = "lexical"
	RetrieverSemantic RetrieverKind = "semantic"
	RetrieverHybrid   RetrieverKind = "hybrid"
)

// RetrievedPassage is a transient ranked hit. Score is normalised to [0,1].
type RetrievedPassage struct {
	Text      string
	Retriever RetrieverKind
	Score     float64
}
