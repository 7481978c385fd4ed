// Package vectorstore holds the anchor vectors that free text is compared
// against, backed by an in-memory chromem-go database.
package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig reports a missing embedder or an unusable anchor set.
	ErrInvalidConfig = errors.New("invalid anchor set")

	// ErrEmbeddingFailed wraps embedder failures while building the index.
	ErrEmbeddingFailed = errors.New("embedding anchors")

	ErrUnknownFamily     = errors.New("unknown anchor family")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder turns text into vectors. Anchors go through EmbedDocuments in
// one batch; note text goes through EmbedQuery, which some models encode
// differently.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Anchor is a descriptive phrase standing for one concept.
type Anchor struct {
	// Key identifies the concept, unique across the index.
	Key string
	// Family groups anchors that are queried together.
	Family string
	// Phrase is the text that gets embedded.
	Phrase string
}

// Similarity is the cosine similarity between a query and one anchor.
type Similarity struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}
