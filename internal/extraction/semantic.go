package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/notaclin/internal/vectorstore"
)

// DefaultSimilarityThreshold is the cosine similarity a neuro anchor must
// strictly exceed to fire.
const DefaultSimilarityThreshold = 0.58

// ErrSemanticMatch wraps failures to embed a note or query the anchor index.
var ErrSemanticMatch = errors.New("semantic match failed")

// SimilarityIndex is implemented by vectorstore.AnchorIndex.
type SimilarityIndex interface {
	Similarities(ctx context.Context, family string, vector []float32) ([]vectorstore.Similarity, error)
}

// SemanticMatcher detects qualitative neurological findings by comparing the
// whole note against the neuro anchors.
type SemanticMatcher struct {
	embedder  vectorstore.Embedder
	index     SimilarityIndex
	threshold float64
}

// NewSemanticMatcher returns a matcher. A non-positive threshold selects
// DefaultSimilarityThreshold.
func NewSemanticMatcher(embedder vectorstore.Embedder, index SimilarityIndex, threshold float64) (*SemanticMatcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", vectorstore.ErrInvalidConfig)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: anchor index is required", vectorstore.ErrInvalidConfig)
	}
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if threshold >= 1 {
		return nil, fmt.Errorf("%w: similarity threshold %v must be below 1", vectorstore.ErrInvalidConfig, threshold)
	}
	return &SemanticMatcher{embedder: embedder, index: index, threshold: threshold}, nil
}

// Threshold returns the firing threshold.
func (m *SemanticMatcher) Threshold() float64 {
	return m.threshold
}

// Match embeds raw once and returns a candidate for every neuro field whose
// anchor similarity exceeds the threshold, in catalog order. Blank text
// yields no candidates and no embedding call.
func (m *SemanticMatcher) Match(ctx context.Context, raw string) ([]Candidate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	vec, err := m.embedder.EmbedQuery(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding note: %w", ErrSemanticMatch, err)
	}

	sims, err := m.index.Similarities(ctx, string(FamilyNeuro), vec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSemanticMatch, err)
	}

	var out []Candidate
	for _, s := range sims {
		if !(s.Score > m.threshold) {
			continue
		}
		spec, ok := Lookup(FieldKey(s.Key))
		if !ok || spec.Canonical == "" {
			continue
		}
		out = append(out, Candidate{Field: spec.Key, Value: spec.Canonical, Score: s.Score})
	}
	return out, nil
}
