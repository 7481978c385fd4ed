package vectorstore

import (
	"context"
	"fmt"
	"runtime"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// anchorTracer for OpenTelemetry instrumentation.
var anchorTracer = otel.Tracer("notaclin.vectorstore.anchors")

const familyMetadataKey = "family"

// AnchorIndex is an immutable set of anchor vectors grouped by family.
//
// All anchors are embedded in one batch when the index is built. After that
// the index is read-only and safe for concurrent use.
type AnchorIndex struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	order       map[string][]string
	dimension   int
	size        int
}

// NewAnchorIndex embeds every anchor phrase in a single EmbedDocuments call
// and loads the vectors into one chromem collection per family.
func NewAnchorIndex(ctx context.Context, embedder Embedder, anchors []Anchor, logger *zap.Logger) (*AnchorIndex, error) {
	ctx, span := anchorTracer.Start(ctx, "AnchorIndex.Build")
	defer span.End()

	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateAnchors(anchors); err != nil {
		return nil, err
	}

	phrases := make([]string, len(anchors))
	for i, a := range anchors {
		phrases[i] = a.Phrase
	}

	vectors, err := embedder.EmbedDocuments(ctx, phrases)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(anchors) {
		return nil, fmt.Errorf("%w: got %d vectors for %d anchors", ErrEmbeddingFailed, len(vectors), len(anchors))
	}

	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingFailed)
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("%w: anchor %q has %d dimensions, want %d", ErrDimensionMismatch, anchors[i].Key, len(v), dimension)
		}
	}

	idx := &AnchorIndex{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
		order:       make(map[string][]string),
		dimension:   dimension,
		size:        len(anchors),
	}

	docs := make(map[string][]chromem.Document)
	for i, a := range anchors {
		vec := make([]float32, dimension)
		copy(vec, vectors[i])
		docs[a.Family] = append(docs[a.Family], chromem.Document{
			ID:        a.Key,
			Content:   a.Phrase,
			Embedding: vec,
			Metadata:  map[string]string{familyMetadataKey: a.Family},
		})
		idx.order[a.Family] = append(idx.order[a.Family], a.Key)
	}

	for family, familyDocs := range docs {
		col, err := idx.db.CreateCollection(family, nil, embeddingFunc(embedder))
		if err != nil {
			return nil, fmt.Errorf("creating collection %s: %w", family, err)
		}
		if err := col.AddDocuments(ctx, familyDocs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("adding anchors to %s: %w", family, err)
		}
		idx.collections[family] = col
	}

	span.SetAttributes(
		attribute.Int("anchors", len(anchors)),
		attribute.Int("dimension", dimension),
	)
	span.SetStatus(codes.Ok, "success")

	logger.Info("anchor index built",
		zap.Int("anchors", len(anchors)),
		zap.Int("families", len(idx.collections)),
		zap.Int("dimension", dimension))

	return idx, nil
}

// embeddingFunc adapts an Embedder for chromem. Anchors carry precomputed
// vectors, so chromem only calls it for text queries.
func embeddingFunc(embedder Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

func validateAnchors(anchors []Anchor) error {
	if len(anchors) == 0 {
		return fmt.Errorf("%w: at least one anchor is required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		if a.Key == "" || a.Family == "" || a.Phrase == "" {
			return fmt.Errorf("%w: anchor %q must have key, family and phrase", ErrInvalidConfig, a.Key)
		}
		if seen[a.Key] {
			return fmt.Errorf("%w: duplicate anchor %q", ErrInvalidConfig, a.Key)
		}
		seen[a.Key] = true
	}
	return nil
}

// Similarities returns the cosine similarity between vector and every anchor
// of family, in the order the anchors were declared.
func (idx *AnchorIndex) Similarities(ctx context.Context, family string, vector []float32) ([]Similarity, error) {
	col, ok := idx.collections[family]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), idx.dimension)
	}

	results, err := col.QueryEmbedding(ctx, vector, col.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying anchors %s: %w", family, err)
	}

	scores := make(map[string]float32, len(results))
	for _, r := range results {
		scores[r.ID] = r.Similarity
	}

	keys := idx.order[family]
	out := make([]Similarity, 0, len(keys))
	for _, key := range keys {
		out = append(out, Similarity{Key: key, Score: float64(scores[key])})
	}
	return out, nil
}

// Dimension returns the length of every anchor vector.
func (idx *AnchorIndex) Dimension() int {
	return idx.dimension
}

// Len returns the number of anchors across all families.
func (idx *AnchorIndex) Len() int {
	return idx.size
}

// Families returns the number of anchors per family.
func (idx *AnchorIndex) Families() map[string]int {
	out := make(map[string]int, len(idx.order))
	for family, keys := range idx.order {
		out[family] = len(keys)
	}
	return out
}
