package embeddings

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedProvider memoizes query embeddings by exact text. Concurrent
// requests for the same uncached text share one provider call.
//
// Document embeddings pass through uncached; they are only computed for the
// anchor batch at startup.
type CachedProvider struct {
	Provider
	cache   *lru.Cache[string, []float32]
	group   singleflight.Group
	metrics *Metrics
}

// NewCachedProvider wraps p with an LRU of size entries. A size of zero or
// less returns p unchanged.
func NewCachedProvider(p Provider, size int, logger *zap.Logger) (Provider, error) {
	if size <= 0 {
		return p, nil
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("%w: query cache: %v", ErrInvalidConfig, err)
	}
	return &CachedProvider{
		Provider: p,
		cache:    cache,
		metrics:  NewMetrics(logger),
	}, nil
}

// EmbedQuery returns a copy of the cached vector for text, computing it once
// on a miss. Failures are not cached.
func (c *CachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		c.metrics.cacheLookup(ctx, "hit")
		return cloneVector(vec), nil
	}

	v, err, shared := c.group.Do(text, func() (interface{}, error) {
		vec, err := c.Provider.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(text, vec)
		return vec, nil
	})
	if shared {
		c.metrics.cacheLookup(ctx, "shared")
	} else {
		c.metrics.cacheLookup(ctx, "miss")
	}
	if err != nil {
		return nil, err
	}
	return cloneVector(v.([]float32)), nil
}

// Len returns the number of cached queries.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
