package embeddings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider returns the text length as a one-element vector.
type countingProvider struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (p *countingProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (p *countingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return nil, p.err
	}
	return []float32{float32(len(text))}, nil
}

func (p *countingProvider) Dimension() int { return 1 }
func (p *countingProvider) Close() error   { return nil }

func TestNewCachedProvider_Disabled(t *testing.T) {
	inner := &countingProvider{}
	p, err := NewCachedProvider(inner, 0, nil)
	require.NoError(t, err)
	assert.Same(t, inner, p)
}

func TestCachedProvider_Hit(t *testing.T) {
	inner := &countingProvider{}
	p, err := NewCachedProvider(inner, 8, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		vec, err := p.EmbedQuery(context.Background(), "fc 80")
		require.NoError(t, err)
		assert.Equal(t, []float32{5}, vec)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, p.Dimension())
}

func TestCachedProvider_ReturnsCopies(t *testing.T) {
	p, err := NewCachedProvider(&countingProvider{}, 8, nil)
	require.NoError(t, err)

	vec, err := p.EmbedQuery(context.Background(), "abc")
	require.NoError(t, err)
	vec[0] = 99

	again, err := p.EmbedQuery(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, again)
}

func TestCachedProvider_Eviction(t *testing.T) {
	inner := &countingProvider{}
	p, err := NewCachedProvider(inner, 1, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = p.EmbedQuery(ctx, "a")
	_, _ = p.EmbedQuery(ctx, "b")
	_, _ = p.EmbedQuery(ctx, "a")
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, 1, p.(*CachedProvider).Len())
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("boom")}
	p, err := NewCachedProvider(inner, 8, nil)
	require.NoError(t, err)

	_, err = p.EmbedQuery(context.Background(), "x")
	require.Error(t, err)
	_, err = p.EmbedQuery(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedProvider_ConcurrentQueriesShareCall(t *testing.T) {
	inner := &countingProvider{delay: 50 * time.Millisecond}
	p, err := NewCachedProvider(inner, 8, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := p.EmbedQuery(context.Background(), "pupilas reactivas")
			assert.NoError(t, err)
			assert.Equal(t, []float32{17}, vec)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, inner.calls.Load(), int32(2))
}
