//go:build cgo

package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFastEmbed(t *testing.T) *FastEmbedProvider {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping FastEmbed test in short mode")
	}
	if GetONNXLibraryPath() == "" {
		t.Skip("ONNX runtime not available, run 'ncl init' or set ONNX_PATH")
	}
	provider, err := NewFastEmbedProvider(FastEmbedConfig{Model: "BAAI/bge-small-en-v1.5"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestNewFastEmbedProvider_UnknownModel(t *testing.T) {
	_, err := NewFastEmbedProvider(FastEmbedConfig{Model: "unknown-model"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFastEmbedProvider_EmbedDocuments(t *testing.T) {
	provider := requireFastEmbed(t)
	ctx := context.Background()

	vectors, err := provider.EmbedDocuments(ctx, []string{"blood pressure", "gait is stable", "pupils reactive"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Len(t, vectors[0], provider.Dimension())

	_, err = provider.EmbedDocuments(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestFastEmbedProvider_EmbedQuery(t *testing.T) {
	provider := requireFastEmbed(t)
	ctx := context.Background()

	vector, err := provider.EmbedQuery(ctx, "stable gait")
	require.NoError(t, err)
	assert.Len(t, vector, 384)

	_, err = provider.EmbedQuery(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestFastEmbedModels(t *testing.T) {
	for name, model := range fastEmbedModels {
		t.Run(name, func(t *testing.T) {
			dim, ok := fastEmbedModelDimension(string(model))
			assert.True(t, ok)
			assert.Equal(t, fastEmbedDimensions[name], dim)
		})
	}
}

func TestFastEmbedProvider_Closed(t *testing.T) {
	provider := requireFastEmbed(t)
	require.NoError(t, provider.Close())
	require.NoError(t, provider.Close())

	_, err := provider.EmbedQuery(context.Background(), "pupilas")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
