//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// fastEmbedBatchSize is the number of passages fastembed encodes per run.
const fastEmbedBatchSize = 64

// fastEmbedModels maps HuggingFace names to fastembed catalog constants.
// The fast-* names are accepted as they are.
var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// FastEmbedProvider embeds with a fastembed-go catalog model. The catalog
// is English-centric, so Spanish notes match better with the onnx or tei
// providers.
type FastEmbedProvider struct {
	mu        sync.RWMutex
	model     *fastembed.FlagEmbedding
	dimension int
}

// NewFastEmbedProvider locates or downloads the ONNX runtime and then the
// model files.
func NewFastEmbedProvider(cfg FastEmbedConfig) (*FastEmbedProvider, error) {
	cfg = cfg.withDefaults()
	model, ok := fastEmbedModels[cfg.Model]
	if !ok {
		model = fastembed.EmbeddingModel(cfg.Model)
	}
	dimension, known := fastEmbedModelDimension(string(model))
	if !known {
		return nil, fmt.Errorf("%w: unsupported fastembed model %q", ErrInvalidConfig, cfg.Model)
	}

	if _, err := EnsureONNXRuntime(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &cfg.ShowProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("loading fastembed model %s: %w", cfg.Model, err)
	}
	return &FastEmbedProvider{model: flag, dimension: dimension}, nil
}

// EmbedDocuments embeds texts as passages.
func (p *FastEmbedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := checkTexts(texts); err != nil {
		return nil, err
	}
	var out [][]float32
	err := p.withModel(ctx, func(m *fastembed.FlagEmbedding) (err error) {
		out, err = m.PassageEmbed(texts, fastEmbedBatchSize)
		return err
	})
	return out, err
}

// EmbedQuery embeds text with the query prefix.
func (p *FastEmbedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	var out []float32
	err := p.withModel(ctx, func(m *fastembed.FlagEmbedding) (err error) {
		out, err = m.QueryEmbed(text)
		return err
	})
	return out, err
}

// withModel runs fn unless ctx is done or the provider was closed.
func (p *FastEmbedProvider) withModel(ctx context.Context, fn func(*fastembed.FlagEmbedding) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.model == nil {
		return fmt.Errorf("%w: provider closed", ErrEmbeddingFailed)
	}
	return backendError(fn(p.model))
}

func (p *FastEmbedProvider) Dimension() int { return p.dimension }

// Close releases the model. Later calls fail.
func (p *FastEmbedProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return nil
	}
	err := p.model.Destroy()
	p.model = nil
	return err
}
