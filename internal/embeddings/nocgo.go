//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// Without cgo only the remote providers (tei, openai) work. The local ones
// keep their constructors so configuration errors still surface first.
var (
	ErrONNXNotAvailable      = errors.New("onnx: binary built without cgo, use the tei or openai provider")
	ErrFastEmbedNotAvailable = errors.New("fastembed: binary built without cgo, use the tei or openai provider")
)

type unavailable struct{ err error }

func (u unavailable) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, u.err
}

func (u unavailable) EmbedQuery(context.Context, string) ([]float32, error) { return nil, u.err }

func (unavailable) Dimension() int { return 0 }

func (unavailable) Close() error { return nil }

type ONNXProvider struct{ unavailable }

func NewONNXProvider(cfg ONNXConfig) (*ONNXProvider, error) {
	if err := cfg.withDefaults().Validate(); err != nil {
		return nil, err
	}
	return nil, ErrONNXNotAvailable
}

type FastEmbedProvider struct{ unavailable }

func NewFastEmbedProvider(FastEmbedConfig) (*FastEmbedProvider, error) {
	return nil, ErrFastEmbedNotAvailable
}
