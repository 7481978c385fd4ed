//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initONNXEnvironment loads the shared library once per process.
func initONNXEnvironment(ctx context.Context) error {
	ortInitOnce.Do(func() {
		path, err := EnsureONNXRuntime(ctx)
		if err != nil {
			ortInitErr = err
			return
		}
		ort.SetSharedLibraryPath(path)
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXProvider runs an exported sentence-transformers model in-process and
// mean-pools its token embeddings.
//
// A session is created per text because sequence length varies.
type ONNXProvider struct {
	cfg  ONNXConfig
	tk   *tokenizer.Tokenizer
	tkMu sync.Mutex
}

// NewONNXProvider loads the tokenizer and initializes the ONNX runtime.
func NewONNXProvider(cfg ONNXConfig) (*ONNXProvider, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading tokenizer: %v", ErrInvalidConfig, err)
	}

	if err := initONNXEnvironment(context.Background()); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	return &ONNXProvider{cfg: cfg, tk: tk}, nil
}

// EmbedDocuments embeds texts one at a time.
func (p *ONNXProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := checkTexts(texts); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := p.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

// EmbedQuery embeds a single text.
func (p *ONNXProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.encode(text)
}

// tokenize returns ids, attention mask and token types, truncated to
// MaxLength while keeping the closing special token.
func (p *ONNXProvider) tokenize(text string) (ids, mask, types []int64, err error) {
	p.tkMu.Lock()
	enc, err := p.tk.EncodeSingle(text, true)
	p.tkMu.Unlock()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: tokenizing: %v", ErrEmbeddingFailed, err)
	}

	n := len(enc.Ids)
	if n == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no tokens", ErrEmbeddingFailed)
	}
	ids = make([]int64, n)
	mask = make([]int64, n)
	types = make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(enc.Ids[i])
		mask[i] = 1
		if i < len(enc.AttentionMask) {
			mask[i] = int64(enc.AttentionMask[i])
		}
		if i < len(enc.TypeIds) {
			types[i] = int64(enc.TypeIds[i])
		}
	}

	if limit := p.cfg.MaxLength; n > limit {
		last := ids[n-1]
		ids, mask, types = ids[:limit], mask[:limit], types[:limit]
		ids[limit-1] = last
	}
	return ids, mask, types, nil
}

func (p *ONNXProvider) encode(text string) ([]float32, error) {
	ids, mask, types, err := p.tokenize(text)
	if err != nil {
		return nil, err
	}
	seq := int64(len(ids))
	shape := ort.NewShape(1, seq)

	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: input tensor: %v", ErrEmbeddingFailed, err)
	}
	defer idsT.Destroy()

	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("%w: mask tensor: %v", ErrEmbeddingFailed, err)
	}
	defer maskT.Destroy()

	inputs := []ort.ArbitraryTensor{idsT, maskT}
	if len(p.cfg.InputNames) == 3 {
		typesT, err := ort.NewTensor(shape, types)
		if err != nil {
			return nil, fmt.Errorf("%w: token type tensor: %v", ErrEmbeddingFailed, err)
		}
		defer typesT.Destroy()
		inputs = append(inputs, typesT)
	}

	outT, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seq, int64(p.cfg.Dimension)))
	if err != nil {
		return nil, fmt.Errorf("%w: output tensor: %v", ErrEmbeddingFailed, err)
	}
	defer outT.Destroy()

	session, err := ort.NewAdvancedSession(p.cfg.ModelPath,
		p.cfg.InputNames, []string{p.cfg.OutputName},
		inputs, []ort.ArbitraryTensor{outT}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating session: %v", ErrEmbeddingFailed, err)
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("%w: running model: %v", ErrEmbeddingFailed, err)
	}

	return meanPool(outT.GetData(), mask, p.cfg.Dimension), nil
}

// Dimension returns the model hidden size.
func (p *ONNXProvider) Dimension() int {
	return p.cfg.Dimension
}

// Close is a no-op; sessions are released after every call and the runtime
// environment lives for the process.
func (p *ONNXProvider) Close() error {
	return nil
}
