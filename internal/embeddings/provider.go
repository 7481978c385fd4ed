package embeddings

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notaclin/internal/vectorstore"
)

// Backends accepted in ProviderConfig.Provider.
const (
	ProviderTEI       = "tei"
	ProviderONNX      = "onnx"
	ProviderFastEmbed = "fastembed"
	ProviderOpenAI    = "openai"
)

// DefaultModel is a multilingual sentence-transformers model that handles
// Spanish clinical text.
const DefaultModel = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"

// Provider is an Embedder with a fixed vector size and resources to free.
type Provider interface {
	vectorstore.Embedder
	Dimension() int
	Close() error
}

// ProviderConfig selects and configures one backend. Fields a backend does
// not use are ignored.
type ProviderConfig struct {
	Provider string
	Model    string

	// tei and openai
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// onnx
	ModelPath     string
	TokenizerPath string

	// onnx and fastembed
	MaxLength int

	// fastembed
	CacheDir     string
	ShowProgress bool

	// Logger receives instrument registration warnings. Nil discards them.
	Logger *zap.Logger
}

var backends = map[string]func(ProviderConfig) (Provider, error){
	ProviderTEI: func(c ProviderConfig) (Provider, error) {
		return NewTEIClient(TEIConfig{BaseURL: c.BaseURL, Model: c.Model, APIKey: c.APIKey, Timeout: c.Timeout})
	},
	ProviderONNX: func(c ProviderConfig) (Provider, error) {
		return NewONNXProvider(ONNXConfig{
			Model:         c.Model,
			ModelPath:     c.ModelPath,
			TokenizerPath: c.TokenizerPath,
			MaxLength:     c.MaxLength,
			Dimension:     modelDimension(c.Model),
		})
	},
	ProviderFastEmbed: func(c ProviderConfig) (Provider, error) {
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:        c.Model,
			CacheDir:     c.CacheDir,
			MaxLength:    c.MaxLength,
			ShowProgress: c.ShowProgress,
		})
	},
	ProviderOpenAI: func(c ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(OpenAIConfig{BaseURL: c.BaseURL, Model: c.Model, APIKey: c.APIKey})
	},
}

// NewProvider builds the configured backend, tei when none is named, and
// wraps it so every call is measured.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderTEI
	}
	build, ok := backends[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
		if cfg.Provider == ProviderFastEmbed {
			cfg.Model = defaultFastEmbedModel
		}
	}

	p, err := build(cfg)
	if err != nil {
		return nil, err
	}
	return instrument(p, cfg.Model, NewMetrics(cfg.Logger)), nil
}

var modelDimensions = map[string]int{
	DefaultModel: 384,
	"sentence-transformers/paraphrase-multilingual-mpnet-base-v2": 768,
	"intfloat/multilingual-e5-small":                              384,
	"intfloat/multilingual-e5-base":                               768,
	"intfloat/multilingual-e5-large":                              1024,
	"text-embedding-3-small":                                      1536,
	"text-embedding-3-large":                                      3072,
	"text-embedding-ada-002":                                      1536,
}

// modelDimension returns the vector size of model: from the tables when it
// is listed, otherwise guessed from its size suffix (large 1024, base 768,
// anything else 384).
func modelDimension(model string) int {
	if dim, ok := modelDimensions[model]; ok {
		return dim
	}
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	switch lower := strings.ToLower(model); {
	case strings.Contains(lower, "large"):
		return 1024
	case strings.Contains(lower, "base"):
		return 768
	}
	return 384
}
