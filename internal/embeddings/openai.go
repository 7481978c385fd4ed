package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// defaultOpenAIBaseURL is used when OpenAIConfig.BaseURL is empty.
const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIConfig configures the OpenAI-compatible provider.
type OpenAIConfig struct {
	// BaseURL of the /embeddings API. Defaults to the OpenAI API.
	BaseURL string
	// Model is the embedding model name.
	Model string
	// APIKey is required for the OpenAI API and optional for self-hosted
	// compatible servers.
	APIKey string
}

// Validate checks the configuration.
func (c OpenAIConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if (c.BaseURL == "" || c.BaseURL == defaultOpenAIBaseURL) && c.APIKey == "" {
		return fmt.Errorf("%w: api key required for the OpenAI API", ErrInvalidConfig)
	}
	return nil
}

// OpenAIProvider generates embeddings through langchaingo's OpenAI client.
type OpenAIProvider struct {
	embedder  *lcembeddings.EmbedderImpl
	dimension int
}

// NewOpenAIProvider creates a provider for any OpenAI-compatible endpoint.
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultOpenAIBaseURL
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token even when the server ignores it
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIProvider{
		embedder:  embedder,
		dimension: modelDimension(config.Model),
	}, nil
}

// EmbedDocuments embeds texts in one request.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := checkTexts(texts); err != nil {
		return nil, err
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, backendError(err)
	}
	return vectors, nil
}

func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, backendError(err)
	}
	return vector, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op; the client holds no resources.
func (p *OpenAIProvider) Close() error {
	return nil
}
