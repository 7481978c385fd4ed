package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds one request to a remote embedding server.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4 << 10

// TEIConfig configures a Text Embeddings Inference client.
type TEIConfig struct {
	// BaseURL of the TEI server, e.g. http://localhost:8080.
	BaseURL string
	// Model served by TEI. Only used to derive the dimension.
	Model string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout per request; zero selects DefaultTimeout.
	Timeout time.Duration
}

func (c TEIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: tei base URL required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: tei base URL must be an http or https URL: %q", ErrInvalidConfig, c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative tei timeout", ErrInvalidConfig)
	}
	return nil
}

// TEIClient calls the /embed endpoint of a TEI server.
type TEIClient struct {
	endpoint  string
	apiKey    string
	dimension int
	http      *http.Client
}

func NewTEIClient(cfg TEIConfig) (*TEIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	u, _ := url.Parse(cfg.BaseURL)
	return &TEIClient{
		endpoint:  u.JoinPath("embed").String(),
		apiKey:    cfg.APIKey,
		dimension: modelDimension(cfg.Model),
		http:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *TEIClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := checkTexts(texts); err != nil {
		return nil, err
	}
	vectors, err := c.post(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: tei returned %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *TEIClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	vectors, err := c.post(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: tei returned %d vectors for one query", ErrEmbeddingFailed, len(vectors))
	}
	return vectors[0], nil
}

func (c *TEIClient) Dimension() int { return c.dimension }

func (c *TEIClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// teiError is the body TEI sends with non-200 responses.
type teiError struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// post sends inputs, a string or a []string, with truncation enabled.
func (c *TEIClient) post(ctx context.Context, inputs any) ([][]float32, error) {
	payload, err := json.Marshal(map[string]any{"inputs": inputs, "truncate": true})
	if err != nil {
		return nil, fmt.Errorf("encoding tei request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building tei request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, backendError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var te teiError
		if json.Unmarshal(body, &te) == nil && te.Error != "" {
			return nil, fmt.Errorf("%w: tei status %d: %s (%s)", ErrEmbeddingFailed, resp.StatusCode, te.Error, te.ErrorType)
		}
		return nil, fmt.Errorf("%w: tei status %d: %s", ErrEmbeddingFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decoding tei response: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}
