package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/notaclin/internal/vectorstore"
)

var _ vectorstore.Embedder = (*TEIClient)(nil)

func TestTEIConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		cfg     TEIConfig
		wantErr string
	}{
		"plain http":     {cfg: TEIConfig{BaseURL: "http://localhost:8080", Model: DefaultModel}},
		"trailing slash": {cfg: TEIConfig{BaseURL: "https://tei.internal/", APIKey: "secret"}},
		"no url":         {cfg: TEIConfig{Model: "m"}, wantErr: "base URL required"},
		"ftp":            {cfg: TEIConfig{BaseURL: "ftp://tei"}, wantErr: "http or https"},
		"no host":        {cfg: TEIConfig{BaseURL: "http://"}, wantErr: "http or https"},
		"negative":       {cfg: TEIConfig{BaseURL: "http://tei", Timeout: -1}, wantErr: "negative"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// fakeTEI answers /embed with one vector per input whose first component is
// the input length. A non-200 status is sent with a TEI error body.
func fakeTEI(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"model overloaded","error_type":"Overloaded"}`))
			return
		}

		var req struct {
			Inputs   json.RawMessage `json:"inputs"`
			Truncate bool            `json:"truncate"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.True(t, req.Truncate)

		var inputs []string
		if json.Unmarshal(req.Inputs, &inputs) != nil {
			var one string
			assert.NoError(t, json.Unmarshal(req.Inputs, &one))
			inputs = []string{one}
		}
		out := make([][]float32, len(inputs))
		for i, in := range inputs {
			out[i] = []float32{float32(len(in)), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTEI(t *testing.T, cfg TEIConfig) *TEIClient {
	t.Helper()
	c, err := NewTEIClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTEIClient_Embed(t *testing.T) {
	c := newTEI(t, TEIConfig{BaseURL: fakeTEI(t, http.StatusOK).URL + "/", Model: DefaultModel})
	ctx := context.Background()

	vectors, err := c.EmbedDocuments(ctx, []string{"ab", "abcd"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(2), vectors[0][0])
	assert.Equal(t, float32(4), vectors[1][0])

	vec, err := c.EmbedQuery(ctx, "marcha estable")
	require.NoError(t, err)
	assert.Equal(t, []float32{float32(len("marcha estable")), 1, 0}, vec)

	assert.Equal(t, 384, c.Dimension())
}

func TestTEIClient_EmptyInput(t *testing.T) {
	c := newTEI(t, TEIConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := c.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = c.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTEIClient_ServerError(t *testing.T) {
	c := newTEI(t, TEIConfig{BaseURL: fakeTEI(t, http.StatusServiceUnavailable).URL})

	_, err := c.EmbedQuery(context.Background(), "fc 80")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.ErrorContains(t, err, "tei status 503: model overloaded (Overloaded)")
}

func TestTEIClient_PlainErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := newTEI(t, TEIConfig{BaseURL: srv.URL})

	_, err := c.EmbedQuery(context.Background(), "fc 80")
	assert.ErrorContains(t, err, "tei status 502: bad gateway")
}

func TestTEIClient_VectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[0.1,0.2]]`))
	}))
	t.Cleanup(srv.Close)
	c := newTEI(t, TEIConfig{BaseURL: srv.URL})

	_, err := c.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.ErrorContains(t, err, "1 vectors for 2 texts")
}

func TestTEIClient_Unreachable(t *testing.T) {
	srv := fakeTEI(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	c := newTEI(t, TEIConfig{BaseURL: url})
	_, err := c.EmbedDocuments(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestTEIClient_BearerToken(t *testing.T) {
	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[[0.1,0.2]]`))
	}))
	t.Cleanup(srv.Close)
	c := newTEI(t, TEIConfig{BaseURL: srv.URL, APIKey: "tok"})

	_, err := c.EmbedQuery(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", <-auth)
}
