package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notaclin/internal/extraction"
	"github.com/fyrsmithlabs/notaclin/internal/logging"
)

// stubMatcher returns fixed candidates or an error.
type stubMatcher struct {
	candidates []extraction.Candidate
	err        error
}

func (m *stubMatcher) Match(_ context.Context, _ string) ([]extraction.Candidate, error) {
	return m.candidates, m.err
}

// recordingAnalyzer captures the context and text it was called with.
type recordingAnalyzer struct {
	ctx  context.Context
	text string
}

func (a *recordingAnalyzer) Analyze(ctx context.Context, text string) (*extraction.Analysis, error) {
	a.ctx = ctx
	a.text = text
	return &extraction.Analysis{Results: []extraction.Result{}}, nil
}

type fixedAnchors map[string]int

func (f fixedAnchors) Families() map[string]int { return f }

func setupTestServer(t *testing.T, matcher extraction.Matcher, opts ...Option) *Server {
	t.Helper()
	server, err := NewServer(extraction.NewAnalyzer(matcher), zap.NewNop(), nil, opts...)
	require.NoError(t, err)
	return server
}

func doRequest(s *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decodeAnalysis(t *testing.T, rec *httptest.ResponseRecorder) extraction.Analysis {
	t.Helper()
	var resp extraction.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestNewServer(t *testing.T) {
	analyzer := extraction.NewAnalyzer(nil)

	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{Host: "127.0.0.1", Port: 5001}

		server, err := NewServer(analyzer, zap.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server.echo)
		assert.Equal(t, cfg, server.config)
		assert.Equal(t, "127.0.0.1:5001", server.Addr())
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(analyzer, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 5000, server.config.Port)
		assert.Equal(t, "1M", server.config.BodyLimit)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(analyzer, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when analyzer is nil", func(t *testing.T) {
		_, err := NewServer(nil, zap.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "analyzer cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	server := setupTestServer(t, nil)

	rec := doRequest(server, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleAnalyze(t *testing.T) {
	neuro := &stubMatcher{candidates: []extraction.Candidate{
		{Field: extraction.FieldPupilas, Value: "Isocóricas y reactivas", Score: 0.70712},
	}}

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		want        []extraction.Result
	}{
		{
			name:        "vitals and neuro",
			path:        "/api/v1/analyze",
			contentType: echo.MIMEApplicationJSON,
			body:        `{"text": "Paciente de 45 años, TA 120/80, pupilas isocóricas"}`,
			want: []extraction.Result{
				{Field: extraction.FieldEdad, Value: "45", Score: 0.99},
				{Field: extraction.FieldTA, Value: "120/80", Score: 0.98},
				{Field: extraction.FieldPupilas, Value: "Isocóricas y reactivas", Score: 0.707},
			},
		},
		{
			name:        "legacy path",
			path:        "/analyze",
			contentType: echo.MIMEApplicationJSON,
			body:        `{"text": "fc 80"}`,
			want: []extraction.Result{
				{Field: extraction.FieldFC, Value: "80", Score: 0.98},
				{Field: extraction.FieldPupilas, Value: "Isocóricas y reactivas", Score: 0.707},
			},
		},
		{
			name:        "empty text",
			path:        "/api/v1/analyze",
			contentType: echo.MIMEApplicationJSON,
			body:        `{"text": ""}`,
			want:        []extraction.Result{},
		},
		{
			name:        "missing text",
			path:        "/api/v1/analyze",
			contentType: echo.MIMEApplicationJSON,
			body:        `{}`,
			want:        []extraction.Result{},
		},
		{
			name:        "malformed json",
			path:        "/api/v1/analyze",
			contentType: echo.MIMEApplicationJSON,
			body:        `{"text": `,
			want:        []extraction.Result{},
		},
		{
			name:        "non-string text",
			path:        "/api/v1/analyze",
			contentType: echo.MIMEApplicationJSON,
			body:        `{"text": 42}`,
			want:        []extraction.Result{},
		},
		{
			name:        "not json",
			path:        "/api/v1/analyze",
			contentType: echo.MIMETextPlain,
			body:        `fc 80`,
			want:        []extraction.Result{},
		},
		{
			name: "no body",
			path: "/api/v1/analyze",
			want: []extraction.Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t, neuro)

			rec := doRequest(server, http.MethodPost, tt.path, tt.contentType, tt.body)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decodeAnalysis(t, rec)
			assert.Equal(t, tt.want, resp.Results)
		})
	}
}

func TestHandleAnalyze_EmptyRendersEmptyArray(t *testing.T) {
	server := setupTestServer(t, nil)

	rec := doRequest(server, http.MethodPost, "/api/v1/analyze", echo.MIMEApplicationJSON, `{"text": "   "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestHandleAnalyze_SemanticFailure(t *testing.T) {
	server := setupTestServer(t, &stubMatcher{err: errors.New("embedding backend down")})

	rec := doRequest(server, http.MethodPost, "/api/v1/analyze", echo.MIMEApplicationJSON, `{"text": "fc 80"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "analysis failed")
	assert.NotContains(t, rec.Body.String(), "embedding backend down")
}

func TestHandleAnalyze_CorrelationIDs(t *testing.T) {
	analyzer := &recordingAnalyzer{}
	server, err := NewServer(analyzer, zap.NewNop(), nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		strings.NewReader(`{"text": "fc 80", "note_id": "note_7"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req_abc")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fc 80", analyzer.text)
	assert.Equal(t, "req_abc", logging.RequestIDFromContext(analyzer.ctx))
	assert.Equal(t, "note_7", logging.NoteIDFromContext(analyzer.ctx))
	assert.Equal(t, "req_abc", rec.Header().Get(echo.HeaderXRequestID))
}

func TestHandleAnalyze_GeneratesRequestID(t *testing.T) {
	analyzer := &recordingAnalyzer{}
	server, err := NewServer(analyzer, zap.NewNop(), nil)
	require.NoError(t, err)

	rec := doRequest(server, http.MethodPost, "/api/v1/analyze", echo.MIMEApplicationJSON, `{"text": "x", "note_id": "bad id"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, id, 36)
	assert.Equal(t, id, logging.RequestIDFromContext(analyzer.ctx))
	assert.Empty(t, logging.NoteIDFromContext(analyzer.ctx))
}

func TestHandleFields(t *testing.T) {
	server := setupTestServer(t, nil)

	rec := doRequest(server, http.MethodGet, "/api/v1/fields", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp FieldsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, len(extraction.Fields()))
	assert.Equal(t, extraction.FieldEdad, resp.Fields[0].Key)
	assert.Equal(t, extraction.FamilyVital, resp.Fields[0].Family)
	assert.Equal(t, extraction.FieldMening, resp.Fields[len(resp.Fields)-1].Key)
}

func TestHandleStatus(t *testing.T) {
	t.Run("semantic enabled", func(t *testing.T) {
		server := setupTestServer(t, nil,
			WithVersion("1.0.0"),
			WithAnchorCounter(fixedAnchors{"vital": 9, "neuro": 7}))

		rec := doRequest(server, http.MethodGet, "/api/v1/status", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "1.0.0", resp.Version)
		assert.Equal(t, "ok", resp.Services["semantic"])
		assert.Equal(t, map[string]int{"vital": 9, "muscle": 10, "neuro": 7}, resp.Counts.Fields)
		assert.Equal(t, map[string]int{"vital": 9, "neuro": 7}, resp.Counts.Anchors)
	})

	t.Run("semantic disabled", func(t *testing.T) {
		server := setupTestServer(t, nil)

		rec := doRequest(server, http.MethodGet, "/api/v1/status", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "disabled", resp.Services["semantic"])
		assert.Nil(t, resp.Counts.Anchors)
	})
}

func TestServer_BodyLimit(t *testing.T) {
	server, err := NewServer(extraction.NewAnalyzer(nil), zap.NewNop(), &Config{BodyLimit: "1K"})
	require.NoError(t, err)

	body := `{"text": "` + strings.Repeat("a", 2048) + `"}`
	rec := doRequest(server, http.MethodPost, "/api/v1/analyze", echo.MIMEApplicationJSON, body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_RateLimit(t *testing.T) {
	server, err := NewServer(extraction.NewAnalyzer(nil), zap.NewNop(), &Config{RateLimit: 0.001, RateBurst: 1})
	require.NoError(t, err)

	first := doRequest(server, http.MethodGet, "/api/v1/fields", "", "")
	second := doRequest(server, http.MethodGet, "/api/v1/fields", "", "")
	health := doRequest(server, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestServer_CORS(t *testing.T) {
	server, err := NewServer(extraction.NewAnalyzer(nil), zap.NewNop(), &Config{
		CORSOrigins: []string{"https://clinic.example"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set(echo.HeaderOrigin, "https://clinic.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://clinic.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestServer_HTTPMetrics(t *testing.T) {
	reader := metric.NewManualReader()
	m := newHTTPMetrics(metric.NewMeterProvider(metric.WithReader(reader)).Meter("test"), zap.NewNop())

	server := setupTestServer(t, nil, WithHTTPMetrics(m))
	doRequest(server, http.MethodPost, "/api/v1/analyze", echo.MIMEApplicationJSON, `{"text": "fc 80"}`)

	requests, ok := collect(t, reader)["notaclin.http.requests_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, requests.DataPoints, 1)
	dp := requests.DataPoints[0]
	assert.EqualValues(t, 1, dp.Value)
	route, _ := dp.Attributes.Value("route")
	assert.Equal(t, "/api/v1/analyze", route.AsString())
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	server := setupTestServer(t, nil)
	assert.NoError(t, server.Shutdown(context.Background()))
}
