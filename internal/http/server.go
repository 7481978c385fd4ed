// Package http provides the HTTP API for notaclin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/notaclin/internal/extraction"
	"github.com/fyrsmithlabs/notaclin/internal/logging"
)

// Server provides HTTP endpoints for notaclin.
type Server struct {
	echo     *echo.Echo
	analyzer extraction.NoteAnalyzer
	logger   *zap.Logger
	config   *Config

	version string
	anchors AnchorCounter
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// CORSOrigins lists allowed origins; empty allows none.
	CORSOrigins []string
	// BodyLimit uses echo's size notation ("1M"); empty disables the limit.
	BodyLimit string
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by /api/v1/status.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithAnchorCounter exposes anchor index sizes on /api/v1/status.
func WithAnchorCounter(c AnchorCounter) Option {
	return func(s *Server) {
		s.anchors = c
	}
}

// WithHTTPMetrics records otel request metrics.
func WithHTTPMetrics(m *HTTPMetrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a new HTTP server.
func NewServer(analyzer extraction.NoteAnalyzer, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:        "localhost",
			Port:        5000,
			CORSOrigins: []string{"*"},
			BodyLimit:   "1M",
		}
	}

	s := &Server{
		echo:     echo.New(),
		analyzer: analyzer,
		logger:   logger,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.registerMiddleware()
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerMiddleware() {
	e := s.echo
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			// Client-supplied IDs are only propagated when well formed.
			if logging.ValidID(id) {
				req := c.Request()
				c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
			}
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := append(logging.ContextFields(c.Request().Context()),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			s.logger.Info("http request", fields...)

			return nil
		}
	})
	if s.metrics != nil {
		e.Use(s.metrics.MetricsMiddleware())
	}
	if len(s.config.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.config.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID},
		}))
	}
	if s.config.BodyLimit != "" {
		e.Use(middleware.BodyLimit(s.config.BodyLimit))
	}
	if s.config.RateLimit > 0 {
		store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.config.RateLimit),
			Burst:     s.config.RateBurst,
			ExpiresIn: 3 * time.Minute,
		})
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/health"
			},
			Store: store,
		}))
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	// Front-ends written against the first release post to /analyze.
	s.echo.POST("/analyze", s.handleAnalyze)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.handleAnalyze)
	v1.GET("/fields", s.handleFields)
	v1.GET("/status", s.handleStatus)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAnalyze extracts observations from the note in the request body.
// A missing, malformed or non-string text is analyzed as an empty note.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Debug("unreadable analyze request, treating as empty", zap.Error(err))
		req = AnalyzeRequest{}
	}

	ctx := c.Request().Context()
	if req.NoteID != "" && logging.ValidID(req.NoteID) {
		ctx = logging.WithNoteID(ctx, req.NoteID)
	}

	analysis, err := s.analyzer.Analyze(ctx, req.Text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return echo.NewHTTPError(499, "request canceled")
		}
		s.logger.Error("analysis failed", append(logging.ContextFields(ctx), zap.Error(err))...)
		return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed")
	}

	s.logger.Debug("note analyzed", append(logging.ContextFields(ctx),
		zap.String("text", req.Text),
		zap.Int("results", len(analysis.Results)),
		zap.Any("value", analysis.Results),
	)...)

	return c.JSON(http.StatusOK, analysis)
}

// handleFields lists the field catalog.
func (s *Server) handleFields(c echo.Context) error {
	return c.JSON(http.StatusOK, FieldsResponse{Fields: extraction.Fields()})
}

// handleStatus reports the service configuration at a glance.
func (s *Server) handleStatus(c echo.Context) error {
	semantic := "disabled"
	if s.anchors != nil {
		semantic = "ok"
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: s.version,
		Services: map[string]string{
			"rules":    "ok",
			"semantic": semantic,
		},
		Counts: StatusCounts{
			Fields:  countFields(extraction.Fields()),
			Anchors: countAnchors(s.anchors),
		},
	})
}

// Echo exposes the router so the daemon can mount extra endpoints such as
// /metrics.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	host := strings.TrimSpace(s.config.Host)
	return fmt.Sprintf("%s:%d", host, s.config.Port)
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.Addr()))
	return s.echo.Start(s.Addr())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
