// Notaclind is the notaclin daemon. It extracts structured observations
// from Spanish clinical notes and serves them over HTTP, or over MCP on
// stdio when started with -mcp.
//
// Configuration is read from ~/.config/notaclin/config.yaml (or the file
// given with -config) and NOTACLIN_* environment variables. See
// internal/config for details.
//
// Usage:
//
//	# Start the HTTP server with defaults
//	notaclind
//
//	# Rules only, no embedding server needed
//	NOTACLIN_EXTRACTION_SEMANTIC_ENABLED=false notaclind
//
//	# Serve MCP tools on stdio
//	notaclind -mcp
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notaclin/internal/config"
	"github.com/fyrsmithlabs/notaclin/internal/embeddings"
	"github.com/fyrsmithlabs/notaclin/internal/extraction"
	httpserver "github.com/fyrsmithlabs/notaclin/internal/http"
	"github.com/fyrsmithlabs/notaclin/internal/logging"
	"github.com/fyrsmithlabs/notaclin/internal/mcp"
	"github.com/fyrsmithlabs/notaclin/internal/telemetry"
	"github.com/fyrsmithlabs/notaclin/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// options are the command-line settings of one daemon run.
type options struct {
	configPath string
	mcp        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/notaclin/config.yaml)")
	flag.BoolVar(&opts.mcp, "mcp", false, "serve MCP tools on stdio instead of HTTP")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  notaclind [-config file] [-mcp]   Start the daemon\n")
			fmt.Fprintf(os.Stderr, "  notaclind version                 Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The standard logger writes to stderr, so it is safe in MCP mode too.
	if err := run(ctx, opts); err != nil {
		log.Fatalf("notaclind: %v", err)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("notaclind by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the daemon and blocks until ctx is canceled:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Builds the analyzer, embedding the anchor phrases when semantic
//     matching is enabled
//  4. Serves HTTP or MCP stdio
func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logger, err := initLogger(cfg.Logging, tel, opts.mcp)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zl := logger.Zap()

	if health := tel.Health(); health.Degraded {
		zl.Warn("telemetry degraded", zap.String("reason", health.Reason))
	}

	zl.Info("starting notaclind",
		zap.String("version", version),
		zap.Bool("mcp", opts.mcp),
		zap.Bool("semantic", cfg.Extraction.SemanticEnabled),
		zap.Float64("similarity_threshold", cfg.Extraction.SimilarityThreshold))

	deps, err := initAnalyzer(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer deps.Close()

	if opts.mcp {
		return runMCP(ctx, deps, zl)
	}
	return runHTTP(ctx, cfg, deps, zl)
}

// initLogger builds the application logger. In MCP mode stdout carries the
// protocol, so logs go to stderr.
func initLogger(s config.LoggingConfig, tel *telemetry.Telemetry, mcpMode bool) (*logging.Logger, error) {
	lc, err := logging.FromSettings(s)
	if err != nil {
		return nil, err
	}
	if mcpMode {
		lc.Console = logging.ConsoleStderr
	}

	var lp otellog.LoggerProvider
	if tel.IsEnabled() {
		lp = tel.LoggerProvider()
		if lp == nil {
			lp = global.GetLoggerProvider()
		}
		lc.OTEL = true
	}
	return logging.NewLogger(lc, lp)
}

// dependencies holds the analyzer and what it owns.
type dependencies struct {
	analyzer *extraction.Analyzer
	index    *vectorstore.AnchorIndex
	provider embeddings.Provider
}

// Close releases the embedding provider.
func (d *dependencies) Close() {
	if d.provider != nil {
		_ = d.provider.Close()
	}
}

// initAnalyzer builds the analyzer. The embedding provider and anchor index
// are only created when semantic matching is enabled; a failure there is
// fatal because the neuro fields would silently disappear otherwise.
func initAnalyzer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	opts := []extraction.Option{
		extraction.WithLogger(logger),
		extraction.WithMetrics(extraction.NewMetrics(logger)),
	}

	if !cfg.Extraction.SemanticEnabled {
		logger.Info("semantic matching disabled, neuro fields will not be reported")
		return &dependencies{analyzer: extraction.NewAnalyzer(nil, opts...)}, nil
	}

	e := cfg.Embeddings
	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:      e.Provider,
		Model:         e.Model,
		BaseURL:       e.BaseURL,
		APIKey:        e.APIKey.Value(),
		CacheDir:      expandHome(e.CacheDir),
		ModelPath:     expandHome(e.ModelPath),
		TokenizerPath: expandHome(e.TokenizerPath),
		MaxLength:     e.MaxLength,
		Timeout:       e.Timeout.Duration(),
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	deps := &dependencies{provider: provider}

	cached, err := embeddings.NewCachedProvider(provider, e.QueryCacheSize, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	fields := []zap.Field{
		zap.String("provider", e.Provider),
		zap.String("model", e.Model),
		zap.Int("dimension", provider.Dimension()),
		zap.Int("query_cache_size", e.QueryCacheSize),
	}
	if e.APIKey.IsSet() {
		fields = append(fields, logging.Secret("api_key", e.APIKey))
	}
	logger.Info("embedding provider initialized", fields...)

	index, err := vectorstore.NewAnchorIndex(ctx, cached, extraction.Anchors(), logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to build anchor index: %w", err)
	}
	deps.index = index

	matcher, err := extraction.NewSemanticMatcher(cached, index, cfg.Extraction.SimilarityThreshold)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create semantic matcher: %w", err)
	}

	logger.Info("anchor index ready",
		zap.Int("anchors", index.Len()),
		zap.Any("families", index.Families()))

	deps.analyzer = extraction.NewAnalyzer(matcher, opts...)
	return deps, nil
}

// runHTTP serves the HTTP API until ctx is canceled, then drains in-flight
// requests within the configured shutdown timeout.
func runHTTP(ctx context.Context, cfg *config.Config, deps *dependencies, logger *zap.Logger) error {
	serverOpts := []httpserver.Option{
		httpserver.WithVersion(version),
		httpserver.WithHTTPMetrics(httpserver.NewHTTPMetrics(logger)),
	}
	if deps.index != nil {
		serverOpts = append(serverOpts, httpserver.WithAnchorCounter(deps.index))
	}

	srv, err := httpserver.NewServer(deps.analyzer, logger, &httpserver.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		BodyLimit:   cfg.Server.BodyLimit,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
	}, serverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("server configured",
		zap.String("addr", srv.Addr()),
		zap.String("analyze_endpoint", "/api/v1/analyze"),
		zap.String("metrics_endpoint", "/metrics"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

// runMCP serves the MCP tools on stdio until the client disconnects or ctx
// is canceled.
func runMCP(ctx context.Context, deps *dependencies, logger *zap.Logger) error {
	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "notaclin",
		Version: version,
		Logger:  logger,
	}, deps.analyzer)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}
	defer func() {
		_ = srv.Close()
	}()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
