// Package config provides configuration loading for notaclin.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then NOTACLIN_* environment variables. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete notaclin configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string `koanf:"cors_origins"`
	// BodyLimit uses echo's size notation, e.g. "1M" or "512K".
	BodyLimit string `koanf:"body_limit"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	Provider       string   `koanf:"provider"`
	Model          string   `koanf:"model"`
	BaseURL        string   `koanf:"base_url"`
	APIKey         Secret   `koanf:"api_key"`
	CacheDir       string   `koanf:"cache_dir"`
	ModelPath      string   `koanf:"model_path"`
	TokenizerPath  string   `koanf:"tokenizer_path"`
	MaxLength      int      `koanf:"max_length"`
	QueryCacheSize int      `koanf:"query_cache_size"`
	Timeout        Duration `koanf:"timeout"`
}

// ExtractionConfig tunes the analyzer.
type ExtractionConfig struct {
	// SimilarityThreshold is the cosine similarity a neuro anchor must exceed.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	// SemanticEnabled turns the neuro matcher on. When off no embedding
	// provider is started.
	SemanticEnabled bool `koanf:"semantic_enabled"`
}

// LoggingConfig holds the operator-facing logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Redact masks note text and extracted values in logs.
	Redact bool `koanf:"redact"`
}

// TelemetryConfig holds the operator-facing OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ShutdownTimeout: Duration(10 * time.Second),
			CORSOrigins:     []string{"*"},
			BodyLimit:       "1M",
			RateLimit:       0,
			RateBurst:       20,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "tei",
			Model:          "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2",
			BaseURL:        "http://localhost:8080",
			CacheDir:       "~/.cache/notaclin/models",
			MaxLength:      128,
			QueryCacheSize: 1024,
			Timeout:        Duration(30 * time.Second),
		},
		Extraction: ExtractionConfig{
			SimilarityThreshold: 0.58,
			SemanticEnabled:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Redact: true,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "notaclin",
		},
	}
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

var (
	validProviders = map[string]bool{"tei": true, "onnx": true, "fastembed": true, "openai": true}
	validLevels    = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validProtocols = map[string]bool{"grpc": true, "http/protobuf": true}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("rate_limit cannot be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("rate_burst must be at least 1 when rate limiting"))
	}

	if c.Extraction.SimilarityThreshold <= 0 || c.Extraction.SimilarityThreshold >= 1 {
		errs = append(errs, fmt.Errorf("similarity_threshold must be in (0, 1), got %v", c.Extraction.SimilarityThreshold))
	}

	if c.Extraction.SemanticEnabled {
		e := c.Embeddings
		if !validProviders[e.Provider] {
			errs = append(errs, fmt.Errorf("unknown embeddings provider %q", e.Provider))
		}
		if (e.Provider == "tei") && e.BaseURL == "" {
			errs = append(errs, errors.New("embeddings base_url required for tei"))
		}
		if e.Provider == "onnx" && (e.ModelPath == "" || e.TokenizerPath == "") {
			errs = append(errs, errors.New("embeddings model_path and tokenizer_path required for onnx"))
		}
		if e.QueryCacheSize < 0 {
			errs = append(errs, errors.New("query_cache_size cannot be negative"))
		}
	}

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("log format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry endpoint required when telemetry is enabled"))
		}
		if c.Telemetry.ServiceName == "" {
			errs = append(errs, errors.New("service name required when telemetry is enabled"))
		}
		if !validProtocols[c.Telemetry.Protocol] {
			errs = append(errs, fmt.Errorf("telemetry protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol))
		}
	}

	return errors.Join(errs...)
}
