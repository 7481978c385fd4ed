package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrConfigExists is returned by WriteStarter when the file is already there.
var ErrConfigExists = errors.New("config file already exists")

// Starter renders c as a commented config.yaml. Credentials and the onnx
// model paths are left out.
func Starter(c *Config) []byte {
	quoted := make([]string, len(c.Server.CORSOrigins))
	for i, o := range c.Server.CORSOrigins {
		quoted[i] = strconv.Quote(o)
	}

	var b strings.Builder
	p := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }

	p("# notaclin configuration.")
	p("# NOTACLIN_<SECTION>_<KEY> variables override any key below,")
	p("# e.g. NOTACLIN_SERVER_HTTP_PORT=7000.")
	p("server:")
	p("  host: %q", c.Server.Host)
	p("  http_port: %d", c.Server.Port)
	p("  shutdown_timeout: %s", c.Server.ShutdownTimeout)
	p("  cors_origins: [%s]", strings.Join(quoted, ", "))
	p("  body_limit: %q", c.Server.BodyLimit)
	p("  # requests per second per client IP, 0 disables limiting")
	p("  rate_limit: %s", strconv.FormatFloat(c.Server.RateLimit, 'f', -1, 64))
	p("  rate_burst: %d", c.Server.RateBurst)
	p("embeddings:")
	p("  # tei, onnx, fastembed or openai")
	p("  provider: %q", c.Embeddings.Provider)
	p("  model: %q", c.Embeddings.Model)
	p("  base_url: %q", c.Embeddings.BaseURL)
	p("  # api_key is better set through NOTACLIN_EMBEDDINGS_API_KEY")
	p("  # model_path and tokenizer_path are required by the onnx provider")
	p("  cache_dir: %q", c.Embeddings.CacheDir)
	p("  max_length: %d", c.Embeddings.MaxLength)
	p("  query_cache_size: %d", c.Embeddings.QueryCacheSize)
	p("  timeout: %s", c.Embeddings.Timeout)
	p("extraction:")
	p("  similarity_threshold: %s", strconv.FormatFloat(c.Extraction.SimilarityThreshold, 'f', -1, 64))
	p("  semantic_enabled: %t", c.Extraction.SemanticEnabled)
	p("logging:")
	p("  level: %q", c.Logging.Level)
	p("  format: %q", c.Logging.Format)
	p("  redact: %t", c.Logging.Redact)
	p("telemetry:")
	p("  enabled: %t", c.Telemetry.Enabled)
	p("  endpoint: %q", c.Telemetry.Endpoint)
	p("  protocol: %q", c.Telemetry.Protocol)
	p("  insecure: %t", c.Telemetry.Insecure)
	p("  service_name: %q", c.Telemetry.ServiceName)
	return []byte(b.String())
}

// WriteStarter writes Starter(Default()) to ~/.config/notaclin/config.yaml
// with mode 0600 and returns the path. An existing file is left alone.
func WriteStarter() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.yaml")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return path, ErrConfigExists
	}
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.Write(Starter(Default())); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, f.Close()
}
