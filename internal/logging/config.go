package logging

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/notaclin/internal/config"
)

// TraceLevel sits below Debug. notaclind uses it for per-rule match
// details, which are too chatty even for debug.
const TraceLevel = zapcore.Level(-2)

// Console streams.
const (
	ConsoleNone   = ""
	ConsoleStdout = "stdout"
	ConsoleStderr = "stderr"
)

// Config holds logging configuration.
type Config struct {
	Level  zapcore.Level
	Format string // "json" or "console"
	// Console is the stream for encoded log lines. MCP stdio mode must use
	// ConsoleStderr or ConsoleNone; stdout belongs to the protocol.
	Console string
	// OTEL forwards records to the OpenTelemetry log provider.
	OTEL bool

	Sampling SamplingConfig
	Caller   bool
	// StacktraceLevel attaches stack traces at and above this level.
	StacktraceLevel zapcore.Level
	// Fields are added to every entry.
	Fields    map[string]string
	Redaction RedactionConfig
}

// SamplingConfig thins out repeated entries below error level. Within each
// tick the first Initial entries with the same message are kept, then one
// in every Thereafter.
type SamplingConfig struct {
	Enabled    bool
	Tick       config.Duration
	Initial    int
	Thereafter int
}

// RedactionConfig controls masking in the console encoder.
type RedactionConfig struct {
	Enabled bool
	// Keys are field names whose values are always masked, case-insensitive.
	Keys []string
	// Patterns are masked wherever they occur inside string values.
	Patterns []string
}

const maxPatternLen = 200

// DefaultRedaction masks credentials plus anything that carries note
// content or patient identifiers.
func DefaultRedaction() RedactionConfig {
	return RedactionConfig{
		Enabled: true,
		Keys: []string{
			"password", "secret", "token", "api_key", "authorization",
			"text", "note", "value", "snippet",
		},
		Patterns: []string{
			`(?i)bearer\s+\S+`,
			`(?i)api[_-]?key[=:]\s*\S+`,
			// Spanish DNI/NIE.
			`\b[XYZ]?\d{7,8}[A-HJ-NP-TV-Z]\b`,
			// Clinical record numbers, "NHC 123456".
			`(?i)\bNHC[:\s]*\d+`,
		},
	}
}

// NewDefaultConfig returns JSON logs at info on stdout, sampled and
// redacted.
func NewDefaultConfig() *Config {
	return &Config{
		Level:   zapcore.InfoLevel,
		Format:  "json",
		Console: ConsoleStdout,
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       config.Duration(time.Second),
			Initial:    100,
			Thereafter: 10,
		},
		Caller:          true,
		StacktraceLevel: zapcore.ErrorLevel,
		Fields:          map[string]string{"service": "notaclin"},
		Redaction:       DefaultRedaction(),
	}
}

// FromSettings applies the logging section of the application config to
// the defaults. Debug and trace turn sampling off.
func FromSettings(s config.LoggingConfig) (*Config, error) {
	cfg := NewDefaultConfig()

	level, err := ParseLevel(s.Level)
	if err != nil {
		return nil, err
	}
	cfg.Level = level
	if s.Format != "" {
		cfg.Format = s.Format
	}
	cfg.Redaction.Enabled = s.Redact
	cfg.Sampling.Enabled = level > zapcore.DebugLevel

	return cfg, cfg.Validate()
}

// ParseLevel accepts zap level names in any case, plus "trace". The empty
// string is info.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// encodeLevel writes "trace" for TraceLevel and zap's lowercase names
// otherwise.
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("trace")
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("format must be json or console, got %q", c.Format))
	}
	switch c.Console {
	case ConsoleNone, ConsoleStdout, ConsoleStderr:
	default:
		errs = append(errs, fmt.Errorf("console must be stdout, stderr or empty, got %q", c.Console))
	}
	if c.Console == ConsoleNone && !c.OTEL {
		errs = append(errs, errors.New("no log output enabled"))
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			errs = append(errs, errors.New("sampling tick must be positive"))
		}
		if c.Sampling.Initial < 1 {
			errs = append(errs, fmt.Errorf("sampling initial must be at least 1, got %d", c.Sampling.Initial))
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			errs = append(errs, fmt.Errorf("constant field %q=%q needs a key and a value", k, v))
		}
	}
	if c.Redaction.Enabled {
		if _, err := compilePatterns(c.Redaction.Patterns); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if len(p) > maxPatternLen {
			return nil, fmt.Errorf("redaction pattern longer than %d characters", maxPatternLen)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
