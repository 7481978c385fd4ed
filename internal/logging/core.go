package logging

import (
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// instrumentationName scopes log records exported over OTLP.
const instrumentationName = "github.com/fyrsmithlabs/notaclin"

func newEncoder(cfg *Config) (zapcore.Encoder, error) {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = encodeLevel

	var base zapcore.Encoder
	if cfg.Format == "console" {
		base = zapcore.NewConsoleEncoder(ec)
	} else {
		base = zapcore.NewJSONEncoder(ec)
	}
	return NewRedactingEncoder(base, cfg.Redaction)
}

func consoleSink(name string) zapcore.WriteSyncer {
	switch name {
	case ConsoleStdout:
		return zapcore.Lock(os.Stdout)
	case ConsoleStderr:
		return zapcore.Lock(os.Stderr)
	}
	return nil
}

// newCore tees the console sink and the OTEL bridge, then applies
// sampling. The OTEL side is skipped when provider is nil. Redaction only
// applies to the console encoder; the collector is trusted.
func newCore(cfg *Config, sink zapcore.WriteSyncer, provider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core

	if sink != nil {
		enc, err := newEncoder(cfg)
		if err != nil {
			return nil, fmt.Errorf("console encoder: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(cfg.Level)))
	}
	if cfg.OTEL && provider != nil {
		bridge := otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(provider))
		cores = append(cores, levelGate{Core: bridge, min: cfg.Level})
	}
	if len(cores) == 0 {
		return nil, errors.New("no log output available")
	}

	return newSampledCore(zapcore.NewTee(cores...), cfg.Sampling), nil
}

// levelGate applies the configured level to the OTEL bridge, which has no
// level of its own.
type levelGate struct {
	zapcore.Core
	min zapcore.Level
}

func (g levelGate) Enabled(l zapcore.Level) bool {
	return l >= g.min && g.Core.Enabled(l)
}

func (g levelGate) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !g.Enabled(e.Level) {
		return ce
	}
	return g.Core.Check(e, ce)
}

func (g levelGate) With(fields []zapcore.Field) zapcore.Core {
	return levelGate{Core: g.Core.With(fields), min: g.min}
}
