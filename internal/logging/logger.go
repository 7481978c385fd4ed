package logging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"syscall"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ownFrames is the number of Logger frames between a caller and zap.
const ownFrames = 2

// Logger is a zap logger that adds trace, request and note correlation
// from the context to every entry.
type Logger struct {
	zl *zap.Logger
}

// NewLogger builds a logger writing to cfg.Console and, when cfg.OTEL is set
// and provider is non-nil, to the OpenTelemetry log pipeline.
func NewLogger(cfg *Config, provider log.LoggerProvider) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	return newLogger(cfg, consoleSink(cfg.Console), provider)
}

func newLogger(cfg *Config, sink zapcore.WriteSyncer, provider log.LoggerProvider) (*Logger, error) {
	core, err := newCore(cfg, sink, provider)
	if err != nil {
		return nil, err
	}

	var opts []zap.Option
	if cfg.Caller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(ownFrames))
	}
	if cfg.StacktraceLevel > TraceLevel {
		opts = append(opts, zap.AddStacktrace(cfg.StacktraceLevel))
	}
	if len(cfg.Fields) > 0 {
		keys := make([]string, 0, len(cfg.Fields))
		for k := range cfg.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]zap.Field, len(keys))
		for i, k := range keys {
			fields[i] = zap.String(k, cfg.Fields[k])
		}
		opts = append(opts, zap.Fields(fields...))
	}

	return &Logger{zl: zap.New(core, opts...)}, nil
}

// Zap returns the underlying logger for components that take a *zap.Logger.
// It carries the constant fields but no context correlation; callers add
// ContextFields themselves.
func (l *Logger) Zap() *zap.Logger {
	return l.zl.WithOptions(zap.AddCallerSkip(-ownFrames))
}

func (l *Logger) log(ctx context.Context, lvl zapcore.Level, msg string, fields []zap.Field) {
	ce := l.zl.Check(lvl, msg)
	if ce == nil {
		return
	}
	ce.Write(append(ContextFields(ctx), fields...)...)
}

func (l *Logger) Trace(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, TraceLevel, msg, fields)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zl: l.zl.With(fields...)}
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zl: l.zl.Named(name)}
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zl.Core().Enabled(level)
}

// Sync flushes buffered entries. Linux refuses fsync on terminals and
// pipes; those errors are dropped.
func (l *Logger) Sync() error {
	err := l.zl.Sync()
	var errno syscall.Errno
	if errors.As(err, &errno) && (errno == syscall.EINVAL || errno == syscall.ENOTTY) {
		return nil
	}
	return err
}
