package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records entries in memory. Entries bypass the encoder, so
// redaction does not apply.
type TestLogger struct {
	*Logger
	Logs *observer.ObservedLogs
}

// NewTestLogger records everything at level and above.
func NewTestLogger(level zapcore.Level) *TestLogger {
	core, logs := observer.New(level)
	return &TestLogger{
		Logger: &Logger{zl: zap.New(core, zap.AddCallerSkip(ownFrames))},
		Logs:   logs,
	}
}

// Messages returns the recorded messages in order.
func (tl *TestLogger) Messages() []string {
	entries := tl.Logs.All()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

// Fields returns the context of the first entry with message msg.
func (tl *TestLogger) Fields(tb testing.TB, msg string) map[string]any {
	tb.Helper()
	entries := tl.Logs.FilterMessage(msg).All()
	if len(entries) == 0 {
		tb.Fatalf("no entry %q, have %q", msg, tl.Messages())
	}
	return entries[0].ContextMap()
}
