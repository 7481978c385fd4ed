package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fieldMap flattens fields into key/value pairs the way an encoder sees them.
func fieldMap(fields []zap.Field) map[string]any {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}

func TestContextFields(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want map[string]any
	}{
		{"empty", context.Background(), map[string]any{}},
		{"request", WithRequestID(context.Background(), "req_456"), map[string]any{"request.id": "req_456"}},
		{"note", WithNoteID(context.Background(), "note_789"), map[string]any{"note.id": "note_789"}},
		{
			"request and note",
			WithNoteID(WithRequestID(context.Background(), "req_1"), "note_2"),
			map[string]any{"request.id": "req_1", "note.id": "note_2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldMap(ContextFields(tt.ctx)))
		})
	}
}

func TestContextFields_Span(t *testing.T) {
	tests := []struct {
		name    string
		sampler sdktrace.Sampler
		sampled bool
	}{
		{"sampled", sdktrace.AlwaysSample(), true},
		{"not sampled", sdktrace.NeverSample(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(tt.sampler))
			ctx, span := tp.Tracer("test").Start(context.Background(), "Analyzer.Analyze")
			defer span.End()

			got := fieldMap(ContextFields(WithNoteID(ctx, "n1")))
			sc := span.SpanContext()
			assert.Equal(t, sc.TraceID().String(), got["trace_id"])
			assert.Equal(t, sc.SpanID().String(), got["span_id"])
			assert.Equal(t, "n1", got["note.id"])
			if tt.sampled {
				assert.Equal(t, true, got["trace_sampled"])
			} else {
				assert.NotContains(t, got, "trace_sampled")
			}
		})
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"req_123", true},
		{"note-2024_01", true},
		{"0f8fad5b-d9cb-469f-a165-70867728950e", true},
		{strings.Repeat("a", 128), true},
		{"", false},
		{"has space", false},
		{"semi;colon", false},
		{"nota/1", false},
		{"ñ", false},
		{"\xff", false},
		{strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidID(tt.id), "%q", tt.id)
	}
}

func TestWithIDs_PanicOnInvalid(t *testing.T) {
	assert.PanicsWithValue(t, `logging: invalid request id ""`, func() {
		WithRequestID(context.Background(), "")
	})
	assert.PanicsWithValue(t, `logging: invalid note id "note 1"`, func() {
		WithNoteID(context.Background(), "note 1")
	})
	assert.PanicsWithValue(t, `logging: invalid request id "`+strings.Repeat("r", 32)+`..."`, func() {
		WithRequestID(context.Background(), strings.Repeat("r", 200))
	})
}

func TestIDsFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, NoteIDFromContext(ctx))

	ctx = WithNoteID(WithRequestID(ctx, "req-abc"), "nota_7")
	require.Equal(t, "req-abc", RequestIDFromContext(ctx))
	assert.Equal(t, "nota_7", NoteIDFromContext(ctx))

	// A later tag replaces only its own identifier, and only downstream.
	child := WithRequestID(ctx, "req-def")
	assert.Equal(t, "req-def", RequestIDFromContext(child))
	assert.Equal(t, "nota_7", NoteIDFromContext(child))
	assert.Equal(t, "req-abc", RequestIDFromContext(ctx))
}
