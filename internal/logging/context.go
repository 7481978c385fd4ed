package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxIDLen bounds request and note identifiers.
const maxIDLen = 128

// correlation is the set of identifiers carried for log correlation. It is
// copied on every With call, never mutated.
type correlation struct {
	requestID string
	noteID    string
}

type correlationKey struct{}

func correlationFrom(ctx context.Context) correlation {
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c
}

// ValidID reports whether id is 1 to 128 ASCII letters, digits, '-' or
// '_'. WithRequestID and WithNoteID panic on anything else, so untrusted
// identifiers go through here first.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch c := id[i]; {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func mustID(kind, id string) {
	if !ValidID(id) {
		panic("logging: invalid " + kind + " " + quoteID(id))
	}
}

// quoteID shortens id for panic messages.
func quoteID(id string) string {
	if len(id) > 32 {
		id = id[:32] + "..."
	}
	return "\"" + id + "\""
}

// WithRequestID tags ctx with the HTTP request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	mustID("request id", id)
	c := correlationFrom(ctx)
	c.requestID = id
	return context.WithValue(ctx, correlationKey{}, c)
}

// WithNoteID tags ctx with the caller's identifier for the note being
// analyzed. Note text never goes into the context.
func WithNoteID(ctx context.Context, id string) context.Context {
	mustID("note id", id)
	c := correlationFrom(ctx)
	c.noteID = id
	return context.WithValue(ctx, correlationKey{}, c)
}

func RequestIDFromContext(ctx context.Context) string { return correlationFrom(ctx).requestID }

func NoteIDFromContext(ctx context.Context) string { return correlationFrom(ctx).noteID }

// ContextFields returns the trace and correlation fields for ctx: trace_id,
// span_id and trace_sampled from a valid span, then request.id and note.id
// when set.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.Stringer("trace_id", sc.TraceID()),
			zap.Stringer("span_id", sc.SpanID()))
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	c := correlationFrom(ctx)
	if c.requestID != "" {
		fields = append(fields, zap.String("request.id", c.requestID))
	}
	if c.noteID != "" {
		fields = append(fields, zap.String("note.id", c.noteID))
	}
	return fields
}
