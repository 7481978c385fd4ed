// Package logging builds the zap logger used by notaclind.
//
// Entries go to one console stream (stdout, or stderr in MCP stdio mode)
// and optionally to the OpenTelemetry log pipeline through the otelzap
// bridge. The console encoder masks credentials, note text and extracted
// values, and scrubs DNI/NIE and clinical record numbers out of strings.
// Entries below error level are sampled; errors are always written.
//
// Context correlation is explicit. Handlers tag the context with
// WithRequestID and WithNoteID and log through Logger, or append
// ContextFields when holding a bare *zap.Logger:
//
//	ctx = logging.WithNoteID(ctx, "nota_42")
//	logger.Info(ctx, "note analyzed", zap.Int("results", n))
//
// TraceLevel sits below debug and is written as "trace".
package logging
