package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger(zapcore.DebugLevel)
	ctx := WithNoteID(context.Background(), "n-3")

	tl.Trace(ctx, "dropped")
	tl.Debug(ctx, "anchor scored", zap.Float64("score", 0.71))
	tl.Zap().Info("direct")

	assert.Equal(t, []string{"anchor scored", "direct"}, tl.Messages())
	fields := tl.Fields(t, "anchor scored")
	assert.Equal(t, "n-3", fields["note.id"])
	assert.Equal(t, 0.71, fields["score"])
}
