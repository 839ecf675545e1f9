package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerWritesJSONWithContextFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: "debug", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)

	ctx := WithRequestID(WithSessionID(context.Background(), "s1"), "req-1")
	logger.Info(ctx, "turn handled", zap.String("state", "COLLECTING"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "turn handled", entry["msg"])
	assert.Equal(t, "s1", entry["session.id"])
	assert.Equal(t, "req-1", entry["request.id"])
	assert.Equal(t, "COLLECTING", entry["state"])
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	_, err := NewLogger(Config{Level: "loud"})
	assert.ErrorContains(t, err, "parse log level")

	_, err = NewLogger(Config{Format: "xml"})
	assert.ErrorContains(t, err, "unsupported log format")
}

func TestSetLevelAppliesToChildren(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: "warn", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)
	child := logger.Named("http")

	child.Info(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, logger.SetLevel("info"))
	child.Info(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, zapcore.InfoLevel, child.Level())
}

func TestFromContextFallsBackToNop(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, FromContext(context.Background()))

	logger := NewTestLogger()
	ctx := WithLogger(context.Background(), logger.Logger)
	FromContext(ctx).Warn(ctx, "stored logger")
	logger.AssertLogged(t, zapcore.WarnLevel, "stored logger")
}
