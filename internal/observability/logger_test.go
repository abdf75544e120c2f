package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(New(&buf, "debug"))
	t.Cleanup(func() { SetLogger(prev) })

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")
	LoggerFromContext(ctx).Debug("turn start", "tag", "general")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "turn start", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "sess-1", rec["session_id"])
	assert.Equal(t, "general", rec["tag"])

	buf.Reset()
	LoggerFromContext(context.Background()).Info("plain")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, buf.String(), "request_id")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "héll...", Preview("héllo world", 4))
}
