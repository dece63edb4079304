package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	Info("poll done", "activated", 2)
	Error("store failed", errors.New("disk full"), "path", "/tmp/x")
	Warn("odd kv", "dangling")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "poll done", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["activated"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["err"])
	assert.Equal(t, "/tmp/x", entries[1].ContextMap()["path"])

	assert.Empty(t, entries[2].ContextMap())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
