package host

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "JSON"}, &buf)

	logger.Debug("hello", "rate", 2.5)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, 2.5, rec["rate"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, parseLevel(" Warning ", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud", slog.LevelInfo))
}
