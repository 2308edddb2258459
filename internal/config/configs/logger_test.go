package configs

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Logger{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Logger{Level: "warning"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Logger{Level: "loud"}.SlogLevel())
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	Logger{Level: "info", Format: "json"}.New(&buf).Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	Logger{Level: "error", Format: "text"}.New(&buf).Info("dropped")
	assert.Empty(t, buf.String())
}
