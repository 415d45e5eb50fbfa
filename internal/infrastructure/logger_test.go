package infrastructure

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdictables/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.input), "level %q", tt.input)
	}
}

func TestTraceIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = WithTraceID(ctx, "run-123")
	assert.Equal(t, "run-123", GetTraceID(ctx))
}

func TestContextWithTraceID_Generates(t *testing.T) {
	ctx := ContextWithTraceID(context.Background())
	id := GetTraceID(ctx)
	require.NotEmpty(t, id)
	// UUID v4 text form.
	assert.Len(t, id, 36)

	other := ContextWithTraceID(context.Background())
	assert.NotEqual(t, id, GetTraceID(other))
}

func TestInitializeLogger_FileOutput(t *testing.T) {
	ResetLoggerForTesting()
	t.Cleanup(ResetLoggerForTesting)

	logPath := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: logPath,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)

	ctx := WithTraceID(context.Background(), "trace-abc")
	logger.InfoContext(ctx, "test message", slog.String("key", "value"))
	require.NoError(t, CloseLogFile())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"msg":"test message"`)
	assert.Contains(t, content, `"trace_id":"trace-abc"`)
	assert.Contains(t, content, `"key":"value"`)
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	t.Cleanup(ResetLoggerForTesting)

	first, err := InitializeLogger(config.LoggingConfig{Output: "console"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Output: "console"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestWithError(t *testing.T) {
	logger := GetLogger()
	assert.Same(t, logger, WithError(logger, nil))
	assert.NotSame(t, logger, WithError(logger, os.ErrNotExist))
}

func TestGenerateTraceID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateTraceID()
		require.False(t, seen[id])
		require.Equal(t, 4, strings.Count(id, "-"))
		seen[id] = true
	}
}
