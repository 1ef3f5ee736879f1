package logger_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithWriter(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	tests := []struct {
		name       string
		level      string
		logDebug   bool
		logInfo    bool
		wantWarned bool
	}{
		{name: "debug", level: "debug", logDebug: true, logInfo: true},
		{name: "info", level: "info", logDebug: false, logInfo: true},
		{name: "error", level: "ERROR", logDebug: false, logInfo: false},
		{name: "invalid falls back to info", level: "chatty", logDebug: false, logInfo: true, wantWarned: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &logger.TestLogBuffer{}
			l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: tt.level}, buf)
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.Same(t, l, slog.Default())

			l.Debug("debug message")
			l.Info("info message")

			out := buf.String()
			assert.Equal(t, tt.logDebug, strings.Contains(out, "debug message"))
			assert.Equal(t, tt.logInfo, strings.Contains(out, "info message"))
			assert.Equal(t, tt.wantWarned, strings.Contains(out, "invalid log level configured"))
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, ok := logger.ParseLevel("Warn")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelWarn, level)

	level, ok = logger.ParseLevel("")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	l, buf := logger.NewTestLogger(t)
	fallback := slog.New(slog.NewJSONHandler(&logger.TestLogBuffer{}, nil))

	ctx := logger.WithLogger(context.Background(), l.With("trace_id", "abc"))
	logger.FromContext(ctx).Info("from context")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0]["trace_id"])

	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	assert.NotNil(t, logger.FromContextOrDefault(context.Background(), nil))
	assert.NotNil(t, logger.FromContext(context.Background()))
}

func TestTraceID(t *testing.T) {
	t.Parallel()

	ctx := logger.WithTraceID(context.Background(), "trace-1")
	assert.Equal(t, "trace-1", logger.TraceID(ctx))
	assert.Empty(t, logger.TraceID(context.Background()))
}
