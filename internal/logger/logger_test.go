package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	logger.Info("book returned", "book_id", "book-1")

	assert.Contains(t, buf.String(), "book returned")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"book_id":"book-1"`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf})
			logger.Info("hello")

			assert.Equal(t, tt.wantJSON, strings.HasPrefix(buf.String(), "{"))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), tt.input)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	defaults := NewPrettyHandler(&bytes.Buffer{}, nil)
	assert.False(t, defaults.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, defaults.Enabled(context.Background(), slog.LevelInfo))
}

func TestPrettyHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, nil))

	logger.With("thread_id", "thr-1").WithGroup("delivery").Info("handover advanced", "status", "in_transit")

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "handover advanced")
	assert.Contains(t, out, "thread_id=thr-1")
	assert.Contains(t, out, "delivery.status=in_transit")
}

func TestStyleFor(t *testing.T) {
	assert.Equal(t, "ERR", styleFor(slog.LevelError).tag)
	assert.Equal(t, "DBG", styleFor(slog.LevelDebug).tag)
	assert.Equal(t, "INFO+2", styleFor(slog.LevelInfo+2).tag)
}

func TestRenderValue(t *testing.T) {
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	assert.Equal(t, "2026-02-03T04:05:06Z", renderValue(slog.TimeValue(ts)))
	assert.Equal(t, "1.5s", renderValue(slog.DurationValue(1500*time.Millisecond)))
	assert.Equal(t, "42", renderValue(slog.IntValue(42)))
	assert.Equal(t, "in_transit", renderValue(slog.StringValue("in_transit")))
	assert.Equal(t, `"Pather Panchali"`, renderValue(slog.StringValue("Pather Panchali")))
	assert.Equal(t, `""`, renderValue(slog.StringValue("")))
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "pretty", Writer: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = ContextWithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	FromContext(ctx, base).Info("approved")

	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}
