// Package logger builds the process-wide slog logger: JSON in production, a
// compact colored line format everywhere else.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	formatJSON   = "json"
	formatPretty = "pretty"
)

// Logger is the slog.Logger shared through the DI container.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration. An empty Format is picked from
// Environment.
type Config struct {
	Writer      io.Writer
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool
}

func New(cfg Config) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	format := cfg.Format
	if format == "" {
		format = formatPretty
		if cfg.Environment == "production" {
			format = formatJSON
		}
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: shortSource,
	}
	if format == formatJSON {
		return &Logger{Logger: slog.New(slog.NewJSONHandler(w, opts))}
	}
	return &Logger{Logger: slog.New(NewPrettyHandler(w, opts))}
}

// shortSource trims source paths to the file name.
func shortSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		if src, ok := a.Value.Any().(*slog.Source); ok {
			src.File = filepath.Base(src.File)
		}
	}
	return a
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type requestIDKey struct{}

// ContextWithRequestID stores the HTTP request ID for later log lines.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns base annotated with the request ID carried by ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return base.With("request_id", id)
	}
	return base
}
