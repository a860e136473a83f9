package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

type levelStyle struct {
	tag   string
	color string
}

var levelStyles = map[slog.Level]levelStyle{
	slog.LevelDebug: {"DBG", "\033[35m"},
	slog.LevelInfo:  {"INF", "\033[32m"},
	slog.LevelWarn:  {"WRN", "\033[33m"},
	slog.LevelError: {"ERR", "\033[31m"},
}

func styleFor(level slog.Level) levelStyle {
	if s, ok := levelStyles[level]; ok {
		return s
	}
	return levelStyle{level.String(), "\033[37m"}
}

// PrettyHandler writes one colored line per record:
//
//	15:04:05 INF message key=value key="two words"
type PrettyHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	attrs  []slog.Attr // already group-qualified
	groups string      // "a.b." prefix for record attributes
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if h.opts.Level != nil {
		floor = h.opts.Level.Level()
	}
	return level >= floor
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var line bytes.Buffer
	style := styleFor(r.Level)

	line.WriteString(ansiDim + r.Time.Format(time.TimeOnly) + ansiReset + " ")
	line.WriteString(style.color + style.tag + ansiReset + " ")
	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		line.WriteString(ansiDim + filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line) + ansiReset + " ")
	}
	line.WriteString(ansiBold + r.Message + ansiReset)

	pairs := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		pairs = append(pairs, a.Key+"="+renderValue(a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		pairs = append(pairs, h.groups+a.Key+"="+renderValue(a.Value))
		return true
	})
	if len(pairs) > 0 {
		line.WriteString(" " + ansiCyan + strings.Join(pairs, " ") + ansiReset)
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line.Bytes())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(make([]slog.Attr, 0, len(h.attrs)+len(attrs)), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.groups + a.Key, Value: a.Value})
	}
	return &next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups += name + "."
	return &next
}

// renderValue prints times as RFC 3339 and quotes strings containing spaces.
func renderValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindString:
		if s := v.String(); s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
	}
	return v.String()
}
