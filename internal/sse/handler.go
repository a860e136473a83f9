package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/auth"
)

// A stalled reader is cut off after this long without a successful write.
// The manager heartbeat keeps healthy streams well inside it.
const writeTimeout = 2 * defaultHeartbeat

// TokenVerifier validates access tokens for stream connections.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

// Handler serves GET /api/v1/events.
type Handler struct {
	manager  *Manager
	verifier TokenVerifier
	logger   *slog.Logger
}

func NewHandler(manager *Manager, verifier TokenVerifier, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, verifier: verifier, logger: logger}
}

// streamToken prefers the Authorization header and falls back to ?token=,
// which is all a browser EventSource can send.
func streamToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := streamToken(r)
	if token == "" {
		http.Error(w, "missing access token", http.StatusUnauthorized)
		return
	}
	claims, err := h.verifier.VerifyAccessToken(token)
	if err != nil {
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	out := &frameWriter{w: w, rc: http.NewResponseController(w)}
	if err := out.rc.Flush(); err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(claims.UserID, claims.IsAdmin())
	if err != nil {
		h.logger.Error("SSE connect failed", slog.String("error", err.Error()))
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID), slog.String("user_id", claims.UserID))

	if err := out.write("connected", map[string]string{"client_id": client.ID}); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := out.write(string(event.Type), event); err != nil {
				log.Debug("SSE write failed, dropping stream", slog.String("error", err.Error()))
				return
			}
		case <-client.Done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// frameWriter emits "event: <type>\ndata: <json>\n\n" frames.
type frameWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (f *frameWriter) write(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	// Not every ResponseWriter supports deadlines; ignore if unsupported.
	_ = f.rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := fmt.Fprintf(f.w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	return f.rc.Flush()
}
