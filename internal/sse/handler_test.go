package sse

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/auth"
	"github.com/amarpathagar/pathagar-server/internal/domain"
)

type stubVerifier map[string]*auth.AccessClaims

func (v stubVerifier) VerifyAccessToken(token string) (*auth.AccessClaims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

func nextEventType(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			return strings.TrimSpace(name)
		}
	}
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()
	h := NewHandler(m, stubVerifier{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cases := map[string]struct {
		method string
		target string
		want   int
	}{
		"post":          {http.MethodPost, "/api/v1/events?token=x", http.StatusMethodNotAllowed},
		"missing token": {http.MethodGet, "/api/v1/events", http.StatusUnauthorized},
		"unknown token": {http.MethodGet, "/api/v1/events?token=nope", http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
	assert.Equal(t, 0, m.ClientCount())
}

func TestHandler_StreamsTargetedEvents(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()
	verifier := stubVerifier{"tok-reader": {UserID: "usr-reader", Role: domain.RoleMember}}
	srv := httptest.NewServer(NewHandler(m, verifier, slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer srv.Close()

	ctx, hangUp := context.WithCancel(context.Background())
	defer hangUp()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok-reader")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	require.Equal(t, "connected", nextEventType(t, body))
	assert.Equal(t, 1, m.ClientCount())

	m.Emit(NewNotificationEvent(&domain.Notification{ID: "ntf-1", UserID: "usr-reader"}))
	assert.Equal(t, string(EventNotificationCreated), nextEventType(t, body))

	hangUp()
	assert.Eventually(t, func() bool { return m.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
