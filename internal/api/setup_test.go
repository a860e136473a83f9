package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/auth"
	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/notification"
	"github.com/amarpathagar/pathagar-server/internal/service"
	"github.com/amarpathagar/pathagar-server/internal/sse"
	"github.com/amarpathagar/pathagar-server/internal/store"
	"github.com/amarpathagar/pathagar-server/internal/store/sqlite"
)

// testEnvelope mirrors the response envelope with typed data.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type testServer struct {
	*Server
	api     humatest.TestAPI
	adminID string
	admin   string
}

// setupTestServer wires real services against a temp SQLite store and
// registers the first account, which becomes the admin.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "pathagar.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	inbox, err := notification.OpenInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inbox.Close() })

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{Policy: config.DefaultPolicy()}
	sseManager := sse.NewManager(logger)

	notify := service.NewNotificationService(inbox, store.NewNoopEmitter(), logger)
	reputation := service.NewReputationService(st, notify, logger)
	handover := service.NewHandoverService(st, reputation, notify, cfg, logger)
	t.Cleanup(handover.Stop)

	services := &Services{
		Auth:          service.NewAuthService(st, tokens, logger),
		Books:         service.NewBookService(st, store.NewNoopSearchIndexer(), nil, notify, logger),
		Requests:      service.NewRequestService(st, notify, cfg.Policy, logger),
		Circulation:   service.NewCirculationService(st, reputation, notify, store.NewNoopSearchIndexer(), cfg.Policy, logger),
		Handover:      handover,
		Reputation:    reputation,
		Community:     service.NewCommunityService(st, reputation, notify, logger),
		Profiles:      service.NewProfileService(st, logger),
		Notifications: notify,
		Admin:         service.NewAdminService(st, logger),
		Audit:         service.NewAuditService(st, logger),
	}

	srv := NewServer(st, services, sseManager, cfg, logger)
	t.Cleanup(srv.Stop)

	ts := &testServer{
		Server: srv,
		api:    humatest.Wrap(t, srv.api),
	}
	ts.admin, ts.adminID = ts.member(t, "librarian")
	return ts
}

// member registers an account through the service so tests do not trip the
// auth rate limiter, and returns an authorization header and the user ID.
func (ts *testServer) member(t *testing.T, username string) (header, userID string) {
	t.Helper()
	resp, err := ts.services.Auth.Register(context.Background(), service.RegisterRequest{
		Username: username,
		Email:    username + "@example.org",
		Password: "long enough password",
		FullName: username,
	})
	require.NoError(t, err)
	return "Authorization: Bearer " + resp.AccessToken, resp.User.ID
}

func (ts *testServer) createBook(t *testing.T, code string) *domain.Book {
	t.Helper()
	resp := ts.api.Post("/api/v1/books", ts.admin, map[string]any{
		"title":         "Book " + code,
		"author":        "Jibanananda Das",
		"physical_code": code,
		"category":      "Poetry",
	})
	require.Equal(t, 201, resp.Code, resp.Body.String())
	return decode[*domain.Book](t, resp.Body.Bytes())
}

// decode unwraps a success envelope.
func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.True(t, envelope.Success, string(body))
	require.Equal(t, EnvelopeVersion, envelope.Version)
	return envelope.Data
}

// decodeError unwraps an error envelope.
func decodeError(t *testing.T, body []byte) testEnvelope[json.RawMessage] {
	t.Helper()
	var envelope testEnvelope[json.RawMessage]
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.False(t, envelope.Success, string(body))
	return envelope
}
