package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/auth"
	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/notification"
	"github.com/amarpathagar/pathagar-server/internal/store"
	"github.com/amarpathagar/pathagar-server/internal/store/sqlite"
)

// testEnv wires every service against a temp SQLite store and an in-memory
// inbox. All services share one clock that tests can move.
type testEnv struct {
	store        *sqlite.Store
	inbox        *notification.Inbox
	notify       *NotificationService
	reputation   *ReputationService
	requests     *RequestService
	circulation  *CirculationService
	handover     *HandoverService
	books        *BookService
	community    *CommunityService
	profiles     *ProfileService
	admin        *AdminService
	audit        *AuditService
	authn        *AuthService
	now          time.Time
	adminID      string
	usernameSeed int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "pathagar.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	inbox, err := notification.OpenInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inbox.Close() })

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{Policy: config.DefaultPolicy()}

	env := &testEnv{store: s, inbox: inbox, now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	env.notify = NewNotificationService(inbox, store.NewNoopEmitter(), logger)
	env.reputation = NewReputationService(s, env.notify, logger)
	env.requests = NewRequestService(s, env.notify, cfg.Policy, logger)
	env.circulation = NewCirculationService(s, env.reputation, env.notify, store.NewNoopSearchIndexer(), cfg.Policy, logger)
	env.handover = NewHandoverService(s, env.reputation, env.notify, cfg, logger)
	t.Cleanup(env.handover.Stop)
	env.books = NewBookService(s, store.NewNoopSearchIndexer(), nil, env.notify, logger)
	env.community = NewCommunityService(s, env.reputation, env.notify, logger)
	env.profiles = NewProfileService(s, logger)
	env.admin = NewAdminService(s, logger)
	env.audit = NewAuditService(s, logger)
	env.authn = NewAuthService(s, tokens, logger)

	clock := func() time.Time { return env.now }
	env.notify.clock = clock
	env.reputation.clock = clock
	env.requests.clock = clock
	env.circulation.clock = clock
	env.handover.clock = clock
	env.books.clock = clock
	env.community.clock = clock
	env.profiles.clock = clock
	env.admin.clock = clock
	env.authn.clock = clock

	// The first registered account becomes the admin.
	env.adminID = env.register(t, "librarian").ID
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *testEnv) days(n int) time.Time {
	return e.now.Add(time.Duration(n) * 24 * time.Hour)
}

func (e *testEnv) register(t *testing.T, username string) *domain.User {
	t.Helper()
	resp, err := e.authn.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.org",
		Password: "long enough password",
		FullName: username,
	})
	require.NoError(t, err)
	return resp.User
}

func (e *testEnv) createBook(t *testing.T, code string) *domain.Book {
	t.Helper()
	book, err := e.books.Create(context.Background(), e.adminID, CreateBookRequest{
		Title:        "Book " + code,
		Author:       "Humayun Ahmed",
		PhysicalCode: code,
		Category:     "Fiction",
	})
	require.NoError(t, err)
	return book
}

// checkout has the user request and an admin approve the book for 14 days.
func (e *testEnv) checkout(t *testing.T, userID, bookID string) *domain.BookRequest {
	t.Helper()
	ctx := context.Background()
	req, err := e.requests.Request(ctx, userID, bookID)
	require.NoError(t, err)
	approved, err := e.requests.Approve(ctx, e.adminID, req.ID, e.days(14))
	require.NoError(t, err)
	return approved
}

func (e *testEnv) user(t *testing.T, userID string) *domain.User {
	t.Helper()
	u, err := e.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u
}

func (e *testEnv) book(t *testing.T, bookID string) *domain.Book {
	t.Helper()
	b, err := e.store.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return b
}

// requireLedgerConsistent replays every member's ledger.
func (e *testEnv) requireLedgerConsistent(t *testing.T) {
	t.Helper()
	drifted, err := e.reputation.VerifyAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifted)
}

func (e *testEnv) notificationTypes(t *testing.T, userID string) []domain.NotificationType {
	t.Helper()
	page, err := e.notify.List(context.Background(), userID, store.PaginationParams{Limit: 200})
	require.NoError(t, err)
	types := make([]domain.NotificationType, 0, len(page.Items))
	for _, n := range page.Items {
		types = append(types, n.Type)
	}
	return types
}
