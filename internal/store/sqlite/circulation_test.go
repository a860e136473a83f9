package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

func newPendingRequest(id, userID, bookID string, at time.Time) *domain.BookRequest {
	return &domain.BookRequest{
		ID: id, BookID: bookID, UserID: userID, Status: domain.RequestPending,
		RequestedAt: at, UpdatedAt: at,
	}
}

func TestCreateRequest_OnePendingPerUserAndBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "alice")
	insertTestBook(t, s, "book-1", "C-1")
	now := time.Now()

	if err := s.CreateRequest(ctx, newPendingRequest("req-1", "alice", "book-1", now)); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	err := s.CreateRequest(ctx, newPendingRequest("req-2", "alice", "book-1", now))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Once resolved, a new pending request is allowed.
	req, _ := s.GetRequest(ctx, "req-1")
	req.Cancel(now, "")
	if err := s.UpdateRequest(ctx, req); err != nil {
		t.Fatalf("UpdateRequest: %v", err)
	}
	if err := s.CreateRequest(ctx, newPendingRequest("req-3", "alice", "book-1", now.Add(time.Second))); err != nil {
		t.Fatalf("CreateRequest after cancel: %v", err)
	}

	latest, err := s.GetLatestRequest(ctx, "alice", "book-1")
	if err != nil {
		t.Fatalf("GetLatestRequest: %v", err)
	}
	if latest.ID != "req-3" {
		t.Errorf("latest: got %s, want req-3", latest.ID)
	}
}

func TestUpdateRequest_StaleVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "alice")
	insertTestBook(t, s, "book-1", "C-1")
	now := time.Now()
	if err := s.CreateRequest(ctx, newPendingRequest("req-1", "alice", "book-1", now)); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	a, _ := s.GetRequest(ctx, "req-1")
	b, _ := s.GetRequest(ctx, "req-1")

	a.Approve("admin", now.Add(14*24*time.Hour), now)
	if err := s.UpdateRequest(ctx, a); err != nil {
		t.Fatalf("first update: %v", err)
	}
	b.Reject("admin", "no", now)
	if err := s.UpdateRequest(ctx, b); !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestListPendingRequests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "alice")
	insertTestUser(t, s, "bob")
	insertTestBook(t, s, "book-1", "C-1")
	insertTestBook(t, s, "book-2", "C-2")
	base := time.Now()

	_ = s.CreateRequest(ctx, newPendingRequest("req-b", "bob", "book-1", base.Add(time.Minute)))
	_ = s.CreateRequest(ctx, newPendingRequest("req-a", "alice", "book-1", base))
	_ = s.CreateRequest(ctx, newPendingRequest("req-c", "alice", "book-2", base))

	forBook, err := s.ListPendingRequests(ctx, "book-1")
	if err != nil {
		t.Fatalf("ListPendingRequests: %v", err)
	}
	if len(forBook) != 2 || forBook[0].ID != "req-a" {
		t.Errorf("per book: got %v", forBook)
	}

	all, _ := s.ListPendingRequests(ctx, "")
	if len(all) != 3 {
		t.Errorf("all pending: got %d, want 3", len(all))
	}
}

func TestReadings_OneOpenPerBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "alice")
	insertTestUser(t, s, "bob")
	insertTestBook(t, s, "book-1", "C-1")
	now := time.Now()

	open := &domain.ReadingEntry{ID: "read-1", BookID: "book-1", UserID: "alice",
		StartDate: now, DueDate: now.Add(7 * 24 * time.Hour)}
	if err := s.CreateReading(ctx, open); err != nil {
		t.Fatalf("CreateReading: %v", err)
	}
	second := &domain.ReadingEntry{ID: "read-2", BookID: "book-1", UserID: "bob",
		StartDate: now, DueDate: now.Add(7 * 24 * time.Hour)}
	if err := s.CreateReading(ctx, second); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	due, err := s.ListOpenReadingsDueBefore(ctx, now.Add(8*24*time.Hour))
	if err != nil {
		t.Fatalf("ListOpenReadingsDueBefore: %v", err)
	}
	if len(due) != 1 {
		t.Errorf("due readings: got %d, want 1", len(due))
	}

	open.Close(now.Add(time.Hour), domain.ReadingEndReturned)
	if err := s.UpdateReading(ctx, open); err != nil {
		t.Fatalf("UpdateReading: %v", err)
	}
	if _, err := s.GetOpenReading(ctx, "book-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected no open reading, got %v", err)
	}

	history, _ := s.ListReadingsByUser(ctx, "alice")
	if len(history) != 1 || history[0].ReturnedOnTime == nil || !*history[0].ReturnedOnTime {
		t.Errorf("history: got %+v", history)
	}
}

func TestThreads_OneActivePerBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "alice")
	insertTestUser(t, s, "bob")
	insertTestUser(t, s, "carol")
	insertTestBook(t, s, "book-1", "C-1")
	now := time.Now()

	thread := &domain.HandoverThread{
		ID: "thr-1", BookID: "book-1", CurrentHolderID: "alice", NextHolderID: "bob",
		HandoverDueDate: now.Add(24 * time.Hour), DeliveryStatus: domain.DeliveryNotStarted,
		Status: domain.ThreadActive, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.CreateThread(ctx, thread); err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	dup := *thread
	dup.ID = "thr-2"
	if err := s.CreateThread(ctx, &dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	active, err := s.GetActiveThread(ctx, "book-1")
	if err != nil {
		t.Fatalf("GetActiveThread: %v", err)
	}
	stale := *active

	active.DeliveryStatus = domain.DeliveryInTransit
	if err := s.UpdateThread(ctx, active); err != nil {
		t.Fatalf("UpdateThread: %v", err)
	}
	if err := s.UpdateThread(ctx, &stale); !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("expected ErrConcurrentModification, got %v", err)
	}

	mine, _ := s.ListThreads(ctx, domain.ThreadFilter{ParticipantID: "bob"})
	if len(mine) != 1 {
		t.Errorf("bob threads: got %d, want 1", len(mine))
	}
	theirs, _ := s.ListThreads(ctx, domain.ThreadFilter{ParticipantID: "carol"})
	if len(theirs) != 0 {
		t.Errorf("carol threads: got %d, want 0", len(theirs))
	}
}

func TestMessages_AppendOnlyAndOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "alice")
	insertTestUser(t, s, "bob")
	insertTestBook(t, s, "book-1", "C-1")
	now := time.Now()
	_ = s.CreateThread(ctx, &domain.HandoverThread{
		ID: "thr-1", BookID: "book-1", CurrentHolderID: "alice", NextHolderID: "bob",
		HandoverDueDate: now, DeliveryStatus: domain.DeliveryNotStarted,
		Status: domain.ThreadActive, CreatedAt: now, UpdatedAt: now,
	})

	msgs := []*domain.HandoverMessage{
		{ID: "msg-1", ThreadID: "thr-1", Message: "Thread opened", IsSystemMessage: true, CreatedAt: now},
		{ID: "msg-2", ThreadID: "thr-1", UserID: "alice", Message: "Meet at the library?", CreatedAt: now.Add(time.Second)},
	}
	for _, m := range msgs {
		if err := s.CreateMessage(ctx, m); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	if _, err := s.db.Exec(`UPDATE handover_messages SET message = 'edited'`); err == nil {
		t.Error("expected message update to be rejected")
	}

	got, err := s.ListMessages(ctx, "thr-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 2 || !got[0].IsSystemMessage || got[0].UserID != "" || got[1].UserID != "alice" {
		t.Errorf("messages: got %+v", got)
	}
}
