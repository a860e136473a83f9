package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/id"
	"github.com/amarpathagar/pathagar-server/internal/sse"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// Inbox is the per-member notification storage.
type Inbox interface {
	Add(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID string, params store.PaginationParams) (*store.PaginatedResult[*domain.Notification], error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// outbox collects what a transaction wants announced. It is only flushed
// after the transaction commits, so a rolled-back operation never notifies.
type outbox struct {
	notes  []*domain.Notification
	events []sse.Event
}

func (o *outbox) notify(userID string, t domain.NotificationType, title, message, link string) {
	if userID == "" {
		return
	}
	o.notes = append(o.notes, &domain.Notification{
		UserID:  userID,
		Type:    t,
		Title:   title,
		Message: message,
		Link:    link,
	})
}

func (o *outbox) emit(events ...sse.Event) {
	o.events = append(o.events, events...)
}

// scored announces a ledger entry to its member.
func (o *outbox) scored(entry *domain.LedgerEntry) {
	o.emit(sse.NewScoreChangedEvent(entry))
	msg := fmt.Sprintf("%+d points (%s). Your success score is now %d.", entry.Delta, entry.Event, entry.ScoreAfter)
	if entry.Reason != "" {
		msg = fmt.Sprintf("%+d points: %s. Your success score is now %d.", entry.Delta, entry.Reason, entry.ScoreAfter)
	}
	o.notify(entry.UserID, domain.NotifyScoreChanged, "Success score updated", msg, "/profile")
}

// threadChanged tells both parties a thread moved.
func (o *outbox) threadChanged(thread *domain.HandoverThread) {
	for _, userID := range threadParties(thread) {
		o.emit(sse.NewHandoverUpdatedEvent(userID, thread))
	}
}

func threadParties(thread *domain.HandoverThread) []string {
	parties := make([]string, 0, 2)
	if thread.CurrentHolderID != "" {
		parties = append(parties, thread.CurrentHolderID)
	}
	if thread.NextHolderID != "" && thread.NextHolderID != thread.CurrentHolderID {
		parties = append(parties, thread.NextHolderID)
	}
	return parties
}

// NotificationService delivers notifications and serves the member inbox.
type NotificationService struct {
	inbox  Inbox
	events store.EventEmitter
	logger *slog.Logger
	clock  func() time.Time
}

// NewNotificationService creates a new notification service.
func NewNotificationService(inbox Inbox, events store.EventEmitter, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		inbox:  inbox,
		events: events,
		logger: logger,
		clock:  time.Now,
	}
}

// Flush persists and pushes everything in the outbox. The change it describes
// is already committed, so failures are logged rather than returned.
func (s *NotificationService) Flush(ctx context.Context, o *outbox) {
	if o == nil {
		return
	}
	for _, n := range o.notes {
		s.deliver(ctx, n)
	}
	for _, e := range o.events {
		s.events.Emit(e)
	}
}

func (s *NotificationService) deliver(ctx context.Context, n *domain.Notification) {
	notifID, err := id.Generate(id.PrefixNotification)
	if err != nil {
		s.logger.Error("failed to generate notification ID", "error", err)
		return
	}
	n.ID = notifID
	n.CreatedAt = s.clock()

	if err := s.inbox.Add(ctx, n); err != nil {
		s.logger.Warn("failed to store notification",
			"user_id", n.UserID,
			"type", n.Type,
			"error", err,
		)
		return
	}
	s.events.Emit(sse.NewNotificationEvent(n))
}

// List returns the member's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, params store.PaginationParams) (*store.PaginatedResult[*domain.Notification], error) {
	result, err := s.inbox.List(ctx, userID, params)
	return result, mapStoreErr(err)
}

// UnreadCount returns how many notifications the member has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.inbox.UnreadCount(ctx, userID)
}

// MarkRead marks one of the member's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return mapStoreErr(s.inbox.MarkRead(ctx, userID, notificationID))
}

// MarkAllRead marks every notification of the member read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.inbox.MarkAllRead(ctx, userID)
}
