// Package sse implements Server-Sent Events for live circulation and inbox updates.
package sse

import (
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"

	// EventBookCreated represents a book creation event.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated is sent whenever a book's status or holder changes.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted represents a book leaving the catalog.
	EventBookDeleted EventType = "book.deleted"

	// EventRequestCreated tells admins a new request is waiting. Admin only.
	EventRequestCreated EventType = "request.created"

	// EventHandoverUpdated is sent to both parties when a thread changes state.
	EventHandoverUpdated EventType = "handover.updated"
	// EventHandoverMessage is sent to both parties when a message is posted.
	EventHandoverMessage EventType = "handover.message"

	// EventNotificationCreated delivers a new inbox entry to its recipient.
	EventNotificationCreated EventType = "notification.created"
	// EventScoreChanged tells a member their success score moved.
	EventScoreChanged EventType = "score.changed"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to one member. Empty means broadcast.
	UserID string `json:"-"`
}

// BookEventData is the data payload for book events.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// BookDeletedEventData is the data payload for book delete events.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BookID    string    `json:"book_id"`
}

// RequestEventData is the data payload for request events.
type RequestEventData struct {
	Request *domain.BookRequest `json:"request"`
}

// HandoverEventData is the data payload for thread state changes.
type HandoverEventData struct {
	Thread *domain.HandoverThread `json:"thread"`
}

// HandoverMessageEventData is the data payload for new thread messages.
type HandoverMessageEventData struct {
	BookID  string                  `json:"book_id"`
	Message *domain.HandoverMessage `json:"message"`
}

// NotificationEventData is the data payload for inbox events.
type NotificationEventData struct {
	Notification *domain.Notification `json:"notification"`
}

// ScoreChangedEventData is the data payload for score events.
type ScoreChangedEventData struct {
	Entry *domain.LedgerEntry `json:"entry"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookCreatedEvent creates a book.created event.
func NewBookCreatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookCreated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
	}
}

// NewBookUpdatedEvent creates a book.updated event.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookUpdated,
		Data:      BookEventData{Book: book},
		Timestamp: time.Now(),
	}
}

// NewBookDeletedEvent creates a book.deleted event.
func NewBookDeletedEvent(bookID string, deletedAt time.Time) Event {
	return Event{
		Type: EventBookDeleted,
		Data: BookDeletedEventData{
			BookID:    bookID,
			DeletedAt: deletedAt,
		},
		Timestamp: time.Now(),
	}
}

// NewRequestCreatedEvent creates a request.created event.
func NewRequestCreatedEvent(req *domain.BookRequest) Event {
	return Event{
		Type:      EventRequestCreated,
		Data:      RequestEventData{Request: req},
		Timestamp: time.Now(),
	}
}

// NewHandoverUpdatedEvent creates a handover.updated event for one party.
func NewHandoverUpdatedEvent(userID string, thread *domain.HandoverThread) Event {
	return Event{
		Type:      EventHandoverUpdated,
		Data:      HandoverEventData{Thread: thread},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewHandoverMessageEvent creates a handover.message event for one party.
func NewHandoverMessageEvent(userID, bookID string, msg *domain.HandoverMessage) Event {
	return Event{
		Type:      EventHandoverMessage,
		Data:      HandoverMessageEventData{BookID: bookID, Message: msg},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewNotificationEvent creates a notification.created event for the recipient.
func NewNotificationEvent(n *domain.Notification) Event {
	return Event{
		Type:      EventNotificationCreated,
		Data:      NotificationEventData{Notification: n},
		Timestamp: time.Now(),
		UserID:    n.UserID,
	}
}

// NewScoreChangedEvent creates a score.changed event for the member.
func NewScoreChangedEvent(entry *domain.LedgerEntry) Event {
	return Event{
		Type:      EventScoreChanged,
		Data:      ScoreChangedEventData{Entry: entry},
		Timestamp: time.Now(),
		UserID:    entry.UserID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
