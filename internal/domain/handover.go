package domain

import "time"

// ThreadStatus is the lifecycle of a handover thread.
type ThreadStatus string

const (
	// ThreadActive accepts transitions and messages.
	ThreadActive ThreadStatus = "active"
	// ThreadCompleted is terminal after the next holder confirmed delivery.
	ThreadCompleted ThreadStatus = "completed"
	// ThreadCancelled is terminal without a transfer.
	ThreadCancelled ThreadStatus = "cancelled"
)

// IsTerminal reports whether no further action is allowed.
func (s ThreadStatus) IsTerminal() bool {
	return s == ThreadCompleted || s == ThreadCancelled
}

// DeliveryStatus tracks the physical exchange inside an active thread.
// It only moves forward: not_started, in_transit, delivered.
type DeliveryStatus string

const (
	// DeliveryNotStarted means the holder is still reading.
	DeliveryNotStarted DeliveryStatus = "not_started"
	// DeliveryInTransit means the holder finished and the book is on its way.
	DeliveryInTransit DeliveryStatus = "in_transit"
	// DeliveryDelivered means the next holder has the book.
	DeliveryDelivered DeliveryStatus = "delivered"
)

var deliveryOrder = map[DeliveryStatus]int{
	DeliveryNotStarted: 0,
	DeliveryInTransit:  1,
	DeliveryDelivered:  2,
}

// CanAdvanceTo reports whether to is exactly one step after s.
func (s DeliveryStatus) CanAdvanceTo(to DeliveryStatus) bool {
	from, ok1 := deliveryOrder[s]
	next, ok2 := deliveryOrder[to]
	return ok1 && ok2 && next == from+1
}

// HandoverThread coordinates custody transfer between two readers.
type HandoverThread struct {
	ID              string         `json:"id"`
	BookID          string         `json:"book_id"`
	CurrentHolderID string         `json:"current_holder_id"`
	NextHolderID    string         `json:"next_holder_id"`
	NextRequestID   string         `json:"next_request_id,omitempty"`
	HandoverDueDate time.Time      `json:"handover_due_date"`
	DeliveryStatus  DeliveryStatus `json:"delivery_status"`
	Status          ThreadStatus   `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`

	Version int64 `json:"-"`
}

// IsParty reports whether userID is the current or next holder.
func (t *HandoverThread) IsParty(userID string) bool {
	return userID != "" && (userID == t.CurrentHolderID || userID == t.NextHolderID)
}

// ThreadWithBook is a thread joined with its book for listings.
type ThreadWithBook struct {
	*HandoverThread
	Book          *Book `json:"book"`
	CurrentHolder *User `json:"current_holder,omitempty"`
	NextHolder    *User `json:"next_holder,omitempty"`
}

// HandoverMessage is an append-only entry in a thread.
type HandoverMessage struct {
	ID              string    `json:"id"`
	ThreadID        string    `json:"thread_id"`
	UserID          string    `json:"user_id,omitempty"`
	Message         string    `json:"message"`
	IsSystemMessage bool      `json:"is_system_message"`
	CreatedAt       time.Time `json:"created_at"`
}

// ThreadFilter narrows thread listings.
type ThreadFilter struct {
	ParticipantID string // empty lists all threads
	Status        ThreadStatus
}
