package domain

import "time"

// RequestStatus is the lifecycle state of a borrow request.
type RequestStatus string

const (
	// RequestPending is waiting for an admin decision.
	RequestPending RequestStatus = "pending"
	// RequestApproved was approved and carries a due date.
	RequestApproved RequestStatus = "approved"
	// RequestRejected was turned down with a reason.
	RequestRejected RequestStatus = "rejected"
	// RequestCancelled was withdrawn by the requester or closed by the system.
	RequestCancelled RequestStatus = "cancelled"
)

// BookRequest is a member's request to borrow a book.
type BookRequest struct {
	ID            string        `json:"id"`
	BookID        string        `json:"book_id"`
	UserID        string        `json:"user_id"`
	Status        RequestStatus `json:"status"`
	RequestedAt   time.Time     `json:"requested_at"`
	PriorityScore float64       `json:"priority_score"`
	DueDate       *time.Time    `json:"due_date,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	DecidedBy     string        `json:"decided_by,omitempty"`
	DecidedAt     *time.Time    `json:"decided_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Version int64 `json:"-"`
}

// IsPending reports whether the request still awaits a decision.
func (r *BookRequest) IsPending() bool {
	return r.Status == RequestPending
}

// Approve marks the request approved by adminID with the given due date.
func (r *BookRequest) Approve(adminID string, dueDate, now time.Time) {
	r.Status = RequestApproved
	r.DueDate = &dueDate
	r.DecidedBy = adminID
	r.DecidedAt = &now
	r.UpdatedAt = now
}

// Reject marks the request rejected by adminID.
func (r *BookRequest) Reject(adminID, reason string, now time.Time) {
	r.Status = RequestRejected
	r.Reason = reason
	r.DecidedBy = adminID
	r.DecidedAt = &now
	r.UpdatedAt = now
}

// Cancel withdraws the request.
func (r *BookRequest) Cancel(now time.Time, reason string) {
	r.Status = RequestCancelled
	r.Reason = reason
	r.DecidedAt = &now
	r.UpdatedAt = now
}

// RankedRequest pairs a pending request with the requester for admin review.
type RankedRequest struct {
	*BookRequest
	User *User `json:"user"`
	Book *Book `json:"book,omitempty"`
}
