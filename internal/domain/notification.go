package domain

import (
	"encoding/json"
	"time"
)

// NotificationType categorizes inbox notifications.
type NotificationType string

const (
	NotifyRequestCreated    NotificationType = "request_created"
	NotifyRequestApproved   NotificationType = "request_approved"
	NotifyRequestRejected   NotificationType = "request_rejected"
	NotifyBookAvailable     NotificationType = "book_available"
	NotifyHandoverStarted   NotificationType = "handover_started"
	NotifyHandoverInTransit NotificationType = "handover_in_transit"
	NotifyHandoverDelivered NotificationType = "handover_delivered"
	NotifyHandoverMessage   NotificationType = "handover_message"
	NotifyHandoverCancelled NotificationType = "handover_cancelled"
	NotifyScoreChanged      NotificationType = "score_changed"
	NotifyReviewReceived    NotificationType = "review_received"
	NotifyBookLost          NotificationType = "book_lost"
)

// Notification is an entry in a member's inbox.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// AuditAction names an administrative action recorded in the audit log.
type AuditAction string

const (
	AuditRequestApproved AuditAction = "request_approved"
	AuditRequestRejected AuditAction = "request_rejected"
	AuditScoreAdjusted   AuditAction = "score_adjusted"
	AuditRoleChanged     AuditAction = "role_changed"
	AuditBookCreated     AuditAction = "book_created"
	AuditBookUpdated     AuditAction = "book_updated"
	AuditBookDeleted     AuditAction = "book_deleted"
	AuditBooksImported   AuditAction = "books_imported"
	AuditBookLost        AuditAction = "book_lost"
)

// AuditLog is one row in the admin audit trail.
type AuditLog struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	Action     AuditAction     `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LeaderboardCategory selects how members are ranked.
type LeaderboardCategory string

const (
	LeaderboardHighestScores LeaderboardCategory = "highest_scores"
	LeaderboardTopReaders    LeaderboardCategory = "top_readers"
	LeaderboardTopSharers    LeaderboardCategory = "top_sharers"
	LeaderboardTopDonors     LeaderboardCategory = "top_donors"
	LeaderboardIdeaWriters   LeaderboardCategory = "idea_writers"
)

// LeaderboardCategories lists every category in display order.
var LeaderboardCategories = []LeaderboardCategory{
	LeaderboardHighestScores,
	LeaderboardTopReaders,
	LeaderboardTopSharers,
	LeaderboardTopDonors,
	LeaderboardIdeaWriters,
}

// Valid reports whether c is a known category.
func (c LeaderboardCategory) Valid() bool {
	for _, known := range LeaderboardCategories {
		if c == known {
			return true
		}
	}
	return false
}

// LeaderboardEntry is one ranked member.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Value     int    `json:"value"`
}

// LibraryStats summarizes the library for the admin dashboard.
type LibraryStats struct {
	TotalBooks       int `json:"total_books"`
	AvailableBooks   int `json:"available_books"`
	ReadingBooks     int `json:"reading_books"`
	RequestedBooks   int `json:"requested_books"`
	TotalUsers       int `json:"total_users"`
	PendingRequests  int `json:"pending_requests"`
	ActiveHandovers  int `json:"active_handovers"`
	OverdueReadings  int `json:"overdue_readings"`
	TotalIdeas       int `json:"total_ideas"`
	TotalReviews     int `json:"total_reviews"`
	TotalDonations   int `json:"total_donations"`
	LedgerEntryCount int `json:"ledger_entry_count"`
}
