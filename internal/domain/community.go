package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookmarkType distinguishes the kinds of bookmark a member can set.
type BookmarkType string

const (
	BookmarkLike     BookmarkType = "like"
	BookmarkBookmark BookmarkType = "bookmark"
	BookmarkPriority BookmarkType = "priority"
)

// Valid reports whether t is a known bookmark type.
func (t BookmarkType) Valid() bool {
	return t == BookmarkLike || t == BookmarkBookmark || t == BookmarkPriority
}

// Priority level bounds for priority bookmarks.
const (
	MinPriorityLevel = 1
	MaxPriorityLevel = 5
)

// Bookmark marks a member's interest in a book.
type Bookmark struct {
	UserID        string       `json:"user_id"`
	BookID        string       `json:"book_id"`
	Type          BookmarkType `json:"bookmark_type"`
	PriorityLevel int          `json:"priority_level,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	Book          *Book        `json:"book,omitempty"`
}

// Idea is a reading insight a member posts about a book.
type Idea struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	Author    *User     `json:"author,omitempty"`
}

// VoteType is the direction of an idea vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Valid reports whether v is up or down.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// Event returns the reputation event the idea author receives for this vote.
func (v VoteType) Event() ReputationEvent {
	if v == VoteDown {
		return EventIdeaDownvoted
	}
	return EventIdeaUpvoted
}

// IdeaVote is one member's final vote on an idea.
type IdeaVote struct {
	IdeaID    string    `json:"idea_id"`
	UserID    string    `json:"user_id"`
	VoteType  VoteType  `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Review rating thresholds.
const (
	MinRating               = 1
	MaxRating               = 5
	PositiveReviewThreshold = 4.0
	NegativeReviewThreshold = 2.0
)

// Review is one member's rating of another after an exchange.
type Review struct {
	ID                  string    `json:"id"`
	ReviewerID          string    `json:"reviewer_id"`
	RevieweeID          string    `json:"reviewee_id"`
	BookID              string    `json:"book_id,omitempty"`
	BehaviorRating      int       `json:"behavior_rating"`
	BookConditionRating int       `json:"book_condition_rating"`
	CommunicationRating int       `json:"communication_rating"`
	Comment             string    `json:"comment,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	Reviewer            *User     `json:"reviewer,omitempty"`
}

// Average returns the mean of the three ratings.
func (r *Review) Average() float64 {
	return float64(r.BehaviorRating+r.BookConditionRating+r.CommunicationRating) / 3
}

// IsPositive reports whether the review earns the reviewer a bonus.
func (r *Review) IsPositive() bool {
	return r.Average() >= PositiveReviewThreshold
}

// IsNegative reports whether the review costs the reviewee.
func (r *Review) IsNegative() bool {
	return r.Average() <= NegativeReviewThreshold
}

// DonationType distinguishes money from book donations.
type DonationType string

const (
	DonationMoney DonationType = "money"
	DonationBook  DonationType = "book"
)

// Valid reports whether t is a known donation type.
func (t DonationType) Valid() bool {
	return t == DonationMoney || t == DonationBook
}

// Event returns the reputation event the donor receives.
func (t DonationType) Event() ReputationEvent {
	if t == DonationBook {
		return EventDonateBook
	}
	return EventDonateMoney
}

// DefaultCurrency is used when a money donation names none.
const DefaultCurrency = "USD"

// Donation records a gift to the library.
type Donation struct {
	ID           string          `json:"id"`
	DonorID      string          `json:"donor_id"`
	DonationType DonationType    `json:"donation_type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	BookTitle    string          `json:"book_title,omitempty"`
	Message      string          `json:"message,omitempty"`
	IsPublic     bool            `json:"is_public"`
	CreatedAt    time.Time       `json:"created_at"`
	Donor        *User           `json:"donor,omitempty"`
}
