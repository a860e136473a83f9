package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleAdmin grants full administrative access.
	RoleAdmin Role = "admin"
	// RoleMember grants standard user access.
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// InitialSuccessScore is the score every account starts with.
const InitialSuccessScore = 100

// MinRequestScore is the lowest success score that may still request books.
const MinRequestScore = 20

// User represents a community member.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Location     string    `json:"location,omitempty"`
	Interests    []string  `json:"interests"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// SuccessScore is only ever changed by appending a ledger entry.
	SuccessScore int `json:"success_score"`
	UserStats

	// Version guards score and counter updates against concurrent writers.
	Version int64 `json:"-"`
}

// UserStats holds the activity counters shown on profiles and leaderboards.
type UserStats struct {
	BooksShared     int `json:"books_shared"`
	BooksReceived   int `json:"books_received"`
	TotalUpvotes    int `json:"total_upvotes"`
	TotalDownvotes  int `json:"total_downvotes"`
	IdeasPosted     int `json:"ideas_posted"`
	ReviewsReceived int `json:"reviews_received"`
	DonationsMade   int `json:"donations_made"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanRequestBooks reports whether the user clears the reputation gate.
// The boundary is inclusive: a score of exactly MinRequestScore passes.
func (u *User) CanRequestBooks() bool {
	return u.SuccessScore >= MinRequestScore
}

// Name returns the best available name to display for the user.
func (u *User) Name() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// HasInterest reports whether category is one of the user's interests.
// Comparison is on normalized category slugs.
func (u *User) HasInterest(categorySlug string) bool {
	if categorySlug == "" {
		return false
	}
	for _, interest := range u.Interests {
		if interest == categorySlug {
			return true
		}
	}
	return false
}

// CounterDelta describes increments to apply to a user's activity counters.
// Zero fields are left untouched.
type CounterDelta struct {
	BooksShared     int
	BooksReceived   int
	TotalUpvotes    int
	TotalDownvotes  int
	IdeasPosted     int
	ReviewsReceived int
	DonationsMade   int
}

// IsZero reports whether the delta changes nothing.
func (d CounterDelta) IsZero() bool {
	return d == CounterDelta{}
}

// Apply adds the delta to the stats in place.
func (s *UserStats) Apply(d CounterDelta) {
	s.BooksShared += d.BooksShared
	s.BooksReceived += d.BooksReceived
	s.TotalUpvotes += d.TotalUpvotes
	s.TotalDownvotes += d.TotalDownvotes
	s.IdeasPosted += d.IdeasPosted
	s.ReviewsReceived += d.ReviewsReceived
	s.DonationsMade += d.DonationsMade
}
