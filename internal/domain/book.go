package domain

import "time"

// BookStatus is the circulation state of a physical book.
type BookStatus string

const (
	// BookStatusAvailable means nobody holds the book and nobody is waiting on a delivery.
	BookStatusAvailable BookStatus = "available"
	// BookStatusRequested means nobody holds the book but an approved reader is waiting for it.
	BookStatusRequested BookStatus = "requested"
	// BookStatusReading means a member currently holds the book.
	BookStatusReading BookStatus = "reading"
)

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusAvailable, BookStatusRequested, BookStatusReading:
		return true
	}
	return false
}

// DefaultMaxReadingDays is the reading period when a book does not set one.
const DefaultMaxReadingDays = 14

// Book is a physical book in the community library.
type Book struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn,omitempty"`
	PhysicalCode    string     `json:"physical_code"`
	Category        string     `json:"category,omitempty"`
	Description     string     `json:"description,omitempty"`
	CoverURL        string     `json:"cover_url,omitempty"`
	Tags            []string   `json:"tags"`
	Status          BookStatus `json:"status"`
	CurrentHolderID string     `json:"current_holder_id,omitempty"`
	MaxReadingDays  int        `json:"max_reading_days"`
	TotalReads      int        `json:"total_reads"`
	AverageRating   float64    `json:"average_rating"`
	CreatedBy       string     `json:"created_by,omitempty"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Version int64 `json:"-"`
}

// IsHeld reports whether a member currently holds the book.
func (b *Book) IsHeld() bool {
	return b.CurrentHolderID != ""
}

// IsArchived reports whether the book has left circulation.
func (b *Book) IsArchived() bool {
	return b.ArchivedAt != nil
}

// AssignHolder hands the book to userID.
func (b *Book) AssignHolder(userID string) {
	b.CurrentHolderID = userID
	b.Status = BookStatusReading
}

// Release clears the holder. awaitingDelivery keeps the book reserved for an
// approved next reader instead of making it available.
func (b *Book) Release(awaitingDelivery bool) {
	b.CurrentHolderID = ""
	if awaitingDelivery {
		b.Status = BookStatusRequested
	} else {
		b.Status = BookStatusAvailable
	}
}

// CheckInvariant reports whether status and holder agree.
func (b *Book) CheckInvariant() bool {
	if b.Status == BookStatusReading {
		return b.CurrentHolderID != ""
	}
	return b.CurrentHolderID == ""
}

// ReadingPeriod returns the book's lending period.
func (b *Book) ReadingPeriod() time.Duration {
	days := b.MaxReadingDays
	if days <= 0 {
		days = DefaultMaxReadingDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// BookFilter narrows book listings.
type BookFilter struct {
	IDs          []string // restrict to these IDs, in this order (search results)
	CategorySlug string
	Status       BookStatus
	HolderID     string
	Offset       int
	Limit        int
}

// ReadingEndReason records how a reading period finished.
type ReadingEndReason string

const (
	// ReadingEndReturned means the reader returned the book to the library.
	ReadingEndReturned ReadingEndReason = "returned"
	// ReadingEndHandedOver means the reader passed the book to the next reader.
	ReadingEndHandedOver ReadingEndReason = "handed_over"
	// ReadingEndLost means the book was reported lost.
	ReadingEndLost ReadingEndReason = "lost"
)

// ReadingEntry is one reader's custody of one book.
type ReadingEntry struct {
	ID             string           `json:"id"`
	BookID         string           `json:"book_id"`
	UserID         string           `json:"user_id"`
	RequestID      string           `json:"request_id,omitempty"`
	StartDate      time.Time        `json:"start_date"`
	DueDate        time.Time        `json:"due_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	ReturnedOnTime *bool            `json:"returned_on_time,omitempty"`
	EndReason      ReadingEndReason `json:"end_reason,omitempty"`
}

// IsOpen reports whether the reading is still in progress.
func (r *ReadingEntry) IsOpen() bool {
	return r.EndDate == nil
}

// Close ends the reading at t and records whether it was on time.
func (r *ReadingEntry) Close(t time.Time, reason ReadingEndReason) ReputationEvent {
	r.EndDate = &t
	r.EndReason = reason
	event := ReturnEvent(r.DueDate, t)
	onTime := event == EventReturnOnTime
	r.ReturnedOnTime = &onTime
	return event
}

// DaysRemaining returns whole days until due, negative when overdue.
func (r *ReadingEntry) DaysRemaining(now time.Time) int {
	d := r.DueDate.Sub(now)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
