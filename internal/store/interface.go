// Package store defines the persistence interface for the Pathagar server.
package store

import (
	"context"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
)

// Store is the transactional persistence layer.
//
// Reads made directly on a Store run outside any transaction. Every mutation
// that touches more than one row goes through InTx, which runs fn inside a
// single write transaction; fn must use the Repository it is given and
// nothing else.
type Store interface {
	Repository

	// InTx runs fn in one serialized write transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	Close() error
}

// Repository holds every read and write the services need.
// Versioned updates return ErrConcurrentModification when the row changed
// since it was read, and bump the in-memory Version on success.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	ListUsers(ctx context.Context, page Page) ([]*domain.User, int, error)
	ListAllUserIDs(ctx context.Context) ([]string, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUserProfile(ctx context.Context, user *domain.User) error
	UpdateUserRole(ctx context.Context, userID string, role domain.Role) error
	UpdateUserStanding(ctx context.Context, user *domain.User) error

	// Reputation ledger
	AppendLedgerEntry(ctx context.Context, entry *domain.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, userID string) ([]*domain.LedgerEntry, error)
	Leaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]*domain.LeaderboardEntry, error)

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBookByPhysicalCode(ctx context.Context, code string) (*domain.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) (map[string]*domain.Book, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]*domain.Book, int, error)
	RefreshBookRating(ctx context.Context, bookID string) error

	// Requests
	CreateRequest(ctx context.Context, req *domain.BookRequest) error
	GetRequest(ctx context.Context, id string) (*domain.BookRequest, error)
	GetPendingRequest(ctx context.Context, userID, bookID string) (*domain.BookRequest, error)
	GetLatestRequest(ctx context.Context, userID, bookID string) (*domain.BookRequest, error)
	UpdateRequest(ctx context.Context, req *domain.BookRequest) error
	ListPendingRequests(ctx context.Context, bookID string) ([]*domain.BookRequest, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]*domain.BookRequest, error)

	// Reading history
	CreateReading(ctx context.Context, entry *domain.ReadingEntry) error
	GetOpenReading(ctx context.Context, bookID string) (*domain.ReadingEntry, error)
	UpdateReading(ctx context.Context, entry *domain.ReadingEntry) error
	ListReadingsByUser(ctx context.Context, userID string) ([]*domain.ReadingEntry, error)
	ListReadingsByBook(ctx context.Context, bookID string) ([]*domain.ReadingEntry, error)
	ListOpenReadingsDueBefore(ctx context.Context, t time.Time) ([]*domain.ReadingEntry, error)

	// Handover threads
	CreateThread(ctx context.Context, thread *domain.HandoverThread) error
	GetThread(ctx context.Context, id string) (*domain.HandoverThread, error)
	GetActiveThread(ctx context.Context, bookID string) (*domain.HandoverThread, error)
	GetLatestThread(ctx context.Context, bookID string) (*domain.HandoverThread, error)
	UpdateThread(ctx context.Context, thread *domain.HandoverThread) error
	ListThreads(ctx context.Context, filter domain.ThreadFilter) ([]*domain.HandoverThread, error)
	CreateMessage(ctx context.Context, msg *domain.HandoverMessage) error
	ListMessages(ctx context.Context, threadID string) ([]*domain.HandoverMessage, error)

	// Bookmarks
	UpsertBookmark(ctx context.Context, b *domain.Bookmark) error
	DeleteBookmark(ctx context.Context, userID, bookID string, t domain.BookmarkType) error
	ListBookmarks(ctx context.Context, userID string) ([]*domain.Bookmark, error)
	PriorityLevels(ctx context.Context, bookID string) (map[string]int, error)

	// Ideas
	CreateIdea(ctx context.Context, idea *domain.Idea) error
	GetIdea(ctx context.Context, id string) (*domain.Idea, error)
	ListIdeasByBook(ctx context.Context, bookID string) ([]*domain.Idea, error)
	CreateIdeaVote(ctx context.Context, vote *domain.IdeaVote) error
	IncrementIdeaVotes(ctx context.Context, ideaID string, vote domain.VoteType) error

	// Reviews
	CreateReview(ctx context.Context, review *domain.Review) error
	ListReviewsByReviewee(ctx context.Context, userID string) ([]*domain.Review, error)
	ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.Review, error)

	// Donations
	CreateDonation(ctx context.Context, d *domain.Donation) error
	ListDonations(ctx context.Context, donorID string, publicOnly bool) ([]*domain.Donation, error)

	// Audit
	CreateAuditLog(ctx context.Context, entry *domain.AuditLog) error
	ListAuditLogs(ctx context.Context, page Page) ([]*domain.AuditLog, int, error)

	// Stats
	LibraryStats(ctx context.Context, now time.Time) (*domain.LibraryStats, error)
}

// EventEmitter is the interface for emitting live events.
// Services use this to broadcast changes without depending on SSE implementation details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer keeps the book search index in sync with the store.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexBook is a no-op.
func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

// DeleteBook is a no-op.
func (NoopSearchIndexer) DeleteBook(context.Context, string) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}
