// Package service holds the business logic of the book lifecycle: the
// registry, the request queue, handovers and the reputation ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/id"
	"github.com/amarpathagar/pathagar-server/internal/normalize"
	"github.com/amarpathagar/pathagar-server/internal/sse"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// BookSearcher resolves a free-text query to matching book IDs, best first.
type BookSearcher interface {
	MatchingIDs(ctx context.Context, q string) ([]string, error)
}

// BookService orchestrates the book catalog.
type BookService struct {
	store    store.Store
	indexer  store.SearchIndexer
	searcher BookSearcher
	notifier *NotificationService
	logger   *slog.Logger
	clock    func() time.Time
}

// NewBookService creates a new book service. searcher may be nil, in which
// case text search falls back to listing.
func NewBookService(
	store store.Store,
	indexer store.SearchIndexer,
	searcher BookSearcher,
	notifier *NotificationService,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:    store,
		indexer:  indexer,
		searcher: searcher,
		notifier: notifier,
		logger:   logger,
		clock:    time.Now,
	}
}

// CreateBookRequest holds the fields for a new book.
type CreateBookRequest struct {
	Title          string   `json:"title" validate:"required,notblank,max=500"`
	Author         string   `json:"author" validate:"required,notblank,max=300"`
	ISBN           string   `json:"isbn,omitempty" validate:"max=20"`
	PhysicalCode   string   `json:"physical_code" validate:"required,notblank,max=64"`
	Category       string   `json:"category,omitempty" validate:"max=100"`
	Description    string   `json:"description,omitempty" validate:"max=20000"`
	CoverURL       string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	Tags           []string `json:"tags,omitempty" validate:"max=30,dive,max=50"`
	MaxReadingDays int      `json:"max_reading_days,omitempty" validate:"omitempty,min=1,max=365"`
}

func (req CreateBookRequest) toBook(bookID, createdBy string, now time.Time) *domain.Book {
	days := req.MaxReadingDays
	if days == 0 {
		days = domain.DefaultMaxReadingDays
	}
	return &domain.Book{
		ID:             bookID,
		Title:          strings.TrimSpace(req.Title),
		Author:         strings.TrimSpace(req.Author),
		ISBN:           strings.TrimSpace(req.ISBN),
		PhysicalCode:   normalize.PhysicalCode(req.PhysicalCode),
		Category:       strings.TrimSpace(req.Category),
		Description:    normalize.Description(req.Description),
		CoverURL:       req.CoverURL,
		Tags:           normalize.Tags(req.Tags),
		Status:         domain.BookStatusAvailable,
		MaxReadingDays: days,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// createInTx inserts one book. Duplicate physical codes are a conflict.
func createInTx(ctx context.Context, tx store.Repository, req CreateBookRequest, adminID string, now time.Time) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}
	book := req.toBook(bookID, adminID, now)
	if book.PhysicalCode == "" {
		return nil, domainerrors.Validation("physical_code must contain letters or digits")
	}
	if err := tx.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists(fmt.Sprintf("a book with physical code %s already exists", book.PhysicalCode))
		}
		return nil, err
	}
	return book, nil
}

// Create adds a book to the catalog.
func (s *BookService) Create(ctx context.Context, adminID string, req CreateBookRequest) (*domain.Book, error) {
	now := s.clock()
	var book *domain.Book

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		if book, err = createInTx(ctx, tx, req, adminID, now); err != nil {
			return err
		}
		return recordAudit(ctx, tx, now, adminID, domain.AuditBookCreated, "book", book.ID, map[string]any{
			"title":         book.Title,
			"physical_code": book.PhysicalCode,
		})
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.afterWrite(ctx, sse.NewBookCreatedEvent(book), book)
	s.logger.Info("book created", "book_id", book.ID, "physical_code", book.PhysicalCode)
	return book, nil
}

// afterWrite refreshes the search index and announces the change.
func (s *BookService) afterWrite(ctx context.Context, event sse.Event, books ...*domain.Book) {
	for _, b := range books {
		if err := s.indexer.IndexBook(ctx, b); err != nil {
			s.logger.Warn("failed to index book", "book_id", b.ID, "error", err)
		}
	}
	s.notifier.Flush(ctx, &outbox{events: []sse.Event{event}})
}

// UpdateBookRequest holds optional field changes. Nil fields are left alone.
type UpdateBookRequest struct {
	Title          *string   `json:"title,omitempty" validate:"omitempty,notblank,max=500"`
	Author         *string   `json:"author,omitempty" validate:"omitempty,notblank,max=300"`
	ISBN           *string   `json:"isbn,omitempty" validate:"omitempty,max=20"`
	PhysicalCode   *string   `json:"physical_code,omitempty" validate:"omitempty,notblank,max=64"`
	Category       *string   `json:"category,omitempty" validate:"omitempty,max=100"`
	Description    *string   `json:"description,omitempty" validate:"omitempty,max=20000"`
	CoverURL       *string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	Tags           *[]string `json:"tags,omitempty"`
	MaxReadingDays *int      `json:"max_reading_days,omitempty" validate:"omitempty,min=1,max=365"`
}

func (req UpdateBookRequest) applyTo(book *domain.Book) {
	if req.Title != nil {
		book.Title = strings.TrimSpace(*req.Title)
	}
	if req.Author != nil {
		book.Author = strings.TrimSpace(*req.Author)
	}
	if req.ISBN != nil {
		book.ISBN = strings.TrimSpace(*req.ISBN)
	}
	if req.PhysicalCode != nil {
		book.PhysicalCode = normalize.PhysicalCode(*req.PhysicalCode)
	}
	if req.Category != nil {
		book.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		book.Description = normalize.Description(*req.Description)
	}
	if req.CoverURL != nil {
		book.CoverURL = *req.CoverURL
	}
	if req.Tags != nil {
		book.Tags = normalize.Tags(*req.Tags)
	}
	if req.MaxReadingDays != nil {
		book.MaxReadingDays = *req.MaxReadingDays
	}
}

// Update changes catalog fields. Circulation fields are not editable here.
func (s *BookService) Update(ctx context.Context, adminID, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	now := s.clock()
	var book *domain.Book

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		book, err = tx.GetBook(ctx, bookID)
		if err != nil {
			return notFound(err, "book not found")
		}
		if book.IsArchived() {
			return domainerrors.NotFound("book not found")
		}
		req.applyTo(book)
		if book.PhysicalCode == "" {
			return domainerrors.Validation("physical_code must contain letters or digits")
		}
		book.UpdatedAt = now
		if err := tx.UpdateBook(ctx, book); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domainerrors.AlreadyExists(fmt.Sprintf("a book with physical code %s already exists", book.PhysicalCode))
			}
			return err
		}
		return recordAudit(ctx, tx, now, adminID, domain.AuditBookUpdated, "book", book.ID, req)
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.afterWrite(ctx, sse.NewBookUpdatedEvent(book), book)
	return book, nil
}

// Delete archives a book that nobody holds or awaits. Pending requests for
// it are cancelled.
func (s *BookService) Delete(ctx context.Context, adminID, bookID string) error {
	now := s.clock()
	out := &outbox{}

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return notFound(err, "book not found")
		}
		if book.IsArchived() {
			return domainerrors.NotFound("book not found")
		}
		if book.Status != domain.BookStatusAvailable {
			return domainerrors.StateConflictf("book is %s and cannot be removed", book.Status)
		}

		pending, err := tx.ListPendingRequests(ctx, bookID)
		if err != nil {
			return err
		}
		for _, req := range pending {
			req.Cancel(now, "book removed from the library")
			if err := tx.UpdateRequest(ctx, req); err != nil {
				return err
			}
			out.notify(req.UserID, domain.NotifyRequestRejected, "Request closed",
				fmt.Sprintf("%q was removed from the library, so your request was closed.", book.Title), "/books")
		}

		book.ArchivedAt = &now
		book.UpdatedAt = now
		if err := tx.UpdateBook(ctx, book); err != nil {
			return err
		}
		out.emit(sse.NewBookDeletedEvent(bookID, now))
		return recordAudit(ctx, tx, now, adminID, domain.AuditBookDeleted, "book", bookID, map[string]any{
			"title":             book.Title,
			"cancelled_pending": len(pending),
		})
	})
	if err != nil {
		return mapStoreErr(err)
	}

	if err := s.indexer.DeleteBook(ctx, bookID); err != nil {
		s.logger.Warn("failed to remove book from search index", "book_id", bookID, "error", err)
	}
	s.notifier.Flush(ctx, out)
	s.logger.Info("book deleted", "book_id", bookID, "admin_id", adminID)
	return nil
}

// Get returns a book in circulation.
func (s *BookService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, notFound(err, "book not found")
	}
	if book.IsArchived() {
		return nil, domainerrors.NotFound("book not found")
	}
	return book, nil
}

// BookQuery filters the catalog listing. Page is 1-based.
type BookQuery struct {
	Search   string
	Category string
	Status   domain.BookStatus
	Page     int
	Limit    int
}

// BookPage is one page of the catalog.
type BookPage struct {
	Books []*domain.Book `json:"books"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// List returns a page of the catalog. With a search term the results come
// back in relevance order.
func (s *BookService) List(ctx context.Context, q BookQuery) (*BookPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, domainerrors.Validationf("unknown status %q", q.Status)
	}
	page := store.PageFromNumber(q.Page, q.Limit)
	filter := domain.BookFilter{
		CategorySlug: normalize.Category(q.Category),
		Status:       q.Status,
		Offset:       page.Offset,
		Limit:        page.Limit,
	}

	if term := strings.TrimSpace(q.Search); term != "" && s.searcher != nil {
		ids, err := s.searcher.MatchingIDs(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("search books: %w", err)
		}
		filter.IDs = ids
		if filter.IDs == nil {
			filter.IDs = []string{}
		}
	}

	books, total, err := s.store.ListBooks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	return &BookPage{
		Books: books,
		Total: total,
		Page:  page.Offset/page.Limit + 1,
		Limit: page.Limit,
	}, nil
}

// BatchFailure explains why one item of a batch import was skipped.
type BatchFailure struct {
	Index        int    `json:"index"`
	PhysicalCode string `json:"physical_code,omitempty"`
	Error        string `json:"error"`
}

// BatchResult reports the outcome of a batch import.
type BatchResult struct {
	Created []*domain.Book  `json:"created"`
	Failed  []*BatchFailure `json:"failed"`
}

// BatchImport creates many books in one transaction. Invalid or duplicate
// items are reported and skipped; the rest are created.
func (s *BookService) BatchImport(ctx context.Context, adminID string, items []CreateBookRequest) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, domainerrors.Validation("no books to import")
	}
	now := s.clock()
	var result *BatchResult

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		result = &BatchResult{Created: []*domain.Book{}, Failed: []*BatchFailure{}}
		seen := make(map[string]bool, len(items))

		for i, item := range items {
			code := normalize.PhysicalCode(item.PhysicalCode)
			if code != "" && seen[code] {
				result.Failed = append(result.Failed, &BatchFailure{Index: i, PhysicalCode: code, Error: "duplicate physical code in batch"})
				continue
			}
			book, err := createInTx(ctx, tx, item, adminID, now)
			if err != nil {
				var domainErr *domainerrors.Error
				if !errors.As(err, &domainErr) {
					return err
				}
				result.Failed = append(result.Failed, &BatchFailure{Index: i, PhysicalCode: code, Error: domainErr.Message})
				continue
			}
			seen[code] = true
			result.Created = append(result.Created, book)
		}

		if len(result.Created) == 0 {
			return nil
		}
		return recordAudit(ctx, tx, now, adminID, domain.AuditBooksImported, "book", "", map[string]any{
			"created": len(result.Created),
			"failed":  len(result.Failed),
		})
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	for _, b := range result.Created {
		s.afterWrite(ctx, sse.NewBookCreatedEvent(b), b)
	}
	s.logger.Info("books imported", "created", len(result.Created), "failed", len(result.Failed))
	return result, nil
}

// AllBooks walks the whole catalog page by page. Used to rebuild the search
// index.
func (s *BookService) AllBooks(ctx context.Context) ([]*domain.Book, error) {
	var all []*domain.Book
	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		books, total, err := s.store.ListBooks(ctx, domain.BookFilter{Offset: offset, Limit: pageSize})
		if err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
		all = append(all, books...)
		if len(books) < pageSize || len(all) >= total {
			return all, nil
		}
	}
}
