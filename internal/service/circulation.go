package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/sse"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// CirculationService handles books coming back to the library: returns and
// loss reports, plus the reading history views.
type CirculationService struct {
	store      store.Store
	reputation *ReputationService
	notifier   *NotificationService
	indexer    store.SearchIndexer
	ranker     ranker
	logger     *slog.Logger
	clock      func() time.Time
}

// NewCirculationService creates a new circulation service.
func NewCirculationService(
	store store.Store,
	reputation *ReputationService,
	notifier *NotificationService,
	indexer store.SearchIndexer,
	policy config.Policy,
	logger *slog.Logger,
) *CirculationService {
	return &CirculationService{
		store:      store,
		reputation: reputation,
		notifier:   notifier,
		indexer:    indexer,
		ranker:     ranker{weights: policy.Ranking},
		logger:     logger,
		clock:      time.Now,
	}
}

// ReturnBook ends the holder's reading. When an approved next reader is
// waiting the book is left for them; otherwise it goes back to available and
// everyone queued for it hears so.
func (s *CirculationService) ReturnBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	now := s.clock()
	out := &outbox{}
	var book *domain.Book

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		book, err = tx.GetBook(ctx, bookID)
		if err != nil {
			return notFound(err, "book not found")
		}
		if book.CurrentHolderID != userID {
			return domainerrors.NotHolder("only the current holder can return this book")
		}

		reading, err := tx.GetOpenReading(ctx, bookID)
		if err != nil {
			return fmt.Errorf("load open reading for %s: %w", bookID, err)
		}
		event := reading.Close(now, domain.ReadingEndReturned)
		if err := tx.UpdateReading(ctx, reading); err != nil {
			return err
		}
		if _, err := s.reputation.apply(ctx, tx, domain.ScoreChange{
			UserID:   userID,
			Event:    event,
			RefType:  "book",
			RefID:    bookID,
			Counters: domain.CounterDelta{BooksReceived: 1},
		}, out); err != nil {
			return err
		}
		book.TotalReads++

		awaiting, err := s.settleThreadOnReturn(ctx, tx, book, userID, now, out)
		if err != nil {
			return err
		}
		book.Release(awaiting)
		if err := tx.UpdateBook(ctx, book); err != nil {
			return err
		}

		if !awaiting {
			if err := s.announceAvailable(ctx, tx, book, now, out); err != nil {
				return err
			}
		}
		out.emit(sse.NewBookUpdatedEvent(book))
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	s.logger.Info("book returned", "book_id", bookID, "user_id", userID, "status", book.Status)
	return book, nil
}

// settleThreadOnReturn reports whether an approved next reader is waiting.
// Such a thread moves to in transit since the book now sits at the library
// for pickup; any other active thread is cancelled.
func (s *CirculationService) settleThreadOnReturn(ctx context.Context, tx store.Repository, book *domain.Book, userID string, now time.Time, out *outbox) (bool, error) {
	thread, err := tx.GetActiveThread(ctx, book.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var next *domain.BookRequest
	if thread.NextRequestID != "" {
		next, err = tx.GetRequest(ctx, thread.NextRequestID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
	}
	if next == nil || next.Status != domain.RequestApproved {
		return false, cancelThread(ctx, tx, thread,
			fmt.Sprintf("%s returned the book to the library. This handover is cancelled.", memberName(ctx, tx, userID)),
			now, out)
	}

	if thread.DeliveryStatus == domain.DeliveryNotStarted {
		thread.DeliveryStatus = domain.DeliveryInTransit
		thread.UpdatedAt = now
		if err := tx.UpdateThread(ctx, thread); err != nil {
			return false, err
		}
	}
	if err := postSystemMessage(ctx, tx, thread,
		fmt.Sprintf("%s returned the book to the library. It is waiting there for %s.",
			memberName(ctx, tx, userID), memberName(ctx, tx, thread.NextHolderID)), now, out); err != nil {
		return false, err
	}
	out.notify(thread.NextHolderID, domain.NotifyHandoverInTransit, "Book ready for pickup",
		fmt.Sprintf("%q is waiting for you at the library. Confirm delivery once you have it.", book.Title),
		"/handover/"+thread.ID)
	out.threadChanged(thread)
	return true, nil
}

// announceAvailable tells pending requesters the book is back, highest
// priority first.
func (s *CirculationService) announceAvailable(ctx context.Context, tx store.Repository, book *domain.Book, now time.Time, out *outbox) error {
	pending, err := tx.ListPendingRequests(ctx, book.ID)
	if err != nil {
		return err
	}
	ranked, err := s.ranker.rank(ctx, tx, pending, now)
	if err != nil {
		return err
	}
	for _, r := range ranked {
		out.notify(r.UserID, domain.NotifyBookAvailable, "Book available",
			fmt.Sprintf("%q is back at the library. Your request is still in the queue.", book.Title),
			"/books/"+book.ID)
	}
	return nil
}

// ReportLost takes a book out of circulation. The holder, if any, is
// charged for the loss and every open request and handover is closed.
func (s *CirculationService) ReportLost(ctx context.Context, adminID, bookID string) (*domain.Book, error) {
	now := s.clock()
	out := &outbox{}
	var book *domain.Book

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		book, err = tx.GetBook(ctx, bookID)
		if err != nil {
			return notFound(err, "book not found")
		}
		if book.IsArchived() {
			return domainerrors.StateConflict("the book is already out of circulation")
		}
		holderID := book.CurrentHolderID

		if holderID != "" {
			reading, err := tx.GetOpenReading(ctx, bookID)
			switch {
			case err == nil:
				reading.Close(now, domain.ReadingEndLost)
				onTime := false
				reading.ReturnedOnTime = &onTime
				if err := tx.UpdateReading(ctx, reading); err != nil {
					return err
				}
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
			if _, err := s.reputation.apply(ctx, tx, domain.ScoreChange{
				UserID:  holderID,
				Event:   domain.EventBookLost,
				ActorID: adminID,
				RefType: "book",
				RefID:   bookID,
			}, out); err != nil {
				return err
			}
			out.notify(holderID, domain.NotifyBookLost, "Book reported lost",
				fmt.Sprintf("%q was reported lost while in your care.", book.Title), "/books/"+bookID)
		}

		thread, err := tx.GetActiveThread(ctx, bookID)
		switch {
		case err == nil:
			if thread.NextRequestID != "" {
				if next, err := tx.GetRequest(ctx, thread.NextRequestID); err == nil && next.Status == domain.RequestApproved {
					next.Cancel(now, "book reported lost")
					if err := tx.UpdateRequest(ctx, next); err != nil {
						return err
					}
				}
			}
			if err := cancelThread(ctx, tx, thread, "The book was reported lost. This handover is cancelled.", now, out); err != nil {
				return err
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		pending, err := tx.ListPendingRequests(ctx, bookID)
		if err != nil {
			return err
		}
		for _, req := range pending {
			req.Cancel(now, "book reported lost")
			if err := tx.UpdateRequest(ctx, req); err != nil {
				return err
			}
			out.notify(req.UserID, domain.NotifyBookLost, "Request closed",
				fmt.Sprintf("%q was reported lost, so your request was closed.", book.Title), "/books/"+bookID)
		}

		book.Release(false)
		book.ArchivedAt = &now
		if err := tx.UpdateBook(ctx, book); err != nil {
			return err
		}
		out.emit(sse.NewBookDeletedEvent(book.ID, now))

		return recordAudit(ctx, tx, now, adminID, domain.AuditBookLost, "book", bookID, map[string]any{
			"holder_id":         holderID,
			"cancelled_pending": len(pending),
		})
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	if err := s.indexer.DeleteBook(ctx, bookID); err != nil {
		s.logger.Warn("failed to remove lost book from search index", "book_id", bookID, "error", err)
	}
	s.notifier.Flush(ctx, out)
	s.logger.Info("book reported lost", "book_id", bookID, "admin_id", adminID)
	return book, nil
}

// ReadingStatus describes who holds a book and until when.
type ReadingStatus struct {
	BookID        string            `json:"book_id"`
	Status        domain.BookStatus `json:"status"`
	Holder        *domain.User      `json:"holder,omitempty"`
	StartDate     *time.Time        `json:"start_date,omitempty"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	DaysRemaining *int              `json:"days_remaining,omitempty"`
	IsOverdue     bool              `json:"is_overdue"`
}

// ReadingStatus returns the current custody of a book.
func (s *CirculationService) ReadingStatus(ctx context.Context, bookID string) (*ReadingStatus, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, notFound(err, "book not found")
	}
	status := &ReadingStatus{BookID: book.ID, Status: book.Status}
	if !book.IsHeld() {
		return status, nil
	}

	if holder, err := s.store.GetUser(ctx, book.CurrentHolderID); err == nil {
		holder.Email = ""
		status.Holder = holder
	}
	reading, err := s.store.GetOpenReading(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load open reading: %w", err)
	}
	now := s.clock()
	days := reading.DaysRemaining(now)
	status.StartDate = &reading.StartDate
	status.DueDate = &reading.DueDate
	status.DaysRemaining = &days
	status.IsOverdue = now.After(reading.DueDate)
	return status, nil
}

// ReadingRecord is one reading history entry joined with its book.
type ReadingRecord struct {
	*domain.ReadingEntry
	Book *domain.Book `json:"book,omitempty"`
}

// ReadingHistory returns the member's readings, newest first.
func (s *CirculationService) ReadingHistory(ctx context.Context, userID string) ([]*ReadingRecord, error) {
	readings, err := s.store.ListReadingsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	bookIDs := make([]string, 0, len(readings))
	for _, r := range readings {
		bookIDs = append(bookIDs, r.BookID)
	}
	books, err := s.store.GetBooksByIDs(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	records := make([]*ReadingRecord, 0, len(readings))
	for _, r := range readings {
		records = append(records, &ReadingRecord{ReadingEntry: r, Book: books[r.BookID]})
	}
	return records, nil
}

// BooksOnHold returns the books the member currently holds.
func (s *CirculationService) BooksOnHold(ctx context.Context, userID string) ([]*domain.Book, error) {
	books, _, err := s.store.ListBooks(ctx, domain.BookFilter{HolderID: userID, Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("list held books: %w", err)
	}
	return books, nil
}
