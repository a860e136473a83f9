package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/id"
	"github.com/amarpathagar/pathagar-server/internal/normalize"
	"github.com/amarpathagar/pathagar-server/internal/ranking"
	"github.com/amarpathagar/pathagar-server/internal/sse"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// ranker scores pending requests with the configured weights.
type ranker struct {
	weights ranking.Weights
}

// rank fills PriorityScore on each request and returns them joined with
// requester and book, highest priority first.
func (r ranker) rank(ctx context.Context, repo store.Repository, reqs []*domain.BookRequest, now time.Time) ([]*domain.RankedRequest, error) {
	if len(reqs) == 0 {
		return []*domain.RankedRequest{}, nil
	}

	userIDs := make([]string, 0, len(reqs))
	bookIDs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		userIDs = append(userIDs, req.UserID)
		bookIDs = append(bookIDs, req.BookID)
	}
	slices.Sort(userIDs)
	slices.Sort(bookIDs)
	users, err := repo.GetUsersByIDs(ctx, slices.Compact(userIDs))
	if err != nil {
		return nil, fmt.Errorf("load requesters: %w", err)
	}
	books, err := repo.GetBooksByIDs(ctx, slices.Compact(bookIDs))
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	levels := make(map[string]map[string]int)
	ranked := make([]*domain.RankedRequest, 0, len(reqs))
	for _, req := range reqs {
		user, book := users[req.UserID], books[req.BookID]
		if user == nil || book == nil {
			continue
		}
		bookLevels, ok := levels[book.ID]
		if !ok {
			if bookLevels, err = repo.PriorityLevels(ctx, book.ID); err != nil {
				return nil, fmt.Errorf("load priority bookmarks: %w", err)
			}
			levels[book.ID] = bookLevels
		}
		req.PriorityScore = r.score(user, book, bookLevels[user.ID], req.RequestedAt, now)
		ranked = append(ranked, &domain.RankedRequest{BookRequest: req, User: user, Book: book})
	}
	ranking.Sort(ranked)
	return ranked, nil
}

func (r ranker) score(user *domain.User, book *domain.Book, level int, requestedAt, now time.Time) float64 {
	return ranking.Score(r.weights, ranking.Input{
		SuccessScore:  user.SuccessScore,
		RequestedAt:   requestedAt,
		Now:           now,
		InterestMatch: user.HasInterest(normalize.Category(book.Category)),
		PriorityLevel: level,
	})
}

// RequestService manages borrow requests and admin decisions on them.
type RequestService struct {
	store    store.Store
	notifier *NotificationService
	ranker   ranker
	logger   *slog.Logger
	clock    func() time.Time
}

// NewRequestService creates a new request service.
func NewRequestService(store store.Store, notifier *NotificationService, policy config.Policy, logger *slog.Logger) *RequestService {
	return &RequestService{
		store:    store,
		notifier: notifier,
		ranker:   ranker{weights: policy.Ranking},
		logger:   logger,
		clock:    time.Now,
	}
}

// Request files a pending borrow request for an available book.
func (s *RequestService) Request(ctx context.Context, userID, bookID string) (*domain.BookRequest, error) {
	now := s.clock()
	out := &outbox{}
	var req *domain.BookRequest

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}
		if !user.CanRequestBooks() {
			return domainerrors.InsufficientReputation(fmt.Sprintf(
				"your success score is %d, at least %d is needed to request books",
				user.SuccessScore, domain.MinRequestScore))
		}

		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return notFound(err, "book not found")
		}

		if _, err := tx.GetPendingRequest(ctx, userID, bookID); err == nil {
			return domainerrors.DuplicatePending("you already have a pending request for this book")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if book.IsArchived() || book.Status != domain.BookStatusAvailable {
			return domainerrors.NotAvailable("this book is not available for request")
		}

		levels, err := tx.PriorityLevels(ctx, bookID)
		if err != nil {
			return err
		}
		reqID, err := id.Generate(id.PrefixRequest)
		if err != nil {
			return fmt.Errorf("generate request ID: %w", err)
		}
		req = &domain.BookRequest{
			ID:          reqID,
			BookID:      bookID,
			UserID:      userID,
			Status:      domain.RequestPending,
			RequestedAt: now,
			UpdatedAt:   now,
		}
		req.PriorityScore = s.ranker.score(user, book, levels[userID], now, now)

		if err := tx.CreateRequest(ctx, req); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domainerrors.DuplicatePending("you already have a pending request for this book")
			}
			return err
		}
		out.emit(sse.NewRequestCreatedEvent(req))
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	s.logger.Info("book requested", "request_id", req.ID, "book_id", bookID, "user_id", userID)
	return req, nil
}

// Cancel withdraws the member's pending request for a book. When the latest
// request is already resolved it is returned unchanged.
func (s *RequestService) Cancel(ctx context.Context, userID, bookID string) (*domain.BookRequest, error) {
	now := s.clock()
	out := &outbox{}
	var req *domain.BookRequest

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		req, err = tx.GetLatestRequest(ctx, userID, bookID)
		if err != nil {
			return notFound(err, "you have no request for this book")
		}
		if !req.IsPending() {
			return nil
		}
		req.Cancel(now, "cancelled by requester")
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		return s.releaseProvisionalThread(ctx, tx, req, now, out)
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	return req, nil
}

// Approve approves a pending request. An unheld book goes straight to the
// requester; a held book gets a handover thread naming the requester as the
// next holder.
func (s *RequestService) Approve(ctx context.Context, adminID, requestID string, dueDate time.Time) (*domain.BookRequest, error) {
	now := s.clock()
	if !dueDate.After(now) {
		return nil, domainerrors.Validation("due date must be in the future")
	}

	out := &outbox{}
	var req *domain.BookRequest

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return notFound(err, "request not found")
		}
		if !req.IsPending() {
			return domainerrors.InvalidStatef("request is %s, only pending requests can be approved", req.Status)
		}

		book, err := tx.GetBook(ctx, req.BookID)
		if err != nil {
			return notFound(err, "book not found")
		}
		if book.IsArchived() {
			return domainerrors.NotAvailable("this book has left circulation")
		}

		req.Approve(adminID, dueDate, now)
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}

		switch {
		case !book.IsHeld() && book.Status == domain.BookStatusAvailable:
			if err := s.checkOutDirectly(ctx, tx, book, req, now); err != nil {
				return err
			}
			out.notify(req.UserID, domain.NotifyRequestApproved, "Request approved",
				fmt.Sprintf("Your request for %q was approved. Collect it from the library; it is due %s.",
					book.Title, dueDate.Format("2 Jan 2006")), "/books/"+book.ID)
			out.emit(sse.NewBookUpdatedEvent(book))
		case !book.IsHeld():
			return domainerrors.NotAvailable("this book is reserved for another reader's delivery")
		case book.CurrentHolderID == req.UserID:
			return domainerrors.StateConflict("the requester already holds this book")
		default:
			thread, err := attachNextHolder(ctx, tx, book, req, now, out)
			if err != nil {
				return err
			}
			out.notify(req.UserID, domain.NotifyRequestApproved, "Request approved",
				fmt.Sprintf("Your request for %q was approved. The current reader will hand it to you.", book.Title),
				"/handover/"+thread.ID)
			out.notify(book.CurrentHolderID, domain.NotifyHandoverStarted, "Next reader assigned",
				fmt.Sprintf("A next reader has been approved for %q. Arrange the handover in the thread.", book.Title),
				"/handover/"+thread.ID)
		}

		return recordAudit(ctx, tx, now, adminID, domain.AuditRequestApproved, "request", req.ID, map[string]any{
			"book_id":  req.BookID,
			"user_id":  req.UserID,
			"due_date": dueDate,
		})
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	s.logger.Info("request approved", "request_id", requestID, "book_id", req.BookID, "admin_id", adminID)
	return req, nil
}

// checkOutDirectly hands an unheld book to the approved requester.
func (s *RequestService) checkOutDirectly(ctx context.Context, tx store.Repository, book *domain.Book, req *domain.BookRequest, now time.Time) error {
	book.AssignHolder(req.UserID)
	if err := tx.UpdateBook(ctx, book); err != nil {
		return err
	}
	readingID, err := id.Generate(id.PrefixReading)
	if err != nil {
		return fmt.Errorf("generate reading ID: %w", err)
	}
	return tx.CreateReading(ctx, &domain.ReadingEntry{
		ID:        readingID,
		BookID:    book.ID,
		UserID:    req.UserID,
		RequestID: req.ID,
		StartDate: now,
		DueDate:   *req.DueDate,
	})
}

// Reject turns down a pending request. The reason is required.
func (s *RequestService) Reject(ctx context.Context, adminID, requestID, reason string) (*domain.BookRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domainerrors.Validation("a reason is required to reject a request")
	}

	now := s.clock()
	out := &outbox{}
	var req *domain.BookRequest

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return notFound(err, "request not found")
		}
		if !req.IsPending() {
			return domainerrors.InvalidStatef("request is %s, only pending requests can be rejected", req.Status)
		}

		req.Reject(adminID, reason, now)
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		if err := s.releaseProvisionalThread(ctx, tx, req, now, out); err != nil {
			return err
		}

		out.notify(req.UserID, domain.NotifyRequestRejected, "Request declined",
			"Your book request was declined: "+reason, "/books/"+req.BookID)
		return recordAudit(ctx, tx, now, adminID, domain.AuditRequestRejected, "request", req.ID, map[string]any{
			"book_id": req.BookID,
			"user_id": req.UserID,
			"reason":  reason,
		})
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	return req, nil
}

// releaseProvisionalThread retargets or cancels a scheduler thread whose
// provisional next holder just lost their pending request.
func (s *RequestService) releaseProvisionalThread(ctx context.Context, tx store.Repository, req *domain.BookRequest, now time.Time, out *outbox) error {
	thread, err := tx.GetActiveThread(ctx, req.BookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if thread.NextRequestID != req.ID {
		return nil
	}
	if thread.DeliveryStatus != domain.DeliveryNotStarted {
		// Too late to name someone else; the holder keeps the book.
		return cancelThread(ctx, tx, thread, "The next reader withdrew. This handover is cancelled.", now, out)
	}

	pending, err := tx.ListPendingRequests(ctx, req.BookID)
	if err != nil {
		return err
	}
	pending = slices.DeleteFunc(pending, func(p *domain.BookRequest) bool {
		return p.ID == req.ID || p.UserID == thread.CurrentHolderID
	})
	ranked, err := s.ranker.rank(ctx, tx, pending, now)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		return cancelThread(ctx, tx, thread, "The next reader withdrew. This handover is cancelled.", now, out)
	}
	return retargetThread(ctx, tx, thread, ranked[0].BookRequest, now, out)
}

// ListPending returns every pending request, highest priority first.
func (s *RequestService) ListPending(ctx context.Context) ([]*domain.RankedRequest, error) {
	reqs, err := s.store.ListPendingRequests(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return s.ranker.rank(ctx, s.store, reqs, s.clock())
}

// ListForBook returns the pending requests for one book, highest priority first.
func (s *RequestService) ListForBook(ctx context.Context, bookID string) ([]*domain.RankedRequest, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, notFound(err, "book not found")
	}
	reqs, err := s.store.ListPendingRequests(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return s.ranker.rank(ctx, s.store, reqs, s.clock())
}

// MyRequests returns the member's requests, newest first, joined with books.
func (s *RequestService) MyRequests(ctx context.Context, userID string) ([]*domain.RankedRequest, error) {
	reqs, err := s.store.ListRequestsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	bookIDs := make([]string, 0, len(reqs))
	for _, r := range reqs {
		bookIDs = append(bookIDs, r.BookID)
	}
	books, err := s.store.GetBooksByIDs(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	out := make([]*domain.RankedRequest, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, &domain.RankedRequest{BookRequest: r, Book: books[r.BookID]})
	}
	return out, nil
}

// RequestState tells a member where their latest request for a book stands.
type RequestState struct {
	Requested bool                 `json:"requested"`
	Status    domain.RequestStatus `json:"status,omitempty"`
	RequestID string               `json:"request_id,omitempty"`
}

// State reports whether the member has a pending request for the book.
func (s *RequestService) State(ctx context.Context, userID, bookID string) (*RequestState, error) {
	req, err := s.store.GetLatestRequest(ctx, userID, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return &RequestState{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &RequestState{Requested: req.IsPending(), Status: req.Status, RequestID: req.ID}, nil
}
