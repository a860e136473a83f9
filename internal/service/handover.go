package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/id"
	"github.com/amarpathagar/pathagar-server/internal/normalize"
	"github.com/amarpathagar/pathagar-server/internal/ratelimit"
	"github.com/amarpathagar/pathagar-server/internal/sse"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// Viewer is the authenticated caller of a read that depends on who asks.
type Viewer struct {
	UserID  string
	IsAdmin bool
}

// memberName returns a display name for system messages.
func memberName(ctx context.Context, repo store.Repository, userID string) string {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return "a member"
	}
	return user.Name()
}

// postSystemMessage appends a system message and pushes it to both parties.
func postSystemMessage(ctx context.Context, tx store.Repository, thread *domain.HandoverThread, text string, now time.Time, out *outbox) error {
	msgID, err := id.Generate(id.PrefixMessage)
	if err != nil {
		return fmt.Errorf("generate message ID: %w", err)
	}
	msg := &domain.HandoverMessage{
		ID:              msgID,
		ThreadID:        thread.ID,
		Message:         text,
		IsSystemMessage: true,
		CreatedAt:       now,
	}
	if err := tx.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("post system message: %w", err)
	}
	for _, userID := range threadParties(thread) {
		out.emit(sse.NewHandoverMessageEvent(userID, thread.BookID, msg))
	}
	return nil
}

// openThread starts a handover from holderID to the requester of next.
func openThread(ctx context.Context, tx store.Repository, book *domain.Book, next *domain.BookRequest, handoverDue, now time.Time, out *outbox) (*domain.HandoverThread, error) {
	threadID, err := id.Generate(id.PrefixThread)
	if err != nil {
		return nil, fmt.Errorf("generate thread ID: %w", err)
	}
	thread := &domain.HandoverThread{
		ID:              threadID,
		BookID:          book.ID,
		CurrentHolderID: book.CurrentHolderID,
		NextHolderID:    next.UserID,
		NextRequestID:   next.ID,
		HandoverDueDate: handoverDue,
		DeliveryStatus:  domain.DeliveryNotStarted,
		Status:          domain.ThreadActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.CreateThread(ctx, thread); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("a handover for this book was started concurrently")
		}
		return nil, err
	}

	text := fmt.Sprintf("Handover started for %q. %s is reading it until %s; %s is next.",
		book.Title,
		memberName(ctx, tx, thread.CurrentHolderID),
		handoverDue.Format("2 Jan 2006"),
		memberName(ctx, tx, thread.NextHolderID))
	if next.Status != domain.RequestApproved {
		text += " The next reader's request still awaits approval."
	}
	if err := postSystemMessage(ctx, tx, thread, text, now, out); err != nil {
		return nil, err
	}
	out.threadChanged(thread)
	return thread, nil
}

// retargetThread names a different next holder on a thread that has not
// started moving.
func retargetThread(ctx context.Context, tx store.Repository, thread *domain.HandoverThread, next *domain.BookRequest, now time.Time, out *outbox) error {
	if thread.NextHolderID != "" && thread.NextHolderID != next.UserID {
		out.notify(thread.NextHolderID, domain.NotifyHandoverCancelled, "Handover changed",
			"You are no longer the next reader for this book.", "/books/"+thread.BookID)
	}
	thread.NextHolderID = next.UserID
	thread.NextRequestID = next.ID
	thread.UpdatedAt = now
	if err := tx.UpdateThread(ctx, thread); err != nil {
		return err
	}
	text := fmt.Sprintf("%s is now the next reader.", memberName(ctx, tx, next.UserID))
	if next.Status != domain.RequestApproved {
		text += " Their request still awaits approval."
	}
	if err := postSystemMessage(ctx, tx, thread, text, now, out); err != nil {
		return err
	}
	out.threadChanged(thread)
	return nil
}

// cancelThread ends an active thread without a transfer.
func cancelThread(ctx context.Context, tx store.Repository, thread *domain.HandoverThread, text string, now time.Time, out *outbox) error {
	thread.Status = domain.ThreadCancelled
	thread.UpdatedAt = now
	thread.CompletedAt = &now
	if err := tx.UpdateThread(ctx, thread); err != nil {
		return err
	}
	if err := postSystemMessage(ctx, tx, thread, text, now, out); err != nil {
		return err
	}
	for _, userID := range threadParties(thread) {
		out.notify(userID, domain.NotifyHandoverCancelled, "Handover cancelled", text, "/handover/"+thread.ID)
	}
	out.threadChanged(thread)
	return nil
}

// attachNextHolder points the book's handover at an approved request,
// opening a thread if none is active. Before the book ships, a previously
// approved next holder who is displaced has their request cancelled; once it
// is in transit only the named next holder can still be approved.
func attachNextHolder(ctx context.Context, tx store.Repository, book *domain.Book, req *domain.BookRequest, now time.Time, out *outbox) (*domain.HandoverThread, error) {
	thread, err := tx.GetActiveThread(ctx, book.ID)
	if errors.Is(err, store.ErrNotFound) {
		reading, err := tx.GetOpenReading(ctx, book.ID)
		if err != nil {
			return nil, fmt.Errorf("load open reading for %s: %w", book.ID, err)
		}
		return openThread(ctx, tx, book, req, reading.DueDate, now, out)
	}
	if err != nil {
		return nil, err
	}

	if thread.NextRequestID == req.ID {
		// The provisional next holder was just approved. This holds even once
		// the book is in transit, since delivery waits on this approval.
		if err := postSystemMessage(ctx, tx, thread,
			fmt.Sprintf("%s's request was approved.", memberName(ctx, tx, req.UserID)), now, out); err != nil {
			return nil, err
		}
		out.threadChanged(thread)
		return thread, nil
	}
	if thread.DeliveryStatus != domain.DeliveryNotStarted {
		return nil, domainerrors.StateConflict("the book is already on its way to another reader")
	}

	if thread.NextRequestID != "" {
		previous, err := tx.GetRequest(ctx, thread.NextRequestID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if previous != nil && previous.Status == domain.RequestApproved {
			previous.Cancel(now, "superseded by another approved reader")
			if err := tx.UpdateRequest(ctx, previous); err != nil {
				return nil, err
			}
		}
	}
	if err := retargetThread(ctx, tx, thread, req, now, out); err != nil {
		return nil, err
	}
	return thread, nil
}

// activeOrClosedThread returns the book's active thread. When only a
// finished thread exists the caller gets ThreadClosed.
func activeOrClosedThread(ctx context.Context, tx store.Repository, bookID string) (*domain.HandoverThread, error) {
	thread, err := tx.GetActiveThread(ctx, bookID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	latest, err := tx.GetLatestThread(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.StateConflict("no handover is arranged for this book")
	}
	if err != nil {
		return nil, err
	}
	return nil, domainerrors.ThreadClosed(fmt.Sprintf("the handover for this book is %s", latest.Status))
}

// HandoverService coordinates custody transfer between readers.
type HandoverService struct {
	store      store.Store
	reputation *ReputationService
	notifier   *NotificationService
	ranker     ranker
	policy     config.Policy
	publicRead bool
	limiter    *ratelimit.KeyedRateLimiter
	logger     *slog.Logger
	clock      func() time.Time
}

// NewHandoverService creates a new handover service.
func NewHandoverService(
	store store.Store,
	reputation *ReputationService,
	notifier *NotificationService,
	cfg *config.Config,
	logger *slog.Logger,
) *HandoverService {
	return &HandoverService{
		store:      store,
		reputation: reputation,
		notifier:   notifier,
		ranker:     ranker{weights: cfg.Policy.Ranking},
		policy:     cfg.Policy,
		publicRead: cfg.Handover.PublicRead,
		limiter:    ratelimit.PerMinute(cfg.Policy.MessagesPerMinute, cfg.Policy.MessageBurst),
		logger:     logger,
		clock:      time.Now,
	}
}

// Stop releases the message rate limiter.
func (s *HandoverService) Stop() {
	s.limiter.Stop()
}

// MarkCompleted records that the holder finished and the book is on its way.
func (s *HandoverService) MarkCompleted(ctx context.Context, userID, bookID string) (*domain.HandoverThread, error) {
	now := s.clock()
	out := &outbox{}
	var thread *domain.HandoverThread

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return notFound(err, "book not found")
		}
		if book.CurrentHolderID != userID {
			return domainerrors.NotHolder("only the current holder can mark the book as finished")
		}
		if thread, err = activeOrClosedThread(ctx, tx, bookID); err != nil {
			return err
		}
		if !thread.DeliveryStatus.CanAdvanceTo(domain.DeliveryInTransit) {
			return domainerrors.InvalidTransition(fmt.Sprintf("handover is %s, it cannot move to in transit", thread.DeliveryStatus))
		}

		thread.DeliveryStatus = domain.DeliveryInTransit
		thread.UpdatedAt = now
		if err := tx.UpdateThread(ctx, thread); err != nil {
			return err
		}
		if err := postSystemMessage(ctx, tx, thread,
			fmt.Sprintf("%s finished reading and the book is on its way.", memberName(ctx, tx, userID)), now, out); err != nil {
			return err
		}
		out.notify(thread.NextHolderID, domain.NotifyHandoverInTransit, "Book on its way",
			fmt.Sprintf("%q is on its way to you. Confirm delivery once you have it.", book.Title), "/handover/"+thread.ID)
		out.threadChanged(thread)
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	s.logger.Info("handover in transit", "thread_id", thread.ID, "book_id", bookID)
	return thread, nil
}

// MarkDelivered is called by the next holder once they have the book. It
// closes the prior reading, scores the prior holder and moves custody.
func (s *HandoverService) MarkDelivered(ctx context.Context, userID, bookID string) (*domain.HandoverThread, error) {
	now := s.clock()
	out := &outbox{}
	var thread *domain.HandoverThread

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		if thread, err = activeOrClosedThread(ctx, tx, bookID); err != nil {
			return err
		}
		if thread.NextHolderID != userID {
			return domainerrors.Forbidden("only the next reader can confirm delivery")
		}
		if !thread.DeliveryStatus.CanAdvanceTo(domain.DeliveryDelivered) {
			return domainerrors.InvalidTransition(fmt.Sprintf("handover is %s, the holder has to send the book first", thread.DeliveryStatus))
		}

		req, err := tx.GetRequest(ctx, thread.NextRequestID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if req == nil || req.Status != domain.RequestApproved || req.DueDate == nil {
			return domainerrors.StateConflict("your request for this book has not been approved yet")
		}

		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return notFound(err, "book not found")
		}
		prior := thread.CurrentHolderID

		reading, err := tx.GetOpenReading(ctx, bookID)
		switch {
		case err == nil && reading.UserID == prior:
			event := reading.Close(now, domain.ReadingEndHandedOver)
			if err := tx.UpdateReading(ctx, reading); err != nil {
				return err
			}
			if _, err := s.reputation.apply(ctx, tx, domain.ScoreChange{
				UserID:   prior,
				Event:    event,
				RefType:  "book",
				RefID:    bookID,
				Counters: domain.CounterDelta{BooksReceived: 1, BooksShared: 1},
			}, out); err != nil {
				return err
			}
			book.TotalReads++
		case err == nil:
			return domainerrors.StateConflict("the book is held by someone outside this handover")
		case errors.Is(err, store.ErrNotFound):
			// The prior holder already returned it to the library.
			if err := s.reputation.applyCounters(ctx, tx, prior, domain.CounterDelta{BooksShared: 1}); err != nil {
				return err
			}
		default:
			return err
		}

		book.AssignHolder(userID)
		if err := tx.UpdateBook(ctx, book); err != nil {
			return err
		}
		readingID, err := id.Generate(id.PrefixReading)
		if err != nil {
			return fmt.Errorf("generate reading ID: %w", err)
		}
		if err := tx.CreateReading(ctx, &domain.ReadingEntry{
			ID:        readingID,
			BookID:    bookID,
			UserID:    userID,
			RequestID: req.ID,
			StartDate: now,
			DueDate:   *req.DueDate,
		}); err != nil {
			return err
		}

		thread.DeliveryStatus = domain.DeliveryDelivered
		thread.Status = domain.ThreadCompleted
		thread.UpdatedAt = now
		thread.CompletedAt = &now
		if err := tx.UpdateThread(ctx, thread); err != nil {
			return err
		}
		if err := postSystemMessage(ctx, tx, thread,
			fmt.Sprintf("%s received the book. Handover complete.", memberName(ctx, tx, userID)), now, out); err != nil {
			return err
		}
		out.notify(prior, domain.NotifyHandoverDelivered, "Handover complete",
			fmt.Sprintf("%q was delivered to the next reader. Thank you for sharing!", book.Title), "/handover/"+thread.ID)
		out.threadChanged(thread)
		out.emit(sse.NewBookUpdatedEvent(book))
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	s.logger.Info("handover delivered", "thread_id", thread.ID, "book_id", bookID, "user_id", userID)
	return thread, nil
}

// PostMessage appends a member message to an active thread.
func (s *HandoverService) PostMessage(ctx context.Context, userID, threadID, raw string) (*domain.HandoverMessage, error) {
	text, ok := normalize.Message(raw, s.policy.MaxMessageRunes)
	if !ok {
		return nil, domainerrors.Validationf("message must be between 1 and %d characters", s.policy.MaxMessageRunes)
	}

	now := s.clock()
	out := &outbox{}
	var msg *domain.HandoverMessage

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		thread, err := tx.GetThread(ctx, threadID)
		if err != nil {
			return notFound(err, "handover thread not found")
		}
		if thread.Status.IsTerminal() {
			return domainerrors.ThreadClosed(fmt.Sprintf("this handover is %s", thread.Status))
		}
		if !thread.IsParty(userID) {
			return domainerrors.Forbidden("only the two readers in this handover can post")
		}
		if !s.limiter.Allow(userID) {
			return domainerrors.RateLimited("you are sending messages too quickly")
		}

		msgID, err := id.Generate(id.PrefixMessage)
		if err != nil {
			return fmt.Errorf("generate message ID: %w", err)
		}
		msg = &domain.HandoverMessage{
			ID:        msgID,
			ThreadID:  thread.ID,
			UserID:    userID,
			Message:   text,
			CreatedAt: now,
		}
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}

		for _, party := range threadParties(thread) {
			out.emit(sse.NewHandoverMessageEvent(party, thread.BookID, msg))
			if party != userID {
				out.notify(party, domain.NotifyHandoverMessage, "New handover message", text, "/handover/"+thread.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	return msg, nil
}

func (s *HandoverService) canRead(viewer Viewer, thread *domain.HandoverThread) bool {
	return viewer.IsAdmin || s.publicRead || thread.IsParty(viewer.UserID)
}

// ListMessages returns a thread's messages oldest first.
func (s *HandoverService) ListMessages(ctx context.Context, viewer Viewer, threadID string) ([]*domain.HandoverMessage, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, notFound(err, "handover thread not found")
	}
	if !s.canRead(viewer, thread) {
		return nil, domainerrors.Forbidden("you are not part of this handover")
	}
	return s.store.ListMessages(ctx, threadID)
}

// ThreadForBook returns the book's active handover, or its most recent one.
func (s *HandoverService) ThreadForBook(ctx context.Context, viewer Viewer, bookID string) (*domain.ThreadWithBook, error) {
	thread, err := s.store.GetActiveThread(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		thread, err = s.store.GetLatestThread(ctx, bookID)
	}
	if err != nil {
		return nil, notFound(err, "no handover exists for this book")
	}
	if !s.canRead(viewer, thread) {
		return nil, domainerrors.Forbidden("you are not part of this handover")
	}
	joined, err := s.join(ctx, []*domain.HandoverThread{thread})
	if err != nil {
		return nil, err
	}
	return joined[0], nil
}

// ListThreads returns the viewer's threads. Admins see every thread.
func (s *HandoverService) ListThreads(ctx context.Context, viewer Viewer, status domain.ThreadStatus) ([]*domain.ThreadWithBook, error) {
	filter := domain.ThreadFilter{Status: status}
	if !viewer.IsAdmin {
		filter.ParticipantID = viewer.UserID
	}
	threads, err := s.store.ListThreads(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return s.join(ctx, threads)
}

func (s *HandoverService) join(ctx context.Context, threads []*domain.HandoverThread) ([]*domain.ThreadWithBook, error) {
	bookIDs := make([]string, 0, len(threads))
	userIDs := make([]string, 0, 2*len(threads))
	for _, t := range threads {
		bookIDs = append(bookIDs, t.BookID)
		userIDs = append(userIDs, threadParties(t)...)
	}
	books, err := s.store.GetBooksByIDs(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	// Threads can be publicly readable; contact details stay private.
	for _, u := range users {
		if u != nil {
			u.Email = ""
		}
	}
	out := make([]*domain.ThreadWithBook, 0, len(threads))
	for _, t := range threads {
		out = append(out, &domain.ThreadWithBook{
			HandoverThread: t,
			Book:           books[t.BookID],
			CurrentHolder:  users[t.CurrentHolderID],
			NextHolder:     users[t.NextHolderID],
		})
	}
	return out, nil
}

// ScanDueReadings opens handover threads for readings due within the lead
// time that have someone waiting. The top-ranked pending requester becomes
// the provisional next holder. Returns how many threads were opened.
func (s *HandoverService) ScanDueReadings(ctx context.Context) (int, error) {
	now := s.clock()
	readings, err := s.store.ListOpenReadingsDueBefore(ctx, now.Add(s.policy.HandoverLead()))
	if err != nil {
		return 0, fmt.Errorf("list due readings: %w", err)
	}

	opened := 0
	for _, reading := range readings {
		if err := ctx.Err(); err != nil {
			return opened, err
		}
		created, err := s.scheduleHandover(ctx, reading, now)
		if err != nil {
			s.logger.Warn("failed to schedule handover",
				"book_id", reading.BookID,
				"user_id", reading.UserID,
				"error", err,
			)
			continue
		}
		if created {
			opened++
		}
	}
	if opened > 0 {
		s.logger.Info("scheduled handovers", "count", opened)
	}
	return opened, nil
}

func (s *HandoverService) scheduleHandover(ctx context.Context, reading *domain.ReadingEntry, now time.Time) (bool, error) {
	out := &outbox{}
	created := false

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		if _, err := tx.GetActiveThread(ctx, reading.BookID); err == nil {
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		book, err := tx.GetBook(ctx, reading.BookID)
		if err != nil {
			return err
		}
		if book.CurrentHolderID != reading.UserID {
			return nil
		}

		pending, err := tx.ListPendingRequests(ctx, book.ID)
		if err != nil {
			return err
		}
		pending = slices.DeleteFunc(pending, func(r *domain.BookRequest) bool {
			return r.UserID == reading.UserID
		})
		ranked, err := s.ranker.rank(ctx, tx, pending, now)
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			return nil
		}

		thread, err := openThread(ctx, tx, book, ranked[0].BookRequest, reading.DueDate, now, out)
		if err != nil {
			return err
		}
		out.notify(reading.UserID, domain.NotifyHandoverStarted, "Handover coming up",
			fmt.Sprintf("%q is due %s and another reader is waiting. Arrange the handover in the thread.",
				book.Title, reading.DueDate.Format("2 Jan 2006")), "/handover/"+thread.ID)
		out.notify(thread.NextHolderID, domain.NotifyHandoverStarted, "You are next in line",
			fmt.Sprintf("You are next in line for %q.", book.Title), "/handover/"+thread.ID)
		created = true
		return nil
	})
	if err != nil {
		return false, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	return created, nil
}
