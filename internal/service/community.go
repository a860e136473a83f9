package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/id"
	"github.com/amarpathagar/pathagar-server/internal/normalize"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// CommunityService handles ideas, reviews, donations and bookmarks, and
// scores members for them.
type CommunityService struct {
	store      store.Store
	reputation *ReputationService
	notifier   *NotificationService
	logger     *slog.Logger
	clock      func() time.Time
}

// NewCommunityService creates a new community service.
func NewCommunityService(
	store store.Store,
	reputation *ReputationService,
	notifier *NotificationService,
	logger *slog.Logger,
) *CommunityService {
	return &CommunityService{
		store:      store,
		reputation: reputation,
		notifier:   notifier,
		logger:     logger,
		clock:      time.Now,
	}
}

// PostIdeaRequest is a new reading idea.
type PostIdeaRequest struct {
	BookID  string `json:"book_id" validate:"required"`
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Content string `json:"content" validate:"required,notblank,max=10000"`
}

// PostIdea publishes an idea about a book and credits the author.
func (s *CommunityService) PostIdea(ctx context.Context, userID string, req PostIdeaRequest) (*domain.Idea, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	now := s.clock()
	out := &outbox{}
	var idea *domain.Idea

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		if _, err := tx.GetBook(ctx, req.BookID); err != nil {
			return notFound(err, "book not found")
		}
		ideaID, err := id.Generate(id.PrefixIdea)
		if err != nil {
			return fmt.Errorf("generate idea ID: %w", err)
		}
		idea = &domain.Idea{
			ID:        ideaID,
			BookID:    req.BookID,
			UserID:    userID,
			Title:     strings.TrimSpace(req.Title),
			Content:   normalize.StripHTML(req.Content),
			CreatedAt: now,
		}
		if err := tx.CreateIdea(ctx, idea); err != nil {
			return err
		}
		_, err = s.reputation.apply(ctx, tx, domain.ScoreChange{
			UserID:   userID,
			Event:    domain.EventIdeaPosted,
			RefType:  "idea",
			RefID:    idea.ID,
			Counters: domain.CounterDelta{IdeasPosted: 1},
		}, out)
		return err
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	return idea, nil
}

// ListIdeas returns a book's ideas, best voted first.
func (s *CommunityService) ListIdeas(ctx context.Context, bookID string) ([]*domain.Idea, error) {
	ideas, err := s.store.ListIdeasByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	return ideas, nil
}

// VoteIdea records a final up or down vote and scores the idea's author.
func (s *CommunityService) VoteIdea(ctx context.Context, userID, ideaID string, vote domain.VoteType) (*domain.Idea, error) {
	if !vote.Valid() {
		return nil, domainerrors.Validation("vote type must be up or down")
	}
	now := s.clock()
	out := &outbox{}
	var idea *domain.Idea

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		idea, err = tx.GetIdea(ctx, ideaID)
		if err != nil {
			return notFound(err, "idea not found")
		}
		if idea.UserID == userID {
			return domainerrors.Forbidden("you cannot vote on your own idea")
		}
		if err := tx.CreateIdeaVote(ctx, &domain.IdeaVote{
			IdeaID:    ideaID,
			UserID:    userID,
			VoteType:  vote,
			CreatedAt: now,
		}); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domainerrors.AlreadyExists("you have already voted on this idea")
			}
			return err
		}
		if err := tx.IncrementIdeaVotes(ctx, ideaID, vote); err != nil {
			return err
		}
		counters := domain.CounterDelta{TotalUpvotes: 1}
		if vote == domain.VoteDown {
			counters = domain.CounterDelta{TotalDownvotes: 1}
			idea.Downvotes++
		} else {
			idea.Upvotes++
		}
		_, err = s.reputation.apply(ctx, tx, domain.ScoreChange{
			UserID:   idea.UserID,
			Event:    vote.Event(),
			ActorID:  userID,
			RefType:  "idea",
			RefID:    ideaID,
			Counters: counters,
		}, out)
		return err
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	return idea, nil
}

// CreateReviewRequest rates another member after an exchange.
type CreateReviewRequest struct {
	RevieweeID          string `json:"reviewee_id" validate:"required"`
	BookID              string `json:"book_id,omitempty"`
	BehaviorRating      int    `json:"behavior_rating" validate:"required,min=1,max=5"`
	BookConditionRating int    `json:"book_condition_rating" validate:"required,min=1,max=5"`
	CommunicationRating int    `json:"communication_rating" validate:"required,min=1,max=5"`
	Comment             string `json:"comment,omitempty" validate:"max=2000"`
}

// CreateReview stores a review. A positive review earns the reviewer a
// bonus and a negative one costs the reviewee.
func (s *CommunityService) CreateReview(ctx context.Context, reviewerID string, req CreateReviewRequest) (*domain.Review, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if req.RevieweeID == reviewerID {
		return nil, domainerrors.Validation("you cannot review yourself")
	}
	now := s.clock()
	out := &outbox{}
	var review *domain.Review

	err := s.store.InTx(ctx, func(tx store.Repository) error {
		if _, err := tx.GetUser(ctx, req.RevieweeID); err != nil {
			return notFound(err, "reviewee not found")
		}
		if req.BookID != "" {
			if _, err := tx.GetBook(ctx, req.BookID); err != nil {
				return notFound(err, "book not found")
			}
		}
		reviewID, err := id.Generate(id.PrefixReview)
		if err != nil {
			return fmt.Errorf("generate review ID: %w", err)
		}
		review = &domain.Review{
			ID:                  reviewID,
			ReviewerID:          reviewerID,
			RevieweeID:          req.RevieweeID,
			BookID:              req.BookID,
			BehaviorRating:      req.BehaviorRating,
			BookConditionRating: req.BookConditionRating,
			CommunicationRating: req.CommunicationRating,
			Comment:             normalize.StripHTML(req.Comment),
			CreatedAt:           now,
		}
		if err := tx.CreateReview(ctx, review); err != nil {
			return err
		}

		received := domain.CounterDelta{ReviewsReceived: 1}
		if review.IsNegative() {
			if _, err := s.reputation.apply(ctx, tx, domain.ScoreChange{
				UserID:   req.RevieweeID,
				Event:    domain.EventNegativeReviewReceived,
				ActorID:  reviewerID,
				RefType:  "review",
				RefID:    review.ID,
				Counters: received,
			}, out); err != nil {
				return err
			}
		} else if err := s.reputation.applyCounters(ctx, tx, req.RevieweeID, received); err != nil {
			return err
		}
		if review.IsPositive() {
			if _, err := s.reputation.apply(ctx, tx, domain.ScoreChange{
				UserID:  reviewerID,
				Event:   domain.EventPositiveReview,
				RefType: "review",
				RefID:   review.ID,
			}, out); err != nil {
				return err
			}
		}

		if review.BookID != "" {
			if err := tx.RefreshBookRating(ctx, review.BookID); err != nil {
				return err
			}
		}
		out.notify(req.RevieweeID, domain.NotifyReviewReceived, "New review",
			fmt.Sprintf("You received a review averaging %.1f.", review.Average()),
			"/users/"+req.RevieweeID+"/reviews")
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	return review, nil
}

// ReviewsForUser returns the reviews a member received.
func (s *CommunityService) ReviewsForUser(ctx context.Context, userID string) ([]*domain.Review, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, notFound(err, "user not found")
	}
	return s.store.ListReviewsByReviewee(ctx, userID)
}

// ReviewsForBook returns the reviews tied to a book's exchanges.
func (s *CommunityService) ReviewsForBook(ctx context.Context, bookID string) ([]*domain.Review, error) {
	return s.store.ListReviewsByBook(ctx, bookID)
}

// DonateRequest records a money or book gift.
type DonateRequest struct {
	DonationType domain.DonationType `json:"donation_type" validate:"required,oneof=money book"`
	Amount       decimal.Decimal     `json:"amount"`
	Currency     string              `json:"currency,omitempty" validate:"omitempty,iso4217"`
	BookTitle    string              `json:"book_title,omitempty" validate:"max=500"`
	Message      string              `json:"message,omitempty" validate:"max=2000"`
	IsPublic     bool                `json:"is_public"`
}

// Donate records a donation and credits the donor.
func (s *CommunityService) Donate(ctx context.Context, donorID string, req DonateRequest) (*domain.Donation, error) {
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	donation := &domain.Donation{
		DonorID:      donorID,
		DonationType: req.DonationType,
		Message:      normalize.StripHTML(req.Message),
		IsPublic:     req.IsPublic,
	}
	switch req.DonationType {
	case domain.DonationMoney:
		if !req.Amount.IsPositive() {
			return nil, domainerrors.Validation("amount must be greater than zero")
		}
		donation.Amount = req.Amount.Round(2)
		donation.Currency = req.Currency
		if donation.Currency == "" {
			donation.Currency = domain.DefaultCurrency
		}
	case domain.DonationBook:
		donation.BookTitle = strings.TrimSpace(req.BookTitle)
		if donation.BookTitle == "" {
			return nil, domainerrors.Validation("book_title is required for a book donation")
		}
	}

	now := s.clock()
	out := &outbox{}
	err := s.store.InTx(ctx, func(tx store.Repository) error {
		donationID, err := id.Generate(id.PrefixDonation)
		if err != nil {
			return fmt.Errorf("generate donation ID: %w", err)
		}
		donation.ID = donationID
		donation.CreatedAt = now
		if err := tx.CreateDonation(ctx, donation); err != nil {
			return err
		}
		_, err = s.reputation.apply(ctx, tx, domain.ScoreChange{
			UserID:   donorID,
			Event:    req.DonationType.Event(),
			RefType:  "donation",
			RefID:    donation.ID,
			Counters: domain.CounterDelta{DonationsMade: 1},
		}, out)
		return err
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	s.logger.Info("donation recorded", "donation_id", donation.ID, "donor_id", donorID, "type", donation.DonationType)
	return donation, nil
}

// ListDonations returns public donations, or every donation of one donor
// when donorID is set.
func (s *CommunityService) ListDonations(ctx context.Context, donorID string) ([]*domain.Donation, error) {
	return s.store.ListDonations(ctx, donorID, donorID == "")
}

// SetBookmarkRequest sets one kind of bookmark on a book.
type SetBookmarkRequest struct {
	BookID        string              `json:"book_id" validate:"required"`
	Type          domain.BookmarkType `json:"bookmark_type" validate:"required,oneof=like bookmark priority"`
	PriorityLevel int                 `json:"priority_level,omitempty"`
}

// SetBookmark creates or updates a bookmark. Priority bookmarks carry a
// level that feeds request ranking.
func (s *CommunityService) SetBookmark(ctx context.Context, userID string, req SetBookmarkRequest) (*domain.Bookmark, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	b := &domain.Bookmark{UserID: userID, BookID: req.BookID, Type: req.Type, CreatedAt: s.clock()}
	if req.Type == domain.BookmarkPriority {
		if req.PriorityLevel < domain.MinPriorityLevel || req.PriorityLevel > domain.MaxPriorityLevel {
			return nil, domainerrors.Validationf("priority_level must be between %d and %d",
				domain.MinPriorityLevel, domain.MaxPriorityLevel)
		}
		b.PriorityLevel = req.PriorityLevel
	}

	book, err := s.store.GetBook(ctx, req.BookID)
	if err != nil {
		return nil, notFound(err, "book not found")
	}
	if err := s.store.UpsertBookmark(ctx, b); err != nil {
		return nil, mapStoreErr(err)
	}
	b.Book = book
	return b, nil
}

// RemoveBookmark deletes one bookmark.
func (s *CommunityService) RemoveBookmark(ctx context.Context, userID, bookID string, t domain.BookmarkType) error {
	if !t.Valid() {
		return domainerrors.Validation("type must be like, bookmark or priority")
	}
	if err := s.store.DeleteBookmark(ctx, userID, bookID, t); err != nil {
		return notFound(err, "bookmark not found")
	}
	return nil
}

// ListBookmarks returns the member's bookmarks joined with their books.
func (s *CommunityService) ListBookmarks(ctx context.Context, userID string) ([]*domain.Bookmark, error) {
	marks, err := s.store.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	bookIDs := make([]string, 0, len(marks))
	for _, m := range marks {
		bookIDs = append(bookIDs, m.BookID)
	}
	books, err := s.store.GetBooksByIDs(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	for _, m := range marks {
		m.Book = books[m.BookID]
	}
	return marks, nil
}
