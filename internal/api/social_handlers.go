package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func (s *Server) registerSocialRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "postIdea",
		Method:        http.MethodPost,
		Path:          "/api/v1/ideas",
		Summary:       "Post reading idea",
		Description:   "Publishes an idea about a book. The author earns reputation for it.",
		Tags:          []string{"Community"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handlePostIdea)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookIdeas",
		Method:      http.MethodGet,
		Path:        "/api/v1/ideas/book/{id}",
		Summary:     "List ideas for book",
		Description: "Returns the ideas posted about a book",
		Tags:        []string{"Community"},
	}, s.handleListIdeas)

	huma.Register(s.api, huma.Operation{
		OperationID: "voteIdea",
		Method:      http.MethodPost,
		Path:        "/api/v1/ideas/{id}/vote",
		Summary:     "Vote on idea",
		Description: "Casts or changes the caller's vote on an idea",
		Tags:        []string{"Community"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleVoteIdea)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createReview",
		Method:        http.MethodPost,
		Path:          "/api/v1/reviews",
		Summary:       "Review member",
		Description:   "Rates another member's behaviour, care of the book and communication from 1 to 5",
		Tags:          []string{"Community"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/reviews",
		Summary:     "List reviews of member",
		Description: "Returns the reviews a member has received",
		Tags:        []string{"Community"},
	}, s.handleUserReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/reviews",
		Summary:     "List reviews for book",
		Description: "Returns reviews written about exchanges of a book",
		Tags:        []string{"Community"},
	}, s.handleBookReviews)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createDonation",
		Method:        http.MethodPost,
		Path:          "/api/v1/donations",
		Summary:       "Donate",
		Description:   "Records a money or book donation",
		Tags:          []string{"Community"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDonate)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDonations",
		Method:      http.MethodGet,
		Path:        "/api/v1/donations",
		Summary:     "List donations",
		Description: "Returns public donations, or all of the caller's donations with mine=true",
		Tags:        []string{"Community"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListDonations)

	huma.Register(s.api, huma.Operation{
		OperationID: "setBookmark",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookmarks",
		Summary:     "Set bookmark",
		Description: "Likes, bookmarks or prioritises a book. Priority bookmarks raise the caller's request ranking.",
		Tags:        []string{"Community"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetBookmark)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookmarks",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookmarks",
		Summary:     "List bookmarks",
		Description: "Returns the caller's bookmarks with their books",
		Tags:        []string{"Community"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBookmarks)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBookmark",
		Method:      http.MethodDelete,
		Path:        "/api/v1/bookmarks/{id}",
		Summary:     "Remove bookmark",
		Description: "Deletes one kind of bookmark from a book",
		Tags:        []string{"Community"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveBookmark)
}

// PostIdeaInput wraps the idea request for Huma.
type PostIdeaInput struct {
	Body service.PostIdeaRequest
}

// IdeaOutput wraps an idea for Huma.
type IdeaOutput struct {
	Body *domain.Idea
}

// IdeaListResponse holds ideas.
type IdeaListResponse struct {
	Ideas []*domain.Idea `json:"ideas" doc:"Ideas, newest first"`
}

// IdeaListOutput wraps an idea list for Huma.
type IdeaListOutput struct {
	Body IdeaListResponse
}

// VoteIdeaInput contains parameters for voting.
type VoteIdeaInput struct {
	ID   string `path:"id" doc:"Idea ID"`
	Type string `query:"type" required:"true" doc:"up or down"`
}

// CreateReviewInput wraps the review request for Huma.
type CreateReviewInput struct {
	Body service.CreateReviewRequest
}

// ReviewOutput wraps a review for Huma.
type ReviewOutput struct {
	Body *domain.Review
}

// ReviewListResponse holds reviews.
type ReviewListResponse struct {
	Reviews []*domain.Review `json:"reviews" doc:"Reviews, newest first"`
}

// ReviewListOutput wraps a review list for Huma.
type ReviewListOutput struct {
	Body ReviewListResponse
}

// DonationRequest is the wire form of a donation. Amount is a decimal
// string so no precision is lost in transit.
type DonationRequest struct {
	DonationType string `json:"donation_type" enum:"money,book" doc:"money or book"`
	Amount       string `json:"amount,omitempty" example:"500.00" doc:"Amount for money donations"`
	Currency     string `json:"currency,omitempty" example:"BDT" doc:"ISO 4217 currency code"`
	BookTitle    string `json:"book_title,omitempty" doc:"Title for book donations"`
	Message      string `json:"message,omitempty" doc:"Optional note"`
	IsPublic     bool   `json:"is_public,omitempty" doc:"Show on the public donor list"`
}

// DonateInput wraps the donation request for Huma.
type DonateInput struct {
	Body DonationRequest
}

// DonationOutput wraps a donation for Huma.
type DonationOutput struct {
	Body *domain.Donation
}

// ListDonationsInput contains parameters for listing donations.
type ListDonationsInput struct {
	Mine bool `query:"mine" doc:"Only the caller's donations, including private ones"`
}

// DonationListResponse holds donations.
type DonationListResponse struct {
	Donations []*domain.Donation `json:"donations" doc:"Donations, newest first"`
}

// DonationListOutput wraps a donation list for Huma.
type DonationListOutput struct {
	Body DonationListResponse
}

// SetBookmarkInput wraps the bookmark request for Huma.
type SetBookmarkInput struct {
	Body service.SetBookmarkRequest
}

// BookmarkOutput wraps a bookmark for Huma.
type BookmarkOutput struct {
	Body *domain.Bookmark
}

// BookmarkListResponse holds bookmarks.
type BookmarkListResponse struct {
	Bookmarks []*domain.Bookmark `json:"bookmarks" doc:"Bookmarks"`
}

// BookmarkListOutput wraps a bookmark list for Huma.
type BookmarkListOutput struct {
	Body BookmarkListResponse
}

// RemoveBookmarkInput addresses one bookmark.
type RemoveBookmarkInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Type string `query:"type" doc:"like, bookmark or priority (default bookmark)"`
}

func (s *Server) handlePostIdea(ctx context.Context, input *PostIdeaInput) (*IdeaOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	idea, err := s.services.Community.PostIdea(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &IdeaOutput{Body: idea}, nil
}

func (s *Server) handleListIdeas(ctx context.Context, input *BookIDInput) (*IdeaListOutput, error) {
	ideas, err := s.services.Community.ListIdeas(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if ideas == nil {
		ideas = []*domain.Idea{}
	}
	return &IdeaListOutput{Body: IdeaListResponse{Ideas: ideas}}, nil
}

func (s *Server) handleVoteIdea(ctx context.Context, input *VoteIdeaInput) (*IdeaOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	idea, err := s.services.Community.VoteIdea(ctx, userID, input.ID, domain.VoteType(input.Type))
	if err != nil {
		return nil, err
	}
	return &IdeaOutput{Body: idea}, nil
}

func (s *Server) handleCreateReview(ctx context.Context, input *CreateReviewInput) (*ReviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	review, err := s.services.Community.CreateReview(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ReviewOutput{Body: review}, nil
}

func (s *Server) handleUserReviews(ctx context.Context, input *UserIDInput) (*ReviewListOutput, error) {
	reviews, err := s.services.Community.ReviewsForUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return reviewList(reviews), nil
}

func (s *Server) handleBookReviews(ctx context.Context, input *BookIDInput) (*ReviewListOutput, error) {
	reviews, err := s.services.Community.ReviewsForBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return reviewList(reviews), nil
}

func reviewList(reviews []*domain.Review) *ReviewListOutput {
	if reviews == nil {
		reviews = []*domain.Review{}
	}
	return &ReviewListOutput{Body: ReviewListResponse{Reviews: reviews}}
}

func (s *Server) handleDonate(ctx context.Context, input *DonateInput) (*DonationOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	req := service.DonateRequest{
		DonationType: domain.DonationType(input.Body.DonationType),
		Currency:     input.Body.Currency,
		BookTitle:    input.Body.BookTitle,
		Message:      input.Body.Message,
		IsPublic:     input.Body.IsPublic,
	}
	if amount := strings.TrimSpace(input.Body.Amount); amount != "" {
		if req.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, domainerrors.Validationf("amount %q is not a number", amount)
		}
	}
	donation, err := s.services.Community.Donate(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return &DonationOutput{Body: donation}, nil
}

func (s *Server) handleListDonations(ctx context.Context, input *ListDonationsInput) (*DonationListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	donorID := ""
	if input.Mine {
		donorID = userID
	}
	donations, err := s.services.Community.ListDonations(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if donations == nil {
		donations = []*domain.Donation{}
	}
	return &DonationListOutput{Body: DonationListResponse{Donations: donations}}, nil
}

func (s *Server) handleSetBookmark(ctx context.Context, input *SetBookmarkInput) (*BookmarkOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	mark, err := s.services.Community.SetBookmark(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookmarkOutput{Body: mark}, nil
}

func (s *Server) handleListBookmarks(ctx context.Context, _ *struct{}) (*BookmarkListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	marks, err := s.services.Community.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, err
	}
	if marks == nil {
		marks = []*domain.Bookmark{}
	}
	return &BookmarkListOutput{Body: BookmarkListResponse{Bookmarks: marks}}, nil
}

func (s *Server) handleRemoveBookmark(ctx context.Context, input *RemoveBookmarkInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	t := domain.BookmarkType(input.Type)
	if t == "" {
		t = domain.BookmarkBookmark
	}
	if err := s.services.Community.RemoveBookmark(ctx, userID, input.ID, t); err != nil {
		return nil, err
	}
	return message("Bookmark removed"), nil
}
