package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/profile",
		Summary:     "Get profile",
		Description: "Returns a member's profile and the books they hold. Email is only shown to the member.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/profile",
		Summary:     "Update profile",
		Description: "Changes the caller's profile fields",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "setInterests",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/interests",
		Summary:     "Set interests",
		Description: "Replaces the caller's reading interests. Matching categories raise request priority.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetInterests)

	huma.Register(s.api, huma.Operation{
		OperationID: "getScoreHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/score-history",
		Summary:     "Get score history",
		Description: "Returns the member's reputation ledger in the order it was written",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleScoreHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLeaderboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/leaderboard",
		Summary:     "Get leaderboard",
		Description: "Ranks members in one category. Ties go to the earlier member.",
		Tags:        []string{"Users"},
	}, s.handleLeaderboard)
}

// ProfileOutput wraps a profile for Huma.
type ProfileOutput struct {
	Body *service.Profile
}

// UpdateProfileInput wraps the profile update for Huma.
type UpdateProfileInput struct {
	Body service.UpdateProfileRequest
}

// SetInterestsRequest is the body for replacing interests.
type SetInterestsRequest struct {
	Interests []string `json:"interests" maxItems:"50" doc:"Category names"`
}

// SetInterestsInput wraps the interests request for Huma.
type SetInterestsInput struct {
	Body SetInterestsRequest
}

// ScoreHistoryResponse holds ledger entries.
type ScoreHistoryResponse struct {
	Entries []*domain.LedgerEntry `json:"entries" doc:"Ledger entries, oldest first"`
}

// ScoreHistoryOutput wraps a score history for Huma.
type ScoreHistoryOutput struct {
	Body ScoreHistoryResponse
}

// LeaderboardInput contains parameters for the leaderboard.
type LeaderboardInput struct {
	Category string `query:"category" doc:"highest_scores, top_readers, top_sharers, top_donors or idea_writers"`
	Limit    int    `query:"limit" minimum:"0" maximum:"100" doc:"Entries to return (default 10)"`
}

// LeaderboardResponse holds ranked members.
type LeaderboardResponse struct {
	Category string                     `json:"category" doc:"Ranked category"`
	Entries  []*domain.LeaderboardEntry `json:"entries" doc:"Members, best first"`
}

// LeaderboardOutput wraps a leaderboard for Huma.
type LeaderboardOutput struct {
	Body LeaderboardResponse
}

func (s *Server) handleGetProfile(ctx context.Context, input *UserIDInput) (*ProfileOutput, error) {
	viewerID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.services.Profiles.GetProfile(ctx, viewerID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: profile}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Profiles.UpdateProfile(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}

func (s *Server) handleSetInterests(ctx context.Context, input *SetInterestsInput) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Profiles.SetInterests(ctx, userID, input.Body.Interests)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}

func (s *Server) handleScoreHistory(ctx context.Context, input *UserIDInput) (*ScoreHistoryOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	entries, err := s.services.Reputation.History(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}
	return &ScoreHistoryOutput{Body: ScoreHistoryResponse{Entries: entries}}, nil
}

func (s *Server) handleLeaderboard(ctx context.Context, input *LeaderboardInput) (*LeaderboardOutput, error) {
	category := domain.LeaderboardCategory(input.Category)
	if category == "" {
		category = domain.LeaderboardHighestScores
	}
	entries, err := s.services.Profiles.Leaderboard(ctx, category, input.Limit)
	if err != nil {
		return nil, err
	}
	return &LeaderboardOutput{Body: LeaderboardResponse{Category: string(category), Entries: entries}}, nil
}
