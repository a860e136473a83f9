package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/normalize"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// Leaderboard size bounds.
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// ProfileService serves member profiles and leaderboards.
type ProfileService struct {
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time
}

// NewProfileService creates a new profile service.
func NewProfileService(store store.Store, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// Profile is a member as another member sees them.
type Profile struct {
	*domain.User
	CurrentlyReading []*domain.Book `json:"currently_reading"`
}

// GetProfile returns a member's public profile. The email is only shown to
// the member themselves.
func (s *ProfileService) GetProfile(ctx context.Context, viewerID, userID string) (*Profile, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	if viewerID != userID {
		user.Email = ""
	}
	reading, _, err := s.store.ListBooks(ctx, domain.BookFilter{HolderID: userID, Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("list held books: %w", err)
	}
	if reading == nil {
		reading = []*domain.Book{}
	}
	return &Profile{User: user, CurrentlyReading: reading}, nil
}

// UpdateProfileRequest holds optional profile changes.
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=1000"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Location  *string `json:"location,omitempty" validate:"omitempty,max=100"`
}

// UpdateProfile changes the member's own profile fields.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	return s.updateProfile(ctx, userID, func(u *domain.User) {
		if req.FullName != nil {
			u.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.Bio != nil {
			u.Bio = normalize.StripHTML(*req.Bio)
		}
		if req.AvatarURL != nil {
			u.AvatarURL = *req.AvatarURL
		}
		if req.Location != nil {
			u.Location = strings.TrimSpace(*req.Location)
		}
	})
}

// SetInterests replaces the member's reading interests. Categories are
// stored as slugs so they match book categories during ranking.
func (s *ProfileService) SetInterests(ctx context.Context, userID string, interests []string) (*domain.User, error) {
	if len(interests) > 50 {
		return nil, domainerrors.Validation("at most 50 interests are allowed")
	}
	normalized := normalize.Categories(interests)
	return s.updateProfile(ctx, userID, func(u *domain.User) {
		u.Interests = normalized
	})
}

func (s *ProfileService) updateProfile(ctx context.Context, userID string, mutate func(*domain.User)) (*domain.User, error) {
	var user *domain.User
	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}
		mutate(user)
		user.UpdatedAt = s.clock()
		return tx.UpdateUserProfile(ctx, user)
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return user, nil
}

// Leaderboard ranks members in one category.
func (s *ProfileService) Leaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]*domain.LeaderboardEntry, error) {
	if category == "" {
		category = domain.LeaderboardHighestScores
	}
	if !category.Valid() {
		return nil, domainerrors.Validationf("unknown leaderboard category %q", category)
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)

	entries, err := s.store.Leaderboard(ctx, category, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", category, err)
	}
	if entries == nil {
		entries = []*domain.LeaderboardEntry{}
	}
	return entries, nil
}
