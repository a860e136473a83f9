package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// AdminService provides the admin dashboard and member management.
type AdminService struct {
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time
}

// NewAdminService creates a new admin service.
func NewAdminService(store store.Store, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// Stats returns library-wide counts.
func (s *AdminService) Stats(ctx context.Context) (*domain.LibraryStats, error) {
	stats, err := s.store.LibraryStats(ctx, s.clock())
	if err != nil {
		return nil, fmt.Errorf("library stats: %w", err)
	}
	return stats, nil
}

// UserPage is one page of the member list.
type UserPage struct {
	Users []*domain.User `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ListUsers returns members, newest first. Page is 1-based.
func (s *AdminService) ListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	p := store.PageFromNumber(page, limit)
	users, total, err := s.store.ListUsers(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return &UserPage{Users: users, Total: total, Page: p.Offset/p.Limit + 1, Limit: p.Limit}, nil
}

// ChangeRole promotes or demotes a member. Admins cannot demote themselves,
// which keeps at least one admin around.
func (s *AdminService) ChangeRole(ctx context.Context, adminID, userID string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, domainerrors.Validationf("unknown role %q", role)
	}
	if adminID == userID && role != domain.RoleAdmin {
		return nil, domainerrors.Forbidden("you cannot remove your own admin role")
	}

	now := s.clock()
	var user *domain.User
	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		if err != nil {
			return notFound(err, "user not found")
		}
		if user.Role == role {
			return nil
		}
		previous := user.Role
		if err := tx.UpdateUserRole(ctx, userID, role); err != nil {
			return err
		}
		user.Role = role
		return recordAudit(ctx, tx, now, adminID, domain.AuditRoleChanged, "user", userID, map[string]any{
			"from": previous,
			"to":   role,
		})
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.logger.Info("role changed", "user_id", userID, "role", role, "admin_id", adminID)
	return user, nil
}
