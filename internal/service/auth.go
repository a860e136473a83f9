package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/auth"
	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/id"
	"github.com/amarpathagar/pathagar-server/internal/normalize"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// AuthService handles registration, login and token verification.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	logger       *slog.Logger
	clock        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store store.Store, tokenService *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		logger:       logger,
		clock:        time.Now,
	}
}

// RegisterRequest contains the data for a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	FullName string `json:"full_name" validate:"required,notblank,max=100"`
}

// LoginRequest contains user credentials. Login accepts a username or email.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the access token and the user it belongs to.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // seconds
}

// Register creates a member account. The very first account becomes an admin
// so a fresh install can be managed.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Username = normalize.Username(req.Username)
	req.Email = normalize.Email(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, req, domain.RoleMember, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return s.issue(user)
}

// CreateUser creates an account with an explicit role. Used by the admin CLI.
func (s *AuthService) CreateUser(ctx context.Context, req RegisterRequest, role domain.Role) (*domain.User, error) {
	req.Username = normalize.Username(req.Username)
	req.Email = normalize.Email(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domainerrors.Validationf("unknown role %q", role)
	}
	return s.createUser(ctx, req, role, false)
}

func (s *AuthService) createUser(ctx context.Context, req RegisterRequest, role domain.Role, promoteFirst bool) (*domain.User, error) {
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := s.clock()
	user := &domain.User{
		ID:           userID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     normalize.StripHTML(req.FullName),
		Role:         role,
		Interests:    []string{},
		SuccessScore: domain.InitialSuccessScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.InTx(ctx, func(tx store.Repository) error {
		if promoteFirst {
			count, err := tx.CountUsers(ctx)
			if err != nil {
				return err
			}
			if count == 0 {
				user.Role = domain.RoleAdmin
			}
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domainerrors.AlreadyExists("username or email already in use")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return user, nil
}

// Login checks credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByLogin(ctx, normalize.Username(req.Login))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether the account exists
			return nil, domainerrors.InvalidCredentials("invalid username or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid username or password")
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResponse, error) {
	token, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenService.AccessTokenDuration().Seconds()),
	}, nil
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

// VerifyAccessToken validates a token and returns its claims. Used by the
// API middleware and the event stream.
func (s *AuthService) VerifyAccessToken(tokenString string) (*auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}
	return claims, nil
}
