package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/register",
		Summary:       "Register",
		Description:   "Creates a member account and returns an access token. The first account becomes an admin.",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   huma.Middlewares{s.limitAuthAttempts},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Login",
		Description: "Authenticates with a username or email and returns an access token",
		Tags:        []string{"Auth"},
		Middlewares: huma.Middlewares{s.limitAuthAttempts},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated member",
		Tags:        []string{"Auth"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMe)
}

// RegisterInput wraps the registration request for Huma.
type RegisterInput struct {
	Body service.RegisterRequest
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body service.LoginRequest
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body *service.AuthResponse
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body *domain.User
}

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Register(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleMe(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Auth.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}
