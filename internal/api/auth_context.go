package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/amarpathagar/pathagar-server/internal/auth"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

type claimsKey struct{}

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

// GetUserID returns the member the request's access token was issued to.
func GetUserID(ctx context.Context) (string, error) {
	claims, _ := ctx.Value(claimsKey{}).(*auth.AccessClaims)
	if claims == nil || claims.UserID == "" {
		return "", domainerrors.Unauthorized("Authentication required")
	}
	return claims.UserID, nil
}

// authMiddleware attaches verified token claims to the request context.
// Anonymous or badly signed requests pass through untouched; each handler
// decides whether it needs a member.
func authMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
				if claims, err := verifier.VerifyAccessToken(strings.TrimSpace(token)); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireViewer loads the caller from the store so that a role change
// applies to tokens issued before it.
func (s *Server) RequireViewer(ctx context.Context) (service.Viewer, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return service.Viewer{}, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return service.Viewer{}, domainerrors.Unauthorized("User not found")
	}
	return service.Viewer{UserID: user.ID, IsAdmin: user.IsAdmin()}, nil
}

// RequireAdmin returns the caller's ID, or Forbidden for non-admins.
func (s *Server) RequireAdmin(ctx context.Context) (string, error) {
	viewer, err := s.RequireViewer(ctx)
	if err != nil {
		return "", err
	}
	if !viewer.IsAdmin {
		return "", domainerrors.Forbidden("Admin access required")
	}
	return viewer.UserID, nil
}
