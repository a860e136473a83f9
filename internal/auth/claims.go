package auth

import (
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
)

// AccessClaims represents the claims stored in a PASETO access token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type AccessClaims struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// IsAdmin reports whether the token was issued to an admin.
// Handlers that mutate roles re-check against the store.
func (c *AccessClaims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}
