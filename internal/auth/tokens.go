package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/id"
)

const (
	tokenIssuer   = "pathagar-server"
	tokenAudience = "pathagar-client"
)

// TokenService handles PASETO token generation and verification.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
	now                 func() time.Time
}

// NewTokenService creates a new token service from a raw 32-byte key.
func NewTokenService(key []byte, accessDuration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey:        symmetricKey,
		accessTokenDuration: accessDuration,
		now:                 time.Now,
	}, nil
}

// GenerateAccessToken creates a new PASETO v4.local access token for the user.
// The token is encrypted and carries the user's ID, username and role.
func (s *TokenService) GenerateAccessToken(user *domain.User) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(user.ID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.accessTokenDuration))

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	custom := map[string]string{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
	}
	for k, v := range custom {
		if err := token.Set(k, v); err != nil {
			return "", fmt.Errorf("set %s claim: %w", k, err)
		}
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyAccessToken verifies and parses a PASETO access token.
// Returns the claims if valid, or an error if they're invalid or expired.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(
		paseto.ForAudience(tokenAudience),
		paseto.IssuedBy(tokenIssuer),
		paseto.ValidAt(s.now()),
	)

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	return &claims, nil
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
