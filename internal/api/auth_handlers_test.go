package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func TestRegister_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"username":  "rahim",
		"email":     "rahim@example.org",
		"password":  "correct horse battery",
		"full_name": "Rahim Uddin",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	auth := decode[service.AuthResponse](t, resp.Body.Bytes())
	assert.NotEmpty(t, auth.AccessToken)
	assert.Equal(t, "Bearer", auth.TokenType)
	assert.Positive(t, auth.ExpiresIn)
	require.NotNil(t, auth.User)
	assert.Equal(t, "rahim", auth.User.Username)
	// The librarian registered first, so this account is a plain member.
	assert.Equal(t, domain.RoleMember, auth.User.Role)
	assert.Equal(t, domain.InitialSuccessScore, auth.User.SuccessScore)
	assert.NotContains(t, resp.Body.String(), "password")
}

func TestRegister_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing email",
			body: map[string]any{"username": "a_user", "password": "long enough password", "full_name": "A"},
		},
		{
			name: "invalid email",
			body: map[string]any{"username": "a_user", "email": "nope", "password": "long enough password", "full_name": "A"},
		},
		{
			name: "short password",
			body: map[string]any{"username": "a_user", "email": "a@example.org", "password": "short", "full_name": "A"},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Separate client addresses keep the attempts under the rate limit.
			ip := "X-Forwarded-For: 10.0.0." + string(rune('1'+i))
			resp := ts.api.Post("/api/v1/auth/register", ip, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			assert.Equal(t, "VALIDATION", decodeError(t, resp.Body.Bytes()).Code)
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"username":  "librarian",
		"email":     "other@example.org",
		"password":  "long enough password",
		"full_name": "Someone Else",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestLogin(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"login":    "librarian@example.org",
		"password": "long enough password",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	auth := decode[service.AuthResponse](t, resp.Body.Bytes())
	assert.Equal(t, ts.adminID, auth.User.ID)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"login":    "librarian",
		"password": "wrong password entirely",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, resp.Body.Bytes()).Code)
}

func TestLogin_RateLimited(t *testing.T) {
	ts := setupTestServer(t)

	body := map[string]any{"login": "librarian", "password": "wrong password entirely"}
	ip := "X-Forwarded-For: 203.0.113.7"
	var last int
	for range 20 {
		last = ts.api.Post("/api/v1/auth/login", ip, body).Code
		if last == http.StatusTooManyRequests {
			break
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	// Another client is unaffected.
	resp := ts.api.Post("/api/v1/auth/login", "X-Forwarded-For: 203.0.113.8", body)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMe(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp.Body.Bytes()).Code)

	resp = ts.api.Get("/api/v1/auth/me", "Authorization: Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/api/v1/auth/me", ts.admin)
	require.Equal(t, http.StatusOK, resp.Code)
	user := decode[*domain.User](t, resp.Body.Bytes())
	assert.Equal(t, ts.adminID, user.ID)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}
