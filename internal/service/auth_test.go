package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
)

func TestRegister_FirstAccountIsAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.user(t, env.adminID)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	resp, err := env.authn.Register(ctx, RegisterRequest{
		Username: "  Nusrat ",
		Email:    "Nusrat@Example.ORG",
		Password: "correct horse battery",
		FullName: "Nusrat Jahan",
	})
	require.NoError(t, err)
	assert.Equal(t, "nusrat", resp.User.Username)
	assert.Equal(t, "nusrat@example.org", resp.User.Email)
	assert.Equal(t, domain.RoleMember, resp.User.Role)
	assert.Equal(t, domain.InitialSuccessScore, resp.User.SuccessScore)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.NotEmpty(t, resp.AccessToken)

	claims, err := env.authn.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.False(t, claims.IsAdmin())
}

func TestRegister_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")

	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{
			name: "username taken in another case",
			req:  RegisterRequest{Username: "ALICE", Email: "other@example.org", Password: "long enough", FullName: "A"},
			want: domainerrors.ErrAlreadyExists,
		},
		{
			name: "email taken",
			req:  RegisterRequest{Username: "alice2", Email: "alice@example.org", Password: "long enough", FullName: "A"},
			want: domainerrors.ErrAlreadyExists,
		},
		{
			name: "short password",
			req:  RegisterRequest{Username: "bob", Email: "bob@example.org", Password: "short", FullName: "Bob"},
			want: domainerrors.ErrValidation,
		},
		{
			name: "bad username",
			req:  RegisterRequest{Username: "b o b", Email: "bob@example.org", Password: "long enough", FullName: "Bob"},
			want: domainerrors.ErrValidation,
		},
		{
			name: "bad email",
			req:  RegisterRequest{Username: "bob", Email: "bob", Password: "long enough", FullName: "Bob"},
			want: domainerrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.authn.Register(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	byName, err := env.authn.Login(ctx, LoginRequest{Login: "Alice", Password: "long enough password"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.User.ID)

	byEmail, err := env.authn.Login(ctx, LoginRequest{Login: "alice@example.org", Password: "long enough password"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.User.ID)

	_, err = env.authn.Login(ctx, LoginRequest{Login: "alice", Password: "wrong password"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	// Unknown accounts look the same as wrong passwords.
	_, err = env.authn.Login(ctx, LoginRequest{Login: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = env.authn.VerifyAccessToken("v4.local.garbage")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestCreateUser_ExplicitRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.authn.CreateUser(ctx, RegisterRequest{
		Username: "second_admin", Email: "second@example.org", Password: "long enough", FullName: "Second",
	}, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = env.authn.CreateUser(ctx, RegisterRequest{
		Username: "third", Email: "third@example.org", Password: "long enough", FullName: "Third",
	}, "overlord")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
