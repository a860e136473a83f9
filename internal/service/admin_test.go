package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
)

func TestChangeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	_, err := env.admin.ChangeRole(ctx, env.adminID, env.adminID, domain.RoleMember)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = env.admin.ChangeRole(ctx, env.adminID, alice.ID, "overlord")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.admin.ChangeRole(ctx, env.adminID, "usr-missing", domain.RoleAdmin)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	promoted, err := env.admin.ChangeRole(ctx, env.adminID, alice.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)
	assert.Equal(t, domain.RoleAdmin, env.user(t, alice.ID).Role)

	// A no-op change writes no audit row.
	_, err = env.admin.ChangeRole(ctx, env.adminID, alice.ID, domain.RoleAdmin)
	require.NoError(t, err)

	logs, err := env.audit.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, logs.Total)
	assert.Equal(t, domain.AuditRoleChanged, logs.Logs[0].Action)
	assert.Equal(t, alice.ID, logs.Logs[0].EntityID)
}

func TestStatsAndUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	env.register(t, "bob")
	held := env.createBook(t, "AP-0001")
	env.createBook(t, "AP-0002")
	env.checkout(t, alice.ID, held.ID)

	stats, err := env.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBooks)
	assert.Equal(t, 1, stats.AvailableBooks)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Zero(t, stats.OverdueReadings)

	env.advance(15 * 24 * time.Hour)
	stats, err = env.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OverdueReadings)

	page, err := env.admin.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, 2, page.Limit)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	book := env.createBook(t, "AP-0001")
	env.checkout(t, alice.ID, book.ID)

	own, err := env.profiles.GetProfile(ctx, alice.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", own.Email)
	require.Len(t, own.CurrentlyReading, 1)
	assert.Equal(t, book.ID, own.CurrentlyReading[0].ID)

	seen, err := env.profiles.GetProfile(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, seen.Email)

	bio := "<script>x</script>Reads on the <b>rooftop</b>"
	updated, err := env.profiles.UpdateProfile(ctx, alice.ID, UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	assert.NotContains(t, updated.Bio, "<")
	assert.Contains(t, updated.Bio, "rooftop")

	bad := "not a url"
	_, err = env.profiles.UpdateProfile(ctx, alice.ID, UpdateProfileRequest{AvatarURL: &bad})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	withInterests, err := env.profiles.SetInterests(ctx, alice.ID, []string{"Science Fiction", "science fiction", " ", "Poetry"})
	require.NoError(t, err)
	assert.Equal(t, []string{"science-fiction", "poetry"}, withInterests.Interests)
	assert.Equal(t, []string{"science-fiction", "poetry"}, env.user(t, alice.ID).Interests)

	_, err = env.profiles.GetProfile(ctx, bob.ID, "usr-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
