package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

func newTestInbox(t *testing.T) *Inbox {
	t.Helper()
	inbox, err := OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { inbox.Close() })
	return inbox
}

func addN(t *testing.T, inbox *Inbox, userID string, n int, base time.Time) {
	t.Helper()
	for i := range n {
		err := inbox.Add(context.Background(), &domain.Notification{
			ID:        fmt.Sprintf("ntf-%s-%d", userID, i),
			UserID:    userID,
			Type:      domain.NotifyBookAvailable,
			Title:     "Book available",
			Message:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestInbox_ListNewestFirstWithCursor(t *testing.T) {
	inbox := newTestInbox(t)
	ctx := context.Background()
	addN(t, inbox, "usr-a", 5, time.Now())
	addN(t, inbox, "usr-b", 2, time.Now())

	first, err := inbox.List(ctx, "usr-a", store.PaginationParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "ntf-usr-a-4", first.Items[0].ID)
	assert.Equal(t, "ntf-usr-a-3", first.Items[1].ID)

	second, err := inbox.List(ctx, "usr-a", store.PaginationParams{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "ntf-usr-a-2", second.Items[0].ID)

	third, err := inbox.List(ctx, "usr-a", store.PaginationParams{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.False(t, third.HasMore)
	assert.Empty(t, third.NextCursor)
}

func TestInbox_CursorFromAnotherInboxRejected(t *testing.T) {
	inbox := newTestInbox(t)
	ctx := context.Background()
	addN(t, inbox, "usr-a", 3, time.Now())

	page, err := inbox.List(ctx, "usr-a", store.PaginationParams{Limit: 1})
	require.NoError(t, err)

	_, err = inbox.List(ctx, "usr-b", store.PaginationParams{Limit: 1, Cursor: page.NextCursor})
	assert.True(t, errors.Is(err, store.ErrInvalidInput))
}

func TestInbox_MarkReadAndUnreadCount(t *testing.T) {
	inbox := newTestInbox(t)
	ctx := context.Background()
	addN(t, inbox, "usr-a", 3, time.Now())

	count, err := inbox.UnreadCount(ctx, "usr-a")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, inbox.MarkRead(ctx, "usr-a", "ntf-usr-a-1"))
	// Marking twice is harmless.
	require.NoError(t, inbox.MarkRead(ctx, "usr-a", "ntf-usr-a-1"))

	count, err = inbox.UnreadCount(ctx, "usr-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Another member cannot touch the notification.
	err = inbox.MarkRead(ctx, "usr-b", "ntf-usr-a-0")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	err = inbox.MarkRead(ctx, "usr-a", "ntf-missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestInbox_MarkAllRead(t *testing.T) {
	inbox := newTestInbox(t)
	ctx := context.Background()
	addN(t, inbox, "usr-a", 4, time.Now())
	addN(t, inbox, "usr-b", 1, time.Now())
	require.NoError(t, inbox.MarkRead(ctx, "usr-a", "ntf-usr-a-0"))

	changed, err := inbox.MarkAllRead(ctx, "usr-a")
	require.NoError(t, err)
	assert.Equal(t, 3, changed)

	count, _ := inbox.UnreadCount(ctx, "usr-a")
	assert.Zero(t, count)
	other, _ := inbox.UnreadCount(ctx, "usr-b")
	assert.Equal(t, 1, other)
}

func TestInbox_AddRequiresRecipient(t *testing.T) {
	inbox := newTestInbox(t)
	err := inbox.Add(context.Background(), &domain.Notification{ID: "ntf-1"})
	assert.True(t, errors.Is(err, store.ErrInvalidInput))
}
