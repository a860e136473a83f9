package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
)

// fakeSearcher returns canned matches regardless of the query.
type fakeSearcher struct {
	ids []string
}

func (f *fakeSearcher) MatchingIDs(context.Context, string) ([]string, error) {
	return f.ids, nil
}

func TestCreateBook_NormalizesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	book, err := env.books.Create(ctx, env.adminID, CreateBookRequest{
		Title:        "  Padma Nadir Majhi ",
		Author:       "Manik Bandopadhyay",
		PhysicalCode: " ap 0042/b ",
		Category:     "Classic Fiction",
		Description:  "<p>A novel of <em>fishermen</em>.</p>",
		Tags:         []string{"River", "river", " Bengal "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Padma Nadir Majhi", book.Title)
	assert.Equal(t, "AP-0042-B", book.PhysicalCode)
	assert.Equal(t, []string{"river", "bengal"}, book.Tags)
	assert.Equal(t, domain.BookStatusAvailable, book.Status)
	assert.Equal(t, domain.DefaultMaxReadingDays, book.MaxReadingDays)
	assert.Contains(t, book.Description, "*fishermen*")
	assert.NotContains(t, book.Description, "<p>")

	// Same code in a different spelling.
	_, err = env.books.Create(ctx, env.adminID, CreateBookRequest{
		Title: "Another", Author: "Someone", PhysicalCode: "AP_0042.b",
	})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	_, err = env.books.Create(ctx, env.adminID, CreateBookRequest{
		Title: "No code", Author: "Someone", PhysicalCode: "---",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.books.Create(ctx, env.adminID, CreateBookRequest{Title: " ", Author: "x", PhysicalCode: "X-1"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestUpdateBook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.createBook(t, "AP-0001")
	env.createBook(t, "AP-0002")

	title := "Revised"
	days := 21
	updated, err := env.books.Update(ctx, env.adminID, first.ID, UpdateBookRequest{Title: &title, MaxReadingDays: &days})
	require.NoError(t, err)
	assert.Equal(t, "Revised", updated.Title)
	assert.Equal(t, 21, updated.MaxReadingDays)
	assert.Equal(t, "AP-0001", updated.PhysicalCode)

	code := "ap-0002"
	_, err = env.books.Update(ctx, env.adminID, first.ID, UpdateBookRequest{PhysicalCode: &code})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	_, err = env.books.Update(ctx, env.adminID, "book-missing", UpdateBookRequest{Title: &title})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDeleteBook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	held := env.createBook(t, "AP-0001")
	env.checkout(t, alice.ID, held.ID)
	err := env.books.Delete(ctx, env.adminID, held.ID)
	assert.ErrorIs(t, err, domainerrors.ErrStateConflict)

	queued := env.createBook(t, "AP-0002")
	req, err := env.requests.Request(ctx, bob.ID, queued.ID)
	require.NoError(t, err)

	require.NoError(t, env.books.Delete(ctx, env.adminID, queued.ID))

	_, err = env.books.Get(ctx, queued.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.ErrorIs(t, env.books.Delete(ctx, env.adminID, queued.ID), domainerrors.ErrNotFound)

	closed, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestCancelled, closed.Status)
	assert.Contains(t, env.notificationTypes(t, bob.ID), domain.NotifyRequestRejected)

	// The archived book keeps its code.
	_, err = env.books.Create(ctx, env.adminID, CreateBookRequest{Title: "Dup", Author: "x", PhysicalCode: "AP-0002"})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestBatchImport_ReportsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createBook(t, "AP-0001")

	result, err := env.books.BatchImport(ctx, env.adminID, []CreateBookRequest{
		{Title: "One", Author: "A", PhysicalCode: "B-1"},
		{Title: "Two", Author: "A", PhysicalCode: "b 1"},
		{Title: "Three", Author: "A", PhysicalCode: "AP-0001"},
		{Title: "", Author: "A", PhysicalCode: "B-4"},
		{Title: "Five", Author: "A", PhysicalCode: "B-5"},
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	require.Len(t, result.Failed, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{result.Failed[0].Index, result.Failed[1].Index, result.Failed[2].Index})
	assert.Equal(t, "B-1", result.Failed[0].PhysicalCode)

	_, err = env.books.BatchImport(ctx, env.adminID, nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	logs, err := env.audit.List(ctx, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditBooksImported, logs.Logs[0].Action)
}

func TestListBooks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	a := env.createBook(t, "AP-0001")
	b := env.createBook(t, "AP-0002")
	c := env.createBook(t, "AP-0003")
	env.checkout(t, alice.ID, b.ID)

	all, err := env.books.List(ctx, BookQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.Limit)

	available, err := env.books.List(ctx, BookQuery{Status: domain.BookStatusAvailable, Category: "fiction"})
	require.NoError(t, err)
	assert.Equal(t, 2, available.Total)

	_, err = env.books.List(ctx, BookQuery{Status: "misplaced"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	env.books.searcher = &fakeSearcher{ids: []string{c.ID, a.ID}}
	found, err := env.books.List(ctx, BookQuery{Search: "anything"})
	require.NoError(t, err)
	require.Len(t, found.Books, 2)
	assert.Equal(t, c.ID, found.Books[0].ID)
	assert.Equal(t, a.ID, found.Books[1].ID)

	env.books.searcher = &fakeSearcher{}
	none, err := env.books.List(ctx, BookQuery{Search: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, none.Books)
	assert.Zero(t, none.Total)
}
