package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func (ts *testServer) request(t *testing.T, member, bookID string) *domain.BookRequest {
	t.Helper()
	resp := ts.api.Post("/api/v1/books/"+bookID+"/request", member)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[*domain.BookRequest](t, resp.Body.Bytes())
}

func (ts *testServer) approve(t *testing.T, requestID string, due time.Time) *domain.BookRequest {
	t.Helper()
	resp := ts.api.Post("/api/v1/admin/requests/"+requestID+"/approve", ts.admin, map[string]any{
		"due_date": due.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode[*domain.BookRequest](t, resp.Body.Bytes())
}

func TestRequestApproveReturn(t *testing.T) {
	ts := setupTestServer(t)
	reader, readerID := ts.member(t, "nasrin")
	book := ts.createBook(t, "AP-0200")

	req := ts.request(t, reader, book.ID)
	assert.Equal(t, domain.RequestPending, req.Status)

	resp := ts.api.Post("/api/v1/books/"+book.ID+"/request", reader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "DUPLICATE_PENDING", decodeError(t, resp.Body.Bytes()).Code)

	resp = ts.api.Get("/api/v1/books/"+book.ID+"/requested", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decode[service.RequestState](t, resp.Body.Bytes()).Requested)

	resp = ts.api.Get("/api/v1/admin/requests/pending", ts.admin)
	require.Equal(t, http.StatusOK, resp.Code)
	pending := decode[RequestListResponse](t, resp.Body.Bytes())
	require.Len(t, pending.Requests, 1)
	assert.Equal(t, readerID, pending.Requests[0].User.ID)

	approved := ts.approve(t, req.ID, time.Now().Add(14*24*time.Hour))
	assert.Equal(t, domain.RequestApproved, approved.Status)

	resp = ts.api.Post("/api/v1/admin/requests/"+req.ID+"/approve", ts.admin, map[string]any{
		"due_date": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, resp.Body.Bytes()).Code)

	resp = ts.api.Get("/api/v1/books/"+book.ID+"/reading-status", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	status := decode[service.ReadingStatus](t, resp.Body.Bytes())
	assert.Equal(t, domain.BookStatusReading, status.Status)
	require.NotNil(t, status.Holder)
	assert.Equal(t, readerID, status.Holder.ID)

	resp = ts.api.Get("/api/v1/my-books-on-hold", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[BookListResponse](t, resp.Body.Bytes()).Books, 1)

	// Only the holder can return.
	resp = ts.api.Post("/api/v1/books/"+book.ID+"/return", ts.admin)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "NOT_HOLDER", decodeError(t, resp.Body.Bytes()).Code)

	resp = ts.api.Post("/api/v1/books/"+book.ID+"/return", reader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	returned := decode[*domain.Book](t, resp.Body.Bytes())
	assert.Equal(t, domain.BookStatusAvailable, returned.Status)
	assert.Empty(t, returned.CurrentHolderID)

	resp = ts.api.Get("/api/v1/auth/me", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 110, decode[*domain.User](t, resp.Body.Bytes()).SuccessScore)

	resp = ts.api.Get("/api/v1/my-reading-history", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	history := decode[ReadingHistoryResponse](t, resp.Body.Bytes())
	require.Len(t, history.Readings, 1)
	require.NotNil(t, history.Readings[0].ReturnedOnTime)
	assert.True(t, *history.Readings[0].ReturnedOnTime)

	resp = ts.api.Get("/api/v1/users/"+readerID+"/score-history", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	ledger := decode[ScoreHistoryResponse](t, resp.Body.Bytes())
	require.Len(t, ledger.Entries, 1)
	assert.Equal(t, 10, ledger.Entries[0].Delta)
}

func TestRejectRequest(t *testing.T) {
	ts := setupTestServer(t)
	reader, _ := ts.member(t, "nasrin")
	book := ts.createBook(t, "AP-0201")
	req := ts.request(t, reader, book.ID)

	// An empty reason fails schema validation.
	resp := ts.api.Post("/api/v1/admin/requests/"+req.ID+"/reject", ts.admin, map[string]any{"reason": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Post("/api/v1/admin/requests/"+req.ID+"/reject", reader, map[string]any{"reason": "no"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/admin/requests/"+req.ID+"/reject", ts.admin, map[string]any{"reason": "Reserved for the reading circle"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	rejected := decode[*domain.BookRequest](t, resp.Body.Bytes())
	assert.Equal(t, domain.RequestRejected, rejected.Status)
	assert.Equal(t, "Reserved for the reading circle", rejected.Reason)

	resp = ts.api.Get("/api/v1/books/"+book.ID+"/requested", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, decode[service.RequestState](t, resp.Body.Bytes()).Requested)
}

func TestCancelRequest(t *testing.T) {
	ts := setupTestServer(t)
	reader, _ := ts.member(t, "nasrin")
	book := ts.createBook(t, "AP-0202")
	ts.request(t, reader, book.ID)

	resp := ts.api.Delete("/api/v1/books/"+book.ID+"/request", reader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, domain.RequestCancelled, decode[*domain.BookRequest](t, resp.Body.Bytes()).Status)

	resp = ts.api.Get("/api/v1/my-requests", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	mine := decode[RequestListResponse](t, resp.Body.Bytes())
	require.Len(t, mine.Requests, 1)
	assert.Equal(t, domain.RequestCancelled, mine.Requests[0].Status)
}

func TestRequest_InsufficientReputation(t *testing.T) {
	ts := setupTestServer(t)
	reader, readerID := ts.member(t, "nasrin")
	book := ts.createBook(t, "AP-0203")

	resp := ts.api.Post("/api/v1/admin/users/"+readerID+"/score", ts.admin, map[string]any{
		"amount": -81,
		"reason": "Repeated damage",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	entry := decode[*domain.LedgerEntry](t, resp.Body.Bytes())
	assert.Equal(t, 19, entry.ScoreAfter)

	resp = ts.api.Post("/api/v1/books/"+book.ID+"/request", reader)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INSUFFICIENT_REPUTATION", decodeError(t, resp.Body.Bytes()).Code)
}
