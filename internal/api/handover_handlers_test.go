package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/domain"
)

func TestHandoverFlow(t *testing.T) {
	ts := setupTestServer(t)
	alice, aliceID := ts.member(t, "alice")
	bob, bobID := ts.member(t, "bob")
	carol, _ := ts.member(t, "carol")
	book := ts.createBook(t, "AP-0300")

	// Bob queues first, then Alice gets the book; approving Bob while Alice
	// holds it opens the handover thread.
	bobReq := ts.request(t, bob, book.ID)
	aliceReq := ts.request(t, alice, book.ID)
	ts.approve(t, aliceReq.ID, time.Now().Add(14*24*time.Hour))
	ts.approve(t, bobReq.ID, time.Now().Add(28*24*time.Hour))

	resp := ts.api.Get("/api/v1/books/"+book.ID+"/handover", alice)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	thread := decode[*domain.ThreadWithBook](t, resp.Body.Bytes())
	assert.Equal(t, aliceID, thread.CurrentHolderID)
	assert.Equal(t, bobID, thread.NextHolderID)
	assert.Equal(t, domain.DeliveryNotStarted, thread.DeliveryStatus)

	// Outsiders cannot see the thread.
	resp = ts.api.Get("/api/v1/books/"+book.ID+"/handover", carol)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = ts.api.Get("/api/v1/handover/threads/"+thread.ID+"/messages", carol)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/handover/threads/"+thread.ID+"/messages", bob, map[string]any{
		"message": "Can we meet at <b>Nilkhet</b> on Friday?",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	msg := decode[*domain.HandoverMessage](t, resp.Body.Bytes())
	assert.Equal(t, "Can we meet at Nilkhet on Friday?", msg.Message)

	resp = ts.api.Post("/api/v1/handover/threads/"+thread.ID+"/messages", carol, map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Delivery cannot skip in_transit.
	resp = ts.api.Post("/api/v1/books/"+book.ID+"/delivered", bob)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, resp.Body.Bytes()).Code)

	resp = ts.api.Post("/api/v1/books/"+book.ID+"/complete", bob)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/books/"+book.ID+"/complete", alice)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, domain.DeliveryInTransit, decode[*domain.HandoverThread](t, resp.Body.Bytes()).DeliveryStatus)

	resp = ts.api.Post("/api/v1/books/"+book.ID+"/delivered", bob)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	done := decode[*domain.HandoverThread](t, resp.Body.Bytes())
	assert.Equal(t, domain.DeliveryDelivered, done.DeliveryStatus)
	assert.Equal(t, domain.ThreadCompleted, done.Status)

	resp = ts.api.Get("/api/v1/books/" + book.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, bobID, decode[*domain.Book](t, resp.Body.Bytes()).CurrentHolderID)

	// A finished thread takes no more messages.
	resp = ts.api.Post("/api/v1/handover/threads/"+thread.ID+"/messages", alice, map[string]any{"message": "thanks"})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "THREAD_CLOSED", decodeError(t, resp.Body.Bytes()).Code)

	resp = ts.api.Get("/api/v1/handover/threads/"+thread.ID+"/messages", alice)
	require.Equal(t, http.StatusOK, resp.Code)
	messages := decode[MessageListResponse](t, resp.Body.Bytes()).Messages
	require.NotEmpty(t, messages)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}

	resp = ts.api.Get("/api/v1/handover/threads?status=completed", bob)
	require.Equal(t, http.StatusOK, resp.Code)
	threads := decode[ThreadListResponse](t, resp.Body.Bytes()).Threads
	require.Len(t, threads, 1)
	assert.Equal(t, thread.ID, threads[0].ID)

	resp = ts.api.Get("/api/v1/handover/threads?status=active", ts.admin)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[ThreadListResponse](t, resp.Body.Bytes()).Threads)
}
