package api

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func TestIdeasAndVotes(t *testing.T) {
	ts := setupTestServer(t)
	author, authorID := ts.member(t, "author")
	voter, _ := ts.member(t, "voter")
	book := ts.createBook(t, "AP-0400")

	resp := ts.api.Post("/api/v1/ideas", author, map[string]any{
		"book_id": book.ID,
		"title":   "Read it aloud",
		"content": "The river chapters work best read aloud.",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	idea := decode[*domain.Idea](t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/ideas/"+idea.ID+"/vote?type=up", author)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/ideas/"+idea.ID+"/vote?type=sideways", voter)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Post("/api/v1/ideas/"+idea.ID+"/vote?type=up", voter)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 1, decode[*domain.Idea](t, resp.Body.Bytes()).Upvotes)

	resp = ts.api.Post("/api/v1/ideas/"+idea.ID+"/vote?type=down", voter)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.api.Get("/api/v1/ideas/book/" + book.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[IdeaListResponse](t, resp.Body.Bytes()).Ideas, 1)

	// Posting earns 3 and the upvote 1.
	resp = ts.api.Get("/api/v1/users/"+authorID+"/profile", voter)
	require.Equal(t, http.StatusOK, resp.Code)
	profile := decode[service.Profile](t, resp.Body.Bytes())
	assert.Equal(t, domain.InitialSuccessScore+4, profile.SuccessScore)
	assert.Empty(t, profile.Email)
}

func TestReviews(t *testing.T) {
	ts := setupTestServer(t)
	reviewer, _ := ts.member(t, "reviewer")
	_, revieweeID := ts.member(t, "reviewee")

	resp := ts.api.Post("/api/v1/reviews", reviewer, map[string]any{
		"reviewee_id":           revieweeID,
		"behavior_rating":       5,
		"book_condition_rating": 4,
		"communication_rating":  5,
		"comment":               "Brought the book wrapped in newspaper.",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/reviews", reviewer, map[string]any{
		"reviewee_id":           revieweeID,
		"behavior_rating":       9,
		"book_condition_rating": 4,
		"communication_rating":  5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Get("/api/v1/users/" + revieweeID + "/reviews")
	require.Equal(t, http.StatusOK, resp.Code)
	reviews := decode[ReviewListResponse](t, resp.Body.Bytes()).Reviews
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].BehaviorRating)
}

func TestDonations(t *testing.T) {
	ts := setupTestServer(t)
	donor, donorID := ts.member(t, "donor")

	resp := ts.api.Post("/api/v1/donations", donor, map[string]any{
		"donation_type": "money",
		"amount":        "500.50",
		"is_public":     true,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	donation := decode[*domain.Donation](t, resp.Body.Bytes())
	assert.True(t, donation.Amount.Equal(decimal.RequireFromString("500.5")))
	assert.Equal(t, domain.DefaultCurrency, donation.Currency)

	resp = ts.api.Post("/api/v1/donations", donor, map[string]any{
		"donation_type": "money",
		"amount":        "five hundred",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Post("/api/v1/donations", donor, map[string]any{
		"donation_type": "book",
		"book_title":    "Shesher Kobita",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/donations", donor)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[DonationListResponse](t, resp.Body.Bytes()).Donations, 1)

	resp = ts.api.Get("/api/v1/donations?mine=true", donor)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[DonationListResponse](t, resp.Body.Bytes()).Donations, 2)

	resp = ts.api.Get("/api/v1/auth/me", donor)
	require.Equal(t, http.StatusOK, resp.Code)
	me := decode[*domain.User](t, resp.Body.Bytes())
	assert.Equal(t, donorID, me.ID)
	assert.Equal(t, domain.InitialSuccessScore+30, me.SuccessScore)
	assert.Equal(t, 2, me.DonationsMade)
}

func TestBookmarks(t *testing.T) {
	ts := setupTestServer(t)
	reader, _ := ts.member(t, "reader")
	book := ts.createBook(t, "AP-0401")

	resp := ts.api.Post("/api/v1/bookmarks", reader, map[string]any{
		"book_id":        book.ID,
		"bookmark_type":  "priority",
		"priority_level": 9,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Post("/api/v1/bookmarks", reader, map[string]any{
		"book_id":        book.ID,
		"bookmark_type":  "priority",
		"priority_level": 3,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/bookmarks", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	marks := decode[BookmarkListResponse](t, resp.Body.Bytes()).Bookmarks
	require.Len(t, marks, 1)
	assert.Equal(t, 3, marks[0].PriorityLevel)
	require.NotNil(t, marks[0].Book)
	assert.Equal(t, book.ID, marks[0].Book.ID)

	resp = ts.api.Delete("/api/v1/bookmarks/"+book.ID+"?type=priority", reader)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Delete("/api/v1/bookmarks/"+book.ID+"?type=priority", reader)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestProfileUpdates(t *testing.T) {
	ts := setupTestServer(t)
	reader, readerID := ts.member(t, "reader")

	resp := ts.api.Put("/api/v1/users/profile", reader, map[string]any{
		"bio":      "Reads on the Dhaka-Chittagong train",
		"location": "Chattogram",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Chattogram", decode[*domain.User](t, resp.Body.Bytes()).Location)

	resp = ts.api.Post("/api/v1/users/interests", reader, map[string]any{
		"interests": []string{"Poetry", "History"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Len(t, decode[*domain.User](t, resp.Body.Bytes()).Interests, 2)

	resp = ts.api.Get("/api/v1/users/"+readerID+"/profile", reader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "reader@example.org", decode[service.Profile](t, resp.Body.Bytes()).Email)

	resp = ts.api.Get("/api/v1/users/nobody/profile", reader)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLeaderboard(t *testing.T) {
	ts := setupTestServer(t)
	_, readerID := ts.member(t, "reader")

	resp := ts.api.Post("/api/v1/admin/users/"+readerID+"/score", ts.admin, map[string]any{
		"amount": 25,
		"reason": "Organised the reading circle",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/leaderboard?limit=5")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	board := decode[LeaderboardResponse](t, resp.Body.Bytes())
	assert.Equal(t, string(domain.LeaderboardHighestScores), board.Category)
	require.NotEmpty(t, board.Entries)
	assert.Equal(t, readerID, board.Entries[0].UserID)
	assert.Equal(t, 1, board.Entries[0].Rank)

	resp = ts.api.Get("/api/v1/leaderboard?category=fastest")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
