package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// --- Bookmarks ---

// UpsertBookmark creates the bookmark or updates its priority level.
func (r *repo) UpsertBookmark(ctx context.Context, b *domain.Bookmark) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO bookmarks (user_id, book_id, bookmark_type, priority_level, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, book_id, bookmark_type) DO UPDATE SET priority_level = excluded.priority_level`,
		b.UserID, b.BookID, string(b.Type), b.PriorityLevel, formatTime(b.CreatedAt))
	return err
}

// DeleteBookmark removes one bookmark row.
func (r *repo) DeleteBookmark(ctx context.Context, userID, bookID string, t domain.BookmarkType) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = ? AND book_id = ? AND bookmark_type = ?`,
		userID, bookID, string(t))
	if err != nil {
		return err
	}
	return expectOne(result, store.ErrNotFound)
}

// ListBookmarks returns a member's bookmarks, newest first.
func (r *repo) ListBookmarks(ctx context.Context, userID string) ([]*domain.Bookmark, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT user_id, book_id, bookmark_type, priority_level, created_at
		FROM bookmarks WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Bookmark
	for rows.Next() {
		var (
			b         domain.Bookmark
			bt        string
			createdAt string
		)
		if err := rows.Scan(&b.UserID, &b.BookID, &bt, &b.PriorityLevel, &createdAt); err != nil {
			return nil, err
		}
		b.Type = domain.BookmarkType(bt)
		if b.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// PriorityLevels returns the priority bookmark level per user for a book.
func (r *repo) PriorityLevels(ctx context.Context, bookID string) (map[string]int, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT user_id, priority_level FROM bookmarks
		WHERE book_id = ? AND bookmark_type = 'priority'`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := make(map[string]int)
	for rows.Next() {
		var (
			userID string
			level  int
		)
		if err := rows.Scan(&userID, &level); err != nil {
			return nil, err
		}
		levels[userID] = level
	}
	return levels, rows.Err()
}

// --- Ideas ---

const ideaColumns = `id, book_id, user_id, title, content, upvotes, downvotes, created_at`

func scanIdea(scanner interface{ Scan(dest ...any) error }) (*domain.Idea, error) {
	var (
		idea      domain.Idea
		createdAt string
	)
	err := scanner.Scan(&idea.ID, &idea.BookID, &idea.UserID, &idea.Title, &idea.Content,
		&idea.Upvotes, &idea.Downvotes, &createdAt)
	if err != nil {
		return nil, err
	}
	if idea.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &idea, nil
}

// CreateIdea inserts an idea.
func (r *repo) CreateIdea(ctx context.Context, idea *domain.Idea) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO ideas (`+ideaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.ID, idea.BookID, idea.UserID, idea.Title, idea.Content,
		idea.Upvotes, idea.Downvotes, formatTime(idea.CreatedAt))
	return err
}

// GetIdea retrieves an idea by ID.
func (r *repo) GetIdea(ctx context.Context, id string) (*domain.Idea, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id)
	idea, err := scanIdea(row)
	if err != nil {
		return nil, noRows(err)
	}
	return idea, nil
}

// ListIdeasByBook returns a book's ideas, best voted first.
func (r *repo) ListIdeasByBook(ctx context.Context, bookID string) ([]*domain.Idea, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+ideaColumns+` FROM ideas WHERE book_id = ?
		ORDER BY (upvotes - downvotes) DESC, created_at DESC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, idea)
	}
	return out, rows.Err()
}

// CreateIdeaVote records a vote. Votes are final: a second vote by the same
// member on the same idea yields store.ErrAlreadyExists.
func (r *repo) CreateIdeaVote(ctx context.Context, vote *domain.IdeaVote) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO idea_votes (idea_id, user_id, vote_type, created_at) VALUES (?, ?, ?, ?)`,
		vote.IdeaID, vote.UserID, string(vote.VoteType), formatTime(vote.CreatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("already voted on this idea")
	}
	return err
}

// IncrementIdeaVotes bumps the idea's up or down tally.
func (r *repo) IncrementIdeaVotes(ctx context.Context, ideaID string, vote domain.VoteType) error {
	col := "upvotes"
	if vote == domain.VoteDown {
		col = "downvotes"
	}
	result, err := r.q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE ideas SET %s = %s + 1 WHERE id = ?`, col, col), ideaID)
	if err != nil {
		return err
	}
	return expectOne(result, store.ErrNotFound)
}

// --- Reviews ---

const reviewColumns = `id, reviewer_id, reviewee_id, book_id, behavior_rating,
	book_condition_rating, communication_rating, comment, created_at`

func scanReview(scanner interface{ Scan(dest ...any) error }) (*domain.Review, error) {
	var (
		rv        domain.Review
		bookID    sql.NullString
		comment   sql.NullString
		createdAt string
	)
	err := scanner.Scan(&rv.ID, &rv.ReviewerID, &rv.RevieweeID, &bookID,
		&rv.BehaviorRating, &rv.BookConditionRating, &rv.CommunicationRating,
		&comment, &createdAt)
	if err != nil {
		return nil, err
	}
	rv.BookID = bookID.String
	rv.Comment = comment.String
	if rv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *repo) listReviews(ctx context.Context, where string, arg string) ([]*domain.Review, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE `+where+` = ? ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// CreateReview inserts a review.
func (r *repo) CreateReview(ctx context.Context, review *domain.Review) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID, review.ReviewerID, review.RevieweeID, nullString(review.BookID),
		review.BehaviorRating, review.BookConditionRating, review.CommunicationRating,
		nullString(review.Comment), formatTime(review.CreatedAt))
	return err
}

// ListReviewsByReviewee returns reviews a member received, newest first.
func (r *repo) ListReviewsByReviewee(ctx context.Context, userID string) ([]*domain.Review, error) {
	return r.listReviews(ctx, "reviewee_id", userID)
}

// ListReviewsByBook returns reviews tied to a book, newest first.
func (r *repo) ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.Review, error) {
	return r.listReviews(ctx, "book_id", bookID)
}

// --- Donations ---

const donationColumns = `id, donor_id, donation_type, amount, currency, book_title,
	message, is_public, created_at`

// CreateDonation inserts a donation. Amounts are stored as decimal strings.
func (r *repo) CreateDonation(ctx context.Context, d *domain.Donation) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO donations (`+donationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DonorID, string(d.DonationType), d.Amount.String(), nullString(d.Currency),
		nullString(d.BookTitle), nullString(d.Message), boolToInt(d.IsPublic),
		formatTime(d.CreatedAt))
	return err
}

// ListDonations returns donations newest first. An empty donorID lists all donors.
func (r *repo) ListDonations(ctx context.Context, donorID string, publicOnly bool) ([]*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE 1 = 1`
	var args []any
	if donorID != "" {
		query += ` AND donor_id = ?`
		args = append(args, donorID)
	}
	if publicOnly {
		query += ` AND is_public = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Donation
	for rows.Next() {
		var (
			d         domain.Donation
			dt        string
			amount    string
			currency  sql.NullString
			bookTitle sql.NullString
			message   sql.NullString
			isPublic  int
			createdAt string
		)
		if err := rows.Scan(&d.ID, &d.DonorID, &dt, &amount, &currency, &bookTitle,
			&message, &isPublic, &createdAt); err != nil {
			return nil, err
		}
		d.DonationType = domain.DonationType(dt)
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse donation amount: %w", err)
		}
		d.Currency = currency.String
		d.BookTitle = bookTitle.String
		d.Message = message.String
		d.IsPublic = isPublic == 1
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
