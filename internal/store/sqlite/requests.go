package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

const requestColumns = `id, book_id, user_id, status, requested_at, priority_score,
	due_date, reason, decided_by, decided_at, version, updated_at`

func scanRequest(scanner interface{ Scan(dest ...any) error }) (*domain.BookRequest, error) {
	var (
		req         domain.BookRequest
		status      string
		requestedAt string
		dueDate     sql.NullString
		reason      sql.NullString
		decidedBy   sql.NullString
		decidedAt   sql.NullString
		updatedAt   string
	)
	err := scanner.Scan(
		&req.ID,
		&req.BookID,
		&req.UserID,
		&status,
		&requestedAt,
		&req.PriorityScore,
		&dueDate,
		&reason,
		&decidedBy,
		&decidedAt,
		&req.Version,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	req.Reason = reason.String
	req.DecidedBy = decidedBy.String

	if req.RequestedAt, err = parseTime(requestedAt); err != nil {
		return nil, err
	}
	if req.DueDate, err = parseNullableTime(dueDate); err != nil {
		return nil, err
	}
	if req.DecidedAt, err = parseNullableTime(decidedAt); err != nil {
		return nil, err
	}
	if req.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &req, nil
}

func collectRequests(rows *sql.Rows) ([]*domain.BookRequest, error) {
	defer rows.Close()
	var out []*domain.BookRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// CreateRequest inserts a request. A second pending request for the same
// (user, book) violates the partial unique index and yields store.ErrAlreadyExists.
func (r *repo) CreateRequest(ctx context.Context, req *domain.BookRequest) error {
	if req.Version == 0 {
		req.Version = 1
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO book_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.BookID,
		req.UserID,
		string(req.Status),
		formatTime(req.RequestedAt),
		req.PriorityScore,
		nullTimeString(req.DueDate),
		nullString(req.Reason),
		nullString(req.DecidedBy),
		nullTimeString(req.DecidedAt),
		req.Version,
		formatTime(req.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetRequest retrieves a request by ID.
func (r *repo) GetRequest(ctx context.Context, id string) (*domain.BookRequest, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM book_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err != nil {
		return nil, noRows(err)
	}
	return req, nil
}

// GetPendingRequest returns the user's pending request for the book.
func (r *repo) GetPendingRequest(ctx context.Context, userID, bookID string) (*domain.BookRequest, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM book_requests
		WHERE user_id = ? AND book_id = ? AND status = 'pending'`, userID, bookID)
	req, err := scanRequest(row)
	if err != nil {
		return nil, noRows(err)
	}
	return req, nil
}

// GetLatestRequest returns the user's most recent request for the book in any status.
func (r *repo) GetLatestRequest(ctx context.Context, userID, bookID string) (*domain.BookRequest, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM book_requests
		WHERE user_id = ? AND book_id = ?
		ORDER BY requested_at DESC, rowid DESC LIMIT 1`, userID, bookID)
	req, err := scanRequest(row)
	if err != nil {
		return nil, noRows(err)
	}
	return req, nil
}

// UpdateRequest writes the decision fields, guarded by version.
func (r *repo) UpdateRequest(ctx context.Context, req *domain.BookRequest) error {
	now := time.Now()
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = now
	}
	result, err := r.q.ExecContext(ctx, `
		UPDATE book_requests SET status = ?, priority_score = ?, due_date = ?, reason = ?,
			decided_by = ?, decided_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(req.Status),
		req.PriorityScore,
		nullTimeString(req.DueDate),
		nullString(req.Reason),
		nullString(req.DecidedBy),
		nullTimeString(req.DecidedAt),
		formatTime(req.UpdatedAt),
		req.ID,
		req.Version,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if err := expectOne(result, store.ErrConcurrentModification); err != nil {
		return err
	}
	req.Version++
	return nil
}

// ListPendingRequests returns pending requests in arrival order.
// An empty bookID lists pending requests across the library.
func (r *repo) ListPendingRequests(ctx context.Context, bookID string) ([]*domain.BookRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM book_requests WHERE status = 'pending'`
	var args []any
	if bookID != "" {
		query += ` AND book_id = ?`
		args = append(args, bookID)
	}
	query += ` ORDER BY requested_at ASC, rowid ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// ListRequestsByUser returns every request a user made, newest first.
func (r *repo) ListRequestsByUser(ctx context.Context, userID string) ([]*domain.BookRequest, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM book_requests
		WHERE user_id = ? ORDER BY requested_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}
