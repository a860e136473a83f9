package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

const readingColumns = `id, book_id, user_id, request_id, start_date, due_date,
	end_date, returned_on_time, end_reason`

func scanReading(scanner interface{ Scan(dest ...any) error }) (*domain.ReadingEntry, error) {
	var (
		e         domain.ReadingEntry
		requestID sql.NullString
		startDate string
		dueDate   string
		endDate   sql.NullString
		onTime    sql.NullInt64
		endReason sql.NullString
	)
	err := scanner.Scan(
		&e.ID,
		&e.BookID,
		&e.UserID,
		&requestID,
		&startDate,
		&dueDate,
		&endDate,
		&onTime,
		&endReason,
	)
	if err != nil {
		return nil, err
	}
	e.RequestID = requestID.String
	e.EndReason = domain.ReadingEndReason(endReason.String)
	if onTime.Valid {
		v := onTime.Int64 == 1
		e.ReturnedOnTime = &v
	}
	if e.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if e.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if e.EndDate, err = parseNullableTime(endDate); err != nil {
		return nil, err
	}
	return &e, nil
}

func collectReadings(rows *sql.Rows) ([]*domain.ReadingEntry, error) {
	defer rows.Close()
	var out []*domain.ReadingEntry
	for rows.Next() {
		e, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateReading opens a reading entry. A second open entry for the same
// book violates the partial unique index.
func (r *repo) CreateReading(ctx context.Context, entry *domain.ReadingEntry) error {
	var onTime sql.NullInt64
	if entry.ReturnedOnTime != nil {
		onTime = sql.NullInt64{Int64: int64(boolToInt(*entry.ReturnedOnTime)), Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reading_history (`+readingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.BookID,
		entry.UserID,
		nullString(entry.RequestID),
		formatTime(entry.StartDate),
		formatTime(entry.DueDate),
		nullTimeString(entry.EndDate),
		onTime,
		nullString(string(entry.EndReason)),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("book already has an open reading")
	}
	return err
}

// GetOpenReading returns the book's reading in progress.
func (r *repo) GetOpenReading(ctx context.Context, bookID string) (*domain.ReadingEntry, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+readingColumns+` FROM reading_history
		WHERE book_id = ? AND end_date IS NULL`, bookID)
	e, err := scanReading(row)
	if err != nil {
		return nil, noRows(err)
	}
	return e, nil
}

// UpdateReading writes the closing fields of an entry.
func (r *repo) UpdateReading(ctx context.Context, entry *domain.ReadingEntry) error {
	var onTime sql.NullInt64
	if entry.ReturnedOnTime != nil {
		onTime = sql.NullInt64{Int64: int64(boolToInt(*entry.ReturnedOnTime)), Valid: true}
	}
	result, err := r.q.ExecContext(ctx, `
		UPDATE reading_history SET due_date = ?, end_date = ?, returned_on_time = ?, end_reason = ?
		WHERE id = ?`,
		formatTime(entry.DueDate),
		nullTimeString(entry.EndDate),
		onTime,
		nullString(string(entry.EndReason)),
		entry.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result, store.ErrNotFound)
}

// ListReadingsByUser returns a member's reading history, newest first.
func (r *repo) ListReadingsByUser(ctx context.Context, userID string) ([]*domain.ReadingEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+readingColumns+` FROM reading_history
		WHERE user_id = ? ORDER BY start_date DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectReadings(rows)
}

// ListReadingsByBook returns a book's reading history, newest first.
func (r *repo) ListReadingsByBook(ctx context.Context, bookID string) ([]*domain.ReadingEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+readingColumns+` FROM reading_history
		WHERE book_id = ? ORDER BY start_date DESC, rowid DESC`, bookID)
	if err != nil {
		return nil, err
	}
	return collectReadings(rows)
}

// ListOpenReadingsDueBefore returns open readings due at or before t, soonest first.
func (r *repo) ListOpenReadingsDueBefore(ctx context.Context, t time.Time) ([]*domain.ReadingEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+readingColumns+` FROM reading_history
		WHERE end_date IS NULL AND due_date <= ?
		ORDER BY due_date ASC`, formatTime(t))
	if err != nil {
		return nil, err
	}
	return collectReadings(rows)
}
