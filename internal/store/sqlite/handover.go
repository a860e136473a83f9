package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

const threadColumns = `id, book_id, current_holder_id, next_holder_id, next_request_id,
	handover_due_date, delivery_status, status, version, created_at, updated_at, completed_at`

func scanThread(scanner interface{ Scan(dest ...any) error }) (*domain.HandoverThread, error) {
	var (
		t             domain.HandoverThread
		nextRequestID sql.NullString
		dueDate       string
		delivery      string
		status        string
		createdAt     string
		updatedAt     string
		completedAt   sql.NullString
	)
	err := scanner.Scan(
		&t.ID,
		&t.BookID,
		&t.CurrentHolderID,
		&t.NextHolderID,
		&nextRequestID,
		&dueDate,
		&delivery,
		&status,
		&t.Version,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	t.NextRequestID = nextRequestID.String
	t.DeliveryStatus = domain.DeliveryStatus(delivery)
	t.Status = domain.ThreadStatus(status)
	if t.HandoverDueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if t.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateThread inserts a thread. A second active thread for a book
// violates the partial unique index and yields store.ErrAlreadyExists.
func (r *repo) CreateThread(ctx context.Context, thread *domain.HandoverThread) error {
	if thread.Version == 0 {
		thread.Version = 1
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO handover_threads (`+threadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		thread.ID,
		thread.BookID,
		thread.CurrentHolderID,
		thread.NextHolderID,
		nullString(thread.NextRequestID),
		formatTime(thread.HandoverDueDate),
		string(thread.DeliveryStatus),
		string(thread.Status),
		thread.Version,
		formatTime(thread.CreatedAt),
		formatTime(thread.UpdatedAt),
		nullTimeString(thread.CompletedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("book already has an active handover thread")
	}
	return err
}

// GetThread retrieves a thread by ID.
func (r *repo) GetThread(ctx context.Context, id string) (*domain.HandoverThread, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM handover_threads WHERE id = ?`, id)
	t, err := scanThread(row)
	if err != nil {
		return nil, noRows(err)
	}
	return t, nil
}

// GetActiveThread returns the book's active thread.
func (r *repo) GetActiveThread(ctx context.Context, bookID string) (*domain.HandoverThread, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+threadColumns+` FROM handover_threads
		WHERE book_id = ? AND status = 'active'`, bookID)
	t, err := scanThread(row)
	if err != nil {
		return nil, noRows(err)
	}
	return t, nil
}

// GetLatestThread returns the book's most recently created thread in any status.
func (r *repo) GetLatestThread(ctx context.Context, bookID string) (*domain.HandoverThread, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+threadColumns+` FROM handover_threads
		WHERE book_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, bookID)
	t, err := scanThread(row)
	if err != nil {
		return nil, noRows(err)
	}
	return t, nil
}

// UpdateThread writes a thread's mutable state, guarded by version.
func (r *repo) UpdateThread(ctx context.Context, thread *domain.HandoverThread) error {
	now := time.Now()
	result, err := r.q.ExecContext(ctx, `
		UPDATE handover_threads SET current_holder_id = ?, next_holder_id = ?, next_request_id = ?,
			handover_due_date = ?, delivery_status = ?, status = ?, completed_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		thread.CurrentHolderID,
		thread.NextHolderID,
		nullString(thread.NextRequestID),
		formatTime(thread.HandoverDueDate),
		string(thread.DeliveryStatus),
		string(thread.Status),
		nullTimeString(thread.CompletedAt),
		formatTime(now),
		thread.ID,
		thread.Version,
	)
	if err != nil {
		return err
	}
	if err := expectOne(result, store.ErrConcurrentModification); err != nil {
		return err
	}
	thread.Version++
	thread.UpdatedAt = now
	return nil
}

// ListThreads returns threads newest first.
func (r *repo) ListThreads(ctx context.Context, filter domain.ThreadFilter) ([]*domain.HandoverThread, error) {
	var (
		where []string
		args  []any
	)
	if filter.ParticipantID != "" {
		where = append(where, "(current_holder_id = ? OR next_holder_id = ?)")
		args = append(args, filter.ParticipantID, filter.ParticipantID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + threadColumns + ` FROM handover_threads`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY updated_at DESC, rowid DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []*domain.HandoverThread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

const messageColumns = `id, thread_id, user_id, message, is_system_message, created_at`

// CreateMessage appends a message to a thread.
func (r *repo) CreateMessage(ctx context.Context, msg *domain.HandoverMessage) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO handover_messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ThreadID,
		nullString(msg.UserID),
		msg.Message,
		boolToInt(msg.IsSystemMessage),
		formatTime(msg.CreatedAt),
	)
	return err
}

// ListMessages returns a thread's messages in posting order.
func (r *repo) ListMessages(ctx context.Context, threadID string) ([]*domain.HandoverMessage, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM handover_messages
		WHERE thread_id = ? ORDER BY created_at ASC, rowid ASC`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*domain.HandoverMessage
	for rows.Next() {
		var (
			m         domain.HandoverMessage
			userID    sql.NullString
			system    int
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ThreadID, &userID, &m.Message, &system, &createdAt); err != nil {
			return nil, err
		}
		m.UserID = userID.String
		m.IsSystemMessage = system == 1
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
