package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// CreateAuditLog records an admin action.
func (r *repo) CreateAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	var details sql.NullString
	if len(entry.Details) > 0 {
		details = sql.NullString{String: string(entry.Details), Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ActorID, string(entry.Action), entry.EntityType, entry.EntityID,
		details, formatTime(entry.CreatedAt))
	return err
}

// ListAuditLogs returns one page of audit entries, newest first, and the total.
func (r *repo) ListAuditLogs(ctx context.Context, page store.Page) ([]*domain.AuditLog, int, error) {
	page = page.Normalize()

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, actor_id, action, entity_type, entity_id, details, created_at
		FROM audit_logs ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var (
			e         domain.AuditLog
			action    string
			details   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.EntityType, &e.EntityID, &details, &createdAt); err != nil {
			return nil, 0, err
		}
		e.Action = domain.AuditAction(action)
		if details.Valid {
			e.Details = json.RawMessage(details.String)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}

// LibraryStats aggregates dashboard counters in one read.
func (r *repo) LibraryStats(ctx context.Context, now time.Time) (*domain.LibraryStats, error) {
	var s domain.LibraryStats
	err := r.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM books WHERE archived_at IS NULL),
			(SELECT COUNT(*) FROM books WHERE archived_at IS NULL AND status = 'available'),
			(SELECT COUNT(*) FROM books WHERE archived_at IS NULL AND status = 'reading'),
			(SELECT COUNT(*) FROM books WHERE archived_at IS NULL AND status = 'requested'),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM book_requests WHERE status = 'pending'),
			(SELECT COUNT(*) FROM handover_threads WHERE status = 'active'),
			(SELECT COUNT(*) FROM reading_history WHERE end_date IS NULL AND due_date < ?),
			(SELECT COUNT(*) FROM ideas),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM donations),
			(SELECT COUNT(*) FROM reputation_ledger)`,
		formatTime(now),
	).Scan(
		&s.TotalBooks,
		&s.AvailableBooks,
		&s.ReadingBooks,
		&s.RequestedBooks,
		&s.TotalUsers,
		&s.PendingRequests,
		&s.ActiveHandovers,
		&s.OverdueReadings,
		&s.TotalIdeas,
		&s.TotalReviews,
		&s.TotalDonations,
		&s.LedgerEntryCount,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
