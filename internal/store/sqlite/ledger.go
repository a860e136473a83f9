package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

const ledgerColumns = `id, user_id, event, delta, score_before, score_after,
	reason, actor_id, ref_type, ref_id, created_at`

func scanLedgerEntry(scanner interface{ Scan(dest ...any) error }) (*domain.LedgerEntry, error) {
	var (
		e         domain.LedgerEntry
		event     string
		reason    sql.NullString
		actorID   sql.NullString
		refType   sql.NullString
		refID     sql.NullString
		createdAt string
	)
	err := scanner.Scan(
		&e.ID,
		&e.UserID,
		&event,
		&e.Delta,
		&e.ScoreBefore,
		&e.ScoreAfter,
		&reason,
		&actorID,
		&refType,
		&refID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	e.Event = domain.ReputationEvent(event)
	e.Reason = reason.String
	e.ActorID = actorID.String
	e.RefType = refType.String
	e.RefID = refID.String
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// AppendLedgerEntry inserts one ledger row. Rows are never updated or deleted;
// the schema rejects both.
func (r *repo) AppendLedgerEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reputation_ledger (`+ledgerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		string(entry.Event),
		entry.Delta,
		entry.ScoreBefore,
		entry.ScoreAfter,
		nullString(entry.Reason),
		nullString(entry.ActorID),
		nullString(entry.RefType),
		nullString(entry.RefID),
		formatTime(entry.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// ListLedgerEntries returns a user's ledger in application order.
func (r *repo) ListLedgerEntries(ctx context.Context, userID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM reputation_ledger WHERE user_id = ? ORDER BY rowid ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// leaderboardColumn maps a category onto the users column it ranks by.
var leaderboardColumn = map[domain.LeaderboardCategory]string{
	domain.LeaderboardHighestScores: "success_score",
	domain.LeaderboardTopReaders:    "books_received",
	domain.LeaderboardTopSharers:    "books_shared",
	domain.LeaderboardTopDonors:     "donations_made",
	domain.LeaderboardIdeaWriters:   "ideas_posted",
}

// Leaderboard ranks users by the category's column, descending.
// Ties go to the earlier account.
func (r *repo) Leaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]*domain.LeaderboardEntry, error) {
	col, ok := leaderboardColumn[category]
	if !ok {
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown leaderboard category %q", category))
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	// Counter categories only list members who have done the thing.
	where := ""
	if col != "success_score" {
		where = "WHERE " + col + " > 0"
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, username, full_name, avatar_url, `+col+`
		FROM users `+where+`
		ORDER BY `+col+` DESC, created_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LeaderboardEntry
	for rows.Next() {
		var (
			e         domain.LeaderboardEntry
			avatarURL sql.NullString
		)
		if err := rows.Scan(&e.UserID, &e.Username, &e.FullName, &avatarURL, &e.Value); err != nil {
			return nil, err
		}
		e.AvatarURL = avatarURL.String
		e.Rank = len(entries) + 1
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
