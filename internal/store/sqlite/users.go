package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, username, email, password_hash, full_name, role,
	bio, avatar_url, location, interests, success_score,
	books_shared, books_received, total_upvotes, total_downvotes,
	ideas_posted, reviews_received, donations_made,
	version, created_at, updated_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		role      string
		bio       sql.NullString
		avatarURL sql.NullString
		location  sql.NullString
		interests string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&role,
		&bio,
		&avatarURL,
		&location,
		&interests,
		&u.SuccessScore,
		&u.BooksShared,
		&u.BooksReceived,
		&u.TotalUpvotes,
		&u.TotalDownvotes,
		&u.IdeasPosted,
		&u.ReviewsReceived,
		&u.DonationsMade,
		&u.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = domain.Role(role)
	u.Bio = bio.String
	u.AvatarURL = avatarURL.String
	u.Location = location.String

	if u.Interests, err = decodeStrings(interests); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrAlreadyExists if the ID, username or email is taken.
func (r *repo) CreateUser(ctx context.Context, user *domain.User) error {
	if user.Version == 0 {
		user.Version = 1
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		string(user.Role),
		nullString(user.Bio),
		nullString(user.AvatarURL),
		nullString(user.Location),
		encodeStrings(user.Interests),
		user.SuccessScore,
		user.BooksShared,
		user.BooksReceived,
		user.TotalUpvotes,
		user.TotalDownvotes,
		user.IdeasPosted,
		user.ReviewsReceived,
		user.DonationsMade,
		user.Version,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (r *repo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, noRows(err)
	}
	return u, nil
}

// GetUserByLogin retrieves a user by username or email. Both are stored lowercased.
func (r *repo) GetUserByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1`,
		usernameOrEmail, usernameOrEmail)
	u, err := scanUser(row)
	if err != nil {
		return nil, noRows(err)
	}
	return u, nil
}

// GetUsersByIDs returns the users that exist among ids, keyed by ID.
func (r *repo) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// ListUsers returns one page of users ordered by creation and the total count.
func (r *repo) ListUsers(ctx context.Context, page store.Page) ([]*domain.User, int, error) {
	page = page.Normalize()

	total, err := r.CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// ListAllUserIDs returns every user ID.
func (r *repo) ListAllUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountUsers returns the number of registered users.
func (r *repo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// UpdateUserProfile writes the editable profile fields.
// Score and counters are untouched; they only change through UpdateUserStanding.
func (r *repo) UpdateUserProfile(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()
	result, err := r.q.ExecContext(ctx, `
		UPDATE users SET full_name = ?, bio = ?, avatar_url = ?, location = ?,
			interests = ?, updated_at = ?
		WHERE id = ?`,
		user.FullName,
		nullString(user.Bio),
		nullString(user.AvatarURL),
		nullString(user.Location),
		encodeStrings(user.Interests),
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result, store.ErrNotFound)
}

// UpdateUserRole changes a user's role.
func (r *repo) UpdateUserRole(ctx context.Context, userID string, role domain.Role) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), formatTime(time.Now()), userID)
	if err != nil {
		return err
	}
	return expectOne(result, store.ErrNotFound)
}

// UpdateUserStanding writes the success score and activity counters,
// guarded by the version read alongside them.
func (r *repo) UpdateUserStanding(ctx context.Context, user *domain.User) error {
	now := time.Now()
	result, err := r.q.ExecContext(ctx, `
		UPDATE users SET success_score = ?,
			books_shared = ?, books_received = ?, total_upvotes = ?, total_downvotes = ?,
			ideas_posted = ?, reviews_received = ?, donations_made = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		user.SuccessScore,
		user.BooksShared,
		user.BooksReceived,
		user.TotalUpvotes,
		user.TotalDownvotes,
		user.IdeasPosted,
		user.ReviewsReceived,
		user.DonationsMade,
		formatTime(now),
		user.ID,
		user.Version,
	)
	if err != nil {
		return err
	}
	if err := expectOne(result, store.ErrConcurrentModification); err != nil {
		return fmt.Errorf("update standing for %s: %w", user.ID, err)
	}
	user.Version++
	user.UpdatedAt = now
	return nil
}
