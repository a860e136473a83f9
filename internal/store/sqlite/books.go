package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/normalize"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, title, author, isbn, physical_code, category, description,
	cover_url, tags, status, current_holder_id, max_reading_days, total_reads,
	average_rating, created_by, archived_at, version, created_at, updated_at`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		isbn        sql.NullString
		category    sql.NullString
		description sql.NullString
		coverURL    sql.NullString
		tags        string
		status      string
		holderID    sql.NullString
		createdBy   sql.NullString
		archivedAt  sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&isbn,
		&b.PhysicalCode,
		&category,
		&description,
		&coverURL,
		&tags,
		&status,
		&holderID,
		&b.MaxReadingDays,
		&b.TotalReads,
		&b.AverageRating,
		&createdBy,
		&archivedAt,
		&b.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ISBN = isbn.String
	b.Category = category.String
	b.Description = description.String
	b.CoverURL = coverURL.String
	b.Status = domain.BookStatus(status)
	b.CurrentHolderID = holderID.String
	b.CreatedBy = createdBy.String

	if b.Tags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	if b.ArchivedAt, err = parseNullableTime(archivedAt); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts a new book.
// Returns store.ErrAlreadyExists if the physical code is already registered.
func (r *repo) CreateBook(ctx context.Context, book *domain.Book) error {
	if book.Version == 0 {
		book.Version = 1
	}
	if book.MaxReadingDays <= 0 {
		book.MaxReadingDays = domain.DefaultMaxReadingDays
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`, category_slug)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.Title,
		book.Author,
		nullString(book.ISBN),
		book.PhysicalCode,
		nullString(book.Category),
		nullString(book.Description),
		nullString(book.CoverURL),
		encodeStrings(book.Tags),
		string(book.Status),
		nullString(book.CurrentHolderID),
		book.MaxReadingDays,
		book.TotalReads,
		book.AverageRating,
		nullString(book.CreatedBy),
		nullTimeString(book.ArchivedAt),
		book.Version,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		nullString(normalize.Category(book.Category)),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("physical code already registered")
	}
	return err
}

// GetBook retrieves a book by ID, archived or not.
// Returns store.ErrNotFound if the book does not exist.
func (r *repo) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if err != nil {
		return nil, noRows(err)
	}
	return b, nil
}

// GetBookByPhysicalCode looks a book up by its normalized shelf code.
func (r *repo) GetBookByPhysicalCode(ctx context.Context, code string) (*domain.Book, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE physical_code = ?`, code)
	b, err := scanBook(row)
	if err != nil {
		return nil, noRows(err)
	}
	return b, nil
}

// GetBooksByIDs returns the books that exist among ids, keyed by ID.
func (r *repo) GetBooksByIDs(ctx context.Context, ids []string) (map[string]*domain.Book, error) {
	out := make(map[string]*domain.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out[b.ID] = b
	}
	return out, rows.Err()
}

// UpdateBook writes every mutable column except average_rating, which only
// RefreshBookRating maintains. Guarded by the version read with the book.
func (r *repo) UpdateBook(ctx context.Context, book *domain.Book) error {
	now := time.Now()
	result, err := r.q.ExecContext(ctx, `
		UPDATE books SET title = ?, author = ?, isbn = ?, physical_code = ?,
			category = ?, category_slug = ?, description = ?, cover_url = ?, tags = ?,
			status = ?, current_holder_id = ?, max_reading_days = ?, total_reads = ?,
			archived_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		book.Title,
		book.Author,
		nullString(book.ISBN),
		book.PhysicalCode,
		nullString(book.Category),
		nullString(normalize.Category(book.Category)),
		nullString(book.Description),
		nullString(book.CoverURL),
		encodeStrings(book.Tags),
		string(book.Status),
		nullString(book.CurrentHolderID),
		book.MaxReadingDays,
		book.TotalReads,
		nullTimeString(book.ArchivedAt),
		formatTime(now),
		book.ID,
		book.Version,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("physical code already registered")
	}
	if err != nil {
		return err
	}
	if err := expectOne(result, store.ErrConcurrentModification); err != nil {
		return err
	}
	book.Version++
	book.UpdatedAt = now
	return nil
}

// ListBooks returns the books matching filter and the total match count.
// Archived books are never listed. When filter.IDs is set the result keeps
// that order and paging applies to the ID list.
func (r *repo) ListBooks(ctx context.Context, filter domain.BookFilter) ([]*domain.Book, int, error) {
	page := store.Page{Offset: filter.Offset, Limit: filter.Limit}.Normalize()

	where := []string{"archived_at IS NULL"}
	var args []any

	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []*domain.Book{}, 0, nil
		}
		where = append(where, "id IN ("+placeholders(len(filter.IDs))+")")
		args = append(args, stringArgs(filter.IDs)...)
	}
	if filter.CategorySlug != "" {
		where = append(where, "category_slug = ?")
		args = append(args, filter.CategorySlug)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.HolderID != "" {
		where = append(where, "current_holder_id = ?")
		args = append(args, filter.HolderID)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + bookColumns + ` FROM books` + clause
	if filter.IDs == nil {
		query += ` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if filter.IDs != nil {
		books = orderByIDs(books, filter.IDs)
		books = pageSlice(books, page)
	}
	return books, total, nil
}

// orderByIDs reorders books to follow ids, dropping any not present.
func orderByIDs(books []*domain.Book, ids []string) []*domain.Book {
	byID := make(map[string]*domain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	ordered := make([]*domain.Book, 0, len(books))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
			delete(byID, id)
		}
	}
	return ordered
}

func pageSlice(books []*domain.Book, page store.Page) []*domain.Book {
	if page.Offset >= len(books) {
		return []*domain.Book{}
	}
	end := min(page.Offset+page.Limit, len(books))
	return books[page.Offset:end]
}

// RefreshBookRating recomputes average_rating from the condition ratings
// of the book's reviews. It does not bump the version.
func (r *repo) RefreshBookRating(ctx context.Context, bookID string) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE books SET average_rating = COALESCE(
			(SELECT ROUND(AVG(book_condition_rating), 2) FROM reviews WHERE book_id = ?), 0)
		WHERE id = ?`, bookID, bookID)
	if err != nil {
		return err
	}
	return expectOne(result, store.ErrNotFound)
}
