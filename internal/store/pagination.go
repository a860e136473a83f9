package store

import (
	"encoding/base64"
	"fmt"
)

// Page selects a window of an offset-paginated listing.
type Page struct {
	Offset int
	Limit  int // defaults to 20, capped at 100
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// PageFromNumber converts 1-based page numbers as sent by the web client.
func PageFromNumber(page, size int) Page {
	if page < 1 {
		page = 1
	}
	p := Page{Limit: size}.Normalize()
	p.Offset = (page - 1) * p.Limit
	return p
}

// PaginationParams contains cursor pagination request parameters.
type PaginationParams struct {
	Limit  int    // The number of items per page (defaults to 50 with a maximum of 200)
	Cursor string // Opaque cursor for next page (empty for first page)
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // Empty if no more pages
	HasMore    bool   `json:"has_more"`
}

// Validate checks and corrects pagination parameters.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
}

// EncodeCursor creates an opaque cursor from a key.
// For the badger inbox the cursor is the last returned key.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor decodes a cursor back to a key.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid cursor: %w", err)
	}
	return string(decoded), nil
}
