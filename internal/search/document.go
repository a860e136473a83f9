// Package search provides full-text book search using Bleve.
// Only the catalog text lives in the index; circulation state is always read
// from the store, so a stale index can never show a wrong status.
package search

import (
	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/normalize"
)

// BookDocument is the indexed form of a book.
type BookDocument struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	Description  string   `json:"description,omitempty"`
	ISBN         string   `json:"isbn,omitempty"`
	PhysicalCode string   `json:"physical_code"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CreatedAt    int64    `json:"created_at"`
}

// BookToDocument converts a book for indexing.
func BookToDocument(book *domain.Book) *BookDocument {
	return &BookDocument{
		ID:           book.ID,
		Title:        book.Title,
		Author:       book.Author,
		Description:  normalize.StripHTML(book.Description),
		ISBN:         book.ISBN,
		PhysicalCode: book.PhysicalCode,
		Category:     normalize.Category(book.Category),
		Tags:         book.Tags,
		CreatedAt:    book.CreatedAt.Unix(),
	}
}

// ToMap converts the document to the field names the mapping expects.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":            d.ID,
		"title":         d.Title,
		"author":        d.Author,
		"physical_code": d.PhysicalCode,
		"created_at":    float64(d.CreatedAt),
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
