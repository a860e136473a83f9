package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/amarpathagar/pathagar-server/internal/domain"
)

const (
	indexDirName = "books.bleve"

	// Bump whenever buildIndexMapping changes; an index stamped with another
	// value is dropped on open and must be refilled with a reindex.
	mappingVersion = "2"

	batchSize = 500
)

var versionKey = []byte("pathagar:mapping_version")

// SearchIndex is the full-text catalog index. Reads and writes share the
// lock; Rebuild takes it exclusively while it swaps the underlying index.
type SearchIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	logger *slog.Logger
}

// Options configures the search index.
type Options struct {
	DataPath string
	Logger   *slog.Logger
}

// NewSearchIndex opens the index under opts.DataPath, creating it when
// absent. A corrupt index or one built with an older mapping is replaced by
// an empty one.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(opts.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create search dir: %w", err)
	}

	s := &SearchIndex{path: filepath.Join(opts.DataPath, indexDirName), logger: logger}

	idx, err := bleve.Open(s.path)
	switch {
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		idx, err = s.create()
	case err != nil:
		logger.Warn("search index unreadable, recreating", "path", s.path, "error", err)
		idx, err = s.recreate()
	default:
		if stamped, _ := idx.GetInternal(versionKey); string(stamped) != mappingVersion {
			logger.Info("search mapping changed, recreating index",
				"old_version", string(stamped), "new_version", mappingVersion)
			_ = idx.Close()
			idx, err = s.recreate()
		}
	}
	if err != nil {
		return nil, err
	}

	s.index = idx
	return s, nil
}

func (s *SearchIndex) create() (bleve.Index, error) {
	idx, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := idx.SetInternal(versionKey, []byte(mappingVersion)); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("stamp mapping version: %w", err)
	}
	s.logger.Info("created search index", "path", s.path, "mapping_version", mappingVersion)
	return idx, nil
}

func (s *SearchIndex) recreate() (bleve.Index, error) {
	if err := os.RemoveAll(s.path); err != nil {
		return nil, fmt.Errorf("remove index: %w", err)
	}
	return s.create()
}

// Close releases the index files.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook adds or replaces one book.
func (s *SearchIndex) IndexBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(book.ID, BookToDocument(book).ToMap())
}

// IndexBooks writes books in batches of batchSize.
func (s *SearchIndex) IndexBooks(ctx context.Context, books []*domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for start := 0; start < len(books); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := books[start:min(start+batchSize, len(books))]

		batch := s.index.NewBatch()
		for _, book := range chunk {
			if err := batch.Index(book.ID, BookToDocument(book).ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", book.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch at %d: %w", start, err)
		}
	}
	return nil
}

// DeleteBook removes a book. Unknown IDs are not an error.
func (s *SearchIndex) DeleteBook(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(bookID)
}

// DocumentCount returns how many books are indexed.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the index with an empty one. Callers refill it with
// IndexBooks.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	idx, err := s.recreate()
	if err != nil {
		return err
	}
	s.index = idx
	return nil
}
