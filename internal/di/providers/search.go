package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/logger"
	"github.com/amarpathagar/pathagar-server/internal/search"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.SearchPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// ReindexBooks rebuilds the index from the catalog and returns the number of
// books indexed.
func ReindexBooks(ctx context.Context, index *search.SearchIndex, books *service.BookService) (int, error) {
	all, err := books.AllBooks(ctx)
	if err != nil {
		return 0, err
	}
	if err := index.Rebuild(); err != nil {
		return 0, err
	}
	if err := index.IndexBooks(ctx, all); err != nil {
		return 0, err
	}
	return len(all), nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index when the catalog has
// books, as happens after a mapping change or a removed index directory.
// Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bookService := do.MustInvoke[*service.BookService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := searchHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	stats, err := storeHandle.LibraryStats(ctx, time.Now())
	if err != nil || stats.TotalBooks == 0 {
		return
	}

	log.Info("Search index is empty but books exist, triggering initial reindex",
		"book_count", stats.TotalBooks,
	)

	go func() {
		count, err := ReindexBooks(context.Background(), searchHandle.SearchIndex, bookService)
		if err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		log.Info("Initial search reindex completed", "documents", count)
	}()
}
