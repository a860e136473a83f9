package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns a page of the catalog. A search term returns results in relevance order.",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a physical book to the catalog (admin only)",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "batchImportBooks",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/batch",
		Summary:     "Batch import books",
		Description: "Creates many books at once. Invalid or duplicate items are reported and skipped (admin only).",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleBatchImport)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Changes catalog fields of a book (admin only)",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Description: "Removes an available book from circulation and closes its pending requests (admin only)",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReadingStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/reading-status",
		Summary:     "Get reading status",
		Description: "Returns who holds the book and when it is due",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReadingStatus)
}

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	PageInput
	Search   string `query:"search" maxLength:"200" doc:"Full-text search over title, author, category and tags"`
	Category string `query:"category" doc:"Category name or slug"`
	Status   string `query:"status" doc:"Circulation status"`
}

// BookPageOutput wraps a page of books for Huma.
type BookPageOutput struct {
	Body *service.BookPage
}

// BookOutput wraps a book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body service.CreateBookRequest
}

// BatchImportInput wraps a batch of books for Huma.
type BatchImportInput struct {
	Body []service.CreateBookRequest `maxItems:"500"`
}

// BatchImportOutput wraps the batch result for Huma.
type BatchImportOutput struct {
	Body *service.BatchResult
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body service.UpdateBookRequest
}

// ReadingStatusOutput wraps the reading status for Huma.
type ReadingStatusOutput struct {
	Body *service.ReadingStatus
}

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookPageOutput, error) {
	page, err := s.services.Books.List(ctx, service.BookQuery{
		Search:   input.Search,
		Category: input.Category,
		Status:   domain.BookStatus(input.Status),
		Page:     input.Page,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &BookPageOutput{Body: page}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	book, err := s.services.Books.Create(ctx, adminID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleBatchImport(ctx context.Context, input *BatchImportInput) (*BatchImportOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.services.Books.BatchImport(ctx, adminID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BatchImportOutput{Body: result}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Books.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	book, err := s.services.Books.Update(ctx, adminID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*MessageOutput, error) {
	adminID, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Books.Delete(ctx, adminID, input.ID); err != nil {
		return nil, err
	}
	return message("Book deleted"), nil
}

func (s *Server) handleReadingStatus(ctx context.Context, input *BookIDInput) (*ReadingStatusOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	status, err := s.services.Circulation.ReadingStatus(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReadingStatusOutput{Body: status}, nil
}
