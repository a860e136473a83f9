package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

func (s *Server) registerRequestRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "requestBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/request",
		Summary:       "Request book",
		Description:   "Joins the queue for a book. Requires a success score of at least 20.",
		Tags:          []string{"Requests"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleRequestBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelRequest",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}/request",
		Summary:     "Cancel request",
		Description: "Withdraws the caller's pending request for a book",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCancelRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRequestState",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/requested",
		Summary:     "Check request",
		Description: "Reports whether the caller has a pending request for the book",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRequestState)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/return",
		Summary:     "Return book",
		Description: "Ends the caller's reading of a book they hold",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReturnBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/my-requests",
		Summary:     "List my requests",
		Description: "Returns the caller's requests, newest first",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMyRequests)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyReadingHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/my-reading-history",
		Summary:     "List my reading history",
		Description: "Returns every reading of the caller with the book",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMyReadingHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyBooksOnHold",
		Method:      http.MethodGet,
		Path:        "/api/v1/my-books-on-hold",
		Summary:     "List books I hold",
		Description: "Returns the books the caller currently holds",
		Tags:        []string{"Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMyBooksOnHold)
}

// BookRequestOutput wraps a request for Huma.
type BookRequestOutput struct {
	Body *domain.BookRequest
}

// RequestStateOutput wraps a request state for Huma.
type RequestStateOutput struct {
	Body *service.RequestState
}

// RequestListResponse holds requests joined with their books and members.
type RequestListResponse struct {
	Requests []*domain.RankedRequest `json:"requests" doc:"Requests"`
}

// RequestListOutput wraps a request list for Huma.
type RequestListOutput struct {
	Body RequestListResponse
}

// ReadingHistoryResponse holds a member's readings.
type ReadingHistoryResponse struct {
	Readings []*service.ReadingRecord `json:"readings" doc:"Readings, newest first"`
}

// ReadingHistoryOutput wraps reading history for Huma.
type ReadingHistoryOutput struct {
	Body ReadingHistoryResponse
}

// BookListResponse holds a plain list of books.
type BookListResponse struct {
	Books []*domain.Book `json:"books" doc:"Books"`
}

// BookListOutput wraps a book list for Huma.
type BookListOutput struct {
	Body BookListResponse
}

func (s *Server) handleRequestBook(ctx context.Context, input *BookIDInput) (*BookRequestOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.services.Requests.Request(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookRequestOutput{Body: req}, nil
}

func (s *Server) handleCancelRequest(ctx context.Context, input *BookIDInput) (*BookRequestOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.services.Requests.Cancel(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookRequestOutput{Body: req}, nil
}

func (s *Server) handleRequestState(ctx context.Context, input *BookIDInput) (*RequestStateOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	state, err := s.services.Requests.State(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &RequestStateOutput{Body: state}, nil
}

func (s *Server) handleReturnBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	book, err := s.services.Circulation.ReturnBook(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleMyRequests(ctx context.Context, _ *struct{}) (*RequestListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	reqs, err := s.services.Requests.MyRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	return requestList(reqs), nil
}

func (s *Server) handleMyReadingHistory(ctx context.Context, _ *struct{}) (*ReadingHistoryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	readings, err := s.services.Circulation.ReadingHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ReadingHistoryOutput{Body: ReadingHistoryResponse{Readings: readings}}, nil
}

func (s *Server) handleMyBooksOnHold(ctx context.Context, _ *struct{}) (*BookListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	books, err := s.services.Circulation.BooksOnHold(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BookListOutput{Body: BookListResponse{Books: books}}, nil
}
