package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/amarpathagar/pathagar-server/internal/domain"
)

func (s *Server) registerHandoverRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "markReadingComplete",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/complete",
		Summary:     "Mark reading complete",
		Description: "The current holder says they have finished and are ready to hand the book over",
		Tags:        []string{"Handover"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMarkCompleted)

	huma.Register(s.api, huma.Operation{
		OperationID: "markDelivered",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/delivered",
		Summary:     "Confirm delivery",
		Description: "The next holder confirms they received the book; holdership moves to them",
		Tags:        []string{"Handover"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMarkDelivered)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookHandover",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/handover",
		Summary:     "Get book handover",
		Description: "Returns the latest handover thread for a book with both parties",
		Tags:        []string{"Handover"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBookHandover)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHandoverThreads",
		Method:      http.MethodGet,
		Path:        "/api/v1/handover/threads",
		Summary:     "List handover threads",
		Description: "Returns the threads the caller is a party to (all threads for admins)",
		Tags:        []string{"Handover"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListThreads)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHandoverMessages",
		Method:      http.MethodGet,
		Path:        "/api/v1/handover/threads/{id}/messages",
		Summary:     "List handover messages",
		Description: "Returns a thread's messages in the order they were posted",
		Tags:        []string{"Handover"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMessages)

	huma.Register(s.api, huma.Operation{
		OperationID:   "postHandoverMessage",
		Method:        http.MethodPost,
		Path:          "/api/v1/handover/threads/{id}/messages",
		Summary:       "Post handover message",
		Description:   "Posts a message to an active thread. Only the two parties may post.",
		Tags:          []string{"Handover"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handlePostMessage)
}

// HandoverThreadOutput wraps a thread for Huma.
type HandoverThreadOutput struct {
	Body *domain.HandoverThread
}

// ThreadWithBookOutput wraps a thread with its book and parties for Huma.
type ThreadWithBookOutput struct {
	Body *domain.ThreadWithBook
}

// ListThreadsInput contains parameters for listing threads.
type ListThreadsInput struct {
	Status string `query:"status" doc:"Filter by thread status: active, completed or cancelled"`
}

// ThreadListResponse holds handover threads.
type ThreadListResponse struct {
	Threads []*domain.ThreadWithBook `json:"threads" doc:"Threads, most recently updated first"`
}

// ThreadListOutput wraps a thread list for Huma.
type ThreadListOutput struct {
	Body ThreadListResponse
}

// ThreadIDInput addresses a single thread.
type ThreadIDInput struct {
	ID string `path:"id" doc:"Thread ID"`
}

// PostMessageRequest is the body for posting a message.
type PostMessageRequest struct {
	Message string `json:"message" minLength:"1" doc:"Message text. Markup is stripped."`
}

// PostMessageInput wraps the post message request for Huma.
type PostMessageInput struct {
	ID   string `path:"id" doc:"Thread ID"`
	Body PostMessageRequest
}

// HandoverMessageOutput wraps a message for Huma.
type HandoverMessageOutput struct {
	Body *domain.HandoverMessage
}

// MessageListResponse holds thread messages.
type MessageListResponse struct {
	Messages []*domain.HandoverMessage `json:"messages" doc:"Messages, oldest first"`
}

// MessageListOutput wraps a message list for Huma.
type MessageListOutput struct {
	Body MessageListResponse
}

func (s *Server) handleMarkCompleted(ctx context.Context, input *BookIDInput) (*HandoverThreadOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	thread, err := s.services.Handover.MarkCompleted(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &HandoverThreadOutput{Body: thread}, nil
}

func (s *Server) handleMarkDelivered(ctx context.Context, input *BookIDInput) (*HandoverThreadOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	thread, err := s.services.Handover.MarkDelivered(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &HandoverThreadOutput{Body: thread}, nil
}

func (s *Server) handleGetBookHandover(ctx context.Context, input *BookIDInput) (*ThreadWithBookOutput, error) {
	viewer, err := s.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	thread, err := s.services.Handover.ThreadForBook(ctx, viewer, input.ID)
	if err != nil {
		return nil, err
	}
	return &ThreadWithBookOutput{Body: thread}, nil
}

func (s *Server) handleListThreads(ctx context.Context, input *ListThreadsInput) (*ThreadListOutput, error) {
	viewer, err := s.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	threads, err := s.services.Handover.ListThreads(ctx, viewer, domain.ThreadStatus(input.Status))
	if err != nil {
		return nil, err
	}
	return &ThreadListOutput{Body: ThreadListResponse{Threads: threads}}, nil
}

func (s *Server) handleListMessages(ctx context.Context, input *ThreadIDInput) (*MessageListOutput, error) {
	viewer, err := s.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	messages, err := s.services.Handover.ListMessages(ctx, viewer, input.ID)
	if err != nil {
		return nil, err
	}
	return &MessageListOutput{Body: MessageListResponse{Messages: messages}}, nil
}

func (s *Server) handlePostMessage(ctx context.Context, input *PostMessageInput) (*HandoverMessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := s.services.Handover.PostMessage(ctx, userID, input.ID, input.Body.Message)
	if err != nil {
		return nil, err
	}
	return &HandoverMessageOutput{Body: msg}, nil
}
