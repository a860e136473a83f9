package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

func (s *Server) registerNotificationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications",
		Summary:     "List notifications",
		Description: "Returns the caller's notifications, newest first, with cursor pagination",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListNotifications)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUnreadCount",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications/unread-count",
		Summary:     "Count unread notifications",
		Description: "Returns how many of the caller's notifications are unread",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUnreadCount)

	huma.Register(s.api, huma.Operation{
		OperationID: "markNotificationRead",
		Method:      http.MethodPut,
		Path:        "/api/v1/notifications/{id}/read",
		Summary:     "Mark notification read",
		Description: "Marks one of the caller's notifications read",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMarkNotificationRead)

	huma.Register(s.api, huma.Operation{
		OperationID: "markAllNotificationsRead",
		Method:      http.MethodPut,
		Path:        "/api/v1/notifications/read-all",
		Summary:     "Mark all notifications read",
		Description: "Marks every notification of the caller read",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMarkAllRead)
}

// ListNotificationsInput contains cursor pagination parameters.
type ListNotificationsInput struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"200" doc:"Items per page (default 50)"`
	Cursor string `query:"cursor" doc:"Cursor from a previous page"`
}

// NotificationPageOutput wraps a page of notifications for Huma.
type NotificationPageOutput struct {
	Body *store.PaginatedResult[*domain.Notification]
}

// UnreadCountResponse holds the unread count.
type UnreadCountResponse struct {
	Count int `json:"count" doc:"Unread notifications"`
}

// UnreadCountOutput wraps the unread count for Huma.
type UnreadCountOutput struct {
	Body UnreadCountResponse
}

// NotificationIDInput addresses a single notification.
type NotificationIDInput struct {
	ID string `path:"id" doc:"Notification ID"`
}

// MarkAllReadResponse reports how many notifications changed.
type MarkAllReadResponse struct {
	Updated int `json:"updated" doc:"Notifications marked read"`
}

// MarkAllReadOutput wraps the mark-all result for Huma.
type MarkAllReadOutput struct {
	Body MarkAllReadResponse
}

func (s *Server) handleListNotifications(ctx context.Context, input *ListNotificationsInput) (*NotificationPageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	page, err := s.services.Notifications.List(ctx, userID, store.PaginationParams{
		Limit:  input.Limit,
		Cursor: input.Cursor,
	})
	if err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []*domain.Notification{}
	}
	return &NotificationPageOutput{Body: page}, nil
}

func (s *Server) handleUnreadCount(ctx context.Context, _ *struct{}) (*UnreadCountOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.services.Notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UnreadCountOutput{Body: UnreadCountResponse{Count: count}}, nil
}

func (s *Server) handleMarkNotificationRead(ctx context.Context, input *NotificationIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Notifications.MarkRead(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return message("Notification marked read"), nil
}

func (s *Server) handleMarkAllRead(ctx context.Context, _ *struct{}) (*MarkAllReadOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.services.Notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MarkAllReadOutput{Body: MarkAllReadResponse{Updated: n}}, nil
}
