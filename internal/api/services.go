package api

import (
	"github.com/amarpathagar/pathagar-server/internal/service"
)

// DocumentCounter reports the size of the search index.
type DocumentCounter interface {
	DocumentCount() (uint64, error)
}

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth          *service.AuthService
	Books         *service.BookService
	Requests      *service.RequestService
	Circulation   *service.CirculationService
	Handover      *service.HandoverService
	Reputation    *service.ReputationService
	Community     *service.CommunityService
	Profiles      *service.ProfileService
	Notifications *service.NotificationService
	Admin         *service.AdminService
	Audit         *service.AuditService
	Search        DocumentCounter // optional; health reports degraded without it
}
