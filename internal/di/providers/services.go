package providers

import (
	"github.com/samber/do/v2"

	"github.com/amarpathagar/pathagar-server/internal/auth"
	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/logger"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

// ProvideNotificationService provides the notification emitter. Inbox rows
// go to badger; live events fan out through the SSE manager.
func ProvideNotificationService(i do.Injector) (*service.NotificationService, error) {
	inboxHandle := do.MustInvoke[*InboxHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewNotificationService(inboxHandle.Inbox, sseHandle.Manager, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideReputationService provides the reputation ledger.
func ProvideReputationService(i do.Injector) (*service.ReputationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[*service.NotificationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReputationService(storeHandle.Store, notifier, log.Logger), nil
}

// ProvideBookService provides the book registry. The bleve index both
// receives catalog writes and answers text queries.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	notifier := do.MustInvoke[*service.NotificationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(
		storeHandle.Store,
		searchHandle.SearchIndex,
		searchHandle.SearchIndex,
		notifier,
		log.Logger,
	), nil
}

// ProvideRequestService provides the request queue.
func ProvideRequestService(i do.Injector) (*service.RequestService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[*service.NotificationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRequestService(storeHandle.Store, notifier, cfg.Policy, log.Logger), nil
}

// ProvideCirculationService provides returns and reading history.
func ProvideCirculationService(i do.Injector) (*service.CirculationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reputation := do.MustInvoke[*service.ReputationService](i)
	notifier := do.MustInvoke[*service.NotificationService](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCirculationService(
		storeHandle.Store,
		reputation,
		notifier,
		searchHandle.SearchIndex,
		cfg.Policy,
		log.Logger,
	), nil
}

// ProvideHandoverService provides the handover coordinator.
func ProvideHandoverService(i do.Injector) (*service.HandoverService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reputation := do.MustInvoke[*service.ReputationService](i)
	notifier := do.MustInvoke[*service.NotificationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewHandoverService(storeHandle.Store, reputation, notifier, cfg, log.Logger), nil
}

// ProvideCommunityService provides ideas, reviews, donations, and bookmarks.
func ProvideCommunityService(i do.Injector) (*service.CommunityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reputation := do.MustInvoke[*service.ReputationService](i)
	notifier := do.MustInvoke[*service.NotificationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommunityService(storeHandle.Store, reputation, notifier, log.Logger), nil
}

// ProvideProfileService provides member profiles and leaderboards.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Store, log.Logger), nil
}

// ProvideAdminService provides the admin service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(storeHandle.Store, log.Logger), nil
}

// ProvideAuditService provides the audit log reader.
func ProvideAuditService(i do.Injector) (*service.AuditService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuditService(storeHandle.Store, log.Logger), nil
}
