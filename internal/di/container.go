// Package di provides dependency injection configuration for the Amar Pathagar server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/amarpathagar/pathagar-server/internal/auth"
	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/di/providers"
	"github.com/amarpathagar/pathagar-server/internal/logger"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	registerProviders(injector)
	return injector
}

// NewContainerWithConfig builds the same container around an already loaded
// config. The maintenance CLI uses it and only invokes the services it needs.
func NewContainerWithConfig(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	registerProviders(injector)
	return injector
}

func registerProviders(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideInbox)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideNotificationService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideReputationService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideRequestService)
	do.Provide(injector, providers.ProvideCirculationService)
	do.Provide(injector, providers.ProvideHandoverService)
	do.Provide(injector, providers.ProvideCommunityService)
	do.Provide(injector, providers.ProvideProfileService)
	do.Provide(injector, providers.ProvideAdminService)
	do.Provide(injector, providers.ProvideAuditService)

	// Workers
	do.Provide(injector, providers.ProvideHandoverScanJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[providers.AuthKey](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.InboxHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.NotificationService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.ReputationService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.RequestService](injector)
	_ = do.MustInvoke[*service.CirculationService](injector)
	_ = do.MustInvoke[*service.HandoverService](injector)
	_ = do.MustInvoke[*service.CommunityService](injector)
	_ = do.MustInvoke[*service.ProfileService](injector)
	_ = do.MustInvoke[*service.AdminService](injector)
	_ = do.MustInvoke[*service.AuditService](injector)

	// Workers
	_ = do.MustInvoke[*providers.HandoverScanJob](injector)

	// Server
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
