package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/amarpathagar/pathagar-server/internal/api"
	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/logger"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Stop()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:          do.MustInvoke[*service.AuthService](i),
		Books:         do.MustInvoke[*service.BookService](i),
		Requests:      do.MustInvoke[*service.RequestService](i),
		Circulation:   do.MustInvoke[*service.CirculationService](i),
		Handover:      do.MustInvoke[*service.HandoverService](i),
		Reputation:    do.MustInvoke[*service.ReputationService](i),
		Community:     do.MustInvoke[*service.CommunityService](i),
		Profiles:      do.MustInvoke[*service.ProfileService](i),
		Notifications: do.MustInvoke[*service.NotificationService](i),
		Admin:         do.MustInvoke[*service.AdminService](i),
		Audit:         do.MustInvoke[*service.AuditService](i),
		Search:        searchHandle.SearchIndex,
	}

	handler := api.NewServer(storeHandle.Store, services, sseHandle.Manager, cfg, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
