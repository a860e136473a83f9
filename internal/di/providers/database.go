package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/logger"
	"github.com/amarpathagar/pathagar-server/internal/notification"
	"github.com/amarpathagar/pathagar-server/internal/sse"
	"github.com/amarpathagar/pathagar-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the SQLite store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the relational store for the catalog, queue, and ledger.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(filepath.Dir(cfg.Data.DatabasePath), 0o750); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sqlite.Open(cfg.Data.DatabasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	users, err := db.CountUsers(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Database initialized", "path", cfg.Data.DatabasePath, "users", users)

	return &StoreHandle{Store: db}, nil
}

// InboxHandle wraps the notification inbox with shutdown capability.
type InboxHandle struct {
	*notification.Inbox
}

// Shutdown implements do.Shutdownable.
func (h *InboxHandle) Shutdown() error {
	return h.Close()
}

// ProvideInbox provides the badger-backed notification inbox.
func ProvideInbox(i do.Injector) (*InboxHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	inbox, err := notification.Open(cfg.Data.InboxPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Notification inbox opened", "path", cfg.Data.InboxPath)

	return &InboxHandle{Inbox: inbox}, nil
}
