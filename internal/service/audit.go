package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/id"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// recordAudit writes an audit row inside the caller's transaction.
func recordAudit(ctx context.Context, tx store.Repository, now time.Time, actorID string, action domain.AuditAction, entityType, entityID string, details any) error {
	auditID, err := id.Generate(id.PrefixAudit)
	if err != nil {
		return fmt.Errorf("generate audit ID: %w", err)
	}
	var raw json.RawMessage
	if details != nil {
		if raw, err = json.Marshal(details); err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}
	return tx.CreateAuditLog(ctx, &domain.AuditLog{
		ID:         auditID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
		CreatedAt:  now,
	})
}

// AuditService reads the admin audit trail.
type AuditService struct {
	store  store.Store
	logger *slog.Logger
}

// NewAuditService creates a new audit service.
func NewAuditService(store store.Store, logger *slog.Logger) *AuditService {
	return &AuditService{store: store, logger: logger}
}

// AuditPage is one page of audit rows.
type AuditPage struct {
	Logs  []*domain.AuditLog `json:"logs"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// List returns audit rows newest first using 1-based page numbers.
func (s *AuditService) List(ctx context.Context, page, limit int) (*AuditPage, error) {
	p := store.PageFromNumber(page, limit)
	logs, total, err := s.store.ListAuditLogs(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return &AuditPage{Logs: logs, Total: total, Page: p.Offset/p.Limit + 1, Limit: p.Limit}, nil
}
