package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/id"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// ReputationService owns the success score ledger. Every score change goes
// through apply, inside the transaction of the operation that caused it.
type ReputationService struct {
	store    store.Store
	notifier *NotificationService
	logger   *slog.Logger
	clock    func() time.Time
}

// NewReputationService creates a new reputation service.
func NewReputationService(store store.Store, notifier *NotificationService, logger *slog.Logger) *ReputationService {
	return &ReputationService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		clock:    time.Now,
	}
}

// apply appends one ledger entry and moves the user's score and counters
// in the same write. The user row is version checked, so a concurrent score
// change makes the whole transaction fail with a conflict.
func (s *ReputationService) apply(ctx context.Context, tx store.Repository, change domain.ScoreChange, out *outbox) (*domain.LedgerEntry, error) {
	if !change.Event.Valid() {
		return nil, domainerrors.Validationf("unknown reputation event %q", change.Event)
	}
	delta := change.ResolveDelta()
	if change.Event == domain.EventAdminAdjustment && delta == 0 {
		return nil, domainerrors.Validation("adjustment amount must not be zero")
	}

	user, err := tx.GetUser(ctx, change.UserID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}

	entryID, err := id.Generate(id.PrefixLedger)
	if err != nil {
		return nil, fmt.Errorf("generate ledger ID: %w", err)
	}
	entry := &domain.LedgerEntry{
		ID:          entryID,
		UserID:      user.ID,
		Event:       change.Event,
		Delta:       delta,
		ScoreBefore: user.SuccessScore,
		ScoreAfter:  user.SuccessScore + delta,
		Reason:      change.Reason,
		ActorID:     change.ActorID,
		RefType:     change.RefType,
		RefID:       change.RefID,
		CreatedAt:   s.clock(),
	}
	if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	user.SuccessScore = entry.ScoreAfter
	user.UserStats.Apply(change.Counters)
	if err := tx.UpdateUserStanding(ctx, user); err != nil {
		return nil, err
	}

	if out != nil {
		out.scored(entry)
	}
	s.logger.Info("success score changed",
		"user_id", user.ID,
		"event", entry.Event,
		"delta", entry.Delta,
		"score", entry.ScoreAfter,
	)
	return entry, nil
}

// applyCounters moves activity counters without touching the score.
func (s *ReputationService) applyCounters(ctx context.Context, tx store.Repository, userID string, delta domain.CounterDelta) error {
	if delta.IsZero() {
		return nil
	}
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return notFound(err, "user not found")
	}
	user.UserStats.Apply(delta)
	return tx.UpdateUserStanding(ctx, user)
}

// AdjustScore applies a manual admin adjustment with a recorded reason.
func (s *ReputationService) AdjustScore(ctx context.Context, adminID, userID string, amount int, reason string) (*domain.LedgerEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domainerrors.Validation("a reason is required for score adjustments")
	}
	if amount == 0 {
		return nil, domainerrors.Validation("adjustment amount must not be zero")
	}

	out := &outbox{}
	var entry *domain.LedgerEntry
	err := s.store.InTx(ctx, func(tx store.Repository) error {
		var err error
		entry, err = s.apply(ctx, tx, domain.ScoreChange{
			UserID:  userID,
			Event:   domain.EventAdminAdjustment,
			Amount:  amount,
			Reason:  reason,
			ActorID: adminID,
			RefType: "user",
			RefID:   userID,
		}, out)
		if err != nil {
			return err
		}
		return recordAudit(ctx, tx, entry.CreatedAt, adminID, domain.AuditScoreAdjusted, "user", userID, map[string]any{
			"amount":       amount,
			"reason":       reason,
			"score_before": entry.ScoreBefore,
			"score_after":  entry.ScoreAfter,
		})
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	s.notifier.Flush(ctx, out)
	return entry, nil
}

// History returns the member's ledger in the order it was written.
func (s *ReputationService) History(ctx context.Context, userID string) ([]*domain.LedgerEntry, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, notFound(err, "user not found")
	}
	return s.store.ListLedgerEntries(ctx, userID)
}

// LedgerReport is the result of replaying one member's ledger.
type LedgerReport struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	StoredScore int    `json:"stored_score"`
	ReplayScore int    `json:"replay_score"`
	Entries     int    `json:"entries"`
	// BrokenAt is the first entry whose score_before does not follow from
	// the entry before it.
	BrokenAt string `json:"broken_at,omitempty"`
}

// Consistent reports whether the ledger explains the stored score.
func (r *LedgerReport) Consistent() bool {
	return r.StoredScore == r.ReplayScore && r.BrokenAt == ""
}

// VerifyLedger replays one member's ledger against the stored score.
func (s *ReputationService) VerifyLedger(ctx context.Context, userID string) (*LedgerReport, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	entries, err := s.store.ListLedgerEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}

	report := &LedgerReport{
		UserID:      user.ID,
		Username:    user.Username,
		StoredScore: user.SuccessScore,
		ReplayScore: domain.ReplayScore(entries),
		Entries:     len(entries),
	}
	running := domain.InitialSuccessScore
	for _, e := range entries {
		if e.ScoreBefore != running || e.ScoreAfter != e.ScoreBefore+e.Delta {
			report.BrokenAt = e.ID
			break
		}
		running = e.ScoreAfter
	}
	return report, nil
}

// VerifyAll replays every member's ledger and returns the inconsistent ones.
func (s *ReputationService) VerifyAll(ctx context.Context) ([]*LedgerReport, error) {
	ids, err := s.store.ListAllUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var drifted []*LedgerReport
	for _, userID := range ids {
		report, err := s.VerifyLedger(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !report.Consistent() {
			s.logger.Warn("ledger does not explain stored score",
				"user_id", userID,
				"stored", report.StoredScore,
				"replayed", report.ReplayScore,
				"broken_at", report.BrokenAt,
			)
			drifted = append(drifted, report)
		}
	}
	return drifted, nil
}
