package pairing

import (
	"context"
	"fmt"
	"time"

	"github.com/duosnap/backend/internal/db"
	apperrors "github.com/duosnap/backend/internal/errors"
	"github.com/duosnap/backend/internal/metrics"
)

// Outcome is the per-record result of an artificial completion
// attempt.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyCompleted Outcome = "already_completed"
)

// RecoverySummary aggregates one recovery run.
type RecoverySummary struct {
	Completed int
	Skipped   int
	Failed    int
}

// RunRecovery scans for pairings stuck one-sided past their deadline
// and force-completes each. Per-record failures are logged and
// counted, never fatal to the run; only a failed scan errors out.
//
// Safe to re-run: records completed in the meantime (by a genuine late
// submission or another recovery pass) lose the conditional swap and
// count as skipped.
func (s *Service) RunRecovery(ctx context.Context, referenceTime time.Time) (RecoverySummary, error) {
	log := s.appCtx.Logger.With("op", "run_recovery")

	overdue, err := s.pairings.Overdue(ctx, referenceTime)
	if err != nil {
		return RecoverySummary{}, apperrors.Map(err)
	}

	var summary RecoverySummary
	for i := range overdue {
		outcome, err := s.ArtificialComplete(ctx, overdue[i].ID, referenceTime)
		switch {
		case err != nil:
			summary.Failed++
			metrics.RecordRecovery("failed")
			log.Error("artificial completion failed", "pairing_id", overdue[i].ID, "err", err)
		case outcome == OutcomeAlreadyCompleted:
			summary.Skipped++
			metrics.RecordRecovery("skipped")
		default:
			summary.Completed++
			metrics.RecordRecovery("completed")
		}
	}

	log.Info("recovery run finished",
		"scanned", len(overdue),
		"completed", summary.Completed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

// ArtificialComplete force-completes one overdue one-sided pairing:
// the responder's photo reference is rewritten for the silent side,
// the silent member's flake streak increments, and the record becomes
// immutable history.
//
// Guards:
//   - Already completed → OutcomeAlreadyCompleted, a no-op, not an
//     error (idempotent in effect).
//   - Pending (nobody responded) is never touched; those records stay
//     unresolved.
//   - Deadline not yet passed → conflict.
//
// The transition is a compare-and-swap on the observed one-sided
// status, so a genuine late submission racing this call wins cleanly.
func (s *Service) ArtificialComplete(ctx context.Context, pairingID string, referenceTime time.Time) (Outcome, error) {
	p, err := s.pairings.GetByID(ctx, pairingID)
	if err != nil {
		return "", apperrors.Map(err)
	}

	if p.Status.Terminal() {
		return OutcomeAlreadyCompleted, nil
	}
	if !p.Status.OneSided() {
		return "", apperrors.Map(fmt.Errorf("%w: artificial completion requires a one-sided pairing, got %s", apperrors.ErrConflict, p.Status))
	}
	if !referenceTime.After(p.ExpiresAt) {
		return "", apperrors.Map(fmt.Errorf("%w: pairing has not expired yet", apperrors.ErrConflict))
	}

	updates, silent, err := artificialUpdates(p, referenceTime)
	if err != nil {
		return "", apperrors.Map(err)
	}
	silentID := p.MemberAID
	if silent == db.SideB {
		silentID = p.MemberBID
	}

	applied, err := s.pairings.ForceComplete(ctx, p.ID, p.Status, updates, silentID)
	if err != nil {
		return "", apperrors.Map(err)
	}
	if !applied {
		// swap missed: a genuine submission (or another recovery pass)
		// got there first
		return OutcomeAlreadyCompleted, nil
	}

	completed, err := s.pairings.GetByID(ctx, p.ID)
	if err == nil {
		s.publishCompleted(ctx, completed)
	}
	return OutcomeCompleted, nil
}
