package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/duosnap/backend/internal/db"
	"github.com/duosnap/backend/internal/matching"
)

// PairingRepository owns all pairing persistence: the daily batch
// commit, the history window, and the guarded status transitions.
//
// Every status mutation is a conditional UPDATE keyed on the expected
// prior status; a transition "loses" by affecting zero rows, never by
// overwriting another writer.
type PairingRepository struct {
	db *gorm.DB
}

// NewPairingRepository creates a new repository bound to the given DB connection.
func NewPairingRepository(database *gorm.DB) *PairingRepository {
	return &PairingRepository{db: database}
}

// CreateDailyBatch applies one matching run as a single transaction:
// all pairing rows, then the member flag updates.
//
// Behavior:
//   - Matched members: waitlisted_yesterday and priority_next_pairing
//     both cleared.
//   - Waitlisted members: both set, carrying them into the next run's
//     priority tier.
//   - Any failure rolls back everything; no reader ever observes a
//     partial day.
//
// Example:
//
//	repo.CreateDailyBatch(ctx, pairings, matchedIDs, waitlistIDs)
func (r *PairingRepository) CreateDailyBatch(
	ctx context.Context,
	pairings []db.Pairing,
	matched []string,
	waitlisted []string,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(pairings) > 0 {
			if err := tx.Create(&pairings).Error; err != nil {
				return err
			}
		}
		if len(matched) > 0 {
			err := tx.Model(&db.Member{}).
				Where("id IN ?", matched).
				Updates(map[string]any{
					"waitlisted_yesterday":  false,
					"priority_next_pairing": false,
				}).Error
			if err != nil {
				return err
			}
		}
		if len(waitlisted) > 0 {
			err := tx.Model(&db.Member{}).
				Where("id IN ?", waitlisted).
				Updates(map[string]any{
					"waitlisted_yesterday":  true,
					"priority_next_pairing": true,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// RecentPairs returns the set of unordered member pairs matched on or
// after since, regardless of completion status.
func (r *PairingRepository) RecentPairs(ctx context.Context, since time.Time) (matching.PairSet, error) {
	var rows []struct {
		MemberAID string
		MemberBID string
	}
	err := r.db.WithContext(ctx).
		Model(&db.Pairing{}).
		Select("member_a_id", "member_b_id").
		Where("day >= ?", since).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	set := make(matching.PairSet, len(rows))
	for _, row := range rows {
		set.Add(row.MemberAID, row.MemberBID)
	}
	return set, nil
}

// GetByID fetches one pairing.
func (r *PairingRepository) GetByID(ctx context.Context, id string) (*db.Pairing, error) {
	var p db.Pairing
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetForMemberOnDay returns the member's pairing for the given day, or
// nil when none exists.
func (r *PairingRepository) GetForMemberOnDay(ctx context.Context, memberID string, day time.Time) (*db.Pairing, error) {
	var p db.Pairing
	err := r.db.WithContext(ctx).
		Where("day = ? AND (member_a_id = ? OR member_b_id = ?)", day, memberID, memberID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Overdue returns pairings that are one-sided past their deadline,
// the recovery job's worklist. Fully-pending pairings never qualify.
func (r *PairingRepository) Overdue(ctx context.Context, now time.Time) ([]db.Pairing, error) {
	var pairings []db.Pairing
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?",
			[]db.Status{db.StatusASubmitted, db.StatusBSubmitted}, now).
		Find(&pairings).Error
	return pairings, err
}

// SubmitSide applies a member's submission as a compare-and-swap on
// status, and resets the submitter's flake streak in the same
// transaction.
//
// Behavior:
//   - updates are applied only while status still equals expected;
//     a concurrent transition makes this report applied=false with
//     the row untouched.
//   - The streak reset rides the same transaction, so a submission
//     either fully lands or leaves no trace.
//
// Example:
//
//	repo.SubmitSide(ctx, id, db.StatusPending, updates, memberID)
func (r *PairingRepository) SubmitSide(
	ctx context.Context,
	id string,
	expected db.Status,
	updates map[string]any,
	submitterID string,
) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.Pairing{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return tx.Model(&db.Member{}).
			Where("id = ?", submitterID).
			Update("flake_streak", 0).Error
	})
	return applied, err
}

// ForceComplete applies an artificial completion as a compare-and-swap
// on the observed one-sided status, incrementing the silent member's
// flake streak in the same transaction.
//
// A pairing completed by a genuine late submission in the meantime
// makes the swap miss; the caller reports it skipped.
func (r *PairingRepository) ForceComplete(
	ctx context.Context,
	id string,
	expected db.Status,
	updates map[string]any,
	silentID string,
) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.Pairing{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return tx.Model(&db.Member{}).
			Where("id = ?", silentID).
			Update("flake_streak", gorm.Expr("flake_streak + 1")).Error
	})
	return applied, err
}
