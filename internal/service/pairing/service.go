package pairing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duosnap/backend/internal/app"
	"github.com/duosnap/backend/internal/db"
	apperrors "github.com/duosnap/backend/internal/errors"
	"github.com/duosnap/backend/internal/matching"
	"github.com/duosnap/backend/internal/metrics"
	"github.com/duosnap/backend/internal/repository"
	"github.com/duosnap/backend/internal/utils/photoref"
)

// Service is the pairing engine's operation surface: the daily
// matching run, the lifecycle transitions, the recovery job, and the
// reminder gate. Collaborator failures are isolated here; only
// conversation creation can sink a daily run.
type Service struct {
	appCtx   *app.AppContext
	members  *repository.MemberRepository
	pairings *repository.PairingRepository

	convos    ConversationCreator
	feed      FeedPublisher
	reminders ReminderSender

	// Now and Seed are swappable for tests.
	Now  func() time.Time
	Seed func() int64
}

// NewService wires the pairing service from AppContext and its
// collaborators.
func NewService(appCtx *app.AppContext, convos ConversationCreator, feed FeedPublisher, reminders ReminderSender) *Service {
	return &Service{
		appCtx:    appCtx,
		members:   repository.NewMemberRepository(appCtx.DB),
		pairings:  repository.NewPairingRepository(appCtx.DB),
		convos:    convos,
		feed:      feed,
		reminders: reminders,
		Now:       time.Now,
		Seed:      func() int64 { return time.Now().UnixNano() },
	}
}

// MatchSummary reports one daily run.
type MatchSummary struct {
	PairsCreated int
	Waitlisted   int
}

// RunDailyMatching executes the full pipeline for one calendar day:
// eligibility filter → recent-pair window → seeded greedy matcher →
// one atomic batch of pairing rows and member flag updates.
//
// Behavior:
//   - Fewer than two eligible members is a normal zero-pairs outcome,
//     not an error; leftover candidates still get their waitlist
//     flags so priority carries into the next run.
//   - Conversation creation happens before the batch opens; any
//     failure aborts the run with nothing written.
//   - At-most-once per day is the scheduler's contract, not enforced
//     here.
func (s *Service) RunDailyMatching(ctx context.Context, referenceDate time.Time) (MatchSummary, error) {
	log := s.appCtx.Logger.With("op", "run_daily_matching")
	cfg := s.appCtx.Config.Pairing
	day := db.DayOf(referenceDate)

	members, err := s.members.ListActive(ctx)
	if err != nil {
		return MatchSummary{}, apperrors.Map(err)
	}
	blocks, err := s.members.ListBlocks(ctx)
	if err != nil {
		return MatchSummary{}, apperrors.Map(err)
	}
	recent, err := s.pairings.RecentPairs(ctx, day.AddDate(0, 0, -cfg.LookbackDays))
	if err != nil {
		return MatchSummary{}, apperrors.Map(err)
	}

	pool := matching.Eligible(members, referenceDate, matching.Rules{
		RecencyWindow: time.Duration(cfg.RecencyDays) * 24 * time.Hour,
		FlakeCeiling:  cfg.FlakeCeiling,
	})

	result, err := matching.Match(pool, matching.NewBlockSet(blocks), recent, s.Seed())
	if err != nil {
		// invariant violation, operator problem, no retry
		log.Error("matcher precondition failure", "err", err)
		return MatchSummary{}, apperrors.Map(err)
	}

	if len(result.Pairs) == 0 {
		log.Info("insufficient candidates", "pool", len(pool), "waitlisted", len(result.Waitlist))
	}

	expiresAt := db.ExpiryFor(day, cfg.ExpiryHour)
	pairings := make([]db.Pairing, 0, len(result.Pairs))
	matched := make([]string, 0, 2*len(result.Pairs))
	for _, pair := range result.Pairs {
		id := uuid.NewString()
		convID, err := s.convos.CreateConversation(ctx, id, pair[0], pair[1])
		if err != nil {
			// fatal to the whole batch, nothing has been written yet
			log.Error("conversation creation failed, aborting run", "err", err)
			return MatchSummary{}, apperrors.Map(fmt.Errorf("create conversation: %w", err))
		}
		pairings = append(pairings, db.Pairing{
			ID:             id,
			Day:            day,
			ExpiresAt:      expiresAt,
			MemberAID:      pair[0],
			MemberBID:      pair[1],
			Status:         db.StatusPending,
			ConversationID: convID,
		})
		matched = append(matched, pair[0], pair[1])
	}

	if err := s.pairings.CreateDailyBatch(ctx, pairings, matched, result.Waitlist); err != nil {
		return MatchSummary{}, apperrors.Map(err)
	}

	metrics.RecordDailyRun(len(pairings), len(result.Waitlist))
	log.Info("daily matching committed",
		"day", day.Format("2006-01-02"),
		"pairs", len(pairings),
		"waitlisted", len(result.Waitlist),
	)

	return MatchSummary{PairsCreated: len(pairings), Waitlisted: len(result.Waitlist)}, nil
}

// SubmitPhoto records one member's photo for their side of a pairing.
//
// Guards:
//   - pending → that side submitted; other side already submitted →
//     completed. Anything else is a conflict, reported, never
//     overwritten.
//   - The transition is a compare-and-swap on status. Losing the swap
//     triggers exactly one re-read: if the other side landed first the
//     pairing is now one-sided and this submission completes it;
//     if this member's own side got filled, it is a true conflict.
//
// The completing submission publishes to the feed synchronously; a
// publish failure is logged and does not undo completion.
func (s *Service) SubmitPhoto(ctx context.Context, pairingID, memberID, photoRef string, isPrivate bool) (*db.Pairing, error) {
	log := s.appCtx.Logger.With("op", "submit_photo", "pairing_id", pairingID, "member_id", memberID)

	if photoRef == "" {
		return nil, apperrors.InvalidArgument("photo reference must not be empty")
	}

	for attempt := 0; attempt < 2; attempt++ {
		p, err := s.pairings.GetByID(ctx, pairingID)
		if err != nil {
			return nil, apperrors.Map(err)
		}

		side, ok := p.SideOf(memberID)
		if !ok {
			return nil, apperrors.Map(apperrors.ErrNotParticipant)
		}
		if p.Status.Terminal() || p.Photo(side) != nil {
			metrics.RecordSubmission("conflict")
			return nil, apperrors.Map(fmt.Errorf("%w: side %s already submitted or pairing completed", apperrors.ErrConflict, side))
		}

		now := s.Now()
		completes := p.Status == side.Other().Submitted()
		updates := submissionUpdates(side, photoRef, isPrivate, now, completes)

		applied, err := s.pairings.SubmitSide(ctx, p.ID, p.Status, updates, memberID)
		if err != nil {
			return nil, apperrors.Map(err)
		}
		if !applied {
			// someone else moved the status first; one re-read settles it
			log.Debug("submission lost status race, re-reading", "observed", p.Status)
			continue
		}

		updated, err := s.pairings.GetByID(ctx, p.ID)
		if err != nil {
			return nil, apperrors.Map(err)
		}
		metrics.RecordSubmission("ok")
		if completes {
			s.publishCompleted(ctx, updated)
		}
		return updated, nil
	}

	metrics.RecordSubmission("conflict")
	return nil, apperrors.Map(fmt.Errorf("%w: concurrent transition", apperrors.ErrConflict))
}

// GetCurrentPairing returns the member's pairing for today, or nil
// when none exists. Cache-first on the (member, day) to pairing id
// mapping with a DB fallback.
func (s *Service) GetCurrentPairing(ctx context.Context, memberID string) (*db.Pairing, error) {
	day := db.DayOf(s.Now())
	key := s.appCtx.RedisCache.KeyForCurrentPairing(memberID, day)

	if id, _ := s.appCtx.RedisCache.Get(ctx, key); id != "" {
		p, err := s.pairings.GetByID(ctx, id)
		if err == nil {
			return p, nil
		}
		// stale cache entry, fall through to the DB
		_ = s.appCtx.RedisCache.Del(ctx, key)
	}

	p, err := s.pairings.GetForMemberOnDay(ctx, memberID, day)
	if err != nil {
		return nil, apperrors.Map(err)
	}
	if p == nil {
		return nil, nil
	}

	_ = s.appCtx.RedisCache.Set(ctx, key, p.ID, time.Hour)
	return p, nil
}

// SendReminder lets one side of a non-terminal pairing nudge the
// other, at most once per pairing per window. Delivery is delegated;
// a delivery failure is logged, not surfaced.
func (s *Service) SendReminder(ctx context.Context, pairingID, fromMemberID, toMemberID string) error {
	log := s.appCtx.Logger.With("op", "send_reminder", "pairing_id", pairingID)

	if fromMemberID == toMemberID {
		return apperrors.InvalidArgument("cannot remind yourself")
	}

	p, err := s.pairings.GetByID(ctx, pairingID)
	if err != nil {
		return apperrors.Map(err)
	}
	if p.Status.Terminal() {
		return apperrors.Map(fmt.Errorf("%w: pairing already completed", apperrors.ErrConflict))
	}
	if _, ok := p.SideOf(fromMemberID); !ok {
		return apperrors.Map(apperrors.ErrNotParticipant)
	}
	if _, ok := p.SideOf(toMemberID); !ok {
		return apperrors.Map(apperrors.ErrNotParticipant)
	}

	window := time.Duration(s.appCtx.Config.Pairing.ReminderWindowMin) * time.Minute
	ok, err := s.appCtx.RedisCache.AcquireReminderSlot(ctx, pairingID, window)
	if err != nil {
		return apperrors.Map(err)
	}
	if !ok {
		return apperrors.Map(apperrors.ErrReminderThrottled)
	}

	if err := s.reminders.SendReminder(ctx, pairingID, fromMemberID, toMemberID); err != nil {
		log.Warn("reminder delivery failed", "err", err)
		return nil
	}
	metrics.RecordReminder()
	return nil
}

// publishCompleted hands a completed pairing to the feed collaborator.
// Non-fatal: completion already committed.
func (s *Service) publishCompleted(ctx context.Context, p *db.Pairing) {
	if err := s.feed.PublishCompleted(ctx, p); err != nil {
		s.appCtx.Logger.Warn("feed publication failed", "pairing_id", p.ID, "err", err)
	}
}

// submissionUpdates builds the column set for one side's submission.
func submissionUpdates(side db.Side, photoRef string, isPrivate bool, now time.Time, completes bool) map[string]any {
	updates := map[string]any{}
	switch side {
	case db.SideA:
		updates["photo_a"] = photoRef
		updates["photo_a_private"] = isPrivate
		updates["submitted_at_a"] = now
	case db.SideB:
		updates["photo_b"] = photoRef
		updates["photo_b_private"] = isPrivate
		updates["submitted_at_b"] = now
	}
	if completes {
		updates["status"] = db.StatusCompleted
		updates["completed_at"] = now
	} else {
		updates["status"] = side.Submitted()
	}
	return updates
}

// artificialUpdates builds the column set for force-completing a
// one-sided pairing: the silent side gets a derived reference to the
// responder's photo.
func artificialUpdates(p *db.Pairing, now time.Time) (map[string]any, db.Side, error) {
	side, ok := p.SubmittedSide()
	if !ok {
		return nil, "", fmt.Errorf("%w: pairing %s is not one-sided", apperrors.ErrPrecondition, p.ID)
	}
	source := p.Photo(side)
	if source == nil {
		return nil, "", fmt.Errorf("%w: pairing %s has status %s but no photo", apperrors.ErrPrecondition, p.ID, p.Status)
	}

	silent := side.Other()
	derived := photoref.DeriveArtificial(*source, silent)
	reason := fmt.Sprintf("no submission from side %s before %s", silent, p.ExpiresAt.Format(time.RFC3339))

	updates := map[string]any{
		"status":                db.StatusCompleted,
		"completed_at":          now,
		"artificial_completion": true,
		"artificial_reason":     reason,
	}
	switch silent {
	case db.SideA:
		updates["photo_a"] = derived
		updates["submitted_at_a"] = now
	case db.SideB:
		updates["photo_b"] = derived
		updates["submitted_at_b"] = now
	}
	return updates, silent, nil
}
