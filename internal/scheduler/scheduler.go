package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/duosnap/backend/internal/service/pairing"
)

// Scheduler drives the two background jobs: the daily matching run at
// a fixed local hour and the periodic recovery scan. The daily trigger
// fires at most once per day from this process; running a second
// process breaks that contract, not this code.
type Scheduler struct {
	svc    *pairing.Service
	logger *slog.Logger

	matchHour     int
	recoveryEvery time.Duration
}

func New(svc *pairing.Service, logger *slog.Logger, matchHour int, recoveryEvery time.Duration) *Scheduler {
	return &Scheduler{
		svc:           svc,
		logger:        logger,
		matchHour:     matchHour,
		recoveryEvery: recoveryEvery,
	}
}

// Start launches both loops. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.runDaily(ctx)
	go s.runRecovery(ctx)
}

func (s *Scheduler) runDaily(ctx context.Context) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), s.matchHour, 0, 0, 0, now.Location())
		if !now.Before(next) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case fired := <-timer.C:
			if _, err := s.svc.RunDailyMatching(ctx, fired); err != nil {
				s.logger.Error("daily matching run failed", "err", err)
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) runRecovery(ctx context.Context) {
	ticker := time.NewTicker(s.recoveryEvery)
	defer ticker.Stop()

	for {
		select {
		case fired := <-ticker.C:
			if _, err := s.svc.RunRecovery(ctx, fired); err != nil {
				s.logger.Error("recovery run failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
