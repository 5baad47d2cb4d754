package campaign

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tilgo/leadline/internal/config"
	"github.com/tilgo/leadline/internal/models"
)

// Scheduler fires a campaign run once a day at the configured wall-clock
// time in the campaign timezone.
type Scheduler struct {
	cfg    config.CampaignConfig
	runner *Runner
	logger *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewScheduler creates a scheduler around the runner
func NewScheduler(cfg config.CampaignConfig, runner *Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins the scheduling loop
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop stops the scheduling loop and waits for it to exit
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := s.nextRun(time.Now().In(s.cfg.Location()))
		s.logger.Info("next campaign run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		now := time.Now().In(s.cfg.Location())
		if !s.withinSendHours(now) {
			s.logger.Warn("scheduled time outside send hours, skipping run",
				"hour", now.Hour(),
				"window_start", s.cfg.SendHourStart,
				"window_end", s.cfg.SendHourEnd)
			continue
		}

		if _, err := s.runner.TryRun(ctx, models.TriggerSchedule); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				s.logger.Warn("scheduled run skipped, another run is active")
			} else {
				s.logger.Error("scheduled run failed", "error", err)
			}
		}
	}
}

// nextRun returns the next occurrence of the configured send time after now
func (s *Scheduler) nextRun(now time.Time) time.Time {
	sendAt, _ := time.Parse("15:04", s.cfg.SendTime)

	next := time.Date(now.Year(), now.Month(), now.Day(),
		sendAt.Hour(), sendAt.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) withinSendHours(now time.Time) bool {
	return s.cfg.WithinSendHours(now)
}
