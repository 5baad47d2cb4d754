package campaign

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/tilgo/leadline/internal/config"
	"github.com/tilgo/leadline/internal/metrics"
	"github.com/tilgo/leadline/internal/models"
	"github.com/tilgo/leadline/internal/ratelimit"
	"github.com/tilgo/leadline/internal/repository"
	"github.com/tilgo/leadline/internal/sms"
)

// ErrRunInProgress is returned when a campaign run is already active.
var ErrRunInProgress = errors.New("campaign run already in progress")

// Sender delivers a single message to a recipient
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Composer renders outreach copy for a lead
type Composer interface {
	Render(lead *models.Lead) (string, error)
	FollowUp(lead *models.Lead) (string, error)
}

// Limiter gates sends against global and per-recipient quotas
type Limiter interface {
	Allow(ctx context.Context, recipient string) (*ratelimit.Result, error)
}

// Runner executes campaign batches: follow-ups to silent leads first,
// then initial outreach to pending leads, up to the batch size.
type Runner struct {
	cfg           config.CampaignConfig
	leads         *repository.LeadRepository
	conversations *repository.ConversationRepository
	runs          *repository.RunRepository
	sender        Sender
	composer      Composer
	limiter       Limiter
	logger        *slog.Logger

	// base delay for rate-limit retries, doubled per attempt
	retryBackoff time.Duration

	mu sync.Mutex
}

// NewRunner creates a campaign runner
func NewRunner(
	cfg config.CampaignConfig,
	leads *repository.LeadRepository,
	conversations *repository.ConversationRepository,
	runs *repository.RunRepository,
	sender Sender,
	composer Composer,
	limiter Limiter,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:           cfg,
		leads:         leads,
		conversations: conversations,
		runs:          runs,
		sender:        sender,
		composer:      composer,
		limiter:       limiter,
		logger:        logger,
		retryBackoff:  time.Second,
	}
}

// Running reports whether a run is currently active
func (r *Runner) Running() bool {
	if r.mu.TryLock() {
		r.mu.Unlock()
		return false
	}
	return true
}

// TryRun executes one campaign batch. Only one run may be active at a
// time; concurrent callers get ErrRunInProgress.
func (r *Runner) TryRun(ctx context.Context, trigger string) (*models.Run, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	return r.run(ctx, trigger)
}

// Start begins a campaign run in the background. The run guard is acquired
// before Start returns, so a nil error means this caller owns the run slot
// and any concurrent Start or TryRun gets ErrRunInProgress.
func (r *Runner) Start(ctx context.Context, trigger string) error {
	if !r.mu.TryLock() {
		return ErrRunInProgress
	}

	go func() {
		defer r.mu.Unlock()
		if _, err := r.run(ctx, trigger); err != nil {
			r.logger.Error("background run failed", "trigger", trigger, "error", err)
		}
	}()

	return nil
}

// run executes one batch; the caller must hold the run guard.
func (r *Runner) run(ctx context.Context, trigger string) (*models.Run, error) {
	run := &models.Run{Trigger: trigger}
	if err := r.runs.Create(run); err != nil {
		return nil, err
	}
	metrics.IncCampaignRuns(trigger)

	r.logger.Info("campaign run started", "run_id", run.ID, "trigger", trigger)

	err := r.process(ctx, run)
	if err != nil {
		run.Error = err.Error()
	}

	now := time.Now()
	run.FinishedAt = &now
	if finishErr := r.runs.Finish(run); finishErr != nil {
		r.logger.Error("failed to record run result", "run_id", run.ID, "error", finishErr)
	}

	r.logger.Info("campaign run finished",
		"run_id", run.ID,
		"sent", run.Sent,
		"failed", run.Failed,
		"skipped", run.Skipped,
		"duration", run.Duration().String())

	return run, err
}

func (r *Runner) process(ctx context.Context, run *models.Run) error {
	since := startOfDay(time.Now().In(r.cfg.Location()))
	budget := r.cfg.BatchSize

	followUpAfter := time.Duration(r.cfg.FollowUpDays) * 24 * time.Hour
	followUps, err := r.leads.ListFollowUps(budget, since, followUpAfter)
	if err != nil {
		return err
	}

	sentAny := false
	for _, lead := range followUps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sentAny {
			if err := r.throttle(ctx); err != nil {
				return err
			}
		}
		sent, stop := r.sendOne(ctx, run, &lead, "follow_up")
		sentAny = sentAny || sent
		if stop {
			return nil
		}
	}

	// Only delivered messages consume the batch; a failed or skipped
	// follow-up leaves room for initial outreach.
	budget -= run.Sent
	if budget <= 0 {
		return nil
	}

	pending, err := r.leads.ListPending(budget, since)
	if err != nil {
		return err
	}

	for _, lead := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sentAny {
			if err := r.throttle(ctx); err != nil {
				return err
			}
		}
		sent, stop := r.sendOne(ctx, run, &lead, "initial")
		sentAny = sentAny || sent
		if stop {
			return nil
		}
	}

	return nil
}

// sendOne processes a single lead. It returns whether a message went out
// and whether the whole run should stop.
func (r *Runner) sendOne(ctx context.Context, run *models.Run, lead *models.Lead, kind string) (sent, stop bool) {
	now := time.Now()

	var body string
	var err error
	if kind == "follow_up" {
		body, err = r.composer.FollowUp(lead)
	} else {
		body, err = r.composer.Render(lead)
	}
	if err != nil {
		r.logger.Warn("failed to render message", "phone", lead.Phone, "error", err)
		if markErr := r.leads.MarkFailed(lead.Phone, err.Error(), now); markErr != nil {
			r.logger.Error("failed to mark lead failed", "phone", lead.Phone, "error", markErr)
		}
		run.Failed++
		return false, false
	}

	if r.limiter != nil {
		result, err := r.limiter.Allow(ctx, lead.Phone)
		if err != nil {
			r.logger.Error("rate limit check failed", "phone", lead.Phone, "error", err)
			run.Skipped++
			return false, false
		}
		if !result.Allowed {
			metrics.IncRateLimitExceeded(string(result.DeniedBy))
			run.Skipped++
			if result.DeniedBy == ratelimit.LevelGlobal {
				// Daily cap reached, nothing more to do today
				r.logger.Info("daily send cap reached, stopping run", "run_id", run.ID)
				return false, true
			}
			r.logger.Debug("recipient already contacted today", "phone", lead.Phone)
			return false, false
		}
	}

	if err := r.deliver(ctx, lead.Phone, body); err != nil {
		var sendErr *sms.SendError
		reason := "unknown"
		if errors.As(err, &sendErr) {
			reason = string(sendErr.Reason)
		}
		metrics.IncSendFailures(reason)
		r.logger.Warn("send failed", "phone", lead.Phone, "reason", reason, "error", err)
		if markErr := r.leads.MarkFailed(lead.Phone, err.Error(), now); markErr != nil {
			r.logger.Error("failed to mark lead failed", "phone", lead.Phone, "error", markErr)
		}
		run.Failed++
		return false, false
	}

	if err := r.leads.MarkSent(lead.Phone, body, now); err != nil {
		r.logger.Error("failed to mark lead sent", "phone", lead.Phone, "error", err)
	}
	if err := r.conversations.Append(lead.Phone, models.RoleAssistant, body); err != nil {
		r.logger.Error("failed to record conversation turn", "phone", lead.Phone, "error", err)
	}
	metrics.IncMessagesSent(kind)
	run.Sent++
	return true, false
}

// deliver sends the message, retrying a bounded number of times when the
// gateway reports rate limiting.
func (r *Runner) deliver(ctx context.Context, to, body string) error {
	backoff := r.retryBackoff

	var err error
	for attempt := 0; ; attempt++ {
		_, err = r.sender.Send(ctx, to, body)
		if err == nil {
			return nil
		}

		var sendErr *sms.SendError
		if !errors.As(err, &sendErr) || !sendErr.Retryable() {
			return err
		}
		if attempt >= r.cfg.RateLimitRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// throttle waits a random human-like interval between sends
func (r *Runner) throttle(ctx context.Context) error {
	min := r.cfg.ThrottleMinSeconds
	max := r.cfg.ThrottleMaxSeconds
	if max <= 0 {
		return nil
	}

	delay := time.Duration(min) * time.Second
	if max > min {
		delay += time.Duration(rand.Intn((max-min)+1)) * time.Second
	}
	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// startOfDay truncates t to midnight in its own location
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
