package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tilgo/leadline/internal/api"
	"github.com/tilgo/leadline/internal/campaign"
	"github.com/tilgo/leadline/internal/classifier"
	"github.com/tilgo/leadline/internal/config"
	"github.com/tilgo/leadline/internal/db"
	"github.com/tilgo/leadline/internal/message"
	"github.com/tilgo/leadline/internal/metrics"
	"github.com/tilgo/leadline/internal/models"
	"github.com/tilgo/leadline/internal/ratelimit"
	"github.com/tilgo/leadline/internal/repository"
	"github.com/tilgo/leadline/internal/sms"
)

// App wires the database, rate limiter, campaign scheduler and HTTP
// servers together.
type App struct {
	config        *config.Config
	database      *db.DB
	boltDB        *bolt.DB
	rateLimiter   *ratelimit.Limiter
	runner        *campaign.Runner
	scheduler     *campaign.Scheduler
	apiServer     *api.Server
	metricsServer *metrics.Server
	collector     *metrics.Collector
	logger        *slog.Logger
}

// New creates the application from configuration
func New(cfg *config.Config, version string) (*App, error) {
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	leads := repository.NewLeadRepository(database.DB)
	conversations := repository.NewConversationRepository(database.DB)
	runs := repository.NewRunRepository(database.DB)

	boltDB, err := bolt.Open(cfg.RateLimit.Path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open rate limit storage: %w", err)
	}

	// The per-recipient daily limit of 1 is what guarantees at most one
	// outbound message per lead per day even across restarts.
	rateLimiter, err := ratelimit.NewLimiter(boltDB, &ratelimit.Config{
		Global: &ratelimit.LimitConfig{
			MessagesPerHour: cfg.RateLimit.MessagesPerHour,
			MessagesPerDay:  cfg.RateLimit.MessagesPerDay,
		},
		Recipient: &ratelimit.LimitConfig{
			MessagesPerDay: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	m := metrics.New()
	metrics.SetGlobal(m)
	collector := metrics.NewCollector(m, leads, cfg.Database.Path, 10*time.Second)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path,
			logger.With("component", "metrics"))
	}

	smsClient := sms.NewClient(sms.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.From,
		BaseURL:    cfg.Twilio.BaseURL,
	})

	classifierClient := classifier.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.APIKey, cfg.Classifier.Model)
	composer := message.NewComposer(cfg.Agent.Name, cfg.Agent.Team, cfg.Agent.Brokerage)

	runner := campaign.NewRunner(
		cfg.Campaign,
		leads,
		conversations,
		runs,
		smsClient,
		composer,
		rateLimiter,
		logger.With("component", "campaign"),
	)
	scheduler := campaign.NewScheduler(cfg.Campaign, runner, logger.With("component", "scheduler"))

	apiServer := api.NewServer(
		cfg,
		leads,
		conversations,
		composer,
		classifierClient,
		runner,
		version,
		logger.With("component", "api"),
	)

	return &App{
		config:        cfg,
		database:      database,
		boltDB:        boltDB,
		rateLimiter:   rateLimiter,
		runner:        runner,
		scheduler:     scheduler,
		apiServer:     apiServer,
		metricsServer: metricsServer,
		collector:     collector,
		logger:        logger,
	}, nil
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting leadline",
		"listen_addr", a.config.Server.ListenAddr,
		"send_time", a.config.Campaign.SendTime,
		"timezone", a.config.Campaign.Timezone,
		"batch_size", a.config.Campaign.BatchSize,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.collector.Start(ctx)
	a.scheduler.Start(ctx)

	errCh := make(chan error, 2)

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// RunOnce executes a single campaign batch and releases all resources.
// Used by the one-shot CLI command.
func (a *App) RunOnce(ctx context.Context) (*models.Run, error) {
	defer a.Shutdown(context.Background())

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.runner.TryRun(ctx, models.TriggerManual)
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop scheduling first so no new run starts mid-shutdown
	a.scheduler.Stop()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	a.collector.Stop()

	// Persists counters so the daily caps survive the restart
	if err := a.rateLimiter.Stop(); err != nil {
		a.logger.Error("rate limiter stop error", "error", err)
	}

	if err := a.boltDB.Close(); err != nil {
		a.logger.Error("rate limit storage close error", "error", err)
	}

	if err := a.database.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
