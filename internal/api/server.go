package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tilgo/leadline/internal/classifier"
	"github.com/tilgo/leadline/internal/config"
	"github.com/tilgo/leadline/internal/message"
	"github.com/tilgo/leadline/internal/metrics"
	"github.com/tilgo/leadline/internal/repository"
)

// Classifier produces a conversational reply and temperature label for an
// inbound message.
type Classifier interface {
	Classify(ctx context.Context, prompt *classifier.Context) (*classifier.Result, error)
}

// Runner executes a campaign batch on demand
type Runner interface {
	Start(ctx context.Context, trigger string) error
	Running() bool
}

// Server is the HTTP server for the inbound webhook and control endpoints
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	cfg           *config.Config
	leads         *repository.LeadRepository
	conversations *repository.ConversationRepository
	composer      *message.Composer
	classifier    Classifier
	runner        Runner
	logger        *slog.Logger
	version       string
	startTime     time.Time
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	leads *repository.LeadRepository,
	conversations *repository.ConversationRepository,
	composer *message.Composer,
	cls Classifier,
	runner Runner,
	version string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		cfg:           cfg,
		leads:         leads,
		conversations: conversations,
		composer:      composer,
		classifier:    cls,
		runner:        runner,
		logger:        logger,
		version:       version,
		startTime:     time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		if s.cfg.Twilio.ValidateSignature {
			r.Use(s.signatureMiddleware)
		}
		r.Post("/webhook/sms", s.handleInboundSMS)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.triggerAuthMiddleware)
		r.Get("/trigger", s.handleTrigger)
		r.Post("/trigger", s.handleTrigger)
	})
}

// Router returns the underlying handler, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.cfg.Server.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
