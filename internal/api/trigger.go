package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tilgo/leadline/internal/campaign"
	"github.com/tilgo/leadline/internal/models"
)

// TriggerResponse is the response for /trigger
type TriggerResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the error response body
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleTrigger starts a manual campaign run. The run executes in the
// background because throttled batches can take a long time; the run guard
// is acquired before responding, so a 202 means this request owns the run.
// Outside the send window the request is refused unless force=true is passed.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	if !force {
		now := time.Now().In(s.cfg.Campaign.Location())
		if !s.cfg.Campaign.WithinSendHours(now) {
			s.logger.Warn("manual trigger outside sending hours refused",
				"hour", now.Hour(),
				"window_start", s.cfg.Campaign.SendHourStart,
				"window_end", s.cfg.Campaign.SendHourEnd)
			s.sendError(w, http.StatusConflict, "outside sending hours, pass force=true to override")
			return
		}
	}

	if err := s.runner.Start(context.Background(), models.TriggerManual); err != nil {
		if errors.Is(err, campaign.ErrRunInProgress) {
			s.sendError(w, http.StatusConflict, "campaign run already in progress")
			return
		}
		s.logger.Error("failed to start campaign run", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to start campaign run")
		return
	}

	s.logger.Info("manual campaign run started", "remote_addr", r.RemoteAddr, "force", force)
	s.sendJSON(w, http.StatusAccepted, TriggerResponse{Status: "started"})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
