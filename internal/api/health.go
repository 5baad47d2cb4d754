package api

import (
	"net/http"
	"time"
)

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Uptime    string         `json:"uptime"`
	RunActive bool           `json:"run_active"`
	Leads     map[string]int `json:"leads,omitempty"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		RunActive: s.runner.Running(),
	}

	counts, err := s.leads.CountByStatus()
	if err != nil {
		s.logger.Error("failed to count leads", "error", err)
	} else {
		resp.Leads = counts
	}

	s.sendJSON(w, http.StatusOK, resp)
}
