package models

import "time"

// Run trigger sources
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Run represents one campaign execution
type Run struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"` // schedule, manual
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	Error      string     `json:"error,omitempty"`
}

// Duration returns the elapsed run time, zero if still running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
