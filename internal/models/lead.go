package models

import "time"

// Lead statuses
const (
	StatusPending  = "pending"
	StatusSent     = "sent"
	StatusReplied  = "replied"
	StatusFailed   = "failed"
	StatusOptedOut = "opted_out"
)

// Temperature labels assigned by the reply classifier
const (
	TemperatureCold = "cold"
	TemperatureWarm = "warm"
	TemperatureHot  = "hot"
)

// FallbackTemperature is recorded when the classifier returns a label
// outside the known set.
const FallbackTemperature = TemperatureWarm

// ValidTemperature reports whether label is one of the known temperatures.
func ValidTemperature(label string) bool {
	switch label {
	case TemperatureCold, TemperatureWarm, TemperatureHot:
		return true
	}
	return false
}

// Audience values
const (
	AudienceBuyer  = "buyer"
	AudienceSeller = "seller"
	AudienceBoth   = "both"
)

// Lead represents a single outreach contact
type Lead struct {
	ID              string     `json:"id"`
	Phone           string     `json:"phone"` // unique, E.164
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	Audience        string     `json:"audience"` // buyer, seller, both
	Phase           int        `json:"phase"`    // 1-3, by lead age
	City            string     `json:"city"`
	Notes           string     `json:"notes"`
	Status          string     `json:"status"`
	LastMessageSent string     `json:"last_message_sent"`
	LastSentAt      *time.Time `json:"last_sent_at,omitempty"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	ReplyReceived   bool       `json:"reply_received"`
	LastReply       string     `json:"last_reply"`
	Temperature     string     `json:"temperature"` // empty until first classification
	LastError       string     `json:"last_error"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Name returns the lead's display name.
func (l *Lead) Name() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// LeadFilter for filtering leads
type LeadFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// LeadImportResult holds the result of a CSV import
type LeadImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
