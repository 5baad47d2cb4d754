package models

import "time"

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in a lead's conversation history
type Turn struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
