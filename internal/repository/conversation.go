package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tilgo/leadline/internal/models"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Append stores a single conversation turn for a phone number.
func (r *ConversationRepository) Append(phone, role, content string) error {
	_, err := r.db.Exec(`
		INSERT INTO conversations (phone, role, content, created_at)
		VALUES (?, ?, ?, ?)`,
		phone, role, content, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}
	return nil
}

// History returns up to limit most recent turns for a phone number, oldest
// first, so it can be replayed directly into a prompt.
func (r *ConversationRepository) History(phone string, limit int) ([]models.Turn, error) {
	rows, err := r.db.Query(`
		SELECT id, phone, role, content, created_at FROM (
			SELECT id, phone, role, content, created_at
			FROM conversations
			WHERE phone = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at, id`,
		phone, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation history: %w", err)
	}
	defer rows.Close()

	turns := []models.Turn{}
	for rows.Next() {
		var turn models.Turn
		if err := rows.Scan(&turn.ID, &turn.Phone, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}
