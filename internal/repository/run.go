package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilgo/leadline/internal/models"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create records the start of a campaign run.
func (r *RunRepository) Create(run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO campaign_runs (id, trigger_source, started_at)
		VALUES (?, ?, ?)`,
		run.ID, run.Trigger, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Finish records the outcome of a campaign run.
func (r *RunRepository) Finish(run *models.Run) error {
	now := time.Now()
	run.FinishedAt = &now

	_, err := r.db.Exec(`
		UPDATE campaign_runs SET finished_at = ?, sent = ?, failed = ?, skipped = ?, error = ?
		WHERE id = ?`,
		run.FinishedAt, run.Sent, run.Failed, run.Skipped, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Recent returns the most recent campaign runs, newest first.
func (r *RunRepository) Recent(limit int) ([]models.Run, error) {
	rows, err := r.db.Query(`
		SELECT id, trigger_source, started_at, finished_at, sent, failed, skipped, error
		FROM campaign_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(&run.ID, &run.Trigger, &run.StartedAt, &run.FinishedAt,
			&run.Sent, &run.Failed, &run.Skipped, &run.Error); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
