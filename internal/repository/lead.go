package repository

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tilgo/leadline/internal/models"
)

// ErrNotFound is returned when no lead exists for the given phone number.
var ErrNotFound = errors.New("lead not found")

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, phone, first_name, last_name, email, audience, phase, city, notes,
	status, last_message_sent, last_sent_at, last_attempted_at, reply_received,
	last_reply, temperature, last_error, created_at, updated_at`

// Create inserts a new lead. Duplicate phone numbers are skipped; the second
// return value reports whether a row was actually inserted.
func (r *LeadRepository) Create(lead *models.Lead) (bool, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = models.StatusPending
	}
	if lead.Phase == 0 {
		lead.Phase = 1
	}
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt

	res, err := r.db.Exec(`
		INSERT INTO leads (id, phone, first_name, last_name, email, audience, phase, city, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(phone) DO NOTHING`,
		lead.ID, lead.Phone, lead.FirstName, lead.LastName, lead.Email, lead.Audience,
		lead.Phase, lead.City, lead.Notes, lead.Status, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByPhone returns the lead for the given phone number.
func (r *LeadRepository) GetByPhone(phone string) (*models.Lead, error) {
	lead := &models.Lead{}
	err := r.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE phone = ?`, phone).Scan(
		&lead.ID, &lead.Phone, &lead.FirstName, &lead.LastName, &lead.Email,
		&lead.Audience, &lead.Phase, &lead.City, &lead.Notes, &lead.Status,
		&lead.LastMessageSent, &lead.LastSentAt, &lead.LastAttemptedAt, &lead.ReplyReceived,
		&lead.LastReply, &lead.Temperature, &lead.LastError, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// List returns leads matching the filter, in store order.
func (r *LeadRepository) List(filter models.LeadFilter) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += " AND (first_name LIKE ? OR last_name LIKE ? OR phone LIKE ?)"
		s := "%" + filter.Search + "%"
		args = append(args, s, s, s)
	}

	query += " ORDER BY created_at, id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	return r.queryLeads(query, args...)
}

// ListPending returns up to limit pending leads that have not been attempted
// since the given cutoff (start of the campaign day), in store order.
func (r *LeadRepository) ListPending(limit int, since time.Time) ([]models.Lead, error) {
	return r.queryLeads(`
		SELECT `+leadColumns+` FROM leads
		WHERE status = ?
		  AND (last_attempted_at IS NULL OR last_attempted_at < ?)
		ORDER BY created_at, id
		LIMIT ?`,
		models.StatusPending, since, limit,
	)
}

// ListFollowUps returns up to limit sent leads without a reply whose last send
// is at least followUpAfter old, excluding leads already attempted since the
// cutoff.
func (r *LeadRepository) ListFollowUps(limit int, since time.Time, followUpAfter time.Duration) ([]models.Lead, error) {
	threshold := time.Now().Add(-followUpAfter)
	return r.queryLeads(`
		SELECT `+leadColumns+` FROM leads
		WHERE status = ?
		  AND reply_received = 0
		  AND last_sent_at IS NOT NULL
		  AND last_sent_at <= ?
		  AND last_attempted_at < ?
		ORDER BY last_sent_at, id
		LIMIT ?`,
		models.StatusSent, threshold, since, limit,
	)
}

// MarkSent records a successful outbound send.
func (r *LeadRepository) MarkSent(phone, message string, at time.Time) error {
	return r.update(`
		UPDATE leads SET status = ?, last_message_sent = ?, last_sent_at = ?,
			last_attempted_at = ?, last_error = '', updated_at = ?
		WHERE phone = ?`,
		models.StatusSent, message, at, at, at, phone,
	)
}

// MarkFailed records a failed send attempt. The attempt timestamp still
// counts toward the one-attempt-per-day rule.
func (r *LeadRepository) MarkFailed(phone, errMsg string, at time.Time) error {
	return r.update(`
		UPDATE leads SET status = ?, last_error = ?, last_attempted_at = ?, updated_at = ?
		WHERE phone = ?`,
		models.StatusFailed, errMsg, at, at, phone,
	)
}

// RecordReply stores an inbound reply and its temperature classification.
// Only the most recent reply and label are kept.
func (r *LeadRepository) RecordReply(phone, reply, temperature string, at time.Time) error {
	return r.update(`
		UPDATE leads SET status = ?, reply_received = 1, last_reply = ?,
			temperature = ?, updated_at = ?
		WHERE phone = ?`,
		models.StatusReplied, reply, temperature, at, phone,
	)
}

// MarkOptedOut unsubscribes a lead from all future sends.
func (r *LeadRepository) MarkOptedOut(phone string, at time.Time) error {
	return r.update(`
		UPDATE leads SET status = ?, updated_at = ?
		WHERE phone = ?`,
		models.StatusOptedOut, at, phone,
	)
}

// CountByStatus returns lead counts grouped by status.
func (r *LeadRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM leads GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ImportCSV imports leads from CSV data. Expected header:
// phone,first_name,last_name,email,audience,phase,city,notes
// (only phone is required). Duplicate phones are skipped.
func (r *LeadRepository) ImportCSV(reader io.Reader) (*models.LeadImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["phone"]; !ok {
		return nil, fmt.Errorf("CSV must have a 'phone' column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := &models.LeadImportResult{}
	line := 1

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		result.Total++

		phone := field(record, "phone")
		if phone == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing phone", line))
			continue
		}

		phase := 1
		if p := field(record, "phase"); p != "" {
			if n, err := strconv.Atoi(p); err == nil && n >= 1 && n <= 3 {
				phase = n
			}
		}

		lead := &models.Lead{
			Phone:     phone,
			FirstName: field(record, "first_name"),
			LastName:  field(record, "last_name"),
			Email:     field(record, "email"),
			Audience:  field(record, "audience"),
			Phase:     phase,
			City:      field(record, "city"),
			Notes:     field(record, "notes"),
		}
		if lead.Audience == "" {
			lead.Audience = models.AudienceBuyer
		}

		inserted, err := r.Create(lead)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if inserted {
			result.Imported++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

func (r *LeadRepository) queryLeads(query string, args ...any) ([]models.Lead, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		var lead models.Lead
		err := rows.Scan(
			&lead.ID, &lead.Phone, &lead.FirstName, &lead.LastName, &lead.Email,
			&lead.Audience, &lead.Phase, &lead.City, &lead.Notes, &lead.Status,
			&lead.LastMessageSent, &lead.LastSentAt, &lead.LastAttemptedAt, &lead.ReplyReceived,
			&lead.LastReply, &lead.Temperature, &lead.LastError, &lead.CreatedAt, &lead.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

func (r *LeadRepository) update(query string, args ...any) error {
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
