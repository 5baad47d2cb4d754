package repository

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tilgo/leadline/internal/models"
)

func TestCreateAndGetByPhone(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	lead := &models.Lead{
		Phone:     "+15551234567",
		FirstName: "Jordan",
		LastName:  "Miller",
		Audience:  models.AudienceBuyer,
		City:      "Toronto",
	}

	inserted, err := repo.Create(lead)
	if err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	if !inserted {
		t.Fatal("expected lead to be inserted")
	}
	if lead.ID == "" {
		t.Error("expected lead ID to be assigned")
	}

	got, err := repo.GetByPhone("+15551234567")
	if err != nil {
		t.Fatalf("failed to get lead: %v", err)
	}
	if got.FirstName != "Jordan" {
		t.Errorf("expected first name Jordan, got %q", got.FirstName)
	}
	if got.Status != models.StatusPending {
		t.Errorf("expected status pending, got %q", got.Status)
	}
	if got.Phase != 1 {
		t.Errorf("expected default phase 1, got %d", got.Phase)
	}
}

func TestCreateDuplicatePhoneSkipped(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	if _, err := repo.Create(&models.Lead{Phone: "+15551234567", FirstName: "A"}); err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}

	inserted, err := repo.Create(&models.Lead{Phone: "+15551234567", FirstName: "B"})
	if err != nil {
		t.Fatalf("unexpected error on duplicate: %v", err)
	}
	if inserted {
		t.Error("expected duplicate phone to be skipped")
	}

	got, err := repo.GetByPhone("+15551234567")
	if err != nil {
		t.Fatalf("failed to get lead: %v", err)
	}
	if got.FirstName != "A" {
		t.Errorf("expected original lead preserved, got %q", got.FirstName)
	}
}

func TestGetByPhoneNotFound(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	_, err := repo.GetByPhone("+10000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	if err := repo.MarkSent("+10000000000", "hi", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkSent: expected ErrNotFound, got %v", err)
	}
	if err := repo.RecordReply("+10000000000", "hi", models.TemperatureWarm, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordReply: expected ErrNotFound, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	leads := []*models.Lead{
		{Phone: "+15550000001", FirstName: "Ann", LastName: "Archer"},
		{Phone: "+15550000002", FirstName: "Ben", LastName: "Brooks"},
		{Phone: "+15550000003", FirstName: "Cam", LastName: "Cole"},
	}
	for _, lead := range leads {
		if _, err := repo.Create(lead); err != nil {
			t.Fatalf("failed to create lead: %v", err)
		}
	}
	if err := repo.MarkSent("+15550000002", "hello", time.Now()); err != nil {
		t.Fatalf("failed to mark sent: %v", err)
	}

	all, err := repo.List(models.LeadFilter{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(all))
	}

	sent, err := repo.List(models.LeadFilter{Status: models.StatusSent})
	if err != nil {
		t.Fatalf("failed to list by status: %v", err)
	}
	if len(sent) != 1 || sent[0].Phone != "+15550000002" {
		t.Errorf("expected only the sent lead, got %+v", sent)
	}

	// Search matches first name, last name and phone
	byName, err := repo.List(models.LeadFilter{Search: "Cole"})
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(byName) != 1 || byName[0].FirstName != "Cam" {
		t.Errorf("expected Cam by last name, got %+v", byName)
	}

	byPhone, err := repo.List(models.LeadFilter{Search: "0000001"})
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(byPhone) != 1 || byPhone[0].FirstName != "Ann" {
		t.Errorf("expected Ann by phone fragment, got %+v", byPhone)
	}

	limited, err := repo.List(models.LeadFilter{Limit: 2})
	if err != nil {
		t.Fatalf("failed to list with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 leads with limit, got %d", len(limited))
	}
}

func TestListPendingExcludesAttemptedToday(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	for _, phone := range []string{"+15550000001", "+15550000002", "+15550000003"} {
		if _, err := repo.Create(&models.Lead{Phone: phone, FirstName: "Lead"}); err != nil {
			t.Fatalf("failed to create lead: %v", err)
		}
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)

	pending, err := repo.ListPending(10, startOfDay)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending leads, got %d", len(pending))
	}

	// A send today removes the lead from today's batch
	if err := repo.MarkSent("+15550000001", "hello", time.Now()); err != nil {
		t.Fatalf("failed to mark sent: %v", err)
	}

	// A failed attempt today also removes the lead from today's batch
	if err := repo.MarkFailed("+15550000002", "invalid number", time.Now()); err != nil {
		t.Fatalf("failed to mark failed: %v", err)
	}

	pending, err = repo.ListPending(10, startOfDay)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending lead, got %d", len(pending))
	}
	if pending[0].Phone != "+15550000003" {
		t.Errorf("expected +15550000003 pending, got %s", pending[0].Phone)
	}
}

func TestListPendingRespectsLimit(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	for _, phone := range []string{"+15550000001", "+15550000002", "+15550000003"} {
		if _, err := repo.Create(&models.Lead{Phone: phone}); err != nil {
			t.Fatalf("failed to create lead: %v", err)
		}
	}

	pending, err := repo.ListPending(2, time.Now().Truncate(24*time.Hour))
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(pending))
	}
}

func TestListFollowUps(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	for _, phone := range []string{"+15550000001", "+15550000002", "+15550000003"} {
		if _, err := repo.Create(&models.Lead{Phone: phone}); err != nil {
			t.Fatalf("failed to create lead: %v", err)
		}
	}

	fourDaysAgo := time.Now().Add(-4 * 24 * time.Hour)
	yesterday := time.Now().Add(-24 * time.Hour)

	// Sent four days ago, no reply: follow-up candidate
	if err := repo.MarkSent("+15550000001", "hello", fourDaysAgo); err != nil {
		t.Fatalf("failed to mark sent: %v", err)
	}
	// Sent yesterday: too recent
	if err := repo.MarkSent("+15550000002", "hello", yesterday); err != nil {
		t.Fatalf("failed to mark sent: %v", err)
	}
	// Sent four days ago but replied: no follow-up
	if err := repo.MarkSent("+15550000003", "hello", fourDaysAgo); err != nil {
		t.Fatalf("failed to mark sent: %v", err)
	}
	if err := repo.RecordReply("+15550000003", "sounds good", models.TemperatureHot, time.Now()); err != nil {
		t.Fatalf("failed to record reply: %v", err)
	}

	followUps, err := repo.ListFollowUps(10, time.Now().Truncate(24*time.Hour), 3*24*time.Hour)
	if err != nil {
		t.Fatalf("failed to list follow-ups: %v", err)
	}
	if len(followUps) != 1 {
		t.Fatalf("expected 1 follow-up, got %d", len(followUps))
	}
	if followUps[0].Phone != "+15550000001" {
		t.Errorf("expected +15550000001, got %s", followUps[0].Phone)
	}
}

func TestRecordReply(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	if _, err := repo.Create(&models.Lead{Phone: "+15551234567"}); err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	if err := repo.MarkSent("+15551234567", "hello", time.Now()); err != nil {
		t.Fatalf("failed to mark sent: %v", err)
	}

	if err := repo.RecordReply("+15551234567", "Not interested", models.TemperatureCold, time.Now()); err != nil {
		t.Fatalf("failed to record reply: %v", err)
	}

	got, err := repo.GetByPhone("+15551234567")
	if err != nil {
		t.Fatalf("failed to get lead: %v", err)
	}
	if got.Status != models.StatusReplied {
		t.Errorf("expected status replied, got %q", got.Status)
	}
	if !got.ReplyReceived {
		t.Error("expected reply_received to be set")
	}
	if got.LastReply != "Not interested" {
		t.Errorf("expected last reply recorded, got %q", got.LastReply)
	}
	if got.Temperature != models.TemperatureCold {
		t.Errorf("expected temperature cold, got %q", got.Temperature)
	}
}

func TestMarkOptedOut(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	if _, err := repo.Create(&models.Lead{Phone: "+15551234567"}); err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	if err := repo.MarkOptedOut("+15551234567", time.Now()); err != nil {
		t.Fatalf("failed to opt out: %v", err)
	}

	pending, err := repo.ListPending(10, time.Now().Truncate(24*time.Hour))
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected opted-out lead excluded from pending, got %d", len(pending))
	}
}

func TestImportCSV(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	csvData := `phone,first_name,last_name,email,audience,phase,city
+15551234567,Jordan,Miller,jordan@example.com,buyer,1,Toronto
+15557654321,Sam,Lee,,seller,2,Ottawa
+15551234567,Duplicate,Entry,,,,
,Missing,Phone,,,,
`

	result, err := repo.ImportCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}

	if result.Imported != 2 {
		t.Errorf("expected 2 imported, got %d", result.Imported)
	}
	if result.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", result.Skipped)
	}

	got, err := repo.GetByPhone("+15557654321")
	if err != nil {
		t.Fatalf("failed to get imported lead: %v", err)
	}
	if got.Phase != 2 {
		t.Errorf("expected phase 2, got %d", got.Phase)
	}
	if got.Audience != models.AudienceSeller {
		t.Errorf("expected seller audience, got %q", got.Audience)
	}
}

func TestCountByStatus(t *testing.T) {
	repo := NewLeadRepository(setupTestDB(t))

	if _, err := repo.Create(&models.Lead{Phone: "+15550000001"}); err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	if _, err := repo.Create(&models.Lead{Phone: "+15550000002"}); err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	if err := repo.MarkSent("+15550000002", "hi", time.Now()); err != nil {
		t.Fatalf("failed to mark sent: %v", err)
	}

	counts, err := repo.CountByStatus()
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if counts[models.StatusPending] != 1 || counts[models.StatusSent] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
