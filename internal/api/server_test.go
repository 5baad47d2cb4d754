package api

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tilgo/leadline/internal/campaign"
	"github.com/tilgo/leadline/internal/classifier"
	"github.com/tilgo/leadline/internal/config"
	"github.com/tilgo/leadline/internal/db"
	"github.com/tilgo/leadline/internal/message"
	"github.com/tilgo/leadline/internal/models"
	"github.com/tilgo/leadline/internal/repository"
)

type fakeClassifier struct {
	result *classifier.Result
	err    error
	gotCtx *classifier.Context
}

func (f *fakeClassifier) Classify(ctx context.Context, prompt *classifier.Context) (*classifier.Result, error) {
	f.gotCtx = prompt
	return f.result, f.err
}

type fakeRunner struct {
	mu      sync.Mutex
	running bool
	calls   int
	started chan struct{}
}

func (f *fakeRunner) Start(ctx context.Context, trigger string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return campaign.ErrRunInProgress
	}
	f.running = true
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	return nil
}

func (f *fakeRunner) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type serverEnv struct {
	server     *Server
	cfg        *config.Config
	leads      *repository.LeadRepository
	conv       *repository.ConversationRepository
	classifier *fakeClassifier
	runner     *fakeRunner
}

func setupServer(t *testing.T) *serverEnv {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { database.Close() })

	leads := repository.NewLeadRepository(database.DB)
	conv := repository.NewConversationRepository(database.DB)

	tokenHash, err := bcrypt.GenerateFromPassword([]byte("trigger-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.TriggerTokenHash = string(tokenHash)
	cfg.Twilio.AuthToken = "twilio-token"
	cfg.Campaign.Timezone = "UTC"
	cfg.Campaign.SendHourStart = 0
	cfg.Campaign.SendHourEnd = 24

	cls := &fakeClassifier{result: &classifier.Result{Reply: "Happy to help!", Temperature: models.TemperatureHot}}
	runner := &fakeRunner{}
	composer := message.NewComposer("Sarah", "the team", "Maple Realty")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(cfg, leads, conv, composer, cls, runner, "test", logger)

	return &serverEnv{
		server:     server,
		cfg:        cfg,
		leads:      leads,
		conv:       conv,
		classifier: cls,
		runner:     runner,
	}
}

func (e *serverEnv) createLead(t *testing.T, phone, firstName string) {
	t.Helper()
	created, err := e.leads.Create(&models.Lead{Phone: phone, FirstName: firstName})
	require.NoError(t, err)
	require.True(t, created)
}

func postForm(e *serverEnv, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}
