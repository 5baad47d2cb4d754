package campaign

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tilgo/leadline/internal/config"
)

func testScheduler(cfg config.CampaignConfig) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(cfg, nil, logger)
}

func TestNextRun(t *testing.T) {
	cfg := testCampaignConfig()
	cfg.SendTime = "10:00"
	s := testScheduler(cfg)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before send time fires today",
			now:  time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC),
			want: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "after send time fires tomorrow",
			now:  time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at send time fires tomorrow",
			now:  time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.nextRun(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("nextRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestWithinSendHours(t *testing.T) {
	cfg := testCampaignConfig()
	cfg.SendHourStart = 9
	cfg.SendHourEnd = 20
	s := testScheduler(cfg)

	tests := []struct {
		hour int
		want bool
	}{
		{8, false},
		{9, true},
		{12, true},
		{19, true},
		{20, false},
		{23, false},
	}

	for _, tt := range tests {
		now := time.Date(2026, 3, 10, tt.hour, 0, 0, 0, time.UTC)
		if got := s.withinSendHours(now); got != tt.want {
			t.Errorf("withinSendHours(hour=%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestSchedulerStopBeforeFire(t *testing.T) {
	cfg := testCampaignConfig()
	cfg.SendTime = "10:00"
	s := testScheduler(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Start(ctx)
	s.Stop()
}
