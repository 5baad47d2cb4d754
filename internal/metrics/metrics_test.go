package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}

	// Check that all metrics are registered
	if m.MessagesSentTotal == nil {
		t.Error("MessagesSentTotal is nil")
	}
	if m.SendFailuresTotal == nil {
		t.Error("SendFailuresTotal is nil")
	}
	if m.RepliesReceivedTotal == nil {
		t.Error("RepliesReceivedTotal is nil")
	}
	if m.ClassificationsTotal == nil {
		t.Error("ClassificationsTotal is nil")
	}
	if m.CampaignRunsTotal == nil {
		t.Error("CampaignRunsTotal is nil")
	}
	if m.APIRequestsTotal == nil {
		t.Error("APIRequestsTotal is nil")
	}
	if m.APIRequestDurationSeconds == nil {
		t.Error("APIRequestDurationSeconds is nil")
	}
}

func TestGlobalMetrics(t *testing.T) {
	// Initially global should be nil
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}

	// Cleanup
	SetGlobal(nil)
}

func TestIncMessagesSent(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncMessagesSent("initial")
	IncMessagesSent("initial")
	IncMessagesSent("follow_up")

	counter, err := m.MessagesSentTotal.GetMetricWithLabelValues("initial")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected counter value 2, got %f", metric.Counter.GetValue())
	}
}

func TestIncSendFailures(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncSendFailures("invalid_number")
	IncSendFailures("rate_limited")
	IncSendFailures("invalid_number")

	counter, err := m.SendFailuresTotal.GetMetricWithLabelValues("invalid_number")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected counter value 2, got %f", metric.Counter.GetValue())
	}
}

func TestIncClassifications(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncClassifications("hot")
	IncClassifications("warm")
	IncClassifications("warm")

	counter, err := m.ClassificationsTotal.GetMetricWithLabelValues("warm")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected classifications 2, got %f", metric.Counter.GetValue())
	}
}

func TestIncRepliesAndOptOuts(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncRepliesReceived()
	IncRepliesReceived()
	IncOptOuts()

	var replies dto.Metric
	if err := m.RepliesReceivedTotal.(prometheus.Counter).Write(&replies); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if replies.Counter.GetValue() != 2 {
		t.Errorf("Expected replies 2, got %f", replies.Counter.GetValue())
	}

	var optOuts dto.Metric
	if err := m.OptOutsTotal.(prometheus.Counter).Write(&optOuts); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if optOuts.Counter.GetValue() != 1 {
		t.Errorf("Expected opt-outs 1, got %f", optOuts.Counter.GetValue())
	}
}

func TestIncCampaignRuns(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncCampaignRuns("schedule")
	IncCampaignRuns("manual")
	IncCampaignRuns("schedule")

	counter, err := m.CampaignRunsTotal.GetMetricWithLabelValues("schedule")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected campaign runs 2, got %f", metric.Counter.GetValue())
	}
}

func TestIncRateLimitExceeded(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncRateLimitExceeded("global")
	IncRateLimitExceeded("recipient")
	IncRateLimitExceeded("global")

	counter, err := m.RateLimitExceededTotal.GetMetricWithLabelValues("global")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected rate limit exceeded 2, got %f", metric.Counter.GetValue())
	}
}

func TestGlobalNilSafe(t *testing.T) {
	SetGlobal(nil)

	// These should not panic when global is nil
	IncMessagesSent("initial")
	IncSendFailures("rate_limited")
	IncRepliesReceived()
	IncClassifications("hot")
	IncOptOuts()
	IncCampaignRuns("manual")
	IncRateLimitExceeded("global")
	IncAPIErrors("server_error")
}
