package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for Leadline
type Metrics struct {
	// Outbound message counters
	MessagesSentTotal *prometheus.CounterVec
	SendFailuresTotal *prometheus.CounterVec

	// Inbound counters
	RepliesReceivedTotal  prometheus.Counter
	ClassificationsTotal  *prometheus.CounterVec
	OptOutsTotal          prometheus.Counter

	// Campaign counters
	CampaignRunsTotal *prometheus.CounterVec

	// Lead gauges
	LeadsByStatus *prometheus.GaugeVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	StorageUsedBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_messages_sent_total",
				Help: "Total number of outbound messages accepted by the gateway",
			},
			[]string{"kind"}, // initial, follow_up, reply, opt_out
		),
		SendFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_send_failures_total",
				Help: "Total number of failed send attempts",
			},
			[]string{"reason"},
		),

		RepliesReceivedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadline_replies_received_total",
				Help: "Total number of inbound replies processed",
			},
		),
		ClassificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_classifications_total",
				Help: "Total number of reply classifications by temperature",
			},
			[]string{"temperature"},
		),
		OptOutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadline_opt_outs_total",
				Help: "Total number of opt-out requests honored",
			},
		),

		CampaignRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_campaign_runs_total",
				Help: "Total number of campaign runs by trigger source",
			},
			[]string{"trigger"},
		),

		LeadsByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "leadline_leads",
				Help: "Number of leads by status",
			},
			[]string{"status"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadline_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		RateLimitExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadline_ratelimit_exceeded_total",
				Help: "Total number of rate limit exceeded events",
			},
			[]string{"level"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadline_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadline_goroutines",
				Help: "Number of active goroutines",
			},
		),
		StorageUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadline_storage_used_bytes",
				Help: "SQLite database file size in bytes",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.MessagesSentTotal,
		m.SendFailuresTotal,
		m.RepliesReceivedTotal,
		m.ClassificationsTotal,
		m.OptOutsTotal,
		m.CampaignRunsTotal,
		m.LeadsByStatus,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.RateLimitExceededTotal,
		m.UptimeSeconds,
		m.Goroutines,
		m.StorageUsedBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncMessagesSent increments the sent message counter
func IncMessagesSent(kind string) {
	m := Global()
	if m != nil {
		m.MessagesSentTotal.WithLabelValues(kind).Inc()
	}
}

// IncSendFailures increments the failed send counter
func IncSendFailures(reason string) {
	m := Global()
	if m != nil {
		m.SendFailuresTotal.WithLabelValues(reason).Inc()
	}
}

// IncRepliesReceived increments the inbound reply counter
func IncRepliesReceived() {
	m := Global()
	if m != nil {
		m.RepliesReceivedTotal.Inc()
	}
}

// IncClassifications increments the classification counter
func IncClassifications(temperature string) {
	m := Global()
	if m != nil {
		m.ClassificationsTotal.WithLabelValues(temperature).Inc()
	}
}

// IncOptOuts increments the opt-out counter
func IncOptOuts() {
	m := Global()
	if m != nil {
		m.OptOutsTotal.Inc()
	}
}

// IncCampaignRuns increments the campaign run counter
func IncCampaignRuns(trigger string) {
	m := Global()
	if m != nil {
		m.CampaignRunsTotal.WithLabelValues(trigger).Inc()
	}
}

// IncRateLimitExceeded increments rate limit exceeded counter
func IncRateLimitExceeded(level string) {
	m := Global()
	if m != nil {
		m.RateLimitExceededTotal.WithLabelValues(level).Inc()
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
