package metrics

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"
)

// LeadStatsProvider provides lead counts for the status gauges
type LeadStatsProvider interface {
	CountByStatus() (map[string]int, error)
}

// Collector periodically updates system and lead gauges
type Collector struct {
	metrics     *Metrics
	leadStats   LeadStatsProvider
	storagePath string
	interval    time.Duration
	startTime   time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(m *Metrics, leadStats LeadStatsProvider, storagePath string, interval time.Duration) *Collector {
	if interval == 0 {
		interval = 10 * time.Second
	}

	return &Collector{
		metrics:     m,
		leadStats:   leadStats,
		storagePath: storagePath,
		interval:    interval,
		startTime:   time.Now(),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the collector background task
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop stops the collector
func (c *Collector) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
}

func (c *Collector) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.storagePath != "" {
		if info, err := os.Stat(c.storagePath); err == nil {
			c.metrics.StorageUsedBytes.Set(float64(info.Size()))
		}
	}

	if c.leadStats != nil {
		counts, err := c.leadStats.CountByStatus()
		if err == nil {
			for status, n := range counts {
				c.metrics.LeadsByStatus.WithLabelValues(status).Set(float64(n))
			}
		}
	}
}
