package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const summarySubject = "dashboard.summary"

// DashboardMetrics is the periodic summary published for dashboard tiles
type DashboardMetrics struct {
	Timestamp     time.Time `json:"timestamp"`
	AlertVersion  uint64    `json:"alert_version"`
	Alerts        Summary   `json:"alerts"`
	UnreadCount   int       `json:"unread_count"`
	Notifications int       `json:"notifications"`
	// Host is set when a host sampler is attached
	Host *HostStats `json:"host,omitempty"`
}

// MetricsCollector periodically derives dashboard metrics from the stores and publishes them
type MetricsCollector struct {
	logger        *zap.Logger
	js            nats.JetStreamContext
	interval      time.Duration
	alerts        *AlertStore
	notifications *NotificationStore
	host          *HostSampler
	mu            sync.RWMutex
	latest        *DashboardMetrics
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewMetricsCollector creates a new metrics collector. js may be nil, in which case
// metrics are only kept in memory.
func NewMetricsCollector(js nats.JetStreamContext, interval time.Duration, alerts *AlertStore, notifications *NotificationStore, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		logger:        logger.Named("metrics-collector"),
		js:            js,
		interval:      interval,
		alerts:        alerts,
		notifications: notifications,
		stop:          make(chan struct{}),
	}
}

// SetHostSampler includes the latest host sample in every collection
func (c *MetricsCollector) SetHostSampler(h *HostSampler) {
	c.host = h
}

// Start starts the metrics collector
func (c *MetricsCollector) Start(ctx context.Context) error {
	if c.interval <= 0 {
		return fmt.Errorf("invalid collection interval: %s", c.interval)
	}
	c.logger.Info("Starting metrics collector", zap.Duration("interval", c.interval))

	// Publish once so consumers do not wait a full interval
	c.Collect()

	go c.collectLoop(ctx)
	return nil
}

// Stop stops the metrics collector
func (c *MetricsCollector) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("Stopping metrics collector")
		close(c.stop)
	})
}

func (c *MetricsCollector) collectLoop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Collect derives the current metrics, stores them and publishes them when a stream is available
func (c *MetricsCollector) Collect() DashboardMetrics {
	snap := c.alerts.Snapshot()
	notes := c.notifications.Snapshot()

	metrics := DashboardMetrics{
		Timestamp:     time.Now(),
		AlertVersion:  snap.Version,
		Alerts:        Summarize(snap.Alerts),
		UnreadCount:   notes.UnreadCount,
		Notifications: len(notes.Notifications),
	}
	if c.host != nil {
		host := c.host.Latest()
		metrics.Host = &host
	}

	c.mu.Lock()
	c.latest = &metrics
	c.mu.Unlock()

	if c.js != nil {
		data, err := json.Marshal(metrics)
		if err != nil {
			c.logger.Error("Failed to marshal metrics", zap.Error(err))
			return metrics
		}
		if _, err := c.js.Publish(summarySubject, data); err != nil {
			c.logger.Error("Failed to publish metrics", zap.Error(err))
			return metrics
		}
	}

	c.logger.Debug("Metrics collected",
		zap.Int("total_active", metrics.Alerts.TotalActive),
		zap.Int("unread", metrics.UnreadCount))

	return metrics
}

// Latest returns the most recently collected metrics, if any
func (c *MetricsCollector) Latest() (DashboardMetrics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return DashboardMetrics{}, false
	}
	return *c.latest, true
}
