package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
	"github.com/t77yq/energy-dashboard/internal/scheduler"
)

// Recorder exposes dashboard state as prometheus metrics on its own registry
type Recorder struct {
	registry *prometheus.Registry

	ActiveAlerts        *prometheus.GaugeVec
	AlertsByStatus      *prometheus.GaugeVec
	AlertTransitions    *prometheus.CounterVec
	UnreadNotifications prometheus.Gauge
	DigestsDelivered    *prometheus.CounterVec
	DigestsSkipped      *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// NewRecorder creates a recorder with Go and process collectors registered
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		ActiveAlerts: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "energy_dashboard_alerts_active",
				Help: "Number of active alerts",
			},
			[]string{"severity"},
		),

		AlertsByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "energy_dashboard_alerts",
				Help: "Number of alerts in each lifecycle status",
			},
			[]string{"status"},
		),

		AlertTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energy_dashboard_alert_transitions_total",
				Help: "Total number of committed alert status changes",
			},
			[]string{"from", "to"},
		),

		UnreadNotifications: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "energy_dashboard_notifications_unread",
				Help: "Number of unread notifications",
			},
		),

		DigestsDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energy_dashboard_digests_delivered_total",
				Help: "Total number of alert digests delivered",
			},
			[]string{"channel"},
		),

		DigestsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energy_dashboard_digests_skipped_total",
				Help: "Total number of alert digests not sent because the channel is not configured",
			},
			[]string{"channel"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energy_dashboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "code"},
		),

		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "energy_dashboard_http_request_duration_seconds",
				Help:    "Time taken to serve HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Handler serves the recorder's metrics in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Attach keeps the gauges in step with both stores and returns a function detaching it
func (r *Recorder) Attach(alerts *monitor.AlertStore, notifications *monitor.NotificationStore) func() {
	r.setAlerts(alerts.Snapshot().Alerts)
	r.UnreadNotifications.Set(float64(notifications.UnreadCount()))

	detachAlerts := alerts.Subscribe(r.ObserveAlertEvent)
	detachNotes := notifications.Subscribe(r.ObserveNotificationEvent)
	return func() {
		detachAlerts()
		detachNotes()
	}
}

// ObserveAlertEvent updates alert metrics from a committed change
func (r *Recorder) ObserveAlertEvent(e monitor.AlertEvent) {
	from := string(e.From)
	if from == "" {
		from = "new"
	}
	r.AlertTransitions.WithLabelValues(from, string(e.To)).Inc()
	r.setAlerts(e.Snapshot)
}

// ObserveNotificationEvent updates the unread gauge from a committed change
func (r *Recorder) ObserveNotificationEvent(e monitor.NotificationEvent) {
	r.UnreadNotifications.Set(float64(e.UnreadCount))
}

// ObserveDigest counts a delivered digest
func (r *Recorder) ObserveDigest(ch model.NotificationChannel) {
	r.DigestsDelivered.WithLabelValues(string(ch)).Inc()
}

// channelChecker is implemented by sinks that skip channels they have no settings for
type channelChecker interface {
	Configured(ch model.NotificationChannel) bool
}

type countingSink struct {
	next     scheduler.DigestSink
	recorder *Recorder
}

func (s *countingSink) PublishDigest(ctx context.Context, ch model.NotificationChannel, digest model.Digest) error {
	if c, ok := s.next.(channelChecker); ok && !c.Configured(ch) {
		s.recorder.DigestsSkipped.WithLabelValues(string(ch)).Inc()
		return s.next.PublishDigest(ctx, ch, digest)
	}
	if err := s.next.PublishDigest(ctx, ch, digest); err != nil {
		return err
	}
	s.recorder.ObserveDigest(ch)
	return nil
}

// InstrumentSink wraps a digest sink so successful deliveries are counted.
// Channels the sink reports as unconfigured are counted as skipped instead.
func (r *Recorder) InstrumentSink(sink scheduler.DigestSink) scheduler.DigestSink {
	return &countingSink{next: sink, recorder: r}
}

// ObserveRequest records one served HTTP request
func (r *Recorder) ObserveRequest(method, route string, code int, duration time.Duration) {
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (r *Recorder) setAlerts(alerts []model.Alert) {
	summary := monitor.Summarize(alerts)
	for _, sev := range model.Severities {
		r.ActiveAlerts.WithLabelValues(string(sev)).Set(float64(summary.ActiveBySeverity[sev]))
	}
	for _, st := range model.Statuses {
		r.AlertsByStatus.WithLabelValues(string(st)).Set(float64(summary.ByStatus[st]))
	}
}
