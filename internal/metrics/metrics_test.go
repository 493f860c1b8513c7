package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/energy-dashboard/internal/handler"
	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
)

func newStores(t *testing.T) (*monitor.AlertStore, *monitor.NotificationStore) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	ts := time.Date(2025, 4, 4, 10, 15, 0, 0, time.UTC)

	alerts, err := monitor.NewAlertStore(logger, []model.Alert{
		{ID: "1", Severity: model.AlertSeverityCritical, Status: model.AlertStatusActive, Timestamp: ts},
		{ID: "2", Severity: model.AlertSeverityWarning, Status: model.AlertStatusActive, Timestamp: ts},
		{ID: "3", Severity: model.AlertSeverityWarning, Status: model.AlertStatusResolved, Timestamp: ts},
	})
	require.NoError(t, err)

	notes, err := monitor.NewNotificationStore(logger, []model.Notification{
		{ID: "1", Message: "New critical alert detected"},
		{ID: "2", Message: "Monthly report is ready", Read: true},
	})
	require.NoError(t, err)
	return alerts, notes
}

func TestRecorder_TracksStores(t *testing.T) {
	alerts, notes := newStores(t)
	r := NewRecorder()
	detach := r.Attach(alerts, notes)
	defer detach()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.ActiveAlerts.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ActiveAlerts.WithLabelValues("warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.UnreadNotifications))

	require.NoError(t, alerts.Acknowledge("1"))
	require.NoError(t, alerts.Resolve("2"))
	notes.MarkAllRead()

	assert.Equal(t, 0.0, testutil.ToFloat64(r.ActiveAlerts.WithLabelValues("critical")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.ActiveAlerts.WithLabelValues("warning")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.AlertsByStatus.WithLabelValues("resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AlertTransitions.WithLabelValues("active", "acknowledged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AlertTransitions.WithLabelValues("active", "resolved")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.UnreadNotifications))

	_, err := alerts.Raise(model.Alert{Severity: model.AlertSeverityInfo})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AlertTransitions.WithLabelValues("new", "active")))
}

type stubSink struct {
	err error
}

func (s stubSink) PublishDigest(ctx context.Context, ch model.NotificationChannel, digest model.Digest) error {
	return s.err
}

func TestRecorder_InstrumentSink(t *testing.T) {
	r := NewRecorder()

	ok := r.InstrumentSink(stubSink{})
	require.NoError(t, ok.PublishDigest(context.Background(), model.NotificationEmail, model.Digest{}))

	failing := r.InstrumentSink(stubSink{err: errors.New("down")})
	require.Error(t, failing.PublishDigest(context.Background(), model.NotificationPush, model.Digest{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.DigestsDelivered.WithLabelValues("email")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.DigestsDelivered.WithLabelValues("push")))
}

type channelSink struct {
	stubSink
	configured map[model.NotificationChannel]bool
}

func (s channelSink) Configured(ch model.NotificationChannel) bool {
	return s.configured[ch]
}

func TestRecorder_InstrumentSinkSkipsUnconfiguredChannels(t *testing.T) {
	r := NewRecorder()
	sink := r.InstrumentSink(channelSink{
		configured: map[model.NotificationChannel]bool{model.NotificationEmail: true},
	})

	require.NoError(t, sink.PublishDigest(context.Background(), model.NotificationEmail, model.Digest{}))
	require.NoError(t, sink.PublishDigest(context.Background(), model.NotificationSMS, model.Digest{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.DigestsDelivered.WithLabelValues("email")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.DigestsDelivered.WithLabelValues("sms")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DigestsSkipped.WithLabelValues("sms")))
}

func TestRecorder_InstrumentSinkWithUnconfiguredNotifier(t *testing.T) {
	r := NewRecorder()
	sink := r.InstrumentSink(handler.NewNotificationHandler(zaptest.NewLogger(t), handler.NotificationConfig{}))

	for _, ch := range model.Channels {
		require.NoError(t, sink.PublishDigest(context.Background(), ch, model.Digest{Message: "1 active alert: 1 critical"}))
		assert.Equal(t, 0.0, testutil.ToFloat64(r.DigestsDelivered.WithLabelValues(string(ch))))
		assert.Equal(t, 1.0, testutil.ToFloat64(r.DigestsSkipped.WithLabelValues(string(ch))))
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveRequest(http.MethodGet, "/api/alerts", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `energy_dashboard_http_requests_total{code="200",method="GET",route="/api/alerts"} 1`)
}
