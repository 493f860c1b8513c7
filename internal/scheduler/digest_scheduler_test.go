package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
)

type fakeSink struct {
	mu       sync.Mutex
	failures map[model.NotificationChannel]int
	calls    map[model.NotificationChannel]int
	received []model.Digest
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		failures: make(map[model.NotificationChannel]int),
		calls:    make(map[model.NotificationChannel]int),
	}
}

func (f *fakeSink) PublishDigest(ctx context.Context, ch model.NotificationChannel, digest model.Digest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ch]++
	if f.failures[ch] > 0 {
		f.failures[ch]--
		return errors.New("channel unavailable")
	}
	f.received = append(f.received, digest)
	return nil
}

func (f *fakeSink) callCount(ch model.NotificationChannel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ch]
}

func alertFixture(id string, sev model.AlertSeverity, status model.AlertStatus) model.Alert {
	return model.Alert{
		ID:        id,
		Title:     "Alert " + id,
		Severity:  sev,
		Status:    status,
		Timestamp: time.Date(2025, 4, 4, 10, 15, 0, 0, time.UTC),
	}
}

func newTestScheduler(t *testing.T, sink DigestSink, alerts ...model.Alert) (*DigestScheduler, *monitor.NotificationStore, *monitor.PreferencesStore) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	alertStore, err := monitor.NewAlertStore(logger, alerts)
	require.NoError(t, err)
	notes, err := monitor.NewNotificationStore(logger, nil)
	require.NoError(t, err)
	prefs := monitor.NewPreferencesStore(logger, model.DefaultNotificationPreferences())

	s := NewDigestScheduler(alertStore, notes, prefs, sink, logger)
	s.SetRetry(&ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}, 3)
	return s, notes, prefs
}

func TestBuildDigest(t *testing.T) {
	alerts := []model.Alert{
		alertFixture("1", model.AlertSeverityCritical, model.AlertStatusActive),
		alertFixture("2", model.AlertSeverityWarning, model.AlertStatusActive),
		alertFixture("3", model.AlertSeverityWarning, model.AlertStatusActive),
		alertFixture("4", model.AlertSeverityWarning, model.AlertStatusAcknowledged),
		alertFixture("5", model.AlertSeverityInfo, model.AlertStatusActive),
	}

	digest, ok := BuildDigest(alerts, model.DefaultNotificationPreferences())
	require.True(t, ok)
	assert.Equal(t, "3 active alerts: 1 critical, 2 warning", digest.Message)
	assert.Equal(t, 3, digest.Total)
	assert.Equal(t, 0, digest.Counts[model.AlertSeverityInfo])

	digest, ok = BuildDigest(alerts[:1], model.DefaultNotificationPreferences())
	require.True(t, ok)
	assert.Equal(t, "1 active alert: 1 critical", digest.Message)

	_, ok = BuildDigest(alerts[3:], model.DefaultNotificationPreferences())
	assert.False(t, ok)

	_, ok = BuildDigest(nil, model.DefaultNotificationPreferences())
	assert.False(t, ok)
}

func TestDigestScheduler_RunOnce(t *testing.T) {
	sink := newFakeSink()
	s, notes, _ := newTestScheduler(t, sink,
		alertFixture("1", model.AlertSeverityCritical, model.AlertStatusActive),
		alertFixture("2", model.AlertSeverityWarning, model.AlertStatusActive),
	)

	digest, sent, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.True(t, sent)
	assert.Equal(t, []model.NotificationChannel{model.NotificationEmail, model.NotificationPush}, digest.Channels)

	list := notes.List()
	require.Len(t, list, 1)
	assert.Equal(t, digest.Message, list[0].Message)
	assert.False(t, list[0].Read)

	assert.Equal(t, 1, sink.callCount(model.NotificationEmail))
	assert.Equal(t, 0, sink.callCount(model.NotificationSMS))
	assert.Equal(t, 1, sink.callCount(model.NotificationPush))
}

func TestDigestScheduler_RespectsPreferences(t *testing.T) {
	sink := newFakeSink()
	s, notes, prefs := newTestScheduler(t, sink,
		alertFixture("1", model.AlertSeverityInfo, model.AlertStatusActive),
	)

	_, sent, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, notes.List())

	prefs.SetSeverity(model.AlertSeverityInfo, true)
	prefs.SetChannel(model.NotificationEmail, false)
	prefs.SetChannel(model.NotificationSMS, true)

	digest, sent, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.True(t, sent)
	assert.Equal(t, "1 active alert: 1 info", digest.Message)
	assert.Equal(t, 0, sink.callCount(model.NotificationEmail))
	assert.Equal(t, 1, sink.callCount(model.NotificationSMS))
}

func TestDigestScheduler_RetriesDelivery(t *testing.T) {
	sink := newFakeSink()
	sink.failures[model.NotificationEmail] = 2
	sink.failures[model.NotificationPush] = 5

	s, _, _ := newTestScheduler(t, sink,
		alertFixture("1", model.AlertSeverityCritical, model.AlertStatusActive),
	)

	_, sent, err := s.RunOnce(context.Background())
	assert.True(t, sent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxRetriesExceeded))
	assert.Contains(t, err.Error(), "channel push")

	assert.Equal(t, 3, sink.callCount(model.NotificationEmail))
	assert.Equal(t, 3, sink.callCount(model.NotificationPush))
}

func TestDigestScheduler_Schedules(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)

	_, err := s.AddSchedule("bad", "every hour")
	require.ErrorIs(t, err, ErrInvalidExpression)

	hourly, err := s.AddSchedule("hourly", DefaultDigestExpression)
	require.NoError(t, err)
	require.NotNil(t, hourly.NextRunTime)
	assert.Equal(t, 0, hourly.NextRunTime.Minute())
	assert.Equal(t, 0, hourly.NextRunTime.Second())

	_, err = s.AddSchedule("daily", "0 0 8 * * *")
	require.NoError(t, err)

	schedules := s.ListSchedules()
	require.Len(t, schedules, 2)
	assert.Equal(t, "hourly", schedules[0].Name)

	require.NoError(t, s.RemoveSchedule(hourly.ID))
	require.ErrorIs(t, s.RemoveSchedule(hourly.ID), ErrScheduleNotFound)
	assert.Len(t, s.ListSchedules(), 1)
}

func TestDigestScheduler_CronRun(t *testing.T) {
	sink := newFakeSink()
	s, notes, _ := newTestScheduler(t, sink,
		alertFixture("1", model.AlertSeverityWarning, model.AlertStatusActive),
	)

	schedule, err := s.AddSchedule("every-second", "* * * * * *")
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(notes.List()) > 0
	}, 3*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		for _, sc := range s.ListSchedules() {
			if sc.ID == schedule.ID && sc.LastRunTime != nil {
				return true
			}
		}
		return false
	}, time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, sink.callCount(model.NotificationEmail), 1)
}

func TestExponentialBackoff(t *testing.T) {
	b := &ExponentialBackoff{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, b.NextRetry(0))
	assert.Equal(t, 200*time.Millisecond, b.NextRetry(1))
	assert.Equal(t, 800*time.Millisecond, b.NextRetry(3))
	assert.Equal(t, time.Second, b.NextRetry(4))
}

func TestMultiSink(t *testing.T) {
	first, second := newFakeSink(), newFakeSink()
	second.failures[model.NotificationSMS] = 1

	sink := MultiSink(first, nil, second)

	require.NoError(t, sink.PublishDigest(context.Background(), model.NotificationEmail, model.Digest{}))
	require.Error(t, sink.PublishDigest(context.Background(), model.NotificationSMS, model.Digest{}))

	// A failing sink does not stop the others
	assert.Equal(t, 1, first.callCount(model.NotificationSMS))
	assert.Equal(t, 1, second.callCount(model.NotificationEmail))
}
