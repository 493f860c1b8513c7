package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
)

func newTestHistory(t *testing.T) *SQLiteAlertHistory {
	t.Helper()
	history, err := NewSQLiteAlertHistory(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })
	return history
}

func TestSQLiteAlertHistory_StoreAndList(t *testing.T) {
	history := newTestHistory(t)
	ctx := context.Background()
	created := time.Date(2025, 4, 4, 10, 0, 0, 0, time.UTC)

	require.NoError(t, history.Store(ctx, &Transition{
		AlertID:        "1",
		Severity:       model.AlertSeverityCritical,
		From:           model.AlertStatusActive,
		To:             model.AlertStatusAcknowledged,
		AlertCreatedAt: created,
		TransitionedAt: created.Add(30 * time.Minute),
	}))
	require.NoError(t, history.Store(ctx, &Transition{
		AlertID:        "1",
		Severity:       model.AlertSeverityCritical,
		From:           model.AlertStatusAcknowledged,
		To:             model.AlertStatusResolved,
		AlertCreatedAt: created,
		TransitionedAt: created.Add(2 * time.Hour),
	}))
	require.NoError(t, history.Store(ctx, &Transition{
		AlertID:        "9",
		Severity:       model.AlertSeverityInfo,
		To:             model.AlertStatusActive,
		AlertCreatedAt: created,
		TransitionedAt: created,
	}))

	count, err := history.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	byAlert, err := history.ListByAlert(ctx, "1")
	require.NoError(t, err)
	require.Len(t, byAlert, 2)
	assert.Equal(t, model.AlertStatusAcknowledged, byAlert[0].To)
	assert.Equal(t, model.AlertStatusResolved, byAlert[1].To)
	assert.Equal(t, model.AlertSeverityCritical, byAlert[1].Severity)

	page, err := history.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, model.AlertStatusResolved, page[0].To)

	raised, err := history.ListByAlert(ctx, "9")
	require.NoError(t, err)
	require.Len(t, raised, 1)
	assert.Equal(t, model.AlertStatus(""), raised[0].From)
}

func TestSQLiteAlertHistory_AverageResolutionTime(t *testing.T) {
	history := newTestHistory(t)
	ctx := context.Background()

	avg, n, err := history.AverageResolutionTime(ctx)
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, n)

	created := time.Date(2025, 4, 3, 8, 0, 0, 0, time.UTC)
	for i, d := range []time.Duration{2 * time.Hour, 4 * time.Hour} {
		require.NoError(t, history.Store(ctx, &Transition{
			AlertID:        string(rune('a' + i)),
			Severity:       model.AlertSeverityWarning,
			From:           model.AlertStatusActive,
			To:             model.AlertStatusResolved,
			AlertCreatedAt: created,
			TransitionedAt: created.Add(d),
		}))
	}

	avg, n, err = history.AverageResolutionTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3*time.Hour, avg)
}

func TestSQLiteAlertHistory_DeleteBefore(t *testing.T) {
	history := newTestHistory(t)
	ctx := context.Background()
	now := time.Now()

	for i, at := range []time.Time{now.AddDate(0, 0, -40), now} {
		require.NoError(t, history.Store(ctx, &Transition{
			AlertID:        string(rune('a' + i)),
			Severity:       model.AlertSeverityInfo,
			To:             model.AlertStatusResolved,
			AlertCreatedAt: at,
			TransitionedAt: at,
		}))
	}

	deleted, err := history.DeleteBefore(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := history.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHistoryRecorder(t *testing.T) {
	history := newTestHistory(t)
	logger := zaptest.NewLogger(t)

	store, err := monitor.NewAlertStore(logger, []model.Alert{{
		ID:        "1",
		Severity:  model.AlertSeverityCritical,
		Status:    model.AlertStatusActive,
		Timestamp: time.Date(2025, 4, 4, 10, 15, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	recorder := NewHistoryRecorder(history, logger)
	recorder.Start(context.Background())
	detach := recorder.Attach(store)

	require.NoError(t, store.Acknowledge("1"))
	require.NoError(t, store.Resolve("1"))
	require.Error(t, store.Resolve("1"))

	detach()
	recorder.Stop()

	transitions, err := history.ListByAlert(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, transitions, 2)
	assert.Equal(t, model.AlertStatusActive, transitions[0].From)
	assert.Equal(t, model.AlertStatusAcknowledged, transitions[0].To)
	assert.Equal(t, model.AlertStatusResolved, transitions[1].To)
}
