package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/energy-dashboard/internal/model"
)

func newTestAlertStore(t *testing.T, seed ...model.Alert) *AlertStore {
	t.Helper()
	store, err := NewAlertStore(zaptest.NewLogger(t), seed)
	require.NoError(t, err)
	return store
}

func testAlert(id string, sev model.AlertSeverity, status model.AlertStatus) model.Alert {
	return model.Alert{
		ID:        id,
		Title:     "Alert " + id,
		Severity:  sev,
		Status:    status,
		Location:  "Downtown",
		System:    "Commercial Buildings",
		Timestamp: time.Date(2025, 4, 4, 10, 15, 0, 0, time.UTC),
	}
}

func ids(alerts []model.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.ID)
	}
	return out
}

func TestAlertStore_AcknowledgeThenResolve(t *testing.T) {
	store := newTestAlertStore(t,
		testAlert("1", model.AlertSeverityCritical, model.AlertStatusActive),
		testAlert("2", model.AlertSeverityWarning, model.AlertStatusActive),
	)

	require.NoError(t, store.Acknowledge("1"))
	assert.Equal(t, []string{"2"}, ids(store.ListByStatus(model.AlertStatusActive)))
	assert.Equal(t, []string{"1"}, ids(store.ListByStatus(model.AlertStatusAcknowledged)))

	require.NoError(t, store.Resolve("1"))
	assert.Equal(t, []string{"1"}, ids(store.ListByStatus(model.AlertStatusResolved)))
	assert.Empty(t, store.ListByStatus(model.AlertStatusAcknowledged))
}

func TestAlertStore_ResolveFromActive(t *testing.T) {
	store := newTestAlertStore(t, testAlert("1", model.AlertSeverityWarning, model.AlertStatusActive))

	require.NoError(t, store.Resolve("1"))

	alert, err := store.Get("1")
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusResolved, alert.Status)
}

func TestAlertStore_ResolveTwice(t *testing.T) {
	store := newTestAlertStore(t, testAlert("1", model.AlertSeverityCritical, model.AlertStatusActive))

	require.NoError(t, store.Resolve("1"))
	before := store.Snapshot()

	err := store.Resolve("1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	after := store.Snapshot()
	assert.Equal(t, before, after)
	assert.Equal(t, model.AlertStatusResolved, after.Alerts[0].Status)
}

func TestAlertStore_UnknownID(t *testing.T) {
	store := newTestAlertStore(t,
		testAlert("1", model.AlertSeverityCritical, model.AlertStatusActive),
		testAlert("2", model.AlertSeverityInfo, model.AlertStatusAcknowledged),
	)
	before := store.Snapshot()

	err := store.Acknowledge("missing")
	require.ErrorIs(t, err, ErrAlertNotFound)

	err = store.Resolve("missing")
	require.ErrorIs(t, err, ErrAlertNotFound)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, before, store.Snapshot())
}

func TestAlertStore_StatusNeverMovesBackward(t *testing.T) {
	rank := map[model.AlertStatus]int{
		model.AlertStatusActive:       0,
		model.AlertStatusAcknowledged: 1,
		model.AlertStatusResolved:     2,
	}

	ops := []struct {
		name string
		fn   func(*AlertStore, string) error
	}{
		{"acknowledge", (*AlertStore).Acknowledge},
		{"resolve", (*AlertStore).Resolve},
	}

	// Every sequence of three operations over every starting status
	for _, start := range model.Statuses {
		for _, a := range ops {
			for _, b := range ops {
				for _, c := range ops {
					name := string(start) + "/" + a.name + "-" + b.name + "-" + c.name
					t.Run(name, func(t *testing.T) {
						store := newTestAlertStore(t, testAlert("x", model.AlertSeverityWarning, start))
						last := rank[start]
						for _, op := range []func(*AlertStore, string) error{a.fn, b.fn, c.fn} {
							_ = op(store, "x")
							alert, err := store.Get("x")
							require.NoError(t, err)
							require.GreaterOrEqual(t, rank[alert.Status], last)
							last = rank[alert.Status]
						}
					})
				}
			}
		}
	}
}

func TestAlertStore_TransitionTouchesOnlyTarget(t *testing.T) {
	store := newTestAlertStore(t,
		testAlert("1", model.AlertSeverityCritical, model.AlertStatusActive),
		testAlert("2", model.AlertSeverityWarning, model.AlertStatusActive),
	)
	before, err := store.Get("1")
	require.NoError(t, err)

	require.NoError(t, store.Acknowledge("1"))

	after, err := store.Get("1")
	require.NoError(t, err)
	before.Status = model.AlertStatusAcknowledged
	assert.Equal(t, before, after)

	other, err := store.Get("2")
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusActive, other.Status)
}

func TestAlertStore_CountBySeverityAndStatus(t *testing.T) {
	store := newTestAlertStore(t,
		testAlert("1", model.AlertSeverityCritical, model.AlertStatusActive),
		testAlert("2", model.AlertSeverityWarning, model.AlertStatusAcknowledged),
		testAlert("3", model.AlertSeverityWarning, model.AlertStatusActive),
		testAlert("4", model.AlertSeverityWarning, model.AlertStatusActive),
	)

	assert.Equal(t, 1, store.CountBySeverityAndStatus(model.AlertSeverityCritical, model.AlertStatusActive))
	assert.Equal(t, 2, store.CountBySeverityAndStatus(model.AlertSeverityWarning, model.AlertStatusActive))
	assert.Equal(t, 1, store.CountBySeverityAndStatus(model.AlertSeverityWarning, model.AlertStatusAcknowledged))
	assert.Equal(t, 0, store.CountBySeverityAndStatus(model.AlertSeverityInfo, model.AlertStatusResolved))
}

func TestAlertStore_ListByStatusKeepsInsertionOrder(t *testing.T) {
	early := testAlert("b", model.AlertSeverityInfo, model.AlertStatusActive)
	late := testAlert("a", model.AlertSeverityInfo, model.AlertStatusActive)
	late.Timestamp = early.Timestamp.Add(-time.Hour)

	store := newTestAlertStore(t, early, late)

	assert.Equal(t, []string{"b", "a"}, ids(store.ListByStatus(model.AlertStatusActive)))
}

func TestAlertStore_RejectsBadSeed(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewAlertStore(logger, []model.Alert{
		testAlert("1", model.AlertSeverityCritical, model.AlertStatusActive),
		testAlert("1", model.AlertSeverityWarning, model.AlertStatusActive),
	})
	require.ErrorIs(t, err, ErrDuplicateAlert)

	_, err = NewAlertStore(logger, []model.Alert{testAlert("1", "severe", model.AlertStatusActive)})
	require.Error(t, err)

	_, err = NewAlertStore(logger, []model.Alert{testAlert("1", model.AlertSeverityInfo, "closed")})
	require.Error(t, err)
}

func TestAlertStore_Raise(t *testing.T) {
	store := newTestAlertStore(t, testAlert("1", model.AlertSeverityCritical, model.AlertStatusResolved))

	raised, err := store.Raise(model.Alert{
		Title:    "Peak demand threshold reached",
		Severity: model.AlertSeverityCritical,
		Status:   model.AlertStatusResolved,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, raised.ID)
	assert.False(t, raised.Timestamp.IsZero())
	assert.Equal(t, model.AlertStatusActive, raised.Status)
	assert.Equal(t, []string{"1", raised.ID}, ids(store.List()))

	_, err = store.Raise(model.Alert{ID: "1", Severity: model.AlertSeverityInfo})
	require.ErrorIs(t, err, ErrDuplicateAlert)
}

func TestAlertStore_ObserversSeeEveryCommitInOrder(t *testing.T) {
	store := newTestAlertStore(t,
		testAlert("1", model.AlertSeverityCritical, model.AlertStatusActive),
		testAlert("2", model.AlertSeverityWarning, model.AlertStatusActive),
	)

	var events []AlertEvent
	unsubscribe := store.Subscribe(func(e AlertEvent) {
		events = append(events, e)
	})

	require.NoError(t, store.Acknowledge("1"))
	require.Error(t, store.Acknowledge("1"))
	require.NoError(t, store.Resolve("2"))
	require.NoError(t, store.Resolve("1"))

	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Version)
	}
	assert.Equal(t, model.AlertStatusActive, events[0].From)
	assert.Equal(t, model.AlertStatusAcknowledged, events[0].To)
	assert.Equal(t, "2", events[1].Alert.ID)
	assert.Equal(t, model.AlertStatusAcknowledged, events[2].From)
	assert.Equal(t, model.AlertStatusResolved, events[2].To)

	// The snapshot carried by an event reflects that commit only
	assert.Equal(t, model.AlertStatusActive, events[0].Snapshot[1].Status)
	assert.Equal(t, model.AlertStatusResolved, events[1].Snapshot[1].Status)

	unsubscribe()
	_, err := store.Raise(model.Alert{Severity: model.AlertSeverityInfo})
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, uint64(4), store.Snapshot().Version)
}
