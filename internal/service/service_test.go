package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
)

func newTestStores(t *testing.T) (*monitor.AlertStore, *monitor.NotificationStore) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	ts := time.Date(2025, 4, 4, 10, 15, 0, 0, time.UTC)
	alerts, err := monitor.NewAlertStore(logger, []model.Alert{
		{ID: "1", Title: "Unusual Consumption Spike", Severity: model.AlertSeverityCritical, Status: model.AlertStatusActive, Timestamp: ts},
		{ID: "2", Title: "Grid Frequency Fluctuation", Severity: model.AlertSeverityWarning, Status: model.AlertStatusActive, Timestamp: ts},
		{ID: "3", Title: "Scheduled Maintenance", Severity: model.AlertSeverityInfo, Status: model.AlertStatusResolved, Timestamp: ts},
	})
	require.NoError(t, err)

	notes, err := monitor.NewNotificationStore(logger, []model.Notification{
		{ID: "1", Message: "New critical alert detected", Time: "10 min ago"},
		{ID: "2", Message: "Monthly report is ready", Time: "1 hour ago"},
	})
	require.NoError(t, err)

	return alerts, notes
}
