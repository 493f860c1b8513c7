package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/energy-dashboard/internal/model"
)

func TestDefault(t *testing.T) {
	data := Default()
	require.Len(t, data.Alerts, 8)
	require.Len(t, data.Notifications, 3)

	unread := 0
	for _, n := range data.Notifications {
		if !n.Read {
			unread++
		}
	}
	assert.Equal(t, 2, unread)
	assert.Equal(t, model.AlertSeverityCritical, data.Alerts[0].Severity)
	assert.Equal(t, 2025, data.Alerts[0].Timestamp.Year())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
alerts:
  - id: a1
    title: Transformer overheating
    severity: critical
    location: Harbor
    timestamp: "2025-04-05T06:00:00"
  - id: a2
    title: Meter offline
    severity: info
    status: resolved
    timestamp: "2025-04-05T07:00:00Z"
notifications:
  - id: n1
    message: Harbor transformer overheating
    time: 5 min ago
`), 0o644))

	data, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, data.Alerts, 2)
	assert.Equal(t, model.AlertStatusActive, data.Alerts[0].Status)
	assert.Equal(t, model.AlertStatusResolved, data.Alerts[1].Status)
	require.Len(t, data.Notifications, 1)
	assert.False(t, data.Notifications[0].Read)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad yaml", "alerts: [\n"},
		{"unknown severity", "alerts:\n  - id: a\n    title: t\n    severity: severe\n    timestamp: \"2025-04-05T06:00:00\"\n"},
		{"unknown status", "alerts:\n  - id: a\n    title: t\n    severity: info\n    status: closed\n    timestamp: \"2025-04-05T06:00:00\"\n"},
		{"missing id", "notifications:\n  - message: hello\n"},
		{"bad timestamp", "alerts:\n  - id: a\n    title: t\n    severity: info\n    timestamp: yesterday\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
		})
	}
}
