package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/energy-dashboard/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "energy-dashboard", cfg.App.Name)
	assert.Equal(t, 15*time.Second, cfg.App.HostSampleInterval)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30*24*time.Hour, cfg.Storage.Retention)
	assert.Equal(t, "0 0 * * * *", cfg.Digest.Expression)
	assert.False(t, cfg.NATS.Enabled)

	prefs, err := cfg.NotificationPreferences()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultNotificationPreferences(), prefs)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
http:
  addr: ":9090"
nats:
  enabled: true
  summary_interval: 5s
digest:
  expression: "0 */15 * * * *"
preferences:
  channels:
    sms: true
  severities:
    info: true
delivery:
  email:
    host: smtp.example.com
    recipients: [ops@example.com]
  push:
    webhook_url: http://push.local/notify
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, 5*time.Second, cfg.NATS.SummaryInterval)

	prefs, err := cfg.NotificationPreferences()
	require.NoError(t, err)
	assert.True(t, prefs.ChannelEnabled(model.NotificationSMS))
	assert.True(t, prefs.ChannelEnabled(model.NotificationEmail))
	assert.True(t, prefs.SeverityEnabled(model.AlertSeverityInfo))

	assert.Equal(t, "smtp.example.com", cfg.Delivery.Email.Host)
	assert.Equal(t, 587, cfg.Delivery.Email.Port)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Delivery.Email.Recipients)
	assert.Equal(t, "http://push.local/notify", cfg.Delivery.Push.WebhookURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "http:\n  addr: \":9090\"\n")
	t.Setenv("ENERGY_HTTP_ADDR", ":7070")
	t.Setenv("ENERGY_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad cron", "digest:\n  expression: \"hourly please\"\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"empty addr", "http:\n  addr: \"\"\n"},
		{"bad channel", "preferences:\n  channels:\n    fax: true\n"},
		{"bad severity", "preferences:\n  severities:\n    severe: true\n"},
		{"zero cleanup", "storage:\n  cleanup_interval: 0s\n"},
		{"nats without interval", "nats:\n  enabled: true\n  summary_interval: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_DigestDisabledSkipsExpression(t *testing.T) {
	cfg, err := Load(writeConfig(t, "digest:\n  enabled: false\n  expression: \"nonsense\"\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Digest.Enabled)
}
