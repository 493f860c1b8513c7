package monitor

import (
	"sync"

	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
)

// PreferencesStore holds the operator's notification toggles
type PreferencesStore struct {
	logger *zap.Logger
	mu     sync.RWMutex
	prefs  model.NotificationPreferences
}

// NewPreferencesStore creates a store starting from initial
func NewPreferencesStore(logger *zap.Logger, initial model.NotificationPreferences) *PreferencesStore {
	return &PreferencesStore{
		logger: logger.Named("preferences"),
		prefs:  initial.Clone(),
	}
}

// Get returns a copy of the current preferences
func (p *PreferencesStore) Get() model.NotificationPreferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs.Clone()
}

// SetChannel toggles one delivery channel
func (p *PreferencesStore) SetChannel(ch model.NotificationChannel, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs.Channels[ch] = enabled
	p.logger.Info("Channel preference updated",
		zap.String("channel", string(ch)),
		zap.Bool("enabled", enabled))
}

// SetSeverity toggles notifications for one severity
func (p *PreferencesStore) SetSeverity(sev model.AlertSeverity, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs.Severities[sev] = enabled
	p.logger.Info("Severity preference updated",
		zap.String("severity", string(sev)),
		zap.Bool("enabled", enabled))
}

// Update applies fn to the preferences under the store lock and returns the
// result. Keys fn adds outside the known channels and severities are dropped.
func (p *PreferencesStore) Update(fn func(prefs *model.NotificationPreferences)) model.NotificationPreferences {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.prefs.Clone()
	fn(&next)
	p.prefs = next.Clone()

	p.logger.Info("Notification preferences updated")
	return p.prefs.Clone()
}
