package model

import "fmt"

// NotificationChannel defines a delivery channel for alert notifications
type NotificationChannel string

const (
	NotificationEmail NotificationChannel = "email"
	NotificationSMS   NotificationChannel = "sms"
	NotificationPush  NotificationChannel = "push"
)

// Channels lists every delivery channel
var Channels = []NotificationChannel{
	NotificationEmail,
	NotificationSMS,
	NotificationPush,
}

// ParseChannel converts a string into a known channel
func ParseChannel(s string) (NotificationChannel, error) {
	switch ch := NotificationChannel(s); ch {
	case NotificationEmail, NotificationSMS, NotificationPush:
		return ch, nil
	default:
		return "", fmt.Errorf("unknown notification channel: %q", s)
	}
}

// NotificationPreferences holds independent per-channel and per-severity toggles
type NotificationPreferences struct {
	Channels   map[NotificationChannel]bool `json:"channels"`
	Severities map[AlertSeverity]bool       `json:"severities"`
}

// DefaultNotificationPreferences returns the preferences a new operator starts with
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		Channels: map[NotificationChannel]bool{
			NotificationEmail: true,
			NotificationSMS:   false,
			NotificationPush:  true,
		},
		Severities: map[AlertSeverity]bool{
			AlertSeverityCritical: true,
			AlertSeverityWarning:  true,
			AlertSeverityInfo:     false,
		},
	}
}

// Clone returns a deep copy with every known key present
func (p NotificationPreferences) Clone() NotificationPreferences {
	out := NotificationPreferences{
		Channels:   make(map[NotificationChannel]bool, len(Channels)),
		Severities: make(map[AlertSeverity]bool, len(Severities)),
	}
	for _, ch := range Channels {
		out.Channels[ch] = p.Channels[ch]
	}
	for _, sev := range Severities {
		out.Severities[sev] = p.Severities[sev]
	}
	return out
}

// ChannelEnabled reports whether delivery over ch is enabled
func (p NotificationPreferences) ChannelEnabled(ch NotificationChannel) bool {
	return p.Channels[ch]
}

// SeverityEnabled reports whether alerts of sev should be notified
func (p NotificationPreferences) SeverityEnabled(sev AlertSeverity) bool {
	return p.Severities[sev]
}

// EnabledChannels returns the enabled channels in a stable order
func (p NotificationPreferences) EnabledChannels() []NotificationChannel {
	var out []NotificationChannel
	for _, ch := range Channels {
		if p.Channels[ch] {
			out = append(out, ch)
		}
	}
	return out
}
