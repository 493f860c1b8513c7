package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
)

const (
	eventStreamName = "DASHBOARD"

	alertSubjectPrefix   = "dashboard.alert."
	notificationSubject  = "dashboard.notification"
	digestSubjectPrefix  = "dashboard.digest."
	commandSubjectPrefix = "dashboard.command."
)

// EventSubjects are the subjects captured by the dashboard stream. Command
// subjects are request/reply and are not stored.
var EventSubjects = []string{
	alertSubjectPrefix + "*",
	notificationSubject,
	digestSubjectPrefix + "*",
	"dashboard.summary",
}

// AlertMessage is the payload published for an alert change
type AlertMessage struct {
	Version uint64            `json:"version"`
	From    model.AlertStatus `json:"from,omitempty"`
	To      model.AlertStatus `json:"to"`
	Alert   model.Alert       `json:"alert"`
	Summary monitor.Summary   `json:"summary"`
}

// NotificationMessage is the payload published for a notification change
type NotificationMessage struct {
	Version     uint64                        `json:"version"`
	Type        monitor.NotificationEventType `json:"type"`
	IDs         []string                      `json:"ids"`
	UnreadCount int                           `json:"unread_count"`
}

// EventPublisher forwards store changes to JetStream
type EventPublisher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(js nats.JetStreamContext, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		js:     js,
		logger: logger.Named("events"),
	}
}

// EnsureStream creates the dashboard stream if it does not exist yet
func (p *EventPublisher) EnsureStream() error {
	_, err := p.js.StreamInfo(eventStreamName)
	if err == nil {
		p.logger.Info("Using existing event stream", zap.String("name", eventStreamName))
		return nil
	}
	if err != nats.ErrStreamNotFound {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     eventStreamName,
		Subjects: EventSubjects,
		Storage:  nats.FileStorage,
		MaxAge:   streamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("Created event stream", zap.String("name", eventStreamName))
	return nil
}

// Attach subscribes the publisher to both stores and returns a function detaching it
func (p *EventPublisher) Attach(alerts *monitor.AlertStore, notifications *monitor.NotificationStore) func() {
	detachAlerts := alerts.Subscribe(p.PublishAlertEvent)
	detachNotes := notifications.Subscribe(p.PublishNotificationEvent)
	return func() {
		detachAlerts()
		detachNotes()
	}
}

// PublishAlertEvent publishes an alert change on dashboard.alert.<status>
func (p *EventPublisher) PublishAlertEvent(e monitor.AlertEvent) {
	msg := AlertMessage{
		Version: e.Version,
		From:    e.From,
		To:      e.To,
		Alert:   e.Alert,
		Summary: monitor.Summarize(e.Snapshot),
	}
	p.publish(alertSubjectPrefix+string(e.To), msg,
		zap.String("alert_id", e.Alert.ID),
		zap.Uint64("version", e.Version))
}

// PublishNotificationEvent publishes a notification change on dashboard.notification
func (p *EventPublisher) PublishNotificationEvent(e monitor.NotificationEvent) {
	msg := NotificationMessage{
		Version:     e.Version,
		Type:        e.Type,
		IDs:         e.IDs,
		UnreadCount: e.UnreadCount,
	}
	p.publish(notificationSubject, msg,
		zap.String("type", string(e.Type)),
		zap.Uint64("version", e.Version))
}

// PublishDigest implements scheduler.DigestSink
func (p *EventPublisher) PublishDigest(ctx context.Context, ch model.NotificationChannel, digest model.Digest) error {
	data, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("failed to marshal digest: %w", err)
	}
	if _, err := p.js.Publish(digestSubjectPrefix+string(ch), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish digest: %w", err)
	}
	return nil
}

func (p *EventPublisher) publish(subject string, v interface{}, fields ...zap.Field) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("Failed to marshal event", append(fields, zap.Error(err))...)
		return
	}

	// Observers run under the store lock, so events are queued rather than
	// waiting for the stream ack. Order on the connection is preserved.
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.logger.Error("Failed to publish event",
			append(fields, zap.String("subject", subject), zap.Error(err))...)
		return
	}

	p.logger.Debug("Event published", append(fields, zap.String("subject", subject))...)
}
