package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
)

// AlertEvent describes one committed change to the alert collection
type AlertEvent struct {
	Version uint64 `json:"version"`
	// From is empty when the alert was raised rather than transitioned
	From  model.AlertStatus `json:"from,omitempty"`
	To    model.AlertStatus `json:"to"`
	Alert model.Alert       `json:"alert"`
	// Snapshot is the full collection as of Version
	Snapshot []model.Alert `json:"-"`
	At       time.Time     `json:"at"`
}

// AlertSnapshot is an immutable copy of the collection at a version
type AlertSnapshot struct {
	Version uint64        `json:"version"`
	Alerts  []model.Alert `json:"alerts"`
}

type alertObserver struct {
	id uint64
	fn func(AlertEvent)
}

// AlertStore owns the alert collection and enforces the alert lifecycle.
//
// Observers run synchronously in commit order while the store lock is held.
// They receive a snapshot with every event and must not call back into the store.
type AlertStore struct {
	logger    *zap.Logger
	mu        sync.Mutex
	alerts    []model.Alert
	index     map[string]int
	version   uint64
	observers []alertObserver
	nextObsID uint64
	now       func() time.Time
}

// NewAlertStore creates a store seeded with alerts in the given order
func NewAlertStore(logger *zap.Logger, seed []model.Alert) (*AlertStore, error) {
	s := &AlertStore{
		logger: logger.Named("alert-store"),
		alerts: make([]model.Alert, 0, len(seed)),
		index:  make(map[string]int, len(seed)),
		now:    time.Now,
	}

	for _, alert := range seed {
		if err := validateAlert(alert); err != nil {
			return nil, err
		}
		if _, ok := s.index[alert.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAlert, alert.ID)
		}
		s.index[alert.ID] = len(s.alerts)
		s.alerts = append(s.alerts, alert)
	}

	s.logger.Info("Alert store seeded", zap.Int("alerts", len(s.alerts)))
	return s, nil
}

func validateAlert(alert model.Alert) error {
	if alert.ID == "" {
		return fmt.Errorf("alert id is required")
	}
	if !alert.Severity.IsValid() {
		return fmt.Errorf("alert %s: unknown severity %q", alert.ID, alert.Severity)
	}
	if !alert.Status.IsValid() {
		return fmt.Errorf("alert %s: unknown status %q", alert.ID, alert.Status)
	}
	return nil
}

// Acknowledge moves an active alert to acknowledged
func (s *AlertStore) Acknowledge(id string) error {
	return s.transition(id, model.AlertStatusAcknowledged)
}

// Resolve moves an active or acknowledged alert to resolved
func (s *AlertStore) Resolve(id string) error {
	return s.transition(id, model.AlertStatusResolved)
}

func (s *AlertStore) transition(id string, to model.AlertStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		s.logger.Debug("Transition on unknown alert",
			zap.String("alert_id", id),
			zap.String("to", string(to)))
		return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}

	from := s.alerts[i].Status
	if !from.CanTransitionTo(to) {
		s.logger.Debug("Rejected alert transition",
			zap.String("alert_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, id, from, to)
	}

	s.alerts[i].Status = to
	s.version++

	s.logger.Info("Alert "+string(to),
		zap.String("alert_id", id),
		zap.String("severity", string(s.alerts[i].Severity)),
		zap.String("from", string(from)),
		zap.Uint64("version", s.version))

	s.emit(from, s.alerts[i])
	return nil
}

// Raise appends a new active alert. Missing IDs and timestamps are filled in.
func (s *AlertStore) Raise(alert model.Alert) (model.Alert, error) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = s.now()
	}
	alert.Status = model.AlertStatusActive
	if err := validateAlert(alert); err != nil {
		return model.Alert{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[alert.ID]; ok {
		return model.Alert{}, fmt.Errorf("%w: %s", ErrDuplicateAlert, alert.ID)
	}

	s.index[alert.ID] = len(s.alerts)
	s.alerts = append(s.alerts, alert)
	s.version++

	s.logger.Info("Alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("severity", string(alert.Severity)),
		zap.String("location", alert.Location))

	s.emit("", alert)
	return alert, nil
}

// Get returns a copy of the alert with the given ID
func (s *AlertStore) Get(id string) (model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return model.Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return s.alerts[i], nil
}

// List returns every alert in insertion order
func (s *AlertStore) List() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// ListByStatus returns alerts with the given status in insertion order
func (s *AlertStore) ListByStatus(status model.AlertStatus) []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Alert, 0)
	for _, alert := range s.alerts {
		if alert.Status == status {
			out = append(out, alert)
		}
	}
	return out
}

// CountBySeverityAndStatus counts alerts matching both severity and status
func (s *AlertStore) CountBySeverityAndStatus(severity model.AlertSeverity, status model.AlertStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, alert := range s.alerts {
		if alert.Severity == severity && alert.Status == status {
			count++
		}
	}
	return count
}

// Len returns the size of the collection
func (s *AlertStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// Snapshot returns the latest committed state
func (s *AlertStore) Snapshot() AlertSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AlertSnapshot{Version: s.version, Alerts: s.copyLocked()}
}

// Subscribe registers fn for every future change and returns a function that removes it
func (s *AlertStore) Subscribe(fn func(AlertEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, alertObserver{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, obs := range s.observers {
			if obs.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *AlertStore) copyLocked() []model.Alert {
	out := make([]model.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// emit must be called with mu held
func (s *AlertStore) emit(from model.AlertStatus, alert model.Alert) {
	if len(s.observers) == 0 {
		return
	}
	event := AlertEvent{
		Version:  s.version,
		From:     from,
		To:       alert.Status,
		Alert:    alert,
		Snapshot: s.copyLocked(),
		At:       s.now(),
	}
	for _, obs := range s.observers {
		obs.fn(event)
	}
}
