package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
)

// NotificationEventType identifies what changed in the notification collection
type NotificationEventType string

const (
	NotificationAdded   NotificationEventType = "added"
	NotificationRead    NotificationEventType = "read"
	NotificationAllRead NotificationEventType = "all_read"
)

// NotificationEvent describes one committed change to the notification collection
type NotificationEvent struct {
	Version uint64                `json:"version"`
	Type    NotificationEventType `json:"type"`
	// IDs lists the notifications whose state changed
	IDs         []string             `json:"ids"`
	UnreadCount int                  `json:"unread_count"`
	Snapshot    []model.Notification `json:"-"`
	At          time.Time            `json:"at"`
}

// NotificationSnapshot is an immutable copy of the collection at a version
type NotificationSnapshot struct {
	Version       uint64               `json:"version"`
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
}

type notificationObserver struct {
	id uint64
	fn func(NotificationEvent)
}

// NotificationStore owns the header notifications and their read state.
// Observers follow the same rules as AlertStore observers.
type NotificationStore struct {
	logger        *zap.Logger
	mu            sync.Mutex
	notifications []model.Notification
	index         map[string]int
	version       uint64
	observers     []notificationObserver
	nextObsID     uint64
	now           func() time.Time
}

// NewNotificationStore creates a store seeded with notifications in the given order
func NewNotificationStore(logger *zap.Logger, seed []model.Notification) (*NotificationStore, error) {
	s := &NotificationStore{
		logger:        logger.Named("notification-store"),
		notifications: make([]model.Notification, 0, len(seed)),
		index:         make(map[string]int, len(seed)),
		now:           time.Now,
	}

	for _, n := range seed {
		if n.ID == "" {
			return nil, fmt.Errorf("notification id is required")
		}
		if _, ok := s.index[n.ID]; ok {
			return nil, fmt.Errorf("duplicate notification: %s", n.ID)
		}
		s.index[n.ID] = len(s.notifications)
		s.notifications = append(s.notifications, n)
	}

	return s, nil
}

// MarkRead marks one notification as read. Already-read notifications are left untouched.
func (s *NotificationStore) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}
	if s.notifications[i].Read {
		return nil
	}

	s.notifications[i].Read = true
	s.version++

	s.logger.Debug("Notification read", zap.String("notification_id", id))
	s.emit(NotificationRead, []string{id})
	return nil
}

// MarkAllRead marks every notification as read
func (s *NotificationStore) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for i := range s.notifications {
		if !s.notifications[i].Read {
			s.notifications[i].Read = true
			changed = append(changed, s.notifications[i].ID)
		}
	}
	if len(changed) == 0 {
		return
	}

	s.version++
	s.logger.Debug("All notifications read", zap.Int("changed", len(changed)))
	s.emit(NotificationAllRead, changed)
}

// UnreadCount returns the number of unread notifications
func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked()
}

// Add appends a new unread notification
func (s *NotificationStore) Add(message, timeText string) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := model.Notification{
		ID:        uuid.New().String(),
		Message:   message,
		Time:      timeText,
		CreatedAt: s.now(),
	}
	s.index[n.ID] = len(s.notifications)
	s.notifications = append(s.notifications, n)
	s.version++

	s.logger.Info("Notification added",
		zap.String("notification_id", n.ID),
		zap.String("message", message))

	s.emit(NotificationAdded, []string{n.ID})
	return n
}

// List returns every notification in insertion order
func (s *NotificationStore) List() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Snapshot returns the latest committed state
func (s *NotificationStore) Snapshot() NotificationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NotificationSnapshot{
		Version:       s.version,
		Notifications: s.copyLocked(),
		UnreadCount:   s.unreadLocked(),
	}
}

// Subscribe registers fn for every future change and returns a function that removes it
func (s *NotificationStore) Subscribe(fn func(NotificationEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, notificationObserver{id: id, fn: fn})

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

func (s *NotificationStore) unreadLocked() int {
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

func (s *NotificationStore) copyLocked() []model.Notification {
	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// emit must be called with mu held
func (s *NotificationStore) emit(typ NotificationEventType, ids []string) {
	if len(s.observers) == 0 {
		return
	}
	event := NotificationEvent{
		Version:     s.version,
		Type:        typ,
		IDs:         ids,
		UnreadCount: s.unreadLocked(),
		Snapshot:    s.copyLocked(),
		At:          s.now(),
	}
	for _, obs := range s.observers {
		obs.fn(event)
	}
}
