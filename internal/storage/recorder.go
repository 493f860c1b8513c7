package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/monitor"
)

// HistoryRecorder writes every alert store change to the history storage.
// Writes happen on a background goroutine in commit order so the store lock
// is never held across database I/O.
type HistoryRecorder struct {
	logger  *zap.Logger
	history AlertHistoryStorage

	mu      sync.Mutex
	pending []*Transition
	closed  bool
	started bool
	dropped int

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewHistoryRecorder creates a recorder for history
func NewHistoryRecorder(history AlertHistoryStorage, logger *zap.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		logger:  logger.Named("history-recorder"),
		history: history,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Attach subscribes the recorder to store and returns the unsubscribe function
func (r *HistoryRecorder) Attach(store *monitor.AlertStore) func() {
	return store.Subscribe(r.observe)
}

// observe runs under the alert store lock and must never block
func (r *HistoryRecorder) observe(e monitor.AlertEvent) {
	t := &Transition{
		AlertID:        e.Alert.ID,
		Severity:       e.Alert.Severity,
		From:           e.From,
		To:             e.To,
		AlertCreatedAt: e.Alert.Timestamp,
		TransitionedAt: e.At,
	}

	r.mu.Lock()
	if r.closed {
		r.dropped++
		r.mu.Unlock()
		r.logger.Warn("Recorder stopped, transition not recorded",
			zap.String("alert_id", t.AlertID),
			zap.String("to", string(t.To)))
		return
	}
	r.pending = append(r.pending, t)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Dropped returns the number of transitions observed after the recorder stopped
func (r *HistoryRecorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Start runs the write loop until ctx is cancelled or Stop is called. Queued
// transitions are flushed before the loop exits.
func (r *HistoryRecorder) Start(ctx context.Context) {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		for {
			select {
			case <-ctx.Done():
				r.close()
				r.flush()
				return
			case <-r.stop:
				r.flush()
				return
			case <-r.wake:
				r.flush()
			}
		}
	}()
}

// Stop stops accepting transitions, flushes the queue and waits for the write loop
func (r *HistoryRecorder) Stop() {
	r.once.Do(func() {
		r.close()
		close(r.stop)
	})

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.done
	}
}

func (r *HistoryRecorder) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *HistoryRecorder) flush() {
	for {
		r.mu.Lock()
		batch := r.pending
		r.pending = nil
		r.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, t := range batch {
			r.write(t)
		}
	}
}

func (r *HistoryRecorder) write(t *Transition) {
	// Use a fresh context so a cancelled run context does not drop the final writes
	if err := r.history.Store(context.Background(), t); err != nil {
		r.logger.Error("Failed to record alert transition",
			zap.String("alert_id", t.AlertID),
			zap.String("to", string(t.To)),
			zap.Error(err))
		return
	}
	r.logger.Debug("Recorded alert transition",
		zap.String("alert_id", t.AlertID),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)))
}
