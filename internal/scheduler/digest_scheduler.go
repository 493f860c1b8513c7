package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
)

var specParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseExpression validates a six-field cron expression
func ParseExpression(expr string) (cron.Schedule, error) {
	spec, err := specParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return spec, nil
}

// DigestSink delivers a digest over one notification channel
type DigestSink interface {
	PublishDigest(ctx context.Context, ch model.NotificationChannel, digest model.Digest) error
}

// DigestScheduler periodically summarizes active alerts and delivers the
// summary over every enabled notification channel
type DigestScheduler struct {
	logger        *zap.Logger
	cron          *cron.Cron
	alerts        *monitor.AlertStore
	notifications *monitor.NotificationStore
	preferences   *monitor.PreferencesStore
	sink          DigestSink
	strategy      RetryStrategy
	maxAttempts   int

	mu        sync.Mutex
	schedules map[string]*model.DigestSchedule
	entryIDs  map[string]cron.EntryID
	now       func() time.Time
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// NewDigestScheduler creates a new scheduler. sink may be nil, in which case
// digests are only added to the notification list.
func NewDigestScheduler(
	alerts *monitor.AlertStore,
	notifications *monitor.NotificationStore,
	preferences *monitor.PreferencesStore,
	sink DigestSink,
	logger *zap.Logger,
) *DigestScheduler {
	logger = logger.Named("digest-scheduler")
	cronLogger := &cronLogger{logger: logger.Named("cron")}
	cronOptions := []cron.Option{
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger)),
		cron.WithLogger(cronLogger),
	}

	return &DigestScheduler{
		logger:        logger,
		cron:          cron.New(cronOptions...),
		alerts:        alerts,
		notifications: notifications,
		preferences:   preferences,
		sink:          sink,
		strategy:      DefaultBackoff(),
		maxAttempts:   defaultMaxAttempts,
		schedules:     make(map[string]*model.DigestSchedule),
		entryIDs:      make(map[string]cron.EntryID),
		now:           time.Now,
	}
}

// SetRetry overrides the delivery retry policy
func (s *DigestScheduler) SetRetry(strategy RetryStrategy, maxAttempts int) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	s.strategy = strategy
	s.maxAttempts = maxAttempts
}

// Start starts the scheduler
func (s *DigestScheduler) Start() {
	s.cron.Start()
	s.logger.Info("Digest scheduler started")
}

// Stop stops the scheduler and waits for running digests to finish
func (s *DigestScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Digest scheduler stopped")
}

// AddSchedule registers a recurring digest
func (s *DigestScheduler) AddSchedule(name, expression string) (*model.DigestSchedule, error) {
	spec, err := ParseExpression(expression)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := spec.Next(now)
	schedule := &model.DigestSchedule{
		ID:          uuid.New().String(),
		Name:        name,
		Expression:  expression,
		NextRunTime: &next,
		CreatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entryID := s.cron.Schedule(spec, &digestJob{scheduler: s, scheduleID: schedule.ID, spec: spec})
	s.schedules[schedule.ID] = schedule
	s.entryIDs[schedule.ID] = entryID

	s.logger.Info("Added schedule",
		zap.String("id", schedule.ID),
		zap.String("name", schedule.Name),
		zap.String("expression", schedule.Expression),
		zap.Time("next_run", next))

	out := *schedule
	return &out, nil
}

// RemoveSchedule removes a schedule
func (s *DigestScheduler) RemoveSchedule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entryIDs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}

	s.cron.Remove(entryID)
	delete(s.entryIDs, id)
	delete(s.schedules, id)

	s.logger.Info("Removed schedule", zap.String("id", id))
	return nil
}

// ListSchedules lists all schedules ordered by creation time
func (s *DigestScheduler) ListSchedules() []model.DigestSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules := make([]model.DigestSchedule, 0, len(s.schedules))
	for _, schedule := range s.schedules {
		schedules = append(schedules, *schedule)
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].CreatedAt.Before(schedules[j].CreatedAt)
	})
	return schedules
}

// RunOnce builds and delivers a digest immediately. It reports false when no
// active alert has an enabled severity.
func (s *DigestScheduler) RunOnce(ctx context.Context) (model.Digest, bool, error) {
	prefs := s.preferences.Get()
	digest, ok := BuildDigest(s.alerts.List(), prefs)
	if !ok {
		s.logger.Debug("No active alerts to report")
		return model.Digest{}, false, nil
	}
	digest.GeneratedAt = s.now()
	digest.Channels = prefs.EnabledChannels()

	s.notifications.Add(digest.Message, digestNotificationTime)

	if s.sink == nil {
		return digest, true, nil
	}

	var errs []error
	for _, ch := range digest.Channels {
		err := retry(ctx, s.strategy, s.maxAttempts, s.logger, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
			defer cancel()
			return s.sink.PublishDigest(ctx, ch, digest)
		})
		if err != nil {
			s.logger.Error("Failed to deliver digest",
				zap.String("channel", string(ch)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("channel %s: %w", ch, err))
			continue
		}
		s.logger.Info("Digest delivered",
			zap.String("channel", string(ch)),
			zap.Int("alerts", digest.Total))
	}

	return digest, true, errors.Join(errs...)
}

// BuildDigest counts active alerts whose severity is enabled. The message
// lists non-zero severities in display order, e.g.
// "3 active alerts: 1 critical, 2 warning".
func BuildDigest(alerts []model.Alert, prefs model.NotificationPreferences) (model.Digest, bool) {
	counts := make(map[model.AlertSeverity]int)
	total := 0
	for _, a := range alerts {
		if a.Status != model.AlertStatusActive || !prefs.SeverityEnabled(a.Severity) {
			continue
		}
		counts[a.Severity]++
		total++
	}
	if total == 0 {
		return model.Digest{}, false
	}

	parts := make([]string, 0, len(model.Severities))
	for _, sev := range model.Severities {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}

	noun := "alerts"
	if total == 1 {
		noun = "alert"
	}

	return model.Digest{
		Message: fmt.Sprintf("%d active %s: %s", total, noun, strings.Join(parts, ", ")),
		Counts:  counts,
		Total:   total,
	}, true
}

// digestJob implements cron.Job
type digestJob struct {
	scheduler  *DigestScheduler
	scheduleID string
	spec       cron.Schedule
}

// Run implements cron.Job
func (j *digestJob) Run() {
	s := j.scheduler
	now := s.now()
	next := j.spec.Next(now)

	s.mu.Lock()
	if schedule, ok := s.schedules[j.scheduleID]; ok {
		schedule.LastRunTime = &now
		schedule.NextRunTime = &next
	}
	s.mu.Unlock()

	digest, sent, err := s.RunOnce(context.Background())
	if err != nil {
		s.logger.Error("Digest run failed",
			zap.String("id", j.scheduleID),
			zap.Error(err))
		return
	}

	s.logger.Info("Executed schedule",
		zap.String("id", j.scheduleID),
		zap.Bool("sent", sent),
		zap.Int("alerts", digest.Total),
		zap.Time("executed_at", now),
		zap.Time("next_run", next))
}
