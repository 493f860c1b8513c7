package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
)

// Transition is one recorded alert status change
type Transition struct {
	ID             string              `json:"id"`
	AlertID        string              `json:"alert_id"`
	Severity       model.AlertSeverity `json:"severity"`
	From           model.AlertStatus   `json:"from,omitempty"`
	To             model.AlertStatus   `json:"to"`
	AlertCreatedAt time.Time           `json:"alert_created_at"`
	TransitionedAt time.Time           `json:"transitioned_at"`
}

// AlertHistoryStorage defines the interface for alert transition history
type AlertHistoryStorage interface {
	// Store records a transition
	Store(ctx context.Context, t *Transition) error

	// ListByAlert returns the transitions of one alert, oldest first
	ListByAlert(ctx context.Context, alertID string) ([]*Transition, error)

	// List returns transitions newest first with pagination
	List(ctx context.Context, offset, limit int) ([]*Transition, error)

	// Count returns the total number of recorded transitions
	Count(ctx context.Context) (int, error)

	// AverageResolutionTime returns the mean time from alert creation to resolution
	AverageResolutionTime(ctx context.Context) (time.Duration, int, error)

	// DeleteBefore deletes transitions older than the specified time
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteAlertHistory implements AlertHistoryStorage using SQLite
type SQLiteAlertHistory struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteAlertHistory opens (or creates) the history database at dbPath
func NewSQLiteAlertHistory(logger *zap.Logger, dbPath string) (*SQLiteAlertHistory, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite3 allows a single writer
	db.SetMaxOpenConns(1)

	storage := &SQLiteAlertHistory{
		logger: logger.Named("alert-history"),
		db:     db,
	}

	if err := storage.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// initialize creates the necessary tables if they don't exist
func (s *SQLiteAlertHistory) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS alert_transitions (
			id TEXT PRIMARY KEY,
			alert_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			from_status TEXT,
			to_status TEXT NOT NULL,
			alert_created_at DATETIME NOT NULL,
			transitioned_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_alert_transitions_alert_id ON alert_transitions(alert_id);
		CREATE INDEX IF NOT EXISTS idx_alert_transitions_to_status ON alert_transitions(to_status);
		CREATE INDEX IF NOT EXISTS idx_alert_transitions_transitioned_at ON alert_transitions(transitioned_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// Store implements AlertHistoryStorage.Store
func (s *SQLiteAlertHistory) Store(ctx context.Context, t *Transition) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_transitions (
			id, alert_id, severity, from_status, to_status, alert_created_at, transitioned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.AlertID,
		t.Severity,
		sql.NullString{String: string(t.From), Valid: t.From != ""},
		t.To,
		t.AlertCreatedAt.UTC(),
		t.TransitionedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store transition: %w", err)
	}
	return nil
}

const selectTransitions = `
	SELECT id, alert_id, severity, from_status, to_status, alert_created_at, transitioned_at
	FROM alert_transitions`

// ListByAlert implements AlertHistoryStorage.ListByAlert
func (s *SQLiteAlertHistory) ListByAlert(ctx context.Context, alertID string) ([]*Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		selectTransitions+" WHERE alert_id = ? ORDER BY transitioned_at ASC, rowid ASC", alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()
	return scanTransitions(rows)
}

// List implements AlertHistoryStorage.List
func (s *SQLiteAlertHistory) List(ctx context.Context, offset, limit int) ([]*Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		selectTransitions+" ORDER BY transitioned_at DESC, rowid DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()
	return scanTransitions(rows)
}

func scanTransitions(rows *sql.Rows) ([]*Transition, error) {
	var transitions []*Transition
	for rows.Next() {
		t := &Transition{}
		var from sql.NullString

		err := rows.Scan(
			&t.ID,
			&t.AlertID,
			&t.Severity,
			&from,
			&t.To,
			&t.AlertCreatedAt,
			&t.TransitionedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		if from.Valid {
			t.From = model.AlertStatus(from.String)
		}
		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return transitions, nil
}

// Count implements AlertHistoryStorage.Count
func (s *SQLiteAlertHistory) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_transitions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transitions: %w", err)
	}
	return count, nil
}

// AverageResolutionTime implements AlertHistoryStorage.AverageResolutionTime.
// It also returns how many resolutions the average covers.
func (s *SQLiteAlertHistory) AverageResolutionTime(ctx context.Context) (time.Duration, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alert_created_at, transitioned_at
		FROM alert_transitions
		WHERE to_status = ?`, model.AlertStatusResolved)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var total time.Duration
	var n int
	for rows.Next() {
		var created, resolved time.Time
		if err := rows.Scan(&created, &resolved); err != nil {
			return 0, 0, fmt.Errorf("failed to scan resolution: %w", err)
		}
		total += resolved.Sub(created)
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("error during row iteration: %w", err)
	}

	if n == 0 {
		return 0, 0, nil
	}
	return total / time.Duration(n), n, nil
}

// DeleteBefore implements AlertHistoryStorage.DeleteBefore
func (s *SQLiteAlertHistory) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM alert_transitions WHERE transitioned_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete transitions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	s.logger.Info("Deleted old alert transitions",
		zap.Time("before", before),
		zap.Int64("deleted", affected))

	return affected, nil
}

// Close closes the database connection
func (s *SQLiteAlertHistory) Close() error {
	return s.db.Close()
}
