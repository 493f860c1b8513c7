package model

import (
	"fmt"
	"time"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "critical"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityInfo     AlertSeverity = "info"
)

// Severities lists every severity in display order
var Severities = []AlertSeverity{
	AlertSeverityCritical,
	AlertSeverityWarning,
	AlertSeverityInfo,
}

// ParseSeverity converts a string into a known severity
func ParseSeverity(s string) (AlertSeverity, error) {
	switch sev := AlertSeverity(s); sev {
	case AlertSeverityCritical, AlertSeverityWarning, AlertSeverityInfo:
		return sev, nil
	default:
		return "", fmt.Errorf("unknown alert severity: %q", s)
	}
}

// IsValid reports whether the severity is one of the known values
func (s AlertSeverity) IsValid() bool {
	_, err := ParseSeverity(string(s))
	return err == nil
}

// AlertStatus represents the lifecycle stage of an alert
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// Statuses lists every status in lifecycle order
var Statuses = []AlertStatus{
	AlertStatusActive,
	AlertStatusAcknowledged,
	AlertStatusResolved,
}

// ParseStatus converts a string into a known status
func ParseStatus(s string) (AlertStatus, error) {
	switch st := AlertStatus(s); st {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved:
		return st, nil
	default:
		return "", fmt.Errorf("unknown alert status: %q", s)
	}
}

// IsValid reports whether the status is one of the known values
func (s AlertStatus) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Active alerts may be resolved directly without being acknowledged.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case AlertStatusActive:
		return next == AlertStatusAcknowledged || next == AlertStatusResolved
	case AlertStatusAcknowledged:
		return next == AlertStatusResolved
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible
func (s AlertStatus) IsTerminal() bool {
	return s == AlertStatusResolved
}

// Alert represents a detected energy-system condition requiring operator attention
type Alert struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`
	Location    string        `json:"location"`
	System      string        `json:"system"`
	Impact      string        `json:"impact"`
	Timestamp   time.Time     `json:"timestamp"`
}
