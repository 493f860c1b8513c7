package monitor

import "errors"

var (
	// ErrAlertNotFound is returned when an operation references an unknown alert
	ErrAlertNotFound = errors.New("alert not found")

	// ErrInvalidTransition is returned when the alert lifecycle forbids the requested change
	ErrInvalidTransition = errors.New("invalid alert transition")

	// ErrDuplicateAlert is returned when an alert with the same ID already exists
	ErrDuplicateAlert = errors.New("duplicate alert")

	// ErrNotificationNotFound is returned when an operation references an unknown notification
	ErrNotificationNotFound = errors.New("notification not found")
)
