package scheduler

import "errors"

var (
	// ErrScheduleNotFound is returned when a schedule is not found
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrInvalidExpression is returned when a cron expression cannot be parsed
	ErrInvalidExpression = errors.New("invalid cron expression")

	// ErrMaxRetriesExceeded is returned when a digest could not be delivered
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)
