package scheduler

import "time"

const (
	// DefaultDigestExpression runs a digest at the top of every hour
	DefaultDigestExpression = "0 0 * * * *"

	defaultMaxAttempts  = 3
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	deliveryTimeout     = 10 * time.Second

	digestNotificationTime = "Just now"
)
