package model

import "time"

// DigestSchedule describes a recurring alert digest run
type DigestSchedule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Expression  string     `json:"expression"`
	LastRunTime *time.Time `json:"last_run_time,omitempty"`
	NextRunTime *time.Time `json:"next_run_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Digest summarizes the active alerts a digest run reported
type Digest struct {
	Message     string                `json:"message"`
	Counts      map[AlertSeverity]int `json:"counts"`
	Total       int                   `json:"total"`
	Channels    []NotificationChannel `json:"channels"`
	GeneratedAt time.Time             `json:"generated_at"`
}
