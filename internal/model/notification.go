package model

import "time"

// Notification is a user-facing message shown in the header bell menu
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Time      string    `json:"time"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
