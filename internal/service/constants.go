package service

import "time"

const (
	streamMaxAge     = 24 * time.Hour
	commandQueue     = "dashboard-commands"
	operationTimeout = 5 * time.Second
)
