package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrInvalidSpec is returned when a task has a malformed cron spec
	ErrInvalidSpec = errors.New("invalid cron spec")

	// ErrTaskNotFound is returned when triggering a task that is not scheduled
	ErrTaskNotFound = errors.New("scheduled task not found")
)
