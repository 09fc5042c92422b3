package queue

import "errors"

var (
	// ErrPoolNotRunning is returned when jobs are dispatched to a stopped pool
	ErrPoolNotRunning = errors.New("queue: worker pool is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("queue: invalid worker pool configuration")

	// ErrNotifierClosed is returned when publishing on a closed notifier
	ErrNotifierClosed = errors.New("queue: notifier is closed")
)
