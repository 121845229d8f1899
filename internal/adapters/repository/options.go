package repository

import "time"

const (
	defaultBusyTimeout = 5 * time.Second
	defaultCapacity    = 256
)

type options struct {
	busyTimeout time.Duration
	capacity    int
}

func defaultOptions() options {
	return options{
		busyTimeout: defaultBusyTimeout,
		capacity:    defaultCapacity,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithCapacity pre-sizes the in-memory store.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}
