package repository

import "errors"

// Sentinel causes for store errors. They are always wrapped in an errs kind.
var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrClosed        = errors.New("store is closed")
	ErrNoPath        = errors.New("sqlite filename is required")
)
