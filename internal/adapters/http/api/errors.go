package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrServe       = errors.New("http serve failed")
	ErrRateLimited = errors.New("rate limited")
)
