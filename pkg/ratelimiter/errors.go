package ratelimiter

import "errors"

var (
	ErrInvalidConfig     = errors.New("ratelimiter: invalid configuration")
	ErrInvalidTokenCount = errors.New("ratelimiter: token count must be positive")
	ErrStoreUnavailable  = errors.New("ratelimiter: store unavailable")
)
