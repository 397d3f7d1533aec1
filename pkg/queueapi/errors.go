package queueapi

import "errors"

var (
	ErrInvalidBody  = errors.New("queueapi: invalid request body")
	ErrInvalidWhen  = errors.New("queueapi: scheduled_at and delay are mutually exclusive")
	ErrInvalidDelay = errors.New("queueapi: invalid delay")
)
