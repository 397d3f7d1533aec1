package queue

import "errors"

var (
	ErrInvalidConfig  = errors.New("queue: invalid configuration")
	ErrStoreNil       = errors.New("queue: task store cannot be nil")
	ErrInvalidTask    = errors.New("queue: task type is required")
	ErrNoItems        = errors.New("queue: no items to enqueue")
	ErrBacklogged     = errors.New("queue: too many current tasks for a batch import")
	ErrHandlerFailed  = errors.New("queue: task handler failed")
	ErrInvalidPayload = errors.New("queue: task payload does not match handler type")
	ErrTaskTimeout    = errors.New("queue: task exceeded the worker task timeout")
	ErrWorkerRunning  = errors.New("queue: worker is already running")
)
