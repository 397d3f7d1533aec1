package lock

import "errors"

var (
	// ErrNotHeld is returned when releasing a lock the caller does not hold.
	ErrNotHeld = errors.New("lock: not held")

	// ErrAlreadyHeld is returned when TryAcquire is called twice on the same Lock.
	ErrAlreadyHeld = errors.New("lock: already held by this holder")

	// ErrUnsupported is returned by backends that cannot run on the current platform.
	ErrUnsupported = errors.New("lock: backend not supported on this platform")
)
