package slot

import "errors"

var (
	ErrInvalidDir  = errors.New("slot: directory is required")
	ErrInvalidMax  = errors.New("slot: max must be positive")
	ErrOutOfRange  = errors.New("slot: number out of range")
	ErrNotHeld     = errors.New("slot: not held by this registry")
	ErrAlreadyHeld = errors.New("slot: already held by this registry")
)
