//go:build !unix

package lock

import "context"

// File returns a Factory whose locks always fail with ErrUnsupported.
func File() Factory {
	return func(string) Lock { return unsupported{} }
}

type unsupported struct{}

func (unsupported) TryAcquire(context.Context) (bool, error) { return false, ErrUnsupported }
func (unsupported) Release(context.Context) error            { return ErrUnsupported }
