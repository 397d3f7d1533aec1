//go:build unix

package lock

import (
	"context"
	"errors"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// File returns a Factory backed by flock(2). The key is the path of an
// existing file.
func File() Factory {
	return func(key string) Lock {
		return &fileLock{path: key}
	}
}

type fileLock struct {
	mu   sync.Mutex
	path string
	f    *os.File

	afterOpen func() // test hook between open(2) and flock(2)
}

func (l *fileLock) TryAcquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f != nil {
		return false, ErrAlreadyHeld
	}

	// Read-only and without O_CREATE: locking must never resurrect a removed file.
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if l.afterOpen != nil {
		l.afterOpen()
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return false, nil
		}
		return false, &os.PathError{Op: "flock", Path: l.path, Err: err}
	}

	// The path may have been removed or replaced after open. A lock on an
	// unlinked file guards nothing.
	if !l.current(f) {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
		return false, nil
	}

	l.f = f
	return true, nil
}

func (l *fileLock) current(f *os.File) bool {
	locked, err := f.Stat()
	if err != nil {
		return false
	}
	now, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	return os.SameFile(locked, now)
}

// Stat describes the locked file.
func (l *fileLock) Stat() (os.FileInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil, ErrNotHeld
	}
	return l.f.Stat()
}

func (l *fileLock) Release(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return ErrNotHeld
	}

	unlockErr := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil

	return errors.Join(unlockErr, closeErr)
}
