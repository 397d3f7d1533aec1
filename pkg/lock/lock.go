package lock

import (
	"context"
	"os"
)

// Lock is an exclusive, non-blocking lock scoped to a single key.
type Lock interface {
	// TryAcquire takes the lock if it is free and reports whether it did.
	// It never blocks waiting for another holder.
	TryAcquire(ctx context.Context) (bool, error)

	// Release gives up a lock obtained by TryAcquire.
	Release(ctx context.Context) error
}

// Factory builds a Lock for the given key. Each call returns a new holder.
type Factory func(key string) Lock

// Stater is implemented by locks bound to an open file. Stat describes the
// file actually locked, which callers compare with what the key's path
// names now.
type Stater interface {
	Stat() (os.FileInfo, error)
}

// Same reports whether l, if it is a Stater, locks the file currently at
// path. Locks that are not bound to files always report true.
func Same(l Lock, path string) bool {
	st, ok := l.(Stater)
	if !ok {
		return true
	}
	locked, err := st.Stat()
	if err != nil {
		return false
	}
	now, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(locked, now)
}
