package lock

import (
	"context"
	"sync"
)

// Memory returns a Factory whose locks share one in-process table.
// Locks created by different Memory factories never conflict.
func Memory() Factory {
	t := &memoryTable{held: make(map[string]*memoryLock)}
	return func(key string) Lock {
		return &memoryLock{table: t, key: key}
	}
}

type memoryTable struct {
	mu   sync.Mutex
	held map[string]*memoryLock
}

type memoryLock struct {
	table *memoryTable
	key   string
}

func (l *memoryLock) TryAcquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.table.mu.Lock()
	defer l.table.mu.Unlock()

	switch owner := l.table.held[l.key]; {
	case owner == l:
		return false, ErrAlreadyHeld
	case owner != nil:
		return false, nil
	}

	l.table.held[l.key] = l
	return true, nil
}

func (l *memoryLock) Release(_ context.Context) error {
	l.table.mu.Lock()
	defer l.table.mu.Unlock()

	if l.table.held[l.key] != l {
		return ErrNotHeld
	}
	delete(l.table.held, l.key)
	return nil
}
