package slot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dmitrymomot/spool/pkg/lock"
	"github.com/dmitrymomot/spool/pkg/logger"
)

type holding struct {
	lock lock.Lock
	info os.FileInfo
}

// Registry hands out numbered worker slots.
type Registry struct {
	dir    string
	max    int
	locks  lock.Factory
	logger *slog.Logger

	mu   sync.Mutex
	held map[int]holding
}

// NewRegistry opens the slot directory, creating it when missing.
func NewRegistry(dir string, max int, opts ...Option) (*Registry, error) {
	if dir == "" {
		return nil, ErrInvalidDir
	}
	if max < 1 {
		return nil, ErrInvalidMax
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("slot: create %s: %w", dir, err)
	}

	r := &Registry{
		dir:    dir,
		max:    max,
		locks:  lock.File(),
		logger: slog.Default(),
		held:   make(map[int]holding),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("slot"))

	return r, nil
}

// Max returns the number of slots.
func (r *Registry) Max() int {
	return r.max
}

// Path returns the file backing slot n.
func (r *Registry) Path(n int) string {
	return filepath.Join(r.dir, strconv.Itoa(n))
}

// Acquire takes the lowest free slot and returns its number.
// It returns 0 when every slot is held.
func (r *Registry) Acquire(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for n := 1; n <= r.max; n++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if _, ok := r.held[n]; ok {
			continue
		}

		h, ok, err := r.tryTake(ctx, n)
		if err != nil {
			return 0, err
		}
		if ok {
			r.held[n] = h
			r.logger.DebugContext(ctx, "slot acquired", logger.Slot(n))
			return n, nil
		}
	}

	return 0, nil
}

func (r *Registry) tryTake(ctx context.Context, n int) (holding, bool, error) {
	path := r.Path(n)

	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return holding{}, false, fmt.Errorf("slot: create %d: %w", n, err)
	}
	_ = f.Close()

	l := r.locks(path)
	ok, err := l.TryAcquire(ctx)
	if err != nil {
		return holding{}, false, fmt.Errorf("slot: lock %d: %w", n, err)
	}
	if !ok {
		return holding{}, false, nil
	}

	// A force release may have removed or replaced the file between create
	// and lock.
	info, err := os.Stat(path)
	if err != nil || !lock.Same(l, path) {
		_ = l.Release(ctx)
		return holding{}, false, nil
	}

	return holding{lock: l, info: info}, true, nil
}

// Holds reports whether this registry holds slot n and its file is still
// the one that was locked.
func (r *Registry) Holds(n int) bool {
	r.mu.Lock()
	h, ok := r.held[n]
	r.mu.Unlock()
	if !ok {
		return false
	}

	info, err := os.Stat(r.Path(n))
	if err != nil {
		return false
	}
	return os.SameFile(h.info, info)
}

// Release gives up slot n. The slot file stays for the next worker.
func (r *Registry) Release(ctx context.Context, n int) error {
	if n < 1 || n > r.max {
		return ErrOutOfRange
	}

	r.mu.Lock()
	h, ok := r.held[n]
	delete(r.held, n)
	r.mu.Unlock()

	if !ok {
		return ErrNotHeld
	}
	if err := h.lock.Release(ctx); err != nil {
		return fmt.Errorf("slot: release %d: %w", n, err)
	}

	r.logger.DebugContext(ctx, "slot released", logger.Slot(n))
	return nil
}

// ForceRelease clears slot n on behalf of a holder that no longer runs.
// It reports whether the slot is free afterwards. A slot genuinely held by
// another process is left untouched and reported as false.
func (r *Registry) ForceRelease(ctx context.Context, n int) (bool, error) {
	if n < 1 || n > r.max {
		return false, ErrOutOfRange
	}

	r.mu.Lock()
	_, own := r.held[n]
	r.mu.Unlock()
	if own {
		return true, r.Release(ctx, n)
	}

	path := r.Path(n)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return true, nil
	}

	l := r.locks(path)
	ok, err := l.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("slot: lock %d: %w", n, err)
	}
	if !ok {
		return false, nil
	}
	defer func() {
		if err := l.Release(ctx); err != nil {
			r.logger.WarnContext(ctx, "slot unlock failed", logger.Slot(n), logger.Error(err))
		}
	}()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("slot: remove %d: %w", n, err)
	}

	r.logger.InfoContext(ctx, "abandoned slot cleared", logger.Slot(n))
	return true, nil
}

// CountHeld returns how many slots are held by any process.
func (r *Registry) CountHeld(ctx context.Context) (int, error) {
	count := 0
	for n := 1; n <= r.max; n++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		r.mu.Lock()
		_, own := r.held[n]
		r.mu.Unlock()
		if own {
			count++
			continue
		}

		path := r.Path(n)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		l := r.locks(path)
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return 0, fmt.Errorf("slot: probe %d: %w", n, err)
		}
		if !ok {
			count++
			continue
		}
		_ = l.Release(ctx)
	}
	return count, nil
}
