package spool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/spool/pkg/lock"
	"github.com/dmitrymomot/spool/pkg/logger"
)

const (
	tmpDir     = "tmp"
	invalidDir = "invalid"
)

// Spool is a directory of pending task records.
// It holds no in-memory state about records and is safe for concurrent use
// by many goroutines and processes.
type Spool struct {
	root   string
	locks  lock.Factory
	now    func() time.Time
	logger *slog.Logger
}

// New opens the spool rooted at dir, creating it when missing.
func New(dir string, opts ...Option) (*Spool, error) {
	if dir == "" {
		return nil, ErrInvalidRoot
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("spool: resolve root: %w", err)
	}

	options := &options{
		locks:  lock.File(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	for _, d := range []string{root, filepath.Join(root, tmpDir), filepath.Join(root, invalidDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("spool: create %s: %w", d, err)
		}
	}

	return &Spool{
		root:   root,
		locks:  options.locks,
		now:    options.now,
		logger: options.logger.With(logger.Component("spool")),
	}, nil
}

// Root returns the absolute spool directory.
func (s *Spool) Root() string {
	return s.root
}

// AddTask stores a new record. A zero ScheduledAt means now.
// The returned task carries the stored time and record name.
func (s *Spool) AddTask(ctx context.Context, t Task) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}

	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = s.now()
	}
	t.ScheduledAt = truncate(t.ScheduledAt)

	body, err := Marshal(t.Type, t.ID, t.Data)
	if err != nil {
		return Task{}, err
	}

	tmp := filepath.Join(s.root, tmpDir, "."+uuid.NewString())
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return Task{}, fmt.Errorf("spool: write record: %w", err)
	}
	defer os.Remove(tmp)

	for suffix := 0; suffix <= maxSuffix; suffix++ {
		name, err := RecordName(t.ScheduledAt, suffix)
		if err != nil {
			return Task{}, err
		}

		// link(2) fails with EEXIST instead of replacing, so probing is race-free.
		err = os.Link(tmp, filepath.Join(s.root, name))
		if err == nil {
			t.Record = name
			return t, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return Task{}, fmt.Errorf("spool: publish record: %w", err)
		}
	}

	return Task{}, ErrNoFreeName
}

// GrabTask claims and removes the oldest eligible record.
// It returns nil, nil when nothing is eligible.
func (s *Spool) GrabTask(ctx context.Context) (*Task, error) {
	names, err := s.TaskFiles(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		at, err := ParseRecordName(name)
		if err != nil {
			continue
		}
		if at.After(now) {
			// Names sort by time, so every remaining record is in the future too.
			break
		}

		task, err := s.claim(ctx, name, at)
		if err != nil {
			return nil, err
		}
		if task != nil {
			return task, nil
		}
	}

	return nil, nil
}

// claim runs the lock, verify, read, remove sequence for one record.
// A nil task with nil error means the record was taken by someone else or
// was quarantined.
func (s *Spool) claim(ctx context.Context, name string, at time.Time) (*Task, error) {
	path := filepath.Join(s.root, name)

	l := s.locks(path)
	ok, err := l.TryAcquire(ctx)
	if err != nil {
		s.logger.DebugContext(ctx, "record lock failed", logger.Record(name), logger.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	defer func() {
		if err := l.Release(ctx); err != nil {
			s.logger.WarnContext(ctx, "record unlock failed", logger.Record(name), logger.Error(err))
		}
	}()

	// A competitor may have consumed the record between our scan and our
	// lock, and a requeue may have published a new record under the same name.
	if !lock.Same(l, path) {
		return nil, nil
	}

	task, err := s.read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, s.quarantine(ctx, name, err)
	}
	task.ScheduledAt = at

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.ErrorContext(ctx, "claimed record could not be removed",
			logger.Record(name), logger.Error(err))
		return nil, errors.Join(ErrRecordNotRemoved, err)
	}

	return &task, nil
}

// quarantine moves an unparseable record out of the spool.
func (s *Spool) quarantine(ctx context.Context, name string, cause error) error {
	s.logger.ErrorContext(ctx, "quarantining unparseable record",
		logger.Record(name), logger.Error(cause))

	err := os.Rename(filepath.Join(s.root, name), filepath.Join(s.root, invalidDir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Join(ErrRecordNotRemoved, cause, err)
	}
	return nil
}

func (s *Spool) read(path string) (Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return Task{}, err
	}
	defer f.Close()

	body, err := readBody(f)
	if err != nil {
		return Task{}, err
	}

	taskType, id, data, err := Unmarshal(body)
	if err != nil {
		return Task{}, err
	}
	return Task{Type: taskType, ID: id, Data: data, Record: filepath.Base(path)}, nil
}

// TaskFiles lists record names in scheduled order without claiming them.
func (s *Spool) TaskFiles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("spool: list records: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !recordNameRe.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// ReadTask parses one record without claiming it.
func (s *Spool) ReadTask(name string) (Task, error) {
	at, err := ParseRecordName(name)
	if err != nil {
		return Task{}, err
	}
	task, err := s.read(filepath.Join(s.root, name))
	if err != nil {
		return Task{}, err
	}
	task.ScheduledAt = at
	return task, nil
}

// Tasks parses every pending record, skipping ones that vanish or fail to parse.
func (s *Spool) Tasks(ctx context.Context) ([]Task, error) {
	names, err := s.TaskFiles(ctx)
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(names))
	for _, name := range names {
		task, err := s.ReadTask(name)
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Counts partitions records into current and future by their names.
// Bodies are not read: a malformed record is counted until a GrabTask
// reaches it and moves it to the invalid directory.
func (s *Spool) Counts(ctx context.Context) (Counts, error) {
	names, err := s.TaskFiles(ctx)
	if err != nil {
		return Counts{}, err
	}

	now := s.now()
	var c Counts
	for _, name := range names {
		at, err := ParseRecordName(name)
		if err != nil {
			continue
		}
		if at.After(now) {
			c.Future++
		} else {
			c.Current++
		}
	}
	c.Total = c.Current + c.Future
	return c, nil
}
