package spool_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/spool/pkg/lock"
	"github.com/dmitrymomot/spool/pkg/spool"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSpool(t *testing.T, opts ...spool.Option) *spool.Spool {
	t.Helper()
	opts = append([]spool.Option{spool.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	sp, err := spool.New(t.TempDir(), opts...)
	require.NoError(t, err)
	return sp
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := spool.New("")
	assert.ErrorIs(t, err, spool.ErrInvalidRoot)

	dir := filepath.Join(t.TempDir(), "nested", "spool")
	sp, err := spool.New(dir)
	require.NoError(t, err)
	assert.DirExists(t, sp.Root())
}

func TestSpool_AddTask(t *testing.T) {
	t.Parallel()

	t.Run("defaults to now", func(t *testing.T) {
		t.Parallel()

		c := &clock{now: time.Unix(1760000000, 123456789)}
		sp := newSpool(t, spool.WithClock(c.Now))

		task, err := sp.AddTask(context.Background(), spool.Task{Type: "commit", ID: "1"})
		require.NoError(t, err)
		assert.True(t, time.Unix(1760000000, 123456000).Equal(task.ScheduledAt))
		assert.Equal(t, "0001760000000.123456-000000.task", task.Record)
		assert.FileExists(t, filepath.Join(sp.Root(), task.Record))
	})

	t.Run("same instant probes a free suffix", func(t *testing.T) {
		t.Parallel()

		sp := newSpool(t)
		at := time.Unix(1760000000, 0)

		var records []string
		for i := range 3 {
			task, err := sp.AddTask(context.Background(), spool.Task{Type: "commit", ID: string(rune('a' + i)), ScheduledAt: at})
			require.NoError(t, err)
			records = append(records, task.Record)
		}
		assert.Equal(t, []string{
			"0001760000000.000000-000000.task",
			"0001760000000.000000-000001.task",
			"0001760000000.000000-000002.task",
		}, records)
	})

	t.Run("concurrent producers never collide", func(t *testing.T) {
		t.Parallel()

		sp := newSpool(t)
		at := time.Unix(1760000000, 0)

		const producers = 20
		var wg sync.WaitGroup
		for i := range producers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := sp.AddTask(context.Background(), spool.Task{Type: "commit", ID: string(rune('a' + i)), ScheduledAt: at})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		names, err := sp.TaskFiles(context.Background())
		require.NoError(t, err)
		assert.Len(t, names, producers)
	})

	t.Run("invalid task", func(t *testing.T) {
		t.Parallel()

		sp := newSpool(t)
		_, err := sp.AddTask(context.Background(), spool.Task{ID: "1"})
		assert.ErrorIs(t, err, spool.ErrMissingType)

		names, err := sp.TaskFiles(context.Background())
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		t.Parallel()

		sp := newSpool(t)
		_, err := sp.AddTask(context.Background(), spool.Task{Type: "commit", ID: "1"})
		require.NoError(t, err)

		entries, err := os.ReadDir(filepath.Join(sp.Root(), "tmp"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestSpool_GrabTask(t *testing.T) {
	t.Parallel()

	t.Run("empty spool", func(t *testing.T) {
		t.Parallel()

		task, err := newSpool(t).GrabTask(context.Background())
		require.NoError(t, err)
		assert.Nil(t, task)
	})

	t.Run("claims in scheduled order", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		sp := newSpool(t)
		t0 := time.Now().Add(-time.Hour)

		// Enqueue out of order; claims follow scheduled time.
		for _, tc := range []struct {
			id string
			at time.Time
		}{{"t3", t0.Add(2 * time.Second)}, {"t1", t0}, {"t2", t0.Add(time.Second)}} {
			_, err := sp.AddTask(ctx, spool.Task{Type: "commit", ID: tc.id, ScheduledAt: tc.at})
			require.NoError(t, err)
		}

		for _, want := range []string{"t1", "t2", "t3"} {
			task, err := sp.GrabTask(ctx)
			require.NoError(t, err)
			require.NotNil(t, task)
			assert.Equal(t, want, task.ID)
		}

		task, err := sp.GrabTask(ctx)
		require.NoError(t, err)
		assert.Nil(t, task)
	})

	t.Run("claim removes the record and keeps data", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		sp := newSpool(t)
		data := map[string]any{"repo": "core", "nested": map[string]any{"n": json.Number("2")}}
		added, err := sp.AddTask(ctx, spool.Task{Type: "comment", ID: "55", Data: data})
		require.NoError(t, err)

		task, err := sp.GrabTask(ctx)
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, "comment", task.Type)
		assert.Equal(t, "55", task.ID)
		assert.Equal(t, data, task.Data)
		assert.True(t, added.ScheduledAt.Equal(task.ScheduledAt))
		assert.Equal(t, added.Record, task.Record)
		assert.NoFileExists(t, filepath.Join(sp.Root(), added.Record))
	})

	t.Run("future tasks are not eligible", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c := &clock{now: time.Unix(1760000000, 0)}
		sp := newSpool(t, spool.WithClock(c.Now))

		_, err := sp.AddTask(ctx, spool.Task{Type: "commit", ID: "later", ScheduledAt: c.Now().Add(time.Hour)})
		require.NoError(t, err)

		task, err := sp.GrabTask(ctx)
		require.NoError(t, err)
		assert.Nil(t, task)

		c.Advance(59 * time.Minute)
		task, err = sp.GrabTask(ctx)
		require.NoError(t, err)
		assert.Nil(t, task)

		c.Advance(time.Minute)
		task, err = sp.GrabTask(ctx)
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, "later", task.ID)
	})

	t.Run("skips records locked by a competitor", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		locks := lock.Memory()
		sp := newSpool(t, spool.WithLocks(locks))
		t0 := time.Now().Add(-time.Minute)

		first, err := sp.AddTask(ctx, spool.Task{Type: "commit", ID: "first", ScheduledAt: t0})
		require.NoError(t, err)
		_, err = sp.AddTask(ctx, spool.Task{Type: "commit", ID: "second", ScheduledAt: t0.Add(time.Second)})
		require.NoError(t, err)

		held := locks(filepath.Join(sp.Root(), first.Record))
		ok, err := held.TryAcquire(ctx)
		require.NoError(t, err)
		require.True(t, ok)

		task, err := sp.GrabTask(ctx)
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, "second", task.ID)

		require.NoError(t, held.Release(ctx))
		task, err = sp.GrabTask(ctx)
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, "first", task.ID)
	})

	t.Run("ignores foreign files", func(t *testing.T) {
		t.Parallel()

		sp := newSpool(t)
		require.NoError(t, os.WriteFile(filepath.Join(sp.Root(), "README"), []byte("x"), 0o644))

		task, err := sp.GrabTask(context.Background())
		require.NoError(t, err)
		assert.Nil(t, task)
		assert.FileExists(t, filepath.Join(sp.Root(), "README"))
	})
}

func TestSpool_GrabTask_SingleClaimant(t *testing.T) {
	t.Parallel()

	backends := map[string]lock.Factory{
		"file":   lock.File(),
		"memory": lock.Memory(),
	}

	for name, locks := range backends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			dir := t.TempDir()
			producer, err := spool.New(dir, spool.WithLocks(locks))
			require.NoError(t, err)
			_, err = producer.AddTask(ctx, spool.Task{Type: "commit", ID: "only"})
			require.NoError(t, err)

			const claimants = 32
			var (
				wg      sync.WaitGroup
				claimed atomic.Int32
				none    atomic.Int32
				start   = make(chan struct{})
			)
			for range claimants {
				// One Spool per claimant, as separate worker processes would have.
				sp, err := spool.New(dir, spool.WithLocks(locks))
				require.NoError(t, err)

				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					task, err := sp.GrabTask(ctx)
					assert.NoError(t, err)
					if task != nil {
						claimed.Add(1)
					} else {
						none.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), claimed.Load())
			assert.Equal(t, int32(claimants-1), none.Load())
		})
	}
}

func TestSpool_GrabTask_Quarantine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sp := newSpool(t)
	t0 := time.Now().Add(-time.Hour)

	write := func(at time.Time, body string) string {
		name, err := spool.RecordName(at, 0)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(sp.Root(), name), []byte(body), 0o644))
		return name
	}

	longHeader := write(t0, strings.Repeat("h", spool.MaxHeaderSize+1)+"\n")
	longPayload := write(t0.Add(time.Second), "commit,1\n{\"a\":\""+strings.Repeat("p", spool.MaxPayloadSize)+"\"}")
	noType := write(t0.Add(2*time.Second), ",7\n")
	_, err := sp.AddTask(ctx, spool.Task{Type: "commit", ID: "good", ScheduledAt: t0.Add(3 * time.Second)})
	require.NoError(t, err)

	// Counts goes by name, so records awaiting quarantine are still counted.
	counts, err := sp.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Current)

	task, err := sp.GrabTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "good", task.ID)

	counts, err = sp.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Total)

	for _, name := range []string{longHeader, longPayload, noType} {
		assert.NoFileExists(t, filepath.Join(sp.Root(), name))
		assert.FileExists(t, filepath.Join(sp.Root(), "invalid", name))
	}

	task, err = sp.GrabTask(ctx)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSpool_Counts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := &clock{now: time.Unix(1760000000, 0)}
	sp := newSpool(t, spool.WithClock(c.Now))

	for i, offset := range []time.Duration{-time.Hour, -time.Second, 0, time.Second, time.Hour} {
		_, err := sp.AddTask(ctx, spool.Task{Type: "commit", ID: string(rune('a' + i)), ScheduledAt: c.Now().Add(offset)})
		require.NoError(t, err)
	}

	counts, err := sp.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, spool.Counts{Current: 3, Future: 2, Total: 5}, counts)

	c.Advance(2 * time.Hour)
	counts, err = sp.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, spool.Counts{Current: 5, Future: 0, Total: 5}, counts)
}

func TestSpool_Tasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sp := newSpool(t)
	t0 := time.Now()

	_, err := sp.AddTask(ctx, spool.Task{Type: "commit", ID: "2", ScheduledAt: t0.Add(time.Second)})
	require.NoError(t, err)
	_, err = sp.AddTask(ctx, spool.Task{Type: "commit", ID: "1", ScheduledAt: t0, Data: map[string]any{"k": "v"}})
	require.NoError(t, err)

	name, err := spool.RecordName(t0.Add(2*time.Second), 0)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(sp.Root(), name), []byte("\n"), 0o644))

	tasks, err := sp.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "1", tasks[0].ID)
	assert.Equal(t, map[string]any{"k": "v"}, tasks[0].Data)
	assert.Equal(t, "2", tasks[1].ID)

	// Listing never claims.
	names, err := sp.TaskFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 3)

	_, err = sp.ReadTask(name)
	assert.ErrorIs(t, err, spool.ErrMissingType)
}

// staleLock stands for a holder that locked a file which has since been
// unlinked and replaced under the same name.
type staleLock struct {
	lock.Lock
	locked os.FileInfo
}

func (l staleLock) Stat() (os.FileInfo, error) { return l.locked, nil }

func staleLocks(t *testing.T) lock.Factory {
	t.Helper()

	old := filepath.Join(t.TempDir(), "unlinked")
	require.NoError(t, os.WriteFile(old, nil, 0o644))
	info, err := os.Stat(old)
	require.NoError(t, err)

	inner := lock.Memory()
	return func(key string) lock.Lock { return staleLock{Lock: inner(key), locked: info} }
}

func TestSpool_GrabTaskSkipsReplacedRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sp := newSpool(t, spool.WithLocks(staleLocks(t)))
	added, err := sp.AddTask(ctx, spool.Task{Type: "commit", ID: "100"})
	require.NoError(t, err)

	task, err := sp.GrabTask(ctx)
	require.NoError(t, err)
	assert.Nil(t, task, "a lock on a replaced file must not claim the new record")
	assert.FileExists(t, filepath.Join(sp.Root(), added.Record))
}
