package lock_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/spool/pkg/lock"
)

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func testBackend(t *testing.T, locks lock.Factory, key string) {
	ctx := context.Background()

	t.Run("exclusive between holders", func(t *testing.T) {
		first := locks(key)
		second := locks(key)

		ok, err := first.TryAcquire(ctx)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = second.TryAcquire(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "second holder must not get a held lock")

		require.NoError(t, first.Release(ctx))

		ok, err = second.TryAcquire(ctx)
		require.NoError(t, err)
		assert.True(t, ok, "lock must be free after release")
		require.NoError(t, second.Release(ctx))
	})

	t.Run("release without acquire", func(t *testing.T) {
		assert.ErrorIs(t, locks(key).Release(ctx), lock.ErrNotHeld)
	})

	t.Run("double acquire on one holder", func(t *testing.T) {
		l := locks(key)
		ok, err := l.TryAcquire(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		defer l.Release(ctx)

		_, err = l.TryAcquire(ctx)
		assert.ErrorIs(t, err, lock.ErrAlreadyHeld)
	})

	t.Run("concurrent contenders", func(t *testing.T) {
		const contenders = 16
		var (
			wg      sync.WaitGroup
			winners atomic.Int32
			start   = make(chan struct{})
			held    = make([]lock.Lock, contenders)
		)
		for i := range contenders {
			held[i] = locks(key)
			wg.Add(1)
			go func(l lock.Lock) {
				defer wg.Done()
				<-start
				if ok, err := l.TryAcquire(ctx); err == nil && ok {
					winners.Add(1)
				}
			}(held[i])
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
		for _, l := range held {
			_ = l.Release(ctx)
		}
	})
}

func TestFile(t *testing.T) {
	t.Parallel()

	testBackend(t, lock.File(), touch(t, "slot"))

	t.Run("missing file is never locked", func(t *testing.T) {
		l := lock.File()(filepath.Join(t.TempDir(), "gone"))
		ok, err := l.TryAcquire(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("does not create the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent")
		_, _ = lock.File()(path).TryAcquire(context.Background())
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("lock survives file removal", func(t *testing.T) {
		path := touch(t, "record")
		l := lock.File()(path)
		ok, err := l.TryAcquire(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, os.Remove(path))
		assert.NoError(t, l.Release(context.Background()))
	})
}

func TestMemory(t *testing.T) {
	t.Parallel()

	testBackend(t, lock.Memory(), "slot-1")

	t.Run("factories are independent", func(t *testing.T) {
		ctx := context.Background()
		a := lock.Memory()("k")
		b := lock.Memory()("k")

		ok, err := a.TryAcquire(ctx)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = b.TryAcquire(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := lock.Memory()("k").TryAcquire(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRedis(t *testing.T) {
	t.Parallel()

	t.Run("unreachable server", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer client.Close()

		ok, err := lock.Redis(client)("k").TryAcquire(context.Background())
		assert.Error(t, err)
		assert.False(t, ok)
	})

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	defer client.Close()

	locks := lock.Redis(client,
		lock.WithRedisPrefix("spool:test:"+uuid.NewString()+":"),
		lock.WithRedisTTL(time.Minute),
	)
	testBackend(t, locks, "slot")
}

func TestSameWithoutFile(t *testing.T) {
	t.Parallel()

	l := lock.Memory()("any-key")
	assert.True(t, lock.Same(l, filepath.Join(t.TempDir(), "missing")),
		"locks not bound to a file have nothing to compare")
}
