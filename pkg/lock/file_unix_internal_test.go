//go:build unix

package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replaceWhileOpening republishes path under the same name between open(2)
// and flock(2), the window a requeue with the original schedule can hit.
func replaceWhileOpening(t *testing.T, path string, during func()) *fileLock {
	t.Helper()

	return &fileLock{path: path, afterOpen: func() {
		require.NoError(t, os.Remove(path))
		require.NoError(t, os.WriteFile(path, []byte("commit,100\n"), 0o644))
		if during != nil {
			during()
		}
	}}
}

func TestFileLockRejectsReplacedFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "0001791980880.472337-000000.task")
	require.NoError(t, os.WriteFile(path, []byte("commit,100\n"), 0o644))

	t.Run("replaced file", func(t *testing.T) {
		stale := replaceWhileOpening(t, path, nil)
		ok, err := stale.TryAcquire(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, stale.f)

		// The lock was not left on the old file: a fresh holder gets the new one.
		fresh := File()(path)
		ok, err = fresh.TryAcquire(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, fresh.Release(ctx))
	})

	t.Run("replaced file locked by another holder", func(t *testing.T) {
		other := File()(path)
		stale := replaceWhileOpening(t, path, func() {
			ok, err := other.TryAcquire(ctx)
			require.NoError(t, err)
			require.True(t, ok)
		})

		ok, err := stale.TryAcquire(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "only the holder of the current file may win")
		require.NoError(t, other.Release(ctx))
	})

	t.Run("removed file", func(t *testing.T) {
		gone := filepath.Join(t.TempDir(), "slot")
		require.NoError(t, os.WriteFile(gone, nil, 0o644))

		l := &fileLock{path: gone, afterOpen: func() { require.NoError(t, os.Remove(gone)) }}
		ok, err := l.TryAcquire(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFileLockStat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "slot")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	l := File()(path)
	_, err := l.(Stater).Stat()
	assert.ErrorIs(t, err, ErrNotHeld)

	ok, err := l.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, Same(l, path))

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.False(t, Same(l, path))
	require.NoError(t, l.Release(ctx))
}
