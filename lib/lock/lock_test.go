package lock

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBusy(t *testing.T) {
	ctx := context.Background()
	b := NewBusy(testLogger())

	ok, err := b.TryLock(ctx, "movies")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b.Held("movies"))

	ok, err = b.TryLock(ctx, "movies")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = b.TryLock(ctx, "genres")
	assert.True(t, ok)

	require.NoError(t, b.Unlock(ctx, "movies"))
	ok, _ = b.TryLock(ctx, "movies")
	assert.True(t, ok)
}

func TestBusy_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBusy(testLogger()).TryLock(ctx, "movies")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLock(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := NewFileLock(dir, time.Hour, testLogger())
	b := NewFileLock(dir, time.Hour, testLogger())

	ok, err := a.TryLock(ctx, "movies")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx, "movies")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Unlock(ctx, "movies"))
	ok, err = b.TryLock(ctx, "movies")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock(ctx, "movies"))
	require.NoError(t, b.Unlock(ctx, "movies"))
}

func TestFileLock_StaleLockIsTakenOver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fl := NewFileLock(dir, time.Minute, testLogger())

	path := filepath.Join(dir, "movies.lock")
	require.NoError(t, os.WriteFile(path, []byte("1\n1\n"), 0600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	ok, err := fl.TryLock(ctx, "movies")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileLock_KeyCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	fl := NewFileLock(dir, 0, testLogger())
	assert.Equal(t, filepath.Join(dir, "passwd.lock"), fl.path("../../etc/passwd"))
}
