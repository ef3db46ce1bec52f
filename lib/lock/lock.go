package lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Locker is a keyed lock that never waits: TryLock either takes the key or
// reports that someone else holds it.
type Locker interface {
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Busy is an in-process Locker.
type Busy struct {
	logger *slog.Logger

	mu   sync.Mutex
	held map[string]time.Time
}

func NewBusy(logger *slog.Logger) *Busy {
	return &Busy{logger: logger, held: map[string]time.Time{}}
}

func (b *Busy) TryLock(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if since, ok := b.held[key]; ok {
		b.logger.Debug("Lock busy", slog.String("key", key), slog.Duration("held_for", time.Since(since)))
		return false, nil
	}
	b.held[key] = time.Now()
	return true, nil
}

func (b *Busy) Unlock(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.held, key)
	return nil
}

// Held reports whether key is currently locked.
func (b *Busy) Held(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.held[key]
	return ok
}

// FileLock is a Locker shared between processes on one host, backed by
// exclusive lock files.
type FileLock struct {
	dir    string
	stale  time.Duration
	logger *slog.Logger
}

// NewFileLock creates lock files under dir. Lock files older than stale are
// treated as abandoned.
func NewFileLock(dir string, stale time.Duration, logger *slog.Logger) *FileLock {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "catalog-locks")
	}
	return &FileLock{dir: dir, stale: stale, logger: logger}
}

func (fl *FileLock) TryLock(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := os.MkdirAll(fl.dir, 0750); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := fl.path(key)

	for attempt := 0; attempt < 2; attempt++ {
		// #nosec G304 - path is built by fl.path from a cleaned key
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			if _, err := fmt.Fprintf(file, "%d\n%d\n", time.Now().Unix(), os.Getpid()); err != nil {
				fl.logger.Error("Failed to write lock file", slog.String("file", path), slog.Any("error", err))
			}
			if err := file.Close(); err != nil {
				return false, fmt.Errorf("failed to close lock file: %w", err)
			}
			fl.logger.Debug("Acquired lock", slog.String("key", key), slog.String("file", path))
			return true, nil
		}
		if !os.IsExist(err) {
			return false, fmt.Errorf("failed to create lock file: %w", err)
		}
		if !fl.isStale(path) {
			return false, nil
		}
		fl.logger.Warn("Removing stale lock file", slog.String("file", path))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}
	return false, nil
}

func (fl *FileLock) Unlock(_ context.Context, key string) error {
	path := fl.path(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	fl.logger.Debug("Released lock", slog.String("key", key), slog.String("file", path))
	return nil
}

func (fl *FileLock) path(key string) string {
	return filepath.Join(fl.dir, filepath.Base(filepath.Clean("/"+key))+".lock")
}

func (fl *FileLock) isStale(path string) bool {
	if fl.stale <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > fl.stale
}
