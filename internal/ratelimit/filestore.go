package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

const (
	windowExt = ".json"
	lockExt   = ".lock"

	defaultLockTimeout = 5 * time.Second
	lockRetryInterval  = 10 * time.Millisecond
	// A lock older than this is left over from a crashed process.
	staleLockAge = 30 * time.Second
)

var lockSeq atomic.Uint64

// lockToken identifies one lock holder across processes.
func lockToken() string {
	return fmt.Sprintf("%d-%d-%d", os.Getpid(), time.Now().UnixNano(), lockSeq.Add(1))
}

// FileStore keeps one JSON file per window in a directory.
type FileStore struct {
	dir         string
	lockTimeout time.Duration
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLockTimeout bounds how long Update waits for another process's lock.
func WithLockTimeout(d time.Duration) FileStoreOption {
	return func(s *FileStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create rate limit directory: %w", err)
	}
	s := &FileStore{dir: dir, lockTimeout: defaultLockTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Update implements Store.
func (s *FileStore) Update(ctx context.Context, key string, fn func(*Window) bool) error {
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	path := s.path(key)
	w, err := readWindow(path)
	if err != nil {
		return err
	}
	if !fn(w) {
		return nil
	}
	return writeWindow(path, w)
}

// DeleteIdle implements Store.
func (s *FileStore) DeleteIdle(ctx context.Context, before int64) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read rate limit directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, windowExt) {
			continue
		}

		key := strings.TrimSuffix(name, windowExt)
		removed, err := s.deleteIfIdle(ctx, key, before)
		if err != nil {
			return deleted, err
		}
		if removed {
			deleted++
		}
	}
	return deleted, nil
}

func (s *FileStore) deleteIfIdle(ctx context.Context, key string, before int64) (bool, error) {
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return false, err
	}
	defer unlock()

	path := s.path(key)
	w, err := readWindow(path)
	if err != nil {
		return false, err
	}
	if w.LastRequest >= before {
		return false, nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to remove window: %w", err)
	}
	return true, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+windowExt)
}

// lock takes the per-key lock file, retrying until the lock timeout.
func (s *FileStore) lock(ctx context.Context, key string) (func(), error) {
	lockPath := filepath.Join(s.dir, key+lockExt)
	deadline := time.Now().Add(s.lockTimeout)

	token := lockToken()
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600) //nolint:gosec // path is built from a hex key
		if err == nil {
			_, werr := f.WriteString(token)
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(lockPath)
				return nil, fmt.Errorf("failed to write lock file: %w", werr)
			}
			return func() { releaseLock(lockPath, token) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			reclaimStale(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// releaseLock removes the lock file if token still owns it.
func releaseLock(lockPath, token string) {
	data, err := os.ReadFile(lockPath) //nolint:gosec // path is built from a hex key
	if err != nil || string(data) != token {
		return
	}
	_ = os.Remove(lockPath)
}

// reclaimStale moves a stale lock aside before deleting it. The move is
// atomic, so only one process reclaims a given lock. A lock that is fresh
// once moved was taken by another process after the age check and is
// linked back in place.
func reclaimStale(lockPath string) {
	aside := fmt.Sprintf("%s.%s", lockPath, lockToken())
	if err := os.Rename(lockPath, aside); err != nil {
		return
	}
	if info, err := os.Stat(aside); err == nil && time.Since(info.ModTime()) <= staleLockAge {
		_ = os.Link(aside, lockPath)
	}
	_ = os.Remove(aside)
}

func readWindow(path string) (*Window, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a hex key
	if errors.Is(err, fs.ErrNotExist) {
		return &Window{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read window: %w", err)
	}

	var w Window
	if err := json.Unmarshal(data, &w); err != nil {
		// A corrupt window starts over.
		return &Window{}, nil //nolint:nilerr
	}
	return &w, nil
}

func writeWindow(path string, w *Window) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode window: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".window-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write window: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write window: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace window: %w", err)
	}
	return nil
}
