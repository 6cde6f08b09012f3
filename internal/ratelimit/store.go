package ratelimit

import (
	"context"
	"fmt"
)

// Store persists windows by key.
type Store interface {
	// Update loads the window stored under key (empty when absent), passes
	// it to fn and saves it when fn returns true. The read-modify-write is
	// atomic with respect to other Updates of the same key, including from
	// other processes sharing the store.
	Update(ctx context.Context, key string, fn func(*Window) bool) error

	// DeleteIdle deletes windows whose last request is before the given
	// Unix time and returns how many were deleted.
	DeleteIdle(ctx context.Context, before int64) (int, error)

	// Close releases the store.
	Close() error
}

// OpenStore opens the store named by kind ("file" or "sqlite") in dir.
func OpenStore(kind, dir string) (Store, error) {
	switch kind {
	case "sqlite":
		return OpenSQLiteStore(dir)
	case "file", "":
		return NewFileStore(dir)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, kind)
	}
}
