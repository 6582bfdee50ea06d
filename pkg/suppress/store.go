package suppress

import (
	"context"
	"time"
)

// Store is the marker storage backend for suppression windows.
type Store interface {
	// SetIfAbsent atomically records a marker with the given TTL.
	// It returns true if the marker was created, false if one already
	// exists (and its TTL is left untouched).
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Delete removes a marker, closing its window early.
	Delete(ctx context.Context, key string) error
}
