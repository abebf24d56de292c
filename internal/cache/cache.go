// Package cache provides a TTL-bounded payload cache keyed by
// operation+symbol+granularity. A read never observes a partial write and a
// corrupt or expired entry behaves exactly like a missing one.
package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned when a key is absent, expired, or unreadable.
var ErrMiss = errors.New("cache: miss")

type Store interface {
	// Get returns the cached payload for key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put overwrites the payload for key atomically. Last write wins.
	Put(ctx context.Context, key string, payload []byte) error
}

// StaleReader is implemented by backends that can still produce an expired
// entry. Serving stale data is always an explicit caller decision.
type StaleReader interface {
	GetStale(ctx context.Context, key string) ([]byte, error)
}
