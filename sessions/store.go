// Package sessions holds the key/value store with per-key expiry that backs
// authentication tokens.
package sessions

import (
	"context"
	"time"
)

// Store is a flat key/value store where every key carries its own expiry.
// A key set with ttl T is unreadable once T has elapsed. Get on an absent
// or expired key reports found == false with a nil error.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Del(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
	Close() error
}
