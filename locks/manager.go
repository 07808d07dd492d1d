// Package locks serialises critical sections across requests and, with the
// Redis manager, across service instances.
package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/ebogdum/filesmanager/metrics"
)

// Manager defines the interface for distributed locking operations
type Manager interface {
	// Acquire attempts to acquire a lock for the given key
	// Returns true if the lock was acquired, false if it is already held
	Acquire(ctx context.Context, key string) (bool, error)

	// Release releases a previously acquired lock for the given key
	// Only the holder that acquired the lock can release it
	Release(ctx context.Context, key string) error

	// Close closes the lock manager and releases any resources
	Close() error
}

// DefaultRetryInterval is how long WithLock waits between acquire attempts.
const DefaultRetryInterval = 25 * time.Millisecond

// WithLock runs fn while holding key, polling until the lock is free or
// ctx is done.
func WithLock(ctx context.Context, m Manager, key string, fn func(ctx context.Context) error) error {
	ticker := time.NewTicker(DefaultRetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := m.Acquire(ctx, key)
		if err != nil {
			metrics.LockOperationsTotal.WithLabelValues("acquire", "failure").Inc()
			return err
		}
		if acquired {
			metrics.LockOperationsTotal.WithLabelValues("acquire", "success").Inc()
			break
		}

		select {
		case <-ctx.Done():
			metrics.LockOperationsTotal.WithLabelValues("acquire", "timeout").Inc()
			return fmt.Errorf("timed out waiting for lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	defer func() {
		// release even when the request context is already done
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := m.Release(releaseCtx, key); err != nil {
			metrics.LockOperationsTotal.WithLabelValues("release", "failure").Inc()
			return
		}
		metrics.LockOperationsTotal.WithLabelValues("release", "success").Inc()
	}()

	return fn(ctx)
}
