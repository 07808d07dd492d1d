// Package backends provides blob storage adapters for file content.
// It includes implementations for the local filesystem and S3 object storage.
package backends

import (
	"context"
	"io"
	"time"

	"github.com/ebogdum/filesmanager/metrics"
)

// Blob is an open blob. Size is the content length in bytes, or -1 when
// the backend does not report it.
type Blob struct {
	io.ReadCloser
	Size int64
}

// Storage holds opaque content addressed by a flat key. Open on a missing
// key returns metadata.ErrNotFound.
type Storage interface {
	// Open opens a blob for reading
	Open(ctx context.Context, key string) (*Blob, error)

	// Create stores a new blob with content from the reader
	Create(ctx context.Context, key string, reader io.Reader, size int64) error

	// Delete removes a blob
	Delete(ctx context.Context, key string) error

	// Close closes any resources used by the storage backend
	Close() error
}

type instrumentedStorage struct {
	backendType string
	next        Storage
}

// Instrument records operation counts and durations for s under backendType.
func Instrument(backendType string, s Storage) Storage {
	return &instrumentedStorage{backendType: backendType, next: s}
}

func (s *instrumentedStorage) observe(op string, start time.Time) {
	metrics.BackendOpsTotal.WithLabelValues(s.backendType, op).Inc()
	metrics.BackendOpDuration.WithLabelValues(s.backendType, op).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStorage) Open(ctx context.Context, key string) (*Blob, error) {
	defer s.observe("open", time.Now())
	return s.next.Open(ctx, key)
}

func (s *instrumentedStorage) Create(ctx context.Context, key string, reader io.Reader, size int64) error {
	defer s.observe("create", time.Now())
	return s.next.Create(ctx, key, reader, size)
}

func (s *instrumentedStorage) Delete(ctx context.Context, key string) error {
	defer s.observe("delete", time.Now())
	return s.next.Delete(ctx, key)
}

func (s *instrumentedStorage) Close() error {
	return s.next.Close()
}
