package localfs

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ebogdum/filesmanager/backends"
	"github.com/ebogdum/filesmanager/internal/pathutil"
	"github.com/ebogdum/filesmanager/metadata"
)

// DefaultRootPath is used when no root path is configured.
const DefaultRootPath = "/tmp/files_manager"

// LocalFSAdapter implements the backends.Storage interface for local filesystem
type LocalFSAdapter struct {
	rootPath string
}

// NewLocalFSAdapter creates a new local filesystem adapter
func NewLocalFSAdapter(rootPath string) (*LocalFSAdapter, error) {
	if rootPath == "" {
		rootPath = DefaultRootPath
	}

	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root path %s: %w", rootPath, err)
	}

	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path %s is not accessible: %w", rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", rootPath)
	}

	return &LocalFSAdapter{
		rootPath: rootPath,
	}, nil
}

// Open opens a blob for reading
func (a *LocalFSAdapter) Open(ctx context.Context, key string) (*backends.Blob, error) {
	fullPath, err := pathutil.SafeJoin(a.rootPath, key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, metadata.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}

	return &backends.Blob{ReadCloser: file, Size: info.Size()}, nil
}

// Create writes a new blob with content from the reader
func (a *LocalFSAdapter) Create(ctx context.Context, key string, reader io.Reader, size int64) error {
	fullPath, err := pathutil.SafeJoin(a.rootPath, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Create file with exclusive flag
	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return metadata.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create blob %s: %w", key, err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write blob content: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to close blob %s: %w", key, err)
	}
	return nil
}

// Delete removes a blob
func (a *LocalFSAdapter) Delete(ctx context.Context, key string) error {
	fullPath, err := pathutil.SafeJoin(a.rootPath, key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return metadata.ErrNotFound
		}
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}

	return nil
}

// Close closes any resources used by the local filesystem adapter
func (a *LocalFSAdapter) Close() error {
	return nil
}
