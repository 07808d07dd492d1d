package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/filesmanager/internal/pathutil"
	"github.com/ebogdum/filesmanager/metadata"
)

func TestLocalFSAdapter_CreateOpenDelete(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "files_manager")
	adapter, err := NewLocalFSAdapter(root)
	require.NoError(t, err)

	require.NoError(t, adapter.Create(ctx, "blob-1", strings.NewReader("Hello Webstack!\n"), 16))

	onDisk, err := os.ReadFile(filepath.Join(root, "blob-1"))
	require.NoError(t, err)
	assert.Equal(t, "Hello Webstack!\n", string(onDisk))

	rc, err := adapter.Open(ctx, "blob-1")
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "Hello Webstack!\n", string(content))
	assert.EqualValues(t, 16, rc.Size)

	err = adapter.Create(ctx, "blob-1", strings.NewReader("again"), 5)
	assert.ErrorIs(t, err, metadata.ErrAlreadyExists)

	require.NoError(t, adapter.Delete(ctx, "blob-1"))
	_, err = adapter.Open(ctx, "blob-1")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
	assert.ErrorIs(t, adapter.Delete(ctx, "blob-1"), metadata.ErrNotFound)
}

func TestLocalFSAdapter_RejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewLocalFSAdapter(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b"} {
		_, err := adapter.Open(ctx, key)
		assert.ErrorIs(t, err, pathutil.ErrInvalidKey, key)
		assert.ErrorIs(t, adapter.Create(ctx, key, strings.NewReader("x"), 1), pathutil.ErrInvalidKey, key)
	}
}

func TestNewLocalFSAdapter_RootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewLocalFSAdapter(file)
	assert.Error(t, err)
}
