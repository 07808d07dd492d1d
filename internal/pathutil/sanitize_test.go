package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		shouldError bool
	}{
		{name: "uuid", key: "0f5e1c9a-1111-4222-8333-444455556666"},
		{name: "plain name", key: "blob"},
		{name: "empty", key: "", shouldError: true},
		{name: "dot", key: ".", shouldError: true},
		{name: "dot dot", key: "..", shouldError: true},
		{name: "traversal", key: "../etc/passwd", shouldError: true},
		{name: "nested", key: "a/b", shouldError: true},
		{name: "backslash", key: `a\b`, shouldError: true},
		{name: "null byte", key: "blob\x00.txt", shouldError: true},
		{name: "newline", key: "blob\n", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.shouldError {
				assert.ErrorIs(t, err, ErrInvalidKey)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	joined, err := SafeJoin(root, "blob-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "blob-1"), joined)

	_, err = SafeJoin(root, "../outside")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSafeJoin_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))

	if err := os.Symlink(target, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := SafeJoin(root, "link")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
