// Package pathutil maps blob keys onto filesystem paths without letting a
// key escape its storage root.
package pathutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty, contain separators,
// traversal elements or control characters.
var ErrInvalidKey = errors.New("invalid blob key")

// ValidateKey checks that key is a single, flat path element.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return ErrInvalidKey
	}

	if strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}

	// null bytes and control characters
	for _, char := range key {
		if char < 32 || char == 127 {
			return ErrInvalidKey
		}
	}
	return nil
}

// SafeJoin joins root and key, and rejects the result when it does not
// resolve to a direct child of root, following symlinks when the target
// already exists.
func SafeJoin(root, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	cleanRoot := filepath.Clean(root)
	joined := filepath.Join(cleanRoot, key)

	if filepath.Dir(joined) != cleanRoot {
		return "", ErrInvalidKey
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		// target does not exist yet
		return joined, nil
	}

	resolvedRoot, err := filepath.EvalSymlinks(cleanRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve storage root: %w", err)
	}

	rel, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return joined, nil
}
