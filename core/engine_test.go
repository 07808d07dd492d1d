package core

import (
	"context"
	"encoding/base64"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/backends/localfs"
	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/locks"
	"github.com/ebogdum/filesmanager/metadata"
	"github.com/ebogdum/filesmanager/metadata/sqlite"
	"github.com/ebogdum/filesmanager/sessions"
)

type testEnv struct {
	engine *Engine
	store  metadata.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	store, err := sqlite.NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	storage, err := localfs.NewLocalFSAdapter(t.TempDir())
	require.NoError(t, err)

	verifier := auth.NewCredentialVerifier(store, bcrypt.MinCost, logger)
	engine := NewEngine(
		metadata.Instrument(store),
		storage,
		"localfs",
		sessions.NewMemoryStore(),
		locks.NewLocalManager(),
		verifier,
		auth.NewOwnerAuthorizer(),
		logger,
	)
	return &testEnv{engine: engine, store: store}
}

func (env *testEnv) register(t *testing.T, email string) auth.Principal {
	t.Helper()
	user, err := env.engine.Register(context.Background(), email, "toto1234!")
	require.NoError(t, err)
	return auth.Principal{User: user}
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Message
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestEngine_Register(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.engine.Register(ctx, "", "pw")
	assert.Equal(t, "Missing email", validationMessage(t, err))

	_, err = env.engine.Register(ctx, "bob@dylan.com", "")
	assert.Equal(t, "Missing password", validationMessage(t, err))

	user, err := env.engine.Register(ctx, "bob@dylan.com", "toto1234!")
	require.NoError(t, err)
	assert.Equal(t, "bob@dylan.com", user.Email)
	assert.NotEqual(t, "toto1234!", user.PasswordDigest)

	_, err = env.engine.Register(ctx, "bob@dylan.com", "other")
	assert.Equal(t, "Already exist", validationMessage(t, err))
}

func TestEngine_RegisterConcurrentSameEmail(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.engine.Register(context.Background(), "race@dylan.com", "pw"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	stats, err := env.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Users)
}

func TestEngine_UploadValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.register(t, "bob@dylan.com")
	other := env.register(t, "alice@dylan.com")

	file, err := env.engine.Upload(ctx, owner, UploadRequest{Name: "a.txt", Type: "file", Data: b64("hello")})
	require.NoError(t, err)
	foreignFolder, err := env.engine.Upload(ctx, other, UploadRequest{Name: "theirs", Type: "folder"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     UploadRequest
		message string
	}{
		{"missing name", UploadRequest{Type: "file", Data: b64("x")}, "Missing name"},
		{"missing type", UploadRequest{Name: "x"}, "Missing or invalid type"},
		{"invalid type", UploadRequest{Name: "x", Type: "video", Data: b64("x")}, "Missing or invalid type"},
		{"missing data", UploadRequest{Name: "x", Type: "image"}, "Missing data"},
		{"unknown parent", UploadRequest{Name: "x", Type: "folder", ParentID: string(metadata.NewID())}, "Parent not found"},
		{"malformed parent", UploadRequest{Name: "x", Type: "folder", ParentID: "12"}, "Parent not found"},
		{"parent owned by someone else", UploadRequest{Name: "x", Type: "folder", ParentID: string(foreignFolder.ID)}, "Parent not found"},
		{"parent is a file", UploadRequest{Name: "x", Type: "folder", ParentID: string(file.ID)}, "Parent is not a folder"},
		{"bad base64", UploadRequest{Name: "x", Type: "file", Data: "%%%"}, "Invalid data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.Upload(ctx, owner, tt.req)
			assert.Equal(t, tt.message, validationMessage(t, err))
		})
	}
}

func TestEngine_UploadFolderTree(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.register(t, "bob@dylan.com")

	folder, err := env.engine.Upload(ctx, owner, UploadRequest{Name: "images", Type: "folder", ParentID: "0"})
	require.NoError(t, err)
	assert.Equal(t, metadata.RootID, folder.ParentID)
	assert.Empty(t, folder.BlobKey)

	image, err := env.engine.Upload(ctx, owner, UploadRequest{
		Name:     "image.png",
		Type:     "image",
		ParentID: string(folder.ID),
		IsPublic: true,
		Data:     b64("\x89PNG"),
	})
	require.NoError(t, err)
	assert.Equal(t, folder.ID, image.ParentID)
	assert.True(t, image.IsPublic)
	assert.NotEmpty(t, image.BlobKey)

	children, err := env.engine.ListFiles(ctx, owner, string(folder.ID), "")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, image.ID, children[0].ID)

	root, err := env.engine.ListFiles(ctx, owner, "", "0")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, folder.ID, root[0].ID)
}

func TestEngine_ListFilesPaging(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.register(t, "bob@dylan.com")
	other := env.register(t, "alice@dylan.com")

	for i := 0; i < 25; i++ {
		_, err := env.engine.Upload(ctx, owner, UploadRequest{Name: "f" + strconv.Itoa(i), Type: "folder"})
		require.NoError(t, err)
	}
	_, err := env.engine.Upload(ctx, other, UploadRequest{Name: "not-mine", Type: "folder"})
	require.NoError(t, err)

	page0, err := env.engine.ListFiles(ctx, owner, "", "0")
	require.NoError(t, err)
	assert.Len(t, page0, DefaultPageSize)

	page1, err := env.engine.ListFiles(ctx, owner, "", "1")
	require.NoError(t, err)
	assert.Len(t, page1, 5)

	page2, err := env.engine.ListFiles(ctx, owner, "", "2")
	require.NoError(t, err)
	assert.Empty(t, page2)

	garbage, err := env.engine.ListFiles(ctx, owner, "", "abc")
	require.NoError(t, err)
	assert.Len(t, garbage, DefaultPageSize)

	for _, rawPage := range []string{"922337203685477580", "9223372036854775807"} {
		far, err := env.engine.ListFiles(ctx, owner, "", rawPage)
		require.NoError(t, err)
		assert.Empty(t, far, "page %s", rawPage)
	}

	negative, err := env.engine.ListFiles(ctx, owner, "", "-3")
	require.NoError(t, err)
	assert.Len(t, negative, DefaultPageSize)

	unknownParent, err := env.engine.ListFiles(ctx, owner, "not-an-id", "0")
	require.NoError(t, err)
	assert.Empty(t, unknownParent)
}

func TestEngine_GetFileAndPublish(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.register(t, "bob@dylan.com")
	stranger := env.register(t, "alice@dylan.com")

	file, err := env.engine.Upload(ctx, owner, UploadRequest{Name: "a.txt", Type: "file", Data: b64("hello")})
	require.NoError(t, err)

	got, err := env.engine.GetFile(ctx, owner, string(file.ID))
	require.NoError(t, err)
	assert.Equal(t, file.Name, got.Name)

	_, err = env.engine.GetFile(ctx, stranger, string(file.ID))
	assert.ErrorIs(t, err, metadata.ErrNotFound)
	_, err = env.engine.GetFile(ctx, owner, "garbage")
	assert.ErrorIs(t, err, metadata.ErrNotFound)

	published, err := env.engine.Publish(ctx, owner, string(file.ID))
	require.NoError(t, err)
	assert.True(t, published.IsPublic)

	_, err = env.engine.Unpublish(ctx, stranger, string(file.ID))
	assert.ErrorIs(t, err, metadata.ErrNotFound)

	unpublished, err := env.engine.Unpublish(ctx, owner, string(file.ID))
	require.NoError(t, err)
	assert.False(t, unpublished.IsPublic)

	stored, err := env.store.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPublic)
}

func TestEngine_Content(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.register(t, "bob@dylan.com")
	stranger := env.register(t, "alice@dylan.com")

	file, err := env.engine.Upload(ctx, owner, UploadRequest{Name: "hello.txt", Type: "file", Data: b64("Hello Webstack!\n")})
	require.NoError(t, err)
	folder, err := env.engine.Upload(ctx, owner, UploadRequest{Name: "docs", Type: "folder"})
	require.NoError(t, err)

	rc, got, err := env.engine.Content(ctx, owner, string(file.ID))
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "Hello Webstack!\n", string(content))
	assert.EqualValues(t, len("Hello Webstack!\n"), rc.Size)
	assert.Equal(t, file.ID, got.ID)

	_, _, err = env.engine.Content(ctx, owner, string(folder.ID))
	assert.Equal(t, "A folder doesn't have content", validationMessage(t, err))

	_, _, err = env.engine.Content(ctx, stranger, string(file.ID))
	assert.ErrorIs(t, err, metadata.ErrNotFound)
	_, _, err = env.engine.Content(ctx, auth.Principal{}, string(file.ID))
	assert.ErrorIs(t, err, metadata.ErrNotFound)

	_, err = env.engine.Publish(ctx, owner, string(file.ID))
	require.NoError(t, err)

	rc, _, err = env.engine.Content(ctx, auth.Principal{}, string(file.ID))
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}

func TestEngine_StatsAndStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.register(t, "bob@dylan.com")

	_, err := env.engine.Upload(ctx, owner, UploadRequest{Name: "docs", Type: "folder"})
	require.NoError(t, err)

	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Users: 1, Files: 1}, stats)

	assert.Equal(t, Status{Redis: true, DB: true}, env.engine.Status(ctx))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("image.png"))
	assert.Contains(t, ContentType("hello.txt"), "text/plain")
	assert.Equal(t, "application/octet-stream", ContentType("noext"))
}
