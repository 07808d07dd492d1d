package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store, err := NewRedisStoreFromClient(client, "", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestNewRedisStoreRejectsSessionPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	_, err := NewRedisStoreFromClient(client, "auth_meta:", zap.NewNop())
	assert.Error(t, err)
}

func TestRedisStore_Users(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	u := &metadata.User{Email: "a@b.com", PasswordDigest: "digest"}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.True(t, mr.Exists(DefaultPrefix+"user:"+string(u.ID)))

	got, err := store.GetUserByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = store.CreateUser(ctx, &metadata.User{Email: "a@b.com", PasswordDigest: "x"})
	assert.ErrorIs(t, err, metadata.ErrAlreadyExists)

	_, err = store.GetUserByID(ctx, metadata.NewID())
	assert.ErrorIs(t, err, metadata.ErrNotFound)

	n, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRedisStore_Files(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	owner := metadata.NewID()

	var created []metadata.ID
	for i := 0; i < 3; i++ {
		f := &metadata.File{UserID: owner, Name: "f", Type: metadata.TypeFile, BlobKey: "k"}
		require.NoError(t, store.CreateFile(ctx, f))
		created = append(created, f.ID)
	}

	page0, err := store.ListFiles(ctx, metadata.ListFilesQuery{UserID: owner, ParentID: metadata.RootID, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page0, 2)

	page1, err := store.ListFiles(ctx, metadata.ListFilesQuery{UserID: owner, ParentID: metadata.RootID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page1, 1)

	far, err := store.ListFiles(ctx, metadata.ListFilesQuery{UserID: owner, ParentID: metadata.RootID, Page: 922337203685477580, PageSize: 20})
	require.NoError(t, err)
	assert.Empty(t, far)

	f, err := store.GetFile(ctx, created[0])
	require.NoError(t, err)
	f.IsPublic = true
	require.NoError(t, store.UpdateFile(ctx, f))

	again, err := store.GetFile(ctx, created[0])
	require.NoError(t, err)
	assert.True(t, again.IsPublic)
	assert.Equal(t, metadata.RootID, again.ParentID)

	assert.ErrorIs(t, store.UpdateFile(ctx, &metadata.File{ID: metadata.NewID()}), metadata.ErrNotFound)

	n, err := store.CountFiles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestRedisStore_UnreachableIsInfrastructure(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.GetFile(context.Background(), metadata.NewID())
	require.Error(t, err)
	assert.True(t, apperr.IsInfrastructure(err))
	assert.Error(t, store.Ping(context.Background()))
}
