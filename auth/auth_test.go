package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
	"github.com/ebogdum/filesmanager/sessions"
)

// fakeDirectory is an in-memory UserLookup and FileLookup.
type fakeDirectory struct {
	users   map[metadata.ID]*metadata.User
	files   map[metadata.ID]*metadata.File
	failErr error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: make(map[metadata.ID]*metadata.User),
		files: make(map[metadata.ID]*metadata.File),
	}
}

func (d *fakeDirectory) GetUserByID(ctx context.Context, id metadata.ID) (*metadata.User, error) {
	if d.failErr != nil {
		return nil, d.failErr
	}
	u, ok := d.users[id]
	if !ok {
		return nil, metadata.ErrNotFound
	}
	return u, nil
}

func (d *fakeDirectory) GetUserByEmail(ctx context.Context, email string) (*metadata.User, error) {
	if d.failErr != nil {
		return nil, d.failErr
	}
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, metadata.ErrNotFound
}

func (d *fakeDirectory) GetFile(ctx context.Context, id metadata.ID) (*metadata.File, error) {
	if d.failErr != nil {
		return nil, d.failErr
	}
	f, ok := d.files[id]
	if !ok {
		return nil, metadata.ErrNotFound
	}
	return f, nil
}

func (d *fakeDirectory) addUser(t *testing.T, email, password string) *metadata.User {
	t.Helper()
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &metadata.User{ID: metadata.NewID(), Email: email, PasswordDigest: string(digest)}
	d.users[u.ID] = u
	return u
}

// failingSessions fails every call.
type failingSessions struct{}

func (failingSessions) Set(context.Context, string, string, time.Duration) error {
	return apperr.Infra("sessions.set", errors.New("connection refused"))
}
func (failingSessions) Get(context.Context, string) (string, bool, error) {
	return "", false, apperr.Infra("sessions.get", errors.New("connection refused"))
}
func (failingSessions) Del(context.Context, string) error {
	return apperr.Infra("sessions.del", errors.New("connection refused"))
}
func (failingSessions) Ping(context.Context) error { return errors.New("connection refused") }
func (failingSessions) Close() error               { return nil }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCredentialVerifier_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	user := dir.addUser(t, "bob@dylan.com", "toto1234!")
	v := NewCredentialVerifier(dir, bcrypt.MinCost, zap.NewNop())

	id, err := v.Verify(ctx, "bob@dylan.com", "toto1234!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, unknownErr := v.Verify(ctx, "nobody@dylan.com", "toto1234!")
	_, wrongErr := v.Verify(ctx, "bob@dylan.com", "wrong")
	assert.Equal(t, ErrUnauthenticated, unknownErr)
	assert.Equal(t, ErrUnauthenticated, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestCredentialVerifier_StoreFailureIsInfrastructure(t *testing.T) {
	dir := newFakeDirectory()
	dir.failErr = errors.New("db down")
	v := NewCredentialVerifier(dir, bcrypt.MinCost, zap.NewNop())

	_, err := v.Verify(context.Background(), "bob@dylan.com", "pw")
	require.Error(t, err)
	assert.True(t, apperr.IsInfrastructure(err))
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestCredentialVerifier_HashPassword(t *testing.T) {
	v := NewCredentialVerifier(newFakeDirectory(), bcrypt.MinCost, zap.NewNop())

	digest, err := v.HashPassword("toto1234!")
	require.NoError(t, err)
	assert.NotEqual(t, "toto1234!", digest)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(digest), []byte("toto1234!")))
}

func TestTokenAuthority_IssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	authority := NewTokenAuthority(store, DefaultTokenTTL, zap.NewNop())
	id := metadata.NewID()

	token, err := authority.Issue(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	value, found, err := store.Get(ctx, "auth_"+token)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, string(id), value)

	resolved, err := authority.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)

	require.NoError(t, authority.Revoke(ctx, token))
	_, err = authority.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// second revoke is a no-op
	assert.NoError(t, authority.Revoke(ctx, token))
	assert.NoError(t, authority.Revoke(ctx, ""))
}

func TestTokenAuthority_TokensAreDistinct(t *testing.T) {
	ctx := context.Background()
	authority := NewTokenAuthority(sessions.NewMemoryStore(), DefaultTokenTTL, zap.NewNop())
	id := metadata.NewID()

	first, err := authority.Issue(ctx, id)
	require.NoError(t, err)
	second, err := authority.Issue(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// revoking one session leaves the other intact
	require.NoError(t, authority.Revoke(ctx, first))
	resolved, err := authority.Resolve(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestTokenAuthority_Expiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	authority := NewTokenAuthority(sessions.NewMemoryStoreWithClock(c.Now), DefaultTokenTTL, zap.NewNop())
	id := metadata.NewID()

	token, err := authority.Issue(ctx, id)
	require.NoError(t, err)

	c.Advance(86400*time.Second - time.Second)
	resolved, err := authority.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)

	c.Advance(time.Second)
	_, err = authority.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenAuthority_ResolveRejections(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	authority := NewTokenAuthority(store, DefaultTokenTTL, zap.NewNop())

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "unknown", token: "garbage-unknown-token"},
		{name: "corrupted entry", token: "corrupted"},
	}
	require.NoError(t, store.Set(ctx, "auth_corrupted", "not-an-id", time.Hour))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authority.Resolve(ctx, tt.token)
			assert.Equal(t, ErrUnauthenticated, err)
		})
	}
}

func TestTokenAuthority_StoreFailure(t *testing.T) {
	ctx := context.Background()
	authority := NewTokenAuthority(failingSessions{}, DefaultTokenTTL, zap.NewNop())

	_, err := authority.Issue(ctx, metadata.NewID())
	assert.True(t, apperr.IsInfrastructure(err))

	_, err = authority.Resolve(ctx, "some-token")
	require.Error(t, err)
	assert.True(t, apperr.IsInfrastructure(err))
	assert.NotErrorIs(t, err, ErrUnauthenticated)

	assert.True(t, apperr.IsInfrastructure(authority.Revoke(ctx, "some-token")))
}

func TestParseBasicAuth(t *testing.T) {
	encode := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name     string
		header   string
		email    string
		password string
		wantErr  bool
	}{
		{name: "valid", header: "Basic " + encode("bob@dylan.com:toto1234!"), email: "bob@dylan.com", password: "toto1234!"},
		{name: "password with colon", header: "Basic " + encode("a@b.c:x:y"), email: "a@b.c", password: "x:y"},
		{name: "lowercase scheme", header: "basic " + encode("a@b.c:pw"), email: "a@b.c", password: "pw"},
		{name: "empty", header: "", wantErr: true},
		{name: "wrong scheme", header: "Bearer " + encode("a@b.c:pw"), wantErr: true},
		{name: "no credentials", header: "Basic", wantErr: true},
		{name: "bad base64", header: "Basic !!!", wantErr: true},
		{name: "missing colon", header: "Basic " + encode("a@b.c"), wantErr: true},
		{name: "empty email", header: "Basic " + encode(":pw"), wantErr: true},
		{name: "empty password", header: "Basic " + encode("a@b.c:"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, password, err := ParseBasicAuth(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, email)
			assert.Equal(t, tt.password, password)
		})
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	user := dir.addUser(t, "bob@dylan.com", "toto1234!")
	svc := NewService(
		NewCredentialVerifier(dir, bcrypt.MinCost, zap.NewNop()),
		NewTokenAuthority(sessions.NewMemoryStore(), DefaultTokenTTL, zap.NewNop()),
		zap.NewNop(),
	)

	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("bob@dylan.com:toto1234!"))
	token, err := svc.Login(ctx, header)
	require.NoError(t, err)

	id, err := svc.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	bad := "Basic " + base64.StdEncoding.EncodeToString([]byte("bob@dylan.com:nope"))
	_, err = svc.Login(ctx, bad)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
