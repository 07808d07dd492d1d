package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/config"
	"github.com/ebogdum/filesmanager/metadata"
)

// fakeS3 serves the path-style subset of the S3 API the adapter uses.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != f.bucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}

	switch {
	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusInternalServerError, "InternalError")
			return
		}
		f.objects[key] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>`+code+`</Message></Error>`)
}

func newTestAdapter(t *testing.T, bucket string) (*S3Adapter, *fakeS3, error) {
	t.Helper()
	fake := &fakeS3{bucket: "files", objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	adapter, err := NewS3Adapter(config.BackendConfig{
		S3BucketName: bucket,
		S3Region:     "us-east-1",
		S3AccessKey:  "test",
		S3SecretKey:  "test",
		S3Endpoint:   srv.URL,
		S3KeyPrefix:  "blobs-",
	}, zap.NewNop())
	return adapter, fake, err
}

func TestS3Adapter_CreateOpenDelete(t *testing.T) {
	ctx := context.Background()
	adapter, fake, err := newTestAdapter(t, "files")
	require.NoError(t, err)

	require.NoError(t, adapter.Create(ctx, "blob-1", strings.NewReader("Hello Webstack!\n"), 16))
	assert.Equal(t, "Hello Webstack!\n", string(fake.objects["blobs-blob-1"]))

	rc, err := adapter.Open(ctx, "blob-1")
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "Hello Webstack!\n", string(content))
	assert.EqualValues(t, 16, rc.Size)

	require.NoError(t, adapter.Delete(ctx, "blob-1"))
	_, err = adapter.Open(ctx, "blob-1")
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestNewS3Adapter_MissingBucket(t *testing.T) {
	_, _, err := newTestAdapter(t, "other")
	assert.Error(t, err)

	_, err = NewS3Adapter(config.BackendConfig{}, zap.NewNop())
	assert.Error(t, err)
}
