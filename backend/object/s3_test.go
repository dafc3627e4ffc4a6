package object

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/ralpherr"
)

func TestWriteRejectsAppendBeforeTouchingClient(t *testing.T) {
	b := New(Settings{})
	_, err := b.Write(context.Background(), "bucket", "key", nil, backend.OperationAppend)
	require.Error(t, err)
	kind, ok := ralpherr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ralpherr.NotSupported, kind)
}

func TestWriteRejectsDeleteBeforeTouchingClient(t *testing.T) {
	b := New(Settings{})
	_, err := b.Write(context.Background(), "bucket", "key", nil, backend.OperationDelete)
	require.Error(t, err)
	kind, ok := ralpherr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ralpherr.NotSupported, kind)
}

// fakeS3 stands in for the S3 REST surface (HeadObject/PutObject) through
// ensureClient's BaseEndpoint + UsePathStyle support, so the overwrite-
// refusal path can be exercised without a real S3-compatible service.
func fakeS3(t *testing.T, exists bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			if exists {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case http.MethodPut:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
}

func TestWriteRefusesOverwriteOnCreateWhenKeyExists(t *testing.T) {
	srv := fakeS3(t, true)
	defer srv.Close()

	b := New(Settings{Endpoint: srv.URL, Region: "us-east-1", DefaultBucket: "statements"})
	n, err := b.Write(context.Background(), "statements", "new-archive.gz", []byte("data"), backend.OperationCreate)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	kind, ok := ralpherr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ralpherr.NotSupported, kind)
	assert.Contains(t, err.Error(), "new-archive.gz")
	assert.Contains(t, err.Error(), string(backend.OperationCreate))
}

func TestWriteAllowsCreateWhenKeyIsNew(t *testing.T) {
	srv := fakeS3(t, false)
	defer srv.Close()

	b := New(Settings{Endpoint: srv.URL, Region: "us-east-1", DefaultBucket: "statements"})
	n, err := b.Write(context.Background(), "statements", "new-archive.gz", []byte("data"), backend.OperationCreate)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPolicyAcceptsCreateIndexUpdateOnly(t *testing.T) {
	p := backend.ObjectStorePolicy
	assert.True(t, p.Accepts(backend.OperationCreate))
	assert.True(t, p.Accepts(backend.OperationIndex))
	assert.True(t, p.Accepts(backend.OperationUpdate))
	assert.False(t, p.Accepts(backend.OperationAppend))
	assert.False(t, p.Accepts(backend.OperationDelete))
}
