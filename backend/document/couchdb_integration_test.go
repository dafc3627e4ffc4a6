//go:build integration

package document

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/query"
)

func setupCouchDB(t *testing.T) *CouchDBBackend {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "couchdb:3",
			ExposedPorts: []string{"5984/tcp"},
			Env: map[string]string{
				"COUCHDB_USER":     "admin",
				"COUCHDB_PASSWORD": "admin",
			},
			WaitingFor: wait.ForHTTP("/_up").WithPort("5984/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5984")
	require.NoError(t, err)

	url := fmt.Sprintf("http://admin:admin@%s:%s", host, port.Port())
	b, err := NewCouchDB(Settings{URL: url, DefaultDatabase: "statements"})
	require.NoError(t, err)

	if err := b.client.DB("statements").Err(); err != nil {
		require.NoError(t, b.client.CreateDB(ctx, "statements"))
	}
	return b
}

func TestCouchDBWriteAndReadRoundTrip(t *testing.T) {
	b := setupCouchDB(t)
	ctx := context.Background()

	n, err := b.Write(ctx, []backend.Record{
		{Doc: map[string]interface{}{"id": "s1", "timestamp": "2022-01-01T00:00:00Z", "verb": "answered"}},
	}, backend.WriteOptions{OperationType: backend.OperationCreate})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	doc, err := b.Read(ctx, "", "s1")
	require.NoError(t, err)
	require.Equal(t, "answered", doc["verb"])
}

func TestCouchDBStatusOK(t *testing.T) {
	b := setupCouchDB(t)
	require.Equal(t, backend.OK, b.Status())
}

func TestCouchDBListReturnsWrittenDocumentID(t *testing.T) {
	b := setupCouchDB(t)
	ctx := context.Background()

	_, err := b.Write(ctx, []backend.Record{
		{Doc: map[string]interface{}{"id": "s1", "timestamp": "2022-01-01T00:00:00Z", "verb": "answered"}},
	}, backend.WriteOptions{OperationType: backend.OperationCreate})
	require.NoError(t, err)

	ids, err := b.List(ctx, "")
	require.NoError(t, err)
	require.Contains(t, ids, "s1")
}

func TestCouchDBQueryStatementsRoundTrip(t *testing.T) {
	b := setupCouchDB(t)
	ctx := context.Background()

	_, err := b.Write(ctx, []backend.Record{
		{Doc: map[string]interface{}{
			"id":        "s1",
			"timestamp": "2023-02-17T16:55:17.721627Z",
			"actor":     map[string]interface{}{"mbox": "mailto:a@example.com"},
			"verb":      map[string]interface{}{"id": "http://adlnet.gov/expapi/verbs/answered"},
			"object":    map[string]interface{}{"id": "http://example.com/activity"},
		}},
	}, backend.WriteOptions{OperationType: backend.OperationCreate})
	require.NoError(t, err)

	result, err := b.QueryStatements(ctx, query.Params{Verb: "http://adlnet.gov/expapi/verbs/answered", Ascending: true})
	require.NoError(t, err)
	require.Len(t, result.Statements, 1)
	require.Equal(t, "s1", result.Statements[0].ID)
}
