//go:build integration

package search

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

// setupSearchCluster starts an OpenSearch container (REST-API compatible
// with Elasticsearch 7.x, the dialect the go-elasticsearch/v7 client speaks)
// with its security plugin disabled, grounded on the OpenSearch testcontainer
// helper.
func setupSearchCluster(t *testing.T) *Backend {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "opensearchproject/opensearch:3.0.0",
			ExposedPorts: []string{"9200/tcp"},
			Env: map[string]string{
				"OPENSEARCH_JAVA_OPTS":       "-Xms512m -Xmx512m",
				"discovery.type":             "single-node",
				"DISABLE_SECURITY_PLUGIN":    "true",
				"DISABLE_INSTALL_DEMO_CONFIG": "true",
			},
			WaitingFor: wait.ForHTTP("/").WithPort("9200/tcp").WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9200")
	require.NoError(t, err)

	b, err := New(Settings{
		Hosts:        []string{fmt.Sprintf("http://%s:%s", host, port.Port())},
		DefaultIndex: "statements",
	})
	require.NoError(t, err)
	return b
}

func TestElasticsearchStatusOK(t *testing.T) {
	b := setupSearchCluster(t)
	require.Equal(t, backend.OK, b.Status())
}

func TestElasticsearchWriteIndexesDocuments(t *testing.T) {
	b := setupSearchCluster(t)
	ctx := context.Background()

	n, err := b.Write(ctx, []backend.Record{
		{Doc: map[string]interface{}{"id": "s1", "timestamp": "2022-01-01T00:00:00Z", "verb": "answered"}},
	}, backend.WriteOptions{OperationType: backend.OperationIndex})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestElasticsearchWriteRejectsAppend(t *testing.T) {
	b := setupSearchCluster(t)
	_, err := b.Write(context.Background(), nil, backend.WriteOptions{OperationType: backend.OperationAppend})
	require.Error(t, err)
}

func TestElasticsearchListReturnsWrittenIndex(t *testing.T) {
	b := setupSearchCluster(t)
	ctx := context.Background()

	_, err := b.Write(ctx, []backend.Record{
		{Doc: map[string]interface{}{"id": "s1", "timestamp": "2022-01-01T00:00:00Z"}},
	}, backend.WriteOptions{OperationType: backend.OperationIndex})
	require.NoError(t, err)

	names, err := b.List(ctx, "")
	require.NoError(t, err)
	require.Contains(t, names, "statements")
}

func TestElasticsearchQueryStatementsRoundTrip(t *testing.T) {
	b := setupSearchCluster(t)
	ctx := context.Background()

	n, err := b.Write(ctx, []backend.Record{
		{Doc: map[string]interface{}{
			"id":        "s1",
			"timestamp": "2023-02-17T16:55:17.721627Z",
			"actor":     map[string]interface{}{"mbox": "mailto:a@example.com"},
			"verb":      map[string]interface{}{"id": "http://adlnet.gov/expapi/verbs/answered"},
			"object":    map[string]interface{}{"id": "http://example.com/activity"},
		}},
	}, backend.WriteOptions{OperationType: backend.OperationIndex})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	result, err := b.QueryStatements(ctx, query.Params{Verb: "http://adlnet.gov/expapi/verbs/answered", Ascending: true})
	require.NoError(t, err)
	require.Len(t, result.Statements, 1)
	require.Equal(t, "s1", result.Statements[0].ID)
}
