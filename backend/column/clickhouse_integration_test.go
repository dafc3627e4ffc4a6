//go:build integration

package column

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/query"
)

func setupClickHouse(t *testing.T) *Backend {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.8-alpine",
			ExposedPorts: []string{"8123/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":       "default",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
			WaitingFor: wait.ForLog("Ready for connections").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8123")
	require.NoError(t, err)

	b := New(Settings{
		Host:             host,
		Port:             port.Int(),
		Database:         "default",
		EventTableName:   "xapi_events_test",
		DefaultChunkSize: 500,
	})

	_, err = b.client().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS xapi_events_test (
		event_id String,
		emission_time DateTime64(6),
		event String,
		event_str String
	) ENGINE = MergeTree ORDER BY (emission_time, event_id)`)
	require.NoError(t, err)

	return b
}

func statementDoc(id, ts string) backend.Record {
	return backend.Record{Doc: map[string]interface{}{
		"id":        id,
		"timestamp": ts,
		"actor":     map[string]interface{}{"mbox": "mailto:a@example.com"},
		"verb":      map[string]interface{}{"id": "http://adlnet.gov/expapi/verbs/answered"},
		"object":    map[string]interface{}{"id": "http://example.com/activity"},
	}}
}

func TestClickHouseWriteAndQueryStatementsRoundTrip(t *testing.T) {
	b := setupClickHouse(t)
	ctx := context.Background()

	n, err := b.Write(ctx, []backend.Record{statementDoc("s1", "2023-02-17T16:55:17.721627Z")},
		backend.WriteOptions{OperationType: backend.OperationCreate})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	result, err := b.QueryStatements(ctx, query.Params{Limit: 10, Ascending: true})
	require.NoError(t, err)
	require.Len(t, result.Statements, 1)
	assert.Equal(t, "s1", result.Statements[0].ID)
}

// TestClickHouseSameTimestampPaginationTieBreak implements scenario S1:
// three rows, two sharing an emission_time, paged through with limit=1 and
// the cursor fed forward twice, must come back in (emission_time, event_id)
// ascending order with the tie broken by event_id.
func TestClickHouseSameTimestampPaginationTieBreak(t *testing.T) {
	b := setupClickHouse(t)
	ctx := context.Background()

	records := []backend.Record{
		statementDoc("9ec", "2023-02-17T16:55:17.721627Z"),
		statementDoc("f98", "2023-02-17T16:55:14.721633Z"),
		statementDoc("afc", "2023-02-17T16:55:14.721633Z"),
	}
	n, err := b.Write(ctx, records, backend.WriteOptions{OperationType: backend.OperationCreate})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	var seen []string
	params := query.Params{Limit: 1, Ascending: true}
	for i := 0; i < 3; i++ {
		result, err := b.QueryStatements(ctx, params)
		require.NoError(t, err)
		require.Len(t, result.Statements, 1)
		seen = append(seen, result.Statements[0].ID)
		params.SearchAfter = result.ContinuationToken
		params.PitID = result.PointInTime
	}

	assert.Equal(t, []string{"afc", "f98", "9ec"}, seen)
}
