package column

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/ralpherr"
)

func TestWriteRejectsNonCreateOperation(t *testing.T) {
	b := New(Settings{})
	_, err := b.Write(context.Background(), nil, backend.WriteOptions{OperationType: backend.OperationUpdate})
	require.Error(t, err)
	kind, ok := ralpherr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ralpherr.NotSupported, kind)
}

func TestPolicyOnlyAcceptsCreate(t *testing.T) {
	b := New(Settings{})
	assert.True(t, b.Policy().Accepts(backend.OperationCreate))
	assert.False(t, b.Policy().Accepts(backend.OperationIndex))
	assert.False(t, b.Policy().Accepts(backend.OperationAppend))
}

func TestInsertSQLHasValuesClauseWithFourPlaceholders(t *testing.T) {
	got := insertSQL("xapi_events_all")
	assert.Contains(t, got, "INSERT INTO xapi_events_all (event_id, emission_time, event, event_str)")
	assert.Contains(t, got, "VALUES (?, ?, ?, ?)")
}
