package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/query"
)

func TestToActionCreateEmitsMetaAndSourceLines(t *testing.T) {
	doc := map[string]interface{}{"id": "s1"}
	line, err := toAction("statements", "s1", doc, backend.OperationCreate)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(line), "\n"), "\n")
	require.Len(t, lines, 2)

	var meta map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &meta))
	assert.Equal(t, "statements", meta["create"]["_index"])
	assert.Equal(t, "s1", meta["create"]["_id"])
}

func TestToActionUpdateWrapsDocField(t *testing.T) {
	doc := map[string]interface{}{"id": "s1"}
	line, err := toAction("statements", "s1", doc, backend.OperationUpdate)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(line), "\n"), "\n")
	require.Len(t, lines, 2)

	var src map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &src))
	_, ok := src["doc"]
	assert.True(t, ok)
}

func TestToActionDeleteEmitsOnlyMetaLine(t *testing.T) {
	line, err := toAction("statements", "s1", nil, backend.OperationDelete)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(line), "\n"), "\n")
	assert.Len(t, lines, 1)
}

func TestToActionRejectsUnsupportedOperation(t *testing.T) {
	_, err := toAction("statements", "s1", nil, backend.OperationAppend)
	require.Error(t, err)
}

func TestListReturnsIndexNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"statements":{"aliases":{}},"events":{"aliases":{}}}`)
	}))
	defer srv.Close()

	b, err := New(Settings{Hosts: []string{srv.URL}})
	require.NoError(t, err)

	names, err := b.List(context.Background(), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"statements", "events"}, names)
}

func TestQueryStatementsPopulatesStatementsAndCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hits":{"hits":[{"_id":"s1","_source":{"id":"s1","timestamp":"2023-02-17T16:55:17.721627Z","actor":{"mbox":"mailto:a@example.com"},"verb":{"id":"http://adlnet.gov/expapi/verbs/answered"},"object":{"id":"http://example.com/activity"}}}]}}`)
	}))
	defer srv.Close()

	b, err := New(Settings{Hosts: []string{srv.URL}, DefaultIndex: "statements"})
	require.NoError(t, err)

	result, err := b.QueryStatements(context.Background(), query.Params{Ascending: true})
	require.NoError(t, err)
	require.Len(t, result.Statements, 1)
	assert.Equal(t, "s1", result.Statements[0].ID)
	assert.Equal(t, "s1", result.PointInTime)
}
