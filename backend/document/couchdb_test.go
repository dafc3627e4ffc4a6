package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evalgo/ralph-go/query"
)

func TestMangoSelectorTranslatesStatementFilters(t *testing.T) {
	since := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	selector := mangoSelector(query.Params{
		AgentAccountName: "alice",
		Verb:             "http://adlnet.gov/expapi/verbs/answered",
		Activity:         "http://example.com/activity",
		Since:            since,
	})

	assert.Equal(t, "alice", selector["actor.account.name"])
	assert.Equal(t, "http://adlnet.gov/expapi/verbs/answered", selector["verb.id"])
	assert.Equal(t, "Activity", selector["object.objectType"])
	assert.Equal(t, "http://example.com/activity", selector["object.id"])
	timestamp, ok := selector["timestamp"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, since.Format(time.RFC3339Nano), timestamp["$gt"])
}

func TestMangoSelectorAddsSearchAfterTieBreak(t *testing.T) {
	selector := mangoSelector(query.Params{SearchAfter: "2022-01-01T00:00:00Z", PitID: "s1", Ascending: true})

	clauses, ok := selector["$or"].([]map[string]interface{})
	assert.True(t, ok)
	assert.Len(t, clauses, 2)
}

func TestMangoSelectorDefaultsToMatchAllWhenEmpty(t *testing.T) {
	selector := mangoSelector(query.Params{})
	_, ok := selector["_id"]
	assert.True(t, ok)
}
