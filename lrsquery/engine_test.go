package lrsquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

func TestExtractCursorEmptyResult(t *testing.T) {
	token, pit := ExtractCursor(nil)
	assert.Equal(t, "", token)
	assert.Equal(t, "", pit)
}

func TestExtractCursorUsesLastRow(t *testing.T) {
	rows := []Row{
		{EventID: "a", EmissionTime: mustParse(t, "2022-01-01T00:00:00Z")},
		{EventID: "b", EmissionTime: mustParse(t, "2022-01-01T00:00:01Z")},
	}
	token, pit := ExtractCursor(rows)
	assert.Equal(t, "2022-01-01T00:00:01.000000", token)
	assert.Equal(t, "b", pit)
}

func TestCompareOp(t *testing.T) {
	assert.Equal(t, ">", CompareOp(true))
	assert.Equal(t, "<", CompareOp(false))
}

func TestSortRowsAscending(t *testing.T) {
	rows := []Row{
		{EventID: "b", EmissionTime: mustParse(t, "2022-01-01T00:00:01Z")},
		{EventID: "a", EmissionTime: mustParse(t, "2022-01-01T00:00:00Z")},
	}
	SortRows(rows, true)
	assert.Equal(t, "a", rows[0].EventID)
	assert.Equal(t, "b", rows[1].EventID)
}

func TestSortRowsTiesBrokenByEventID(t *testing.T) {
	ts := mustParse(t, "2022-01-01T00:00:00Z")
	rows := []Row{
		{EventID: "z", EmissionTime: ts},
		{EventID: "a", EmissionTime: ts},
	}
	SortRows(rows, true)
	assert.Equal(t, "a", rows[0].EventID)
	assert.Equal(t, "z", rows[1].EventID)
}

func TestMatchesSearchAfterAscending(t *testing.T) {
	cursor := mustParse(t, "2022-01-01T00:00:00Z")
	later := Row{EventID: "x", EmissionTime: mustParse(t, "2022-01-01T00:00:01Z")}
	assert.True(t, MatchesSearchAfter(later, cursor, "pit", true))

	tied := Row{EventID: "zzz", EmissionTime: cursor}
	assert.True(t, MatchesSearchAfter(tied, cursor, "aaa", true))
	assert.False(t, MatchesSearchAfter(tied, cursor, "zzzz", true))

	earlier := Row{EventID: "x", EmissionTime: mustParse(t, "2021-01-01T00:00:00Z")}
	assert.False(t, MatchesSearchAfter(earlier, cursor, "pit", true))
}

func TestMatchesSearchAfterDescending(t *testing.T) {
	cursor := mustParse(t, "2022-01-01T00:00:00Z")
	earlier := Row{EventID: "x", EmissionTime: mustParse(t, "2021-01-01T00:00:00Z")}
	assert.True(t, MatchesSearchAfter(earlier, cursor, "pit", false))
}
