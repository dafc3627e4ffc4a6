// Package lrsquery translates the query parameter model into a
// backend-native predicate and returns a paginated Result with the
// composite continuation cursor (spec §4.5-4.6).
package lrsquery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/evalgo/ralph-go/query"
	"github.com/evalgo/ralph-go/ralpherr"
	"github.com/evalgo/ralph-go/xapi"
)

// Engine is implemented once per backend family; each translates the same
// query.Params into that backend's native predicate.
type Engine interface {
	QueryStatements(ctx context.Context, params query.Params) (query.Result, error)
}

// Row is the generic (event_id, emission_time, event) projection every
// Engine implementation queries and sorts over; concrete backends adapt
// their native result shape to this before cursor extraction.
type Row struct {
	EventID      string
	EmissionTime time.Time
	Event        map[string]interface{}
}

// ExtractCursor implements the cursor-emission rule shared by every
// backend (spec §4.5): from the last returned row, the emission_time (as
// ISO-8601 with microseconds) becomes the continuation token and the
// event_id becomes the point-in-time. An empty result yields ("", "").
func ExtractCursor(rows []Row) (continuationToken, pointInTime string) {
	if len(rows) == 0 {
		return "", ""
	}
	last := rows[len(rows)-1]
	return last.EmissionTime.Format("2006-01-02T15:04:05.000000"), last.EventID
}

// CompareOp returns the comparison operator the search_after predicate
// uses: '>' ascending, '<' descending, per spec §4.5.
func CompareOp(ascending bool) string {
	if ascending {
		return ">"
	}
	return "<"
}

// SortRows orders rows by (emission_time, event_id) in the requested
// direction, the primary sort key shared by every backend (spec §3, §4.5).
func SortRows(rows []Row, ascending bool) {
	less := func(i, j int) bool {
		if !rows[i].EmissionTime.Equal(rows[j].EmissionTime) {
			if ascending {
				return rows[i].EmissionTime.Before(rows[j].EmissionTime)
			}
			return rows[i].EmissionTime.After(rows[j].EmissionTime)
		}
		if ascending {
			return rows[i].EventID < rows[j].EventID
		}
		return rows[i].EventID > rows[j].EventID
	}
	insertionSort(rows, less)
}

func insertionSort(rows []Row, less func(i, j int) bool) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}

// DecodeStatement converts a backend's raw event map back into an
// xapi.Statement. Every backend stores the statement's own JSON fields
// verbatim (spec §3), so the conversion is a plain encode/decode round
// trip rather than a field-by-field mapping.
func DecodeStatement(event map[string]interface{}) (xapi.Statement, error) {
	var stmt xapi.Statement
	raw, err := json.Marshal(event)
	if err != nil {
		return stmt, ralpherr.Wrap(ralpherr.BadFormat, "failed to encode matched event", err)
	}
	if err := json.Unmarshal(raw, &stmt); err != nil {
		return stmt, ralpherr.Wrap(ralpherr.BadFormat, "failed to decode matched event into a statement", err)
	}
	return stmt, nil
}

// DecodeStatements decodes every row's Event in order, the shape every
// QueryStatements implementation needs to populate query.Result.Statements.
func DecodeStatements(rows []Row) ([]xapi.Statement, error) {
	statements := make([]xapi.Statement, 0, len(rows))
	for _, r := range rows {
		stmt, err := DecodeStatement(r.Event)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// MatchesSearchAfter implements the composite (emission_time, event_id)
// tie-break predicate shared across backends: rows strictly after the
// cursor in the requested direction, with equal-timestamp rows
// disambiguated by event_id.
func MatchesSearchAfter(r Row, searchAfter time.Time, pitID string, ascending bool) bool {
	if ascending {
		if r.EmissionTime.After(searchAfter) {
			return true
		}
		return r.EmissionTime.Equal(searchAfter) && r.EventID > pitID
	}
	if r.EmissionTime.Before(searchAfter) {
		return true
	}
	return r.EmissionTime.Equal(searchAfter) && r.EventID < pitID
}
