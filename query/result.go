package query

import "github.com/evalgo/ralph-go/xapi"

// Result is the paginated outcome of a statement query: the matching
// statements plus the composite cursor needed to resume iteration.
type Result struct {
	Statements       []xapi.Statement
	ContinuationToken string // opaque; encodes emission_time of the last row
	PointInTime       string // opaque; encodes event_id of the last row
}
