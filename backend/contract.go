package backend

import "github.com/evalgo/ralph-go/query"

// ListOptions configures a list() call.
type ListOptions struct {
	Target  string
	Details bool
	New     bool // filter out identifiers already recorded as read in the history journal
}

// ReadOptions configures a read() call.
type ReadOptions struct {
	Query        query.Params
	Target       string
	ChunkSize    int
	RawOutput    bool
	IgnoreErrors bool
}

// WriteOptions configures a write() call.
type WriteOptions struct {
	Target        string
	ChunkSize     int
	IgnoreErrors  bool
	OperationType OperationType
}
