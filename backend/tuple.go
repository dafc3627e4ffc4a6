package backend

import "time"

// Tuple is the per-row shape folded from a raw statement before a bulk
// import call: (event_id, emission_time, event, event_serialized), spec §3.
type Tuple struct {
	EventID          string
	EmissionTime     time.Time
	Event            map[string]interface{}
	EventSerialized  string
}
