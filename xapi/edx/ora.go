// Package edx implements the edX server-event shapes the catalog
// supplements beyond the core xAPI model, starting with the Open Response
// Assessment (ORA) family: peer_assess, self_assess, get_peer_submission
// and related events.
package edx

import "regexp"

// itemIDPattern is the authoritative validation for ORA item_id fields.
// The source carried two conflicting constraints for this field (a regex
// and, elsewhere, a bare length cap); the regex is the stricter and more
// specific of the two and is treated as authoritative here.
var itemIDPattern = regexp.MustCompile(
	`^block-v1:.+\+.+\+.+type@openassessment\+block@[a-f0-9]{32}$`,
)

// EventType enumerates the ORA event_type literals.
type EventType string

const (
	EventPeerAssess          EventType = "openassessmentblock.peer_assess"
	EventSelfAssess          EventType = "openassessmentblock.self_assess"
	EventStaffAssess         EventType = "openassessmentblock.staff_assess"
	EventGetPeerSubmission   EventType = "openassessmentblock.get_peer_submission"
	EventCreateSubmission    EventType = "openassessmentblock.create_submission"
	EventSaveSubmission      EventType = "openassessmentblock.save_submission"
	EventSubmitFeedback      EventType = "openassessmentblock.submit_feedback_on_assessments"
	EventUploadFile          EventType = "openassessment.upload_file"
)

// ORAEventFields carries the fields common to every ORA event shape.
type ORAEventFields struct {
	CourseID string `json:"course_id"` // max length 255
	ItemID   string `json:"item_id"`
}

// Valid checks the ORA-specific field constraints: course_id length and
// item_id against the canonical regex.
func (f ORAEventFields) Valid() bool {
	if len(f.CourseID) > 255 {
		return false
	}
	return itemIDPattern.MatchString(f.ItemID)
}

// ORAPeerAssess models openassessmentblock.peer_assess.
type ORAPeerAssess struct {
	EventType EventType      `json:"event_type"`
	EventData ORAEventFields `json:"event"`
}

// ORASelfAssess models openassessmentblock.self_assess.
type ORASelfAssess struct {
	EventType EventType      `json:"event_type"`
	EventData ORAEventFields `json:"event"`
}

// ORAGetPeerSubmission models openassessmentblock.get_peer_submission.
type ORAGetPeerSubmission struct {
	EventType EventType      `json:"event_type"`
	EventData ORAEventFields `json:"event"`
}
