package edx

import "testing"

func TestORAEventFieldsValid(t *testing.T) {
	f := ORAEventFields{
		CourseID: "course-v1:org+course+run",
		ItemID:   "block-v1:org+course+run+type@openassessment+block@0123456789abcdef0123456789abcdef",
	}
	if !f.Valid() {
		t.Fatal("expected a well-formed ORA item_id to validate")
	}
}

func TestORAEventFieldsRejectsMalformedItemID(t *testing.T) {
	f := ORAEventFields{CourseID: "course-v1:org+course+run", ItemID: "not-a-block-id"}
	if f.Valid() {
		t.Fatal("expected a malformed item_id to fail validation")
	}
}

func TestORAEventFieldsRejectsOverlongCourseID(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	f := ORAEventFields{
		CourseID: string(long),
		ItemID:   "block-v1:org+course+run+type@openassessment+block@0123456789abcdef0123456789abcdef",
	}
	if f.Valid() {
		t.Fatal("expected a course_id over 255 chars to fail validation")
	}
}
