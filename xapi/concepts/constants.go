// Package concepts holds verb, activity-type and extension IRI constants,
// one group of constants per xAPI/edX profile. The selectors registered in
// catalog.DefaultCatalog do not reference them.
package concepts

// ADL / core xAPI verbs.
const (
	VerbInitialized  = "http://adlnet.gov/expapi/verbs/initialized"
	VerbTerminated   = "http://adlnet.gov/expapi/verbs/terminated"
	VerbCompleted    = "http://adlnet.gov/expapi/verbs/completed"
	VerbAnswered     = "http://adlnet.gov/expapi/verbs/answered"
	VerbAsked        = "http://adlnet.gov/expapi/verbs/asked"
	VerbAttempted    = "http://adlnet.gov/expapi/verbs/attempted"
	VerbPassed       = "http://adlnet.gov/expapi/verbs/passed"
	VerbFailed       = "http://adlnet.gov/expapi/verbs/failed"
)

// Navigation profile verbs.
const (
	VerbNavigatedTo = "https://w3id.org/xapi/seriousgames/verbs/navigated-to"
	VerbPaused      = "https://w3id.org/xapi/video/verbs/paused"
	VerbPlayed      = "https://w3id.org/xapi/video/verbs/played"
)

// Virtual classroom profile verbs.
const (
	VerbJoined    = "https://w3id.org/xapi/virtual-classroom/verbs/joined"
	VerbLeft      = "https://w3id.org/xapi/virtual-classroom/verbs/left"
	VerbMutedMic  = "https://w3id.org/xapi/virtual-classroom/verbs/muted"
	VerbUnmutedMic = "https://w3id.org/xapi/virtual-classroom/verbs/unmuted"
)

// Activity types.
const (
	ActivityTypeCourse            = "http://adlnet.gov/expapi/activities/course"
	ActivityTypeModule            = "http://adlnet.gov/expapi/activities/module"
	ActivityTypeOpenAssessment    = "http://id.tincanapi.com/activitytype/assessment"
	ActivityTypeVideo             = "https://w3id.org/xapi/video/activity-type/video"
	ActivityTypeVirtualClassroom  = "https://w3id.org/xapi/virtual-classroom/activity-type/virtual-classroom"
)

// Extension IRIs.
const (
	ExtensionCourseID = "http://adlnet.gov/expapi/activities/course"
	ExtensionModuleID = "http://adlnet.gov/expapi/activities/module"
	ExtensionSchoolID = "https://w3id.org/xapi/acrossx/extensions/school"
)
