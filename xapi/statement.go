package xapi

import "time"

// LanguageMap maps BCP-47 language tags to localized strings, used for
// verb display, activity names/descriptions and extension values.
type LanguageMap map[string]string

// Verb identifies the action of a Statement by IRI, with an optional
// display LanguageMap.
type Verb struct {
	ID      string      `json:"id"`
	Display LanguageMap `json:"display,omitempty"`
}

// ObjectKind discriminates the shapes an xAPI Object can take: Activity,
// Agent, Group, StatementRef or SubStatement.
type ObjectKind int

const (
	ObjectKindActivity ObjectKind = iota
	ObjectKindAgent
	ObjectKindGroup
	ObjectKindStatementRef
	ObjectKindSubStatement
)

// ActivityDefinition carries an Activity's optional metadata.
type ActivityDefinition struct {
	Name            LanguageMap            `json:"name,omitempty"`
	Description     LanguageMap            `json:"description,omitempty"`
	Type            string                 `json:"type,omitempty"`
	MoreInfo        string                 `json:"moreInfo,omitempty"`
	Extensions      map[string]interface{} `json:"extensions,omitempty"`
	InteractionType string                 `json:"interactionType,omitempty"`
}

// Activity is the most common Object shape: an IRI-identified thing a
// Statement's actor interacted with.
type Activity struct {
	ID         string              `json:"id"`
	Definition *ActivityDefinition `json:"definition,omitempty"`
}

// StatementRef points at another Statement by UUID, used as an Object or
// inside a Context.
type StatementRef struct {
	ID string `json:"id"`
}

// Object is the sum type of everything a Statement can act upon: an
// Activity, an Agent/Group (for social interactions about the actor), a
// StatementRef, or a SubStatement. SubStatement, per spec, can only
// recurse one level: SubStatement.Object may not itself be a SubStatement.
type Object struct {
	Kind         ObjectKind
	Activity     *Activity
	Actor        *Actor
	StatementRef *StatementRef
	SubStatement *SubStatement
}

// SubStatement is a nested Statement describing a hypothetical or reported
// action, missing id/stored/authority/version and unable to nest further.
type SubStatement struct {
	Actor       Actor        `json:"actor"`
	Verb        Verb         `json:"verb"`
	Object      Object       `json:"object"`
	Result      *Result      `json:"result,omitempty"`
	Context     *Context     `json:"context,omitempty"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Score carries the scaled, raw, min and max fields of a Result.
type Score struct {
	Scaled *float64 `json:"scaled,omitempty"`
	Raw    *float64 `json:"raw,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// Result describes the outcome of a Statement's action.
type Result struct {
	Score       *Score                 `json:"score,omitempty"`
	Success     *bool                  `json:"success,omitempty"`
	Completion  *bool                  `json:"completion,omitempty"`
	Response    string                 `json:"response,omitempty"`
	Duration    string                 `json:"duration,omitempty"` // ISO-8601 duration
	Extensions  map[string]interface{} `json:"extensions,omitempty"`
}

// ContextActivities groups the parent/grouping/category/other activities
// related to a Statement's context.
type ContextActivities struct {
	Parent   []Activity `json:"parent,omitempty"`
	Grouping []Activity `json:"grouping,omitempty"`
	Category []Activity `json:"category,omitempty"`
	Other    []Activity `json:"other,omitempty"`
}

// Context carries the circumstantial information of a Statement: registration,
// instructor/team, related activities, a revision/platform, language and
// any statement this one is a revision of.
type Context struct {
	Registration     string                 `json:"registration,omitempty"`
	Instructor       *Actor                 `json:"instructor,omitempty"`
	Team             *Actor                 `json:"team,omitempty"`
	ContextActivities *ContextActivities    `json:"contextActivities,omitempty"`
	Revision         string                 `json:"revision,omitempty"`
	Platform         string                 `json:"platform,omitempty"`
	Language         string                 `json:"language,omitempty"`
	Statement        *StatementRef          `json:"statement,omitempty"`
	Extensions       map[string]interface{} `json:"extensions,omitempty"`
}

// Attachment describes binary content related to a Statement, referenced by
// SHA2 digest rather than embedded unless FileURL is absent.
type Attachment struct {
	UsageType   string      `json:"usageType"`
	Display     LanguageMap `json:"display"`
	Description LanguageMap `json:"description,omitempty"`
	ContentType string      `json:"contentType"`
	Length      int64       `json:"length"`
	SHA2        string      `json:"sha2"`
	FileURL     string      `json:"fileUrl,omitempty"`
}

// Statement is the top-level xAPI record: who (Actor) did what (Verb) to
// what (Object), with optional Result/Context/Attachments and the
// server-assigned ID/Stored/Authority/Version fields.
type Statement struct {
	ID          string       `json:"id,omitempty"`
	Actor       Actor        `json:"actor"`
	Verb        Verb         `json:"verb"`
	Object      Object       `json:"object"`
	Result      *Result      `json:"result,omitempty"`
	Context     *Context     `json:"context,omitempty"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
	Stored      *time.Time   `json:"stored,omitempty"`
	// Authority identifies who asserted this Statement. The original model
	// left this ambiguous between a bare Agent and the full Actor union;
	// we keep it as Actor (the broader type) rather than guess at a
	// narrower shape the source never settled on.
	Authority   *Actor       `json:"authority,omitempty"`
	Version     string       `json:"version,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
