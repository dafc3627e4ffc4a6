package catalog

import "github.com/evalgo/ralph-go/xapi/edx"

// Shape names for the representative leaf set wired into DefaultCatalog.
// The catalog mechanism is what's specified; these are a representative
// sample of the leaves it dispatches to, not an exhaustive enumeration.
const (
	ShapeXapiStatement    = "xapi.statement"
	ShapeORAPeerAssess    = "edx.ora.peer_assess"
	ShapeORASelfAssess    = "edx.ora.self_assess"
	ShapeORAGetPeerSubmit = "edx.ora.get_peer_submission"
)

// DefaultCatalog registers the representative shapes exercised by the
// backends and tests in this module: a generic xAPI statement shape (the
// forest-root, no constraints beyond event_source) and the ORA event
// family, each discriminated by event_source + event_type so that removing
// the event_type constraint leaves only the more general parent shape: a
// server record whose event_type is none of the ORA types dispatches to
// the parent. No shape is constrained on event_type alone, so a record
// without event_source matches no shape.
func DefaultCatalog() *Catalog {
	return New([]Shape{
		{
			Name: ShapeXapiStatement,
			Selector: Selector{
				{Path: "event_source", Literal: "server"},
			},
		},
		{
			Name: ShapeORAPeerAssess,
			Selector: Selector{
				{Path: "event_source", Literal: "server"},
				{Path: "event_type", Literal: string(edx.EventPeerAssess)},
			},
		},
		{
			Name: ShapeORASelfAssess,
			Selector: Selector{
				{Path: "event_source", Literal: "server"},
				{Path: "event_type", Literal: string(edx.EventSelfAssess)},
			},
		},
		{
			Name: ShapeORAGetPeerSubmit,
			Selector: Selector{
				{Path: "event_source", Literal: "server"},
				{Path: "event_type", Literal: string(edx.EventGetPeerSubmission)},
			},
		},
	})
}
