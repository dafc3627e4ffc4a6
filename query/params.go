// Package query implements the fixed xAPI query parameter grammar shared
// by every backend's read/query_statements entry point, with cross-field
// validation enforced once, at the backend contract boundary, rather than
// as a decorator wrapping each method (spec §9's "enforce_query_checks"
// note).
package query

import (
	"time"

	"github.com/evalgo/ralph-go/ralpherr"
	"github.com/evalgo/ralph-go/xapi"
)

// Format controls how matching statements are rendered.
type Format string

const (
	FormatIDs       Format = "ids"
	FormatExact     Format = "exact"
	FormatCanonical Format = "canonical"
)

// Params is the closed set of xAPI query inputs. Unlike the dataclass it
// is grounded on, validation is performed by Validate rather than at
// construction time, so a Params value can be built incrementally (e.g.
// from URL query parameters) before being checked once.
type Params struct {
	StatementID       string
	VoidedStatementID string

	AgentMbox          string
	AgentMboxSha1Sum   string
	AgentOpenID        string
	AgentAccountName   string
	AgentAccountHomePage string

	Verb     string
	Activity string

	Registration     string
	RelatedActivities bool
	RelatedAgents     bool

	Since time.Time
	Until time.Time

	Limit  int
	Format Format

	Attachments bool
	Ascending   bool

	SearchAfter string
	PitID       string

	// Authority keeps the broader Actor type rather than a narrower
	// AuthorityField: the source left the intended type ambiguous (a
	// "TODO: change this to AuthorityField" note with no resolution), so
	// we do not guess at a narrower shape it never settled on.
	Authority *xapi.Actor
}

// Validate enforces the two cross-field constraints the grammar requires:
// an account identifier needs both homePage and name together, and at most
// one actor inverse-functional identifier may be set at all.
func (p Params) Validate() error {
	hasName := p.AgentAccountName != ""
	hasHomePage := p.AgentAccountHomePage != ""
	if hasName != hasHomePage {
		return ralpherr.New(ralpherr.BadParameter, "invalid agent parameters: homePage and name are both required")
	}

	count := 0
	if p.AgentMbox != "" {
		count++
	}
	if p.AgentMboxSha1Sum != "" {
		count++
	}
	if p.AgentOpenID != "" {
		count++
	}
	if hasName {
		count++
	}
	if count > 1 {
		return ralpherr.New(ralpherr.BadParameter, "invalid agent parameters: only one identifier can be used")
	}
	return nil
}
