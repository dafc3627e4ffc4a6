// Package validator reports structured failures for incoming records in
// two separate steps: DispatchShape finds a raw record's shape through a
// catalog.Catalog, and ValidateStatement checks xAPI's structural
// invariants on an already-typed xapi.Statement. It does not check a
// record against per-shape field contracts and does not decode raw records
// into statements.
package validator

import (
	"fmt"
	"regexp"

	"github.com/evalgo/ralph-go/catalog"
	"github.com/evalgo/ralph-go/xapi"
)

// FailureKind enumerates the sub-kinds of ValidationFailure.
type FailureKind int

const (
	MissingRequired FailureKind = iota
	WrongType
	RegexMismatch
	OutOfRange
	UnexpectedLiteral
	UnknownField
	NoMatchingShape
	AmbiguousShape
)

func (k FailureKind) String() string {
	switch k {
	case MissingRequired:
		return "MissingRequired"
	case WrongType:
		return "WrongType"
	case RegexMismatch:
		return "RegexMismatch"
	case OutOfRange:
		return "OutOfRange"
	case UnexpectedLiteral:
		return "UnexpectedLiteral"
	case UnknownField:
		return "UnknownField"
	case NoMatchingShape:
		return "NoMatchingShape"
	case AmbiguousShape:
		return "AmbiguousShape"
	default:
		return "Unknown"
	}
}

// Failure identifies the first offending path and the reason it failed.
type Failure struct {
	Kind FailureKind
	Path string
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s at %q: %s", f.Kind, f.Path, f.Reason)
}

var bcp47Pattern = regexp.MustCompile(`^[A-Za-z]{2,8}(-[A-Za-z0-9]{1,8})*$`)

// Validator pairs a catalog for shape dispatch (DispatchShape) with xAPI's
// own structural invariant checks for the Statement shape
// (ValidateStatement). The two are independent calls; neither invokes the
// other.
type Validator struct {
	Catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Validator {
	return &Validator{Catalog: c}
}

// DispatchShape resolves which shape a raw record belongs to, translating
// catalog.DispatchError into the validator's own failure kinds.
func (v *Validator) DispatchShape(rec catalog.Record) (catalog.Shape, *Failure) {
	shape, err := v.Catalog.Dispatch(rec)
	if err == nil {
		return shape, nil
	}
	de, ok := err.(*catalog.DispatchError)
	if !ok {
		return catalog.Shape{}, &Failure{Kind: NoMatchingShape, Reason: err.Error()}
	}
	if de.NoMatch {
		return catalog.Shape{}, &Failure{Kind: NoMatchingShape, Reason: "no registered shape matches this record"}
	}
	return catalog.Shape{}, &Failure{Kind: AmbiguousShape, Reason: err.Error()}
}

// ValidateStatement checks the structural invariants of an xAPI Statement:
// actor IFI exclusivity, account completeness, mbox_sha1sum format, BCP-47
// well-formedness of display maps, and sub-statement non-nesting.
func (v *Validator) ValidateStatement(s *xapi.Statement) *Failure {
	if f := validateActor("actor", s.Actor); f != nil {
		return f
	}
	if s.Verb.ID == "" {
		return &Failure{Kind: MissingRequired, Path: "verb.id", Reason: "verb must have an id"}
	}
	if f := validateLanguageMap("verb.display", s.Verb.Display); f != nil {
		return f
	}
	if s.Object.Kind == xapi.ObjectKindSubStatement && s.Object.SubStatement != nil {
		if s.Object.SubStatement.Object.Kind == xapi.ObjectKindSubStatement {
			return &Failure{Kind: UnexpectedLiteral, Path: "object.object.objectType", Reason: "a sub-statement may not itself contain a sub-statement"}
		}
	}
	return nil
}

func validateActor(path string, a xapi.Actor) *Failure {
	if a.IsAnonymousGroup() {
		return nil
	}
	n := a.IFICount()
	if n == 0 {
		return &Failure{Kind: MissingRequired, Path: path, Reason: "actor must carry exactly one inverse functional identifier"}
	}
	if n > 1 {
		return &Failure{Kind: UnexpectedLiteral, Path: path, Reason: "actor must carry exactly one inverse functional identifier, found multiple"}
	}
	if a.Account != nil && (a.Account.HomePage == "" || a.Account.Name == "") {
		return &Failure{Kind: MissingRequired, Path: path + ".account", Reason: "account identifier requires both homePage and name"}
	}
	if !a.ValidMboxSha1Sum() {
		return &Failure{Kind: RegexMismatch, Path: path + ".mbox_sha1sum", Reason: "must match ^[0-9a-f]{40}$"}
	}
	return nil
}

func validateLanguageMap(path string, lm xapi.LanguageMap) *Failure {
	for tag := range lm {
		if !bcp47Pattern.MatchString(tag) {
			return &Failure{Kind: RegexMismatch, Path: path + "." + tag, Reason: "language tag is not well-formed BCP-47"}
		}
	}
	return nil
}
