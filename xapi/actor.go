// Package xapi implements the xAPI statement data model: actors, verbs,
// objects, results, contexts and the top-level Statement envelope.
//
// The four inverse-functional-identifier variants of the original model
// (mbox, mbox_sha1sum, openid, account) and the parallel Agent/Group
// hierarchies are unified here into one Actor sum type instead of the
// duplicated BaseXapiAgent*/BaseXapiAgent*Type and BaseXapiIdentifiedGroup*
// hierarchies, preserving the union of both sets of field constraints.
package xapi

import "regexp"

// ObjectType distinguishes an Actor as an individual Agent or a Group.
type ObjectType string

const (
	ObjectTypeAgent ObjectType = "Agent"
	ObjectTypeGroup ObjectType = "Group"
)

// IFIKind identifies which of the four mutually exclusive inverse functional
// identifiers an Actor carries.
type IFIKind int

const (
	IFIMbox IFIKind = iota
	IFIMboxSha1Sum
	IFIOpenID
	IFIAccount
)

var mboxSha1Pattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Account is the `account` IFI: a home page plus an account name unique
// within that home page.
type Account struct {
	HomePage string `json:"homePage"`
	Name     string `json:"name"`
}

// Actor represents either an Agent or a Group, exactly one of which is
// identified by exactly one of Mbox, MboxSha1Sum, OpenID or Account — never
// zero, never more than one. Anonymous groups are the sole exception: they
// carry no IFI at all, only Members.
type Actor struct {
	ObjectType ObjectType `json:"objectType,omitempty"`
	Name       string     `json:"name,omitempty"`

	Mbox        string   `json:"mbox,omitempty"`
	MboxSha1Sum string   `json:"mbox_sha1sum,omitempty"`
	OpenID      string   `json:"openid,omitempty"`
	Account     *Account `json:"account,omitempty"`

	// Members is only valid when ObjectType is Group.
	Members []Actor `json:"member,omitempty"`
}

// IsGroup reports whether this Actor is a Group (identified or anonymous).
func (a Actor) IsGroup() bool {
	return a.ObjectType == ObjectTypeGroup
}

// IFI returns the Actor's single identifier kind and value, or ok=false if
// none or more than one is set (anonymous groups return ok=false too).
func (a Actor) IFI() (kind IFIKind, value string, ok bool) {
	count := 0
	if a.Mbox != "" {
		kind, value, ok, count = IFIMbox, a.Mbox, true, count+1
	}
	if a.MboxSha1Sum != "" {
		kind, value, ok, count = IFIMboxSha1Sum, a.MboxSha1Sum, true, count+1
	}
	if a.OpenID != "" {
		kind, value, ok, count = IFIOpenID, a.OpenID, true, count+1
	}
	if a.Account != nil {
		kind, value, ok, count = IFIAccount, a.Account.Name, true, count+1
	}
	if count != 1 {
		return 0, "", false
	}
	return kind, value, ok
}

// IFICount returns how many of the four identifier fields are populated,
// used by the validator to reject statements with zero or multiple IFIs on
// a non-anonymous actor.
func (a Actor) IFICount() int {
	n := 0
	if a.Mbox != "" {
		n++
	}
	if a.MboxSha1Sum != "" {
		n++
	}
	if a.OpenID != "" {
		n++
	}
	if a.Account != nil {
		n++
	}
	return n
}

// ValidMboxSha1Sum reports whether MboxSha1Sum, if set, is a 40-character
// lowercase hex SHA1 digest.
func (a Actor) ValidMboxSha1Sum() bool {
	if a.MboxSha1Sum == "" {
		return true
	}
	return mboxSha1Pattern.MatchString(a.MboxSha1Sum)
}

// IsAnonymousGroup reports whether this is a Group with no IFI at all —
// the one Actor shape that is exempt from the exactly-one-IFI rule.
func (a Actor) IsAnonymousGroup() bool {
	return a.IsGroup() && a.IFICount() == 0
}
