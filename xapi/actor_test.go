package xapi

import "testing"

func TestIFISingleIdentifier(t *testing.T) {
	a := Actor{Mbox: "mailto:a@example.com"}
	kind, value, ok := a.IFI()
	if !ok || kind != IFIMbox || value != "mailto:a@example.com" {
		t.Fatalf("unexpected IFI result: %v %v %v", kind, value, ok)
	}
}

func TestIFINoneSet(t *testing.T) {
	a := Actor{Name: "no identifier"}
	_, _, ok := a.IFI()
	if ok {
		t.Fatal("expected ok=false for an actor with no identifier")
	}
}

func TestIFIMultipleSet(t *testing.T) {
	a := Actor{Mbox: "mailto:a@example.com", OpenID: "http://example.com/a"}
	_, _, ok := a.IFI()
	if ok {
		t.Fatal("expected ok=false for an actor with more than one identifier")
	}
}

func TestIsAnonymousGroup(t *testing.T) {
	a := Actor{ObjectType: ObjectTypeGroup, Members: []Actor{{Mbox: "mailto:a@example.com"}}}
	if !a.IsAnonymousGroup() {
		t.Fatal("expected an IFI-less group to be anonymous")
	}

	identified := Actor{ObjectType: ObjectTypeGroup, Mbox: "mailto:group@example.com"}
	if identified.IsAnonymousGroup() {
		t.Fatal("a group with an IFI must not be treated as anonymous")
	}
}

func TestValidMboxSha1Sum(t *testing.T) {
	valid := Actor{MboxSha1Sum: "0123456789abcdef0123456789abcdef01234567"}
	if !valid.ValidMboxSha1Sum() {
		t.Fatal("expected a 40-char lowercase hex digest to be valid")
	}

	invalid := Actor{MboxSha1Sum: "not-a-digest"}
	if invalid.ValidMboxSha1Sum() {
		t.Fatal("expected a malformed digest to be invalid")
	}

	empty := Actor{}
	if !empty.ValidMboxSha1Sum() {
		t.Fatal("an unset MboxSha1Sum should be considered valid")
	}
}

func TestIFICount(t *testing.T) {
	a := Actor{Mbox: "mailto:a@example.com", Account: &Account{HomePage: "http://example.com", Name: "bob"}}
	if a.IFICount() != 2 {
		t.Fatalf("expected IFICount 2, got %d", a.IFICount())
	}
}
