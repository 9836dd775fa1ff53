package routingtable

import (
	"testing"

	"github.com/aalwines/verifier/internal/label"
)

type fakeIface struct {
	id      uint64
	virtual bool
	peer    *fakeIface
}

func (f *fakeIface) GlobalID() uint64 { return f.id }
func (f *fakeIface) IsVirtual() bool  { return f.virtual }
func (f *fakeIface) Match() Interface {
	if f.peer == nil {
		return nil
	}
	return f.peer
}

func TestAddRuleSortsEntriesWildcardLast(t *testing.T) {
	tbl := New()
	via := &fakeIface{id: 1}
	tbl.AddRule(label.Mpls(5), false, Rule{Priority: 0, Via: via})
	tbl.AddRule(label.Label{}, true, Rule{Priority: 0, Via: via}) // ignores-label
	tbl.AddRule(label.Mpls(1), false, Rule{Priority: 0, Via: via})

	if len(tbl.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(tbl.Entries))
	}
	if !tbl.Entries[0].TopLabel.Equal(label.Mpls(1)) {
		t.Errorf("first entry = %v, want Mpls(1)", tbl.Entries[0].TopLabel)
	}
	if !tbl.Entries[1].TopLabel.Equal(label.Mpls(5)) {
		t.Errorf("second entry = %v, want Mpls(5)", tbl.Entries[1].TopLabel)
	}
	if !tbl.Entries[2].IgnoresLabel {
		t.Error("wildcard entry should sort last")
	}
}

func TestAddRuleGroupsSameLabel(t *testing.T) {
	tbl := New()
	via1, via2 := &fakeIface{id: 1}, &fakeIface{id: 2}
	tbl.AddRule(label.Mpls(5), false, Rule{Priority: 0, Via: via1})
	tbl.AddRule(label.Mpls(5), false, Rule{Priority: 1, Via: via2})

	if len(tbl.Entries) != 1 {
		t.Fatalf("expected rules for the same label to share an entry, got %d entries", len(tbl.Entries))
	}
	if len(tbl.Entries[0].Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(tbl.Entries[0].Rules))
	}
}

func TestEntriesMatching(t *testing.T) {
	tbl := New()
	via := &fakeIface{id: 1}
	tbl.AddRule(label.Mpls(5), false, Rule{Priority: 0, Via: via})
	tbl.AddRule(label.Label{}, true, Rule{Priority: 0, Via: via})

	specific := tbl.EntriesMatching(label.Mpls(5))
	if len(specific) != 2 {
		t.Fatalf("expected specific-label entry then wildcard, got %d entries", len(specific))
	}
	if specific[0].IgnoresLabel {
		t.Error("specific-label entry must come first")
	}
	if !specific[1].IgnoresLabel {
		t.Error("wildcard entry must come second")
	}

	onlyWild := tbl.EntriesMatching(label.Mpls(99))
	if len(onlyWild) != 1 || !onlyWild[0].IgnoresLabel {
		t.Fatalf("expected only the wildcard entry for an unmatched label, got %v", onlyWild)
	}
}

func TestEntriesMatchingNoWildcard(t *testing.T) {
	tbl := New()
	via := &fakeIface{id: 1}
	tbl.AddRule(label.Mpls(5), false, Rule{Priority: 0, Via: via})

	if got := tbl.EntriesMatching(label.Mpls(99)); len(got) != 0 {
		t.Fatalf("expected no entries for an unmatched label with no wildcard, got %v", got)
	}
}

func TestValidateRejectsPushToBottom(t *testing.T) {
	tbl := New()
	via := &fakeIface{id: 1}
	tbl.AddRule(label.Mpls(5), false, Rule{
		Priority: 0, Via: via,
		Ops: []label.Action{{Op: label.Push, Label: label.Bottom()}},
	})
	if err := tbl.Validate(); err == nil {
		t.Fatal("expected Validate to reject push-to-bottom-of-stack")
	}
}

func TestValidateAcceptsWellFormedTable(t *testing.T) {
	tbl := New()
	via := &fakeIface{id: 1}
	tbl.AddRule(label.Mpls(5), false, Rule{
		Priority: 0, Via: via,
		Ops: []label.Action{{Op: label.Swap, Label: label.Mpls(6)}},
	})
	if err := tbl.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFirstActionIdentitySwap(t *testing.T) {
	r := Rule{Priority: 0, Via: &fakeIface{id: 1}}
	a := r.FirstAction(label.Mpls(7))
	if a.Op != label.Swap || !a.Label.Equal(label.Mpls(7)) {
		t.Fatalf("FirstAction on empty ops = %+v, want identity swap of Mpls(7)", a)
	}
	if rest := r.RestActions(); rest != nil {
		t.Fatalf("RestActions on empty ops = %v, want nil", rest)
	}
}

func TestFirstAndRestActions(t *testing.T) {
	r := Rule{
		Priority: 0,
		Via:      &fakeIface{id: 1},
		Ops: []label.Action{
			{Op: label.Push, Label: label.Mpls(1)},
			{Op: label.Swap, Label: label.Mpls(2)},
		},
	}
	first := r.FirstAction(label.Mpls(0))
	if first.Op != label.Push || !first.Label.Equal(label.Mpls(1)) {
		t.Fatalf("FirstAction = %+v", first)
	}
	rest := r.RestActions()
	if len(rest) != 1 || rest[0].Op != label.Swap {
		t.Fatalf("RestActions = %+v", rest)
	}
}

func TestAddFailoverEntries(t *testing.T) {
	tbl := New()
	failed := &fakeIface{id: 1}
	reroute := &fakeIface{id: 2}
	other := &fakeIface{id: 3}

	tbl.AddRule(label.Mpls(10), false, Rule{Priority: 0, Via: failed})
	tbl.AddRule(label.Mpls(20), false, Rule{Priority: 0, Via: other})

	tbl.AddFailoverEntries(failed, reroute, label.Mpls(999))

	entry := tbl.findEntry(label.Mpls(10), false)
	if entry == nil {
		t.Fatal("entry for Mpls(10) missing")
	}
	if len(entry.Rules) != 2 {
		t.Fatalf("expected original rule plus failover rule, got %d rules", len(entry.Rules))
	}
	fo := entry.Rules[1]
	if fo.Via != Interface(reroute) {
		t.Errorf("failover rule via = %v, want reroute", fo.Via)
	}
	if fo.Priority <= entry.Rules[0].Priority {
		t.Error("failover rule must have strictly lower priority (larger number) than the original")
	}
	if len(fo.Ops) != 1 || fo.Ops[0].Op != label.Push || !fo.Ops[0].Label.Equal(label.Mpls(999)) {
		t.Fatalf("failover rule ops = %+v, want a single push(999)", fo.Ops)
	}

	// The unrelated entry must be untouched.
	otherEntry := tbl.findEntry(label.Mpls(20), false)
	if len(otherEntry.Rules) != 1 {
		t.Fatalf("expected unrelated entry untouched, got %d rules", len(otherEntry.Rules))
	}
}
