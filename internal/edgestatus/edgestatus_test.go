package edgestatus

import (
	"testing"

	"github.com/aalwines/verifier/internal/routingtable"
)

// fakeIface is a minimal routingtable.Interface for tests that don't need
// a full netgraph.Network.
type fakeIface struct {
	id uint64
}

func (f *fakeIface) GlobalID() uint64             { return f.id }
func (f *fakeIface) IsVirtual() bool              { return false }
func (f *fakeIface) Match() routingtable.Interface { return nil }

func iface(id uint64) *fakeIface { return &fakeIface{id: id} }

func TestNextRejectsAlreadyFailed(t *testing.T) {
	a, b := iface(1), iface(2)
	// Selecting b at priority 1 over a's priority 0 marks a failed.
	entry := routingtable.Entry{Rules: []routingtable.Rule{
		{Priority: 0, Via: a},
		{Priority: 1, Via: b},
	}}
	s, ok := Zero.Next(entry, entry.Rules[1], 1)
	if !ok {
		t.Fatal("expected selection to succeed")
	}
	if len(s.Failed()) != 1 || s.Failed()[0] != routingtable.Interface(a) {
		t.Fatalf("failed set = %v, want [a]", s.Failed())
	}
	// Now trying to route via a (already assumed failed) must be rejected.
	otherEntry := routingtable.Entry{Rules: []routingtable.Rule{{Priority: 0, Via: a}}}
	if _, ok := s.Next(otherEntry, otherEntry.Rules[0], 1); ok {
		t.Fatal("expected rejection: cannot use an interface already assumed failed")
	}
}

func TestNextBasicSelection(t *testing.T) {
	a, b, c := iface(1), iface(2), iface(3)
	entry := routingtable.Entry{Rules: []routingtable.Rule{
		{Priority: 0, Via: a},
		{Priority: 1, Via: b},
		{Priority: 2, Via: c},
	}}

	// Choosing the priority-0 rule requires no failures.
	s, ok := Zero.Next(entry, entry.Rules[0], 0)
	if !ok {
		t.Fatal("priority-0 rule should always be selectable with k=0")
	}
	if len(s.Failed()) != 0 {
		t.Errorf("failed set should be empty, got %v", s.Failed())
	}
	if len(s.Used()) != 1 || s.Used()[0] != routingtable.Interface(a) {
		t.Errorf("used set = %v, want [a]", s.Used())
	}

	// Choosing the priority-1 rule requires failing a (k>=1).
	s1, ok := Zero.Next(entry, entry.Rules[1], 1)
	if !ok {
		t.Fatal("priority-1 rule should be selectable with k=1")
	}
	if len(s1.Failed()) != 1 || s1.Failed()[0] != routingtable.Interface(a) {
		t.Errorf("failed set = %v, want [a]", s1.Failed())
	}

	// With k=0 the same selection must fail: a would need to be failed.
	if _, ok := Zero.Next(entry, entry.Rules[1], 0); ok {
		t.Fatal("priority-1 rule should not be selectable with k=0")
	}

	// Choosing priority-2 needs both a and b failed: exceeds k=1.
	if _, ok := Zero.Next(entry, entry.Rules[2], 1); ok {
		t.Fatal("priority-2 rule should not be selectable with k=1 (needs 2 failures)")
	}
	s2, ok := Zero.Next(entry, entry.Rules[2], 2)
	if !ok {
		t.Fatal("priority-2 rule should be selectable with k=2")
	}
	if len(s2.Failed()) != 2 {
		t.Errorf("failed set = %v, want 2 elements", s2.Failed())
	}
}

func TestNextRejectsUsedAndFailedOverlap(t *testing.T) {
	a, b := iface(1), iface(2)
	// First select b (priority 1, needs a failed)... but a was already used.
	entryUseA := routingtable.Entry{Rules: []routingtable.Rule{{Priority: 0, Via: a}}}
	s, ok := Zero.Next(entryUseA, entryUseA.Rules[0], 1)
	if !ok {
		t.Fatal("expected to use a successfully")
	}

	entryFailA := routingtable.Entry{Rules: []routingtable.Rule{
		{Priority: 0, Via: a},
		{Priority: 1, Via: b},
	}}
	if _, ok := s.Next(entryFailA, entryFailA.Rules[1], 1); ok {
		t.Fatal("expected rejection: a is already used, cannot also be assumed failed")
	}
}

func TestSoundnessCheck(t *testing.T) {
	a, b := iface(1), iface(2)
	entry := routingtable.Entry{Rules: []routingtable.Rule{
		{Priority: 0, Via: a},
		{Priority: 1, Via: b},
	}}
	s, ok := Zero.Next(entry, entry.Rules[1], 1)
	if !ok {
		t.Fatal("expected selection to succeed")
	}
	if !s.SoundnessCheck(1) {
		t.Error("expected soundness check to pass")
	}
	if s.SoundnessCheck(0) {
		t.Error("soundness check should fail when k is tightened below |failed|")
	}
}

func TestZeroIsEmpty(t *testing.T) {
	if len(Zero.Failed()) != 0 || len(Zero.Used()) != 0 {
		t.Fatal("Zero value should have no failed or used interfaces")
	}
}
