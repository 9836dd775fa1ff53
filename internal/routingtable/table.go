// Package routingtable implements the per-interface label-matching
// forwarding table: entries sorted by top label, rules grouped by
// priority within an entry.
package routingtable

import (
	"fmt"
	"sort"

	"github.com/aalwines/verifier/internal/label"
)

// Rule is one forwarding rule inside an Entry.
type Rule struct {
	Priority uint32 // smaller = more preferred
	Weight   uint32
	Via      Interface
	Ops      []label.Action
}

// Interface is the subset of *netgraph.Interface the routing table needs,
// kept as an interface to avoid an import cycle between netgraph and
// routingtable (an Interface owns a Table and a Rule points back at an
// Interface).
type Interface interface {
	GlobalID() uint64
	IsVirtual() bool
	// Match returns the peer interface a rule forwards a packet onto.
	Match() Interface
}

// FirstAction returns the rule's first action, substituting the identity
// swap when the rule's action list is empty.
func (r Rule) FirstAction(top label.Label) label.Action {
	if len(r.Ops) == 0 {
		return label.IdentitySwap(top)
	}
	return r.Ops[0]
}

// RestActions returns the rule's remaining actions after the first.
func (r Rule) RestActions() []label.Action {
	if len(r.Ops) == 0 {
		return nil
	}
	return r.Ops[1:]
}

// Entry is a top-label-keyed bucket of rules. IgnoresLabel marks the
// trailing wildcard "ignores label" entry.
type Entry struct {
	TopLabel     label.Label
	IgnoresLabel bool
	Rules        []Rule
}

// Table is the ordered, per-interface routing table.
type Table struct {
	Entries []Entry
}

// New returns an empty table.
func New() *Table { return &Table{} }

// entryLess orders entries by top label, with the ignores-label entry
// sorted last.
func entryLess(a, b Entry) bool {
	if a.IgnoresLabel != b.IgnoresLabel {
		return !a.IgnoresLabel
	}
	return a.TopLabel.Less(b.TopLabel)
}

// sortEntries restores the invariant that entries are sorted by top label.
func (t *Table) sortEntries() {
	sort.SliceStable(t.Entries, func(i, j int) bool { return entryLess(t.Entries[i], t.Entries[j]) })
}

// findEntry returns the entry for an exact top label, or nil.
func (t *Table) findEntry(top label.Label, ignoresLabel bool) *Entry {
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.IgnoresLabel == ignoresLabel && (ignoresLabel || e.TopLabel.Equal(top)) {
			return e
		}
	}
	return nil
}

// AddRule adds a forwarding rule for the given top label (or the wildcard
// "ignores label" entry when ignoresLabel is true), creating the entry if
// necessary, and preserves the sorted-entries invariant. Rules within the
// entry are kept grouped by ascending priority, in insertion order within
// one priority.
func (t *Table) AddRule(top label.Label, ignoresLabel bool, rule Rule) {
	if e := t.findEntry(top, ignoresLabel); e != nil {
		e.Rules = append(e.Rules, rule)
		sort.SliceStable(e.Rules, func(i, j int) bool { return e.Rules[i].Priority < e.Rules[j].Priority })
		return
	}
	t.Entries = append(t.Entries, Entry{TopLabel: top, IgnoresLabel: ignoresLabel, Rules: []Rule{rule}})
	t.sortEntries()
}

// EntriesMatching returns the entries a lookup of label top should
// consider, in the order the concretizer must try them: the specific-label
// entry first (if present), then the trailing ignores-label entry (if
// present and distinct).
func (t *Table) EntriesMatching(top label.Label) []*Entry {
	var out []*Entry
	i := sort.Search(len(t.Entries), func(i int) bool {
		return t.Entries[i].IgnoresLabel || !t.Entries[i].TopLabel.Less(top)
	})
	if i < len(t.Entries) && !t.Entries[i].IgnoresLabel && t.Entries[i].TopLabel.Equal(top) {
		out = append(out, &t.Entries[i])
	}
	if n := len(t.Entries); n > 0 && t.Entries[n-1].IgnoresLabel {
		if len(out) == 0 || out[len(out)-1] != &t.Entries[n-1] {
			out = append(out, &t.Entries[n-1])
		}
	}
	return out
}

// Validate checks the table's structural invariants: entries sorted by
// top label (wildcard last), no push/swap to the bottom-of-stack
// sentinel.
func (t *Table) Validate() error {
	for i := 1; i < len(t.Entries); i++ {
		if !entryLess(t.Entries[i-1], t.Entries[i]) {
			return fmt.Errorf("routing table entries not sorted at index %d", i)
		}
	}
	for _, e := range t.Entries {
		for _, r := range e.Rules {
			for _, a := range r.Ops {
				if (a.Op == label.Push || a.Op == label.Swap) && a.Label.Kind == label.BottomOfStack {
					return fmt.Errorf("rule via %d: push/swap to bottom-of-stack sentinel", r.Via.GlobalID())
				}
			}
		}
	}
	return nil
}

// AddFailoverEntries installs, for every existing rule whose via is
// failedVia, a parallel rule at strictly lower priority that applies the
// rule's own actions, then pushes failoverLabel on top and redirects to
// reroute, so the bypass is only tried once failedVia is down and the
// tunnel label rides above the header the bypass target expects.
func (t *Table) AddFailoverEntries(failedVia Interface, reroute Interface, failoverLabel label.Label) {
	for i := range t.Entries {
		e := &t.Entries[i]
		maxPriority := uint32(0)
		var toClone []Rule
		for _, r := range e.Rules {
			if r.Priority > maxPriority {
				maxPriority = r.Priority
			}
			if r.Via == failedVia {
				toClone = append(toClone, r)
			}
		}
		for _, r := range toClone {
			maxPriority++
			newOps := append(append([]label.Action{}, r.Ops...), label.Action{Op: label.Push, Label: failoverLabel})
			e.Rules = append(e.Rules, Rule{
				Priority: maxPriority,
				Weight:   r.Weight,
				Via:      reroute,
				Ops:      newOps,
			})
		}
	}
}
