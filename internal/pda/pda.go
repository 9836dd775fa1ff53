// Package pda holds the shared pushdown-automaton data types used by the
// factory (internal/pdafactory), the post*/pre* solver (internal/solver),
// the reducer (internal/reducer) and the trace concretizer
// (internal/concretize). It has no behavior of its own beyond interning
// states and storing rules.
package pda

import (
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/routingtable"
)

// OpType is the kind of stack operation a PDA rule performs.
type OpType int

const (
	Pop OpType = iota
	Swap
	Push
)

func (o OpType) String() string {
	switch o {
	case Pop:
		return "pop"
	case Swap:
		return "swap"
	case Push:
		return "push"
	default:
		return "unknown"
	}
}

// State is a control location: the current interface, the NFA state
// tracking progress through the query's path automaton, and an opaque
// index into the factory's pending-ops table (0 means no pending ops,
// i.e. a state where the next routing-table lookup and NFA step happen).
// Comparable, used as a map key for interning.
type State struct {
	Interface routingtable.Interface
	NFAState  int
	Pending   int
}

// Rule is one PDA transition. Pre is the required top-of-stack symbol
// (label.Wild() matches anything); for Swap/Push, Label is the symbol
// written. A Swap whose Label is the Wildcard sentinel means identity:
// the rule keeps whatever symbol its Pre matched, so the sentinel itself
// never reaches a concrete stack. This is how an ignores-label entry's
// pass-through rule is represented without a distinct wildcard-rule
// variant. Via, Weight and Ops carry the originating forwarding rule's
// via-interface, weight and full action list on every emission a
// forwarding rule unrolls into, so the weight atoms can observe them;
// LastOp marks the emission that applies the forwarding rule's final
// action.
type Rule struct {
	From   int
	Pre    label.Label
	Op     OpType
	Label  label.Label
	To     int
	Via    routingtable.Interface
	Weight uint32
	Ops    []label.Action
	LastOp bool
}

// PDA is an interned, rule-indexed pushdown automaton.
type PDA struct {
	States    []State
	index     map[State]int
	Rules     []Rule
	rulesFrom map[int][]int
	Initial   []int
	Accepting map[int]bool
}

// New returns an empty PDA.
func New() *PDA {
	return &PDA{
		index:     map[State]int{},
		rulesFrom: map[int][]int{},
		Accepting: map[int]bool{},
	}
}

// Intern returns the index for s, allocating a new one if s hasn't been
// seen before.
func (p *PDA) Intern(s State) int {
	idx, _ := p.InternNew(s)
	return idx
}

// InternNew is like Intern but also reports whether s was just allocated,
// so a factory can run its expansion work only once per state.
func (p *PDA) InternNew(s State) (int, bool) {
	if idx, ok := p.index[s]; ok {
		return idx, false
	}
	idx := len(p.States)
	p.States = append(p.States, s)
	p.index[s] = idx
	return idx, true
}

// Lookup returns the index already assigned to s, if any.
func (p *PDA) Lookup(s State) (int, bool) {
	idx, ok := p.index[s]
	return idx, ok
}

// AddRule appends a rule and indexes it by its From state.
func (p *PDA) AddRule(r Rule) int {
	idx := len(p.Rules)
	p.Rules = append(p.Rules, r)
	p.rulesFrom[r.From] = append(p.rulesFrom[r.From], idx)
	return idx
}

// RulesFrom returns the indices of rules leaving state idx.
func (p *PDA) RulesFrom(state int) []int {
	return p.rulesFrom[state]
}

// MarkInitial designates state idx as an initial control location.
func (p *PDA) MarkInitial(state int) {
	for _, s := range p.Initial {
		if s == state {
			return
		}
	}
	p.Initial = append(p.Initial, state)
}

// MarkAccepting designates state idx as accepting.
func (p *PDA) MarkAccepting(state int) {
	p.Accepting[state] = true
}

// RemoveRules drops the rules at the given indices and rebuilds the
// rulesFrom index; used by internal/reducer's sweep phase. Remaining
// rules keep their relative order but are renumbered, so any externally
// held rule indices are invalidated by this call.
func (p *PDA) RemoveRules(drop map[int]bool) {
	next := make([]Rule, 0, len(p.Rules))
	for i, r := range p.Rules {
		if drop[i] {
			continue
		}
		next = append(next, r)
	}
	p.Rules = next
	p.rulesFrom = map[int][]int{}
	for i, r := range p.Rules {
		p.rulesFrom[r.From] = append(p.rulesFrom[r.From], i)
	}
}

// RemoveStates drops unreachable states and renumbers the survivors,
// fixing up Rules, Initial and Accepting accordingly. A rule whose From or
// To is not in keep is dropped as well.
func (p *PDA) RemoveStates(keep map[int]bool) {
	remap := map[int]int{}
	var states []State
	for i, s := range p.States {
		if !keep[i] {
			continue
		}
		remap[i] = len(states)
		states = append(states, s)
	}
	var rules []Rule
	for _, r := range p.Rules {
		from, okFrom := remap[r.From]
		to, okTo := remap[r.To]
		if !okFrom || !okTo {
			continue
		}
		r.From, r.To = from, to
		rules = append(rules, r)
	}
	var initial []int
	for _, s := range p.Initial {
		if ns, ok := remap[s]; ok {
			initial = append(initial, ns)
		}
	}
	accepting := map[int]bool{}
	for s := range p.Accepting {
		if ns, ok := remap[s]; ok {
			accepting[ns] = true
		}
	}
	p.States, p.Rules, p.Initial, p.Accepting = states, rules, initial, accepting
	p.index = map[State]int{}
	for i, s := range states {
		p.index[s] = i
	}
	p.rulesFrom = map[int][]int{}
	for i, r := range p.Rules {
		p.rulesFrom[r.From] = append(p.rulesFrom[r.From], i)
	}
}
