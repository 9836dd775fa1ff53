// Package reducer implements a reachability-preserving structural
// simplification of a PDA: iterative fixpoint liveness marking,
// forward from the initial states and backward from the accepting states,
// keeping only rules whose endpoints are both live.
package reducer

import "github.com/aalwines/verifier/internal/pda"

// Level selects how aggressively to reduce. 0 disables reduction entirely
// (the verifier still reports a [0,0] pair). Any nonzero level runs the
// full liveness sweep described above.
type Level int

// Reduce removes states and rules of p that cannot participate in any
// initial-to-accepting derivation, when level != 0. Returns the counts of
// states and rules removed, for the verifier's "reduction" output field.
func Reduce(p *pda.PDA, level Level) (statesRemoved, rulesRemoved int) {
	if level == 0 {
		return 0, 0
	}

	forwardLive := liveForward(p)
	backwardLive := liveBackward(p)

	keep := map[int]bool{}
	for s := range forwardLive {
		if backwardLive[s] {
			keep[s] = true
		}
	}

	statesBefore := len(p.States)
	rulesBefore := len(p.Rules)

	dropRules := map[int]bool{}
	for i, r := range p.Rules {
		if !keep[r.From] || !keep[r.To] {
			dropRules[i] = true
		}
	}
	p.RemoveRules(dropRules)
	p.RemoveStates(keep)

	return statesBefore - len(p.States), rulesBefore - len(p.Rules)
}

// liveForward is the set of states reachable from an initial state by
// following rules forward.
func liveForward(p *pda.PDA) map[int]bool {
	seen := map[int]bool{}
	var queue []int
	for _, s := range p.Initial {
		if !seen[s] {
			seen[s] = true
			queue = append(queue, s)
		}
	}
	for head := 0; head < len(queue); head++ {
		for _, ridx := range p.RulesFrom(queue[head]) {
			to := p.Rules[ridx].To
			if !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		}
	}
	return seen
}

// liveBackward is the set of states that can reach an accepting state by
// following rules forward from themselves (i.e. the predecessors of
// accepting states, transitively).
func liveBackward(p *pda.PDA) map[int]bool {
	predecessors := map[int][]int{}
	for _, r := range p.Rules {
		predecessors[r.To] = append(predecessors[r.To], r.From)
	}
	seen := map[int]bool{}
	var queue []int
	for s := range p.Accepting {
		if !seen[s] {
			seen[s] = true
			queue = append(queue, s)
		}
	}
	for head := 0; head < len(queue); head++ {
		for _, from := range predecessors[queue[head]] {
			if !seen[from] {
				seen[from] = true
				queue = append(queue, from)
			}
		}
	}
	return seen
}
