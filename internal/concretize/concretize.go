// Package concretize maps an abstract PDA trace back to a concrete
// sequence of (entry, rule) forwarding decisions, consistent with a
// single <=k failure assignment across the whole path.
package concretize

import (
	"fmt"

	"github.com/aalwines/verifier/internal/aerr"
	"github.com/aalwines/verifier/internal/edgestatus"
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/pda"
	"github.com/aalwines/verifier/internal/query"
	"github.com/aalwines/verifier/internal/routingtable"
	"github.com/aalwines/verifier/internal/solver"
)

// Step is one concrete decision realized along a trace. Stack is the
// label stack as observed just before Rule fires (top-first), carried
// for trace rendering.
type Step struct {
	Interface routingtable.Interface
	Entry     *routingtable.Entry
	Rule      routingtable.Rule
	Stack     []label.Label
}

// Concretize walks an abstract trace produced by internal/solver and, for
// every non-auxiliary step (pda.State with no pending ops), selects the
// concrete (entry, rule) pair that explains the transition to the next
// step. mode is the approximation rung currently being tried (query.Over
// or query.Under); any other value, EXACT included, is rejected as
// unsupported.
func Concretize(p *pda.PDA, mode query.Mode, k uint32, trace []solver.Step) ([]Step, error) {
	if mode != query.Over && mode != query.Under {
		return nil, fmt.Errorf("concretize: %w: mode %s", aerr.ErrUnsupportedMode, mode)
	}

	status := edgestatus.Zero
	var out []Step

	for i := 0; i < len(trace); i++ {
		st := p.States[trace[i].PDAState]
		if st.Pending != 0 {
			continue
		}
		if i == len(trace)-1 || len(trace[i].Stack) == 0 {
			continue
		}
		nextSt := p.States[trace[i+1].PDAState]
		nextStack := trace[i+1].Stack
		topLabel := trace[i].Stack[0]

		table := netgraph.AsInterface(st.Interface).Table
		found := false
		for _, entry := range table.EntriesMatching(topLabel) {
			for _, rule := range entry.Rules {
				peer := rule.Via.Match()
				if peer == nil {
					peer = rule.Via
				}
				if peer != nextSt.Interface {
					continue
				}
				if !approximationOK(mode, rule.Priority, k) {
					continue
				}
				if !stackEffectOK(rule, topLabel, trace[i].Stack, nextStack) {
					continue
				}
				next, ok := status.Next(*entry, rule, k)
				if !ok {
					continue
				}
				status = next
				out = append(out, Step{Interface: st.Interface, Entry: entry, Rule: rule, Stack: trace[i].Stack})
				found = true
				break
			}
			if found {
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("concretize: %w: no consistent rule at trace step %d", aerr.ErrSpurious, i)
		}
	}
	return out, nil
}

// approximationOK is the per-mode gate checked before the authoritative
// failure-set bookkeeping. OVER admits any rule whose priority is within
// the failure budget. UNDER is gate-free here: the EdgeStatus step alone,
// which is unconditionally exact, enforces the <=k bound.
func approximationOK(mode query.Mode, priority uint32, k uint32) bool {
	switch mode {
	case query.Over:
		return priority <= k
	case query.Under:
		return true
	default:
		return false
	}
}

// stackEffectOK checks that a rule's stack effect is consistent with the
// observed next stack: empty-ops rules leave the top unchanged,
// POP/PUSH/SWAP change size and/or top per their kind.
func stackEffectOK(rule routingtable.Rule, topLabel label.Label, curStack, nextStack []label.Label) bool {
	if len(rule.Ops) == 0 {
		return len(nextStack) > 0 && nextStack[0].Equal(topLabel)
	}
	first := rule.Ops[0]
	if len(nextStack) != len(curStack)+first.StackDelta() {
		return false
	}
	switch first.Op {
	case label.Pop:
		return true
	case label.Swap, label.Push:
		return len(nextStack) > 0 && nextStack[0].Equal(first.Label)
	default:
		return false
	}
}

