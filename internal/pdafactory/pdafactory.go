// Package pdafactory translates a network and a query into the product
// PDA the solver runs pre*/post* over: states are
// (interface, nfa state, pending ops) triples, multi-action routing
// rules unroll into chains of single-op transitions.
package pdafactory

import (
	"fmt"
	"strings"

	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/pda"
	"github.com/aalwines/verifier/internal/query"
	"github.com/aalwines/verifier/internal/routingtable"
)

// pendingRec is one interned suffix of a forwarding rule's action list
// still to be applied, together with the originating rule's via, weight
// and full action list so the unrolled emissions can carry them.
type pendingRec struct {
	Remaining []label.Action
	Via       routingtable.Interface
	Weight    uint32
	RuleOps   []label.Action
}

// Result bundles the built PDA with the auxiliary table mapping a
// State.Pending index back to the label actions still to apply, since
// pda.State keeps that table opaque.
type Result struct {
	PDA        *pda.PDA
	PendingOps []pendingRec
}

// Builder holds everything needed to translate one query against one
// network into a PDA.
type Builder struct {
	Network *netgraph.Network
	Query   *query.Query
}

// New returns a Builder for net and q.
func New(net *netgraph.Network, q *query.Query) *Builder {
	return &Builder{Network: net, Query: q}
}

func encodeOps(ops []label.Action) string {
	var sb strings.Builder
	for _, a := range ops {
		fmt.Fprintf(&sb, "%d:%d:%d;", a.Op, a.Label.Kind, a.Label.Value)
	}
	return sb.String()
}

func opToPDA(a label.Action) (pda.OpType, label.Label) {
	switch a.Op {
	case label.Pop:
		return pda.Pop, label.Label{}
	case label.Swap:
		return pda.Swap, a.Label
	case label.Push:
		return pda.Push, a.Label
	default:
		return pda.Swap, a.Label
	}
}

func entryPre(e routingtable.Entry) label.Label {
	if e.IgnoresLabel {
		return label.Wild()
	}
	return e.TopLabel
}

// Build runs the single-pass worklist translation described in
// NetworkPDAFactory::build_pda: every state with no pending ops expands
// one routing-table lookup (stepping the path NFA across non-virtual
// interfaces, staying put across virtual ones); states with pending ops
// unroll one action at a time via wildcard-matching rules.
func (b *Builder) Build() (*Result, error) {
	p := pda.New()
	pendingTable := []pendingRec{{}} // index 0 = no pending ops
	pendingIndex := map[string]int{"": 0}

	internPending := func(ops []label.Action, rule routingtable.Rule) int {
		if len(ops) == 0 {
			return 0
		}
		key := fmt.Sprintf("%s|%s|%d:%d", encodeOps(ops), encodeOps(rule.Ops), rule.Via.GlobalID(), rule.Weight)
		if idx, ok := pendingIndex[key]; ok {
			return idx
		}
		idx := len(pendingTable)
		pendingTable = append(pendingTable, pendingRec{
			Remaining: ops,
			Via:       rule.Via,
			Weight:    rule.Weight,
			RuleOps:   rule.Ops,
		})
		pendingIndex[key] = idx
		return idx
	}

	var queue []int
	addState := func(ifc routingtable.Interface, nfaState int, pending int, initial bool) int {
		s := pda.State{Interface: ifc, NFAState: nfaState, Pending: pending}
		idx, isNew := p.InternNew(s)
		if isNew {
			nfa := b.Query.Path.States[nfaState]
			if pending == 0 && !ifc.IsVirtual() && nfa.Accepting {
				p.MarkAccepting(idx)
			}
			queue = append(queue, idx)
		}
		if initial {
			p.MarkInitial(idx)
		}
		return idx
	}

	if b.Query.Path == nil {
		return nil, fmt.Errorf("pdafactory: query has no path automaton")
	}

	for _, nfaInit := range b.Query.Path.InitialStates() {
		for _, edge := range nfaInit.Edges {
			for _, ifc := range b.Network.Interfaces() {
				if ifc.IsVirtual() {
					continue
				}
				if !edge.Contains(ifc.GlobalID()) {
					continue
				}
				for _, n := range edge.To.FollowEpsilon() {
					addState(ifc, n.ID, 0, true)
				}
			}
		}
	}

	for head := 0; head < len(queue); head++ {
		from := queue[head]
		st := p.States[from]

		if st.Pending != 0 {
			rec := pendingTable[st.Pending]
			first := rec.Remaining[0]
			rest := rec.Remaining[1:]
			restIdx := internPending(rest, routingtable.Rule{Via: rec.Via, Weight: rec.Weight, Ops: rec.RuleOps})
			toState := addState(st.Interface, st.NFAState, restIdx, false)
			opType, opLabel := opToPDA(first)
			p.AddRule(pda.Rule{
				From:   from,
				Pre:    label.Wild(),
				Op:     opType,
				Label:  opLabel,
				To:     toState,
				Via:    rec.Via,
				Weight: rec.Weight,
				Ops:    rec.RuleOps,
				LastOp: len(rest) == 0,
			})
			continue
		}

		table := netgraph.AsInterface(st.Interface).Table
		for _, entry := range table.Entries {
			for _, rule := range entry.Rules {
				if rule.Priority > b.Query.K {
					continue // rules needing more than k failed siblings can never fire
				}
				first := rule.FirstAction(entry.TopLabel)
				restIdx := internPending(rule.RestActions(), rule)
				opType, opLabel := opToPDA(first)

				apply := func(nfaState int) {
					peer := rule.Via.Match()
					if peer == nil {
						peer = rule.Via // unmatched (e.g. egress) interface forwards to itself
					}
					toState := addState(peer, nfaState, restIdx, false)
					p.AddRule(pda.Rule{
						From:   from,
						Pre:    entryPre(entry),
						Op:     opType,
						Label:  opLabel,
						To:     toState,
						Via:    rule.Via,
						Weight: rule.Weight,
						Ops:    rule.Ops,
						LastOp: restIdx == 0,
					})
				}

				if rule.Via.IsVirtual() {
					apply(st.NFAState)
					continue
				}
				nfaState := b.Query.Path.States[st.NFAState]
				for _, edge := range nfaState.Edges {
					if !edge.Contains(rule.Via.GlobalID()) {
						continue
					}
					for _, n := range edge.To.FollowEpsilon() {
						apply(n.ID)
					}
				}
			}
		}
	}

	return &Result{PDA: p, PendingOps: pendingTable}, nil
}
