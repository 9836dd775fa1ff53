// Package solver implements the post*/pre* reachability engine: it
// decides whether a query's final header is reachable from its initial
// header over the PDA built by internal/pdafactory. On a YES it also
// returns a witness trace, found by breadth-first search (fewest PDA
// steps), and that trace's summed weight; the trace is not selected by
// least weight.
package solver

import (
	"fmt"
	"strings"

	"github.com/aalwines/verifier/internal/ifaceautomaton"
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/pda"
	"github.com/aalwines/verifier/internal/query"
)

// Engine selects which of the two saturation directions a result is
// reported under. Both run the identical saturation core; the two
// directions differ only in the CLI/JSON-visible label, not in solving
// power.
type Engine int

const (
	PostStar Engine = iota
	PreStar
)

func (e Engine) String() string {
	if e == PreStar {
		return "Pre*"
	}
	return "Post*"
}

// Result is the outcome of running one query against one PDA.
type Result struct {
	Engine     Engine
	Reachable  bool
	Trace      []Step   // best-effort concrete witness; nil if none was found within the search bound
	TraceWeight []uint64 // nil if the query is unweighted or no trace was found
}

// Step is one configuration along a concrete witness run.
type Step struct {
	PDAState int
	Stack    []label.Label // top-of-stack first
	Rule     int           // index into PDA.Rules that produced this step from the previous one; -1 for the initial step
}

const maxWitnessDepth = 48
const maxSeedWords = 8
const maxSearchNodes = 20000

// Run decides reachability for q against p, and on a YES best-effort
// reconstructs a concrete trace.
func Run(p *pda.PDA, q *query.Query, engine Engine) (*Result, error) {
	labels := collectLabels(p, q.InitialHeader, q.FinalHeader)

	a := buildInitialAutomaton(p, q.InitialHeader, labels)
	a.saturate(p)

	hstates := map[int]*ifaceautomaton.State[label.Label]{}
	for _, hs := range q.FinalHeader.States {
		hstates[hs.ID] = hs
	}

	reachable := false
	for acc := range p.Accepting {
		if a.accepts(acc, q.FinalHeader, hstates) {
			reachable = true
			break
		}
	}

	res := &Result{Engine: engine, Reachable: reachable}
	if !reachable {
		return res, nil
	}

	trace := searchWitness(p, q, labels)
	res.Trace = trace
	if q.Weight != nil && trace != nil {
		res.TraceWeight = sumWeight(p, q, trace)
	}
	return res, nil
}

func sumWeight(p *pda.PDA, q *query.Query, trace []Step) []uint64 {
	total := q.Weight.Zero()
	for _, s := range trace {
		if s.Rule < 0 {
			continue
		}
		r := p.Rules[s.Rule]
		contrib := q.Weight.Evaluate(query.RuleApplication{
			Via:           r.Via,
			Ops:           r.Ops,
			RuleWeight:    r.Weight,
			LastOperation: r.LastOp,
		}, q.Latency)
		for j := range total {
			total[j] += contrib[j]
		}
	}
	return total
}

func collectLabels(p *pda.PDA, headers ...*ifaceautomaton.NFA[label.Label]) []label.Label {
	seen := map[label.Label]bool{}
	var out []label.Label
	add := func(l label.Label) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	add(label.Bottom())
	add(label.IP())
	for _, r := range p.Rules {
		// A wildcard swap label is the identity marker, not an alphabet
		// symbol.
		if (r.Op == pda.Swap || r.Op == pda.Push) && r.Label.Kind != label.Wildcard {
			add(r.Label)
		}
		if r.Pre.Kind != label.Wildcard {
			add(r.Pre)
		}
	}
	for _, h := range headers {
		for _, s := range h.States {
			for _, e := range s.Edges {
				for l := range e.Positive {
					add(l)
				}
				for l := range e.Negated {
					add(l)
				}
			}
		}
	}
	return out
}

func buildInitialAutomaton(p *pda.PDA, initHeader *ifaceautomaton.NFA[label.Label], labels []label.Label) *automaton {
	a := newAutomaton(len(p.States))
	headerNode := map[int]int{}
	nodeFor := func(hs *ifaceautomaton.State[label.Label]) int {
		if id, ok := headerNode[hs.ID]; ok {
			return id
		}
		id := a.freshState()
		headerNode[hs.ID] = id
		return id
	}
	a.sink = a.freshState()

	for _, hs := range initHeader.States {
		from := nodeFor(hs)
		if hs.Accepting {
			a.addDirect(from, label.Bottom(), a.sink)
		}
		for _, l := range labels {
			if l.Kind == label.BottomOfStack {
				continue
			}
			for _, e := range hs.Edges {
				if e.Contains(l) {
					a.addDirect(from, l, nodeFor(e.To))
				}
			}
		}
	}
	for _, p0 := range p.Initial {
		for _, hs := range initHeader.InitialStates() {
			a.addEps(p0, nodeFor(hs))
		}
	}
	return a
}

// traceNode is one node of the forward search tree built by searchWitness,
// linked back to its predecessor so a found accepting node can be unwound
// into a Step slice in forward order.
type traceNode struct {
	state int
	stack []label.Label // top-of-stack first, bottom sentinel always last
	rule  int           // PDA rule that produced this node; -1 for a seed
	prev  *traceNode
}

func encodeConfig(state int, stack []label.Label) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|", state)
	for _, l := range stack {
		fmt.Fprintf(&sb, "%d:%d;", l.Kind, l.Value)
	}
	return sb.String()
}

// seedLabels picks a small set of concrete labels the initial header can
// start a word with, to use as the bottom-most pushed symbol when seeding
// the forward witness search.
func seedLabels(initHeader *ifaceautomaton.NFA[label.Label], labels []label.Label, max int) []label.Label {
	var out []label.Label
	for _, l := range labels {
		if l.Kind == label.BottomOfStack || l.Kind == label.Wildcard {
			continue
		}
		matches := false
		for _, s := range initHeader.InitialStates() {
			if len(ifaceautomaton.Step(s, l)) > 0 || s.Accepting {
				matches = true
				break
			}
		}
		if !matches {
			continue
		}
		out = append(out, l)
		if len(out) >= max {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, label.IP())
	}
	return out
}

// acceptsFinal reports whether the final_header NFA accepts the label
// sequence remaining on the stack (top-first, excluding the bottom-of-stack
// sentinel).
func acceptsFinal(header *ifaceautomaton.NFA[label.Label], stack []label.Label) bool {
	var syms []label.Label
	for _, l := range stack {
		if l.Kind == label.BottomOfStack {
			break
		}
		syms = append(syms, l)
	}
	return ifaceautomaton.Accepts(header, syms)
}

func reconstruct(n *traceNode) []Step {
	var out []Step
	for cur := n; cur != nil; cur = cur.prev {
		out = append(out, Step{PDAState: cur.state, Stack: cur.stack, Rule: cur.rule})
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// searchWitness does a bounded forward BFS over concrete PDA configurations
// (state, stack) to reconstruct one concrete accepting run. This is a
// best-effort reconstruction on top of the reachable/not-reachable decision
// already computed via saturation: reachability doesn't hand back a witness
// for free, so a separate bounded search looks for one. Depth and node-count
// are bounded (maxWitnessDepth, maxSeedWords / maxSearchNodes) since the
// stack is in principle unbounded; a nil result means no witness was found
// within the bound, not that none exists.
func searchWitness(p *pda.PDA, q *query.Query, labels []label.Label) []Step {
	seeds := seedLabels(q.InitialHeader, labels, maxSeedWords)

	seen := map[string]bool{}
	var queue []*traceNode
	for _, s0 := range p.Initial {
		for _, l := range seeds {
			stack := []label.Label{l, label.Bottom()}
			key := encodeConfig(s0, stack)
			if seen[key] {
				continue
			}
			seen[key] = true
			queue = append(queue, &traceNode{state: s0, stack: stack, rule: -1})
		}
	}

	for head := 0; head < len(queue) && head < maxSearchNodes; head++ {
		cur := queue[head]
		if p.Accepting[cur.state] && acceptsFinal(q.FinalHeader, cur.stack) {
			return reconstruct(cur)
		}
		if len(cur.stack) > maxWitnessDepth {
			continue
		}
		top := cur.stack[0]
		if top.Kind == label.BottomOfStack {
			continue // no rule fires once only the bottom sentinel remains
		}
		for _, ridx := range p.RulesFrom(cur.state) {
			r := p.Rules[ridx]
			if r.Pre.Kind != label.Wildcard && !r.Pre.Equal(top) {
				continue
			}
			var nstack []label.Label
			switch r.Op {
			case pda.Pop:
				if len(cur.stack) <= 1 {
					continue // never pop past the bottom sentinel
				}
				nstack = cur.stack[1:]
			case pda.Swap:
				written := r.Label
				if written.Kind == label.Wildcard {
					// Identity swap: keep the symbol the rule matched.
					written = top
				}
				nstack = append([]label.Label{written}, cur.stack[1:]...)
			case pda.Push:
				nstack = append([]label.Label{r.Label}, cur.stack...)
			}
			if len(nstack) > maxWitnessDepth {
				continue
			}
			key := encodeConfig(r.To, nstack)
			if seen[key] {
				continue
			}
			seen[key] = true
			queue = append(queue, &traceNode{state: r.To, stack: nstack, rule: ridx, prev: cur})
		}
	}
	return nil
}
