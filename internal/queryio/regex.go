package queryio

import "github.com/aalwines/verifier/internal/ifaceautomaton"

// node is a regex AST node over some symbol alphabet S, shared by both the
// header-label grammar and the path-interface grammar: only the atom
// resolution differs between the two front ends in parser.go.
type node[S ifaceautomaton.Symbol] struct {
	atom   *ifaceautomaton.Edge[S] // set when this is a leaf
	concat []*node[S]
	alt    []*node[S]
	star   *node[S]
}

func atomNode[S ifaceautomaton.Symbol](e ifaceautomaton.Edge[S]) *node[S] {
	return &node[S]{atom: &e}
}

func concatNode[S ifaceautomaton.Symbol](parts []*node[S]) *node[S] {
	if len(parts) == 1 {
		return parts[0]
	}
	return &node[S]{concat: parts}
}

func altNode[S ifaceautomaton.Symbol](options []*node[S]) *node[S] {
	if len(options) == 1 {
		return options[0]
	}
	return &node[S]{alt: options}
}

func starNode[S ifaceautomaton.Symbol](inner *node[S]) *node[S] {
	return &node[S]{star: inner}
}

// compile turns a regex AST into a finalized NFA via a standard Thompson
// construction: every sub-expression builds a (start, end) state pair
// joined by epsilon transitions.
func compile[S ifaceautomaton.Symbol](root *node[S]) *ifaceautomaton.NFA[S] {
	n := ifaceautomaton.New[S]()
	start, end := build(n, root)
	n.Initial = append(n.Initial, start)
	end.Accepting = true
	n.Finalize()
	return n
}

func build[S ifaceautomaton.Symbol](n *ifaceautomaton.NFA[S], r *node[S]) (*ifaceautomaton.State[S], *ifaceautomaton.State[S]) {
	switch {
	case r.atom != nil:
		from := n.AddState(false)
		to := n.AddState(false)
		edge := *r.atom
		edge.To = to
		n.AddEdge(from, edge)
		return from, to
	case r.concat != nil:
		start, cur := build(n, r.concat[0])
		for _, part := range r.concat[1:] {
			s2, e2 := build(n, part)
			n.AddEpsilon(cur, s2)
			cur = e2
		}
		return start, cur
	case r.alt != nil:
		start := n.AddState(false)
		end := n.AddState(false)
		for _, opt := range r.alt {
			s, e := build(n, opt)
			n.AddEpsilon(start, s)
			n.AddEpsilon(e, end)
		}
		return start, end
	case r.star != nil:
		start := n.AddState(false)
		end := n.AddState(false)
		s, e := build(n, r.star)
		n.AddEpsilon(start, s)
		n.AddEpsilon(start, end)
		n.AddEpsilon(e, s)
		n.AddEpsilon(e, end)
		return start, end
	default:
		// Empty concatenation: accept immediately via a single epsilon.
		start := n.AddState(false)
		end := n.AddState(false)
		n.AddEpsilon(start, end)
		return start, end
	}
}
