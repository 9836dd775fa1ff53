// Package ifaceautomaton implements a generic NFA with epsilon-closure
// precomputation, instantiated both over interface global ids (path
// regex) and over labels (header regex).
package ifaceautomaton

// Symbol is the alphabet element type an edge matches against.
type Symbol interface {
	comparable
}

// Edge is a symbol-consuming transition out of a State. Exactly one of
// Wildcard, Positive, or Negated describes what it matches; Negated edges
// match any symbol NOT in the set.
type Edge[S Symbol] struct {
	Wildcard bool
	Positive map[S]struct{}
	Negated  map[S]struct{}
	To       *State[S]
}

// Contains reports whether the edge matches symbol sym.
func (e Edge[S]) Contains(sym S) bool {
	if e.Wildcard {
		return true
	}
	if e.Positive != nil {
		_, ok := e.Positive[sym]
		return ok
	}
	if e.Negated != nil {
		_, ok := e.Negated[sym]
		return !ok
	}
	return false
}

// State is an NFA state. Epsilon edges are a separate list consumed only
// by FollowEpsilon/precomputation; Edges are the symbol-consuming
// transitions.
type State[S Symbol] struct {
	ID        int
	Accepting bool
	Edges     []Edge[S]
	epsilon   []*State[S]
	closure   []*State[S] // precomputed, includes self
}

// FollowEpsilon returns the epsilon closure of s (including s itself).
// Precomputed once by NFA.Finalize; falls back to {s} if called before
// Finalize (e.g. during construction).
func (s *State[S]) FollowEpsilon() []*State[S] {
	if s.closure != nil {
		return s.closure
	}
	return []*State[S]{s}
}

// NFA is a collection of states with designated initial states.
type NFA[S Symbol] struct {
	States  []*State[S]
	Initial []*State[S]
}

// New returns an empty NFA.
func New[S Symbol]() *NFA[S] { return &NFA[S]{} }

// AddState creates and registers a new state.
func (n *NFA[S]) AddState(accepting bool) *State[S] {
	s := &State[S]{ID: len(n.States), Accepting: accepting}
	n.States = append(n.States, s)
	return s
}

// AddEdge adds a symbol-consuming transition from -> e.To.
func (n *NFA[S]) AddEdge(from *State[S], e Edge[S]) {
	from.Edges = append(from.Edges, e)
}

// AddEpsilon adds an epsilon transition from -> to.
func (n *NFA[S]) AddEpsilon(from, to *State[S]) {
	from.epsilon = append(from.epsilon, to)
}

// Finalize precomputes the epsilon closure of every state. Must be called
// once after the NFA's states and edges are fully constructed and before
// any FollowEpsilon call.
func (n *NFA[S]) Finalize() {
	for _, s := range n.States {
		s.closure = closureOf(s)
	}
}

func closureOf[S Symbol](start *State[S]) []*State[S] {
	seen := map[*State[S]]bool{start: true}
	order := []*State[S]{start}
	queue := []*State[S]{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range cur.epsilon {
			if !seen[next] {
				seen[next] = true
				order = append(order, next)
				queue = append(queue, next)
			}
		}
	}
	return order
}

// InitialStates returns the epsilon closure of every designated initial
// state, deduplicated.
func (n *NFA[S]) InitialStates() []*State[S] {
	seen := map[*State[S]]bool{}
	var out []*State[S]
	for _, s := range n.Initial {
		for _, c := range s.FollowEpsilon() {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Step returns every state reachable from `from` by consuming symbol sym,
// following the epsilon closure of each matching edge's target.
// Deduplicated.
func Step[S Symbol](from *State[S], sym S) []*State[S] {
	seen := map[*State[S]]bool{}
	var out []*State[S]
	for _, e := range from.Edges {
		if !e.Contains(sym) {
			continue
		}
		for _, n := range e.To.FollowEpsilon() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Accepts reports whether the NFA accepts the given symbol sequence.
func (n *NFA[S]) Accepts(syms []S) bool {
	return Accepts(n, syms)
}

// Accepts reports whether the NFA accepts the given symbol sequence,
// following epsilon closures at every step. Used for offline header
// pattern matching (e.g. in tests) rather than on the PDA hot path, where
// the factory walks edges directly.
func Accepts[S Symbol](n *NFA[S], syms []S) bool {
	current := n.InitialStates()
	for _, sym := range syms {
		seen := map[*State[S]]bool{}
		var next []*State[S]
		for _, s := range current {
			for _, t := range Step(s, sym) {
				if !seen[t] {
					seen[t] = true
					next = append(next, t)
				}
			}
		}
		current = next
		if len(current) == 0 {
			return false
		}
	}
	for _, s := range current {
		if s.Accepting {
			return true
		}
	}
	return false
}
