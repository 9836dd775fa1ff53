package query

import (
	"encoding/json"
	"fmt"

	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/routingtable"
)

// Atom is one of the four named rule-level measurements the weight DSL
// can reference, mirroring NetworkWeight::AtomicProperty.
type Atom int

const (
	AtomDefault Atom = iota
	AtomFailures
	AtomHops
	AtomTunnelDepth
	AtomLatency
)

func parseAtom(s string) (Atom, error) {
	switch s {
	case "hops":
		return AtomHops, nil
	case "failures":
		return AtomFailures, nil
	case "tunnel_depth":
		return AtomTunnelDepth, nil
	case "latency":
		return AtomLatency, nil
	default:
		return 0, fmt.Errorf("unknown weight atom %q", s)
	}
}

// Term is one {factor, atom} summand of a linear combination.
type Term struct {
	Factor uint32
	Atom   Atom
}

// LinearCombination is a sum of weighted atoms: one priority level of the
// ordered weight vector.
type LinearCombination []Term

// Weight is the full ordered weight domain: outer slice in order of
// priority (index 0 compares first), each entry a linear combination over
// the four atoms. The zero value (nil) denotes "unweighted".
type Weight []LinearCombination

type jsonTerm struct {
	Factor uint32 `json:"factor"`
	Atom   string `json:"atom"`
}

// ParseWeightJSON parses the weight language described in
// NetworkWeight.h's doc comment:
//
//	[ [ {"factor": N, "atom": "hops"}, ... ], ... ]
func ParseWeightJSON(data []byte) (Weight, error) {
	var raw [][]jsonTerm
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing weight expression: %w", err)
	}
	w := make(Weight, 0, len(raw))
	for i, inner := range raw {
		lc := make(LinearCombination, 0, len(inner))
		for _, jt := range inner {
			a, err := parseAtom(jt.Atom)
			if err != nil {
				return nil, fmt.Errorf("weight level %d: %w", i, err)
			}
			lc = append(lc, Term{Factor: jt.Factor, Atom: a})
		}
		w = append(w, lc)
	}
	return w, nil
}

// RuleApplication is the information the weight DSL's atoms can observe
// about one forwarding-rule application.
type RuleApplication struct {
	Via           routingtable.Interface
	Ops           []label.Action
	RuleWeight    uint32 // RoutingTable.Rule.Weight, i.e. link_failures contribution
	LastOperation bool   // true only for the rule step that actually leaves the interface
}

func countPush(ops []label.Action) uint32 {
	var n uint32
	for _, a := range ops {
		if a.Op == label.Push {
			n++
		}
	}
	return n
}

func evalAtom(a Atom, r RuleApplication, latency map[routingtable.Interface]uint32) uint32 {
	switch a {
	case AtomFailures:
		return r.RuleWeight
	case AtomHops:
		if r.LastOperation && r.Via != nil && !r.Via.IsVirtual() {
			return 1
		}
		return 0
	case AtomTunnelDepth:
		return countPush(r.Ops)
	case AtomLatency:
		if !r.LastOperation || r.Via == nil {
			return 0
		}
		return latency[r.Via]
	case AtomDefault:
		fallthrough
	default:
		return 0
	}
}

// Evaluate computes the per-level contribution of one rule application,
// to be summed (vector addition) across all rule applications of a trace
// by the solver.
func (w Weight) Evaluate(r RuleApplication, latency map[routingtable.Interface]uint32) []uint64 {
	out := make([]uint64, len(w))
	for i, lc := range w {
		var sum uint64
		for _, t := range lc {
			sum += uint64(t.Factor) * uint64(evalAtom(t.Atom, r, latency))
		}
		out[i] = sum
	}
	return out
}

// Zero returns the identity element for vector addition under this
// weight domain (all-zero vector of matching length).
func (w Weight) Zero() []uint64 {
	return make([]uint64, len(w))
}
