// Package query defines the verification query (initial/final header
// NFAs, path NFA, failure bound, approximation mode) and the ordered
// weight DSL.
package query

import (
	"fmt"

	"github.com/aalwines/verifier/internal/ifaceautomaton"
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/routingtable"
)

// Mode selects the approximation ladder rung a query is solved under.
type Mode int

const (
	Over Mode = iota
	Under
	Dual
	Exact
)

func (m Mode) String() string {
	switch m {
	case Over:
		return "OVER"
	case Under:
		return "UNDER"
	case Dual:
		return "DUAL"
	case Exact:
		return "EXACT"
	default:
		return "UNKNOWN"
	}
}

// ParseMode parses one of the four mode keywords.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "OVER":
		return Over, nil
	case "UNDER":
		return Under, nil
	case "DUAL":
		return Dual, nil
	case "EXACT":
		return Exact, nil
	default:
		return 0, fmt.Errorf("unknown query mode %q", s)
	}
}

// ModeList expands a query's requested mode into the concrete sequence of
// approximations the verifier must try, in order: DUAL tries OVER then
// UNDER; the rest are a single rung.
func (m Mode) ModeList() []Mode {
	if m == Dual {
		return []Mode{Over, Under}
	}
	return []Mode{m}
}

// Query is a single reachability query: does a packet starting with a
// header matching InitialHeader reach, via a path matching Path, a
// header matching FinalHeader, under at most K link failures.
type Query struct {
	InitialHeader *ifaceautomaton.NFA[label.Label]
	Path          *ifaceautomaton.NFA[uint64]
	FinalHeader   *ifaceautomaton.NFA[label.Label]
	K             uint32
	Mode          Mode
	Weight        Weight                             // nil means unweighted
	Latency       map[routingtable.Interface]uint32 // consulted by the latency atom; nil means all-zero
}
