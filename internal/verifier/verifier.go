// Package verifier implements the mode ladder that drives PDA
// compilation, reduction, solving and concretization for one query. A
// DUAL query runs the over-approximation first and falls back to the
// under-approximation when the result is inconclusive.
package verifier

import (
	"log/slog"
	"time"

	"github.com/aalwines/verifier/internal/concretize"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/pdafactory"
	"github.com/aalwines/verifier/internal/query"
	"github.com/aalwines/verifier/internal/reducer"
	"github.com/aalwines/verifier/internal/solver"
)

// Outcome is the three-valued verdict of one verification run.
type Outcome int

const (
	Maybe Outcome = iota
	Yes
	No
)

func (o Outcome) String() string {
	switch o {
	case Yes:
		return "YES"
	case No:
		return "NO"
	default:
		return "MAYBE"
	}
}

// Result bundles everything the CLI/jsonstream output needs per query.
type Result struct {
	Engine      solver.Engine
	ModeUsed    query.Mode
	Result      Outcome
	Reduction   [2]int // states removed, rules removed
	Trace       []concretize.Step
	TraceWeight []uint64
	Compilation time.Duration
	ReductionT  time.Duration
	Verification time.Duration
}

// Options configures one Run: which solver engine to use, the reduction
// level, and an optional logger.
type Options struct {
	Engine    solver.Engine
	Reduction reducer.Level
	Log       *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

// Run executes the mode ladder for q against net: for DUAL this tries
// OVER then UNDER, stopping at the first non-MAYBE outcome; other
// requested modes run exactly once.
func Run(net *netgraph.Network, q *query.Query, opts Options) Result {
	log := opts.logger()
	res := Result{Engine: opts.Engine, Result: Maybe}

	for _, rung := range q.Mode.ModeList() {
		log.Debug("verifier: trying mode", "mode", rung.String())
		rungQuery := *q
		rungQuery.Mode = rung

		t0 := time.Now()
		built, err := pdafactory.New(net, &rungQuery).Build()
		res.Compilation += time.Since(t0)
		if err != nil {
			log.Debug("verifier: PDA compilation failed", "err", err)
			continue
		}

		t1 := time.Now()
		statesRemoved, rulesRemoved := reducer.Reduce(built.PDA, opts.Reduction)
		res.ReductionT += time.Since(t1)
		res.Reduction = [2]int{statesRemoved, rulesRemoved}

		t2 := time.Now()
		solved, err := solver.Run(built.PDA, &rungQuery, opts.Engine)
		res.Verification += time.Since(t2)
		if err != nil {
			log.Debug("verifier: solve failed", "err", err)
			continue
		}

		outcome := interpret(rung, rungQuery.K, solved.Reachable)

		if outcome == Yes {
			if solved.Trace == nil {
				// Reachable per the saturation decision, but no witness was
				// found within the solver's bounded search: treated the same
				// as a spurious trace.
				outcome = Maybe
			} else {
				trace, cerr := concretize.Concretize(built.PDA, rung, rungQuery.K, solved.Trace)
				if cerr != nil {
					log.Debug("verifier: concretization failed, downgrading to MAYBE", "mode", rung.String(), "err", cerr)
					outcome = Maybe
				} else {
					res.Trace = trace
					res.TraceWeight = solved.TraceWeight
				}
			}
		}

		if outcome != Maybe {
			res.ModeUsed = rung
			res.Result = outcome
			return res
		}
	}

	return res
}

// interpret maps one mode's reachability outcome to YES/NO/MAYBE.
func interpret(mode query.Mode, k uint32, reachable bool) Outcome {
	if k == 0 {
		if reachable {
			return Yes
		}
		return No
	}
	switch mode {
	case query.Over:
		if !reachable {
			return No
		}
		return Yes // tentative; concretization may still downgrade to MAYBE
	case query.Under:
		if reachable {
			return Yes // tentative; concretization may still downgrade to MAYBE
		}
		return Maybe
	default:
		return Maybe
	}
}
