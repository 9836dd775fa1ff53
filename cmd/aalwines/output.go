package main

import (
	"strconv"

	"github.com/aalwines/verifier/internal/concretize"
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/netio"
	"github.com/aalwines/verifier/internal/query"
	"github.com/aalwines/verifier/internal/routingtable"
	"github.com/aalwines/verifier/internal/verifier"
)

// resultDoc is the per-query output object.
type resultDoc struct {
	Engine            string  `json:"engine"`
	Mode              string  `json:"mode"`
	Reduction         [2]int  `json:"reduction"`
	Result            *bool   `json:"result"`
	Trace             []any   `json:"trace,omitempty"`
	TraceWeight       []uint64 `json:"trace-weight,omitempty"`
	CompilationTime   float64 `json:"compilation-time"`
	ReductionTime     float64 `json:"reduction-time"`
	VerificationTime  float64 `json:"verification-time"`
}

func renderResult(res verifier.Result, w query.Weight, latency map[routingtable.Interface]uint32) resultDoc {
	doc := resultDoc{
		Engine:           res.Engine.String(),
		Mode:             res.ModeUsed.String(),
		Reduction:        res.Reduction,
		Result:           outcomeBool(res.Result),
		TraceWeight:      res.TraceWeight,
		CompilationTime:  res.Compilation.Seconds(),
		ReductionTime:    res.ReductionT.Seconds(),
		VerificationTime: res.Verification.Seconds(),
	}
	if len(res.Trace) > 0 {
		doc.Trace = renderTrace(res.Trace, w, latency)
	}
	return doc
}

func outcomeBool(o verifier.Outcome) *bool {
	switch o {
	case verifier.Yes:
		t := true
		return &t
	case verifier.No:
		f := false
		return &f
	default:
		return nil
	}
}

// traceRuleElem and traceLinkElem alternate along the rendered trace: a
// rule application records the entry that fired, the stack it saw and,
// on weighted runs, the rule's own weight tuple rendered as strings; a
// link element records the physical hop the forwarded packet crosses
// next.
type traceRuleElem struct {
	Ingoing        string        `json:"ingoing"`
	Pre            string        `json:"pre"`
	Rule           netio.RuleDoc `json:"rule"`
	Stack          []string      `json:"stack"`
	PriorityWeight []string      `json:"priority-weight,omitempty"`
}

type traceLinkElem struct {
	FromRouter    string `json:"from_router"`
	FromInterface string `json:"from_interface"`
	ToRouter      string `json:"to_router"`
	ToInterface   string `json:"to_interface"`
}

func renderTrace(steps []concretize.Step, w query.Weight, latency map[routingtable.Interface]uint32) []any {
	out := make([]any, 0, len(steps)*2)
	for _, s := range steps {
		ifc := netgraph.AsInterface(s.Interface)
		via := netgraph.AsInterface(s.Rule.Via)
		pre := s.Entry.TopLabel.String()
		if s.Entry.IgnoresLabel {
			pre = "null"
		}
		elem := traceRuleElem{
			Ingoing: ifc.Name,
			Pre:     pre,
			Rule: netio.RuleDoc{
				Out:      via.Name,
				Priority: s.Rule.Priority,
				Weight:   s.Rule.Weight,
				Ops:      netio.SerializeOps(s.Rule.Ops),
			},
			Stack: labelStrings(s.Stack),
		}
		if w != nil {
			elem.PriorityWeight = priorityWeight(w, s.Rule, latency)
		}
		out = append(out, elem)
		peer := via.PeerInterface()
		if peer != nil {
			out = append(out, traceLinkElem{
				FromRouter:    via.Router.Name,
				FromInterface: via.Name,
				ToRouter:      peer.Router.Name,
				ToInterface:   peer.Name,
			})
		}
	}
	return out
}

// priorityWeight renders one rule application's full weight tuple. Each
// concretized step stands for the whole forwarding rule, so the rule's
// actions count as applied and the hop as taken (last operation).
func priorityWeight(w query.Weight, rule routingtable.Rule, latency map[routingtable.Interface]uint32) []string {
	contrib := w.Evaluate(query.RuleApplication{
		Via:           rule.Via,
		Ops:           rule.Ops,
		RuleWeight:    rule.Weight,
		LastOperation: true,
	}, latency)
	out := make([]string, len(contrib))
	for i, v := range contrib {
		out[i] = strconv.FormatUint(v, 10)
	}
	return out
}

func labelStrings(stack []label.Label) []string {
	out := make([]string, len(stack))
	for i, l := range stack {
		out[i] = l.String()
	}
	return out
}
