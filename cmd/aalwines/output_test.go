package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aalwines/verifier/internal/concretize"
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/query"
	"github.com/aalwines/verifier/internal/routingtable"
)

func traceFixture(t *testing.T) []concretize.Step {
	t.Helper()
	net := netgraph.New("out")
	r0 := netgraph.NewRouter("R0")
	in, err := r0.AddInterface("in", 1, false)
	require.NoError(t, err)
	out, err := r0.AddInterface("out", 2, false)
	require.NoError(t, err)
	r1 := netgraph.NewRouter("R1")
	inR1, err := r1.AddInterface("in", 3, false)
	require.NoError(t, err)
	netgraph.SetMatch(out, inR1)
	require.NoError(t, net.AddRouter(r0))
	require.NoError(t, net.AddRouter(r1))

	entry := &routingtable.Entry{TopLabel: label.Mpls(42)}
	rule := routingtable.Rule{
		Priority: 0,
		Weight:   5,
		Via:      out,
		Ops:      []label.Action{{Op: label.Swap, Label: label.Mpls(43)}},
	}
	return []concretize.Step{{
		Interface: in,
		Entry:     entry,
		Rule:      rule,
		Stack:     []label.Label{label.Mpls(42), label.Bottom()},
	}}
}

func TestRenderTraceUnweightedOmitsPriorityWeight(t *testing.T) {
	steps := traceFixture(t)
	rendered := renderTrace(steps, nil, nil)
	require.Len(t, rendered, 2, "a matched via must add a link element after the rule element")

	ruleElem, ok := rendered[0].(traceRuleElem)
	require.True(t, ok)
	require.Equal(t, "in", ruleElem.Ingoing)
	require.Equal(t, "42", ruleElem.Pre)
	require.Nil(t, ruleElem.PriorityWeight)

	linkElem, ok := rendered[1].(traceLinkElem)
	require.True(t, ok)
	require.Equal(t, "R0", linkElem.FromRouter)
	require.Equal(t, "R1", linkElem.ToRouter)
}

func TestRenderTraceWeightedEmitsPriorityWeight(t *testing.T) {
	steps := traceFixture(t)
	w, err := query.ParseWeightJSON([]byte(`[[{"factor":1,"atom":"hops"}],[{"factor":1,"atom":"failures"}]]`))
	require.NoError(t, err)

	rendered := renderTrace(steps, w, nil)
	ruleElem, ok := rendered[0].(traceRuleElem)
	require.True(t, ok)
	require.Equal(t, []string{"1", "5"}, ruleElem.PriorityWeight,
		"one hop, plus the rule's own weight on the failures level")
}
