package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aalwines/verifier/internal/ifaceautomaton"
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/pda"
	"github.com/aalwines/verifier/internal/query"
	"github.com/aalwines/verifier/internal/routingtable"
)

type fakeIface struct {
	id      uint64
	virtual bool
}

func (f *fakeIface) GlobalID() uint64 { return f.id }
func (f *fakeIface) IsVirtual() bool  { return f.virtual }
func (f *fakeIface) Match() routingtable.Interface {
	return nil
}

func header(labels ...label.Label) *ifaceautomaton.NFA[label.Label] {
	n := ifaceautomaton.New[label.Label]()
	cur := n.AddState(len(labels) == 0)
	n.Initial = append(n.Initial, cur)
	for i, l := range labels {
		next := n.AddState(i == len(labels)-1)
		n.AddEdge(cur, ifaceautomaton.Edge[label.Label]{Positive: map[label.Label]struct{}{l: {}}, To: next})
		cur = next
	}
	n.Finalize()
	return n
}

func anyHeader() *ifaceautomaton.NFA[label.Label] {
	n := ifaceautomaton.New[label.Label]()
	s := n.AddState(true)
	n.Initial = append(n.Initial, s)
	n.AddEdge(s, ifaceautomaton.Edge[label.Label]{Wildcard: true, To: s})
	n.Finalize()
	return n
}

// chain builds a PDA with states 0..n, interning one fake interface per
// state so the intern keys stay distinct.
func chain(n int) *pda.PDA {
	p := pda.New()
	for i := 0; i <= n; i++ {
		p.Intern(pda.State{Interface: &fakeIface{id: uint64(i + 1)}})
	}
	p.MarkInitial(0)
	return p
}

func TestRunReachableWithSwap(t *testing.T) {
	p := chain(1)
	p.AddRule(pda.Rule{From: 0, Pre: label.Mpls(1), Op: pda.Swap, Label: label.Mpls(2), To: 1, LastOp: true})
	p.MarkAccepting(1)

	q := &query.Query{
		InitialHeader: header(label.Mpls(1)),
		FinalHeader:   header(label.Mpls(2)),
	}
	res, err := Run(p, q, PostStar)
	require.NoError(t, err)
	require.True(t, res.Reachable)
	require.NotNil(t, res.Trace, "a reachable one-step run must yield a witness")

	// The trace runs forward: seed configuration first, accepting last.
	require.Equal(t, 0, res.Trace[0].PDAState)
	require.Equal(t, -1, res.Trace[0].Rule)
	last := res.Trace[len(res.Trace)-1]
	require.Equal(t, 1, last.PDAState)
	require.True(t, last.Stack[0].Equal(label.Mpls(2)))
}

func TestRunUnreachableFinalHeader(t *testing.T) {
	p := chain(1)
	p.AddRule(pda.Rule{From: 0, Pre: label.Mpls(1), Op: pda.Swap, Label: label.Mpls(2), To: 1, LastOp: true})
	p.MarkAccepting(1)

	q := &query.Query{
		InitialHeader: header(label.Mpls(1)),
		FinalHeader:   header(label.Mpls(3)),
	}
	res, err := Run(p, q, PostStar)
	require.NoError(t, err)
	require.False(t, res.Reachable)
	require.Nil(t, res.Trace)
}

func TestRunPushThenPopRestoresStack(t *testing.T) {
	p := chain(2)
	p.AddRule(pda.Rule{From: 0, Pre: label.Mpls(1), Op: pda.Push, Label: label.Mpls(9), To: 1})
	p.AddRule(pda.Rule{From: 1, Pre: label.Mpls(9), Op: pda.Pop, To: 2, LastOp: true})
	p.MarkAccepting(2)

	q := &query.Query{
		InitialHeader: header(label.Mpls(1)),
		FinalHeader:   header(label.Mpls(1)),
	}
	res, err := Run(p, q, PostStar)
	require.NoError(t, err)
	require.True(t, res.Reachable)
	require.NotNil(t, res.Trace)

	last := res.Trace[len(res.Trace)-1]
	require.True(t, last.Stack[0].Equal(label.Mpls(1)), "push then pop must expose the original label again")
}

func TestRunNeverPopsBottomSentinel(t *testing.T) {
	p := chain(1)
	// A pop loop that would run off the end of the stack if the sentinel
	// were not protected.
	p.AddRule(pda.Rule{From: 0, Pre: label.Wild(), Op: pda.Pop, To: 0, LastOp: true})
	p.MarkAccepting(1) // unreachable control state

	q := &query.Query{
		InitialHeader: anyHeader(),
		FinalHeader:   anyHeader(),
	}
	res, err := Run(p, q, PostStar)
	require.NoError(t, err)
	require.False(t, res.Reachable)
}

func TestRunEmptyFinalHeaderAfterPop(t *testing.T) {
	p := chain(1)
	p.AddRule(pda.Rule{From: 0, Pre: label.Mpls(5), Op: pda.Pop, To: 1, LastOp: true})
	p.MarkAccepting(1)

	q := &query.Query{
		InitialHeader: header(label.Mpls(5)),
		FinalHeader:   header(), // empty stack accepted
	}
	res, err := Run(p, q, PostStar)
	require.NoError(t, err)
	require.True(t, res.Reachable)
	require.NotNil(t, res.Trace)
}

// A wildcard-label swap is the identity: the matched symbol must flow
// through both the saturation edges and the witness stack untouched, and
// the wildcard sentinel itself must never appear on a concrete stack.
func TestRunWildcardSwapKeepsMatchedLabel(t *testing.T) {
	p := chain(1)
	p.AddRule(pda.Rule{From: 0, Pre: label.Wild(), Op: pda.Swap, Label: label.Wild(), To: 1, LastOp: true})
	p.MarkAccepting(1)

	q := &query.Query{
		InitialHeader: header(label.Mpls(5)),
		FinalHeader:   header(label.Mpls(5)),
	}
	res, err := Run(p, q, PostStar)
	require.NoError(t, err)
	require.True(t, res.Reachable, "identity forwarding must preserve the concrete label")
	require.NotNil(t, res.Trace)
	last := res.Trace[len(res.Trace)-1]
	require.True(t, last.Stack[0].Equal(label.Mpls(5)))
	for _, step := range res.Trace {
		for _, l := range step.Stack {
			require.NotEqual(t, label.Wildcard, l.Kind, "the wildcard sentinel must never reach a concrete stack")
		}
	}
}

// The same identity rule must NOT reach a final header demanding a
// different label: identity is not a free rewrite.
func TestRunWildcardSwapIsNotARewrite(t *testing.T) {
	p := chain(1)
	p.AddRule(pda.Rule{From: 0, Pre: label.Wild(), Op: pda.Swap, Label: label.Wild(), To: 1, LastOp: true})
	p.MarkAccepting(1)

	q := &query.Query{
		InitialHeader: header(label.Mpls(5)),
		FinalHeader:   header(label.Mpls(6)),
	}
	res, err := Run(p, q, PostStar)
	require.NoError(t, err)
	require.False(t, res.Reachable)
}

func TestEngineLabels(t *testing.T) {
	require.Equal(t, "Post*", PostStar.String())
	require.Equal(t, "Pre*", PreStar.String())
}

func TestRunSumsWeightsPerRuleApplication(t *testing.T) {
	via := &fakeIface{id: 7}
	p := chain(2)
	p.AddRule(pda.Rule{From: 0, Pre: label.Mpls(1), Op: pda.Swap, Label: label.Mpls(2), To: 1, Via: via, LastOp: true})
	p.AddRule(pda.Rule{From: 1, Pre: label.Mpls(2), Op: pda.Swap, Label: label.Mpls(3), To: 2, Via: via, LastOp: true})
	p.MarkAccepting(2)

	w, err := query.ParseWeightJSON([]byte(`[[{"factor":1,"atom":"hops"}]]`))
	require.NoError(t, err)

	q := &query.Query{
		InitialHeader: header(label.Mpls(1)),
		FinalHeader:   header(label.Mpls(3)),
		Weight:        w,
	}
	res, err := Run(p, q, PostStar)
	require.NoError(t, err)
	require.True(t, res.Reachable)
	require.Equal(t, []uint64{2}, res.TraceWeight)
}
