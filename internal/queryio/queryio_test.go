package queryio

import (
	"strings"
	"testing"

	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/query"
)

// testNetwork builds a small 2-router network (R0 -- R1) to resolve path
// router names against.
func testNetwork(t *testing.T) *netgraph.Network {
	t.Helper()
	net := netgraph.New("q")
	r0 := netgraph.NewRouter("R0")
	r1 := netgraph.NewRouter("R1")
	outR0, err := r0.AddInterface("outR0", 0, false)
	if err != nil {
		t.Fatal(err)
	}
	inR1, err := r1.AddInterface("inR1", 0, false)
	if err != nil {
		t.Fatal(err)
	}
	netgraph.SetMatch(outR0, inR1)
	if err := net.AddRouter(r0); err != nil {
		t.Fatal(err)
	}
	if err := net.AddRouter(r1); err != nil {
		t.Fatal(err)
	}
	return net
}

func TestParseLineBasic(t *testing.T) {
	net := testNetwork(t)
	q, err := ParseLine(net, "<.> [R0#R1] <.> 2 OVER")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.K != 2 {
		t.Errorf("K = %d, want 2", q.K)
	}
	if q.Mode != query.Over {
		t.Errorf("Mode = %v, want OVER", q.Mode)
	}
	if !q.InitialHeader.Accepts(nil) {
		t.Error("wildcard initial header should accept the empty sequence")
	}
	outR0, _ := net.Routers[0].InterfaceByName("outR0")
	if !q.Path.Accepts([]uint64{outR0.GlobalID()}) {
		t.Error("path regex [R0#R1] should accept outR0's global id")
	}
}

func TestParseLineLabelHeader(t *testing.T) {
	net := testNetwork(t)
	q, err := ParseLine(net, "<42> [.#.] <ip|43> 0 UNDER")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.InitialHeader.Accepts([]label.Label{label.Mpls(42)}) {
		t.Error("initial header should accept literal label 42")
	}
	if q.InitialHeader.Accepts([]label.Label{label.Mpls(7)}) {
		t.Error("initial header should reject a different literal label")
	}
	if !q.FinalHeader.Accepts([]label.Label{label.IP()}) {
		t.Error("final header alternation should accept ip")
	}
	if !q.FinalHeader.Accepts([]label.Label{label.Mpls(43)}) {
		t.Error("final header alternation should accept 43")
	}
}

func TestParseLineRejectsUnknownMode(t *testing.T) {
	net := testNetwork(t)
	if _, err := ParseLine(net, "<.> [.#.] <.> 0 NOPE"); err == nil {
		t.Fatal("expected an error for an unknown mode keyword")
	}
}

func TestParseLineRejectsUnknownRouterInPath(t *testing.T) {
	net := testNetwork(t)
	if _, err := ParseLine(net, "<.> [Ghost#R1] <.> 0 OVER"); err == nil {
		t.Fatal("expected an error for a path token referencing an unknown router")
	}
}

func TestParseLineRejectsTrailingTokens(t *testing.T) {
	net := testNetwork(t)
	if _, err := ParseLine(net, "<.> [.#.] <.> 0 OVER extra"); err == nil {
		t.Fatal("expected an error for trailing tokens after the mode keyword")
	}
}

func TestParseLineRejectsMalformedHeader(t *testing.T) {
	net := testNetwork(t)
	if _, err := ParseLine(net, "<. [.#.] <.> 0 OVER"); err == nil {
		t.Fatal("expected an error for an unterminated header")
	}
}

func TestReadQueriesSkipsBlankAndCommentLines(t *testing.T) {
	net := testNetwork(t)
	src := "# a comment\n\n<.> [.#.] <.> 0 OVER\n  \n<.> [.#.] <.> 1 DUAL\n"
	qs, raw, err := ReadQueries(net, strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 || len(raw) != 2 {
		t.Fatalf("expected 2 parsed queries, got %d (%v)", len(qs), raw)
	}
	if qs[1].K != 1 || qs[1].Mode != query.Dual {
		t.Errorf("second query = %+v", qs[1])
	}
}

func TestReadQueriesReportsLineNumberOnError(t *testing.T) {
	net := testNetwork(t)
	src := "<.> [.#.] <.> 0 OVER\n<.> [.#.] <.> 0 BOGUS\n"
	_, _, err := ReadQueries(net, strings.NewReader(src))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error to mention line 2, got: %v", err)
	}
}

func TestParseLinePathStarAndDot(t *testing.T) {
	net := testNetwork(t)
	q, err := ParseLine(net, "<.> .* <.> 0 OVER")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Path.Accepts(nil) {
		t.Error(".* should accept the empty path")
	}
	if !q.Path.Accepts([]uint64{1, 2, 3}) {
		t.Error(".* should accept an arbitrary sequence of interface ids")
	}
}
