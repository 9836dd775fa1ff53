package junos

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aalwines/verifier/internal/netio"
)

const sampleConfig = `
interfaces {
    ge-0/0/0 {
        unit 0 {
            family mpls;
        }
    }
    ge-0/0/1 {
        unit 0 {
            family mpls;
        }
    }
}
routing-options {
    static {
        route 100 {
            pop;
            next-hop ge-0/0/1.0;
        }
        route 200 {
            swap-label 300;
            next-hop ge-0/0/1.0;
            priority 1;
        }
    }
}
`

func TestParseBuildsSingleRouterDoc(t *testing.T) {
	doc, err := Parse("edge1", strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "edge1" || len(doc.Routers) != 1 {
		t.Fatalf("expected a single-router doc named edge1, got %+v", doc)
	}
	r := doc.Routers[0]
	if len(r.Interfaces) != 2 {
		t.Fatalf("expected 2 interfaces, got %d", len(r.Interfaces))
	}
	if r.Interfaces[0].Name != "ge-0/0/0.0" || r.Interfaces[1].Name != "ge-0/0/1.0" {
		t.Fatalf("interface names = %q, %q", r.Interfaces[0].Name, r.Interfaces[1].Name)
	}
}

func TestParseRoutes(t *testing.T) {
	doc, err := Parse("edge1", strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	rt := doc.Routers[0].Interfaces[0].RoutingTable

	empty := ""
	if diff := cmp.Diff([]netio.RuleDoc{{
		Out: "ge-0/0/1.0", Priority: 0,
		Ops: []netio.ActionDoc{{Pop: &empty}},
	}}, rt["100"]); diff != "" {
		t.Fatalf("route 100 mismatch (-want +got):\n%s", diff)
	}

	swap := "300"
	if diff := cmp.Diff([]netio.RuleDoc{{
		Out: "ge-0/0/1.0", Priority: 1,
		Ops: []netio.ActionDoc{{Swap: &swap}},
	}}, rt["200"]); diff != "" {
		t.Fatalf("route 200 mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCommentsAndBlankLines(t *testing.T) {
	cfg := `
# top-level comment
interfaces {
    ge-0/0/0 {
        unit 0 { family mpls; } # trailing comment
    }
}
`
	doc, err := Parse("r", strings.NewReader(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Routers[0].Interfaces) != 1 {
		t.Fatalf("expected 1 interface, got %+v", doc.Routers[0].Interfaces)
	}
}

func TestParseRejectsStrayBrace(t *testing.T) {
	if _, err := Parse("r", strings.NewReader("{ oops }")); err == nil {
		t.Fatal("expected a parse error for a brace with no stanza name")
	}
}
