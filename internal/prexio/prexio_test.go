package prexio

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aalwines/verifier/internal/netio"
)

const sampleTopology = `
<network name="demo">
  <routers>
    <router name="R0" latitude="57.0" longitude="9.9">
      <interface name="in"/>
      <interface name="out"/>
    </router>
    <router name="R1">
      <interface name="in"/>
    </router>
  </routers>
  <links>
    <link from_router="R0" from_interface="out" to_router="R1" to_interface="in"/>
  </links>
</network>
`

const sampleRouting = `
<routing>
  <router name="R0">
    <interface name="in">
      <rule label="100" out="out" priority="0"><swap>200</swap></rule>
      <rule label="300" out="out" priority="1"><pop/></rule>
    </interface>
  </router>
</routing>
`

func TestParseTopologyOnly(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTopology), nil)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "demo" || len(doc.Routers) != 2 {
		t.Fatalf("unexpected doc: %+v", doc)
	}
	if doc.Routers[0].Location == nil || doc.Routers[0].Location.Latitude != 57.0 {
		t.Fatalf("R0 location = %+v", doc.Routers[0].Location)
	}
	wantLinks := []netio.LinkDoc{{
		FromRouter: "R0", FromInterface: "out",
		ToRouter: "R1", ToInterface: "in",
	}}
	if diff := cmp.Diff(wantLinks, doc.Links); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMergesRouting(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTopology), strings.NewReader(sampleRouting))
	if err != nil {
		t.Fatal(err)
	}
	rt := doc.Routers[0].Interfaces[0].RoutingTable

	swap := "200"
	if diff := cmp.Diff([]netio.RuleDoc{{
		Out: "out", Priority: 0,
		Ops: []netio.ActionDoc{{Swap: &swap}},
	}}, rt["100"]); diff != "" {
		t.Fatalf("label 100 mismatch (-want +got):\n%s", diff)
	}
	if len(rt["300"]) != 1 || rt["300"][0].Ops[0].Pop == nil {
		t.Fatalf("label 300 should pop, got %+v", rt["300"])
	}
}

func TestParseToleratesUnknownRoutingRouter(t *testing.T) {
	routing := `
<routing>
  <router name="ghost">
    <interface name="x">
      <rule label="1" out="y" priority="0"><pop/></rule>
    </interface>
  </router>
</routing>
`
	doc, err := Parse(strings.NewReader(sampleTopology), strings.NewReader(routing))
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range doc.Routers {
		for _, ifc := range r.Interfaces {
			if len(ifc.RoutingTable) != 0 {
				t.Fatalf("no table should have been populated, got %+v", ifc.RoutingTable)
			}
		}
	}
}

func TestParseRejectsMalformedTopology(t *testing.T) {
	if _, err := Parse(strings.NewReader("<network"), nil); err == nil {
		t.Fatal("expected a parse error")
	}
}
