// Package prexio parses the P-Rex XML topology/routing format into
// internal/netio.NetworkDoc: a topology document and a routing document,
// parsed together into one network.
package prexio

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/aalwines/verifier/internal/aerr"
	"github.com/aalwines/verifier/internal/netio"
)

// topologyDoc is the P-Rex topology file: routers, their interfaces, and
// the links pairing them.
type topologyDoc struct {
	XMLName xml.Name       `xml:"network"`
	Name    string         `xml:"name,attr"`
	Routers []topologyRtr  `xml:"routers>router"`
	Links   []topologyLink `xml:"links>link"`
}

type topologyRtr struct {
	Name       string           `xml:"name,attr"`
	Latitude   *float64         `xml:"latitude,attr"`
	Longitude  *float64         `xml:"longitude,attr"`
	Interfaces []topologyIfc    `xml:"interface"`
}

type topologyIfc struct {
	Name string `xml:"name,attr"`
}

type topologyLink struct {
	FromRouter    string `xml:"from_router,attr"`
	FromInterface string `xml:"from_interface,attr"`
	ToRouter      string `xml:"to_router,attr"`
	ToInterface   string `xml:"to_interface,attr"`
}

// routingDoc is the P-Rex routing file: one routing table per (router,
// interface) pair.
type routingDoc struct {
	XMLName xml.Name      `xml:"routing"`
	Routers []routingRtr  `xml:"router"`
}

type routingRtr struct {
	Name       string          `xml:"name,attr"`
	Interfaces []routingIfc    `xml:"interface"`
}

type routingIfc struct {
	Name  string        `xml:"name,attr"`
	Rules []routingRule `xml:"rule"`
}

type routingRule struct {
	Label    string `xml:"label,attr"`
	Out      string `xml:"out,attr"`
	Priority uint32 `xml:"priority,attr"`
	Weight   uint32 `xml:"weight,attr"`
	Pop      *struct{} `xml:"pop"`
	Push     *string   `xml:"push"`
	Swap     *string   `xml:"swap"`
}

// Parse reads the two P-Rex documents and merges them into a NetworkDoc
// netio.Parse can then hand to internal/netio. Matches
// PRexBuilder::parse's two-argument (topo_fn, routing_fn) signature.
func Parse(topology, routing io.Reader) (*netio.NetworkDoc, error) {
	var topo topologyDoc
	if err := xml.NewDecoder(topology).Decode(&topo); err != nil {
		return nil, fmt.Errorf("prexio: %w: topology document: %v", aerr.ErrInputParse, err)
	}

	doc := &netio.NetworkDoc{Name: topo.Name}
	for _, r := range topo.Routers {
		rd := netio.RouterDoc{Name: r.Name}
		if r.Latitude != nil && r.Longitude != nil {
			rd.Location = &netio.LocationDoc{Latitude: *r.Latitude, Longitude: *r.Longitude}
		}
		for _, ifc := range r.Interfaces {
			rd.Interfaces = append(rd.Interfaces, netio.InterfaceDoc{
				Name:         ifc.Name,
				RoutingTable: map[string][]netio.RuleDoc{},
			})
		}
		doc.Routers = append(doc.Routers, rd)
	}
	for _, l := range topo.Links {
		doc.Links = append(doc.Links, netio.LinkDoc{
			FromRouter:    l.FromRouter,
			FromInterface: l.FromInterface,
			ToRouter:      l.ToRouter,
			ToInterface:   l.ToInterface,
		})
	}

	if routing == nil {
		return doc, nil
	}
	var rt routingDoc
	if err := xml.NewDecoder(routing).Decode(&rt); err != nil {
		return nil, fmt.Errorf("prexio: %w: routing document: %v", aerr.ErrInputParse, err)
	}
	for _, r := range rt.Routers {
		rd := findRouter(doc, r.Name)
		if rd == nil {
			continue // unresolved router: tolerated, same best-effort stance as gmlio
		}
		for _, ifc := range r.Interfaces {
			id := findInterface(rd, ifc.Name)
			if id == nil {
				continue
			}
			for _, rule := range ifc.Rules {
				ops, err := ruleOps(rule)
				if err != nil {
					return nil, fmt.Errorf("prexio: %w: router %q interface %q: %v", aerr.ErrInputParse, r.Name, ifc.Name, err)
				}
				id.RoutingTable[rule.Label] = append(id.RoutingTable[rule.Label], netio.RuleDoc{
					Out:      rule.Out,
					Priority: rule.Priority,
					Weight:   rule.Weight,
					Ops:      ops,
				})
			}
		}
	}
	return doc, nil
}

func ruleOps(r routingRule) ([]netio.ActionDoc, error) {
	set := 0
	var a netio.ActionDoc
	if r.Pop != nil {
		set++
		empty := ""
		a = netio.ActionDoc{Pop: &empty}
	}
	if r.Push != nil {
		set++
		a = netio.ActionDoc{Push: r.Push}
	}
	if r.Swap != nil {
		set++
		a = netio.ActionDoc{Swap: r.Swap}
	}
	if set == 0 {
		return nil, nil // no action element: forward unchanged
	}
	if set != 1 {
		return nil, fmt.Errorf("rule must set at most one of pop/push/swap, got %d", set)
	}
	return []netio.ActionDoc{a}, nil
}

func findRouter(doc *netio.NetworkDoc, name string) *netio.RouterDoc {
	for i := range doc.Routers {
		if doc.Routers[i].Name == name {
			return &doc.Routers[i]
		}
	}
	return nil
}

func findInterface(rd *netio.RouterDoc, name string) *netio.InterfaceDoc {
	for i := range rd.Interfaces {
		if rd.Interfaces[i].Name == name {
			return &rd.Interfaces[i]
		}
	}
	return nil
}
