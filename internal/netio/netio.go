// Package netio parses and serializes the AalWiNes network JSON grammar
// into/from an internal/netgraph.Network.
package netio

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aalwines/verifier/internal/aerr"
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/routingtable"
)

// ActionDoc is the wire shape of one routing_table rule action: exactly one
// of Pop, Push or Swap is set, per AalWiNesBuilder's from_json(action_t).
type ActionDoc struct {
	Pop  *string `json:"pop,omitempty"`
	Push *string `json:"push,omitempty"`
	Swap *string `json:"swap,omitempty"`
}

// RuleDoc is one entry in a routing_table label's rule array.
type RuleDoc struct {
	Out      string      `json:"out"`
	Priority uint32      `json:"priority"`
	Ops      []ActionDoc `json:"ops"`
	Weight   uint32      `json:"weight,omitempty"`
}

// InterfaceDoc is one interface declaration. Name/Names mirrors
// RouterDoc's union; serialization only ever emits a single "name".
type InterfaceDoc struct {
	Name         string               `json:"name,omitempty"`
	Names        []string             `json:"names,omitempty"`
	RoutingTable map[string][]RuleDoc `json:"routing_table"`
}

func (i InterfaceDoc) primaryName() string {
	if i.Name != "" {
		return i.Name
	}
	if len(i.Names) > 0 {
		return i.Names[0]
	}
	return ""
}

// LocationDoc is a router's optional coordinate.
type LocationDoc struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RouterDoc is one router declaration. A router may be named by a single
// "name" or by an alias list "names"; the first name is primary.
type RouterDoc struct {
	Name       string         `json:"name,omitempty"`
	Names      []string       `json:"names,omitempty"`
	Location   *LocationDoc   `json:"location,omitempty"`
	Interfaces []InterfaceDoc `json:"interfaces"`
}

func (r RouterDoc) allNames() []string {
	if len(r.Names) > 0 {
		return r.Names
	}
	if r.Name != "" {
		return []string{r.Name}
	}
	return nil
}

// LinkDoc pairs two interfaces across routers. Bidirectional is decoded
// but not used, and Serialize does not set it: pairing itself is always
// symmetric.
type LinkDoc struct {
	FromRouter    string `json:"from_router"`
	FromInterface string `json:"from_interface"`
	ToRouter      string `json:"to_router"`
	ToInterface   string `json:"to_interface"`
	Bidirectional bool   `json:"bidirectional,omitempty"`
}

// NetworkDoc is the full "network" object.
type NetworkDoc struct {
	Name    string      `json:"name"`
	Routers []RouterDoc `json:"routers"`
	Links   []LinkDoc   `json:"links"`
}

type rootDoc struct {
	Network NetworkDoc `json:"network"`
}

// Parse decodes network JSON into a fully-linked, validated
// internal/netgraph.Network.
func Parse(data []byte) (*netgraph.Network, error) {
	var root rootDoc
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("netio: %w: %v", aerr.ErrInputParse, err)
	}
	doc := root.Network

	net := netgraph.New(doc.Name)
	for _, rd := range doc.Routers {
		names := rd.allNames()
		if len(names) == 0 {
			return nil, fmt.Errorf("netio: %w: router with no name", aerr.ErrInputParse)
		}
		r := netgraph.NewRouter(names[0], names[1:]...)
		if rd.Location != nil {
			r.Location = &netgraph.Location{Latitude: rd.Location.Latitude, Longitude: rd.Location.Longitude}
		}
		for _, id := range rd.Interfaces {
			name := id.primaryName()
			if name == "" {
				return nil, fmt.Errorf("netio: %w: interface with no name on router %q", aerr.ErrInputParse, names[0])
			}
			if _, err := r.AddInterface(name, 0, false); err != nil {
				return nil, fmt.Errorf("netio: %w: %v", aerr.ErrInputParse, err)
			}
		}
		if err := net.AddRouter(r); err != nil {
			return nil, fmt.Errorf("netio: %w: %v", aerr.ErrNameResolution, err)
		}
	}

	// Second pass: routing tables. A rule's "out" always names an
	// interface of the SAME router (the egress interface this rule
	// forwards onto), per find_interface being called on `router`, not
	// globally.
	for _, rd := range doc.Routers {
		r, _ := net.RouterByName(rd.allNames()[0])
		for _, id := range rd.Interfaces {
			ifc, ok := r.InterfaceByName(id.primaryName())
			if !ok {
				return nil, fmt.Errorf("netio: %w: interface %q vanished on router %q", aerr.ErrInternal, id.primaryName(), r.Name)
			}
			if err := populateTable(r, ifc, id.RoutingTable); err != nil {
				return nil, err
			}
		}
	}

	for _, ld := range doc.Links {
		fromR, ok := net.RouterByName(ld.FromRouter)
		if !ok {
			return nil, fmt.Errorf("netio: %w: link references unknown router %q", aerr.ErrNameResolution, ld.FromRouter)
		}
		toR, ok := net.RouterByName(ld.ToRouter)
		if !ok {
			return nil, fmt.Errorf("netio: %w: link references unknown router %q", aerr.ErrNameResolution, ld.ToRouter)
		}
		fromI, ok := fromR.InterfaceByName(ld.FromInterface)
		if !ok {
			return nil, fmt.Errorf("netio: %w: link references unknown interface %q on router %q", aerr.ErrNameResolution, ld.FromInterface, ld.FromRouter)
		}
		toI, ok := toR.InterfaceByName(ld.ToInterface)
		if !ok {
			return nil, fmt.Errorf("netio: %w: link references unknown interface %q on router %q", aerr.ErrNameResolution, ld.ToInterface, ld.ToRouter)
		}
		if (fromI.PeerInterface() != nil && fromI.PeerInterface() != toI) || (toI.PeerInterface() != nil && toI.PeerInterface() != fromI) {
			return nil, fmt.Errorf("netio: %w: conflicting pairing for %s/%s", aerr.ErrNameResolution, ld.FromRouter, ld.FromInterface)
		}
		netgraph.SetMatch(fromI, toI)
	}

	if err := net.Validate(); err != nil {
		return nil, fmt.Errorf("netio: %w: %v", aerr.ErrNameResolution, err)
	}
	return net, nil
}

func populateTable(r *netgraph.Router, ifc *netgraph.Interface, table map[string][]RuleDoc) error {
	for labelStr, rules := range table {
		top, ignoresLabel, err := parseEntryLabel(labelStr)
		if err != nil {
			return fmt.Errorf("netio: %w: interface %q of router %q: %v", aerr.ErrInputParse, ifc.Name, r.Name, err)
		}
		for _, rd := range rules {
			via, ok := r.InterfaceByName(rd.Out)
			if !ok {
				return fmt.Errorf("netio: %w: rule on interface %q of router %q references unknown egress interface %q", aerr.ErrNameResolution, ifc.Name, r.Name, rd.Out)
			}
			ops, err := parseOps(rd.Ops)
			if err != nil {
				return fmt.Errorf("netio: %w: interface %q of router %q: %v", aerr.ErrInputParse, ifc.Name, r.Name, err)
			}
			ifc.Table.AddRule(top, ignoresLabel, routingtable.Rule{
				Priority: rd.Priority,
				Weight:   rd.Weight,
				Via:      via,
				Ops:      ops,
			})
		}
	}
	return nil
}

// parseEntryLabel parses a routing_table key. "null" and "*" both mark
// the trailing "ignores label" entry.
func parseEntryLabel(s string) (label.Label, bool, error) {
	if s == "null" || s == "*" {
		return label.Wild(), true, nil
	}
	l, err := label.Parse(s)
	if err != nil {
		return label.Label{}, false, err
	}
	return l, l.Kind == label.Wildcard, nil
}

func parseOps(docs []ActionDoc) ([]label.Action, error) {
	ops := make([]label.Action, 0, len(docs))
	for _, d := range docs {
		set := 0
		var a label.Action
		if d.Pop != nil {
			set++
			a = label.Action{Op: label.Pop}
		}
		if d.Push != nil {
			set++
			l, err := label.Parse(*d.Push)
			if err != nil {
				return nil, err
			}
			a = label.Action{Op: label.Push, Label: l}
		}
		if d.Swap != nil {
			set++
			l, err := label.Parse(*d.Swap)
			if err != nil {
				return nil, err
			}
			a = label.Action{Op: label.Swap, Label: l}
		}
		if set != 1 {
			return nil, fmt.Errorf("action must set exactly one of pop/push/swap, got %d", set)
		}
		ops = append(ops, a)
	}
	return ops, nil
}

// Serialize renders net back into the same grammar Parse reads. Link
// direction and the "name" vs "names" choice are normalized, not
// byte-preserved.
func Serialize(net *netgraph.Network) ([]byte, error) {
	doc := NetworkDoc{Name: net.Name}
	seenLinks := map[[2]uint64]bool{}

	for _, r := range net.Routers {
		rd := RouterDoc{Names: allNames(r)}
		if r.Location != nil {
			rd.Location = &LocationDoc{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude}
		}
		for _, ifc := range r.Interfaces {
			rd.Interfaces = append(rd.Interfaces, serializeInterface(ifc))
			if peer := ifc.PeerInterface(); peer != nil {
				key := linkKey(ifc.GlobalID(), peer.GlobalID())
				if !seenLinks[key] {
					seenLinks[key] = true
					doc.Links = append(doc.Links, LinkDoc{
						FromRouter:    r.Name,
						FromInterface: ifc.Name,
						ToRouter:      peer.Router.Name,
						ToInterface:   peer.Name,
					})
				}
			}
		}
		doc.Routers = append(doc.Routers, rd)
	}

	sort.Slice(doc.Links, func(i, j int) bool {
		if doc.Links[i].FromRouter != doc.Links[j].FromRouter {
			return doc.Links[i].FromRouter < doc.Links[j].FromRouter
		}
		return doc.Links[i].FromInterface < doc.Links[j].FromInterface
	})

	return json.MarshalIndent(rootDoc{Network: doc}, "", "  ")
}

func allNames(r *netgraph.Router) []string {
	return append([]string{r.Name}, r.Aliases...)
}

func linkKey(a, b uint64) [2]uint64 {
	if a < b {
		return [2]uint64{a, b}
	}
	return [2]uint64{b, a}
}

func serializeInterface(ifc *netgraph.Interface) InterfaceDoc {
	id := InterfaceDoc{Name: ifc.Name, RoutingTable: map[string][]RuleDoc{}}
	for _, e := range ifc.Table.Entries {
		key := e.TopLabel.String()
		if e.IgnoresLabel {
			key = "*"
		}
		var rules []RuleDoc
		for _, r := range e.Rules {
			rules = append(rules, RuleDoc{
				Out:      viaName(r.Via),
				Priority: r.Priority,
				Weight:   r.Weight,
				Ops:      serializeOps(r.Ops),
			})
		}
		id.RoutingTable[key] = rules
	}
	return id
}

func viaName(via routingtable.Interface) string {
	return netgraph.AsInterface(via).Name
}

// SerializeOps renders a rule's action list in the same shape Parse reads
// it; exported for internal/verifier-adjacent trace rendering (cmd/aalwines)
// to reuse without duplicating the pop/push/swap encoding.
func SerializeOps(ops []label.Action) []ActionDoc {
	return serializeOps(ops)
}

func serializeOps(ops []label.Action) []ActionDoc {
	docs := make([]ActionDoc, 0, len(ops))
	for _, a := range ops {
		switch a.Op {
		case label.Pop:
			s := ""
			docs = append(docs, ActionDoc{Pop: &s})
		case label.Push:
			s := a.Label.String()
			docs = append(docs, ActionDoc{Push: &s})
		case label.Swap:
			s := a.Label.String()
			docs = append(docs, ActionDoc{Swap: &s})
		}
	}
	return docs
}
