// Package gmlio parses Topology-Zoo GML topology files into
// internal/netio.NetworkDoc with a small whitespace-split tokenizer (GML
// is neither JSON nor XML).
//
// GML topologies carry no MPLS routing tables, so every produced router
// interface gets an empty routing_table; the conversion only recovers
// topology (routers, locations, links).
package gmlio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aalwines/verifier/internal/aerr"
	"github.com/aalwines/verifier/internal/netio"
)

type gmlNode struct {
	id        string
	label     string
	latitude  float64
	longitude float64
	hasCoord  bool
}

type gmlEdge struct {
	source, target string
}

// Parse scans r for "node [...]" and "edge [...]" blocks and returns the
// resulting topology as a NetworkDoc with empty routing tables.
func Parse(r io.Reader) (*netio.NetworkDoc, error) {
	toks, err := scanTokens(r)
	if err != nil {
		return nil, fmt.Errorf("gmlio: %w: %v", aerr.ErrInputParse, err)
	}

	var nodes []gmlNode
	var edges []gmlEdge

	for i := 0; i < len(toks); i++ {
		switch toks[i] {
		case "node":
			n, next := parseNode(toks, i+1)
			nodes = append(nodes, n)
			i = next
		case "edge":
			e, next := parseEdge(toks, i+1)
			edges = append(edges, e)
			i = next
		}
	}

	byID := map[string]string{} // gml node id -> router name
	doc := &netio.NetworkDoc{Name: "topology-zoo"}
	for idx, n := range nodes {
		name := n.label
		if name == "" {
			name = "R" + n.id
		}
		byID[n.id] = name
		rd := netio.RouterDoc{Name: name}
		if n.hasCoord {
			rd.Location = &netio.LocationDoc{Latitude: n.latitude, Longitude: n.longitude}
		}
		doc.Routers = append(doc.Routers, rd)
		_ = idx
	}

	// Assign one interface per edge endpoint, named after the peer, so
	// every link has distinct interface names on each side.
	ifaceCount := map[string]int{}
	for _, e := range edges {
		fromName, ok1 := byID[e.source]
		toName, ok2 := byID[e.target]
		if !ok1 || !ok2 {
			continue // unresolved endpoint: skip
		}
		fromIf := fmt.Sprintf("to_%s_%d", toName, ifaceCount[fromName])
		ifaceCount[fromName]++
		toIf := fmt.Sprintf("to_%s_%d", fromName, ifaceCount[toName])
		ifaceCount[toName]++

		addInterface(doc, fromName, fromIf)
		addInterface(doc, toName, toIf)
		doc.Links = append(doc.Links, netio.LinkDoc{
			FromRouter: fromName, FromInterface: fromIf,
			ToRouter: toName, ToInterface: toIf,
		})
	}
	return doc, nil
}

func addInterface(doc *netio.NetworkDoc, router, name string) {
	for i := range doc.Routers {
		if doc.Routers[i].Name != router {
			continue
		}
		doc.Routers[i].Interfaces = append(doc.Routers[i].Interfaces, netio.InterfaceDoc{
			Name:         name,
			RoutingTable: map[string][]netio.RuleDoc{},
		})
		return
	}
}

func parseNode(toks []string, i int) (gmlNode, int) {
	var n gmlNode
	for ; i < len(toks); i++ {
		switch toks[i] {
		case "id":
			i++
			if i < len(toks) {
				n.id = toks[i]
			}
		case "label":
			i++
			if i < len(toks) {
				n.label = strings.Trim(toks[i], `"`)
			}
		case "Latitude":
			i++
			if i < len(toks) {
				if v, err := strconv.ParseFloat(toks[i], 64); err == nil {
					n.latitude = v
					n.hasCoord = true
				}
			}
		case "Longitude":
			i++
			if i < len(toks) {
				if v, err := strconv.ParseFloat(toks[i], 64); err == nil {
					n.longitude = v
					n.hasCoord = true
				}
			}
		case "]":
			return n, i
		}
	}
	return n, i
}

func parseEdge(toks []string, i int) (gmlEdge, int) {
	var e gmlEdge
	for ; i < len(toks); i++ {
		switch toks[i] {
		case "source":
			i++
			if i < len(toks) {
				e.source = toks[i]
			}
		case "target":
			i++
			if i < len(toks) {
				e.target = toks[i]
			}
		case "]":
			return e, i
		}
	}
	return e, i
}

// scanTokens splits the whole file on whitespace, stripping GML's bracket
// punctuation into their own tokens so parseNode/parseEdge can scan for
// the closing "]".
func scanTokens(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.ReplaceAll(line, "[", " [ ")
		line = strings.ReplaceAll(line, "]", " ] ")
		out = append(out, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
