// Package junos parses a reduced Junos "show configuration" grammar
// (interfaces/protocols mpls/routing-options stanzas) into one router's
// worth of internal/netio.NetworkDoc, with a small brace-block scanner
// in the same style as internal/gmlio's GML tokenizer.
package junos

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/aalwines/verifier/internal/aerr"
	"github.com/aalwines/verifier/internal/netio"
)

// block is one curly-brace stanza: `name { stmt; stmt; child { ... } }`.
type block struct {
	name     string
	stmts    [][]string // each statement's whitespace-separated words, sans trailing ';'
	children []*block
}

func (b *block) child(name string) *block {
	for _, c := range b.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// scan tokenizes on whitespace, isolating '{', '}', ';' as their own
// tokens so the recursive block parser can find stanza boundaries.
func scan(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.ReplaceAll(line, "{", " { ")
		line = strings.ReplaceAll(line, "}", " } ")
		line = strings.ReplaceAll(line, ";", " ; ")
		out = append(out, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseBlock consumes toks[i:] as the body of a brace block (after the
// opening '{' has already been consumed by the caller), returning the
// populated block and the index just past the matching '}'. A '{' turns
// the words accumulated since the last boundary into the child stanza's
// name, so multi-word stanza headers like "unit 0" and "route 100" keep
// their arguments.
func parseBlock(name string, toks []string, i int) (*block, int, error) {
	b := &block{name: name}
	var stmt []string
	for i < len(toks) {
		switch tok := toks[i]; tok {
		case "}":
			return b, i + 1, nil
		case "{":
			if len(stmt) == 0 {
				return nil, i, fmt.Errorf("unexpected '{' with no stanza name")
			}
			child, next, err := parseBlock(strings.Join(stmt, " "), toks, i+1)
			if err != nil {
				return nil, i, err
			}
			b.children = append(b.children, child)
			stmt = nil
			i = next
		case ";":
			if len(stmt) > 0 {
				b.stmts = append(b.stmts, stmt)
				stmt = nil
			}
			i++
		default:
			stmt = append(stmt, tok)
			i++
		}
	}
	return b, i, nil
}

// parseRoot treats the whole token stream as the body of an unnamed root
// block, stopping only at EOF (no enclosing braces).
func parseRoot(toks []string) (*block, error) {
	root := &block{name: ""}
	i := 0
	var stmt []string
	for i < len(toks) {
		switch tok := toks[i]; tok {
		case ";":
			if len(stmt) > 0 {
				root.stmts = append(root.stmts, stmt)
				stmt = nil
			}
			i++
		case "{":
			if len(stmt) == 0 {
				return nil, fmt.Errorf("unexpected '{' with no stanza name at top level")
			}
			child, next, err := parseBlock(strings.Join(stmt, " "), toks, i+1)
			if err != nil {
				return nil, err
			}
			root.children = append(root.children, child)
			stmt = nil
			i = next
		case "}":
			return nil, fmt.Errorf("unexpected '}' at top level")
		default:
			stmt = append(stmt, tok)
			i++
		}
	}
	return root, nil
}

// Parse reads one device's Junos configuration and returns it as a
// single-router NetworkDoc named routerName. Recognizes:
//
//	interfaces {
//	    ge-0/0/0 {
//	        unit 0 {
//	            family mpls;
//	        }
//	    }
//	}
//	routing-options {
//	    static {
//	        route 100 {
//	            pop;
//	            next-hop ge-0/0/1.0;
//	        }
//	        route 200 {
//	            swap-label 300;
//	            next-hop ge-0/0/2.0;
//	            priority 1;
//	        }
//	    }
//	}
//
// Interfaces are named "<physical>.<unit>"; routes with no pop/swap-label/
// push-label statement forward unchanged.
func Parse(routerName string, r io.Reader) (*netio.NetworkDoc, error) {
	toks, err := scan(r)
	if err != nil {
		return nil, fmt.Errorf("junos: %w: %v", aerr.ErrInputParse, err)
	}
	root, err := parseRoot(toks)
	if err != nil {
		return nil, fmt.Errorf("junos: %w: %v", aerr.ErrInputParse, err)
	}

	rd := netio.RouterDoc{Name: routerName}
	ifaceNames := map[string]bool{}

	if ifaces := root.child("interfaces"); ifaces != nil {
		for _, phy := range ifaces.children {
			for _, unit := range phy.children {
				f := strings.Fields(unit.name)
				if len(f) != 2 || f[0] != "unit" {
					continue
				}
				name := fmt.Sprintf("%s.%s", phy.name, f[1])
				ifaceNames[name] = true
				rd.Interfaces = append(rd.Interfaces, netio.InterfaceDoc{
					Name:         name,
					RoutingTable: map[string][]netio.RuleDoc{},
				})
			}
		}
	}

	if ro := root.child("routing-options"); ro != nil {
		if static := ro.child("static"); static != nil {
			if err := populateRoutes(&rd, static.children); err != nil {
				return nil, err
			}
		}
	}

	return &netio.NetworkDoc{Name: routerName, Routers: []netio.RouterDoc{rd}}, nil
}

func populateRoutes(rd *netio.RouterDoc, routes []*block) error {
	for _, route := range routes {
		f := strings.Fields(route.name)
		if len(f) != 2 || f[0] != "route" {
			continue
		}
		if err := applyLabelStanza(rd, f[1], route); err != nil {
			return err
		}
	}
	return nil
}

func applyLabelStanza(rd *netio.RouterDoc, label string, labelBlk *block) error {
	var out string
	var priority, weight uint64
	var ops []netio.ActionDoc
	for _, s := range labelBlk.stmts {
		if len(s) == 0 {
			continue
		}
		switch s[0] {
		case "pop":
			empty := ""
			ops = append(ops, netio.ActionDoc{Pop: &empty})
		case "swap-label":
			if len(s) < 2 {
				return fmt.Errorf("junos: %w: swap-label with no value", aerr.ErrInputParse)
			}
			v := s[1]
			ops = append(ops, netio.ActionDoc{Swap: &v})
		case "push-label":
			if len(s) < 2 {
				return fmt.Errorf("junos: %w: push-label with no value", aerr.ErrInputParse)
			}
			v := s[1]
			ops = append(ops, netio.ActionDoc{Push: &v})
		case "next-hop":
			if len(s) >= 2 {
				out = s[1]
			}
		case "priority":
			if len(s) >= 2 {
				fmt.Sscanf(s[1], "%d", &priority)
			}
		case "weight":
			if len(s) >= 2 {
				fmt.Sscanf(s[1], "%d", &weight)
			}
		}
	}
	if out == "" {
		return nil // incomplete stanza (no next-hop resolved yet): skip, best-effort
	}
	for i := range rd.Interfaces {
		rd.Interfaces[i].RoutingTable[label] = append(rd.Interfaces[i].RoutingTable[label], netio.RuleDoc{
			Out:      out,
			Priority: uint32(priority),
			Weight:   uint32(weight),
			Ops:      ops,
		})
	}
	return nil
}
