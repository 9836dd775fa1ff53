package queryio

import (
	"fmt"

	"github.com/aalwines/verifier/internal/ifaceautomaton"
	"github.com/aalwines/verifier/internal/label"
	"github.com/aalwines/verifier/internal/netgraph"
)

// parser is a small recursive-descent parser shared by the header and path
// grammars:
//
//	headerExpr := alt
//	alt        := concat ('|' concat)*
//	concat     := postfix*
//	postfix    := atom '*'?
//	atom       := LABEL | '.' | '(' alt ')'
//
//	pathExpr   := alt      (same alt/concat/postfix shape)
//	atom       := '[' side '#' side ']' | '.' | '(' alt ')'
//	side       := IDENT | '.'
type parser struct {
	toks []token
	pos  int
	net  *netgraph.Network
}

func (p *parser) cur() token   { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}
func (p *parser) expect(k tokenKind) (token, error) {
	if p.cur().kind != k {
		return token{}, fmt.Errorf("queryio: expected %s, got %s", k, p.cur().kind)
	}
	return p.advance(), nil
}

// --- header grammar (alphabet: label.Label) ---

func (p *parser) headerAlt() (*node[label.Label], error) {
	first, err := p.headerConcat()
	if err != nil {
		return nil, err
	}
	opts := []*node[label.Label]{first}
	for p.cur().kind == tPipe {
		p.advance()
		n, err := p.headerConcat()
		if err != nil {
			return nil, err
		}
		opts = append(opts, n)
	}
	return altNode(opts), nil
}

func (p *parser) headerConcat() (*node[label.Label], error) {
	var parts []*node[label.Label]
	for p.headerAtomStarts() {
		n, err := p.headerPostfix()
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return &node[label.Label]{}, nil
	}
	return concatNode(parts), nil
}

func (p *parser) headerAtomStarts() bool {
	switch p.cur().kind {
	case tIdent, tNumber, tDot, tLParen:
		return true
	default:
		return false
	}
}

func (p *parser) headerPostfix() (*node[label.Label], error) {
	a, err := p.headerAtom()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tStar {
		p.advance()
		return starNode(a), nil
	}
	return a, nil
}

func (p *parser) headerAtom() (*node[label.Label], error) {
	switch p.cur().kind {
	case tDot:
		p.advance()
		return atomNode(ifaceautomaton.Edge[label.Label]{Wildcard: true}), nil
	case tLParen:
		p.advance()
		n, err := p.headerAlt()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return n, nil
	case tIdent, tNumber:
		t := p.advance()
		l, err := label.Parse(t.text)
		if err != nil {
			return nil, fmt.Errorf("queryio: header label %q: %w", t.text, err)
		}
		return atomNode(ifaceautomaton.Edge[label.Label]{Positive: map[label.Label]struct{}{l: {}}}), nil
	default:
		return nil, fmt.Errorf("queryio: unexpected token %s in header expression", p.cur().kind)
	}
}

// --- path grammar (alphabet: uint64 interface global id) ---

func (p *parser) pathAlt() (*node[uint64], error) {
	first, err := p.pathConcat()
	if err != nil {
		return nil, err
	}
	opts := []*node[uint64]{first}
	for p.cur().kind == tPipe {
		p.advance()
		n, err := p.pathConcat()
		if err != nil {
			return nil, err
		}
		opts = append(opts, n)
	}
	return altNode(opts), nil
}

func (p *parser) pathConcat() (*node[uint64], error) {
	var parts []*node[uint64]
	for p.pathAtomStarts() {
		n, err := p.pathPostfix()
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return &node[uint64]{}, nil
	}
	return concatNode(parts), nil
}

func (p *parser) pathAtomStarts() bool {
	switch p.cur().kind {
	case tLBrack, tDot, tLParen:
		return true
	default:
		return false
	}
}

func (p *parser) pathPostfix() (*node[uint64], error) {
	a, err := p.pathAtom()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tStar {
		p.advance()
		return starNode(a), nil
	}
	return a, nil
}

func (p *parser) pathAtom() (*node[uint64], error) {
	switch p.cur().kind {
	case tDot:
		p.advance()
		return atomNode(ifaceautomaton.Edge[uint64]{Wildcard: true}), nil
	case tLParen:
		p.advance()
		n, err := p.pathAlt()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return n, nil
	case tLBrack:
		p.advance()
		from, err := p.pathSide()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tHash); err != nil {
			return nil, err
		}
		to, err := p.pathSide()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRBrack); err != nil {
			return nil, err
		}
		edge, err := p.resolveEdge(from, to)
		if err != nil {
			return nil, err
		}
		return atomNode(edge), nil
	default:
		return nil, fmt.Errorf("queryio: unexpected token %s in path expression", p.cur().kind)
	}
}

func (p *parser) pathSide() (string, error) {
	switch p.cur().kind {
	case tDot:
		p.advance()
		return ".", nil
	case tIdent, tNumber:
		return p.advance().text, nil
	default:
		return "", fmt.Errorf("queryio: expected router name or '.' , got %s", p.cur().kind)
	}
}

// resolveEdge builds the interface-global-id edge for one "[from#to]"
// bracket token. Virtual-interface handling is left to
// internal/pdafactory, which skips virtual interfaces when following
// path-NFA edges.
func (p *parser) resolveEdge(from, to string) (ifaceautomaton.Edge[uint64], error) {
	if from == "." && to == "." {
		return ifaceautomaton.Edge[uint64]{Wildcard: true}, nil
	}
	var fromR, toR *netgraph.Router
	if from != "." {
		r, ok := p.net.RouterByName(from)
		if !ok {
			return ifaceautomaton.Edge[uint64]{}, fmt.Errorf("queryio: unknown router %q", from)
		}
		fromR = r
	}
	if to != "." {
		r, ok := p.net.RouterByName(to)
		if !ok {
			return ifaceautomaton.Edge[uint64]{}, fmt.Errorf("queryio: unknown router %q", to)
		}
		toR = r
	}
	set := map[uint64]struct{}{}
	for _, ifc := range p.net.Interfaces() {
		if fromR != nil && ifc.Router != fromR {
			continue
		}
		if toR != nil {
			peer := ifc.PeerInterface()
			if peer == nil || peer.Router != toR {
				continue
			}
		}
		set[ifc.GlobalID()] = struct{}{}
	}
	return ifaceautomaton.Edge[uint64]{Positive: set}, nil
}
