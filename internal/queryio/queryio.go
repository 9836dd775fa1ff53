// Package queryio parses the query-line grammar
// `<header_initial> [path_regex] <header_final> k MODE` with a small
// hand-written recursive-descent parser.
package queryio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aalwines/verifier/internal/aerr"
	"github.com/aalwines/verifier/internal/netgraph"
	"github.com/aalwines/verifier/internal/query"
)

// ParseLine parses one query line against net, resolving path-regex router
// names against it.
func ParseLine(net *netgraph.Network, line string) (*query.Query, error) {
	toks, err := tokenize(line)
	if err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}
	p := &parser{toks: toks, net: net}

	if _, err := p.expect(tLT); err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}
	initAST, err := p.headerAlt()
	if err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}
	if _, err := p.expect(tGT); err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}

	pathAST, err := p.pathAlt()
	if err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}

	if _, err := p.expect(tLT); err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}
	finalAST, err := p.headerAlt()
	if err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}
	if _, err := p.expect(tGT); err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}

	kTok, err := p.expect(tNumber)
	if err != nil {
		return nil, fmt.Errorf("queryio: %w: expected failure bound: %v", aerr.ErrInputParse, err)
	}
	k, err := strconv.ParseUint(kTok.text, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("queryio: %w: failure bound %q: %v", aerr.ErrInputParse, kTok.text, err)
	}

	modeTok, err := p.expect(tIdent)
	if err != nil {
		return nil, fmt.Errorf("queryio: %w: expected mode keyword: %v", aerr.ErrInputParse, err)
	}
	mode, err := query.ParseMode(modeTok.text)
	if err != nil {
		return nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}

	if p.cur().kind != tEOF {
		return nil, fmt.Errorf("queryio: %w: trailing tokens after mode: %s", aerr.ErrInputParse, describeTokens(p.toks[p.pos:]))
	}

	return &query.Query{
		InitialHeader: compile(initAST),
		Path:          compile(pathAST),
		FinalHeader:   compile(finalAST),
		K:             uint32(k),
		Mode:          mode,
	}, nil
}

// ReadQueries reads one query per non-blank, non-'#'-comment line from r,
// returning the parsed queries alongside their raw source lines, in the
// same order. A parse error names the 1-based line it came from.
func ReadQueries(net *netgraph.Network, r io.Reader) ([]*query.Query, []string, error) {
	var queries []*query.Query
	var raw []string
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q, err := ParseLine(net, line)
		if err != nil {
			return nil, nil, fmt.Errorf("queryio: line %d: %w", lineNo, err)
		}
		queries = append(queries, q)
		raw = append(raw, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("queryio: %w: %v", aerr.ErrInputParse, err)
	}
	return queries, raw, nil
}
