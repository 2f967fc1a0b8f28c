// Package update implements the SPARQL 1.1 Update operations of §4.8:
// INSERT/DELETE DATA, the WHERE-bearing MODIFY forms, LOAD, CLEAR/DROP/
// CREATE, and COPY/MOVE/ADD.
//
// There is no separate Update grammar parser here. The quad-template and
// graph-pattern productions a SPARQL Update statement uses are exactly
// the CONSTRUCT-template and WHERE-pattern productions the query grammar
// already parses, so each `{ ... }` block of an update statement is
// pulled out textually and re-parsed by synthesizing a throwaway query
// (`CONSTRUCT { block } WHERE {}` for a quad template, `SELECT * WHERE {
// block }` for a pattern) and handing it to internal/sparql/parser. This
// reuses the one real grammar rather than duplicating its productions in
// a second, update-specific parser.
package update

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/trigo-rdf/trigo/internal/rdfparse/ntriples"
	"github.com/trigo-rdf/trigo/internal/rdfparse/turtle"
	"github.com/trigo-rdf/trigo/internal/rdferr"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/internal/sparql/executor"
	"github.com/trigo-rdf/trigo/internal/sparql/optimizer"
	"github.com/trigo-rdf/trigo/internal/sparql/parser"
	"github.com/trigo-rdf/trigo/internal/store"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// FetchFunc retrieves the content LOAD dereferences an IRI into, per
// §6's RDF fetch interface: the core stays free of network code, a host
// supplies this.
type FetchFunc func(iri string) (r io.Reader, mediaType string, err error)

// Engine applies SPARQL Update requests against a quad store.
type Engine struct {
	store *store.Store
	exec  *executor.Executor
	fetch FetchFunc
}

// New builds an Engine. fetch may be nil, in which case LOAD always
// fails UnsupportedFeature.
func New(s *store.Store, exec *executor.Executor, fetch FetchFunc) *Engine {
	return &Engine{store: s, exec: exec, fetch: fetch}
}

// Execute runs every statement of request in sequence. Each statement
// commits atomically on its own; a mid-script failure leaves earlier
// statements' effects applied, per §4.8's atomicity rule.
func (e *Engine) Execute(ctx context.Context, request string) error {
	prologue, body := splitPrologue(request)
	for _, stmt := range splitStatements(body) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return &rdferr.Cancelled{}
		}
		if err := e.executeStatement(ctx, prologue, stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitPrologue consumes leading PREFIX/BASE declaration lines so their
// bindings can be prepended to every synthesized wrapper query later;
// a line-oriented split, not a full tokenizer, on the assumption that a
// request's prologue is formatted one directive per line (the common
// style, matching how the query parser's own callers format prologues).
func splitPrologue(request string) (prologue, body string) {
	lines := strings.SplitAfter(request, "\n")
	i := 0
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		upper := strings.ToUpper(trimmed)
		if trimmed == "" || strings.HasPrefix(upper, "PREFIX") || strings.HasPrefix(upper, "BASE") {
			continue
		}
		break
	}
	return strings.Join(lines[:i], ""), strings.Join(lines[i:], "")
}

// splitStatements splits request on top-level ';', ignoring ';' that
// appears inside a '{ }' block, a quoted string, or an IRIREF.
func splitStatements(s string) []string {
	var out []string
	depth := 0
	start := 0
	var inStr byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr != 0 {
			if c == inStr && s[i-1] != '\\' {
				inStr = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inStr = c
		case '<':
			if j := strings.IndexByte(s[i:], '>'); j >= 0 {
				i += j
			}
		case '{':
			depth++
		case '}':
			depth--
		case ';':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(s[start:]) != "" {
		out = append(out, s[start:])
	}
	return out
}

func hasKeyword(upper, kw string) bool {
	if !strings.HasPrefix(upper, kw) {
		return false
	}
	rest := upper[len(kw):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' || rest[0] == '{'
}

func (e *Engine) executeStatement(ctx context.Context, prologue, stmt string) error {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	switch {
	case hasKeyword(upper, "INSERT DATA"):
		return e.execData(prologue, stmt[strings.Index(upper, "DATA")+4:], true)
	case hasKeyword(upper, "DELETE DATA"):
		return e.execData(prologue, stmt[strings.Index(upper, "DATA")+4:], false)
	case hasKeyword(upper, "DELETE WHERE"):
		return e.execDeleteWhere(ctx, prologue, stmt[len("DELETE WHERE"):])
	case hasKeyword(upper, "DELETE") || hasKeyword(upper, "INSERT") || hasKeyword(upper, "WITH"):
		return e.execModify(ctx, prologue, stmt)
	case hasKeyword(upper, "LOAD"):
		return e.execLoad(ctx, stmt[len("LOAD"):])
	case hasKeyword(upper, "CLEAR"):
		return e.execClearDrop(stmt[len("CLEAR"):], true)
	case hasKeyword(upper, "DROP"):
		return e.execClearDrop(stmt[len("DROP"):], false)
	case hasKeyword(upper, "CREATE"):
		return nil // graphs are implicit in this store; CREATE has nothing to do
	case hasKeyword(upper, "COPY"):
		return e.execCopyMoveAdd(stmt[len("COPY"):], "COPY")
	case hasKeyword(upper, "MOVE"):
		return e.execCopyMoveAdd(stmt[len("MOVE"):], "MOVE")
	case hasKeyword(upper, "ADD"):
		return e.execCopyMoveAdd(stmt[len("ADD"):], "ADD")
	default:
		return &rdferr.SyntaxError{Detail: fmt.Sprintf("unrecognized update statement: %q", stmt)}
	}
}

// quadTemplate is one triple of a DATA block or a MODIFY template,
// before variable substitution; S/P/O may be variables in a MODIFY
// template but never in a DATA block.
type quadTemplate struct {
	S, P, O algebra.TermPattern
	Graph   rdf.Term // nil = default graph
}

// parseQuadBlock pulls the triples out of one '{ ... }' quad or quad-
// template block, splitting top-level `GRAPH <iri> { ... }` segments
// from the remaining default-graph triples, and reusing the CONSTRUCT
// template grammar (via a synthesized throwaway query) to parse each
// segment's triples.
func parseQuadBlock(prologue, block string) ([]quadTemplate, error) {
	block = strings.TrimSpace(block)
	block = strings.TrimPrefix(block, "{")
	block = strings.TrimSuffix(block, "}")

	type segment struct {
		graph rdf.Term
		text  string
	}
	var segments []segment
	var defaultBuf strings.Builder

	depth := 0
	i := 0
	for i < len(block) {
		c := block[i]
		if depth == 0 && strings.HasPrefix(strings.ToUpper(block[i:]), "GRAPH") {
			rest := block[i+len("GRAPH"):]
			rest = strings.TrimLeft(rest, " \t\r\n")
			iriEnd := strings.IndexByte(rest, '{')
			if iriEnd < 0 {
				return nil, &rdferr.SyntaxError{Detail: "GRAPH block missing '{'"}
			}
			graphIRI := strings.TrimSpace(rest[:iriEnd])
			body, consumed, err := extractBraceBlock(rest[iriEnd:])
			if err != nil {
				return nil, err
			}
			term, err := parseTermLiteral(graphIRI)
			if err != nil {
				return nil, err
			}
			segments = append(segments, segment{graph: term, text: body})
			i += len("GRAPH") + (len(block[i+len("GRAPH"):]) - len(rest)) + iriEnd + consumed
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		}
		defaultBuf.WriteByte(c)
		i++
	}
	if strings.TrimSpace(defaultBuf.String()) != "" {
		segments = append([]segment{{graph: nil, text: defaultBuf.String()}}, segments...)
	}

	var out []quadTemplate
	for _, seg := range segments {
		wrapper := prologue + "CONSTRUCT { " + seg.text + " } WHERE {}"
		q, err := parser.Parse(wrapper)
		if err != nil {
			return nil, err
		}
		for _, tp := range q.ConstructTemplate {
			out = append(out, quadTemplate{S: tp.Subject, P: tp.Predicate, O: tp.Object, Graph: seg.graph})
		}
	}
	return out, nil
}

// extractBraceBlock returns the '{ ... }' block at the start of s
// (after leading whitespace) and how many bytes of s it consumed.
func extractBraceBlock(s string) (body string, consumed int, err error) {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	skip := len(s) - len(trimmed)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", 0, &rdferr.SyntaxError{Detail: "expected '{'"}
	}
	depth := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return trimmed[1:i], skip + i + 1, nil
			}
		}
	}
	return "", 0, &rdferr.SyntaxError{Detail: "unterminated '{'"}
}

// parseTermLiteral parses a single IRIREF or prefixed-name graph term by
// wrapping it as a CONSTRUCT template's sole object position.
func parseTermLiteral(text string) (rdf.Term, error) {
	q, err := parser.Parse("CONSTRUCT { <urn:x:s> <urn:x:p> " + text + " } WHERE {}")
	if err != nil {
		return nil, err
	}
	if len(q.ConstructTemplate) != 1 || q.ConstructTemplate[0].Object.Term == nil {
		return nil, &rdferr.SyntaxError{Detail: "expected a ground IRI: " + text}
	}
	return q.ConstructTemplate[0].Object.Term, nil
}

func instantiate(qt quadTemplate, b executor.Binding) (*rdf.Quad, bool) {
	resolve := func(tp algebra.TermPattern) (rdf.Term, bool) {
		if !tp.IsVariable() {
			return tp.Term, true
		}
		v, ok := b[tp.Var]
		return v, ok
	}
	s, ok := resolve(qt.S)
	if !ok {
		return nil, false
	}
	p, ok := resolve(qt.P)
	if !ok {
		return nil, false
	}
	o, ok := resolve(qt.O)
	if !ok {
		return nil, false
	}
	graph := qt.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	return rdf.NewQuad(s, p, o, graph), true
}

func dedupQuads(quads []*rdf.Quad) []*rdf.Quad {
	seen := make(map[string]bool, len(quads))
	out := quads[:0:0]
	for _, q := range quads {
		k := q.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, q)
	}
	return out
}

func (e *Engine) execData(prologue, block string, insert bool) error {
	templates, err := parseQuadBlock(prologue, block)
	if err != nil {
		return err
	}
	quads := make([]*rdf.Quad, 0, len(templates))
	for _, t := range templates {
		q, ok := instantiate(t, executor.Binding{})
		if !ok {
			return &rdferr.SyntaxError{Detail: "DATA block may not contain variables"}
		}
		quads = append(quads, q)
	}
	if insert {
		return e.store.InsertBatch(quads)
	}
	return e.store.DeleteBatch(quads)
}

// execDeleteWhere handles `DELETE WHERE { pattern }`, where pattern
// serves as both the binding source and (with its variables
// substituted) the delete template.
func (e *Engine) execDeleteWhere(ctx context.Context, prologue, rest string) error {
	body, _, err := extractBraceBlock(rest)
	if err != nil {
		return err
	}
	templates, err := parseQuadBlock(prologue, "{"+body+"}")
	if err != nil {
		return err
	}
	rows, err := e.evalPattern(ctx, prologue, body)
	if err != nil {
		return err
	}
	return e.applyTemplates(templates, nil, rows)
}

// execModify handles the general `[WITH <iri>] [DELETE {t}] [INSERT
// {t}] WHERE {p}` MODIFY form. A `WITH` clause is not supported: the
// default-graph scoping it implies would need every unscoped triple in
// the DELETE/INSERT/WHERE blocks rewritten onto that graph, which this
// textual-reuse parser has no clean hook for.
func (e *Engine) execModify(ctx context.Context, prologue, stmt string) error {
	upper := strings.ToUpper(stmt)
	if strings.HasPrefix(upper, "WITH") {
		return &rdferr.UnsupportedFeature{Detail: "WITH clause on a MODIFY statement"}
	}

	rest := stmt
	var deleteTemplates, insertTemplates []quadTemplate

	for {
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		u := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(u, "DELETE"):
			body, consumed, err := extractBraceBlock(trimmed[len("DELETE"):])
			if err != nil {
				return err
			}
			deleteTemplates, err = parseQuadBlock(prologue, "{"+body+"}")
			if err != nil {
				return err
			}
			rest = trimmed[len("DELETE")+consumed:]
			continue
		case strings.HasPrefix(u, "INSERT"):
			body, consumed, err := extractBraceBlock(trimmed[len("INSERT"):])
			if err != nil {
				return err
			}
			insertTemplates, err = parseQuadBlock(prologue, "{"+body+"}")
			if err != nil {
				return err
			}
			rest = trimmed[len("INSERT")+consumed:]
			continue
		}
		rest = trimmed
		break
	}

	upperRest := strings.ToUpper(rest)
	idx := strings.Index(upperRest, "WHERE")
	if idx < 0 {
		return &rdferr.SyntaxError{Detail: "MODIFY statement missing WHERE clause"}
	}
	body, _, err := extractBraceBlock(rest[idx+len("WHERE"):])
	if err != nil {
		return err
	}
	rows, err := e.evalPattern(ctx, prologue, body)
	if err != nil {
		return err
	}
	return e.applyTemplates(deleteTemplates, insertTemplates, rows)
}

func (e *Engine) applyTemplates(deleteTemplates, insertTemplates []quadTemplate, rows []executor.Binding) error {
	var toDelete, toInsert []*rdf.Quad
	for _, b := range rows {
		for _, t := range deleteTemplates {
			if q, ok := instantiate(t, b); ok {
				toDelete = append(toDelete, q)
			}
		}
		for _, t := range insertTemplates {
			if q, ok := instantiate(t, b); ok {
				toInsert = append(toInsert, q)
			}
		}
	}
	// delete before insert, as one atomic commit (§4.8): a concurrent
	// reader must never observe the deletes applied without the
	// inserts, or vice versa.
	return e.store.ApplyBatch(dedupQuads(toDelete), dedupQuads(toInsert))
}

func (e *Engine) evalPattern(ctx context.Context, prologue, pattern string) ([]executor.Binding, error) {
	wrapper := prologue + "SELECT * WHERE { " + pattern + " }"
	q, err := parser.Parse(wrapper)
	if err != nil {
		return nil, err
	}
	plan := optimizer.Optimize(parser.ToAlgebra(q))
	it, err := e.exec.Execute(ctx, plan, executor.Dataset{})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var rows []executor.Binding
	for it.Next() {
		rows = append(rows, it.Binding())
	}
	return rows, nil
}

func (e *Engine) execLoad(ctx context.Context, rest string) error {
	rest = strings.TrimSpace(rest)
	silent := false
	upper := strings.ToUpper(rest)
	if strings.HasPrefix(upper, "SILENT") {
		silent = true
		rest = strings.TrimSpace(rest[len("SILENT"):])
		upper = strings.ToUpper(rest)
	}

	var iriText, graphText string
	if idx := strings.Index(upper, "INTO"); idx >= 0 {
		iriText = strings.TrimSpace(rest[:idx])
		graphRest := strings.TrimSpace(rest[idx+len("INTO"):])
		graphUpper := strings.ToUpper(graphRest)
		graphText = strings.TrimSpace(graphRest[strings.Index(graphUpper, "GRAPH")+len("GRAPH"):])
	} else {
		iriText = rest
	}

	iriTerm, err := parseTermLiteral(strings.TrimSpace(iriText))
	if err != nil {
		if silent {
			return nil
		}
		return err
	}
	iri, ok := iriTerm.(*rdf.NamedNode)
	if !ok {
		if silent {
			return nil
		}
		return &rdferr.SyntaxError{Detail: "LOAD target must be an IRI"}
	}

	var graph rdf.Term = rdf.NewDefaultGraph()
	if graphText != "" {
		gt, err := parseTermLiteral(graphText)
		if err != nil {
			if silent {
				return nil
			}
			return err
		}
		graph = gt
	}

	if e.fetch == nil {
		if silent {
			return nil
		}
		return &rdferr.UnsupportedFeature{Detail: "LOAD: no fetch function registered"}
	}
	r, mediaType, err := e.fetch(iri.IRI)
	if err != nil {
		if silent {
			return nil
		}
		return &rdferr.IOError{Detail: "LOAD fetch", Err: err}
	}

	var quads []*rdf.Quad
	yield := func(q *rdf.Quad) error {
		quads = append(quads, rdf.NewQuad(q.Subject, q.Predicate, q.Object, graph))
		return nil
	}
	switch {
	case strings.Contains(mediaType, "turtle"):
		data, rerr := io.ReadAll(r)
		if rerr != nil {
			err = rerr
			break
		}
		err = turtle.Parse(string(data), iri.IRI, yield)
	case strings.Contains(mediaType, "n-quads"):
		err = ntriples.ParseQuads(r, yield)
	default:
		err = ntriples.Parse(r, yield)
	}
	if err != nil {
		if silent {
			return nil
		}
		return err
	}
	return e.store.InsertBatch(quads)
}

type graphTarget struct {
	all, named, isDefault bool
	iri                   rdf.Term
}

func parseGraphTarget(text string) (graphTarget, error) {
	text = strings.TrimSpace(text)
	upper := strings.ToUpper(text)
	switch {
	case upper == "DEFAULT":
		return graphTarget{isDefault: true}, nil
	case upper == "NAMED":
		return graphTarget{named: true}, nil
	case upper == "ALL":
		return graphTarget{all: true}, nil
	case strings.HasPrefix(upper, "GRAPH"):
		term, err := parseTermLiteral(strings.TrimSpace(text[len("GRAPH"):]))
		if err != nil {
			return graphTarget{}, err
		}
		return graphTarget{iri: term}, nil
	default:
		term, err := parseTermLiteral(text)
		if err != nil {
			return graphTarget{}, err
		}
		return graphTarget{iri: term}, nil
	}
}

func (e *Engine) clearGraph(g rdf.Term) error {
	it, err := e.store.Match(store.Pattern{Graph: g})
	if err != nil {
		return err
	}
	defer it.Close()
	var quads []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return err
		}
		quads = append(quads, q)
	}
	return e.store.DeleteBatch(quads)
}

// execClearDrop implements CLEAR and DROP identically: this store has
// no notion of an empty-but-declared graph distinct from "no quads with
// that graph id", so there is nothing left for DROP to do once CLEAR's
// quads are gone.
func (e *Engine) execClearDrop(rest string, _ bool) error {
	rest = strings.TrimSpace(rest)
	silent := false
	if upper := strings.ToUpper(rest); strings.HasPrefix(upper, "SILENT") {
		silent = true
		rest = strings.TrimSpace(rest[len("SILENT"):])
	}
	target, err := parseGraphTarget(rest)
	if err != nil {
		if silent {
			return nil
		}
		return err
	}
	switch {
	case target.isDefault:
		err = e.clearGraph(rdf.NewDefaultGraph())
	case target.named:
		err = e.clearAllNamed()
	case target.all:
		if err = e.clearGraph(rdf.NewDefaultGraph()); err == nil {
			err = e.clearAllNamed()
		}
	default:
		err = e.clearGraph(target.iri)
	}
	if err != nil && silent {
		return nil
	}
	return err
}

func (e *Engine) clearAllNamed() error {
	graphs, err := e.store.NamedGraphs()
	if err != nil {
		return err
	}
	for _, g := range graphs {
		if err := e.clearGraph(g); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) graphQuads(g rdf.Term) ([]*rdf.Quad, error) {
	it, err := e.store.Match(store.Pattern{Graph: g})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var quads []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

func graphTermOf(t graphTarget) rdf.Term {
	if t.isDefault {
		return rdf.NewDefaultGraph()
	}
	return t.iri
}

func (e *Engine) execCopyMoveAdd(rest string, kind string) error {
	rest = strings.TrimSpace(rest)
	silent := false
	if upper := strings.ToUpper(rest); strings.HasPrefix(upper, "SILENT") {
		silent = true
		rest = strings.TrimSpace(rest[len("SILENT"):])
	}
	upper := strings.ToUpper(rest)
	idx := strings.Index(upper, " TO ")
	if idx < 0 {
		if silent {
			return nil
		}
		return &rdferr.SyntaxError{Detail: kind + " requires a TO clause"}
	}
	from, err := parseGraphTarget(rest[:idx])
	if err != nil {
		if silent {
			return nil
		}
		return err
	}
	to, err := parseGraphTarget(rest[idx+len(" TO "):])
	if err != nil {
		if silent {
			return nil
		}
		return err
	}
	fromTerm, toTerm := graphTermOf(from), graphTermOf(to)
	if fromTerm.Equals(toTerm) {
		return nil
	}

	if kind != "ADD" {
		if err := e.clearGraph(toTerm); err != nil {
			if silent {
				return nil
			}
			return err
		}
	}
	quads, err := e.graphQuads(fromTerm)
	if err != nil {
		if silent {
			return nil
		}
		return err
	}
	copied := make([]*rdf.Quad, len(quads))
	for i, q := range quads {
		copied[i] = rdf.NewQuad(q.Subject, q.Predicate, q.Object, toTerm)
	}
	if err := e.store.InsertBatch(copied); err != nil {
		if silent {
			return nil
		}
		return err
	}
	if kind == "MOVE" {
		if err := e.clearGraph(fromTerm); err != nil {
			if silent {
				return nil
			}
			return err
		}
	}
	return nil
}
