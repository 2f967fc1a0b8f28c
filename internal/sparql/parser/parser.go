// Package parser implements the SPARQL 1.1 grammar (query forms,
// property paths, expressions), producing the thin tree defined in
// ast.go that ToAlgebra (lower.go) compiles down to the §4.6 algebra.
//
// The tokenizing style is the same character-position scanner used by
// the Turtle-family parser (internal/rdfparse/turtle): no separate
// lexer pass, each grammar production is one method, and only the
// token-level helpers (parseIRIRef, parseQuotedString, ...) touch the input
// byte-by-byte.
package parser

import (
	"fmt"
	"strings"

	"github.com/trigo-rdf/trigo/internal/rdferr"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// Parse parses a single SPARQL query string (prologue plus one query
// form) into a Query ready for ToAlgebra.
func Parse(input string) (*Query, error) {
	p := newParser(input)
	p.skipWS()
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	q, err := p.parseQueryForm()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.pos != len(p.input) {
		return nil, p.errf("unexpected trailing input %q", p.input[p.pos:])
	}
	return q, nil
}

type parser struct {
	input    string
	pos      int
	line     int
	col      int
	prefixes map[string]string
	base     string

	bnodes int
	// bnodeVars maps a query-level blank node label to the synthetic
	// variable that stands in for it; SPARQL scopes a blank node label
	// to the whole query (§17.2), not just the triple it appears in.
	bnodeVars map[string]algebra.Variable
}

func newParser(input string) *parser {
	return &parser{
		input:     input,
		line:      1,
		col:       1,
		prefixes:  make(map[string]string),
		bnodeVars: make(map[string]algebra.Variable),
	}
}

func (p *parser) errf(format string, args ...any) error {
	return &rdferr.SyntaxError{Line: p.line, Column: p.col, Detail: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) advance() {
	if p.pos < len(p.input) {
		if p.input[p.pos] == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
		p.pos++
	}
}

func (p *parser) skipWS() {
	for {
		ch, ok := p.peek()
		if !ok {
			return
		}
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			p.advance()
		case ch == '#':
			for {
				c, ok := p.peek()
				if !ok || c == '\n' {
					break
				}
				p.advance()
			}
		default:
			return
		}
	}
}

func (p *parser) consume(lit string) bool {
	p.skipWS()
	if strings.HasPrefix(p.input[p.pos:], lit) {
		for range lit {
			p.advance()
		}
		return true
	}
	return false
}

// consumeKeyword matches kw case-insensitively, as SPARQL keywords are,
// requiring a non-identifier character (or end of input) after it so
// "ASKew" does not match "ASK".
func (p *parser) consumeKeyword(kw string) bool {
	p.skipWS()
	if len(kw) > len(p.input)-p.pos {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:p.pos+len(kw)], kw) {
		return false
	}
	save, saveLine, saveCol := p.pos, p.line, p.col
	for range kw {
		p.advance()
	}
	if ch, ok := p.peek(); ok && isNameByte(ch) {
		p.pos, p.line, p.col = save, saveLine, saveCol
		return false
	}
	return true
}

func (p *parser) peekKeyword(kw string) bool {
	save, saveLine, saveCol := p.pos, p.line, p.col
	ok := p.consumeKeyword(kw)
	p.pos, p.line, p.col = save, saveLine, saveCol
	return ok
}

func isWSByte(ch byte) bool { return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' }
func isDigit(b byte) bool   { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool   { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isNameByte(b byte) bool {
	return isAlpha(b) || isDigit(b) || b == '_'
}

// parsePrologue implements `Prologue ::= (BaseDecl | PrefixDecl)*`.
func (p *parser) parsePrologue() error {
	for {
		p.skipWS()
		if p.consumeKeyword("BASE") {
			iri, err := p.parseIRIRef()
			if err != nil {
				return err
			}
			p.base = p.resolveIRI(iri)
			continue
		}
		if p.consumeKeyword("PREFIX") {
			p.skipWS()
			start := p.pos
			for {
				ch, ok := p.peek()
				if !ok || ch == ':' {
					break
				}
				p.advance()
			}
			name := p.input[start:p.pos]
			if ch, ok := p.peek(); !ok || ch != ':' {
				return p.errf("expected ':' in PREFIX declaration")
			}
			p.advance()
			iri, err := p.parseIRIRef()
			if err != nil {
				return err
			}
			p.prefixes[name] = p.resolveIRI(iri)
			continue
		}
		return nil
	}
}

func (p *parser) resolveIRI(iri string) string {
	if strings.Contains(iri, ":") || p.base == "" {
		return iri
	}
	if strings.HasPrefix(iri, "#") {
		return p.base + iri
	}
	return p.base + iri
}

// parseQueryForm implements `QueryUnit ::= Query` restricted to the one
// form this call parses, dispatching on the leading keyword.
func (p *parser) parseQueryForm() (*Query, error) {
	p.skipWS()
	switch {
	case p.peekKeyword("SELECT"):
		return p.parseSelectQuery()
	case p.peekKeyword("CONSTRUCT"):
		return p.parseConstructQuery()
	case p.peekKeyword("ASK"):
		return p.parseAskQuery()
	case p.peekKeyword("DESCRIBE"):
		return p.parseDescribeQuery()
	default:
		return nil, p.errf("expected SELECT, CONSTRUCT, ASK, or DESCRIBE")
	}
}

func (p *parser) parseSelectQuery() (*Query, error) {
	p.consumeKeyword("SELECT")
	q := &Query{Type: QueryTypeSelect}

	if p.consumeKeyword("DISTINCT") {
		q.Distinct = true
	} else if p.consumeKeyword("REDUCED") {
		q.Reduced = true
	}

	p.skipWS()
	if ch, ok := p.peek(); ok && ch == '*' {
		p.advance()
		q.SelectAll = true
	} else {
		if err := p.parseSelectVars(q); err != nil {
			return nil, err
		}
	}

	if err := p.parseDatasetClauses(q); err != nil {
		return nil, err
	}

	where, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	q.Where = where

	if err := p.parseSolutionModifiers(q); err != nil {
		return nil, err
	}
	q.applyPreProjectBinds()
	return q, nil
}

// parseSelectVars implements `SelectClause`'s variable list: each entry
// is either a bare `?var` or `(Expr AS ?var)`; the latter is recorded in
// preProjectBinds and folded into Where as a BIND once Where itself has
// been parsed (applyPreProjectBinds), since a projected expression must
// see every variable the WHERE clause bound.
func (p *parser) parseSelectVars(q *Query) error {
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok {
			break
		}
		if ch == '(' {
			p.advance()
			if agg, ok, err := p.tryParseAggregate(); err != nil {
				return err
			} else if ok {
				if !p.consumeKeyword("AS") {
					return p.errf("expected AS in projected aggregate")
				}
				v, err := p.parseVar()
				if err != nil {
					return err
				}
				if !p.consume(")") {
					return p.errf("expected ')' after projected aggregate")
				}
				agg.Var = v
				q.aggregates = append(q.aggregates, *agg)
				q.SelectVars = append(q.SelectVars, v)
				continue
			}
			expr, err := p.parseExpr()
			if err != nil {
				return err
			}
			if !p.consumeKeyword("AS") {
				return p.errf("expected AS in projected expression")
			}
			v, err := p.parseVar()
			if err != nil {
				return err
			}
			if !p.consume(")") {
				return p.errf("expected ')' after projected expression")
			}
			q.preProjectBinds = append(q.preProjectBinds, Bind{Expr: expr, Var: v})
			q.SelectVars = append(q.SelectVars, v)
			continue
		}
		if ch != '?' && ch != '$' {
			break
		}
		v, err := p.parseVar()
		if err != nil {
			return err
		}
		q.SelectVars = append(q.SelectVars, v)
	}
	if len(q.SelectVars) == 0 {
		return p.errf("expected at least one projected variable or '*'")
	}
	return nil
}

func (p *parser) parseConstructQuery() (*Query, error) {
	p.consumeKeyword("CONSTRUCT")
	q := &Query{Type: QueryTypeConstruct}

	p.skipWS()
	if ch, ok := p.peek(); ok && ch == '{' {
		tmpl, err := p.parseConstructTemplate()
		if err != nil {
			return nil, err
		}
		q.ConstructTemplate = tmpl
		if err := p.parseDatasetClauses(q); err != nil {
			return nil, err
		}
		where, err := p.parseWhereClause()
		if err != nil {
			return nil, err
		}
		q.Where = where
	} else {
		// CONSTRUCT WHERE { TriplesTemplate } shorthand: template and
		// pattern are the same triples block.
		if err := p.parseDatasetClauses(q); err != nil {
			return nil, err
		}
		if !p.consumeKeyword("WHERE") {
			return nil, p.errf("expected '{' or WHERE after CONSTRUCT")
		}
		gp, tmpl, err := p.parseGroupGraphPatternAsTemplate()
		if err != nil {
			return nil, err
		}
		q.Where = gp
		q.ConstructTemplate = tmpl
	}

	if err := p.parseSolutionModifiers(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *parser) parseAskQuery() (*Query, error) {
	p.consumeKeyword("ASK")
	q := &Query{Type: QueryTypeAsk}
	if err := p.parseDatasetClauses(q); err != nil {
		return nil, err
	}
	where, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	q.Where = where
	return q, nil
}

func (p *parser) parseDescribeQuery() (*Query, error) {
	p.consumeKeyword("DESCRIBE")
	q := &Query{Type: QueryTypeDescribe}

	p.skipWS()
	if ch, ok := p.peek(); ok && ch == '*' {
		p.advance()
		q.SelectAll = true
	} else {
		for {
			p.skipWS()
			ch, ok := p.peek()
			if !ok {
				break
			}
			if ch == '?' || ch == '$' {
				v, err := p.parseVar()
				if err != nil {
					return nil, err
				}
				q.DescribeVars = append(q.DescribeVars, v)
				continue
			}
			if ch == '<' || isNameStartForPrefixed(ch) {
				term, err := p.parseIRIOrPrefixedName()
				if err != nil {
					return nil, err
				}
				q.DescribeIRIs = append(q.DescribeIRIs, term)
				continue
			}
			break
		}
		if len(q.DescribeVars) == 0 && len(q.DescribeIRIs) == 0 {
			return nil, p.errf("expected at least one IRI or variable after DESCRIBE")
		}
	}

	if err := p.parseDatasetClauses(q); err != nil {
		return nil, err
	}

	p.skipWS()
	if p.peekKeyword("WHERE") || (len(p.input)-p.pos > 0 && p.input[p.pos] == '{') {
		where, err := p.parseWhereClause()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}
	if err := p.parseSolutionModifiers(q); err != nil {
		return nil, err
	}
	return q, nil
}

func isNameStartForPrefixed(ch byte) bool {
	return isAlpha(ch) || ch == ':' || ch == '_'
}

func (p *parser) parseWhereClause() (*GroupGraphPattern, error) {
	p.consumeKeyword("WHERE")
	return p.parseGroupGraphPattern()
}

// parseDatasetClauses implements `DatasetClause*`: zero or more FROM /
// FROM NAMED productions sitting between a query form's head (its
// SELECT list, CONSTRUCT template, ASK, or DESCRIBE list) and its WHERE
// clause (§13.2.2). A bare `FROM <iri>` contributes a graph to the RDF
// merge used in place of the store's actual default graph; `FROM NAMED
// <iri>` adds to the set of named graphs GRAPH is restricted to.
func (p *parser) parseDatasetClauses(q *Query) error {
	for p.peekKeyword("FROM") {
		p.consumeKeyword("FROM")
		named := p.consumeKeyword("NAMED")
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return err
		}
		if named {
			q.FromNamed = append(q.FromNamed, iri)
		} else {
			q.FromDefault = append(q.FromDefault, iri)
		}
	}
	return nil
}

// triplesAccum collects the two shapes a parsed triples block can
// produce: ordinary TriplePattern entries, and PathPlan entries for any
// predicate position that used property path syntax (`/ | ^ * + ?` or a
// negated set) rather than a plain IRI.
type triplesAccum struct {
	Triples []algebra.TriplePattern
	Paths   []algebra.PathPlan
}

func (a *triplesAccum) merge(b triplesAccum) {
	a.Triples = append(a.Triples, b.Triples...)
	a.Paths = append(a.Paths, b.Paths...)
}

// parseConstructTemplate implements `ConstructTemplate ::= '{'
// ConstructTriples? '}'`, reusing the triple-level term grammar; blank
// nodes here name one template-wide node, not a pattern variable, since
// CONSTRUCT instantiates fresh blank nodes per solution rather than
// matching existing ones. The shared term grammar parses a blank node
// label or `[]` into a synthetic `_bnode_`/`_anon` variable, which is
// turned back into a blank node here. Property paths are not legal in
// a template, so only Triples is ever populated.
func (p *parser) parseConstructTemplate() ([]algebra.TriplePattern, error) {
	if !p.consume("{") {
		return nil, p.errf("expected '{' to start CONSTRUCT template")
	}
	templateNode := func(t algebra.TermPattern) algebra.TermPattern {
		if t.IsVariable() && (strings.HasPrefix(string(t.Var), "_bnode_") || strings.HasPrefix(string(t.Var), "_anon")) {
			return algebra.Bound(rdf.NewBlankNode(string(t.Var)))
		}
		return t
	}
	var out []algebra.TriplePattern
	for {
		p.skipWS()
		if ch, ok := p.peek(); ok && ch == '}' {
			p.advance()
			return out, nil
		}
		acc, err := p.parseTriplesBlockStatement()
		if err != nil {
			return nil, err
		}
		for _, tp := range acc.Triples {
			tp.Subject, tp.Object = templateNode(tp.Subject), templateNode(tp.Object)
			out = append(out, tp)
		}
		p.skipWS()
		p.consume(".")
	}
}

// parseGroupGraphPatternAsTemplate supports `CONSTRUCT WHERE { ... }`:
// the same triples block serves as both pattern and template, so no
// property paths, nested groups, or other pattern-level machinery is
// permitted inside it (the grammar restricts this form to a
// TriplesTemplate).
func (p *parser) parseGroupGraphPatternAsTemplate() (*GroupGraphPattern, []algebra.TriplePattern, error) {
	if !p.consume("{") {
		return nil, nil, p.errf("expected '{' after CONSTRUCT WHERE")
	}
	var triples []algebra.TriplePattern
	for {
		p.skipWS()
		if ch, ok := p.peek(); ok && ch == '}' {
			p.advance()
			break
		}
		acc, err := p.parseTriplesBlockStatement()
		if err != nil {
			return nil, nil, err
		}
		triples = append(triples, acc.Triples...)
		p.skipWS()
		p.consume(".")
	}
	gp := &GroupGraphPattern{Kind: PatternBasic, Triples: triples}
	return gp, triples, nil
}

// parseTriplesBlockStatement parses one `subject predicateObjectList`
// statement (without the trailing '.'), returning every resulting
// triple pattern and path plan, including those generated by blank node
// property lists and collections.
func (p *parser) parseTriplesBlockStatement() (triplesAccum, error) {
	subject, acc, err := p.parseTriplesSubject()
	if err != nil {
		return triplesAccum{}, err
	}
	p.skipWS()
	if ch, ok := p.peek(); ok && (ch == '.' || ch == '}') {
		return acc, nil
	}
	more, err := p.parsePredicateObjectListSimple(subject)
	if err != nil {
		return triplesAccum{}, err
	}
	acc.merge(more)
	return acc, nil
}

func (p *parser) parseTriplesSubject() (algebra.TermPattern, triplesAccum, error) {
	p.skipWS()
	ch, ok := p.peek()
	if !ok {
		return algebra.TermPattern{}, triplesAccum{}, p.errf("unexpected end of input, expected subject")
	}
	switch {
	case ch == '[':
		return p.parseBlankNodePropertyListSimple()
	case ch == '(':
		return p.parseCollectionSimple()
	default:
		t, err := p.parseVarOrTerm()
		return t, triplesAccum{}, err
	}
}

func (p *parser) parsePredicateObjectListSimple(subject algebra.TermPattern) (triplesAccum, error) {
	var out triplesAccum
	for {
		p.skipWS()
		pred, path, err := p.parseVerbPathOrSimple()
		if err != nil {
			return triplesAccum{}, err
		}
		objs, err := p.parseObjectListSimple(subject, pred, path)
		if err != nil {
			return triplesAccum{}, err
		}
		out.merge(objs)

		p.skipWS()
		if !p.consume(";") {
			break
		}
		p.skipWS()
		if ch, ok := p.peek(); ok && (ch == '.' || ch == '}' || ch == ';') {
			continue
		}
	}
	return out, nil
}

// parseVerbPathOrSimple parses the predicate position, which is either a
// plain IRI/`a`/variable (pred non-zero, path nil) or a property path
// expression (pred zero value, path non-nil); the caller
// (parseObjectListSimple) builds a TriplePattern or a PathPlan per
// object depending on which was returned.
func (p *parser) parseVerbPathOrSimple() (algebra.TermPattern, algebra.PathExpr, error) {
	p.skipWS()
	if ch, ok := p.peek(); ok && (ch == '?' || ch == '$') {
		v, err := p.parseVar()
		return algebra.Var(v), nil, err
	}
	path, err := p.parsePath()
	if err != nil {
		return algebra.TermPattern{}, nil, err
	}
	if iri, ok := path.(*algebra.PathIRI); ok {
		return algebra.Bound(iri.IRI), nil, nil
	}
	return algebra.TermPattern{}, path, nil
}

const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

func (p *parser) parseObjectListSimple(subject, predicate algebra.TermPattern, path algebra.PathExpr) (triplesAccum, error) {
	var out triplesAccum
	for {
		p.skipWS()
		obj, generated, err := p.parseObjectSimple()
		if err != nil {
			return triplesAccum{}, err
		}
		out.merge(generated)
		if path != nil {
			out.Paths = append(out.Paths, algebra.PathPlan{Subject: subject, Path: path, Object: obj})
		} else {
			out.Triples = append(out.Triples, algebra.TriplePattern{Subject: subject, Predicate: predicate, Object: obj})
		}

		p.skipWS()
		if !p.consume(",") {
			break
		}
	}
	return out, nil
}

func (p *parser) parseObjectSimple() (algebra.TermPattern, triplesAccum, error) {
	p.skipWS()
	ch, ok := p.peek()
	if !ok {
		return algebra.TermPattern{}, triplesAccum{}, p.errf("unexpected end of input, expected object")
	}
	switch {
	case ch == '[':
		return p.parseBlankNodePropertyListSimple()
	case ch == '(':
		return p.parseCollectionSimple()
	default:
		t, err := p.parseVarOrTerm()
		return t, triplesAccum{}, err
	}
}

func (p *parser) parseBlankNodePropertyListSimple() (algebra.TermPattern, triplesAccum, error) {
	if !p.consume("[") {
		return algebra.TermPattern{}, triplesAccum{}, p.errf("expected '['")
	}
	node := algebra.Var(p.freshAnonVar())
	p.skipWS()
	if ch, ok := p.peek(); ok && ch == ']' {
		p.advance()
		return node, triplesAccum{}, nil
	}
	generated, err := p.parsePredicateObjectListSimple(node)
	if err != nil {
		return algebra.TermPattern{}, triplesAccum{}, err
	}
	p.skipWS()
	if !p.consume("]") {
		return algebra.TermPattern{}, triplesAccum{}, p.errf("expected ']' to close blank node property list")
	}
	return node, generated, nil
}

func (p *parser) parseCollectionSimple() (algebra.TermPattern, triplesAccum, error) {
	if !p.consume("(") {
		return algebra.TermPattern{}, triplesAccum{}, p.errf("expected '('")
	}
	const rdfFirst = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
	const rdfRest = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"
	const rdfNil = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"

	var acc triplesAccum
	var items []algebra.TermPattern
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok {
			return algebra.TermPattern{}, triplesAccum{}, p.errf("unterminated collection")
		}
		if ch == ')' {
			p.advance()
			break
		}
		obj, gen, err := p.parseObjectSimple()
		if err != nil {
			return algebra.TermPattern{}, triplesAccum{}, err
		}
		acc.merge(gen)
		items = append(items, obj)
	}
	if len(items) == 0 {
		return algebra.Bound(rdf.NewNamedNode(rdfNil)), acc, nil
	}
	head := algebra.Var(p.freshAnonVar())
	cur := head
	for i, item := range items {
		acc.Triples = append(acc.Triples, algebra.TriplePattern{Subject: cur, Predicate: algebra.Bound(rdf.NewNamedNode(rdfFirst)), Object: item})
		if i == len(items)-1 {
			acc.Triples = append(acc.Triples, algebra.TriplePattern{Subject: cur, Predicate: algebra.Bound(rdf.NewNamedNode(rdfRest)), Object: algebra.Bound(rdf.NewNamedNode(rdfNil))})
			break
		}
		next := algebra.Var(p.freshAnonVar())
		acc.Triples = append(acc.Triples, algebra.TriplePattern{Subject: cur, Predicate: algebra.Bound(rdf.NewNamedNode(rdfRest)), Object: next})
		cur = next
	}
	return head, acc, nil
}

func (p *parser) freshAnonVar() algebra.Variable {
	p.bnodes++
	return algebra.Variable(fmt.Sprintf("_anon%d", p.bnodes))
}

// parseSolutionModifiers implements `GroupClause? HavingClause?
// OrderClause? LimitOffsetClauses?`, attaching each to q directly.
func (p *parser) parseSolutionModifiers(q *Query) error {
	if p.consumeKeyword("GROUP") {
		if !p.consumeKeyword("BY") {
			return p.errf("expected BY after GROUP")
		}
		for {
			p.skipWS()
			ch, ok := p.peek()
			if !ok || ch == '{' {
				break
			}
			if ch == '(' {
				p.advance()
				expr, err := p.parseExpr()
				if err != nil {
					return err
				}
				if p.consumeKeyword("AS") {
					v, err := p.parseVar()
					if err != nil {
						return err
					}
					q.preProjectBinds = append(q.preProjectBinds, Bind{Expr: expr, Var: v})
					expr = &algebra.VarRef{Name: v}
				}
				if !p.consume(")") {
					return p.errf("expected ')' in GROUP BY expression")
				}
				q.GroupBy = append(q.GroupBy, expr)
				continue
			}
			if ch == '?' || ch == '$' {
				v, err := p.parseVar()
				if err != nil {
					return err
				}
				q.GroupBy = append(q.GroupBy, &algebra.VarRef{Name: v})
				continue
			}
			break
		}
	}

	if p.consumeKeyword("HAVING") {
		for {
			p.skipWS()
			ch, ok := p.peek()
			if !ok || ch != '(' {
				break
			}
			p.advance()
			expr, err := p.parseExpr()
			if err != nil {
				return err
			}
			if !p.consume(")") {
				return p.errf("expected ')' to close HAVING condition")
			}
			q.Having = append(q.Having, expr)
		}
	}

	if p.consumeKeyword("ORDER") {
		if !p.consumeKeyword("BY") {
			return p.errf("expected BY after ORDER")
		}
		for {
			p.skipWS()
			desc := false
			if p.consumeKeyword("ASC") {
			} else if p.consumeKeyword("DESC") {
				desc = true
			}
			p.skipWS()
			ch, ok := p.peek()
			if !ok {
				break
			}
			var expr algebra.Expr
			var err error
			switch {
			case ch == '(':
				p.advance()
				expr, err = p.parseExpr()
				if err != nil {
					return err
				}
				if !p.consume(")") {
					return p.errf("expected ')' in ORDER BY expression")
				}
			case ch == '?' || ch == '$':
				v, verr := p.parseVar()
				if verr != nil {
					return verr
				}
				expr = &algebra.VarRef{Name: v}
			default:
				return p.errf("expected ORDER BY expression")
			}
			q.OrderBy = append(q.OrderBy, algebra.OrderKey{Expr: expr, Descending: desc})

			p.skipWS()
			ch, ok = p.peek()
			if !ok || !(ch == '(' || ch == '?' || ch == '$' || isAlpha(ch)) {
				break
			}
			if p.peekKeyword("LIMIT") || p.peekKeyword("OFFSET") {
				break
			}
		}
	}

	for {
		if p.consumeKeyword("LIMIT") {
			n, err := p.parseIntegerLiteralValue()
			if err != nil {
				return err
			}
			q.Limit = &n
			continue
		}
		if p.consumeKeyword("OFFSET") {
			n, err := p.parseIntegerLiteralValue()
			if err != nil {
				return err
			}
			q.Offset = &n
			continue
		}
		break
	}
	return nil
}

func (p *parser) parseIntegerLiteralValue() (int64, error) {
	p.skipWS()
	start := p.pos
	if ch, ok := p.peek(); ok && (ch == '+' || ch == '-') {
		p.advance()
	}
	digits := 0
	for {
		ch, ok := p.peek()
		if !ok || !isDigit(ch) {
			break
		}
		p.advance()
		digits++
	}
	if digits == 0 {
		return 0, p.errf("expected integer")
	}
	var n int64
	_, err := fmt.Sscanf(p.input[start:p.pos], "%d", &n)
	if err != nil {
		return 0, p.errf("invalid integer %q", p.input[start:p.pos])
	}
	return n, nil
}
