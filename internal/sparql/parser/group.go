package parser

import "github.com/trigo-rdf/trigo/internal/sparql/algebra"

// parseGroupGraphPattern implements `GroupGraphPattern ::= '{'
// ( SubSelect | GroupGraphPatternSub ) '}'`.
func (p *parser) parseGroupGraphPattern() (*GroupGraphPattern, error) {
	p.skipWS()
	if !p.consume("{") {
		return nil, p.errf("expected '{' to start group graph pattern")
	}
	p.skipWS()
	if p.peekKeyword("SELECT") {
		sub, err := p.parseSelectQuery()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if !p.consume("}") {
			return nil, p.errf("expected '}' to close subquery")
		}
		return &GroupGraphPattern{Kind: PatternSubSelect, SubPlan: ToAlgebra(sub)}, nil
	}

	gp := &GroupGraphPattern{Kind: PatternBasic}
	if err := p.parseGroupGraphPatternSub(gp); err != nil {
		return nil, err
	}
	p.skipWS()
	if !p.consume("}") {
		return nil, p.errf("expected '}' to close group graph pattern")
	}
	return gp, nil
}

// parseGroupGraphPatternSub implements `GroupGraphPatternSub ::=
// TriplesBlock? (GraphPatternNotTriples '.'? TriplesBlock?)*`.
func (p *parser) parseGroupGraphPatternSub(gp *GroupGraphPattern) error {
	if err := p.parseTriplesBlockInto(gp); err != nil {
		return err
	}
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok || ch == '}' {
			return nil
		}
		if err := p.parseGraphPatternNotTriples(gp); err != nil {
			return err
		}
		p.skipWS()
		p.consume(".")
		if err := p.parseTriplesBlockInto(gp); err != nil {
			return err
		}
	}
}

func (p *parser) parseGraphPatternNotTriples(gp *GroupGraphPattern) error {
	p.skipWS()
	ch, _ := p.peek()
	switch {
	case ch == '{':
		return p.parseGroupOrUnion(gp)
	case p.peekKeyword("OPTIONAL"):
		p.consumeKeyword("OPTIONAL")
		child, err := p.parseGroupGraphPattern()
		if err != nil {
			return err
		}
		child.Kind = PatternOptional
		gp.Children = append(gp.Children, child)
		return nil
	case p.peekKeyword("MINUS"):
		p.consumeKeyword("MINUS")
		child, err := p.parseGroupGraphPattern()
		if err != nil {
			return err
		}
		child.Kind = PatternMinus
		gp.Children = append(gp.Children, child)
		return nil
	case p.peekKeyword("GRAPH"):
		p.consumeKeyword("GRAPH")
		name, err := p.parseVarOrIri()
		if err != nil {
			return err
		}
		child, err := p.parseGroupGraphPattern()
		if err != nil {
			return err
		}
		child.Kind = PatternGraph
		child.GraphTerm = name
		gp.Children = append(gp.Children, child)
		return nil
	case p.peekKeyword("SERVICE"):
		p.consumeKeyword("SERVICE")
		silent := p.consumeKeyword("SILENT")
		name, err := p.parseVarOrIri()
		if err != nil {
			return err
		}
		child, err := p.parseGroupGraphPattern()
		if err != nil {
			return err
		}
		child.Kind = PatternService
		child.GraphTerm = name
		child.Silent = silent
		gp.Children = append(gp.Children, child)
		return nil
	case p.peekKeyword("FILTER"):
		p.consumeKeyword("FILTER")
		expr, err := p.parseConstraint()
		if err != nil {
			return err
		}
		gp.Filters = append(gp.Filters, expr)
		return nil
	case p.peekKeyword("BIND"):
		p.consumeKeyword("BIND")
		if !p.consume("(") {
			return p.errf("expected '(' after BIND")
		}
		expr, err := p.parseExpr()
		if err != nil {
			return err
		}
		if !p.consumeKeyword("AS") {
			return p.errf("expected AS in BIND")
		}
		v, err := p.parseVar()
		if err != nil {
			return err
		}
		if !p.consume(")") {
			return p.errf("expected ')' to close BIND")
		}
		gp.Binds = append(gp.Binds, Bind{Expr: expr, Var: v})
		return nil
	case p.peekKeyword("VALUES"):
		p.consumeKeyword("VALUES")
		vc, err := p.parseDataBlock()
		if err != nil {
			return err
		}
		gp.Values = vc
		return nil
	default:
		return p.errf("unexpected token in group graph pattern")
	}
}

// parseGroupOrUnion implements `GroupOrUnionGraphPattern ::=
// GroupGraphPattern ('UNION' GroupGraphPattern)*`. A lone group is
// appended as an ordinary (PatternBasic) child; two or more joined by
// UNION are wrapped in one PatternBasic child whose children each have
// Kind set to PatternUnion, matching lowerGroup's expectation of a flat
// run of union siblings (see joinAsUnion in lower.go). The wrapper keeps
// the union as one operand joined with the rest of gp.
func (p *parser) parseGroupOrUnion(gp *GroupGraphPattern) error {
	first, err := p.parseGroupGraphPattern()
	if err != nil {
		return err
	}
	members := []*GroupGraphPattern{first}
	for p.consumeKeyword("UNION") {
		next, err := p.parseGroupGraphPattern()
		if err != nil {
			return err
		}
		members = append(members, next)
	}
	if len(members) == 1 {
		gp.Children = append(gp.Children, members[0])
		return nil
	}
	wrapper := &GroupGraphPattern{Kind: PatternBasic}
	for _, m := range members {
		m.Kind = PatternUnion
		wrapper.Children = append(wrapper.Children, m)
	}
	gp.Children = append(gp.Children, wrapper)
	return nil
}

// parseConstraint implements `Constraint ::= BrackettedExpression |
// BuiltInCall | FunctionCall`; the latter two are already expressions
// parseExpr's primary level understands, so only the bracketted form
// needs special handling here.
func (p *parser) parseConstraint() (algebra.Expr, error) {
	p.skipWS()
	if ch, ok := p.peek(); ok && ch == '(' {
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if !p.consume(")") {
			return nil, p.errf("expected ')' to close FILTER expression")
		}
		return expr, nil
	}
	return p.parseExpr()
}

func (p *parser) parseVarOrIri() (algebra.TermPattern, error) {
	p.skipWS()
	ch, ok := p.peek()
	if ok && (ch == '?' || ch == '$') {
		v, err := p.parseVar()
		if err != nil {
			return algebra.TermPattern{}, err
		}
		return algebra.Var(v), nil
	}
	iri, err := p.parseIRIOrPrefixedName()
	if err != nil {
		return algebra.TermPattern{}, err
	}
	return algebra.Bound(iri), nil
}

// parseTriplesBlockInto implements `TriplesBlock ::= TriplesSameSubjectPath
// ('.' TriplesBlock?)?`, appending every pattern/path it finds directly
// into gp so the caller can interleave triples blocks with
// GraphPatternNotTriples elements per GroupGraphPatternSub.
func (p *parser) parseTriplesBlockInto(gp *GroupGraphPattern) error {
	for {
		if !p.atTriplesStart() {
			return nil
		}
		acc, err := p.parseTriplesBlockStatement()
		if err != nil {
			return err
		}
		gp.Triples = append(gp.Triples, acc.Triples...)
		gp.Paths = append(gp.Paths, acc.Paths...)
		p.skipWS()
		if !p.consume(".") {
			return nil
		}
	}
}

// atTriplesStart reports whether the upcoming token can start a triple
// pattern subject, as opposed to closing the group or starting one of
// the GraphPatternNotTriples keywords.
func (p *parser) atTriplesStart() bool {
	p.skipWS()
	ch, ok := p.peek()
	if !ok || ch == '}' || ch == '{' {
		return false
	}
	switch {
	case p.peekKeyword("OPTIONAL"), p.peekKeyword("MINUS"), p.peekKeyword("GRAPH"),
		p.peekKeyword("SERVICE"), p.peekKeyword("FILTER"), p.peekKeyword("BIND"),
		p.peekKeyword("VALUES"):
		return false
	}
	return true
}

// parseDataBlock implements `DataBlock ::= InlineDataOneVar |
// InlineDataFull`.
func (p *parser) parseDataBlock() (*ValuesClause, error) {
	p.skipWS()
	if ch, ok := p.peek(); ok && (ch == '?' || ch == '$') {
		v, err := p.parseVar()
		if err != nil {
			return nil, err
		}
		if !p.consume("{") {
			return nil, p.errf("expected '{' after VALUES variable")
		}
		var rows []algebra.Row
		for {
			p.skipWS()
			if ch, ok := p.peek(); ok && ch == '}' {
				p.advance()
				break
			}
			val, err := p.parseDataBlockValue()
			if err != nil {
				return nil, err
			}
			rows = append(rows, algebra.Row{val})
		}
		return &ValuesClause{Vars: algebra.Vars{v}, Rows: rows}, nil
	}

	if !p.consume("(") {
		return nil, p.errf("expected '(' or variable after VALUES")
	}
	var vars algebra.Vars
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok {
			return nil, p.errf("unterminated VALUES variable list")
		}
		if ch == ')' {
			p.advance()
			break
		}
		v, err := p.parseVar()
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	if !p.consume("{") {
		return nil, p.errf("expected '{' after VALUES variable list")
	}
	var rows []algebra.Row
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok {
			return nil, p.errf("unterminated VALUES data block")
		}
		if ch == '}' {
			p.advance()
			break
		}
		if !p.consume("(") {
			return nil, p.errf("expected '(' to start VALUES row")
		}
		row := make(algebra.Row, 0, len(vars))
		for {
			p.skipWS()
			ch, ok := p.peek()
			if !ok {
				return nil, p.errf("unterminated VALUES row")
			}
			if ch == ')' {
				p.advance()
				break
			}
			val, err := p.parseDataBlockValue()
			if err != nil {
				return nil, err
			}
			row = append(row, val)
		}
		if len(row) != len(vars) {
			return nil, p.errf("VALUES row has %d values, expected %d", len(row), len(vars))
		}
		rows = append(rows, row)
	}
	return &ValuesClause{Vars: vars, Rows: rows}, nil
}
