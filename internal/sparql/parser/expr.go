package parser

import (
	"strings"

	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// builtinNames is the BuiltInCall name table (§17.4). Aggregate names
// (COUNT, SUM, ...) are deliberately absent: tryParseAggregate parses
// them only as a SELECT projection `(AGG(...) AS ?v)`, not as an
// ordinary FuncCall, so an aggregate call inside HAVING or ORDER BY is
// not recognised.
var builtinNames = map[string]bool{
	"STR": true, "LANG": true, "LANGMATCHES": true, "DATATYPE": true, "BOUND": true,
	"IRI": true, "URI": true, "BNODE": true, "RAND": true, "ABS": true, "CEIL": true,
	"FLOOR": true, "ROUND": true, "CONCAT": true, "STRLEN": true, "UCASE": true, "LCASE": true,
	"ENCODE_FOR_URI": true, "CONTAINS": true, "STRSTARTS": true, "STRENDS": true,
	"STRBEFORE": true, "STRAFTER": true, "YEAR": true, "MONTH": true, "DAY": true,
	"HOURS": true, "MINUTES": true, "SECONDS": true, "TIMEZONE": true, "TZ": true,
	"NOW": true, "UUID": true, "STRUUID": true, "MD5": true, "SHA1": true, "SHA256": true,
	"SHA384": true, "SHA512": true, "COALESCE": true, "IF": true, "STRLANG": true,
	"STRDT": true, "SAMETERM": true, "ISIRI": true, "ISURI": true, "ISBLANK": true,
	"ISLITERAL": true, "ISNUMERIC": true, "REGEX": true, "SUBSTR": true, "REPLACE": true,
}

// parseExpr implements `Expression ::= ConditionalOrExpression`, the
// entry point for FILTER/BIND/ORDER BY/aggregate argument expressions.
func (p *parser) parseExpr() (algebra.Expr, error) {
	return p.parseConditionalOr()
}

func (p *parser) parseConditionalOr() (algebra.Expr, error) {
	left, err := p.parseConditionalAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if !strings.HasPrefix(p.input[p.pos:], "||") {
			return left, nil
		}
		p.advance()
		p.advance()
		right, err := p.parseConditionalAnd()
		if err != nil {
			return nil, err
		}
		left = &algebra.BinaryOp{Op: algebra.OpOr, Left: left, Right: right}
	}
}

func (p *parser) parseConditionalAnd() (algebra.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if !strings.HasPrefix(p.input[p.pos:], "&&") {
			return left, nil
		}
		p.advance()
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &algebra.BinaryOp{Op: algebra.OpAnd, Left: left, Right: right}
	}
}

// parseRelational implements `RelationalExpression`: one NumericExpression,
// optionally followed by a single comparison, IN, or NOT IN (the
// grammar forbids chaining comparisons).
func (p *parser) parseRelational() (algebra.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.consumeKeyword("NOT") {
		if !p.consumeKeyword("IN") {
			return nil, p.errf("expected IN after NOT")
		}
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &algebra.InList{Expr: left, Values: values, Not: true}, nil
	}
	if p.consumeKeyword("IN") {
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		return &algebra.InList{Expr: left, Values: values, Not: false}, nil
	}

	p.skipWS()
	rest := p.input[p.pos:]
	var op algebra.BinaryOperator
	var lit string
	switch {
	case strings.HasPrefix(rest, "!="):
		op, lit = algebra.OpNotEqual, "!="
	case strings.HasPrefix(rest, "<="):
		op, lit = algebra.OpLessEqual, "<="
	case strings.HasPrefix(rest, ">="):
		op, lit = algebra.OpGreaterEqual, ">="
	case strings.HasPrefix(rest, "="):
		op, lit = algebra.OpEqual, "="
	case strings.HasPrefix(rest, "<"):
		op, lit = algebra.OpLess, "<"
	case strings.HasPrefix(rest, ">"):
		op, lit = algebra.OpGreater, ">"
	default:
		return left, nil
	}
	for range lit {
		p.advance()
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &algebra.BinaryOp{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseAdditive() (algebra.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok || (ch != '+' && ch != '-') {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		op := algebra.OpAdd
		if ch == '-' {
			op = algebra.OpSubtract
		}
		left = &algebra.BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (algebra.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok || (ch != '*' && ch != '/') {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := algebra.OpMultiply
		if ch == '/' {
			op = algebra.OpDivide
		}
		left = &algebra.BinaryOp{Op: op, Left: left, Right: right}
	}
}

// parseUnary implements `UnaryExpression ::= '!' PrimaryExpression |
// '+' PrimaryExpression | '-' PrimaryExpression | PrimaryExpression`.
func (p *parser) parseUnary() (algebra.Expr, error) {
	p.skipWS()
	ch, ok := p.peek()
	switch {
	case ok && ch == '!':
		p.advance()
		inner, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &algebra.UnaryOp{Op: algebra.OpNot, Expr: inner}, nil
	case ok && ch == '+':
		p.advance()
		inner, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &algebra.UnaryOp{Op: algebra.OpPlus, Expr: inner}, nil
	case ok && ch == '-':
		p.advance()
		inner, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &algebra.UnaryOp{Op: algebra.OpNegate, Expr: inner}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (algebra.Expr, error) {
	p.skipWS()
	ch, ok := p.peek()
	if !ok {
		return nil, p.errf("expected expression")
	}
	switch {
	case ch == '(':
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if !p.consume(")") {
			return nil, p.errf("expected ')' to close bracketted expression")
		}
		return expr, nil
	case ch == '?' || ch == '$':
		v, err := p.parseVar()
		if err != nil {
			return nil, err
		}
		return &algebra.VarRef{Name: v}, nil
	case ch == '"' || ch == '\'':
		lit, err := p.parseRDFLiteral()
		if err != nil {
			return nil, err
		}
		return &algebra.Const{Term: lit}, nil
	case isDigit(ch):
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &algebra.Const{Term: lit}, nil
	case ch == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return &algebra.Const{Term: rdf.NewNamedNode(p.resolveIRI(iri))}, nil
	default:
		return p.parsePrimaryKeyword()
	}
}

// parsePrimaryKeyword handles the PrimaryExpression alternatives that
// start with a bare word: boolean literals, (NOT) EXISTS, and the
// BuiltInCall / IRIrefOrFunction family.
func (p *parser) parsePrimaryKeyword() (algebra.Expr, error) {
	switch {
	case p.peekKeyword("true") || p.peekKeyword("false"):
		lit, err := p.parseBooleanLiteral()
		if err != nil {
			return nil, err
		}
		return &algebra.Const{Term: lit}, nil
	case p.peekKeyword("NOT"):
		p.consumeKeyword("NOT")
		if !p.consumeKeyword("EXISTS") {
			return nil, p.errf("expected EXISTS after NOT")
		}
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &algebra.Exists{Pattern: lowerGroup(pattern), Not: true}, nil
	case p.peekKeyword("EXISTS"):
		p.consumeKeyword("EXISTS")
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		return &algebra.Exists{Pattern: lowerGroup(pattern), Not: false}, nil
	default:
		return p.parseBuiltInOrFunctionCall()
	}
}

// parseBuiltInOrFunctionCall implements `BuiltInCall |
// IRIrefOrFunction`: a bare identifier matching builtinNames is a
// BuiltInCall; otherwise the identifier (or prefixed name / full IRI)
// is resolved as a function IRI, called if followed by an ArgList and
// otherwise returned as a plain IRI constant.
func (p *parser) parseBuiltInOrFunctionCall() (algebra.Expr, error) {
	p.skipWS()
	start := p.pos
	name, ok := p.tryReadBareName()
	if ok {
		upper := strings.ToUpper(name)
		if builtinNames[upper] {
			args, err := p.parseExprArgList()
			if err != nil {
				return nil, err
			}
			return &algebra.FuncCall{Name: upper, Args: args}, nil
		}
		p.rewindTo(start)
	}
	iri, err := p.parseIRIOrPrefixedName()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if ch, ok := p.peek(); ok && ch == '(' {
		args, err := p.parseExprArgList()
		if err != nil {
			return nil, err
		}
		return &algebra.FuncCall{Name: iri.IRI, Args: args}, nil
	}
	return &algebra.Const{Term: iri}, nil
}

// tryReadBareName reads a contiguous identifier (no leading sigil) at
// the current position without consuming it if what follows turns out
// to be a PrefixedName's ':' rather than the end of a bare word.
func (p *parser) tryReadBareName() (string, bool) {
	p.skipWS()
	start := p.pos
	for {
		ch, ok := p.peek()
		if !ok || !(isAlpha(ch) || isDigit(ch) || ch == '_') {
			break
		}
		p.advance()
	}
	if p.pos == start {
		return "", false
	}
	if ch, ok := p.peek(); ok && ch == ':' {
		p.rewindTo(start)
		return "", false
	}
	return p.input[start:p.pos], true
}

// rewindTo resets the scan position to pos, a position on the same
// line as the parser's current position (true of every caller here,
// since identifiers never span a line break).
func (p *parser) rewindTo(pos int) {
	p.col -= p.pos - pos
	p.pos = pos
}

// parseExprArgList implements `ArgList ::= NIL | '(' 'DISTINCT'?
// Expression (',' Expression)* ')'`. DISTINCT is accepted but has no
// effect outside an aggregate argument list, matching the grammar's
// permissiveness here (only aggregates give it meaning).
func (p *parser) parseExprArgList() ([]algebra.Expr, error) {
	p.skipWS()
	if !p.consume("(") {
		return nil, p.errf("expected '(' to start argument list")
	}
	p.consumeKeyword("DISTINCT")
	p.skipWS()
	if ch, ok := p.peek(); ok && ch == ')' {
		p.advance()
		return nil, nil
	}
	var args []algebra.Expr
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, expr)
		p.skipWS()
		if p.consume(",") {
			continue
		}
		break
	}
	if !p.consume(")") {
		return nil, p.errf("expected ')' to close argument list")
	}
	return args, nil
}

// parseExpressionList implements `ExpressionList ::= NIL | '('
// Expression (',' Expression)* ')'`, used by IN / NOT IN.
func (p *parser) parseExpressionList() ([]algebra.Expr, error) {
	p.skipWS()
	if !p.consume("(") {
		return nil, p.errf("expected '(' to start expression list")
	}
	p.skipWS()
	if ch, ok := p.peek(); ok && ch == ')' {
		p.advance()
		return nil, nil
	}
	var values []algebra.Expr
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		values = append(values, expr)
		p.skipWS()
		if p.consume(",") {
			continue
		}
		break
	}
	if !p.consume(")") {
		return nil, p.errf("expected ')' to close expression list")
	}
	return values, nil
}
