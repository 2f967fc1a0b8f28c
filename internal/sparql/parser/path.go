package parser

import (
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// parsePath implements `Path ::= PathAlternative`, the property path
// grammar used wherever a predicate position allows `/ | ^ * + ?` and
// negated property sets rather than a plain IRI.
func (p *parser) parsePath() (algebra.PathExpr, error) {
	return p.parsePathAlternative()
}

func (p *parser) parsePathAlternative() (algebra.PathExpr, error) {
	left, err := p.parsePathSequence()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok || ch != '|' {
			return left, nil
		}
		p.advance()
		right, err := p.parsePathSequence()
		if err != nil {
			return nil, err
		}
		left = &algebra.PathAlt{Left: left, Right: right}
	}
}

func (p *parser) parsePathSequence() (algebra.PathExpr, error) {
	left, err := p.parsePathEltOrInverse()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		ch, ok := p.peek()
		if !ok || ch != '/' {
			return left, nil
		}
		p.advance()
		right, err := p.parsePathEltOrInverse()
		if err != nil {
			return nil, err
		}
		left = &algebra.PathSeq{Left: left, Right: right}
	}
}

func (p *parser) parsePathEltOrInverse() (algebra.PathExpr, error) {
	p.skipWS()
	if ch, ok := p.peek(); ok && ch == '^' {
		p.advance()
		elt, err := p.parsePathElt()
		if err != nil {
			return nil, err
		}
		return &algebra.PathInverse{Path: elt}, nil
	}
	return p.parsePathElt()
}

func (p *parser) parsePathElt() (algebra.PathExpr, error) {
	primary, err := p.parsePathPrimary()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	ch, ok := p.peek()
	if !ok {
		return primary, nil
	}
	switch ch {
	case '?':
		p.advance()
		return &algebra.PathZeroOrOne{Path: primary}, nil
	case '*':
		p.advance()
		return &algebra.PathZeroOrMore{Path: primary}, nil
	case '+':
		p.advance()
		return &algebra.PathOneOrMore{Path: primary}, nil
	}
	return primary, nil
}

func (p *parser) parsePathPrimary() (algebra.PathExpr, error) {
	p.skipWS()
	ch, ok := p.peek()
	if !ok {
		return nil, p.errf("expected property path")
	}
	switch {
	case ch == '(':
		p.advance()
		path, err := p.parsePathAlternative()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if !p.consume(")") {
			return nil, p.errf("expected ')' to close property path group")
		}
		return path, nil
	case ch == '!':
		p.advance()
		return p.parsePathNegatedPropertySet()
	case ch == 'a' && p.isRDFTypeKeyword():
		p.advance()
		return &algebra.PathIRI{IRI: rdf.NewNamedNode(rdfType)}, nil
	default:
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return &algebra.PathIRI{IRI: iri}, nil
	}
}

// isRDFTypeKeyword reports whether the 'a' at the current position
// stands alone as the rdf:type abbreviation, rather than being the
// first letter of a longer prefixed name or identifier.
func (p *parser) isRDFTypeKeyword() bool {
	next := p.pos + 1
	if next >= len(p.input) {
		return true
	}
	c := p.input[next]
	return !(isAlpha(c) || isDigit(c) || c == '_' || c == ':')
}

// parsePathNegatedPropertySet implements `PathNegatedPropertySet ::=
// PathOneInPropertySet | '(' (PathOneInPropertySet ('|'
// PathOneInPropertySet)*)? ')'`. Inverse members (`^iri`) are folded
// into the same IRIs list as forward members: the '^' is consumed and
// not recorded, so the executor matches them in the forward direction
// (see algebra.PathNegatedSet).
func (p *parser) parsePathNegatedPropertySet() (algebra.PathExpr, error) {
	p.skipWS()
	var members []*rdf.NamedNode
	parseOne := func() error {
		p.skipWS()
		if ch, ok := p.peek(); ok && ch == '^' {
			p.advance()
		}
		if ch, ok := p.peek(); ok && ch == 'a' && p.isRDFTypeKeyword() {
			p.advance()
			members = append(members, rdf.NewNamedNode(rdfType))
			return nil
		}
		iri, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return err
		}
		members = append(members, iri)
		return nil
	}
	if ch, ok := p.peek(); ok && ch == '(' {
		p.advance()
		p.skipWS()
		if ch, ok := p.peek(); !ok || ch != ')' {
			if err := parseOne(); err != nil {
				return nil, err
			}
			for {
				p.skipWS()
				if ch, ok := p.peek(); !ok || ch != '|' {
					break
				}
				p.advance()
				if err := parseOne(); err != nil {
					return nil, err
				}
			}
		}
		if !p.consume(")") {
			return nil, p.errf("expected ')' to close negated property set")
		}
	} else {
		if err := parseOne(); err != nil {
			return nil, err
		}
	}
	return &algebra.PathNegatedSet{IRIs: members}, nil
}
