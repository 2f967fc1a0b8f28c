package parser

import (
	"strings"

	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// parseDataBlockValue implements `DataBlockValue ::= iri | RDFLiteral |
// NumericLiteral | BooleanLiteral | 'UNDEF'`; a nil, nil-error return
// is UNDEF.
func (p *parser) parseDataBlockValue() (rdf.Term, error) {
	p.skipWS()
	if p.consumeKeyword("UNDEF") {
		return nil, nil
	}
	ch, ok := p.peek()
	if !ok {
		return nil, p.errf("expected VALUES data block value")
	}
	switch {
	case ch == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(p.resolveIRI(iri)), nil
	case ch == '"' || ch == '\'':
		return p.parseRDFLiteral()
	case ch == '+' || ch == '-' || isDigit(ch):
		return p.parseNumericLiteral()
	case strings.HasPrefix(p.input[p.pos:], "true") || strings.HasPrefix(p.input[p.pos:], "false"):
		return p.parseBooleanLiteral()
	default:
		nn, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return nn, nil
	}
}
