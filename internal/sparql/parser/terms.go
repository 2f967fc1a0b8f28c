package parser

import (
	"strings"

	"github.com/trigo-rdf/trigo/internal/rdferr"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// parseVar implements `Var ::= VAR1 | VAR2` (`?name` or `$name`).
func (p *parser) parseVar() (algebra.Variable, error) {
	p.skipWS()
	ch, ok := p.peek()
	if !ok || (ch != '?' && ch != '$') {
		return "", p.errf("expected variable")
	}
	p.advance()
	start := p.pos
	for {
		c, ok := p.peek()
		if !ok || !(isNameByte(c) || c >= 0x80) {
			break
		}
		p.advance()
	}
	if start == p.pos {
		return "", p.errf("empty variable name")
	}
	return algebra.Variable(p.input[start:p.pos]), nil
}

// parseVarOrTerm implements `VarOrTerm ::= Var | GraphTerm`, covering
// the object/subject-position grammar shared by triple patterns and
// property path endpoints. A bare blank node label is resolved against
// bnodeVars so repeated uses of the same label within the query refer
// to the same synthetic variable (§17.2).
func (p *parser) parseVarOrTerm() (algebra.TermPattern, error) {
	p.skipWS()
	ch, ok := p.peek()
	if !ok {
		return algebra.TermPattern{}, p.errf("unexpected end of input, expected term")
	}
	switch {
	case ch == '?' || ch == '$':
		v, err := p.parseVar()
		if err != nil {
			return algebra.TermPattern{}, err
		}
		return algebra.Var(v), nil
	case ch == '_':
		return p.parseBlankNodeLabelAsVar()
	case ch == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return algebra.TermPattern{}, err
		}
		return algebra.Bound(rdf.NewNamedNode(p.resolveIRI(iri))), nil
	case ch == '"' || ch == '\'':
		lit, err := p.parseRDFLiteral()
		if err != nil {
			return algebra.TermPattern{}, err
		}
		return algebra.Bound(lit), nil
	case ch == '+' || ch == '-' || isDigit(ch):
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return algebra.TermPattern{}, err
		}
		return algebra.Bound(lit), nil
	case strings.HasPrefix(p.input[p.pos:], "true") || strings.HasPrefix(p.input[p.pos:], "false"):
		lit, err := p.parseBooleanLiteral()
		if err != nil {
			return algebra.TermPattern{}, err
		}
		return algebra.Bound(lit), nil
	default:
		term, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return algebra.TermPattern{}, err
		}
		return algebra.Bound(term), nil
	}
}

func (p *parser) parseBlankNodeLabelAsVar() (algebra.TermPattern, error) {
	if !p.consume("_:") {
		return algebra.TermPattern{}, p.errf("expected '_:' to start blank node label")
	}
	start := p.pos
	for {
		ch, ok := p.peek()
		if !ok || isWSByte(ch) || ch == '.' || ch == ';' || ch == ',' || ch == ')' || ch == ']' || ch == '}' {
			break
		}
		p.advance()
	}
	if start == p.pos {
		return algebra.TermPattern{}, p.errf("empty blank node label")
	}
	label := p.input[start:p.pos]
	v, ok := p.bnodeVars[label]
	if !ok {
		p.bnodes++
		v = algebra.Variable("_bnode_" + label)
		p.bnodeVars[label] = v
	}
	return algebra.Var(v), nil
}

// parseIRIOrPrefixedName implements `iri ::= IRIREF | PrefixedName`,
// returning a *rdf.NamedNode for both term-position and DESCRIBE use.
func (p *parser) parseIRIOrPrefixedName() (*rdf.NamedNode, error) {
	p.skipWS()
	ch, ok := p.peek()
	if !ok {
		return nil, p.errf("expected IRI")
	}
	if ch == '<' {
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(p.resolveIRI(iri)), nil
	}
	return p.parsePrefixedName()
}

func (p *parser) parseIRIRef() (string, error) {
	p.skipWS()
	if ch, ok := p.peek(); !ok || ch != '<' {
		return "", p.errf("expected '<' to start IRI")
	}
	p.advance()
	var sb strings.Builder
	for {
		ch, ok := p.peek()
		if !ok {
			return "", p.errf("unterminated IRI reference")
		}
		if ch == '>' {
			p.advance()
			return sb.String(), nil
		}
		if ch <= 0x20 {
			return "", p.errf("invalid control character in IRI")
		}
		sb.WriteByte(ch)
		p.advance()
	}
}

func (p *parser) parsePrefixedName() (*rdf.NamedNode, error) {
	p.skipWS()
	start := p.pos
	for {
		ch, ok := p.peek()
		if !ok || ch == ':' {
			break
		}
		if isWSByte(ch) || strings.ContainsRune(";,.()[]{}'\"", rune(ch)) {
			return nil, p.errf("unexpected token %q while parsing prefixed name", p.input[start:p.pos])
		}
		p.advance()
	}
	prefix := p.input[start:p.pos]
	if ch, ok := p.peek(); !ok || ch != ':' {
		return nil, p.errf("expected ':' in prefixed name")
	}
	p.advance()

	localStart := p.pos
	for {
		ch, ok := p.peek()
		if !ok || isWSByte(ch) || strings.ContainsRune(";,()[]{}'\"", rune(ch)) {
			break
		}
		// '.' only terminates the local name when not followed by
		// another local-name character, matching PN_LOCAL's trailing-dot rule.
		if ch == '.' {
			if next := p.pos + 1; next >= len(p.input) || isWSByte(p.input[next]) || p.input[next] == '}' {
				break
			}
		}
		p.advance()
	}
	local := p.input[localStart:p.pos]

	ns, ok := p.prefixes[prefix]
	if !ok {
		return nil, &rdferr.UndefinedPrefix{Name: prefix}
	}
	return rdf.NewNamedNode(ns + local), nil
}

func (p *parser) parseRDFLiteral() (rdf.Term, error) {
	quote, _ := p.peek()
	value, err := p.parseQuotedString(quote)
	if err != nil {
		return nil, err
	}
	if ch, ok := p.peek(); ok && ch == '@' {
		p.advance()
		start := p.pos
		for {
			ch, ok := p.peek()
			if !ok || !(isAlpha(ch) || ch == '-' || isDigit(ch)) {
				break
			}
			p.advance()
		}
		return rdf.NewLiteralWithLanguage(value, p.input[start:p.pos]), nil
	}
	if strings.HasPrefix(p.input[p.pos:], "^^") {
		p.advance()
		p.advance()
		dt, err := p.parseIRIOrPrefixedName()
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteralWithDatatype(value, dt), nil
	}
	return rdf.NewLiteral(value), nil
}

func (p *parser) parseQuotedString(quote byte) (string, error) {
	long := strings.HasPrefix(p.input[p.pos:], strings.Repeat(string(quote), 3))
	delim := string(quote)
	if long {
		delim = strings.Repeat(string(quote), 3)
	}
	for range delim {
		p.advance()
	}
	var sb strings.Builder
	for {
		if strings.HasPrefix(p.input[p.pos:], delim) {
			for range delim {
				p.advance()
			}
			return sb.String(), nil
		}
		ch, ok := p.peek()
		if !ok {
			return "", p.errf("unterminated string literal")
		}
		if ch == '\\' {
			if p.pos+1 < len(p.input) {
				switch p.input[p.pos+1] {
				case 'n':
					sb.WriteByte('\n')
					p.advance()
					p.advance()
					continue
				case 't':
					sb.WriteByte('\t')
					p.advance()
					p.advance()
					continue
				case 'r':
					sb.WriteByte('\r')
					p.advance()
					p.advance()
					continue
				case '\'', '"', '\\':
					sb.WriteByte(p.input[p.pos+1])
					p.advance()
					p.advance()
					continue
				}
			}
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
			continue
		}
		sb.WriteByte(ch)
		p.advance()
	}
}

func (p *parser) parseUnicodeEscape() (rune, error) {
	if !p.consume("\\u") {
		if p.consume("\\U") {
			return p.readHex(8)
		}
		return 0, p.errf("unsupported escape sequence")
	}
	return p.readHex(4)
}

func (p *parser) readHex(width int) (rune, error) {
	if p.pos+width > len(p.input) {
		return 0, p.errf("truncated unicode escape")
	}
	var value rune
	for i := 0; i < width; i++ {
		c := p.input[p.pos]
		value <<= 4
		switch {
		case c >= '0' && c <= '9':
			value |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			value |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			value |= rune(c-'A') + 10
		default:
			return 0, p.errf("invalid hex digit %q", c)
		}
		p.advance()
	}
	return value, nil
}

func (p *parser) parseNumericLiteral() (rdf.Term, error) {
	start := p.pos
	if ch, ok := p.peek(); ok && (ch == '+' || ch == '-') {
		p.advance()
	}
	isDouble, isDecimal := false, false
	for {
		ch, ok := p.peek()
		if !ok {
			break
		}
		switch {
		case isDigit(ch):
			p.advance()
		case ch == '.' && !isDecimal && !isDouble:
			isDecimal = true
			p.advance()
		case (ch == 'e' || ch == 'E') && !isDouble:
			isDouble = true
			isDecimal = false
			p.advance()
			if ch2, ok := p.peek(); ok && (ch2 == '+' || ch2 == '-') {
				p.advance()
			}
		default:
			goto done
		}
	}
done:
	lexical := p.input[start:p.pos]
	switch {
	case isDouble:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDDouble), nil
	case isDecimal:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDDecimal), nil
	default:
		return rdf.NewLiteralWithDatatype(lexical, rdf.XSDInteger), nil
	}
}

func (p *parser) parseBooleanLiteral() (rdf.Term, error) {
	if p.consume("true") {
		return rdf.NewBooleanLiteral(true), nil
	}
	if p.consume("false") {
		return rdf.NewBooleanLiteral(false), nil
	}
	return nil, p.errf("expected boolean literal")
}
