package parser

import (
	"strings"

	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
)

var aggregateKinds = map[string]algebra.AggregateKind{
	"COUNT":        algebra.AggCount,
	"SUM":          algebra.AggSum,
	"AVG":          algebra.AggAvg,
	"MIN":          algebra.AggMin,
	"MAX":          algebra.AggMax,
	"SAMPLE":       algebra.AggSample,
	"GROUP_CONCAT": algebra.AggGroupConcat,
}

// tryParseAggregate attempts to parse an aggregate function call
// (`COUNT(...)`, `SUM(...)`, ...) at the current position, called from
// inside the `(Expression AS Var)` projection grammar after its
// opening '(' has already been consumed. It reports ok=false without
// consuming input when the next token is not a recognized aggregate
// name, so the caller can fall back to parseExpr for an ordinary
// projected expression.
func (p *parser) tryParseAggregate() (*algebra.Aggregate, bool, error) {
	save, saveLine, saveCol := p.pos, p.line, p.col
	name, ok := p.tryReadBareName()
	if !ok {
		return nil, false, nil
	}
	kind, isAgg := aggregateKinds[strings.ToUpper(name)]
	if !isAgg {
		p.pos, p.line, p.col = save, saveLine, saveCol
		return nil, false, nil
	}
	p.skipWS()
	if !p.consume("(") {
		p.pos, p.line, p.col = save, saveLine, saveCol
		return nil, false, nil
	}

	agg := &algebra.Aggregate{Kind: kind, Separator: " "}
	if p.consumeKeyword("DISTINCT") {
		agg.Distinct = true
	}
	p.skipWS()
	if kind == algebra.AggCount {
		if ch, ok := p.peek(); ok && ch == '*' {
			p.advance()
			if !p.consume(")") {
				return nil, false, p.errf("expected ')' after COUNT(*)")
			}
			return agg, true, nil
		}
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	agg.Expr = expr

	if kind == algebra.AggGroupConcat {
		p.skipWS()
		if p.consume(";") {
			if !p.consumeKeyword("SEPARATOR") {
				return nil, false, p.errf("expected SEPARATOR after ';' in GROUP_CONCAT")
			}
			if !p.consume("=") {
				return nil, false, p.errf("expected '=' after SEPARATOR")
			}
			p.skipWS()
			quote, ok := p.peek()
			if !ok || (quote != '"' && quote != '\'') {
				return nil, false, p.errf("expected string literal for SEPARATOR")
			}
			sep, err := p.parseQuotedString(quote)
			if err != nil {
				return nil, false, err
			}
			agg.Separator = sep
		}
	}

	if !p.consume(")") {
		return nil, false, p.errf("expected ')' to close aggregate call")
	}
	return agg, true, nil
}
