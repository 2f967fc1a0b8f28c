package executor

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/trigo-rdf/trigo/internal/rdferr"
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func (e *Executor) evalOrderBy(ctx context.Context, p *algebra.OrderBy, input Binding, graph rdf.Term) ([]Binding, error) {
	rows, err := e.eval(ctx, p.Input, input, graph)
	if err != nil {
		return nil, err
	}
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range p.Keys {
			vi, erri := e.evalExpr(rows[i], key.Expr)
			vj, errj := e.evalExpr(rows[j], key.Expr)
			cmp, err := compareTermsOrdering(vi, erri, vj, errj)
			if err != nil {
				sortErr = err
			}
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return rows, nil
}

// compareTermsOrdering implements ORDER BY's total ordering over
// expression results: an evaluation error (including "unbound")
// sorts before every successfully evaluated value, matching the
// common implementation choice of treating errors/unbound as the
// least value rather than aborting the whole query.
func compareTermsOrdering(a rdf.Term, aerr error, b rdf.Term, berr error) (int, error) {
	if aerr != nil && berr != nil {
		return 0, nil
	}
	if aerr != nil {
		return -1, nil
	}
	if berr != nil {
		return 1, nil
	}
	return compareTerms(a, b)
}

func (e *Executor) evalSlice(ctx context.Context, p *algebra.Slice, input Binding, graph rdf.Term) ([]Binding, error) {
	rows, err := e.eval(ctx, p.Input, input, graph)
	if err != nil {
		return nil, err
	}
	start := int64(0)
	if p.HasOffset {
		start = p.Offset
	}
	if start < 0 {
		start = 0
	}
	if start >= int64(len(rows)) {
		return nil, nil
	}
	end := int64(len(rows))
	if p.HasLimit {
		if lim := start + p.Limit; lim < end {
			end = lim
		}
	}
	return rows[start:end], nil
}

// evalGroup partitions Input's rows by Keys and computes Aggregates
// over each partition. A key that is a plain variable stays bound
// under that variable in the group's output row; any other key
// expression is bound under a synthetic __group_key_ name.
func (e *Executor) evalGroup(ctx context.Context, p *algebra.Group, input Binding, graph rdf.Term) ([]Binding, error) {
	rows, err := e.eval(ctx, p.Input, input, graph)
	if err != nil {
		return nil, err
	}

	type group struct {
		key  Binding
		rows []Binding
	}
	order := make([]string, 0)
	groups := make(map[string]*group)

	addTo := func(keyBind Binding, row Binding) {
		k := bindingKey(keyBind)
		g, ok := groups[k]
		if !ok {
			g = &group{key: keyBind}
			groups[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, row)
	}

	if len(p.Keys) == 0 {
		// No GROUP BY: the whole input is a single implicit group,
		// even when Input produced zero rows (aggregates like COUNT
		// still return a defined result over the empty group).
		addTo(Binding{}, nil)
		groups[order[0]].rows = rows
	} else {
		for _, r := range rows {
			keyBind := make(Binding, len(p.Keys))
			for i, keyExpr := range p.Keys {
				if val, err := e.evalExpr(r, keyExpr); err == nil {
					name := algebra.Variable(groupKeyName(i))
					if ref, ok := keyExpr.(*algebra.VarRef); ok {
						name = ref.Name
					}
					keyBind[name] = val
				}
			}
			addTo(keyBind, r)
		}
	}

	out := make([]Binding, 0, len(order))
	for _, k := range order {
		g := groups[k]
		nb := g.key.clone()
		for _, agg := range p.Aggregates {
			val, err := e.evalAggregate(agg, g.rows)
			if err != nil {
				continue
			}
			nb[agg.Var] = val
		}
		out = append(out, nb)
	}
	return out, nil
}

func groupKeyName(i int) string {
	return "__group_key_" + string(rune('a'+i))
}

// evalAggregate computes one aggregate over a group's rows.
func (e *Executor) evalAggregate(agg algebra.Aggregate, rows []Binding) (rdf.Term, error) {
	switch agg.Kind {
	case algebra.AggCount:
		return e.aggCount(agg, rows)
	case algebra.AggSum:
		return e.aggNumericFold(agg, rows, apdArithContext.Add, apd.New(0, 0))
	case algebra.AggMin:
		return e.aggMinMax(agg, rows, true)
	case algebra.AggMax:
		return e.aggMinMax(agg, rows, false)
	case algebra.AggAvg:
		return e.aggAvg(agg, rows)
	case algebra.AggSample:
		return e.aggSample(agg, rows)
	case algebra.AggGroupConcat:
		return e.aggGroupConcat(agg, rows)
	default:
		return nil, &rdferr.UnsupportedFeature{Detail: "aggregate kind"}
	}
}

func (e *Executor) aggCount(agg algebra.Aggregate, rows []Binding) (rdf.Term, error) {
	if agg.Expr == nil {
		return rdf.NewIntegerLiteral(int64(len(rows))), nil
	}
	count := int64(0)
	seen := map[string]bool{}
	for _, r := range rows {
		val, err := e.evalExpr(r, agg.Expr)
		if err != nil {
			continue
		}
		if agg.Distinct {
			k := val.String()
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		count++
	}
	return rdf.NewIntegerLiteral(count), nil
}

type apdBinOp func(d, x, y *apd.Decimal) (apd.Condition, error)

func (e *Executor) aggNumericFold(agg algebra.Aggregate, rows []Binding, op apdBinOp, seed *apd.Decimal) (rdf.Term, error) {
	acc := new(apd.Decimal).Set(seed)
	kind := numInteger
	seen := map[string]bool{}
	for _, r := range rows {
		val, err := e.evalExpr(r, agg.Expr)
		if err != nil {
			continue
		}
		if agg.Distinct {
			k := val.String()
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		n, ok := toNumeric(val)
		if !ok {
			continue
		}
		if n.kind > kind {
			kind = n.kind
		}
		if _, err := op(acc, acc, &n.dec); err != nil {
			return nil, err
		}
	}
	return numericTerm(numericValue{dec: *acc, kind: kind}), nil
}

func (e *Executor) aggAvg(agg algebra.Aggregate, rows []Binding) (rdf.Term, error) {
	sumTerm, err := e.aggNumericFold(agg, rows, apdArithContext.Add, apd.New(0, 0))
	if err != nil {
		return nil, err
	}
	sum, ok := toNumeric(sumTerm)
	if !ok {
		return rdf.NewIntegerLiteral(0), nil
	}
	count := int64(0)
	for _, r := range rows {
		if _, err := e.evalExpr(r, agg.Expr); err == nil {
			count++
		}
	}
	if count == 0 {
		return rdf.NewIntegerLiteral(0), nil
	}
	divisor := apd.New(count, 0)
	var result apd.Decimal
	if _, err := apdArithContext.Quo(&result, &sum.dec, divisor); err != nil {
		return nil, err
	}
	return numericTerm(numericValue{dec: result, kind: numDecimal}), nil
}

func (e *Executor) aggMinMax(agg algebra.Aggregate, rows []Binding, wantMin bool) (rdf.Term, error) {
	var best rdf.Term
	for _, r := range rows {
		val, err := e.evalExpr(r, agg.Expr)
		if err != nil {
			continue
		}
		if best == nil {
			best = val
			continue
		}
		cmp, err := compareTerms(val, best)
		if err != nil {
			continue
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = val
		}
	}
	return best, nil
}

func (e *Executor) aggSample(agg algebra.Aggregate, rows []Binding) (rdf.Term, error) {
	for _, r := range rows {
		if val, err := e.evalExpr(r, agg.Expr); err == nil {
			return val, nil
		}
	}
	return nil, &rdferr.UnsupportedFeature{Detail: "SAMPLE over empty group"}
}

func (e *Executor) aggGroupConcat(agg algebra.Aggregate, rows []Binding) (rdf.Term, error) {
	var parts []string
	seen := map[string]bool{}
	for _, r := range rows {
		val, err := e.evalExpr(r, agg.Expr)
		if err != nil {
			continue
		}
		s := lexicalString(val)
		if agg.Distinct {
			if seen[s] {
				continue
			}
			seen[s] = true
		}
		parts = append(parts, s)
	}
	sep := agg.Separator
	return rdf.NewLiteral(strings.Join(parts, sep)), nil
}
