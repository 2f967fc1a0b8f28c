package optimizer

import (
	"sort"

	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
)

// orderBGPJoins reorders the triple patterns inside every BGP by
// estimated selectivity, generalizing the teacher's
// reorderBySelectivity/estimateSelectivity (internal/sparql/optimizer,
// teacher copy): a pattern with more bound positions is assumed to match
// fewer quads, so evaluating it first keeps the running intermediate
// result small. This is a heuristic, not a cost-based optimizer fed by
// real index statistics (§9 open question: no stats collector is
// specified, so a fixed heuristic is used instead — see DESIGN.md).
func orderBGPJoins(plan algebra.Plan) algebra.Plan {
	switch p := plan.(type) {
	case *algebra.BGP:
		ordered := make([]algebra.TriplePattern, len(p.Patterns))
		copy(ordered, p.Patterns)
		sort.SliceStable(ordered, func(i, j int) bool {
			return selectivity(ordered[i]) < selectivity(ordered[j])
		})
		return &algebra.BGP{Patterns: ordered}
	case *algebra.Table, *algebra.PathPlan:
		return plan
	case *algebra.Join:
		return &algebra.Join{Left: orderBGPJoins(p.Left), Right: orderBGPJoins(p.Right)}
	case *algebra.LeftJoin:
		return &algebra.LeftJoin{Left: orderBGPJoins(p.Left), Right: orderBGPJoins(p.Right), Expr: p.Expr}
	case *algebra.Union:
		return &algebra.Union{Left: orderBGPJoins(p.Left), Right: orderBGPJoins(p.Right)}
	case *algebra.Minus:
		return &algebra.Minus{Left: orderBGPJoins(p.Left), Right: orderBGPJoins(p.Right)}
	case *algebra.Graph:
		return &algebra.Graph{Name: p.Name, Pattern: orderBGPJoins(p.Pattern)}
	case *algebra.Service:
		return &algebra.Service{Endpoint: p.Endpoint, Pattern: orderBGPJoins(p.Pattern), Silent: p.Silent}
	case *algebra.Filter:
		return &algebra.Filter{Input: orderBGPJoins(p.Input), Expr: p.Expr}
	case *algebra.Extend:
		return &algebra.Extend{Input: orderBGPJoins(p.Input), Var: p.Var, Expr: p.Expr}
	case *algebra.Project:
		return &algebra.Project{Input: orderBGPJoins(p.Input), Vars: p.Vars}
	case *algebra.Distinct:
		return &algebra.Distinct{Input: orderBGPJoins(p.Input)}
	case *algebra.Reduced:
		return &algebra.Reduced{Input: orderBGPJoins(p.Input)}
	case *algebra.OrderBy:
		return &algebra.OrderBy{Input: orderBGPJoins(p.Input), Keys: p.Keys}
	case *algebra.Slice:
		return &algebra.Slice{Input: orderBGPJoins(p.Input), Offset: p.Offset, HasOffset: p.HasOffset, Limit: p.Limit, HasLimit: p.HasLimit}
	case *algebra.Group:
		return &algebra.Group{Input: orderBGPJoins(p.Input), Keys: p.Keys, Aggregates: p.Aggregates}
	default:
		unhandledPlan(plan)
		return nil
	}
}

// selectivity scores a triple pattern; lower means more selective
// (fewer expected matches): a bound subject weighs more than a bound
// predicate or a bound object, which weigh the same.
func selectivity(tp algebra.TriplePattern) float64 {
	score := 1.0
	if !tp.Subject.IsVariable() {
		score *= 0.01
	}
	if !tp.Predicate.IsVariable() {
		score *= 0.1
	}
	if !tp.Object.IsVariable() {
		score *= 0.1
	}
	return score
}
