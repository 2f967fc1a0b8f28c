package optimizer

import "github.com/trigo-rdf/trigo/internal/sparql/algebra"

// pruneProjections drops BGP triple patterns and Extend/Group pipeline
// stages whose output variables are never referenced by anything above
// them in the plan, the way an unused SELECT column lets a relational
// planner skip computing it. needed is nil at the root, meaning "keep
// everything" (a bare Project at the very top supplies the real demand
// set once pruneProjections reaches it).
func pruneProjections(plan algebra.Plan, needed map[algebra.Variable]struct{}) algebra.Plan {
	switch p := plan.(type) {
	case *algebra.BGP:
		if needed == nil {
			return p
		}
		kept := make([]algebra.TriplePattern, 0, len(p.Patterns))
		for _, tp := range p.Patterns {
			if tripleContributes(tp, needed) {
				kept = append(kept, tp)
			}
		}
		if len(kept) == 0 {
			return &algebra.Table{Vars: nil, Rows: []algebra.Row{{}}}
		}
		return &algebra.BGP{Patterns: kept}
	case *algebra.Table, *algebra.PathPlan:
		return p
	case *algebra.Join:
		return &algebra.Join{Left: pruneProjections(p.Left, needed), Right: pruneProjections(p.Right, needed)}
	case *algebra.LeftJoin:
		rightNeeded := unionNeeded(needed, exprVars(p.Expr))
		return &algebra.LeftJoin{Left: pruneProjections(p.Left, needed), Right: pruneProjections(p.Right, rightNeeded), Expr: p.Expr}
	case *algebra.Union:
		return &algebra.Union{Left: pruneProjections(p.Left, needed), Right: pruneProjections(p.Right, needed)}
	case *algebra.Minus:
		return &algebra.Minus{Left: pruneProjections(p.Left, needed), Right: pruneProjections(p.Right, nil)}
	case *algebra.Graph:
		return &algebra.Graph{Name: p.Name, Pattern: pruneProjections(p.Pattern, needed)}
	case *algebra.Service:
		return &algebra.Service{Endpoint: p.Endpoint, Pattern: pruneProjections(p.Pattern, needed), Silent: p.Silent}
	case *algebra.Filter:
		inner := unionNeeded(needed, exprVars(p.Expr))
		return &algebra.Filter{Input: pruneProjections(p.Input, inner), Expr: p.Expr}
	case *algebra.Extend:
		if needed != nil {
			if _, used := needed[p.Var]; !used {
				return pruneProjections(p.Input, needed)
			}
		}
		inner := unionNeeded(needed, exprVars(p.Expr))
		delete(inner, p.Var)
		return &algebra.Extend{Input: pruneProjections(p.Input, inner), Var: p.Var, Expr: p.Expr}
	case *algebra.Project:
		inner := toSet(p.Vars)
		return &algebra.Project{Input: pruneProjections(p.Input, inner), Vars: p.Vars}
	case *algebra.Distinct:
		return &algebra.Distinct{Input: pruneProjections(p.Input, needed)}
	case *algebra.Reduced:
		return &algebra.Reduced{Input: pruneProjections(p.Input, needed)}
	case *algebra.OrderBy:
		inner := needed
		for _, k := range p.Keys {
			inner = unionNeeded(inner, exprVars(k.Expr))
		}
		return &algebra.OrderBy{Input: pruneProjections(p.Input, inner), Keys: p.Keys}
	case *algebra.Slice:
		return &algebra.Slice{Input: pruneProjections(p.Input, needed), Offset: p.Offset, HasOffset: p.HasOffset, Limit: p.Limit, HasLimit: p.HasLimit}
	case *algebra.Group:
		// Grouping/aggregation reshapes the variable set entirely; the
		// input must still produce every variable the keys and
		// aggregate expressions read.
		var inner map[algebra.Variable]struct{}
		for _, k := range p.Keys {
			inner = unionNeeded(inner, exprVars(k))
		}
		for _, a := range p.Aggregates {
			if a.Expr != nil {
				inner = unionNeeded(inner, exprVars(a.Expr))
			}
		}
		return &algebra.Group{Input: pruneProjections(p.Input, inner), Keys: p.Keys, Aggregates: p.Aggregates}
	default:
		unhandledPlan(plan)
		return nil
	}
}

func tripleContributes(tp algebra.TriplePattern, needed map[algebra.Variable]struct{}) bool {
	if needed == nil {
		return true
	}
	for _, pos := range []algebra.TermPattern{tp.Subject, tp.Predicate, tp.Object} {
		if pos.IsVariable() {
			if _, ok := needed[pos.Var]; ok {
				return true
			}
		}
	}
	// A triple pattern with no variable at all (a ground fact check)
	// always contributes, since dropping it would change ASK/FILTER
	// semantics even though it binds nothing new.
	return !tp.Subject.IsVariable() && !tp.Predicate.IsVariable() && !tp.Object.IsVariable()
}

func unionNeeded(a, b map[algebra.Variable]struct{}) map[algebra.Variable]struct{} {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[algebra.Variable]struct{}, len(a)+len(b))
	for v := range a {
		out[v] = struct{}{}
	}
	for v := range b {
		out[v] = struct{}{}
	}
	return out
}

func toSet(vars algebra.Vars) map[algebra.Variable]struct{} {
	out := make(map[algebra.Variable]struct{}, len(vars))
	for _, v := range vars {
		out[v] = struct{}{}
	}
	return out
}
