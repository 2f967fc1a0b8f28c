package optimizer

import "github.com/trigo-rdf/trigo/internal/sparql/algebra"

// pushdownFilters moves a Filter as close as possible to the BGP/Path
// leaves whose variables it actually mentions, the classic predicate
// pushdown rewrite: evaluating a restrictive FILTER before a join
// multiplies out fewer rows than evaluating it after, and the closer to
// the scan it sits the sooner a non-matching row is discarded.
//
// The rewrite only pushes a Filter through a Join when the filter's
// variables are entirely contained in one side; a filter referencing
// variables from both sides must stay above the join, since it can only
// be evaluated once both sides' bindings are present.
func pushdownFilters(plan algebra.Plan) algebra.Plan {
	switch p := plan.(type) {
	case *algebra.BGP, *algebra.Table, *algebra.PathPlan:
		return plan
	case *algebra.Join:
		return &algebra.Join{Left: pushdownFilters(p.Left), Right: pushdownFilters(p.Right)}
	case *algebra.LeftJoin:
		return &algebra.LeftJoin{Left: pushdownFilters(p.Left), Right: pushdownFilters(p.Right), Expr: p.Expr}
	case *algebra.Union:
		return &algebra.Union{Left: pushdownFilters(p.Left), Right: pushdownFilters(p.Right)}
	case *algebra.Minus:
		return &algebra.Minus{Left: pushdownFilters(p.Left), Right: pushdownFilters(p.Right)}
	case *algebra.Graph:
		return &algebra.Graph{Name: p.Name, Pattern: pushdownFilters(p.Pattern)}
	case *algebra.Service:
		return &algebra.Service{Endpoint: p.Endpoint, Pattern: pushdownFilters(p.Pattern), Silent: p.Silent}
	case *algebra.Filter:
		input := pushdownFilters(p.Input)
		return pushInto(input, p.Expr)
	case *algebra.Extend:
		return &algebra.Extend{Input: pushdownFilters(p.Input), Var: p.Var, Expr: p.Expr}
	case *algebra.Project:
		return &algebra.Project{Input: pushdownFilters(p.Input), Vars: p.Vars}
	case *algebra.Distinct:
		return &algebra.Distinct{Input: pushdownFilters(p.Input)}
	case *algebra.Reduced:
		return &algebra.Reduced{Input: pushdownFilters(p.Input)}
	case *algebra.OrderBy:
		return &algebra.OrderBy{Input: pushdownFilters(p.Input), Keys: p.Keys}
	case *algebra.Slice:
		return &algebra.Slice{Input: pushdownFilters(p.Input), Offset: p.Offset, HasOffset: p.HasOffset, Limit: p.Limit, HasLimit: p.HasLimit}
	case *algebra.Group:
		return &algebra.Group{Input: pushdownFilters(p.Input), Keys: p.Keys, Aggregates: p.Aggregates}
	default:
		unhandledPlan(plan)
		return nil
	}
}

// pushInto attaches expr as low as possible under input, which has
// already had pushdownFilters applied to its own subtree.
func pushInto(input algebra.Plan, expr algebra.Expr) algebra.Plan {
	join, ok := input.(*algebra.Join)
	if !ok {
		return &algebra.Filter{Input: input, Expr: expr}
	}

	vars := exprVars(expr)
	leftVars := planVars(join.Left)
	rightVars := planVars(join.Right)

	if subsetOf(vars, leftVars) {
		return &algebra.Join{Left: pushInto(join.Left, expr), Right: join.Right}
	}
	if subsetOf(vars, rightVars) {
		return &algebra.Join{Left: join.Left, Right: pushInto(join.Right, expr)}
	}
	return &algebra.Filter{Input: join, Expr: expr}
}

func subsetOf(vars map[algebra.Variable]struct{}, of map[algebra.Variable]struct{}) bool {
	for v := range vars {
		if _, ok := of[v]; !ok {
			return false
		}
	}
	return true
}

// exprVars collects every variable referenced anywhere in expr.
func exprVars(expr algebra.Expr) map[algebra.Variable]struct{} {
	out := make(map[algebra.Variable]struct{})
	var walk func(algebra.Expr)
	walk = func(e algebra.Expr) {
		if e == nil {
			return
		}
		switch v := e.(type) {
		case *algebra.VarRef:
			out[v.Name] = struct{}{}
		case *algebra.Const:
		case *algebra.UnaryOp:
			walk(v.Expr)
		case *algebra.BinaryOp:
			walk(v.Left)
			walk(v.Right)
		case *algebra.FuncCall:
			for _, a := range v.Args {
				walk(a)
			}
		case *algebra.Exists:
			for pv := range planVars(v.Pattern) {
				out[pv] = struct{}{}
			}
		case *algebra.InList:
			walk(v.Expr)
			for _, val := range v.Values {
				walk(val)
			}
		default:
			unhandledExpr(e)
		}
	}
	walk(expr)
	return out
}

// planVars collects every variable a plan binds, used to decide which
// side of a join a pushed-down filter belongs on.
func planVars(plan algebra.Plan) map[algebra.Variable]struct{} {
	out := make(map[algebra.Variable]struct{})
	collectPlanVars(plan, out)
	return out
}

func collectPlanVars(plan algebra.Plan, out map[algebra.Variable]struct{}) {
	addTerm := func(t algebra.TermPattern) {
		if t.IsVariable() && t.Var != "" {
			out[t.Var] = struct{}{}
		}
	}
	switch p := plan.(type) {
	case *algebra.BGP:
		for _, tp := range p.Patterns {
			addTerm(tp.Subject)
			addTerm(tp.Predicate)
			addTerm(tp.Object)
		}
	case *algebra.Table:
		for _, v := range p.Vars {
			out[v] = struct{}{}
		}
	case *algebra.PathPlan:
		addTerm(p.Subject)
		addTerm(p.Object)
	case *algebra.Join:
		collectPlanVars(p.Left, out)
		collectPlanVars(p.Right, out)
	case *algebra.LeftJoin:
		collectPlanVars(p.Left, out)
		collectPlanVars(p.Right, out)
	case *algebra.Union:
		collectPlanVars(p.Left, out)
		collectPlanVars(p.Right, out)
	case *algebra.Minus:
		collectPlanVars(p.Left, out)
	case *algebra.Graph:
		addTerm(p.Name)
		collectPlanVars(p.Pattern, out)
	case *algebra.Service:
		collectPlanVars(p.Pattern, out)
	case *algebra.Filter:
		collectPlanVars(p.Input, out)
	case *algebra.Extend:
		collectPlanVars(p.Input, out)
		out[p.Var] = struct{}{}
	case *algebra.Project:
		for _, v := range p.Vars {
			out[v] = struct{}{}
		}
	case *algebra.Distinct:
		collectPlanVars(p.Input, out)
	case *algebra.Reduced:
		collectPlanVars(p.Input, out)
	case *algebra.OrderBy:
		collectPlanVars(p.Input, out)
	case *algebra.Slice:
		collectPlanVars(p.Input, out)
	case *algebra.Group:
		for _, a := range p.Aggregates {
			out[a.Var] = struct{}{}
		}
	default:
		unhandledPlan(plan)
	}
}
