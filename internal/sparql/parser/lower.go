package parser

import "github.com/trigo-rdf/trigo/internal/sparql/algebra"

// ToAlgebra lowers a parsed Query into the §4.6 algebra, resolving the
// prologue's prefix map and base IRI having already happened during
// parsing (every IRI in the tree is already absolute by this point).
func ToAlgebra(q *Query) algebra.Plan {
	plan := lowerGroup(q.Where)

	if len(q.GroupBy) > 0 || len(q.aggregates) > 0 {
		plan = &algebra.Group{Input: plan, Keys: q.GroupBy, Aggregates: collectAggregates(q)}
	}
	for _, h := range q.Having {
		plan = &algebra.Filter{Input: plan, Expr: h}
	}
	if len(q.OrderBy) > 0 {
		plan = &algebra.OrderBy{Input: plan, Keys: q.OrderBy}
	}
	if q.Distinct {
		plan = &algebra.Distinct{Input: plan}
	} else if q.Reduced {
		plan = &algebra.Reduced{Input: plan}
	}
	if !q.SelectAll && q.Type == QueryTypeSelect {
		plan = &algebra.Project{Input: plan, Vars: q.SelectVars}
	}
	if q.Limit != nil || q.Offset != nil {
		slice := &algebra.Slice{Input: plan}
		if q.Limit != nil {
			slice.HasLimit, slice.Limit = true, *q.Limit
		}
		if q.Offset != nil {
			slice.HasOffset, slice.Offset = true, *q.Offset
		}
		plan = slice
	}
	return plan
}

// collectAggregates is a placeholder seam: aggregate expressions found
// inside the SELECT list are attached to the Query by the parser's
// projection-parsing step (parseSelectVars in parser.go) rather than
// re-discovered here, so this just returns what was already collected.
func collectAggregates(q *Query) []algebra.Aggregate { return q.aggregates }

func lowerGroup(gp *GroupGraphPattern) algebra.Plan {
	if gp == nil {
		return &algebra.Table{Vars: nil, Rows: []algebra.Row{{}}}
	}

	var plan algebra.Plan
	if len(gp.Triples) > 0 {
		plan = &algebra.BGP{Patterns: gp.Triples}
	}
	for i := range gp.Paths {
		path := gp.Paths[i]
		plan = joinOrSet(plan, &path)
	}
	if gp.Values != nil {
		plan = joinOrSet(plan, &algebra.Table{Vars: gp.Values.Vars, Rows: gp.Values.Rows})
	}

	for _, child := range gp.Children {
		switch child.Kind {
		case PatternOptional:
			plan = &algebra.LeftJoin{Left: requirePlan(plan), Right: lowerGroup(child)}
		case PatternUnion:
			plan = joinAsUnion(plan, child)
		case PatternMinus:
			plan = &algebra.Minus{Left: requirePlan(plan), Right: lowerGroup(child)}
		case PatternGraph:
			inner := lowerGroup(child)
			plan = joinOrSet(plan, &algebra.Graph{Name: child.GraphTerm, Pattern: inner})
		case PatternService:
			inner := lowerGroup(child)
			plan = joinOrSet(plan, &algebra.Service{Endpoint: child.GraphTerm, Pattern: inner, Silent: child.Silent})
		case PatternSubSelect:
			plan = joinOrSet(plan, child.SubPlan)
		default:
			plan = joinOrSet(plan, lowerGroup(child))
		}
	}

	for _, b := range gp.Binds {
		plan = &algebra.Extend{Input: requirePlan(plan), Var: b.Var, Expr: b.Expr}
	}
	for _, f := range gp.Filters {
		plan = &algebra.Filter{Input: requirePlan(plan), Expr: f}
	}

	return requirePlan(plan)
}

// joinAsUnion handles the grammar quirk that `{A} UNION {B} UNION {C}`
// parses as one GroupGraphPattern with three PatternUnion children
// rather than a binary tree; the first child joins normally (it is the
// pattern's own left-hand side), every subsequent UNION child folds the
// accumulated plan with Union instead of Join.
func joinAsUnion(plan algebra.Plan, child *GroupGraphPattern) algebra.Plan {
	right := lowerGroup(child)
	if plan == nil {
		return right
	}
	return &algebra.Union{Left: plan, Right: right}
}

func joinOrSet(plan algebra.Plan, next algebra.Plan) algebra.Plan {
	if plan == nil {
		return next
	}
	return &algebra.Join{Left: plan, Right: next}
}

func requirePlan(plan algebra.Plan) algebra.Plan {
	if plan == nil {
		return &algebra.Table{Vars: nil, Rows: []algebra.Row{{}}}
	}
	return plan
}
