package optimizer

import (
	"fmt"

	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
)

// pathVarCounter seeds fresh intermediate variable names introduced by
// decomposing a PathSeq; it is reset per Optimize call so two separate
// optimizations of the same query produce the same plan deterministically.
type pathVarCounter struct{ n int }

func (c *pathVarCounter) next() algebra.Variable {
	c.n++
	return algebra.Variable(fmt.Sprintf("_path%d", c.n))
}

// decomposePaths rewrites a PathPlan whose path is a PathSeq into a
// Join of two simpler PathPlans sharing a fresh intermediate variable,
// so the executor's normal join machinery (and the BGP join ordering
// already applied) handles each step instead of a bespoke multi-hop
// walker. PathAlt decomposes into a Union of the two branches over the
// same subject/object pair. Leaf path kinds (PathIRI, PathInverse,
// PathZeroOrMore, PathOneOrMore, PathZeroOrOne, PathNegatedSet) are left
// for the executor's frontier-expansion evaluator (§D.7) since they are
// not expressible as a finite join.
func decomposePaths(plan algebra.Plan) algebra.Plan {
	c := &pathVarCounter{}
	return decomposePathsIn(plan, c)
}

func decomposePathsIn(plan algebra.Plan, c *pathVarCounter) algebra.Plan {
	switch p := plan.(type) {
	case *algebra.BGP:
		return p
	case *algebra.Table:
		return p
	case *algebra.PathPlan:
		return decomposeOne(p, c)
	case *algebra.Join:
		return &algebra.Join{Left: decomposePathsIn(p.Left, c), Right: decomposePathsIn(p.Right, c)}
	case *algebra.LeftJoin:
		return &algebra.LeftJoin{Left: decomposePathsIn(p.Left, c), Right: decomposePathsIn(p.Right, c), Expr: p.Expr}
	case *algebra.Union:
		return &algebra.Union{Left: decomposePathsIn(p.Left, c), Right: decomposePathsIn(p.Right, c)}
	case *algebra.Minus:
		return &algebra.Minus{Left: decomposePathsIn(p.Left, c), Right: decomposePathsIn(p.Right, c)}
	case *algebra.Graph:
		return &algebra.Graph{Name: p.Name, Pattern: decomposePathsIn(p.Pattern, c)}
	case *algebra.Service:
		return &algebra.Service{Endpoint: p.Endpoint, Pattern: decomposePathsIn(p.Pattern, c), Silent: p.Silent}
	case *algebra.Filter:
		return &algebra.Filter{Input: decomposePathsIn(p.Input, c), Expr: p.Expr}
	case *algebra.Extend:
		return &algebra.Extend{Input: decomposePathsIn(p.Input, c), Var: p.Var, Expr: p.Expr}
	case *algebra.Project:
		return &algebra.Project{Input: decomposePathsIn(p.Input, c), Vars: p.Vars}
	case *algebra.Distinct:
		return &algebra.Distinct{Input: decomposePathsIn(p.Input, c)}
	case *algebra.Reduced:
		return &algebra.Reduced{Input: decomposePathsIn(p.Input, c)}
	case *algebra.OrderBy:
		return &algebra.OrderBy{Input: decomposePathsIn(p.Input, c), Keys: p.Keys}
	case *algebra.Slice:
		return &algebra.Slice{Input: decomposePathsIn(p.Input, c), Offset: p.Offset, HasOffset: p.HasOffset, Limit: p.Limit, HasLimit: p.HasLimit}
	case *algebra.Group:
		return &algebra.Group{Input: decomposePathsIn(p.Input, c), Keys: p.Keys, Aggregates: p.Aggregates}
	default:
		unhandledPlan(plan)
		return nil
	}
}

func decomposeOne(p *algebra.PathPlan, c *pathVarCounter) algebra.Plan {
	switch path := p.Path.(type) {
	case *algebra.PathSeq:
		mid := algebra.Var(c.next())
		left := decomposeOne(&algebra.PathPlan{Subject: p.Subject, Path: path.Left, Object: mid}, c)
		right := decomposeOne(&algebra.PathPlan{Subject: mid, Path: path.Right, Object: p.Object}, c)
		return &algebra.Join{Left: left, Right: right}
	case *algebra.PathAlt:
		left := decomposeOne(&algebra.PathPlan{Subject: p.Subject, Path: path.Left, Object: p.Object}, c)
		right := decomposeOne(&algebra.PathPlan{Subject: p.Subject, Path: path.Right, Object: p.Object}, c)
		return &algebra.Union{Left: left, Right: right}
	default:
		return p
	}
}
