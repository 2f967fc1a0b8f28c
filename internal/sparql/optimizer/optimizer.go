// Package optimizer rewrites an algebra.Plan through the five ordered
// passes §4.6 specifies before the executor ever sees it: constant
// folding / dead-branch elimination, filter pushdown, BGP join
// ordering, projection pruning, and property-path decomposition. Every
// pass is a single recursive function with an exhaustive type switch
// over algebra.Plan; a `default: panic(...)` branch means a new plan
// variant that isn't wired into every pass fails a test immediately
// instead of silently skipping optimization for it (§9).
package optimizer

import (
	"fmt"

	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
)

// Optimize runs all five passes, in order, over plan.
func Optimize(plan algebra.Plan) algebra.Plan {
	plan = foldConstants(plan)
	plan = pushdownFilters(plan)
	plan = orderBGPJoins(plan)
	plan = pruneProjections(plan, nil)
	plan = decomposePaths(plan)
	return plan
}

func unhandledPlan(plan algebra.Plan) {
	panic(fmt.Sprintf("optimizer: unhandled algebra.Plan variant %T", plan))
}

func unhandledExpr(expr algebra.Expr) {
	panic(fmt.Sprintf("optimizer: unhandled algebra.Expr variant %T", expr))
}
