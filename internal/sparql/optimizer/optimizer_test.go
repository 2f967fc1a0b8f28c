package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func TestFoldConstantsEliminatesTrueFilter(t *testing.T) {
	plan := &algebra.Filter{
		Input: &algebra.BGP{},
		Expr: &algebra.BinaryOp{
			Op:    algebra.OpOr,
			Left:  &algebra.Const{Term: rdf.NewBooleanLiteral(true)},
			Right: &algebra.Const{Term: rdf.NewBooleanLiteral(false)},
		},
	}
	out := foldConstants(plan)
	_, isBGP := out.(*algebra.BGP)
	require.True(t, isBGP, "a filter that folds to constant-true should disappear, leaving its input")
}

func TestFoldConstantsReplacesFalseFilterWithEmptyTable(t *testing.T) {
	plan := &algebra.Filter{
		Input: &algebra.BGP{},
		Expr: &algebra.BinaryOp{
			Op:    algebra.OpAnd,
			Left:  &algebra.Const{Term: rdf.NewBooleanLiteral(true)},
			Right: &algebra.Const{Term: rdf.NewBooleanLiteral(false)},
		},
	}
	out := foldConstants(plan)
	tbl, ok := out.(*algebra.Table)
	require.True(t, ok)
	require.Empty(t, tbl.Rows)
}

func TestPushdownFiltersMovesSingleSidedFilterBelowJoin(t *testing.T) {
	left := &algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var("s"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/p1")), Object: algebra.Var("o1")},
	}}
	right := &algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var("s"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/p2")), Object: algebra.Var("o2")},
	}}
	plan := &algebra.Filter{
		Input: &algebra.Join{Left: left, Right: right},
		Expr:  &algebra.VarRef{Name: "o1"},
	}
	out := pushdownFilters(plan)
	join, ok := out.(*algebra.Join)
	require.True(t, ok, "filter referencing only left-side variables should push below the join")
	_, leftIsFilter := join.Left.(*algebra.Filter)
	require.True(t, leftIsFilter)
	_, rightIsBGP := join.Right.(*algebra.BGP)
	require.True(t, rightIsBGP)
}

func TestOrderBGPJoinsPutsMostBoundPatternFirst(t *testing.T) {
	plan := &algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var("s"), Predicate: algebra.Var("p"), Object: algebra.Var("o")},
		{
			Subject:   algebra.Bound(rdf.NewNamedNode("http://example.org/s")),
			Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/p")),
			Object:    algebra.Var("o2"),
		},
	}}
	out := orderBGPJoins(plan).(*algebra.BGP)
	require.False(t, out.Patterns[0].Subject.IsVariable(), "the fully-bound-subject pattern should be ordered first")
}

func TestPruneProjectionsDropsUnusedBGPPattern(t *testing.T) {
	plan := &algebra.Project{
		Vars: algebra.Vars{"name"},
		Input: &algebra.Join{
			Left: &algebra.BGP{Patterns: []algebra.TriplePattern{
				{Subject: algebra.Var("s"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/name")), Object: algebra.Var("name")},
			}},
			Right: &algebra.BGP{Patterns: []algebra.TriplePattern{
				{Subject: algebra.Var("s"), Predicate: algebra.Bound(rdf.NewNamedNode("http://example.org/unused")), Object: algebra.Var("irrelevant")},
			}},
		},
	}
	out := pruneProjections(plan, nil).(*algebra.Project)
	join := out.Input.(*algebra.Join)
	_, rightIsTable := join.Right.(*algebra.Table)
	require.True(t, rightIsTable, "a BGP pattern binding only unreferenced variables should be pruned to an empty table")
}

func TestDecomposePathsRewritesSeqAsJoin(t *testing.T) {
	plan := &algebra.PathPlan{
		Subject: algebra.Var("x"),
		Path: &algebra.PathSeq{
			Left:  &algebra.PathIRI{IRI: rdf.NewNamedNode("http://example.org/knows")},
			Right: &algebra.PathIRI{IRI: rdf.NewNamedNode("http://example.org/name")},
		},
		Object: algebra.Var("y"),
	}
	out := decomposePaths(plan)
	_, ok := out.(*algebra.Join)
	require.True(t, ok, "a two-step path sequence should decompose into a join of two single-step paths")
}
