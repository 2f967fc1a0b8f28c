package algebra

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func TestTermPatternIsVariable(t *testing.T) {
	require.True(t, Var("x").IsVariable())
	require.False(t, Bound(rdf.NewNamedNode("http://example.org/s")).IsVariable())
}

func TestBGPImplementsPlan(t *testing.T) {
	var p Plan = &BGP{Patterns: []TriplePattern{
		{Subject: Var("s"), Predicate: Bound(rdf.NewNamedNode("http://example.org/p")), Object: Var("o")},
	}}
	require.NotNil(t, p)
}

func TestJoinTreeShape(t *testing.T) {
	left := &BGP{}
	right := &BGP{}
	join := &Join{Left: left, Right: right}
	require.Same(t, left, join.Left)
	require.Same(t, right, join.Right)
}

func TestSliceDistinguishesUnsetFromZero(t *testing.T) {
	s := &Slice{Input: &BGP{}, HasLimit: true, Limit: 0}
	require.True(t, s.HasLimit)
	require.Equal(t, int64(0), s.Limit)

	unset := &Slice{Input: &BGP{}}
	require.False(t, unset.HasLimit)
}
