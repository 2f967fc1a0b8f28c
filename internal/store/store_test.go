package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trigo-rdf/trigo/internal/storage"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(storage.NewMemStore())
}

func TestInsertAndMatchBySubject(t *testing.T) {
	s := newTestStore(t)
	alice := rdf.NewNamedNode("http://example.org/alice")
	name := rdf.NewNamedNode("http://example.org/name")
	age := rdf.NewNamedNode("http://example.org/age")

	require.NoError(t, s.Insert(rdf.NewQuad(alice, name, rdf.NewLiteral("Alice"), rdf.NewDefaultGraph())))
	require.NoError(t, s.Insert(rdf.NewQuad(alice, age, rdf.NewIntegerLiteral(30), rdf.NewDefaultGraph())))

	it, err := s.Match(Pattern{Subject: alice})
	require.NoError(t, err)
	defer it.Close()

	var count int
	for it.Next() {
		q, err := it.Quad()
		require.NoError(t, err)
		require.True(t, alice.Equals(q.Subject))
		count++
	}
	require.Equal(t, 2, count)
}

func TestMatchByPredicateObject(t *testing.T) {
	s := newTestStore(t)
	name := rdf.NewNamedNode("http://example.org/name")
	alice := rdf.NewNamedNode("http://example.org/alice")
	bob := rdf.NewNamedNode("http://example.org/bob")

	require.NoError(t, s.Insert(rdf.NewQuad(alice, name, rdf.NewLiteral("shared"), rdf.NewDefaultGraph())))
	require.NoError(t, s.Insert(rdf.NewQuad(bob, name, rdf.NewLiteral("shared"), rdf.NewDefaultGraph())))
	require.NoError(t, s.Insert(rdf.NewQuad(bob, name, rdf.NewLiteral("other"), rdf.NewDefaultGraph())))

	it, err := s.Match(Pattern{Predicate: name, Object: rdf.NewLiteral("shared")})
	require.NoError(t, err)
	defer it.Close()

	var subjects []string
	for it.Next() {
		q, err := it.Quad()
		require.NoError(t, err)
		subjects = append(subjects, q.Subject.String())
	}
	require.ElementsMatch(t, []string{alice.String(), bob.String()}, subjects)
}

func TestMatchUnboundTermReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	it, err := s.Match(Pattern{Subject: rdf.NewNamedNode("http://example.org/never-inserted")})
	require.NoError(t, err)
	defer it.Close()
	require.False(t, it.Next())
}

func TestMatchOnNeverSeenTermDoesNotInternIt(t *testing.T) {
	s := newTestStore(t)
	before := s.Dictionary().Len()

	it, err := s.Match(Pattern{Subject: rdf.NewNamedNode("http://example.org/never-inserted")})
	require.NoError(t, err)
	it.Close()

	require.Equal(t, before, s.Dictionary().Len(), "scanning a bound term never seen before must not intern it")
}

func TestDeleteOfNeverInsertedQuadDoesNotInternItsTerms(t *testing.T) {
	s := newTestStore(t)
	before := s.Dictionary().Len()

	q := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/ghost-s"),
		rdf.NewNamedNode("http://example.org/ghost-p"),
		rdf.NewNamedNode("http://example.org/ghost-o"),
		rdf.NewDefaultGraph(),
	)
	require.NoError(t, s.Delete(q))
	require.Equal(t, before, s.Dictionary().Len(), "deleting a quad that was never inserted must not intern its terms")
}

func TestDeleteRemovesQuad(t *testing.T) {
	s := newTestStore(t)
	q := rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/s"),
		rdf.NewNamedNode("http://example.org/p"),
		rdf.NewNamedNode("http://example.org/o"),
		rdf.NewDefaultGraph(),
	)
	require.NoError(t, s.Insert(q))
	count, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	require.NoError(t, s.Delete(q))
	count, err = s.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)
}

func TestNamedGraphsExcludesDefault(t *testing.T) {
	s := newTestStore(t)
	g := rdf.NewNamedNode("http://example.org/graph1")
	require.NoError(t, s.Insert(rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/s"),
		rdf.NewNamedNode("http://example.org/p"),
		rdf.NewNamedNode("http://example.org/o"),
		g,
	)))
	require.NoError(t, s.Insert(rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/s2"),
		rdf.NewNamedNode("http://example.org/p2"),
		rdf.NewNamedNode("http://example.org/o2"),
		rdf.NewDefaultGraph(),
	)))

	graphs, err := s.NamedGraphs()
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	require.True(t, g.Equals(graphs[0]))
}
