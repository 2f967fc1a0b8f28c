package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trigo-rdf/trigo/internal/sparql/algebra"
	"github.com/trigo-rdf/trigo/internal/storage"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(storage.NewMemStore())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestLoadTextNTriplesAndSelect(t *testing.T) {
	s := newTestStore(t)
	ntriples := `<http://example.org/alice> <http://example.org/name> "Alice" .` + "\n"
	require.NoError(t, s.LoadText(rdf.FormatNTriples, strings.NewReader(ntriples), nil))

	result, err := s.ExecuteQuery(context.Background(), `
		SELECT ?name WHERE { <http://example.org/alice> <http://example.org/name> ?name }
	`)
	require.NoError(t, err)
	sel, ok := result.(*SelectResult)
	require.True(t, ok)
	require.Len(t, sel.Rows, 1)
	require.Equal(t, "Alice", sel.Rows[0][algebra.Variable("name")].(*rdf.Literal).Value)
}

func TestLoadTextBlankNodesDoNotCollideAcrossLoads(t *testing.T) {
	s := newTestStore(t)
	quad := `_:b0 <http://example.org/p> "1" .` + "\n"
	require.NoError(t, s.LoadText(rdf.FormatNTriples, strings.NewReader(quad), nil))
	require.NoError(t, s.LoadText(rdf.FormatNTriples, strings.NewReader(quad), nil))

	count, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestLoadTextTriGUnsupported(t *testing.T) {
	s := newTestStore(t)
	err := s.LoadText(rdf.FormatTriG, strings.NewReader(""), nil)
	require.Error(t, err)
}

func TestExecuteQueryAsk(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ExecuteUpdate(context.Background(), `
		INSERT DATA { <http://example.org/a> <http://example.org/p> "1" . }
	`))

	result, err := s.ExecuteQuery(context.Background(), `ASK { <http://example.org/a> <http://example.org/p> "1" }`)
	require.NoError(t, err)
	ask, ok := result.(*AskResult)
	require.True(t, ok)
	require.True(t, ask.Result)

	result, err = s.ExecuteQuery(context.Background(), `ASK { <http://example.org/a> <http://example.org/p> "nope" }`)
	require.NoError(t, err)
	ask, ok = result.(*AskResult)
	require.True(t, ok)
	require.False(t, ask.Result)
}

func TestExecuteQueryConstructFreshensBlankNodesPerSolution(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ExecuteUpdate(context.Background(), `
		INSERT DATA {
			<http://example.org/alice> <http://example.org/knows> <http://example.org/bob> .
			<http://example.org/alice> <http://example.org/knows> <http://example.org/carol> .
		}
	`))

	result, err := s.ExecuteQuery(context.Background(), `
		CONSTRUCT { ?s <http://example.org/hasFriend> _:f . ?s <http://example.org/note> _:f }
		WHERE { ?s <http://example.org/knows> ?o }
	`)
	require.NoError(t, err)
	cons, ok := result.(*ConstructResult)
	require.True(t, ok)
	require.Len(t, cons.Quads, 4)

	blanks := map[string]bool{}
	for _, q := range cons.Quads {
		if bn, ok := q.Object.(*rdf.BlankNode); ok {
			blanks[bn.ID] = true
		}
	}
	require.Len(t, blanks, 2, "each solution should mint its own blank node")
}

func TestDescribeResolvesConciseBoundedDescription(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ExecuteUpdate(context.Background(), `
		INSERT DATA {
			<http://example.org/alice> <http://example.org/name> "Alice" .
			<http://example.org/bob> <http://example.org/knows> <http://example.org/alice> .
		}
	`))

	result, err := s.ExecuteQuery(context.Background(), `DESCRIBE <http://example.org/alice>`)
	require.NoError(t, err)
	cons, ok := result.(*ConstructResult)
	require.True(t, ok)
	require.Len(t, cons.Quads, 2)
}

func TestOneOrMorePathReportsCycleBackToStart(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ExecuteUpdate(context.Background(), `
		INSERT DATA {
			<http://example.org/a> <http://example.org/p> <http://example.org/b> .
			<http://example.org/b> <http://example.org/p> <http://example.org/a> .
		}
	`))

	result, err := s.ExecuteQuery(context.Background(), `
		ASK { <http://example.org/a> <http://example.org/p>+ <http://example.org/a> }
	`)
	require.NoError(t, err)
	ask, ok := result.(*AskResult)
	require.True(t, ok)
	require.True(t, ask.Result, "a->b->a is a valid length-2 one-or-more path back to its own start")
}

func TestOneOrMorePathReportsDirectSelfLoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ExecuteUpdate(context.Background(), `
		INSERT DATA { <http://example.org/a> <http://example.org/p> <http://example.org/a> . }
	`))

	result, err := s.ExecuteQuery(context.Background(), `
		ASK { <http://example.org/a> <http://example.org/p>+ <http://example.org/a> }
	`)
	require.NoError(t, err)
	ask, ok := result.(*AskResult)
	require.True(t, ok)
	require.True(t, ask.Result, "a single self-loop triple is itself a length-1 one-or-more path")
}

func TestFromRestrictsDefaultGraphToListedGraphs(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ExecuteUpdate(context.Background(), `
		INSERT DATA {
			GRAPH <http://example.org/g1> { <http://example.org/a> <http://example.org/p> "in-g1" . }
			GRAPH <http://example.org/g2> { <http://example.org/a> <http://example.org/p> "in-g2" . }
			<http://example.org/a> <http://example.org/p> "in-default" .
		}
	`))

	result, err := s.ExecuteQuery(context.Background(), `
		SELECT ?v FROM <http://example.org/g1> WHERE { <http://example.org/a> <http://example.org/p> ?v }
	`)
	require.NoError(t, err)
	sel, ok := result.(*SelectResult)
	require.True(t, ok)
	require.Len(t, sel.Rows, 1)
	require.Equal(t, "in-g1", sel.Rows[0][algebra.Variable("v")].(*rdf.Literal).Value)

	result, err = s.ExecuteQuery(context.Background(), `
		SELECT ?v FROM <http://example.org/g1> FROM <http://example.org/g2>
		WHERE { <http://example.org/a> <http://example.org/p> ?v }
	`)
	require.NoError(t, err)
	sel, ok = result.(*SelectResult)
	require.True(t, ok)
	require.Len(t, sel.Rows, 2)
}

func TestFromNamedRestrictsGraphClauseEnumeration(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ExecuteUpdate(context.Background(), `
		INSERT DATA {
			GRAPH <http://example.org/g1> { <http://example.org/a> <http://example.org/p> "in-g1" . }
			GRAPH <http://example.org/g2> { <http://example.org/a> <http://example.org/p> "in-g2" . }
		}
	`))

	result, err := s.ExecuteQuery(context.Background(), `
		SELECT ?g ?v FROM NAMED <http://example.org/g1>
		WHERE { GRAPH ?g { <http://example.org/a> <http://example.org/p> ?v } }
	`)
	require.NoError(t, err)
	sel, ok := result.(*SelectResult)
	require.True(t, ok)
	require.Len(t, sel.Rows, 1)
	require.Equal(t, "in-g1", sel.Rows[0][algebra.Variable("v")].(*rdf.Literal).Value)

	result, err = s.ExecuteQuery(context.Background(), `
		ASK FROM NAMED <http://example.org/g1> { GRAPH <http://example.org/g2> { ?s ?p ?o } }
	`)
	require.NoError(t, err)
	ask, ok := result.(*AskResult)
	require.True(t, ok)
	require.False(t, ask.Result)
}

func TestCountReflectsInserts(t *testing.T) {
	s := newTestStore(t)
	count, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)

	require.NoError(t, s.ExecuteUpdate(context.Background(), `
		INSERT DATA { <http://example.org/a> <http://example.org/p> "1" . }
	`))
	count, err = s.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}
