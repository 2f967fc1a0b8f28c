package update

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trigo-rdf/trigo/internal/sparql/executor"
	"github.com/trigo-rdf/trigo/internal/storage"
	"github.com/trigo-rdf/trigo/internal/store"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func newTestEngine(t *testing.T) (*store.Store, *Engine) {
	t.Helper()
	s := store.New(storage.NewMemStore())
	exec := executor.New(s, nil)
	return s, New(s, exec, nil)
}

func countQuads(t *testing.T, s *store.Store) int {
	t.Helper()
	it, err := s.Match(store.Pattern{})
	require.NoError(t, err)
	defer it.Close()
	var n int
	for it.Next() {
		n++
	}
	return n
}

func TestInsertData(t *testing.T) {
	s, e := newTestEngine(t)
	err := e.Execute(context.Background(), `
		INSERT DATA {
			<http://example.org/alice> <http://example.org/name> "Alice" .
			<http://example.org/alice> <http://example.org/age> 30 .
		}
	`)
	require.NoError(t, err)
	require.Equal(t, 2, countQuads(t, s))
}

func TestInsertDataIntoNamedGraph(t *testing.T) {
	s, e := newTestEngine(t)
	err := e.Execute(context.Background(), `
		INSERT DATA {
			GRAPH <http://example.org/g1> {
				<http://example.org/alice> <http://example.org/name> "Alice" .
			}
		}
	`)
	require.NoError(t, err)

	it, err := s.Match(store.Pattern{Graph: rdf.NewNamedNode("http://example.org/g1")})
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.Next())
}

func TestDeleteData(t *testing.T) {
	s, e := newTestEngine(t)
	require.NoError(t, e.Execute(context.Background(), `
		INSERT DATA { <http://example.org/a> <http://example.org/p> "1" . }
	`))
	require.Equal(t, 1, countQuads(t, s))

	require.NoError(t, e.Execute(context.Background(), `
		DELETE DATA { <http://example.org/a> <http://example.org/p> "1" . }
	`))
	require.Equal(t, 0, countQuads(t, s))
}

func TestDeleteWhere(t *testing.T) {
	s, e := newTestEngine(t)
	require.NoError(t, e.Execute(context.Background(), `
		INSERT DATA {
			<http://example.org/alice> <http://example.org/knows> <http://example.org/bob> .
			<http://example.org/alice> <http://example.org/knows> <http://example.org/carol> .
		}
	`))
	require.Equal(t, 2, countQuads(t, s))

	require.NoError(t, e.Execute(context.Background(), `
		DELETE WHERE { <http://example.org/alice> <http://example.org/knows> ?friend . }
	`))
	require.Equal(t, 0, countQuads(t, s))
}

func TestModifyDeleteInsert(t *testing.T) {
	s, e := newTestEngine(t)
	require.NoError(t, e.Execute(context.Background(), `
		INSERT DATA { <http://example.org/alice> <http://example.org/status> "old" . }
	`))

	require.NoError(t, e.Execute(context.Background(), `
		DELETE { ?s <http://example.org/status> ?old }
		INSERT { ?s <http://example.org/status> "new" }
		WHERE { ?s <http://example.org/status> ?old }
	`))

	it, err := s.Match(store.Pattern{Predicate: rdf.NewNamedNode("http://example.org/status")})
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.Next())
	q, err := it.Quad()
	require.NoError(t, err)
	require.Equal(t, "new", q.Object.(*rdf.Literal).Value)
	require.False(t, it.Next())
}

func TestClearDefault(t *testing.T) {
	s, e := newTestEngine(t)
	require.NoError(t, e.Execute(context.Background(), `
		INSERT DATA { <http://example.org/a> <http://example.org/p> "1" . }
	`))
	require.NoError(t, e.Execute(context.Background(), `CLEAR DEFAULT`))
	require.Equal(t, 0, countQuads(t, s))
}

func TestClearGraph(t *testing.T) {
	s, e := newTestEngine(t)
	require.NoError(t, e.Execute(context.Background(), `
		INSERT DATA {
			GRAPH <http://example.org/g1> { <http://example.org/a> <http://example.org/p> "1" . }
		}
	`))
	require.NoError(t, e.Execute(context.Background(), `CLEAR GRAPH <http://example.org/g1>`))
	require.Equal(t, 0, countQuads(t, s))
}

func TestCreateGraphIsNoopSuccess(t *testing.T) {
	_, e := newTestEngine(t)
	require.NoError(t, e.Execute(context.Background(), `CREATE GRAPH <http://example.org/g1>`))
}

func TestCopyGraph(t *testing.T) {
	s, e := newTestEngine(t)
	require.NoError(t, e.Execute(context.Background(), `
		INSERT DATA {
			GRAPH <http://example.org/src> { <http://example.org/a> <http://example.org/p> "1" . }
		}
	`))
	require.NoError(t, e.Execute(context.Background(), `
		COPY GRAPH <http://example.org/src> TO GRAPH <http://example.org/dst>
	`))

	it, err := s.Match(store.Pattern{Graph: rdf.NewNamedNode("http://example.org/dst")})
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.Next())
}

func TestDropSilentOnMissingGraphSucceeds(t *testing.T) {
	_, e := newTestEngine(t)
	err := e.Execute(context.Background(), `DROP SILENT GRAPH <http://example.org/never-existed>`)
	require.NoError(t, err)
}

func TestMultipleStatementsSeparatedBySemicolon(t *testing.T) {
	s, e := newTestEngine(t)
	err := e.Execute(context.Background(), `
		INSERT DATA { <http://example.org/a> <http://example.org/p> "1" . } ;
		INSERT DATA { <http://example.org/b> <http://example.org/p> "2" . }
	`)
	require.NoError(t, err)
	require.Equal(t, 2, countQuads(t, s))
}
