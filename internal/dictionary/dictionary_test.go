package dictionary

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trigo-rdf/trigo/internal/rdferr"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

func TestInternAssignsStableIds(t *testing.T) {
	d := New()

	id1, err := d.Intern(rdf.NewNamedNode("http://example.org/s"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), id1)

	id2, err := d.Intern(rdf.NewNamedNode("http://example.org/s"))
	require.NoError(t, err)
	require.Equal(t, id1, id2, "re-interning the same term must return the same id")

	id3, err := d.Intern(rdf.NewNamedNode("http://example.org/other"))
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
}

func TestInternDistinguishesLiteralVariants(t *testing.T) {
	d := New()

	plain, err := d.Intern(rdf.NewLiteral("hello"))
	require.NoError(t, err)

	tagged, err := d.Intern(rdf.NewLiteralWithLanguage("hello", "en"))
	require.NoError(t, err)
	require.NotEqual(t, plain, tagged)

	typed, err := d.Intern(rdf.NewLiteralWithDatatype("hello", rdf.XSDString))
	require.NoError(t, err)
	require.Equal(t, plain, typed, "xsd:string is the implicit datatype of a plain literal")
}

func TestResolveUnknownID(t *testing.T) {
	d := New()
	_, err := d.Resolve(0)
	require.Error(t, err)
	var unknown *rdferr.UnknownID
	require.ErrorAs(t, err, &unknown)

	_, err = d.Resolve(99)
	require.ErrorAs(t, err, &unknown)
}

func TestSnapshotIsolatesLaterInterns(t *testing.T) {
	d := New()
	id1, err := d.Intern(rdf.NewNamedNode("http://example.org/before"))
	require.NoError(t, err)

	snap := d.Snapshot()

	id2, err := d.Intern(rdf.NewNamedNode("http://example.org/after"))
	require.NoError(t, err)

	term, err := snap.Resolve(id1)
	require.NoError(t, err)
	require.Equal(t, "http://example.org/before", term.(*rdf.NamedNode).IRI)

	_, err = snap.Resolve(id2)
	require.Error(t, err, "snapshot must not see ids allocated after it was taken")
}

func TestInternDefaultGraphIsSingleton(t *testing.T) {
	d := New()
	a := d.InternDefaultGraph()
	b := d.InternDefaultGraph()
	require.Equal(t, a, b)

	term, err := d.Resolve(a)
	require.NoError(t, err)
	require.Equal(t, rdf.TermTypeDefaultGraph, term.Type())
}

func TestLookupDoesNotAllocate(t *testing.T) {
	d := New()
	_, ok := d.Lookup(rdf.NewNamedNode("http://example.org/never-seen"))
	require.False(t, ok)
	require.Equal(t, uint64(0), d.Len(), "Lookup of an unseen term must not allocate an id")

	id, err := d.Intern(rdf.NewNamedNode("http://example.org/seen"))
	require.NoError(t, err)

	got, ok := d.Lookup(rdf.NewNamedNode("http://example.org/seen"))
	require.True(t, ok)
	require.Equal(t, id, got)
	require.Equal(t, uint64(1), d.Len(), "Lookup of an already-interned term must not allocate a second id")
}

func TestInternConcurrentSameTermConverges(t *testing.T) {
	d := New()
	const goroutines = 64
	ids := make([]uint64, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := d.Intern(rdf.NewNamedNode("http://example.org/contended"))
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id, "every goroutine interning the same term must converge on one id")
	}
}
