package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackKeyRoundTrips(t *testing.T) {
	for _, idx := range Indexes {
		key := PackKey(idx, 1, 2, 3, 4)
		s, p, o, g := key.Unpack(idx)
		require.Equal(t, uint64(1), s, "index %s", idx)
		require.Equal(t, uint64(2), p, "index %s", idx)
		require.Equal(t, uint64(3), o, "index %s", idx)
		require.Equal(t, uint64(4), g, "index %s", idx)
	}
}

func TestMemStoreInsertScanDelete(t *testing.T) {
	m := NewMemStore()
	quads := []Quad{
		{S: 1, P: 2, O: 3, G: 9},
		{S: 1, P: 2, O: 4, G: 9},
		{S: 5, P: 2, O: 3, G: 9},
	}
	require.NoError(t, m.Insert(quads))

	count, err := m.Count(IndexSPOG)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)

	lower := PackKey(IndexSPOG, 1, 0, 0, 0)
	upper := PackKey(IndexSPOG, 2, 0, 0, 0)
	cur, err := m.Scan(IndexSPOG, lower, upper, true)
	require.NoError(t, err)
	defer cur.Close()

	var seen []Quad
	for cur.Next() {
		s, p, o, g := cur.Key().Unpack(IndexSPOG)
		seen = append(seen, Quad{S: s, P: p, O: o, G: g})
	}
	require.Len(t, seen, 2, "scan over subject=1 must find exactly the two matching quads")

	require.NoError(t, m.Delete(quads[:1]))
	count, err = m.Count(IndexSPOG)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestMemStoreNamedGraphsExcludesDefault(t *testing.T) {
	m := NewMemStore()
	const defaultGraphID = 1
	require.NoError(t, m.Insert([]Quad{
		{S: 1, P: 2, O: 3, G: defaultGraphID},
		{S: 1, P: 2, O: 3, G: 42},
	}))

	graphs, err := m.NamedGraphs(defaultGraphID)
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, graphs)
}

func TestMemStoreFlushIsNoop(t *testing.T) {
	m := NewMemStore()
	require.NoError(t, m.Insert([]Quad{{S: 1, P: 2, O: 3, G: 1}}))
	require.NoError(t, m.Flush())
	count, err := m.Count(IndexSPOG)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}
