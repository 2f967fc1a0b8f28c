package store

import (
	"github.com/trigo-rdf/trigo/internal/storage"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// Pattern is a quad pattern: each position is either a bound rdf.Term or
// nil, meaning "match anything here" (the BGP executor binds the
// matched term to a variable one layer up; the quad store itself knows
// nothing about SPARQL variable names, matching the teacher's own
// Pattern/Variable split in internal/store/query.go).
type Pattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
	Graph     rdf.Term // nil matches every graph, default and named alike
}

// boundMask reports which positions are bound, in (s, p, o, g) order.
func (p Pattern) boundMask() [4]bool {
	return [4]bool{p.Subject != nil, p.Predicate != nil, p.Object != nil, p.Graph != nil}
}

// selectIndex picks the index whose key prefix covers the longest run of
// bound leading positions, the same heuristic the teacher's
// selectIndex/buildScanPrefix pair uses (internal/store/query.go) to pick
// among its nine tables — simplified here to a fixed decision table over
// the four canonical orderings.
func selectIndex(mask [4]bool) storage.Index {
	s, p, o, g := mask[0], mask[1], mask[2], mask[3]
	switch {
	case g && s:
		return storage.IndexGSPO
	case s && p:
		return storage.IndexSPOG
	case p && o:
		return storage.IndexPOSG
	case o && s:
		return storage.IndexOSPG
	case s:
		return storage.IndexSPOG
	case p:
		return storage.IndexPOSG
	case o:
		return storage.IndexOSPG
	case g:
		return storage.IndexGSPO
	default:
		return storage.IndexSPOG
	}
}

// QuadIterator walks the quads matching a Pattern.
type QuadIterator interface {
	Next() bool
	Quad() (*rdf.Quad, error)
	Close() error
}

// Match returns an iterator over every quad matching pattern. Unbound
// positions in pattern are wildcards; a bound position whose term was
// never interned matches nothing (short-circuited without touching
// storage at all).
func (s *Store) Match(pattern Pattern) (QuadIterator, error) {
	mask := pattern.boundMask()
	index := selectIndex(mask)

	boundIDs := [4]uint64{}
	boundIDs[0], boundIDs[1], boundIDs[2], boundIDs[3] = 0, 0, 0, 0

	terms := [4]rdf.Term{pattern.Subject, pattern.Predicate, pattern.Object, pattern.Graph}
	for i, t := range terms {
		if t == nil {
			continue
		}
		id, ok := s.resolveBoundTerm(t)
		if !ok {
			return &emptyQuadIterator{}, nil
		}
		boundIDs[i] = id
		mask[i] = true
	}

	lower, upper, hasUpper := scanRangeFor(index, mask, boundIDs)
	cursor, err := s.backend.Scan(index, lower, upper, hasUpper)
	if err != nil {
		return nil, err
	}
	return &quadIterator{store: s, index: index, cursor: cursor, mask: mask, bound: boundIDs}, nil
}

func (s *Store) resolveBoundTerm(t rdf.Term) (uint64, bool) {
	if _, ok := t.(*rdf.DefaultGraph); ok {
		return s.defaultGraphID, true
	}
	return s.dict.Lookup(t)
}

// scanRangeFor builds the [lower, upper) byte range over index that
// covers every key whose leading bound positions match boundIDs. Because
// Key packs ids in the order the chosen index names them, a run of
// leading bound positions translates directly into a shared byte prefix:
// lower is that prefix followed by zeros, upper is the same prefix
// incremented by one in the next id slot.
func scanRangeFor(index storage.Index, mask [4]bool, ids [4]uint64) (lower, upper storage.Key, hasUpper bool) {
	order := positionOrder(index)

	var boundRun int
	for _, pos := range order {
		if !mask[pos] {
			break
		}
		boundRun++
	}

	var s, p, o, g [2]uint64 // [0]=lower components, [1]=upper components
	for i := 0; i < 4; i++ {
		switch order[i] {
		case 0:
			s[0], s[1] = valueFor(i, boundRun, ids[0])
		case 1:
			p[0], p[1] = valueFor(i, boundRun, ids[1])
		case 2:
			o[0], o[1] = valueFor(i, boundRun, ids[2])
		case 3:
			g[0], g[1] = valueFor(i, boundRun, ids[3])
		}
	}

	lower = storage.PackKey(index, s[0], p[0], o[0], g[0])
	if boundRun == 0 {
		return lower, storage.Key{}, false
	}
	upper = storage.PackKey(index, s[1], p[1], o[1], g[1])
	return lower, upper, true
}

// valueFor returns the (lower, upper) pair for the id-slot at position i
// in the index's natural order, given that the first boundRun slots are
// bound: a bound slot before the increment point gets the same value on
// both sides; the slot exactly at the increment point is incremented by
// one on the upper side; everything after is zero on the lower side and
// irrelevant on the upper side (masked out by the earlier increment).
func valueFor(i, boundRun int, id uint64) (lo, hi uint64) {
	switch {
	case i < boundRun-1:
		return id, id
	case i == boundRun-1:
		return id, id + 1
	default:
		return 0, 0
	}
}

// positionOrder returns which of (s=0,p=1,o=2,g=3) occupies each of the
// four key slots for index, matching PackKey's layout exactly.
func positionOrder(index storage.Index) [4]int {
	switch index {
	case storage.IndexSPOG:
		return [4]int{0, 1, 2, 3}
	case storage.IndexPOSG:
		return [4]int{1, 2, 0, 3}
	case storage.IndexOSPG:
		return [4]int{2, 0, 1, 3}
	case storage.IndexGSPO:
		return [4]int{3, 0, 1, 2}
	default:
		panic("store: unknown index")
	}
}

type quadIterator struct {
	store   *Store
	index   storage.Index
	cursor  storage.Cursor
	mask    [4]bool
	bound   [4]uint64
	current [4]uint64
}

func (it *quadIterator) Next() bool {
	for it.cursor.Next() {
		sid, pid, oid, gid := it.cursor.Key().Unpack(it.index)
		if it.matches(sid, pid, oid, gid) {
			it.current = [4]uint64{sid, pid, oid, gid}
			return true
		}
	}
	return false
}

func (it *quadIterator) matches(s, p, o, g uint64) bool {
	if it.mask[0] && s != it.bound[0] {
		return false
	}
	if it.mask[1] && p != it.bound[1] {
		return false
	}
	if it.mask[2] && o != it.bound[2] {
		return false
	}
	if it.mask[3] && g != it.bound[3] {
		return false
	}
	return true
}

func (it *quadIterator) Quad() (*rdf.Quad, error) {
	s, err := it.store.dict.Resolve(it.current[0])
	if err != nil {
		return nil, err
	}
	p, err := it.store.dict.Resolve(it.current[1])
	if err != nil {
		return nil, err
	}
	o, err := it.store.dict.Resolve(it.current[2])
	if err != nil {
		return nil, err
	}
	g, err := it.store.dict.Resolve(it.current[3])
	if err != nil {
		return nil, err
	}
	return rdf.NewQuad(s, p, o, g), nil
}

func (it *quadIterator) Close() error { return it.cursor.Close() }

type emptyQuadIterator struct{}

func (emptyQuadIterator) Next() bool               { return false }
func (emptyQuadIterator) Quad() (*rdf.Quad, error) { return nil, nil }
func (emptyQuadIterator) Close() error             { return nil }
