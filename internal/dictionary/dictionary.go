// Package dictionary implements the term dictionary of §4.1: a
// concurrent, append-only mapping between interned RDF terms and the
// dense uint64 ids the storage indexes actually key on.
//
// The shape follows the teacher's encoding package (xxh3 128-bit
// fingerprints over a term's type tag plus its string payload, see
// internal/encoding/encoder.go), but where the teacher hashes a term into
// a fixed-size storage key directly, the dictionary instead maps that
// fingerprint to a dense id and keeps the decoded term around for
// Resolve, sharding the map the way a high-contention concurrent cache
// is expected to rather than guarding it with one global mutex.
package dictionary

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	"github.com/trigo-rdf/trigo/internal/rdferr"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

const shardCount = 256

// fingerprint is the 128-bit xxh3 hash of a term's canonical byte form.
type fingerprint [16]byte

type shard struct {
	mu  sync.RWMutex
	ids map[fingerprint]uint64
}

// Dictionary interns RDF terms into dense uint64 ids and resolves ids
// back to terms. Id 0 is reserved and never assigned (§3.1); a fresh
// Dictionary's first Intern call returns id 1.
type Dictionary struct {
	shards  [shardCount]*shard
	counter atomic.Uint64

	recordsMu sync.RWMutex
	records   []rdf.Term // index i holds the term for id i+1

	defaultGraphOnce sync.Once
	defaultGraphID   uint64
}

// New returns an empty dictionary.
func New() *Dictionary {
	d := &Dictionary{}
	for i := range d.shards {
		d.shards[i] = &shard{ids: make(map[fingerprint]uint64)}
	}
	return d
}

// Intern returns the id for term, allocating a new one on first sight.
// A miss re-checks the shard under its write lock before allocating
// (insert-or-get, §4.1), so concurrent Intern calls for the same term
// all return the one id and no allocated id is ever discarded.
func (d *Dictionary) Intern(term rdf.Term) (uint64, error) {
	fp, err := fingerprintOf(term)
	if err != nil {
		return 0, err
	}
	sh := d.shards[fp[0]]

	sh.mu.RLock()
	if id, ok := sh.ids[fp]; ok {
		sh.mu.RUnlock()
		return id, nil
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	if id, ok := sh.ids[fp]; ok {
		sh.mu.Unlock()
		return id, nil
	}
	id, err := d.allocate(term)
	if err != nil {
		sh.mu.Unlock()
		return 0, err
	}
	sh.ids[fp] = id
	sh.mu.Unlock()
	return id, nil
}

// Lookup returns the id already interned for term, without allocating
// one if term has never been seen. Safe for callers that must not grow
// the dictionary just by asking about a term — a bound-term pattern
// scan, or a delete of a quad that was never inserted.
func (d *Dictionary) Lookup(term rdf.Term) (uint64, bool) {
	fp, err := fingerprintOf(term)
	if err != nil {
		return 0, false
	}
	sh := d.shards[fp[0]]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	id, ok := sh.ids[fp]
	return id, ok
}

// InternDefaultGraph returns the single sentinel id that fills the graph
// position of quads stored in the default graph, interning it exactly
// once per dictionary (§D.2: keeps all four index orderings uniform).
func (d *Dictionary) InternDefaultGraph() uint64 {
	d.defaultGraphOnce.Do(func() {
		id, err := d.Intern(rdf.NewDefaultGraph())
		if err != nil {
			panic("dictionary: interning the default graph sentinel cannot fail")
		}
		d.defaultGraphID = id
	})
	return d.defaultGraphID
}

func (d *Dictionary) allocate(term rdf.Term) (uint64, error) {
	id := d.counter.Add(1)
	if id == 0 {
		return 0, &rdferr.OutOfIDs{}
	}

	d.recordsMu.Lock()
	defer d.recordsMu.Unlock()
	for uint64(len(d.records)) < id {
		d.records = append(d.records, nil)
	}
	d.records[id-1] = term
	return id, nil
}

// Resolve returns the term interned under id.
func (d *Dictionary) Resolve(id uint64) (rdf.Term, error) {
	if id == 0 {
		return nil, &rdferr.UnknownID{ID: id}
	}
	d.recordsMu.RLock()
	defer d.recordsMu.RUnlock()
	if id > uint64(len(d.records)) {
		return nil, &rdferr.UnknownID{ID: id}
	}
	term := d.records[id-1]
	if term == nil {
		return nil, &rdferr.UnknownID{ID: id}
	}
	return term, nil
}

// Len reports the number of ids allocated so far.
func (d *Dictionary) Len() uint64 { return d.counter.Load() }

// Snapshot captures the current id watermark. Resolve calls made through
// the snapshot reject any id allocated after the snapshot was taken,
// giving a reader a consistent point-in-time view of the dictionary even
// while writers keep interning (§3.3).
type Snapshot struct {
	dict      *Dictionary
	watermark uint64
}

func (d *Dictionary) Snapshot() *Snapshot {
	return &Snapshot{dict: d, watermark: d.counter.Load()}
}

func (s *Snapshot) Resolve(id uint64) (rdf.Term, error) {
	if id == 0 || id > s.watermark {
		return nil, &rdferr.UnknownID{ID: id}
	}
	return s.dict.Resolve(id)
}

func (s *Snapshot) Watermark() uint64 { return s.watermark }

// fingerprintOf hashes a term's type tag and canonical string payload
// with xxh3, the same 128-bit hash the teacher's TermEncoder uses for
// its storage keys (internal/encoding/encoder.go Hash128), but applied
// to the dictionary's own canonical byte form rather than to a
// fixed-width storage key.
func fingerprintOf(term rdf.Term) (fingerprint, error) {
	var buf []byte
	switch t := term.(type) {
	case *rdf.NamedNode:
		buf = tagged(rdf.TermTypeNamedNode, t.IRI)
	case *rdf.BlankNode:
		buf = tagged(rdf.TermTypeBlankNode, t.ID)
	case *rdf.Literal:
		payload := t.Value + "\x00"
		if t.Language != "" {
			payload += "@" + t.Language
		} else if t.Datatype != nil {
			payload += "^^" + t.Datatype.IRI
		}
		buf = tagged(rdf.TermTypeLiteral, payload)
	case *rdf.DefaultGraph:
		buf = tagged(rdf.TermTypeDefaultGraph, "")
	case *rdf.QuotedTriple:
		sfp, err := fingerprintOf(t.Subject)
		if err != nil {
			return fingerprint{}, err
		}
		pfp, err := fingerprintOf(t.Predicate)
		if err != nil {
			return fingerprint{}, err
		}
		ofp, err := fingerprintOf(t.Object)
		if err != nil {
			return fingerprint{}, err
		}
		combined := make([]byte, 1+len(sfp)+len(pfp)+len(ofp))
		combined[0] = byte(rdf.TermTypeQuotedTriple)
		copy(combined[1:], sfp[:])
		copy(combined[1+len(sfp):], pfp[:])
		copy(combined[1+len(sfp)+len(pfp):], ofp[:])
		buf = combined
	default:
		return fingerprint{}, &rdferr.InvalidTerm{Detail: "unrecognized term type in dictionary.Intern"}
	}

	hash := xxh3.Hash128(buf)
	var fp fingerprint
	binary.BigEndian.PutUint64(fp[0:8], hash.Hi)
	binary.BigEndian.PutUint64(fp[8:16], hash.Lo)
	return fp, nil
}

func tagged(t rdf.TermType, s string) []byte {
	buf := make([]byte, 1+len(s))
	buf[0] = byte(t)
	copy(buf[1:], s)
	return buf
}
