// Package store is the quad store: it wires internal/dictionary and
// internal/storage together into pattern-matching insert/delete/scan
// operations over rdf.Term values, generalizing the teacher's
// internal/store.TripleStore (which wired its own encoding package
// directly to a Storage backend) onto the dictionary-id indirection
// §D.1/§D.2 call for.
package store

import (
	"github.com/trigo-rdf/trigo/internal/dictionary"
	"github.com/trigo-rdf/trigo/internal/storage"
	"github.com/trigo-rdf/trigo/pkg/rdf"
)

// Store is a quad store over a single storage.Backend.
type Store struct {
	dict           *dictionary.Dictionary
	backend        storage.Backend
	defaultGraphID uint64
}

// New wires a fresh dictionary to backend. The dictionary and backend
// are expected to have been created together; reopening a persistent
// backend against a new process needs the dictionary rebuilt from
// whatever the host persists for it (out of scope here — §9 leaves
// dictionary persistence to the embedding host).
func New(backend storage.Backend) *Store {
	dict := dictionary.New()
	s := &Store{dict: dict, backend: backend}
	s.defaultGraphID = dict.InternDefaultGraph()
	return s
}

// Dictionary exposes the store's term dictionary, so a caller (the
// executor's expression evaluator, the update engine) can intern or
// resolve terms without the store needing to re-expose every dictionary
// method itself.
func (s *Store) Dictionary() *dictionary.Dictionary { return s.dict }

// DefaultGraphID is the sentinel dictionary id that fills the graph
// position of quads in the default graph.
func (s *Store) DefaultGraphID() uint64 { return s.defaultGraphID }

func (s *Store) graphID(g rdf.Term) (uint64, error) {
	if g == nil {
		return s.defaultGraphID, nil
	}
	if _, ok := g.(*rdf.DefaultGraph); ok {
		return s.defaultGraphID, nil
	}
	return s.dict.Intern(g)
}

// Insert interns every term of quad and writes it across all four
// indexes.
func (s *Store) Insert(quad *rdf.Quad) error {
	return s.InsertBatch([]*rdf.Quad{quad})
}

// InsertBatch applies every quad's insert atomically (§4.2).
func (s *Store) InsertBatch(quads []*rdf.Quad) error {
	encoded, err := s.encodeForInsert(quads)
	if err != nil {
		return err
	}
	return s.backend.Insert(encoded)
}

// Delete removes quad from every index, if present.
func (s *Store) Delete(quad *rdf.Quad) error {
	return s.DeleteBatch([]*rdf.Quad{quad})
}

// DeleteBatch removes every listed quad atomically. Terms that were
// never interned are simply absent from every index already; this is
// not an error.
func (s *Store) DeleteBatch(quads []*rdf.Quad) error {
	return s.backend.Delete(s.encodeForDelete(quads))
}

// ApplyBatch deletes and then inserts, within a single atomic backend
// commit (§4.8: a MODIFY or DELETE...INSERT's combined effect must be
// indivisible against a concurrent reader, which must never observe
// the deletes applied without the inserts, or vice versa).
func (s *Store) ApplyBatch(deletes, inserts []*rdf.Quad) error {
	encodedInserts, err := s.encodeForInsert(inserts)
	if err != nil {
		return err
	}
	return s.backend.Apply(s.encodeForDelete(deletes), encodedInserts)
}

// encodeForInsert interns every term of quads, allocating fresh
// dictionary ids for any term not already seen.
func (s *Store) encodeForInsert(quads []*rdf.Quad) ([]storage.Quad, error) {
	encoded := make([]storage.Quad, len(quads))
	for i, q := range quads {
		sid, err := s.dict.Intern(q.Subject)
		if err != nil {
			return nil, err
		}
		pid, err := s.dict.Intern(q.Predicate)
		if err != nil {
			return nil, err
		}
		oid, err := s.dict.Intern(q.Object)
		if err != nil {
			return nil, err
		}
		gid, err := s.graphID(q.Graph)
		if err != nil {
			return nil, err
		}
		encoded[i] = storage.Quad{S: sid, P: pid, O: oid, G: gid}
	}
	return encoded, nil
}

// encodeForDelete looks up every term of quads without interning, so a
// quad that was never inserted (and so shares no term with anything the
// dictionary has seen) contributes nothing to the batch instead of
// minting ids for terms the store will go on to forget again.
func (s *Store) encodeForDelete(quads []*rdf.Quad) []storage.Quad {
	encoded := make([]storage.Quad, 0, len(quads))
	for _, q := range quads {
		sid, ok := s.lookupID(q.Subject)
		if !ok {
			continue
		}
		pid, ok := s.lookupID(q.Predicate)
		if !ok {
			continue
		}
		oid, ok := s.lookupID(q.Object)
		if !ok {
			continue
		}
		gid := s.defaultGraphID
		if q.Graph != nil {
			if _, isDefault := q.Graph.(*rdf.DefaultGraph); !isDefault {
				id, ok := s.lookupID(q.Graph)
				if !ok {
					continue
				}
				gid = id
			}
		}
		encoded = append(encoded, storage.Quad{S: sid, P: pid, O: oid, G: gid})
	}
	return encoded
}

func (s *Store) lookupID(term rdf.Term) (uint64, bool) {
	return s.dict.Lookup(term)
}

// NamedGraphs returns the distinct named graphs (excluding the default
// graph) that currently have at least one quad.
func (s *Store) NamedGraphs() ([]*rdf.NamedNode, error) {
	ids, err := s.backend.NamedGraphs(s.defaultGraphID)
	if err != nil {
		return nil, err
	}
	out := make([]*rdf.NamedNode, 0, len(ids))
	for _, id := range ids {
		term, err := s.dict.Resolve(id)
		if err != nil {
			continue
		}
		if nn, ok := term.(*rdf.NamedNode); ok {
			out = append(out, nn)
		}
	}
	return out, nil
}

// Count returns the total number of quads stored (read off IndexSPOG,
// which holds exactly one entry per quad).
func (s *Store) Count() (uint64, error) {
	return s.backend.Count(storage.IndexSPOG)
}

func (s *Store) Close() error { return s.backend.Close() }
