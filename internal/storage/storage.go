// Package storage implements the §4.2 backend contract: an
// insert/delete/scan/count/named-graphs surface kept deliberately narrow
// so that the quad store in internal/store can run unmodified against
// whichever of the three concrete backends a host picks, the way the
// teacher's pkg/store.Storage interface lets internal/store swap between
// BadgerDB and (eventually) other engines without internal/store caring
// which one is live.
package storage

import (
	"encoding/binary"
	"fmt"
)

// Index names the four canonical orderings spec mandates. Every quad is
// written once per index; which index a scan uses is chosen by the quad
// store from which positions of the pattern are bound.
type Index byte

const (
	IndexSPOG Index = iota
	IndexPOSG
	IndexOSPG
	IndexGSPO
)

func (idx Index) String() string {
	switch idx {
	case IndexSPOG:
		return "spog"
	case IndexPOSG:
		return "posg"
	case IndexOSPG:
		return "ospg"
	case IndexGSPO:
		return "gspo"
	default:
		return fmt.Sprintf("index(%d)", byte(idx))
	}
}

// Indexes lists all four orderings in a stable order, used by callers
// that must touch every index (insert, delete, Backend implementations'
// own bookkeeping).
var Indexes = [4]Index{IndexSPOG, IndexPOSG, IndexOSPG, IndexGSPO}

// Key is the 32-byte packed key for one index entry: four 8-byte
// big-endian dictionary ids in the order named by the index (so for
// IndexPOSG, Key holds predicate, object, subject, graph in that byte
// order). Packing fixed-width ids rather than the teacher's
// variable-length encoded terms keeps every key the same size and
// trivially comparable with bytes.Compare, which is what makes a single
// lexicographic index usable for arbitrary bound-prefix scans.
type Key [32]byte

// PackKey lays out four dictionary ids in the order index.String()
// names them.
func PackKey(index Index, s, p, o, g uint64) Key {
	var a, b, c, d uint64
	switch index {
	case IndexSPOG:
		a, b, c, d = s, p, o, g
	case IndexPOSG:
		a, b, c, d = p, o, s, g
	case IndexOSPG:
		a, b, c, d = o, s, p, g
	case IndexGSPO:
		a, b, c, d = g, s, p, o
	default:
		panic("storage: unknown index")
	}
	var k Key
	binary.BigEndian.PutUint64(k[0:8], a)
	binary.BigEndian.PutUint64(k[8:16], b)
	binary.BigEndian.PutUint64(k[16:24], c)
	binary.BigEndian.PutUint64(k[24:32], d)
	return k
}

// Unpack reverses PackKey, returning the quad in canonical (s, p, o, g)
// order regardless of which index it was read from.
func (k Key) Unpack(index Index) (s, p, o, g uint64) {
	a := binary.BigEndian.Uint64(k[0:8])
	b := binary.BigEndian.Uint64(k[8:16])
	c := binary.BigEndian.Uint64(k[16:24])
	d := binary.BigEndian.Uint64(k[24:32])
	switch index {
	case IndexSPOG:
		return a, b, c, d
	case IndexPOSG:
		return c, a, b, d
	case IndexOSPG:
		return b, c, a, d
	case IndexGSPO:
		return b, c, d, a
	default:
		panic("storage: unknown index")
	}
}

// Quad is the dictionary-id form of an RDF quad — the only shape the
// storage layer itself ever deals with; term decoding lives one layer up
// in internal/store.
type Quad struct {
	S, P, O, G uint64
}

// Backend is the contract every storage variant implements: insert,
// delete, scan by index with an optional key-range restriction, count,
// and the distinct graph ids currently in use.
//
// Insert and Delete apply atomically across all four indexes for every
// quad in the batch: a backend must never leave the indexes
// inconsistent with each other, even after a crash (§4.2).
type Backend interface {
	Insert(quads []Quad) error
	Delete(quads []Quad) error

	// Apply deletes and then inserts, both within the same atomic
	// commit a single Insert or Delete batch gets: a concurrent reader
	// must never observe deletes applied without inserts, or vice versa
	// (§4.8's MODIFY/DELETE...INSERT atomicity).
	Apply(deletes, inserts []Quad) error

	// Scan returns every key in [index] whose bytes fall in
	// [lowerBound, upperBound). With hasUpper false, upperBound is
	// ignored and the scan runs to the end of the index. Scan results reflect a consistent snapshot as of the
	// call (§4.2 "restartable by reissuing scan").
	Scan(index Index, lowerBound, upperBound Key, hasUpper bool) (Cursor, error)

	Count(index Index) (uint64, error)

	// NamedGraphs returns the distinct graph dictionary ids that have
	// at least one quad stored under them, not including the default
	// graph sentinel.
	NamedGraphs(defaultGraphID uint64) ([]uint64, error)

	// Flush forces any buffered writes to stable storage, per §6's
	// embedding contract. A backend with no write buffering may treat
	// this as a no-op.
	Flush() error

	Close() error
}

// Cursor walks a Scan result. Its zero value is not usable; obtain one
// from Backend.Scan.
type Cursor interface {
	Next() bool
	Key() Key
	Close() error
}

// Options describes backend construction settings. No constructor in
// this package takes it: each backend's constructor takes its own
// narrow arguments (NewBadgerStore(path), NewSQLiteStore(path)), like
// the teacher's NewBadgerStorage(path).
type Options struct {
	// Path is the on-disk location for persistent backends; ignored by
	// the in-memory backend.
	Path string
}
