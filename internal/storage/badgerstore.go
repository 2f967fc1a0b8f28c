package storage

import (
	"bytes"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/trigo-rdf/trigo/internal/rdferr"
)

// BadgerStore is the log-structured persistent Backend variant, adapted
// from the teacher's internal/storage/badger.go. Where the teacher opens
// one badger.Txn per table operation against its own nine-table key
// space, BadgerStore keys every entry by a one-byte index prefix
// (IndexSPOG..IndexGSPO) followed by the 32-byte packed Key, and applies
// an entire Insert/Delete batch inside a single badger.Txn so a crash
// mid-batch never leaves one index updated and another stale.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a BadgerDB-backed backend at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &rdferr.StorageError{Detail: fmt.Sprintf("opening badger db at %s", path), Err: err}
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(index Index, k Key) []byte {
	buf := make([]byte, 1+len(k))
	buf[0] = byte(index)
	copy(buf[1:], k[:])
	return buf
}

func (s *BadgerStore) Insert(quads []Quad) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, q := range quads {
			for _, idx := range Indexes {
				key := PackKey(idx, q.S, q.P, q.O, q.G)
				if err := txn.Set(badgerKey(idx, key), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *BadgerStore) Delete(quads []Quad) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, q := range quads {
			for _, idx := range Indexes {
				key := PackKey(idx, q.S, q.P, q.O, q.G)
				if err := txn.Delete(badgerKey(idx, key)); err != nil && err != badger.ErrKeyNotFound {
					return err
				}
			}
		}
		return nil
	})
}

// Apply deletes and then inserts inside a single badger.Txn, the same
// atomicity guarantee Insert/Delete each get on their own, so a crash or
// a concurrent reader's snapshot never falls between the two halves.
func (s *BadgerStore) Apply(deletes, inserts []Quad) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, q := range deletes {
			for _, idx := range Indexes {
				key := PackKey(idx, q.S, q.P, q.O, q.G)
				if err := txn.Delete(badgerKey(idx, key)); err != nil && err != badger.ErrKeyNotFound {
					return err
				}
			}
		}
		for _, q := range inserts {
			for _, idx := range Indexes {
				key := PackKey(idx, q.S, q.P, q.O, q.G)
				if err := txn.Set(badgerKey(idx, key), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Scan opens a short-lived read transaction that lives for the cursor's
// lifetime; callers must Close the cursor to release it. Restarting a
// scan (§4.2) is just calling Scan again — BadgerDB's MVCC snapshot
// semantics give a consistent read as of that call without any extra
// bookkeeping here.
func (s *BadgerStore) Scan(index Index, lowerBound, upperBound Key, hasUpper bool) (Cursor, error) {
	txn := s.db.NewTransaction(false)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{byte(index)}
	it := txn.NewIterator(opts)

	seek := badgerKey(index, lowerBound)
	var end []byte
	if hasUpper {
		end = badgerKey(index, upperBound)
	}

	return &badgerCursor{txn: txn, it: it, seek: seek, end: end, started: false}, nil
}

func (s *BadgerStore) Count(index Index) (uint64, error) {
	var count uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{byte(index)}
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, &rdferr.StorageError{Detail: "counting index " + index.String(), Err: err}
	}
	return count, nil
}

func (s *BadgerStore) NamedGraphs(defaultGraphID uint64) ([]uint64, error) {
	seen := make(map[uint64]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte{byte(IndexGSPO)}
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := it.Item().Key()
			if len(raw) != 1+32 {
				continue
			}
			var k Key
			copy(k[:], raw[1:])
			g, _, _, _ := k.Unpack(IndexGSPO)
			if g != defaultGraphID {
				seen[g] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, &rdferr.StorageError{Detail: "listing named graphs", Err: err}
	}
	out := make([]uint64, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	return out, nil
}

// Flush forces badger's value log and LSM tree to durable storage.
func (s *BadgerStore) Flush() error {
	return s.db.Sync()
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

type badgerCursor struct {
	txn     *badger.Txn
	it      *badger.Iterator
	seek    []byte
	end     []byte
	started bool
	valid   bool
}

func (c *badgerCursor) Next() bool {
	if !c.started {
		c.it.Seek(c.seek)
		c.started = true
	} else {
		c.it.Next()
	}
	if !c.it.Valid() {
		c.valid = false
		return false
	}
	if c.end != nil && bytes.Compare(c.it.Item().Key(), c.end) >= 0 {
		c.valid = false
		return false
	}
	c.valid = true
	return true
}

func (c *badgerCursor) Key() Key {
	if !c.valid {
		return Key{}
	}
	raw := c.it.Item().Key()
	var k Key
	if len(raw) == 1+len(k) {
		copy(k[:], raw[1:])
	}
	return k
}

func (c *badgerCursor) Close() error {
	c.it.Close()
	c.txn.Discard()
	return nil
}
