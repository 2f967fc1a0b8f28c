package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/trigo-rdf/trigo/internal/rdferr"
)

// SQLiteStore is the mapped persistent Backend variant: one table per
// index, each with a single BLOB PRIMARY KEY holding the packed 32-byte
// Key. It gives the store a second concrete "same observable semantics,
// different persistence" backend alongside BadgerStore (§D.2), backed by
// an embedded SQL engine rather than a log-structured KV store.
type SQLiteStore struct {
	db *sql.DB
}

var sqliteIndexTables = map[Index]string{
	IndexSPOG: "idx_spog",
	IndexPOSG: "idx_posg",
	IndexOSPG: "idx_ospg",
	IndexGSPO: "idx_gspo",
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed backend at
// path, which may be ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &rdferr.StorageError{Detail: fmt.Sprintf("opening sqlite db at %s", path), Err: err}
	}
	db.SetMaxOpenConns(1) // sqlite3 driver serializes writers; avoid pool contention on the single file

	for _, table := range sqliteIndexTables {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key BLOB PRIMARY KEY)`, table)
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, &rdferr.StorageError{Detail: "creating index table " + table, Err: err}
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(quads []Quad) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &rdferr.StorageError{Detail: "beginning insert transaction", Err: err}
	}
	for _, q := range quads {
		for _, idx := range Indexes {
			key := PackKey(idx, q.S, q.P, q.O, q.G)
			table := sqliteIndexTables[idx]
			stmt := fmt.Sprintf(`INSERT OR IGNORE INTO %s (key) VALUES (?)`, table)
			if _, err := tx.Exec(stmt, key[:]); err != nil {
				tx.Rollback()
				return &rdferr.StorageError{Detail: "inserting into " + table, Err: err}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return &rdferr.StorageError{Detail: "committing insert transaction", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Delete(quads []Quad) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &rdferr.StorageError{Detail: "beginning delete transaction", Err: err}
	}
	for _, q := range quads {
		for _, idx := range Indexes {
			key := PackKey(idx, q.S, q.P, q.O, q.G)
			table := sqliteIndexTables[idx]
			stmt := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, table)
			if _, err := tx.Exec(stmt, key[:]); err != nil {
				tx.Rollback()
				return &rdferr.StorageError{Detail: "deleting from " + table, Err: err}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return &rdferr.StorageError{Detail: "committing delete transaction", Err: err}
	}
	return nil
}

// Apply deletes and then inserts within a single transaction, the same
// atomicity Insert/Delete each get individually, so a reader never sees
// the deletes committed without the inserts.
func (s *SQLiteStore) Apply(deletes, inserts []Quad) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &rdferr.StorageError{Detail: "beginning apply transaction", Err: err}
	}
	for _, q := range deletes {
		for _, idx := range Indexes {
			key := PackKey(idx, q.S, q.P, q.O, q.G)
			table := sqliteIndexTables[idx]
			stmt := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, table)
			if _, err := tx.Exec(stmt, key[:]); err != nil {
				tx.Rollback()
				return &rdferr.StorageError{Detail: "deleting from " + table, Err: err}
			}
		}
	}
	for _, q := range inserts {
		for _, idx := range Indexes {
			key := PackKey(idx, q.S, q.P, q.O, q.G)
			table := sqliteIndexTables[idx]
			stmt := fmt.Sprintf(`INSERT OR IGNORE INTO %s (key) VALUES (?)`, table)
			if _, err := tx.Exec(stmt, key[:]); err != nil {
				tx.Rollback()
				return &rdferr.StorageError{Detail: "inserting into " + table, Err: err}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return &rdferr.StorageError{Detail: "committing apply transaction", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Scan(index Index, lowerBound, upperBound Key, hasUpper bool) (Cursor, error) {
	table := sqliteIndexTables[index]
	var rows *sql.Rows
	var err error
	if hasUpper {
		rows, err = s.db.Query(fmt.Sprintf(`SELECT key FROM %s WHERE key >= ? AND key < ? ORDER BY key`, table), lowerBound[:], upperBound[:])
	} else {
		rows, err = s.db.Query(fmt.Sprintf(`SELECT key FROM %s WHERE key >= ? ORDER BY key`, table), lowerBound[:])
	}
	if err != nil {
		return nil, &rdferr.StorageError{Detail: "scanning " + table, Err: err}
	}
	return &sqliteCursor{rows: rows}, nil
}

func (s *SQLiteStore) Count(index Index) (uint64, error) {
	table := sqliteIndexTables[index]
	var count uint64
	row := s.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table))
	if err := row.Scan(&count); err != nil {
		return 0, &rdferr.StorageError{Detail: "counting " + table, Err: err}
	}
	return count, nil
}

func (s *SQLiteStore) NamedGraphs(defaultGraphID uint64) ([]uint64, error) {
	table := sqliteIndexTables[IndexGSPO]
	rows, err := s.db.Query(fmt.Sprintf(`SELECT key FROM %s`, table))
	if err != nil {
		return nil, &rdferr.StorageError{Detail: "listing named graphs", Err: err}
	}
	defer rows.Close()

	seen := make(map[uint64]struct{})
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, &rdferr.StorageError{Detail: "reading graph key", Err: err}
		}
		var k Key
		copy(k[:], raw)
		g, _, _, _ := k.Unpack(IndexGSPO)
		if g != defaultGraphID {
			seen[g] = struct{}{}
		}
	}
	out := make([]uint64, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	return out, nil
}

// Flush is a no-op: every Insert/Delete already commits its own
// transaction, and sqlite's default journal mode fsyncs on commit.
func (s *SQLiteStore) Flush() error { return nil }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteCursor struct {
	rows    *sql.Rows
	current Key
}

func (c *sqliteCursor) Next() bool {
	if !c.rows.Next() {
		return false
	}
	var raw []byte
	if err := c.rows.Scan(&raw); err != nil {
		return false
	}
	copy(c.current[:], raw)
	return true
}

func (c *sqliteCursor) Key() Key { return c.current }

func (c *sqliteCursor) Close() error { return c.rows.Close() }
