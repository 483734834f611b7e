// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package database is a JSON document store on top of BadgerDB.
//
// Documents live under "doc/<collection>/<id>" and secondary unique indexes
// under "idx/<collection>/<field>/<value>". All reads and writes go through
// View and Update so that a guard check and the write it protects share one
// serializable transaction:
//
//	err := store.Update(ctx, func(tx *database.Tx) error {
//	    var u models.User
//	    if err := tx.Get(database.Users, id, &u); err != nil {
//	        return err
//	    }
//	    u.Roles.Archived = true
//	    return tx.Put(database.Users, id, &u)
//	})
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/squadapi/internal/config"
	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
)

const (
	docPrefix = "doc/"
	idxPrefix = "idx/"

	maxUpdateAttempts = 3
)

var (
	// ErrNotFound is returned when a document or index entry does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrIndexTaken is returned by SetIndex when the value belongs to another document.
	ErrIndexTaken = errors.New("index value already taken")

	// ErrStopScan ends a Scan early without reporting an error.
	ErrStopScan = errors.New("stop scan")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("store closed")
)

// Store is the document store handle. It is safe for concurrent use.
type Store struct {
	db       *badger.DB
	inMemory bool
}

// Open opens (or creates) the store described by cfg.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(filepath.Clean(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	opts.Logger = newBadgerLogger()

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Document store opened")
	return &Store{db: db, inMemory: cfg.InMemory}, nil
}

// OpenInMemory opens a throwaway in-memory store with logging suppressed.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory BadgerDB: %w", err)
	}
	return &Store{db: db, inMemory: true}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the store can serve a read transaction.
func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return s.View(ctx, func(*Tx) error { return nil })
}

// CollectGarbage runs one value log GC pass. It returns nil when there was
// nothing to rewrite.
func (s *Store) CollectGarbage(discardRatio float64) error {
	if s.inMemory {
		return nil
	}
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn, ctx: ctx})
	})
	metrics.RecordTxn("view", time.Since(start), err)
	return closedErr(err)
}

// Update runs fn in a read-write transaction and commits it when fn returns
// nil. A commit that loses a write conflict re-runs fn, up to three attempts
// in total, so fn must not have side effects outside tx.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(&Tx{txn: txn, ctx: ctx})
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxUpdateAttempts {
			metrics.DBTxnConflicts.Inc()
			logging.Ctx(ctx).Debug().Int("attempt", attempt).Msg("Write conflict, retrying transaction")
			continue
		}
		metrics.RecordTxn("update", time.Since(start), err)
		return closedErr(err)
	}
}

// closedErr maps badger's closed-database error onto ErrClosed.
func closedErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// NewID returns a fresh document ID.
func NewID() string {
	return uuid.NewString()
}

// Tx is a transaction handle passed to View and Update callbacks. It must not
// be used after the callback returns.
type Tx struct {
	txn *badger.Txn
	ctx context.Context
}

// Context returns the context the transaction was started with.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

func docKey(coll, id string) []byte {
	return []byte(docPrefix + coll + "/" + id)
}

func indexKey(coll, field, value string) []byte {
	return []byte(idxPrefix + coll + "/" + field + "/" + value)
}

// Get decodes the document coll/id into v.
func (tx *Tx) Get(coll, id string, v interface{}) error {
	item, err := tx.txn.Get(docKey(coll, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", coll, id, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// Exists reports whether coll/id is present.
func (tx *Tx) Exists(coll, id string) (bool, error) {
	_, err := tx.txn.Get(docKey(coll, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", coll, id, err)
	}
	return true, nil
}

// Put encodes v as JSON and stores it as coll/id, replacing any prior version.
func (tx *Tx) Put(coll, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", coll, id, err)
	}
	if err := tx.txn.Set(docKey(coll, id), data); err != nil {
		return fmt.Errorf("set %s/%s: %w", coll, id, err)
	}
	return nil
}

// Delete removes coll/id. Deleting a missing document returns ErrNotFound.
func (tx *Tx) Delete(coll, id string) error {
	ok, err := tx.Exists(coll, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return tx.txn.Delete(docKey(coll, id))
}

// Scan calls fn for every document in coll in key order. data is only valid
// for the duration of the call. Returning ErrStopScan ends the scan cleanly.
// Scans must not nest inside an Update transaction.
func (tx *Tx) Scan(coll string, fn func(id string, data []byte) error) error {
	prefix := []byte(docPrefix + coll + "/")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		id := string(item.Key()[len(prefix):])
		err := item.Value(func(val []byte) error {
			return fn(id, val)
		})
		if errors.Is(err, ErrStopScan) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SetIndex claims value of field for document id. Re-claiming a value the
// document already owns is a no-op.
func (tx *Tx) SetIndex(coll, field, value, id string) error {
	owner, err := tx.LookupIndex(coll, field, value)
	switch {
	case err == nil && owner != id:
		return ErrIndexTaken
	case err == nil:
		return nil
	case !errors.Is(err, ErrNotFound):
		return err
	}
	return tx.txn.Set(indexKey(coll, field, value), []byte(id))
}

// LookupIndex returns the document ID that owns value of field.
func (tx *Tx) LookupIndex(coll, field, value string) (string, error) {
	item, err := tx.txn.Get(indexKey(coll, field, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get index %s.%s: %w", coll, field, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// DeleteIndex releases value of field. Missing entries are ignored.
func (tx *Tx) DeleteIndex(coll, field, value string) error {
	err := tx.txn.Delete(indexKey(coll, field, value))
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Get loads coll/id as a T.
func Get[T any](tx *Tx, coll, id string) (*T, error) {
	var v T
	if err := tx.Get(coll, id, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// List decodes every document in coll and keeps those for which match
// returns true. A nil match keeps everything.
func List[T any](tx *Tx, coll string, match func(*T) bool) ([]T, error) {
	var out []T
	err := tx.Scan(coll, func(id string, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode %s/%s: %w", coll, id, err)
		}
		if match == nil || match(&v) {
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// First returns the first document in coll for which match returns true.
func First[T any](tx *Tx, coll string, match func(*T) bool) (*T, error) {
	var found *T
	err := tx.Scan(coll, func(id string, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode %s/%s: %w", coll, id, err)
		}
		if match(&v) {
			found = &v
			return ErrStopScan
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// Page returns the window [offset, offset+limit) of items. A non-positive
// limit returns everything from offset.
func Page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
