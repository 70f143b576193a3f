// Package memorydb implements an in-process kv.Store backed by a map,
// used by the trie tests (cmd/pmtctl always opens kv/leveldb).
package memorydb

import (
	"sync"

	"github.com/go-pmt/pmt/kv"
)

// ErrNotFound is not returned by Get; a missing key simply yields a nil
// value and a nil error, matching kv.Store's contract.

// Database is an ephemeral, map-backed kv.Store.
type Database struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty in-memory store.
func New() *Database {
	return &Database{data: make(map[string][]byte)}
}

func (db *Database) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.data[string(key)]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (db *Database) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	db.data[string(key)] = cp
	return nil
}

func (db *Database) NewBatch() kv.Batch {
	return &batch{db: db}
}

type keyValue struct {
	key   []byte
	value []byte
}

// batch buffers writes until Write copies them into the host map
// under a single lock acquisition, which is as close to atomic as a
// plain map can offer.
type batch struct {
	db   *Database
	ops  []keyValue
	size int
}

func (b *batch) Put(key, value []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	b.ops = append(b.ops, keyValue{k, v})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) ValueSize() int {
	return b.size
}

func (b *batch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		b.db.data[string(op.key)] = op.value
	}
	return nil
}

func (b *batch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}
