// Package leveldb wraps github.com/syndtr/goleveldb as an on-disk
// kv.Store backend for the trie, for callers (cmd/pmtctl) that need
// state to outlive a process.
package leveldb

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/go-pmt/pmt/kv"
)

// Database is a kv.Store backed by a goleveldb instance on disk.
type Database struct {
	path string
	db   *leveldb.DB
}

// Open opens (creating if necessary) a leveldb database at path.
func Open(path string) (*Database, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb at %q", path)
	}
	log.Info("opened leveldb store", "path", path)
	return &Database{path: path, db: db}, nil
}

// Close releases the underlying file handles.
func (d *Database) Close() error {
	log.Info("closing leveldb store", "path", d.path)
	return d.db.Close()
}

func (d *Database) Has(key []byte) (bool, error) {
	ok, err := d.db.Has(key, nil)
	if err != nil {
		return false, errors.Wrap(err, "leveldb has")
	}
	return ok, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	v, err := d.db.Get(key, nil)
	if err != nil {
		if err == ldberrors.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "leveldb get")
	}
	return v, nil
}

func (d *Database) NewBatch() kv.Batch {
	return &batch{db: d.db, b: new(leveldb.Batch)}
}

type batch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) ValueSize() int {
	return b.size
}

func (b *batch) Write() error {
	return errors.Wrap(b.db.Write(b.b, nil), "leveldb batch write")
}

func (b *batch) Reset() {
	b.b.Reset()
	b.size = 0
}
