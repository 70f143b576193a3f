package trie

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/go-pmt/pmt/kv"
)

// defaultCleanCacheSize bounds the decoded-node read cache; it has no
// bearing on hash correctness, only on how often resolve() has to go
// back to the store.
const defaultCleanCacheSize = 4096

// database resolves node hashes against a kv.Store, fronted by a
// bounded LRU of already-decoded nodes. This ports the read half of
// jaiminpan-mt-trie/trie/trie_db.go's node()/nodeBlob(); the rest of
// that file (reference-counted dirty cache, flush-list, cleaner,
// multi-owner NodeSet) is not ported — see DESIGN.md "Dropped teacher
// code" for why: spec.md names no GC/multi-trie-sharing concern for it
// to protect.
type database struct {
	store kv.Store
	clean *lru.Cache // digest (string) -> node
}

func newDatabase(store kv.Store) *database {
	var clean *lru.Cache
	if store != nil {
		clean, _ = lru.New(defaultCleanCacheSize)
	}
	return &database{store: store, clean: clean}
}

// node resolves hash to a decoded node, consulting the clean cache
// before the store.
func (db *database) node(hash []byte) (node, error) {
	key := string(hash)
	if db.clean != nil {
		if v, ok := db.clean.Get(key); ok {
			return v.(node), nil
		}
	}
	blob, err := db.nodeBlob(hash)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}
	n, err := decodeNode(hash, blob)
	if err != nil {
		return nil, &InvalidNodeError{Hash: hash, Err: err}
	}
	if db.clean != nil {
		db.clean.Add(key, n)
	}
	return n, nil
}

// nodeBlob fetches the raw encoding for hash directly from the store,
// bypassing the decoded-node cache.
func (db *database) nodeBlob(hash []byte) ([]byte, error) {
	if db.store == nil {
		return nil, nil
	}
	return db.store.Get(hash)
}

// stateRoot reads the last committed root digest from kv.StateKey, or
// nil if the store has never been committed to.
func (db *database) stateRoot() ([]byte, error) {
	if db.store == nil {
		return nil, nil
	}
	return db.store.Get(kv.StateKey)
}
