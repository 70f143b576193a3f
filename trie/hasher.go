package trie

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/go-pmt/pmt/kv"
)

// Hasher is the Hash collaborator of spec.md §6: a deterministic,
// collision-resistant digest function. The teacher's trie.go calls
// newHasher()/returnHasherToPool(h) around a bare h.hash(...) call
// without naming the hash function it wraps; this interface makes that
// implicit pluggability explicit (SPEC_FULL.md §3).
type Hasher interface {
	// Size is the digest width in bytes (the "hash-width" spec.md
	// repeatedly refers to when deciding inline-vs-hash).
	Size() int
	// Digest returns the digest of data.
	Digest(data []byte) []byte
}

// KeccakHasher is the default Hasher, Keccak-256 over
// golang.org/x/crypto/sha3 — the same dependency the teacher's go.mod
// already requires.
type KeccakHasher struct{}

func (KeccakHasher) Size() int { return 32 }

func (KeccakHasher) Digest(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// emptyRoot is hash(encode(Null)): Keccak-256 of the RLP encoding of
// the empty list, the canonical root of an empty trie (spec.md §6,
// §8 S1). Identical to the teacher's own emptyRoot constant.
var emptyRoot = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// hasher implements the recursive post-order walk of spec.md §4.4.
// A fresh hasher is pulled from hasherPool per root-hash/commit call;
// it is not safe for concurrent or repeated use across trie instances.
type hasher struct {
	sha        Hasher
	cachegen   uint16
	cacheLimit uint16
	batch      kv.Batch // nil means "don't persist, just compute digests"
}

var hasherPool = sync.Pool{
	New: func() interface{} { return &hasher{} },
}

func newHasher(sha Hasher, cachegen, cacheLimit uint16, batch kv.Batch) *hasher {
	h := hasherPool.Get().(*hasher)
	h.sha, h.cachegen, h.cacheLimit, h.batch = sha, cachegen, cacheLimit, batch
	return h
}

func returnHasherToPool(h *hasher) {
	h.batch = nil
	hasherPool.Put(h)
}

// hash is the single shared hashing routine referenced by both the
// engine's commit/root-hash path and the proof subsystem (spec.md's
// Design Notes forbid a separate hashing path for proofs). force
// promotes the root to a Hash node even when its encoding would
// otherwise be small enough to inline (spec.md §4.4 step 6).
func (h *hasher) hash(n node, force bool) (hashed node, cached node) {
	if hn, dirty := n.cache(); hn != nil && !dirty {
		if gen, ok := genOf(n); ok && h.cachegen-gen > h.cacheLimit {
			n = h.evictStale(n)
		}
		return hn, n
	}
	switch n := n.(type) {
	case *shortNode:
		collapsed, cached := n.copy(), n.copy()
		collapsed.Key = hexToCompact(n.Key)
		if n.Val != nil && !isLeaf(n) {
			childHash, cachedChild := h.hash(n.Val, false)
			collapsed.Val, cached.Val = childHash, cachedChild
		}
		return h.store(collapsed, cached, force)

	case *fullNode:
		collapsed, cached := n.copy(), n.copy()
		for i := 0; i < 16; i++ {
			if n.Children[i] != nil {
				childHash, cachedChild := h.hash(n.Children[i], false)
				collapsed.Children[i], cached.Children[i] = childHash, cachedChild
			}
		}
		return h.store(collapsed, cached, force)

	default:
		// hashNode, valueNode, or Null: already terminal.
		return n, n
	}
}

// store encodes collapsed, decides inline-vs-hash (spec.md §4.4 steps
// 3-5), and on promotion writes (digest, encoding) to h.batch (if any)
// and stamps cached's flags.
func (h *hasher) store(collapsed, cached node, force bool) (node, node) {
	enc := nodeToBytes(collapsed)
	if len(enc) < h.sha.Size() && !force {
		return collapsed, cached
	}
	digest := hashNode(h.sha.Digest(enc))
	if h.batch != nil {
		if err := h.batch.Put(digest, enc); err != nil {
			// hash has no error return, so a Put error is dropped here;
			// the kv/memorydb and kv/leveldb batches never fail on Put.
			_ = err
		}
	}
	switch cn := cached.(type) {
	case *shortNode:
		cn.flags.hash, cn.flags.dirty, cn.flags.gen = digest, false, h.cachegen
	case *fullNode:
		cn.flags.hash, cn.flags.dirty, cn.flags.gen = digest, false, h.cachegen
	}
	return digest, cached
}

// evictStale discards a stale node's cached decoded children, keeping
// only their digests, so generations far in the past stop pinning
// resolved subtrees in memory (spec.md §4.4 "Cache eviction").
func (h *hasher) evictStale(n node) node {
	switch n := n.(type) {
	case *shortNode:
		if hn, ok := cachedHashOf(n.Val); ok {
			n.Val = hn
		}
		n.flags.gen = h.cachegen
	case *fullNode:
		for i := 0; i < 16; i++ {
			if hn, ok := cachedHashOf(n.Children[i]); ok {
				n.Children[i] = hn
			}
		}
		n.flags.gen = h.cachegen
	}
	return n
}

func genOf(n node) (uint16, bool) {
	switch n := n.(type) {
	case *shortNode:
		return n.flags.gen, true
	case *fullNode:
		return n.flags.gen, true
	}
	return 0, false
}

func cachedHashOf(n node) (hashNode, bool) {
	switch n := n.(type) {
	case *shortNode:
		if n.flags.hash != nil {
			return n.flags.hash, true
		}
	case *fullNode:
		if n.flags.hash != nil {
			return n.flags.hash, true
		}
	}
	return nil, false
}
