package trie

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pmt/pmt/kv/memorydb"
	"github.com/go-pmt/pmt/trie/testutil"
)

// TestPropertyMapSemantics exercises spec.md §8 property 1: an
// in-memory (uncommitted) trie behaves like an ordinary key->value map
// under insert/overwrite/delete.
func TestPropertyMapSemantics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	keys, values := testutil.RandomKV(rng, 200, 20, 32)

	tr, err := New(memorydb.New())
	require.NoError(t, err)

	model := make(map[string][]byte, len(keys))
	for i, k := range keys {
		require.NoError(t, tr.Insert(k, values[i]))
		model[string(k)] = values[i]
	}

	for k, want := range model {
		got, err := tr.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	// Overwrite half the keys.
	for i := 0; i < len(keys)/2; i++ {
		newVal := append(append([]byte(nil), values[i]...), 0xff)
		require.NoError(t, tr.Insert(keys[i], newVal))
		model[string(keys[i])] = newVal
	}
	for k, want := range model {
		got, err := tr.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	// Delete the other half.
	for i := len(keys) / 2; i < len(keys); i++ {
		require.NoError(t, tr.Delete(keys[i]))
		delete(model, string(keys[i]))
	}
	for i := len(keys) / 2; i < len(keys); i++ {
		got, err := tr.Get(keys[i])
		require.NoError(t, err)
		require.Nil(t, got)
	}
	for k, want := range model {
		got, err := tr.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// TestPropertyCanonicalShape exercises spec.md §8 property 2: the tree
// never contains an illegal configuration — no shortNode directly
// wraps another shortNode, and no fullNode has exactly one non-nil
// entry.
func TestPropertyCanonicalShape(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	keys, values := testutil.RandomKV(rng, 300, 16, 24)

	tr, err := New(memorydb.New())
	require.NoError(t, err)
	for i, k := range keys {
		require.NoError(t, tr.Insert(k, values[i]))
	}
	// Delete a random third so collapsing logic actually runs.
	for _, i := range testutil.Permutation(rng, len(keys))[:len(keys)/3] {
		require.NoError(t, tr.Delete(keys[i]))
	}

	checkCanonicalShape(t, tr.root)
}

func checkCanonicalShape(t *testing.T, n node) {
	t.Helper()
	switch n := n.(type) {
	case *shortNode:
		if cn, ok := n.Val.(*shortNode); ok {
			t.Fatalf("shortNode directly wraps another shortNode: %v -> %v", n.Key, cn.Key)
		}
		checkCanonicalShape(t, n.Val)
	case *fullNode:
		count := 0
		for _, c := range &n.Children {
			if c != nil {
				count++
			}
		}
		if count < 2 {
			t.Fatalf("fullNode has fewer than 2 children: %d", count)
		}
		for _, c := range &n.Children {
			checkCanonicalShape(t, c)
		}
	}
}

// TestPropertyRoundTripsThroughStore exercises spec.md §8 property 5:
// committing and reopening a trie from its root digest reproduces
// exactly the same key/value contents.
func TestPropertyRoundTripsThroughStore(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	keys, values := testutil.RandomKV(rng, 150, 12, 40)

	store := memorydb.New()
	tr, err := New(store)
	require.NoError(t, err)
	for i, k := range keys {
		require.NoError(t, tr.Insert(k, values[i]))
	}

	batch := store.NewBatch()
	root, err := tr.Commit(batch)
	require.NoError(t, err)
	require.NoError(t, batch.Write())

	reopened, err := Open(store, root)
	require.NoError(t, err)
	for i, k := range keys {
		got, err := reopened.Get(k)
		require.NoError(t, err)
		require.Equal(t, values[i], got)
	}
}

// TestPropertyRootIndependentOfInsertionOrder exercises spec.md §8
// property 3 with randomized data rather than a handful of literals.
func TestPropertyRootIndependentOfInsertionOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	keys, values := testutil.RandomKV(rng, 100, 8, 16)

	tr1, err := New(memorydb.New())
	require.NoError(t, err)
	for i, k := range keys {
		require.NoError(t, tr1.Insert(k, values[i]))
	}

	tr2, err := New(memorydb.New())
	require.NoError(t, err)
	for _, i := range testutil.Permutation(rng, len(keys)) {
		require.NoError(t, tr2.Insert(keys[i], values[i]))
	}

	require.Equal(t, tr1.RootHash(), tr2.RootHash())
}
