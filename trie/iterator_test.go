package trie

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pmt/pmt/kv/memorydb"
)

func TestIteratorVisitsEveryLeafInOrder(t *testing.T) {
	tr, err := New(memorydb.New())
	require.NoError(t, err)

	want := map[string]string{
		"dog":          "puppy",
		"doge":         "coin",
		"horse":        "stallion",
		"doe":          "reindeer",
		"dogglesworth": "cat",
	}
	for k, v := range want {
		require.NoError(t, tr.Insert([]byte(k), []byte(v)))
	}

	var keys []string
	it := tr.Iterator()
	for it.Next() {
		k := string(it.Key())
		keys = append(keys, k)
		require.Equal(t, want[k], string(it.Value()))
		delete(want, k)
	}
	require.NoError(t, it.Err())
	require.Empty(t, want, "every key must be visited exactly once")
	require.True(t, sort.StringsAreSorted(keys), "keys must be visited in ascending order: %v", keys)
}

func TestIteratorEmptyTrie(t *testing.T) {
	tr, err := New(memorydb.New())
	require.NoError(t, err)

	it := tr.Iterator()
	require.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestIteratorOverResolvedHashes(t *testing.T) {
	store := memorydb.New()
	tr, err := New(store)
	require.NoError(t, err)

	keys := []string{"aaaa", "aaab", "aaac", "bbbb", "cccc"}
	for i, k := range keys {
		require.NoError(t, tr.Insert([]byte(k), []byte{byte(i)}))
	}
	root := commitTrie(t, tr, store)

	reopened, err := Open(store, root)
	require.NoError(t, err)

	var got []string
	it := reopened.Iterator()
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	require.NoError(t, it.Err())

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	require.Equal(t, sorted, got)
}

func TestIteratorOneKeyPrefixOfAnother(t *testing.T) {
	tr, err := New(memorydb.New())
	require.NoError(t, err)

	require.NoError(t, tr.Insert([]byte("a"), []byte("short")))
	require.NoError(t, tr.Insert([]byte("aa"), []byte("long")))

	it := tr.Iterator()
	require.True(t, it.Next())
	require.Equal(t, "a", string(it.Key()))
	require.True(t, it.Next())
	require.Equal(t, "aa", string(it.Key()))
	require.False(t, it.Next())
}
