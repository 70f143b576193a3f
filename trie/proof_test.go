package trie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pmt/pmt/kv/memorydb"
)

func commitTrie(t *testing.T, tr *Trie, store *memorydb.Database) []byte {
	t.Helper()
	batch := store.NewBatch()
	root, err := tr.Commit(batch)
	require.NoError(t, err)
	require.NoError(t, batch.Write())
	return root
}

func TestProveAndVerifyMembership(t *testing.T) {
	store := memorydb.New()
	tr, err := New(store)
	require.NoError(t, err)

	keys := map[string]string{
		"doe":    "reindeer",
		"dog":    "puppy",
		"dogglesworth": "cat",
	}
	for k, v := range keys {
		require.NoError(t, tr.Insert([]byte(k), []byte(v)))
	}
	root := commitTrie(t, tr, store)

	for k, v := range keys {
		proof, err := tr.Prove([]byte(k))
		require.NoError(t, err)
		require.NotEmpty(t, proof)

		value, err := VerifyProof(KeccakHasher{}, root, []byte(k), proof)
		require.NoError(t, err)
		require.Equal(t, []byte(v), value)
	}
}

func TestProveAndVerifyAbsence(t *testing.T) {
	store := memorydb.New()
	tr, err := New(store)
	require.NoError(t, err)

	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	root := commitTrie(t, tr, store)

	proof, err := tr.Prove([]byte("cat"))
	require.NoError(t, err)

	value, err := VerifyProof(KeccakHasher{}, root, []byte("cat"), proof)
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestProveEmptyTrie(t *testing.T) {
	store := memorydb.New()
	tr, err := New(store)
	require.NoError(t, err)

	root := tr.RootHash()
	proof, err := tr.Prove([]byte("anything"))
	require.NoError(t, err)
	require.Nil(t, proof)

	value, err := VerifyProof(KeccakHasher{}, root, []byte("anything"), proof)
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestVerifyProofRejectsTamperedNode(t *testing.T) {
	store := memorydb.New()
	tr, err := New(store)
	require.NoError(t, err)

	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	root := commitTrie(t, tr, store)

	proof, err := tr.Prove([]byte("dog"))
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	tampered := make([][]byte, len(proof))
	copy(tampered, proof)
	tampered[len(tampered)-1] = append(append([]byte(nil), tampered[len(tampered)-1]...), 0xff)

	_, err = VerifyProof(KeccakHasher{}, root, []byte("dog"), tampered)
	require.Error(t, err)
	var proofErr *ProofError
	require.ErrorAs(t, err, &proofErr)
}
