// Package testutil provides randomized key/value generators shared by
// the trie package's property tests (spec.md §8). It has no teacher
// counterpart — jaiminpan-mt-trie tests entirely with hand-picked
// literals — but keeps the same flavor of fixed-length hex-ish keys
// its TestUpdate uses, just generated instead of hardcoded.
package testutil

import "math/rand"

// RandomKV generates n distinct (key, value) pairs of the given
// lengths using rng.
func RandomKV(rng *rand.Rand, n, keyLen, valLen int) (keys, values [][]byte) {
	seen := make(map[string]bool, n)
	for len(keys) < n {
		k := make([]byte, keyLen)
		rng.Read(k)
		if seen[string(k)] {
			continue
		}
		seen[string(k)] = true

		v := make([]byte, valLen)
		rng.Read(v)

		keys = append(keys, k)
		values = append(values, v)
	}
	return keys, values
}

// Permutation returns a random permutation of [0, n).
func Permutation(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx
}
