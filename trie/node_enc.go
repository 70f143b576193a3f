package trie

import "github.com/ethereum/go-ethereum/rlp"

// nodeToBytes encodes n into the canonical wire form described by
// spec.md §4.3: a recursive list of byte strings / nested lists.
// This is the encode half of the codec's "Codec" component; the
// teacher (jaiminpan-mt-trie) ships only the decode half
// (trie_node_dec.go) — this file mirrors it using the real
// github.com/ethereum/go-ethereum/rlp primitive (spec.md §1 treats the
// underlying list/byte-string primitive as an external collaborator).
func nodeToBytes(n node) []byte {
	w := rlp.NewEncoderBuffer(nil)
	n.encode(w)
	result := w.ToBytes()
	w.Flush()
	return result
}

func (n *fullNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	for _, c := range n.Children {
		if c != nil {
			c.encode(w)
		} else {
			w.Write(rlp.EmptyString)
		}
	}
	w.ListEnd(offset)
}

func (n *shortNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	w.WriteBytes(n.Key)
	if n.Val != nil {
		n.Val.encode(w)
	} else {
		w.Write(rlp.EmptyString)
	}
	w.ListEnd(offset)
}

func (n hashNode) encode(w rlp.EncoderBuffer) {
	w.WriteBytes(n)
}

func (n valueNode) encode(w rlp.EncoderBuffer) {
	w.WriteBytes(n)
}
