package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// node is the tagged sum of spec.md §3: Null (the nil interface
// value), shortNode, fullNode, hashNode, valueNode. This ports
// jaiminpan-mt-trie/trie/trie_node.go's shape, with nodeFlag extended
// by a gen field so the Hasher can evict stale cached hashes (spec.md
// §3/§4.4 — the teacher's flags only carry hash/dirty).
type node interface {
	cache() (hashNode, bool)
	encode(w rlp.EncoderBuffer)
	fstring(string) string
}

var indices = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "a", "b", "c", "d", "e", "f", "[16]"}

// fullNode is a 17-slot branch: 16 nibble-indexed children plus a
// value slot at index 16 (spec.md §3, invariant 3).
type fullNode struct {
	Children [17]node
	flags    nodeFlag
}

// shortNode is a path-compression node: a leaf when Val is a
// valueNode, an extension otherwise (spec.md §3).
type shortNode struct {
	Key   []byte
	Val   node
	flags nodeFlag
}

// hashNode is an in-memory placeholder for a subtree known only by
// its digest.
type hashNode []byte

// valueNode is an opaque user value, always a terminal child of a
// leaf shortNode or of fullNode.Children[16].
type valueNode []byte

// nodeFlag carries caching metadata about a shortNode/fullNode
// (spec.md §3 "Flags").
type nodeFlag struct {
	hash  hashNode // cached digest of the node, nil if not yet known
	gen   uint16   // hasher generation in which hash was computed
	dirty bool     // true if the node has mutated since it was last hashed
}

func (n *fullNode) copy() *fullNode   { cp := *n; return &cp }
func (n *shortNode) copy() *shortNode { cp := *n; return &cp }

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.hash, n.flags.dirty }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.hash, n.flags.dirty }
func (n hashNode) cache() (hashNode, bool)   { return nil, true }
func (n valueNode) cache() (hashNode, bool)  { return nil, true }

func (n *fullNode) String() string  { return n.fstring("") }
func (n *shortNode) String() string { return n.fstring("") }
func (n hashNode) String() string   { return n.fstring("") }
func (n valueNode) String() string  { return n.fstring("") }

func (n *fullNode) fstring(ind string) string {
	resp := fmt.Sprintf("[\n%s  ", ind)
	for i, child := range &n.Children {
		if child == nil {
			resp += fmt.Sprintf("%s: <nil> ", indices[i])
		} else {
			resp += fmt.Sprintf("%s: %v", indices[i], child.fstring(ind+"  "))
		}
	}
	return resp + fmt.Sprintf("\n%s] ", ind)
}

func (n *shortNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %v} ", n.Key, n.Val.fstring(ind+"  "))
}

func (n hashNode) fstring(string) string  { return fmt.Sprintf("<%x> ", []byte(n)) }
func (n valueNode) fstring(string) string { return fmt.Sprintf("%x ", []byte(n)) }

// isLeaf reports whether n is a shortNode whose child is a valueNode
// (spec.md §4.2).
func isLeaf(n node) bool {
	sn, ok := n.(*shortNode)
	if !ok {
		return false
	}
	_, ok = sn.Val.(valueNode)
	return ok
}
