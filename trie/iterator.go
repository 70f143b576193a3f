package trie

// fullNodeOrder lists fullNode.Children indices in ascending-key
// order. The terminator slot (16, a key ending exactly at this
// branch) sorts before every nibble-indexed child (each a strictly
// longer key), since a prefix sorts before its extensions.
var fullNodeOrder = [17]int{16, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

// Iterator walks every live leaf of a trie in ascending key order
// (spec.md §4.7). The zero value is not usable; construct with
// NewIterator.
//
// This is a fresh addition: jaiminpan-mt-trie ships no iterator at
// all. It is grounded on the same resolve/hashNode vocabulary trie.go
// and proof.go already use, with an explicit stack standing in for
// the teacher's absent equivalent (a plain recursive walk would work
// just as well, but an explicit stack lets Next do one leaf per call
// without recursion depth tied to key length).
type Iterator struct {
	db    *database
	key   []byte // current leaf's byte key, valid after a true Next()
	val   []byte // current leaf's value
	err   error
	stack []iteratorState
}

type iteratorState struct {
	node   node
	prefix []byte // hex nibble path from the root to node, not including node's own shortNode.Key
	child  int    // next position in fullNodeOrder to try (0-17), -1 for an unvisited node
}

// NewIterator builds an iterator over the trie rooted at root
// (typically t.root); a hashNode root is resolved by the first Next.
func NewIterator(db *database, root node) *Iterator {
	it := &Iterator{db: db}
	if root != nil {
		it.stack = append(it.stack, iteratorState{node: root, child: -1})
	}
	return it
}

// Err returns the first error encountered during iteration, typically
// a *MissingNodeError if the store is missing a node on the frontier.
func (it *Iterator) Err() error { return it.err }

// Key returns the byte-string key of the current leaf.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the value of the current leaf.
func (it *Iterator) Value() []byte { return it.val }

// Next advances to the next leaf in ascending key order, returning
// false when iteration is exhausted or it.Err() becomes non-nil.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		switch n := top.node.(type) {
		case hashNode:
			resolved, err := it.db.node(n)
			if err != nil {
				it.err = err
				return false
			}
			if resolved == nil {
				// The path may end mid-byte; Key carries its whole bytes.
				it.err = &MissingNodeError{NodeHash: []byte(n), Key: hexToKeybytes(top.prefix[:len(top.prefix)&^1]), Pos: len(top.prefix)}
				return false
			}
			top.node = resolved

		case valueNode:
			it.key = hexToKeybytes(top.prefix)
			it.val = []byte(n)
			it.stack = it.stack[:len(it.stack)-1]
			return true

		case *shortNode:
			if top.child == -1 {
				top.child = 0
				it.stack = append(it.stack, iteratorState{
					node:   n.Val,
					prefix: prefixConcat(top.prefix, n.Key...),
					child:  -1,
				})
				continue
			}
			it.stack = it.stack[:len(it.stack)-1]

		case *fullNode:
			start := top.child
			if start < 0 {
				start = 0
			}
			advanced := false
			for i := start; i < len(fullNodeOrder); i++ {
				idx := fullNodeOrder[i]
				if n.Children[idx] != nil {
					top.child = i + 1
					it.stack = append(it.stack, iteratorState{
						node:   n.Children[idx],
						prefix: prefixConcat(top.prefix, byte(idx)),
						child:  -1,
					})
					advanced = true
					break
				}
			}
			if !advanced {
				it.stack = it.stack[:len(it.stack)-1]
			}

		case nil:
			it.stack = it.stack[:len(it.stack)-1]

		default:
			panic("trie: invalid node type in Iterator")
		}
	}
	it.key, it.val = nil, nil
	return false
}
