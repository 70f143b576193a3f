package trie

import "bytes"

// Prove walks from root to key, collecting the canonical encoding of
// every node addressed by hash along the path, outermost first
// (spec.md §4.6 "prove(root, key)"). Nodes embedded inline in a
// parent's encoding are not given their own proof entry: decoding the
// parent already reconstructs them, so VerifyProof never needs to look
// one up separately.
//
// Proving carries forward the exact bytes read from the store rather
// than re-encoding the decoded node: a decoded shortNode holds its key
// hex-expanded (trie/node_dec.go's compactToHex), so handing it back
// through nodeToBytes would pack the key again and produce a different
// byte string than the one actually hashed into the committed digest.
// Only the raw blob is guaranteed to re-hash to that digest, so that is
// what each proof entry must be.
func Prove(db *database, root []byte, key []byte) ([][]byte, error) {
	if bytes.Equal(root, emptyRoot[:]) {
		return nil, nil // every key is provably absent from the empty trie
	}
	blob, err := db.nodeBlob(root)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, &MissingNodeError{RootHash: root, NodeHash: root, Pos: -1}
	}
	n, err := decodeNode(root, blob)
	if err != nil {
		return nil, &InvalidNodeError{Hash: root, Err: err}
	}
	proof := [][]byte{blob}
	hex := keybytesToHex(key)
	pos := 0
	for {
		var next node
		switch cur := n.(type) {
		case valueNode:
			return proof, nil
		case *shortNode:
			if len(hex)-pos < len(cur.Key) || !bytes.Equal(cur.Key, hex[pos:pos+len(cur.Key)]) {
				return proof, nil // diverges: proof attests to key's absence
			}
			pos += len(cur.Key)
			next = cur.Val
		case *fullNode:
			next = cur.Children[hex[pos]]
			pos++
		default:
			panic("trie: invalid node type in Prove")
		}
		if next == nil {
			return proof, nil
		}
		if hn, ok := next.(hashNode); ok {
			childBlob, err := db.nodeBlob(hn)
			if err != nil {
				return nil, err
			}
			if childBlob == nil {
				return nil, &MissingNodeError{RootHash: root, NodeHash: []byte(hn), Key: key, Pos: pos}
			}
			resolved, err := decodeNode(hn, childBlob)
			if err != nil {
				return nil, &InvalidNodeError{Hash: []byte(hn), Err: err}
			}
			proof = append(proof, childBlob)
			next = resolved
		}
		n = next
	}
}

// VerifyProof checks that proof is a valid chain of node encodings
// from rootDigest down to key, re-deriving each by-hash node's digest
// with hasher (spec.md §4.6 "verify_proof(hash_fn, root_digest, key,
// proof)"). It returns the value at key, or (nil, nil) if the proof
// instead demonstrates key's absence. A malformed or non-matching
// proof returns a *ProofError rather than panicking (spec.md §7).
func VerifyProof(hasher Hasher, rootDigest []byte, key []byte, proof [][]byte) ([]byte, error) {
	if bytes.Equal(rootDigest, emptyRoot[:]) {
		return nil, nil
	}
	lookup := make(map[string][]byte, len(proof))
	for _, enc := range proof {
		lookup[string(hasher.Digest(enc))] = enc
	}
	hex := keybytesToHex(key)
	wantHash := rootDigest
	pos := 0
	for {
		enc, ok := lookup[string(wantHash)]
		if !ok {
			return nil, &ProofError{Reason: "proof has no node matching the expected digest"}
		}
		n, err := decodeNode(nil, enc)
		if err != nil {
			return nil, &ProofError{Reason: "malformed node encoding: " + err.Error()}
		}
		value, nextHash, nextPos, done := walkEmbedded(n, hex, pos)
		if done {
			return value, nil
		}
		wantHash, pos = nextHash, nextPos
	}
}

// walkEmbedded descends through a decoded node and any already-inlined
// (embedded) descendants until it either settles the lookup (done=true,
// with value set for a hit and left nil for a proven miss) or reaches a
// hashNode child that must be looked up as a separate proof entry.
func walkEmbedded(n node, hex []byte, pos int) (value []byte, nextHash []byte, nextPos int, done bool) {
	for {
		switch cur := n.(type) {
		case nil:
			return nil, nil, 0, true
		case valueNode:
			return []byte(cur), nil, 0, true
		case *shortNode:
			if len(hex)-pos < len(cur.Key) || !bytes.Equal(cur.Key, hex[pos:pos+len(cur.Key)]) {
				return nil, nil, 0, true
			}
			pos += len(cur.Key)
			n = cur.Val
		case *fullNode:
			n = cur.Children[hex[pos]]
			pos++
		case hashNode:
			return nil, []byte(cur), pos, false
		default:
			return nil, nil, 0, true
		}
	}
}
