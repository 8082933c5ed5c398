package merkle

import (
	"bytes"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// The allow-list commitment is a binary merkle root over keccak256 leaves
// with sorted-pair hashing: each internal node is keccak256(min(a,b)||max(a,b)),
// so a proof is just the sibling path with no direction bits.

// Leaf hashes an item identifier into its leaf node. Identifiers are encoded
// as 32-byte big-endian words before hashing.
func Leaf(itemID *big.Int) [32]byte {
	var word [32]byte
	if itemID != nil {
		itemID.FillBytes(word[:])
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(word[:]))
	return out
}

func hashPair(a, b [32]byte) [32]byte {
	var out [32]byte
	if bytes.Compare(a[:], b[:]) <= 0 {
		copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	} else {
		copy(out[:], ethcrypto.Keccak256(b[:], a[:]))
	}
	return out
}

// Verify reports whether the proof links the leaf to the committed root.
func Verify(root [32]byte, leaf [32]byte, proof [][32]byte) bool {
	node := leaf
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}

// Tree is an in-memory sorted-pair merkle tree. It exists for building
// allow-list commitments in tests and tooling; verification on the hot path
// only needs Verify.
type Tree struct {
	levels [][][32]byte
}

// NewTree builds a tree over the supplied item identifiers. Leaves are sorted
// so the same set always produces the same root. Odd nodes are promoted to
// the next level unhashed.
func NewTree(itemIDs []*big.Int) *Tree {
	leaves := make([][32]byte, 0, len(itemIDs))
	for _, id := range itemIDs {
		leaves = append(leaves, Leaf(id))
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i][:], leaves[j][:]) < 0
	})
	levels := [][][32]byte{leaves}
	for len(levels[len(levels)-1]) > 1 {
		prev := levels[len(levels)-1]
		next := make([][32]byte, 0, (len(prev)+1)/2)
		for i := 0; i < len(prev); i += 2 {
			if i+1 < len(prev) {
				next = append(next, hashPair(prev[i], prev[i+1]))
			} else {
				next = append(next, prev[i])
			}
		}
		levels = append(levels, next)
	}
	return &Tree{levels: levels}
}

// Root returns the commitment. An empty tree commits to the zero digest.
func (t *Tree) Root() [32]byte {
	if t == nil || len(t.levels) == 0 || len(t.levels[len(t.levels)-1]) == 0 {
		return [32]byte{}
	}
	return t.levels[len(t.levels)-1][0]
}

// Proof returns the sibling path for the supplied item identifier, or false
// when the identifier is not part of the tree.
func (t *Tree) Proof(itemID *big.Int) ([][32]byte, bool) {
	if t == nil || len(t.levels) == 0 {
		return nil, false
	}
	target := Leaf(itemID)
	index := -1
	for i, leaf := range t.levels[0] {
		if leaf == target {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, false
	}
	proof := make([][32]byte, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, true
}
