// MIT License
//
// # Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/core/hashtree/tree.go
package hashtree

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"
)

// Size is the byte length of every node hash.
const Size = sha256.Size

// Domain separation tags.
const (
	leafTag byte = 0x00
	nodeTag byte = 0x01
)

var (
	ErrEmptyTree    = errors.New("hashtree: no leaves")
	ErrBadIndex     = errors.New("hashtree: leaf index out of range")
	ErrProofInvalid = errors.New("hashtree: proof does not match root")
)

// HashTreeNode is a node of a built tree. Hash holds the node digest as a
// 256-bit big-endian integer.
type HashTreeNode struct {
	Hash  *uint256.Int
	Left  *HashTreeNode
	Right *HashTreeNode
}

// Bytes returns the 32-byte digest of the node.
func (n *HashTreeNode) Bytes() [Size]byte {
	if n == nil || n.Hash == nil {
		return [Size]byte{}
	}
	return n.Hash.Bytes32()
}

// HashTree is a binary SHA-256 tree over raw leaves. Layers[0] holds the
// leaf hashes and the last layer holds the root. An odd node is paired with
// itself.
type HashTree struct {
	Leaves [][]byte
	Layers [][][Size]byte
	Root   *HashTreeNode
}

// NewHashTree prepares a tree over leaves. Build must be called before use.
func NewHashTree(leaves [][]byte) *HashTree {
	return &HashTree{Leaves: leaves}
}

// LeafHash is SHA-256(0x00 || data).
func LeafHash(data []byte) [Size]byte {
	h := sha256.New()
	h.Write([]byte{leafTag})
	h.Write(data)
	var out [Size]byte
	h.Sum(out[:0])
	return out
}

// NodeHash is SHA-256(0x01 || left || right).
func NodeHash(left, right *[Size]byte) [Size]byte {
	var buf [1 + 2*Size]byte
	buf[0] = nodeTag
	copy(buf[1:], left[:])
	copy(buf[1+Size:], right[:])
	return sha256.Sum256(buf[:])
}

// Build hashes every layer and links the node structure under Root.
func (t *HashTree) Build() error {
	if len(t.Leaves) == 0 {
		return ErrEmptyTree
	}
	layer := make([][Size]byte, len(t.Leaves))
	nodes := make([]*HashTreeNode, len(t.Leaves))
	for i, leaf := range t.Leaves {
		layer[i] = LeafHash(leaf)
		nodes[i] = &HashTreeNode{Hash: new(uint256.Int).SetBytes32(layer[i][:])}
	}
	t.Layers = [][][Size]byte{layer}

	for len(layer) > 1 {
		next := make([][Size]byte, (len(layer)+1)/2)
		parents := make([]*HashTreeNode, len(next))
		for i := range next {
			l, r := 2*i, 2*i+1
			if r == len(layer) {
				r = l
			}
			next[i] = NodeHash(&layer[l], &layer[r])
			parents[i] = &HashTreeNode{
				Hash:  new(uint256.Int).SetBytes32(next[i][:]),
				Left:  nodes[l],
				Right: nodes[r],
			}
		}
		t.Layers = append(t.Layers, next)
		layer, nodes = next, parents
	}
	t.Root = nodes[0]
	return nil
}

// RootHash returns the root digest. The tree must be built.
func (t *HashTree) RootHash() [Size]byte {
	return t.Layers[len(t.Layers)-1][0]
}

// BatchProof authenticates several leaves against one root. Nodes lists the
// siblings a verifier cannot compute itself, level by level and in
// ascending index order within a level.
type BatchProof struct {
	Nodes [][Size]byte
}

// SortedUnique returns the distinct indices in ascending order.
func SortedUnique(indices []int) []int {
	out := append([]int(nil), indices...)
	sort.Ints(out)
	k := 0
	for i, v := range out {
		if i == 0 || v != out[k-1] {
			out[k] = v
			k++
		}
	}
	return out[:k]
}

// Prove builds a batch proof for the given leaf indices. Duplicates are
// allowed and collapse.
func (t *HashTree) Prove(indices []int) (*BatchProof, error) {
	if len(t.Layers) == 0 {
		return nil, ErrEmptyTree
	}
	idx := SortedUnique(indices)
	for _, i := range idx {
		if i < 0 || i >= len(t.Layers[0]) {
			return nil, fmt.Errorf("%w: %d", ErrBadIndex, i)
		}
	}
	proof := &BatchProof{}
	for _, layer := range t.Layers[:len(t.Layers)-1] {
		known := make(map[int]bool, len(idx))
		for _, i := range idx {
			known[i] = true
		}
		var parents []int
		for _, i := range idx {
			sib := i ^ 1
			if sib < len(layer) && !known[sib] {
				proof.Nodes = append(proof.Nodes, layer[sib])
			}
			if len(parents) == 0 || parents[len(parents)-1] != i/2 {
				parents = append(parents, i/2)
			}
		}
		idx = parents
	}
	return proof, nil
}

// VerifyBatch checks that leaves (raw leaf data, matched to indices after
// sorting and de-duplication) belong to a tree of leafCount leaves with
// the given root. indices and leaves must already be sorted and distinct.
func VerifyBatch(root [Size]byte, leafCount int, indices []int, leaves [][]byte, proof *BatchProof) error {
	hashes := make([][Size]byte, len(leaves))
	for i, leaf := range leaves {
		hashes[i] = LeafHash(leaf)
	}
	return VerifyBatchHashes(root, leafCount, indices, hashes, proof)
}

// VerifyBatchHashes is VerifyBatch over precomputed leaf hashes.
func VerifyBatchHashes(root [Size]byte, leafCount int, indices []int, hashes [][Size]byte, proof *BatchProof) error {
	if leafCount <= 0 {
		return ErrEmptyTree
	}
	if len(indices) == 0 || len(indices) != len(hashes) || proof == nil {
		return ErrProofInvalid
	}
	for k, i := range indices {
		if i < 0 || i >= leafCount || (k > 0 && i <= indices[k-1]) {
			return fmt.Errorf("%w: %d", ErrBadIndex, i)
		}
	}

	idx := append([]int(nil), indices...)
	cur := append([][Size]byte(nil), hashes...)
	width := leafCount
	next := 0
	for width > 1 {
		var (
			pIdx  []int
			pHash [][Size]byte
		)
		for k := 0; k < len(idx); k++ {
			i := idx[k]
			var left, right [Size]byte
			switch {
			case i%2 == 0 && k+1 < len(idx) && idx[k+1] == i+1:
				left, right = cur[k], cur[k+1]
				k++
			case i%2 == 0 && i+1 == width:
				left, right = cur[k], cur[k]
			default:
				if next >= len(proof.Nodes) {
					return ErrProofInvalid
				}
				sib := proof.Nodes[next]
				next++
				if i%2 == 0 {
					left, right = cur[k], sib
				} else {
					left, right = sib, cur[k]
				}
			}
			pIdx = append(pIdx, i/2)
			pHash = append(pHash, NodeHash(&left, &right))
		}
		idx, cur = pIdx, pHash
		width = (width + 1) / 2
	}
	if next != len(proof.Nodes) || cur[0] != root {
		return ErrProofInvalid
	}
	return nil
}

// BatchHashCount is the number of node hashes VerifyBatchHashes computes for
// the given sorted, distinct indices. It excludes leaf hashes.
func BatchHashCount(leafCount int, indices []int) int {
	idx := append([]int(nil), indices...)
	count := 0
	for width := leafCount; width > 1; width = (width + 1) / 2 {
		var parents []int
		for _, i := range idx {
			if len(parents) == 0 || parents[len(parents)-1] != i/2 {
				parents = append(parents, i/2)
			}
		}
		count += len(parents)
		idx = parents
	}
	return count
}
