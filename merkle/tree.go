package merkle

import (
	"fmt"

	lerrors "github.com/mezonai/ledgerstore/errors"
)

// Tree is an immutable fixed-depth Merkle tree over an ordered commitment sequence.
//
// structure is:
//  1. level 0 holds one hashed leaf per commitment
//  2. each level above halves the previous one, an odd tail node is paired
//     with the empty subtree hash of its level
//  3. level depth holds the root
//
// Only populated nodes are materialised; the empty subtree hashes stand in for
// the rest, so construction is O(n + depth).
type Tree struct {
	params      Parameters
	leaves      []Commitment
	levels      [][]Digest
	emptyHashes []Digest
}

// EmptyHashes returns the root of an empty subtree for each height 0..depth
func EmptyHashes(params Parameters) []Digest {
	depth := params.Depth()
	empty := make([]Digest, depth+1)
	empty[0] = params.HashLeaf(Commitment{})
	for i := 1; i <= depth; i++ {
		empty[i] = params.HashNodes(empty[i-1], empty[i-1])
	}
	return empty
}

// NewTree builds the tree over leaves in the given order. The leaf slice is copied.
func NewTree(params Parameters, leaves []Commitment) (*Tree, error) {
	if params == nil {
		return nil, lerrors.NewError(lerrors.ErrKindTree, "missing tree parameters")
	}

	depth := params.Depth()
	if depth < 1 || depth > MaxDepth {
		return nil, lerrors.NewError(lerrors.ErrKindTree, fmt.Sprintf("invalid tree depth: %d", depth))
	}
	if uint64(len(leaves)) > uint64(1)<<uint(depth) {
		return nil, lerrors.NewError(lerrors.ErrKindTree, fmt.Sprintf("%d leaves exceed the capacity of a depth %d tree", len(leaves), depth))
	}

	emptyHashes := EmptyHashes(params)

	levels := make([][]Digest, depth+1)
	current := make([]Digest, len(leaves))
	for i, cm := range leaves {
		current[i] = params.HashLeaf(cm)
	}
	levels[0] = current

	for level := 0; level < depth; level++ {
		if len(current) == 0 {
			levels[level+1] = nil
			continue
		}
		next := make([]Digest, (len(current)+1)/2)
		for i := range next {
			left := current[2*i]
			right := emptyHashes[level]
			if 2*i+1 < len(current) {
				right = current[2*i+1]
			}
			next[i] = params.HashNodes(left, right)
		}
		levels[level+1] = next
		current = next
	}

	copied := make([]Commitment, len(leaves))
	copy(copied, leaves)

	return &Tree{
		params:      params,
		leaves:      copied,
		levels:      levels,
		emptyHashes: emptyHashes,
	}, nil
}

// Root returns the tree root
func (t *Tree) Root() Digest {
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return t.emptyHashes[len(t.emptyHashes)-1]
	}
	return top[0]
}

// Len returns the number of leaves
func (t *Tree) Len() int {
	return len(t.leaves)
}

// Depth returns the tree depth
func (t *Tree) Depth() int {
	return t.params.Depth()
}

// Leaves returns a copy of the leaf sequence in tree order
func (t *Tree) Leaves() []Commitment {
	out := make([]Commitment, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// Leaf returns the commitment at position i
func (t *Tree) Leaf(i int) (Commitment, bool) {
	if i < 0 || i >= len(t.leaves) {
		return Commitment{}, false
	}
	return t.leaves[i], true
}

// Prove returns the authentication path of leaf i
func (t *Tree) Prove(i int) (*Path, error) {
	if i < 0 || i >= len(t.leaves) {
		return nil, lerrors.NewError(lerrors.ErrKindTree, fmt.Sprintf("leaf index %d out of range [0, %d)", i, len(t.leaves)))
	}

	depth := t.Depth()
	path := &Path{
		Index:    uint64(i),
		Siblings: make([]Digest, depth),
	}

	position := i
	for level := 0; level < depth; level++ {
		sibling := position ^ 1
		nodes := t.levels[level]
		if sibling < len(nodes) {
			path.Siblings[level] = nodes[sibling]
		} else {
			path.Siblings[level] = t.emptyHashes[level]
		}
		position /= 2
	}
	return path, nil
}
