package merkle

import (
	"fmt"

	"golang.org/x/crypto/blake2s"
)

// DefaultDepth is the depth of the record commitment tree: 2^32 leaves
const DefaultDepth = 32

// MaxDepth bounds the tree so the leaf capacity fits in a uint64
const MaxDepth = 63

// domain separation prefixes
const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

// Parameters is the cryptographic parameter set of a commitment tree
type Parameters interface {
	// Depth is the number of levels between the leaves and the root
	Depth() int

	// HashLeaf hashes a commitment into a leaf node
	HashLeaf(cm Commitment) Digest

	// HashNodes hashes two sibling nodes into their parent
	HashNodes(left, right Digest) Digest
}

// Blake2sParameters hashes leaves and nodes with BLAKE2s-256
type Blake2sParameters struct {
	depth int
}

// NewBlake2sParameters returns BLAKE2s parameters for a tree of the given depth
func NewBlake2sParameters(depth int) (*Blake2sParameters, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("merkle depth %d out of range [1, %d]", depth, MaxDepth)
	}
	return &Blake2sParameters{depth: depth}, nil
}

// DefaultParameters returns BLAKE2s parameters at DefaultDepth
func DefaultParameters() *Blake2sParameters {
	return &Blake2sParameters{depth: DefaultDepth}
}

func (p *Blake2sParameters) Depth() int {
	return p.depth
}

func (p *Blake2sParameters) HashLeaf(cm Commitment) Digest {
	var buf [1 + CommitmentLength]byte
	buf[0] = leafPrefix
	copy(buf[1:], cm[:])
	return blake2s.Sum256(buf[:])
}

func (p *Blake2sParameters) HashNodes(left, right Digest) Digest {
	var buf [1 + 2*DigestLength]byte
	buf[0] = nodePrefix
	copy(buf[1:], left[:])
	copy(buf[1+DigestLength:], right[:])
	return blake2s.Sum256(buf[:])
}
