package merkle

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/mezonai/ledgerstore/errors"
)

func commitment(b byte) Commitment {
	var cm Commitment
	for i := range cm {
		cm[i] = b
	}
	return cm
}

func TestNewTree_Empty(t *testing.T) {
	params := DefaultParameters()
	tree, err := NewTree(params, nil)
	require.NoError(t, err)

	empty := EmptyHashes(params)
	assert.Equal(t, empty[DefaultDepth], tree.Root())
	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.Leaves())
}

func TestNewTree_RootByHand(t *testing.T) {
	params, err := NewBlake2sParameters(2)
	require.NoError(t, err)

	a, b, c := commitment(1), commitment(2), commitment(3)
	tree, err := NewTree(params, []Commitment{a, b, c})
	require.NoError(t, err)

	empty := EmptyHashes(params)
	left := params.HashNodes(params.HashLeaf(a), params.HashLeaf(b))
	right := params.HashNodes(params.HashLeaf(c), empty[0])
	assert.Equal(t, params.HashNodes(left, right), tree.Root())
}

func TestNewTree_SingleLeafPadsToDepth(t *testing.T) {
	params, err := NewBlake2sParameters(3)
	require.NoError(t, err)

	a := commitment(9)
	tree, err := NewTree(params, []Commitment{a})
	require.NoError(t, err)

	empty := EmptyHashes(params)
	node := params.HashLeaf(a)
	for level := 0; level < 3; level++ {
		node = params.HashNodes(node, empty[level])
	}
	assert.Equal(t, node, tree.Root())
}

func TestNewTree_OrderMatters(t *testing.T) {
	params := DefaultParameters()
	ab, err := NewTree(params, []Commitment{commitment(1), commitment(2)})
	require.NoError(t, err)
	ba, err := NewTree(params, []Commitment{commitment(2), commitment(1)})
	require.NoError(t, err)

	assert.NotEqual(t, ab.Root(), ba.Root())
}

func TestNewTree_TooManyLeaves(t *testing.T) {
	params, err := NewBlake2sParameters(2)
	require.NoError(t, err)

	_, err = NewTree(params, []Commitment{commitment(1), commitment(2), commitment(3), commitment(4), commitment(5)})
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindTree))

	_, err = NewTree(nil, nil)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindTree))
}

func TestTree_LeavesAreCopied(t *testing.T) {
	leaves := []Commitment{commitment(1), commitment(2)}
	tree, err := NewTree(DefaultParameters(), leaves)
	require.NoError(t, err)

	leaves[0] = commitment(7)
	out := tree.Leaves()
	out[1] = commitment(8)

	assert.Equal(t, []Commitment{commitment(1), commitment(2)}, tree.Leaves())

	leaf, ok := tree.Leaf(1)
	require.True(t, ok)
	assert.Equal(t, commitment(2), leaf)
	_, ok = tree.Leaf(2)
	assert.False(t, ok)
}

func TestTree_ProveAndVerify(t *testing.T) {
	params, err := NewBlake2sParameters(8)
	require.NoError(t, err)

	f := fuzz.New().NilChance(0).NumElements(1, 40)
	for round := 0; round < 20; round++ {
		var leaves []Commitment
		f.Fuzz(&leaves)

		tree, err := NewTree(params, leaves)
		require.NoError(t, err)

		for i, cm := range leaves {
			path, err := tree.Prove(i)
			require.NoError(t, err)
			assert.True(t, path.Verify(params, tree.Root(), cm), "leaf %d of %d", i, len(leaves))
		}

		path, err := tree.Prove(0)
		require.NoError(t, err)
		var other Commitment
		copy(other[:], leaves[0][:])
		other[0] ^= 0xff
		assert.False(t, path.Verify(params, tree.Root(), other))
	}
}

func TestTree_ProveOutOfRange(t *testing.T) {
	tree, err := NewTree(DefaultParameters(), []Commitment{commitment(1)})
	require.NoError(t, err)

	_, err = tree.Prove(1)
	assert.Error(t, err)
	_, err = tree.Prove(-1)
	assert.Error(t, err)
}

func TestNewBlake2sParameters_Range(t *testing.T) {
	_, err := NewBlake2sParameters(0)
	assert.Error(t, err)
	_, err = NewBlake2sParameters(MaxDepth + 1)
	assert.Error(t, err)

	p, err := NewBlake2sParameters(MaxDepth)
	require.NoError(t, err)
	assert.Equal(t, MaxDepth, p.Depth())
}

func TestCommitmentFromBytes(t *testing.T) {
	cm := commitment(0xab)
	decoded, err := CommitmentFromBytes(cm.Bytes())
	require.NoError(t, err)
	assert.Equal(t, cm, decoded)

	_, err = CommitmentFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))

	fromHex, err := CommitmentFromHex(cm.String())
	require.NoError(t, err)
	assert.Equal(t, cm, fromHex)

	_, err = CommitmentFromHex("zz")
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))
}
