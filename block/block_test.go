package block

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2s"
	"google.golang.org/protobuf/encoding/protowire"

	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/merkle"
)

func cm(b byte) merkle.Commitment {
	var c merkle.Commitment
	c[0] = b
	return c
}

func TestEncodeDecodeBlock(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(1, 5)
	for i := 0; i < 20; i++ {
		var txs []Transaction
		f.Fuzz(&txs)
		for j := range txs {
			// the codec drops empty memos
			if len(txs[j].Memo) == 0 {
				txs[j].Memo = nil
			}
		}
		var prev BlockHash
		f.Fuzz(&prev)

		blk := AssembleBlock(prev, uint32(i), txs)
		decoded, err := DecodeBlock(EncodeBlock(blk))
		require.NoError(t, err)
		assert.Equal(t, blk.Header, decoded.Header)
		assert.Equal(t, blk.Transactions, decoded.Transactions)
		assert.Equal(t, blk.Hash(), decoded.Hash())
	}
}

func TestDecodeBlock_MissingHeader(t *testing.T) {
	_, err := DecodeBlock(EncodeTransactions([]Transaction{{NewCommitments: []merkle.Commitment{cm(1)}}}))
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))
}

func TestDecodeBlock_Truncated(t *testing.T) {
	encoded := EncodeBlock(AssembleBlock(BlockHash{}, 1, []Transaction{{NewCommitments: []merkle.Commitment{cm(1)}}}))
	_, err := DecodeBlock(encoded[:len(encoded)-3])
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))
}

func TestDecodeTransaction_BadCommitmentLength(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, txCommitmentField, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{1, 2, 3})

	_, err := DecodeTransaction(b)
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))
}

func TestDecodeHeader_SkipsUnknownFields(t *testing.T) {
	h := &Header{Time: 42, Nonce: 7}
	h.MerkleRootHash[0] = 9
	b := EncodeHeader(h)
	b = protowire.AppendTag(b, 15, protowire.VarintType)
	b = protowire.AppendVarint(b, 1234)

	decoded, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, *h, *decoded)
}

func TestDecodeHeader_BadHashLength(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, headerPrevHashField, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{1})

	_, err := DecodeHeader(b)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))
}

func TestTransactionsRoot(t *testing.T) {
	assert.Equal(t, [32]byte{}, TransactionsRoot(nil))

	a := Transaction{NewCommitments: []merkle.Commitment{cm(1)}}
	b := Transaction{NewCommitments: []merkle.Commitment{cm(2)}}
	c := Transaction{Memo: []byte("c")}

	ida, idb, idc := a.ID(), b.ID(), c.ID()
	assert.Equal(t, [32]byte(ida), TransactionsRoot([]Transaction{a}))

	pair := func(l, r [32]byte) [32]byte {
		return blake2s.Sum256(append(l[:], r[:]...))
	}
	ab := pair(ida, idb)
	cc := pair(idc, idc)
	assert.Equal(t, ab, TransactionsRoot([]Transaction{a, b}))
	assert.Equal(t, pair(ab, cc), TransactionsRoot([]Transaction{a, b, c}))
	assert.NotEqual(t, TransactionsRoot([]Transaction{a, b}), TransactionsRoot([]Transaction{b, a}))
}

func TestBlockCommitments(t *testing.T) {
	blk := AssembleBlock(BlockHash{}, 0, []Transaction{
		{NewCommitments: []merkle.Commitment{cm(1), cm(2)}},
		{},
		{NewCommitments: []merkle.Commitment{cm(3)}},
	})
	assert.Equal(t, []merkle.Commitment{cm(1), cm(2), cm(3)}, blk.Commitments())
}
