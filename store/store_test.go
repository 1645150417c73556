package store

import (
	"io"
	"os"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/ledgerstore/block"
	"github.com/mezonai/ledgerstore/db"
	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newStorage(t *testing.T) db.Storage {
	t.Helper()
	s, err := db.NewLevelDBProvider().OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func cm(b byte) merkle.Commitment {
	var c merkle.Commitment
	c[0] = b
	c[31] = b
	return c
}

func TestEncodeDecodeU32(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 1, 2}, EncodeU32(258))

	v, err := DecodeU32([]byte{0xff, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, uint32(0xff000001), v)

	_, err = DecodeU32([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))
}

func TestCommitmentStore_ScanOrdered(t *testing.T) {
	s := newStorage(t)
	cms := NewCommitmentStore(s)

	a, b, c := cm(0xa), cm(0xb), cm(0xc)
	tx := db.NewDatabaseTransaction()
	cms.Stage(tx, a, 2)
	cms.Stage(tx, b, 0)
	cms.Stage(tx, c, 1)
	require.NoError(t, s.Batch(tx))

	ordered, err := cms.ScanOrdered()
	require.NoError(t, err)
	assert.Equal(t, []merkle.Commitment{b, c, a}, ordered)
}

func TestCommitmentStore_ScanOrderedRandom(t *testing.T) {
	s := newStorage(t)
	cms := NewCommitmentStore(s)

	var set map[merkle.Commitment]struct{}
	fuzz.New().NilChance(0).NumElements(10, 60).Fuzz(&set)

	expected := make([]merkle.Commitment, 0, len(set))
	for c := range set {
		expected = append(expected, c)
	}
	// map iteration already shuffles the insertion order
	tx := db.NewDatabaseTransaction()
	for i, c := range expected {
		cms.Stage(tx, c, uint32(i))
	}
	require.NoError(t, s.Batch(tx))

	ordered, err := cms.ScanOrdered()
	require.NoError(t, err)
	assert.Equal(t, expected, ordered)
}

func TestCommitmentStore_ScanOrderedEmpty(t *testing.T) {
	ordered, err := NewCommitmentStore(newStorage(t)).ScanOrdered()
	require.NoError(t, err)
	assert.Empty(t, ordered)
}

func TestCommitmentStore_ScanRejectsMalformedEntries(t *testing.T) {
	s := newStorage(t)
	tx := db.NewDatabaseTransaction()
	tx.Insert(db.ColCommitment, []byte("short"), EncodeU32(0))
	require.NoError(t, s.Batch(tx))

	_, err := NewCommitmentStore(s).ScanOrdered()
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))

	s = newStorage(t)
	tx = db.NewDatabaseTransaction()
	tx.Insert(db.ColCommitment, cm(1).Bytes(), []byte{1})
	require.NoError(t, s.Batch(tx))

	_, err = NewCommitmentStore(s).ScanOrdered()
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))
}

func TestCommitmentStore_IndexAndContains(t *testing.T) {
	s := newStorage(t)
	cms := NewCommitmentStore(s)
	tx := db.NewDatabaseTransaction()
	cms.Stage(tx, cm(1), 7)
	require.NoError(t, s.Batch(tx))

	index, ok, err := cms.Index(cm(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), index)

	_, ok, err = cms.Index(cm(2))
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := cms.Contains(cm(1))
	require.NoError(t, err)
	assert.True(t, found)
	found, err = cms.Contains(cm(2))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMetaStore(t *testing.T) {
	s := newStorage(t)
	meta := NewMetaStore(s)

	_, ok, err := meta.BestBlockNumber()
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := meta.CurrentCommitmentIndex()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), next)

	tx := db.NewDatabaseTransaction()
	meta.StageBestBlockNumber(tx, 12)
	meta.StageCommitmentIndex(tx, 40)
	require.NoError(t, s.Batch(tx))

	height, ok, err := meta.BestBlockNumber()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(12), height)

	next, err = meta.CurrentCommitmentIndex()
	require.NoError(t, err)
	assert.Equal(t, uint32(40), next)
}

func TestMetaStore_PeerBookOverwrite(t *testing.T) {
	meta := NewMetaStore(newStorage(t))

	peers, err := meta.PeerBook()
	require.NoError(t, err)
	assert.Nil(t, peers)

	require.NoError(t, meta.SavePeerBook([]byte{1, 2, 3}))
	require.NoError(t, meta.SavePeerBook([]byte{9}))

	peers, err = meta.PeerBook()
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, peers)
}

func TestMetaStore_CorruptHeight(t *testing.T) {
	s := newStorage(t)
	tx := db.NewDatabaseTransaction()
	tx.Insert(db.ColMeta, []byte(KeyBestBlockNumber), []byte{1, 2})
	require.NoError(t, s.Batch(tx))

	_, _, err := NewMetaStore(s).BestBlockNumber()
	assert.True(t, lerrors.Is(err, lerrors.ErrKindDecode))
}

func TestBlockStore_StageAndLookup(t *testing.T) {
	s := newStorage(t)
	blocks := NewBlockStore(s)

	blk := block.AssembleBlock(block.BlockHash{1}, 3, []block.Transaction{
		{NewCommitments: []merkle.Commitment{cm(1), cm(2)}, Memo: []byte("first")},
		{NewCommitments: []merkle.Commitment{cm(3)}},
	})
	hash := blk.Hash()

	tx := db.NewDatabaseTransaction()
	blocks.StageBlock(tx, blk, 5)
	require.NoError(t, s.Batch(tx))

	ok, err := blocks.Exists(hash)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, ok, err := blocks.Block(hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, blk.Header, stored.Header)
	assert.Equal(t, blk.Transactions, stored.Transactions)

	byHeight, ok, err := blocks.HashByHeight(5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, hash, byHeight)

	height, ok, err := blocks.HeightByHash(hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(5), height)

	loc, ok, err := blocks.TransactionLocation(blk.Transactions[1].ID())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, TransactionLocation{BlockHash: hash, Index: 1}, loc)
}

func TestBlockStore_Missing(t *testing.T) {
	blocks := NewBlockStore(newStorage(t))

	_, ok, err := blocks.Block(block.BlockHash{7})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = blocks.HashByHeight(0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = blocks.HeightByHash(block.BlockHash{7})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = blocks.TransactionLocation(block.TransactionID{7})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlockStore_EmptyBlock(t *testing.T) {
	s := newStorage(t)
	blocks := NewBlockStore(s)
	blk := block.AssembleBlock(block.BlockHash{}, 0, nil)

	tx := db.NewDatabaseTransaction()
	blocks.StageBlock(tx, blk, 0)
	require.NoError(t, s.Batch(tx))

	stored, ok, err := blocks.Block(blk.Hash())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, stored.Transactions)
}

func TestCreateStores(t *testing.T) {
	_, err := CreateStores(nil)
	assert.Error(t, err)

	stores, err := CreateStores(newStorage(t))
	require.NoError(t, err)
	assert.NotNil(t, stores.Meta)
	assert.NotNil(t, stores.Blocks)
	assert.NotNil(t, stores.Commitments)
}
