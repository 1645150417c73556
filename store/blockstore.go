package store

import (
	"fmt"

	"github.com/mezonai/ledgerstore/block"
	"github.com/mezonai/ledgerstore/db"
	lerrors "github.com/mezonai/ledgerstore/errors"
)

// TransactionLocation points at a transaction inside a stored block
type TransactionLocation struct {
	BlockHash block.BlockHash
	Index     uint32
}

const transactionLocationLength = block.HashLength + u32Length

func (l TransactionLocation) encode() []byte {
	buf := make([]byte, 0, transactionLocationLength)
	buf = append(buf, l.BlockHash[:]...)
	return append(buf, EncodeU32(l.Index)...)
}

func decodeTransactionLocation(buf []byte) (TransactionLocation, error) {
	var loc TransactionLocation
	if len(buf) != transactionLocationLength {
		return loc, lerrors.NewDecodeError(nil, fmt.Sprintf("invalid transaction location length: %d", len(buf)))
	}
	copy(loc.BlockHash[:], buf[:block.HashLength])
	index, err := DecodeU32(buf[block.HashLength:])
	if err != nil {
		return loc, err
	}
	loc.Index = index
	return loc, nil
}

// BlockStore keeps blocks split over the header, transactions, locator and
// transaction location columns. The locator column maps heights to hashes
// (4 byte keys) and hashes to heights (32 byte keys).
type BlockStore struct {
	storage db.Storage
}

func NewBlockStore(storage db.Storage) *BlockStore {
	return &BlockStore{storage: storage}
}

// StageBlock adds every write needed to record blk at height to tx
func (s *BlockStore) StageBlock(tx *db.DatabaseTransaction, blk *block.Block, height uint32) {
	hash := blk.Hash()

	tx.Insert(db.ColBlockHeader, hash[:], block.EncodeHeader(&blk.Header))
	tx.Insert(db.ColBlockTransactions, hash[:], block.EncodeTransactions(blk.Transactions))
	tx.Insert(db.ColBlockLocator, EncodeU32(height), hash[:])
	tx.Insert(db.ColBlockLocator, hash[:], EncodeU32(height))

	for i := range blk.Transactions {
		id := blk.Transactions[i].ID()
		loc := TransactionLocation{BlockHash: hash, Index: uint32(i)}
		tx.Insert(db.ColTransactionLocation, id[:], loc.encode())
	}
}

// Exists reports whether a block with the given hash is stored
func (s *BlockStore) Exists(hash block.BlockHash) (bool, error) {
	return s.storage.Exists(db.ColBlockHeader, hash[:])
}

func (s *BlockStore) Header(hash block.BlockHash) (*block.Header, bool, error) {
	value, err := s.storage.Get(db.ColBlockHeader, hash[:])
	if err != nil {
		return nil, false, fmt.Errorf("failed to get header %s: %w", hash, err)
	}
	if value == nil {
		return nil, false, nil
	}
	header, err := block.DecodeHeader(value)
	if err != nil {
		return nil, false, err
	}
	return header, true, nil
}

// Block loads the header and transactions stored under hash
func (s *BlockStore) Block(hash block.BlockHash) (*block.Block, bool, error) {
	header, ok, err := s.Header(hash)
	if err != nil || !ok {
		return nil, ok, err
	}

	value, err := s.storage.Get(db.ColBlockTransactions, hash[:])
	if err != nil {
		return nil, false, fmt.Errorf("failed to get transactions of %s: %w", hash, err)
	}
	txs, err := block.DecodeTransactions(value)
	if err != nil {
		return nil, false, err
	}
	return &block.Block{Header: *header, Transactions: txs}, true, nil
}

func (s *BlockStore) HashByHeight(height uint32) (block.BlockHash, bool, error) {
	var hash block.BlockHash
	value, err := s.storage.Get(db.ColBlockLocator, EncodeU32(height))
	if err != nil {
		return hash, false, fmt.Errorf("failed to get block hash at %d: %w", height, err)
	}
	if value == nil {
		return hash, false, nil
	}
	if len(value) != block.HashLength {
		return hash, false, lerrors.NewDecodeError(nil, fmt.Sprintf("invalid block hash length: %d", len(value)))
	}
	copy(hash[:], value)
	return hash, true, nil
}

func (s *BlockStore) HeightByHash(hash block.BlockHash) (uint32, bool, error) {
	value, err := s.storage.Get(db.ColBlockLocator, hash[:])
	if err != nil {
		return 0, false, fmt.Errorf("failed to get height of %s: %w", hash, err)
	}
	if value == nil {
		return 0, false, nil
	}
	height, err := DecodeU32(value)
	if err != nil {
		return 0, false, err
	}
	return height, true, nil
}

func (s *BlockStore) TransactionLocation(id block.TransactionID) (TransactionLocation, bool, error) {
	value, err := s.storage.Get(db.ColTransactionLocation, id[:])
	if err != nil {
		return TransactionLocation{}, false, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	if value == nil {
		return TransactionLocation{}, false, nil
	}
	loc, err := decodeTransactionLocation(value)
	if err != nil {
		return TransactionLocation{}, false, err
	}
	return loc, true, nil
}
