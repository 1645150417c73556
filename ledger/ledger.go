package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mezonai/ledgerstore/block"
	"github.com/mezonai/ledgerstore/db"
	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
	"github.com/mezonai/ledgerstore/monitoring"
	"github.com/mezonai/ledgerstore/store"
)

// Ledger owns the chain height, the commitment tree and the storage handle of
// one open ledger. A primary and its secondaries are separate Ledger values.
//
// The height and the tree are published atomically: readers never lock and
// never see a partially built tree. Writes through InsertBlock are serialized.
type Ledger struct {
	mu sync.Mutex

	currentBlockHeight atomic.Uint32
	cmMerkleTree       atomic.Pointer[merkle.Tree]

	storage   db.Storage
	params    merkle.Parameters
	stores    *store.Stores
	txManager *db.DBTxManager
	role      monitoring.Role
}

func newLedger(storage db.Storage, params merkle.Parameters, height uint32, tree *merkle.Tree) (*Ledger, error) {
	stores, err := store.CreateStores(storage)
	if err != nil {
		return nil, err
	}

	role := monitoring.RolePrimary
	if storage.IsSecondary() {
		role = monitoring.RoleSecondary
	}

	l := &Ledger{
		storage:   storage,
		params:    params,
		stores:    stores,
		txManager: db.NewDBTxManager(storage),
		role:      role,
	}
	l.currentBlockHeight.Store(height)
	l.publishMerkleTree(tree)
	monitoring.SetBlockHeight(role, height)
	return l, nil
}

// New installs genesis into storage, which must not hold a ledger yet
func New(storage db.Storage, params merkle.Parameters, genesis *block.Block) (*Ledger, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}

	_, exists, err := store.NewMetaStore(storage).BestBlockNumber()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, lerrors.NewError(lerrors.ErrKindExistingDatabase, lerrors.ErrMsgExistingDatabase)
	}

	tree, err := merkle.NewTree(params, nil)
	if err != nil {
		return nil, err
	}
	l, err := newLedger(storage, params, 0, tree)
	if err != nil {
		return nil, err
	}

	if err := l.InsertBlock(genesis); err != nil {
		return nil, fmt.Errorf("failed to insert genesis block: %w", err)
	}
	logx.Info("LEDGER", "Installed genesis block ", genesis.Hash())
	return l, nil
}

// Storage returns the underlying storage handle
func (l *Ledger) Storage() db.Storage {
	return l.storage
}

func (l *Ledger) IsSecondary() bool {
	return l.storage.IsSecondary()
}

// Close releases the storage handle
func (l *Ledger) Close() error {
	return l.storage.Close()
}

// BlockHeight returns the in-memory height. It moves on block insertion and
// on secondary catch-up and may differ from GetBestBlockNumber.
func (l *Ledger) BlockHeight() uint32 {
	return l.currentBlockHeight.Load()
}

// GetBestBlockNumber reads the height persisted in the meta column
func (l *Ledger) GetBestBlockNumber() (uint32, error) {
	height, ok, err := l.stores.Meta.BestBlockNumber()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, lerrors.NewError(lerrors.ErrKindMissingMetadata, lerrors.ErrMsgBestBlockNumber)
	}
	return height, nil
}

// LatestBlock returns the block at the persisted best height
func (l *Ledger) LatestBlock() (*block.Block, error) {
	height, err := l.GetBestBlockNumber()
	if err != nil {
		return nil, err
	}
	hash, err := l.GetBlockHash(height)
	if err != nil {
		return nil, err
	}
	return l.GetBlock(hash)
}

// IsEmpty reports whether no block has been recorded
func (l *Ledger) IsEmpty() bool {
	_, err := l.LatestBlock()
	return err != nil
}

func (l *Ledger) GetBlock(hash block.BlockHash) (*block.Block, error) {
	blk, ok, err := l.stores.Blocks.Block(hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lerrors.NewError(lerrors.ErrKindNotFound, fmt.Sprintf("%s: %s", lerrors.ErrMsgBlockNotFound, hash))
	}
	return blk, nil
}

func (l *Ledger) GetBlockHash(height uint32) (block.BlockHash, error) {
	hash, ok, err := l.stores.Blocks.HashByHeight(height)
	if err != nil {
		return hash, err
	}
	if !ok {
		return hash, lerrors.NewError(lerrors.ErrKindNotFound, fmt.Sprintf("%s: height %d", lerrors.ErrMsgBlockNotFound, height))
	}
	return hash, nil
}

func (l *Ledger) GetBlockNumber(hash block.BlockHash) (uint32, error) {
	height, ok, err := l.stores.Blocks.HeightByHash(hash)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, lerrors.NewError(lerrors.ErrKindNotFound, fmt.Sprintf("%s: %s", lerrors.ErrMsgBlockNotFound, hash))
	}
	return height, nil
}

// BlockHashExists returns false on lookup errors
func (l *Ledger) BlockHashExists(hash block.BlockHash) bool {
	exists, err := l.stores.Blocks.Exists(hash)
	if err != nil {
		logx.Error("LEDGER", "Failed to check block existence ", hash, " error: ", err)
		return false
	}
	return exists
}

// GetTransaction returns a stored transaction with the hash of its block
func (l *Ledger) GetTransaction(id block.TransactionID) (*block.Transaction, block.BlockHash, error) {
	loc, ok, err := l.stores.Blocks.TransactionLocation(id)
	if err != nil {
		return nil, block.BlockHash{}, err
	}
	if !ok {
		return nil, block.BlockHash{}, lerrors.NewError(lerrors.ErrKindNotFound, fmt.Sprintf("%s: %s", lerrors.ErrMsgTxNotFound, id))
	}

	blk, err := l.GetBlock(loc.BlockHash)
	if err != nil {
		return nil, block.BlockHash{}, err
	}
	if int(loc.Index) >= len(blk.Transactions) {
		return nil, block.BlockHash{}, lerrors.NewDecodeError(nil, fmt.Sprintf("transaction index %d out of range in block %s", loc.Index, loc.BlockHash))
	}
	return &blk.Transactions[loc.Index], loc.BlockHash, nil
}

func (l *Ledger) ContainsCommitment(cm merkle.Commitment) (bool, error) {
	return l.stores.Commitments.Contains(cm)
}

func (l *Ledger) GetCommitmentIndex(cm merkle.Commitment) (uint32, error) {
	index, ok, err := l.stores.Commitments.Index(cm)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, lerrors.NewError(lerrors.ErrKindNotFound, fmt.Sprintf("%s: %s", lerrors.ErrMsgCmNotFound, cm))
	}
	return index, nil
}

// GetPeerBook returns the stored peer book, nil if none was saved
func (l *Ledger) GetPeerBook() ([]byte, error) {
	return l.stores.Meta.PeerBook()
}

// SavePeerBookToStorage replaces the stored peer book with peers
func (l *Ledger) SavePeerBookToStorage(peers []byte) error {
	return l.stores.Meta.SavePeerBook(peers)
}
