package ledger

import (
	"fmt"
	"math"

	"github.com/mezonai/ledgerstore/block"
	"github.com/mezonai/ledgerstore/db"
	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
	"github.com/mezonai/ledgerstore/monitoring"
)

func invalidBlock(msg string, hash block.BlockHash) error {
	return lerrors.NewError(lerrors.ErrKindInvalidBlock, fmt.Sprintf("%s: %s", msg, hash))
}

// InsertBlock appends blk on top of the latest block. The first block of an
// empty ledger is recorded at height 0.
//
// The block, its commitments with their indices and the new height are written
// in one batch. The in-memory height and tree are published after the batch
// commits.
func (l *Ledger) InsertBlock(blk *block.Block) error {
	if l.storage.IsSecondary() {
		return lerrors.NewError(lerrors.ErrKindReadOnly, lerrors.ErrMsgReadOnly)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	hash := blk.Hash()
	exists, err := l.stores.Blocks.Exists(hash)
	if err != nil {
		return err
	}
	if exists {
		return invalidBlock(lerrors.ErrMsgDuplicateBlock, hash)
	}
	if block.TransactionsRoot(blk.Transactions) != blk.Header.MerkleRootHash {
		return invalidBlock(lerrors.ErrMsgInvalidTxRoot, hash)
	}

	best, hasBest, err := l.stores.Meta.BestBlockNumber()
	if err != nil {
		return err
	}
	var height uint32
	if hasBest {
		latest, err := l.GetBlockHash(best)
		if err != nil {
			return err
		}
		if blk.Header.PreviousBlockHash != latest {
			return invalidBlock(lerrors.ErrMsgInvalidParent, hash)
		}
		height = best + 1
	}

	newCms := blk.Commitments()
	seen := make(map[merkle.Commitment]struct{}, len(newCms))
	for _, cm := range newCms {
		if _, dup := seen[cm]; dup {
			return invalidBlock(fmt.Sprintf("%s: %s", lerrors.ErrMsgDuplicateCm, cm), hash)
		}
		seen[cm] = struct{}{}
		known, err := l.stores.Commitments.Contains(cm)
		if err != nil {
			return err
		}
		if known {
			return invalidBlock(fmt.Sprintf("%s: %s", lerrors.ErrMsgDuplicateCm, cm), hash)
		}
	}

	nextIndex, err := l.stores.Meta.CurrentCommitmentIndex()
	if err != nil {
		return err
	}
	if uint64(nextIndex)+uint64(len(newCms)) > math.MaxUint32 {
		return invalidBlock(lerrors.ErrMsgCmIndexOverflow, hash)
	}

	// build the next tree first so a full tree rejects the block before anything is written
	leaves := append(l.MerkleTree().Leaves(), newCms...)
	tree, err := merkle.NewTree(l.params, leaves)
	if err != nil {
		return err
	}

	err = l.txManager.WithBatch(func(tx *db.DatabaseTransaction) error {
		l.stores.Blocks.StageBlock(tx, blk, height)
		for i, cm := range newCms {
			l.stores.Commitments.Stage(tx, cm, nextIndex+uint32(i))
		}
		l.stores.Meta.StageCommitmentIndex(tx, nextIndex+uint32(len(newCms)))
		l.stores.Meta.StageBestBlockNumber(tx, height)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert block %s: %w", hash, err)
	}

	l.currentBlockHeight.Store(height)
	l.publishMerkleTree(tree)
	monitoring.SetBlockHeight(l.role, height)
	monitoring.RecordInsertedBlock(len(newCms))
	logx.Info("LEDGER", fmt.Sprintf("Inserted block %s at height %d with %d commitments", hash, height, len(newCms)))
	return nil
}
