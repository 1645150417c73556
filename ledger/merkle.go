package ledger

import (
	"fmt"
	"time"

	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
	"github.com/mezonai/ledgerstore/monitoring"
	"github.com/mezonai/ledgerstore/store"
)

// buildMerkleTree scans every stored commitment and builds the tree in index order
func buildMerkleTree(commitments *store.CommitmentStore, params merkle.Parameters) (*merkle.Tree, error) {
	ordered, err := commitments.ScanOrdered()
	if err != nil {
		return nil, err
	}
	return merkle.NewTree(params, ordered)
}

// MerkleTree returns the published commitment tree. The tree is immutable and
// stays consistent for as long as the caller holds it.
func (l *Ledger) MerkleTree() *merkle.Tree {
	return l.cmMerkleTree.Load()
}

// Digest returns the root of the published commitment tree
func (l *Ledger) Digest() merkle.Digest {
	return l.MerkleTree().Root()
}

func (l *Ledger) publishMerkleTree(tree *merkle.Tree) {
	l.cmMerkleTree.Store(tree)
	monitoring.SetCommitmentCount(l.role, tree.Len())
}

// rebuildMerkleTree replaces the tree with one rebuilt from storage. The new
// commitments are not used: the whole column is rescanned.
func (l *Ledger) rebuildMerkleTree(_ []merkle.Commitment) error {
	start := time.Now()
	tree, err := buildMerkleTree(l.stores.Commitments, l.params)
	if err != nil {
		return fmt.Errorf("failed to rebuild commitment tree: %w", err)
	}
	l.publishMerkleTree(tree)
	monitoring.RecordTreeRebuild(time.Since(start))
	logx.Debug("LEDGER", "Rebuilt commitment tree with ", tree.Len(), " leaves in ", time.Since(start))
	return nil
}

// ProveCommitment returns the membership path of cm in the published tree
// together with the root it verifies against.
func (l *Ledger) ProveCommitment(cm merkle.Commitment) (*merkle.Path, merkle.Digest, error) {
	tree := l.MerkleTree()

	index, err := l.GetCommitmentIndex(cm)
	if err != nil {
		return nil, merkle.Digest{}, err
	}
	leaf, ok := tree.Leaf(int(index))
	if !ok || leaf != cm {
		// stored but not yet in this snapshot, e.g. a secondary that skipped the rebuild
		return nil, merkle.Digest{}, lerrors.NewError(lerrors.ErrKindNotFound, fmt.Sprintf("%s in the current tree: %s", lerrors.ErrMsgCmNotFound, cm))
	}

	path, err := tree.Prove(int(index))
	if err != nil {
		return nil, merkle.Digest{}, err
	}
	return path, tree.Root(), nil
}
