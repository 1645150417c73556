package ledger

import (
	"fmt"
	"os"

	"github.com/mezonai/ledgerstore/db"
	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/genesis"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
	"github.com/mezonai/ledgerstore/store"
)

// SecondarySuffix marks the directory a secondary keeps next to its primary
const SecondarySuffix = db.SecondarySuffix

// SecondaryPath returns the secondary marker path of the ledger at path
func SecondaryPath(path string) string {
	return db.SecondaryPath(path)
}

// NewEmpty creates a ledger holding only the genesis block. With a path, any
// existing contents there are removed first; without one the ledger lives in
// memory and disappears on Close.
func NewEmpty(provider db.Provider, params merkle.Parameters, path *string) (*Ledger, error) {
	var (
		storage db.Storage
		err     error
	)
	if path != nil {
		if err := os.RemoveAll(*path); err != nil {
			return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to remove %s", *path))
		}
		storage, err = provider.Open(*path, "")
	} else {
		storage, err = provider.OpenInMemory()
	}
	if err != nil {
		return nil, err
	}

	return installGenesis(storage, params), nil
}

// installGenesis panics when the genesis block cannot be written
func installGenesis(storage db.Storage, params merkle.Parameters) *Ledger {
	l, err := New(storage, params, genesis.MustBlock())
	if err != nil {
		_ = storage.Close()
		panic(fmt.Sprintf("ledger could not be instantiated: %v", err))
	}
	return l
}

// OpenAtPath opens the primary ledger at path, creating it with the genesis
// block when no ledger exists there.
func OpenAtPath(provider db.Provider, params merkle.Parameters, path string) (*Ledger, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to create %s", path))
	}
	return loadLedgerState(provider, params, path, true)
}

// OpenSecondaryAtPath opens a read-only secondary of the ledger at path. When
// no ledger exists there a primary is created first and closed again.
func OpenSecondaryAtPath(provider db.Provider, params merkle.Parameters, path string) (*Ledger, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to create %s", path))
	}
	return loadLedgerState(provider, params, path, false)
}

func loadLedgerState(provider db.Provider, params merkle.Parameters, path string, primary bool) (*Ledger, error) {
	secondaryPath := SecondaryPath(path)
	open := func() (db.Storage, error) {
		if primary {
			return provider.Open(path, "")
		}
		return provider.Open(path, secondaryPath)
	}

	l, found, err := loadExisting(open, params)
	if err != nil || found {
		return l, err
	}

	logx.Info("LEDGER", "No ledger at ", path, ", installing genesis block")
	storage, err := provider.Open(path, "")
	if err != nil {
		return nil, err
	}
	created := installGenesis(storage, params)
	if primary {
		return created, nil
	}

	// the secondary needs primary data on disk, so release the primary and retry once
	if err := created.Close(); err != nil {
		return nil, err
	}
	l, found, err = loadExisting(open, params)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, lerrors.NewError(lerrors.ErrKindMissingMetadata, lerrors.ErrMsgBestBlockNumber)
	}
	return l, nil
}

// loadExisting probes for the best block number and, when present, loads the
// ledger through a fresh handle. found is false when there is no chain yet.
func loadExisting(open func() (db.Storage, error), params merkle.Parameters) (l *Ledger, found bool, err error) {
	probe, err := open()
	if err != nil {
		return nil, false, err
	}
	_, found, err = store.NewMetaStore(probe).BestBlockNumber()
	if closeErr := probe.Close(); err == nil {
		err = closeErr
	}
	if err != nil || !found {
		return nil, false, err
	}

	storage, err := open()
	if err != nil {
		return nil, true, err
	}
	l, err = loadFromStorage(storage, params)
	if err != nil {
		_ = storage.Close()
		return nil, true, err
	}
	return l, true, nil
}

func loadFromStorage(storage db.Storage, params merkle.Parameters) (*Ledger, error) {
	height, ok, err := store.NewMetaStore(storage).BestBlockNumber()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lerrors.NewError(lerrors.ErrKindMissingMetadata, lerrors.ErrMsgBestBlockNumber)
	}

	tree, err := buildMerkleTree(store.NewCommitmentStore(storage), params)
	if err != nil {
		return nil, err
	}

	l, err := newLedger(storage, params, height, tree)
	if err != nil {
		return nil, err
	}
	logx.Info("LEDGER", fmt.Sprintf("Loaded ledger at height %d with %d commitments (secondary=%t)", height, tree.Len(), storage.IsSecondary()))
	return l, nil
}
