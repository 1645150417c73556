package db

import (
	"fmt"

	"github.com/mezonai/ledgerstore/logx"
)

// DBTxManager stages writes from several stores into one DatabaseTransaction
// and commits them through a single Storage.Batch call.
type DBTxManager struct {
	storage Storage
}

// NewDBTxManager creates a new transaction manager with the given storage
func NewDBTxManager(storage Storage) *DBTxManager {
	return &DBTxManager{storage: storage}
}

// WithBatch executes the given function within a batch context.
// If the function returns nil, the batch is committed; otherwise, it's discarded.
func (tm *DBTxManager) WithBatch(fn func(tx *DatabaseTransaction) error) error {
	tx := NewDatabaseTransaction()

	if err := fn(tx); err != nil {
		tx.Reset()
		return fmt.Errorf("transaction failed: %w", err)
	}

	if tx.Len() == 0 {
		return nil
	}

	if err := tm.storage.Batch(tx); err != nil {
		logx.Error("TX_MANAGER", "Failed to commit batch of ", tx.Len(), " ops: ", err)
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}
