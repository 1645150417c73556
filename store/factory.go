package store

import (
	"fmt"

	"github.com/mezonai/ledgerstore/db"
)

// Stores groups the column views over one storage handle
type Stores struct {
	Meta        *MetaStore
	Blocks      *BlockStore
	Commitments *CommitmentStore
}

// CreateStores creates every store on top of storage
func CreateStores(storage db.Storage) (*Stores, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	return &Stores{
		Meta:        NewMetaStore(storage),
		Blocks:      NewBlockStore(storage),
		Commitments: NewCommitmentStore(storage),
	}, nil
}
