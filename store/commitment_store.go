package store

import (
	"fmt"
	"sort"

	"github.com/mezonai/ledgerstore/db"
	"github.com/mezonai/ledgerstore/merkle"
)

// CommitmentStore maps each record commitment to the dense index it was
// assigned when its block was inserted.
type CommitmentStore struct {
	storage db.Storage
}

func NewCommitmentStore(storage db.Storage) *CommitmentStore {
	return &CommitmentStore{storage: storage}
}

type indexedCommitment struct {
	cm    merkle.Commitment
	index uint32
}

// ScanOrdered reads the whole commitment column and returns the commitments
// ordered by index. The column itself comes back in backend order.
func (s *CommitmentStore) ScanOrdered() ([]merkle.Commitment, error) {
	kvs, err := s.storage.GetCol(db.ColCommitment)
	if err != nil {
		return nil, fmt.Errorf("failed to scan commitments: %w", err)
	}

	entries := make([]indexedCommitment, 0, len(kvs))
	for _, kv := range kvs {
		cm, err := merkle.CommitmentFromBytes(kv.Key)
		if err != nil {
			return nil, err
		}
		index, err := DecodeU32(kv.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, indexedCommitment{cm: cm, index: index})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].index < entries[j].index
	})

	commitments := make([]merkle.Commitment, len(entries))
	for i, e := range entries {
		commitments[i] = e.cm
	}
	return commitments, nil
}

// Index returns the index of cm, ok is false when cm is unknown
func (s *CommitmentStore) Index(cm merkle.Commitment) (index uint32, ok bool, err error) {
	value, err := s.storage.Get(db.ColCommitment, cm.Bytes())
	if err != nil {
		return 0, false, fmt.Errorf("failed to get commitment %s: %w", cm, err)
	}
	if value == nil {
		return 0, false, nil
	}
	index, err = DecodeU32(value)
	if err != nil {
		return 0, false, err
	}
	return index, true, nil
}

func (s *CommitmentStore) Contains(cm merkle.Commitment) (bool, error) {
	return s.storage.Exists(db.ColCommitment, cm.Bytes())
}

// Stage adds cm at index to tx
func (s *CommitmentStore) Stage(tx *db.DatabaseTransaction, cm merkle.Commitment, index uint32) {
	tx.Insert(db.ColCommitment, cm.Bytes(), EncodeU32(index))
}
