package store

import (
	"fmt"

	"github.com/mezonai/ledgerstore/db"
)

// MetaStore reads and writes the singleton keys of the meta column.
// Peer book bytes are stored as given and never interpreted.
type MetaStore struct {
	storage db.Storage
}

func NewMetaStore(storage db.Storage) *MetaStore {
	return &MetaStore{storage: storage}
}

// BestBlockNumber returns the persisted chain height. ok is false when no
// block has been recorded at all.
func (s *MetaStore) BestBlockNumber() (height uint32, ok bool, err error) {
	value, err := s.storage.Get(db.ColMeta, []byte(KeyBestBlockNumber))
	if err != nil {
		return 0, false, fmt.Errorf("failed to get best block number: %w", err)
	}
	if value == nil {
		return 0, false, nil
	}
	height, err = DecodeU32(value)
	if err != nil {
		return 0, false, err
	}
	return height, true, nil
}

// CurrentCommitmentIndex returns the index the next commitment will get
func (s *MetaStore) CurrentCommitmentIndex() (uint32, error) {
	value, err := s.storage.Get(db.ColMeta, []byte(KeyCurrCmIndex))
	if err != nil {
		return 0, fmt.Errorf("failed to get commitment index: %w", err)
	}
	if value == nil {
		return 0, nil
	}
	return DecodeU32(value)
}

// PeerBook returns nil when nothing has been saved
func (s *MetaStore) PeerBook() ([]byte, error) {
	value, err := s.storage.Get(db.ColMeta, []byte(KeyPeerBook))
	if err != nil {
		return nil, fmt.Errorf("failed to get peer book: %w", err)
	}
	return value, nil
}

// SavePeerBook overwrites the stored peer book
func (s *MetaStore) SavePeerBook(peers []byte) error {
	tx := db.NewDatabaseTransaction()
	tx.Insert(db.ColMeta, []byte(KeyPeerBook), peers)
	if err := s.storage.Batch(tx); err != nil {
		return fmt.Errorf("failed to save peer book: %w", err)
	}
	return nil
}

// StageBestBlockNumber adds the height update to tx
func (s *MetaStore) StageBestBlockNumber(tx *db.DatabaseTransaction, height uint32) {
	tx.Insert(db.ColMeta, []byte(KeyBestBlockNumber), EncodeU32(height))
}

// StageCommitmentIndex adds the next commitment index to tx
func (s *MetaStore) StageCommitmentIndex(tx *db.DatabaseTransaction, next uint32) {
	tx.Insert(db.ColMeta, []byte(KeyCurrCmIndex), EncodeU32(next))
}
