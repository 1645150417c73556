//go:build rocksdb
// +build rocksdb

package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/linxGnu/grocksdb"

	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/logx"
)

const rocksdbCurrentFile = "CURRENT"

// RocksDBProvider implements Provider for RocksDB using one column family per
// column. Secondaries use RocksDB's native secondary instance mode.
type RocksDBProvider struct{}

// NewRocksDBProvider creates a new RocksDB provider
func NewRocksDBProvider() (Provider, error) {
	return &RocksDBProvider{}, nil
}

func (p *RocksDBProvider) Name() string {
	return "rocksdb"
}

func columnFamilyNames() []string {
	names := []string{CfDefault}
	for _, col := range Columns() {
		names = append(names, col.String())
	}
	return names
}

func (p *RocksDBProvider) Open(path string, secondaryPath string) (Storage, error) {
	if secondaryPath == "" {
		opts := grocksdb.NewDefaultOptions()
		opts.SetCreateIfMissing(true)
		opts.SetCreateIfMissingColumnFamilies(true)
		return openRocksDB(opts, func(cfNames []string, cfOpts []*grocksdb.Options) (*grocksdb.DB, []*grocksdb.ColumnFamilyHandle, error) {
			return grocksdb.OpenDbColumnFamilies(opts, filepath.Clean(path), cfNames, cfOpts)
		}, false)
	}

	s := &RocksDBStorage{secondary: true, path: path, secondaryPath: secondaryPath}
	if err := s.openSecondary(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logx.Info("ROCKSDB", "No primary data at ", path, ", secondary starts empty")
	}
	return s, nil
}

// OpenInMemory opens RocksDB on an in-memory environment
func (p *RocksDBProvider) OpenInMemory() (Storage, error) {
	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetCreateIfMissingColumnFamilies(true)
	opts.SetEnv(grocksdb.NewMemEnv())
	return openRocksDB(opts, func(cfNames []string, cfOpts []*grocksdb.Options) (*grocksdb.DB, []*grocksdb.ColumnFamilyHandle, error) {
		return grocksdb.OpenDbColumnFamilies(opts, "/ledger", cfNames, cfOpts)
	}, false)
}

type rocksOpenFunc func(cfNames []string, cfOpts []*grocksdb.Options) (*grocksdb.DB, []*grocksdb.ColumnFamilyHandle, error)

func openRocksDB(opts *grocksdb.Options, open rocksOpenFunc, secondary bool) (*RocksDBStorage, error) {
	cfNames := columnFamilyNames()
	cfOpts := make([]*grocksdb.Options, len(cfNames))
	for i := range cfOpts {
		cfOpts[i] = opts
	}

	db, cfHandles, err := open(cfNames, cfOpts)
	if err != nil {
		return nil, lerrors.NewIOError(err, "failed to open RocksDB")
	}

	// index 0 is the default column family
	return &RocksDBStorage{
		db:        db,
		cfHandles: cfHandles[1:],
		cfDefault: cfHandles[0],
		ro:        grocksdb.NewDefaultReadOptions(),
		wo:        grocksdb.NewDefaultWriteOptions(),
		secondary: secondary,
	}, nil
}

// RocksDBStorage implements Storage for RocksDB
type RocksDBStorage struct {
	mu            sync.RWMutex
	once          sync.Once
	path          string
	secondaryPath string
	secondary     bool
	closed        bool

	db        *grocksdb.DB
	cfDefault *grocksdb.ColumnFamilyHandle
	cfHandles []*grocksdb.ColumnFamilyHandle
	ro        *grocksdb.ReadOptions
	wo        *grocksdb.WriteOptions
}

// openSecondary binds the handle to its primary. It fails with os.ErrNotExist
// while the primary has not been created yet.
func (s *RocksDBStorage) openSecondary() error {
	if _, err := os.Stat(filepath.Join(s.path, rocksdbCurrentFile)); err != nil {
		return lerrors.NewIOError(err, fmt.Sprintf("no RocksDB database at %s", s.path))
	}

	opts := grocksdb.NewDefaultOptions()
	// secondary instances must keep every file open
	opts.SetMaxOpenFiles(-1)
	opened, err := openRocksDB(opts, func(cfNames []string, cfOpts []*grocksdb.Options) (*grocksdb.DB, []*grocksdb.ColumnFamilyHandle, error) {
		return grocksdb.OpenDbAsSecondaryColumnFamilies(opts, filepath.Clean(s.path), s.secondaryPath, cfNames, cfOpts)
	}, true)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		opened.release()
		return errClosed()
	}
	if s.db != nil {
		// bound by a concurrent catch-up
		opened.release()
		return nil
	}
	s.db, s.cfDefault, s.cfHandles, s.ro, s.wo = opened.db, opened.cfDefault, opened.cfHandles, opened.ro, opened.wo
	return nil
}

func (s *RocksDBStorage) release() {
	for _, handle := range s.cfHandles {
		handle.Destroy()
	}
	s.cfDefault.Destroy()
	s.ro.Destroy()
	s.wo.Destroy()
	s.db.Close()
	s.db = nil
}

func (s *RocksDBStorage) columnFamily(col Column) (*grocksdb.ColumnFamilyHandle, error) {
	if !col.Valid() || int(col) >= len(s.cfHandles) {
		return nil, errUnknownColumn(col)
	}
	return s.cfHandles[col], nil
}

// Get retrieves a value by key
func (s *RocksDBStorage) Get(col Column, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		if !col.Valid() {
			return nil, errUnknownColumn(col)
		}
		return nil, nil
	}

	cf, err := s.columnFamily(col)
	if err != nil {
		return nil, err
	}

	value, err := s.db.GetCF(s.ro, cf, key)
	if err != nil {
		return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to get %s", col))
	}
	defer value.Free()

	if !value.Exists() {
		return nil, nil // Return nil for not found, consistent with interface
	}

	// Copy the data since we're freeing the slice
	data := value.Data()
	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

func (s *RocksDBStorage) GetCol(col Column) ([]KeyValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		if !col.Valid() {
			return nil, errUnknownColumn(col)
		}
		return nil, nil
	}

	cf, err := s.columnFamily(col)
	if err != nil {
		return nil, err
	}

	it := s.db.NewIteratorCF(s.ro, cf)
	defer it.Close()

	var result []KeyValue
	for it.SeekToFirst(); it.Valid(); it.Next() {
		k := it.Key()
		v := it.Value()
		result = append(result, KeyValue{
			Key:   append([]byte(nil), k.Data()...),
			Value: append([]byte(nil), v.Data()...),
		})
		k.Free()
		v.Free()
	}
	if err := it.Err(); err != nil {
		return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to scan %s", col))
	}
	return result, nil
}

func (s *RocksDBStorage) Exists(col Column, key []byte) (bool, error) {
	value, err := s.Get(col, key)
	if err != nil {
		return false, err
	}
	return value != nil, nil
}

// Batch writes all operations with a single WriteBatch
func (s *RocksDBStorage) Batch(tx *DatabaseTransaction) error {
	if s.secondary {
		return errReadOnly()
	}
	if err := tx.validate(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errClosed()
	}

	wb := grocksdb.NewWriteBatch()
	defer wb.Destroy()

	for _, op := range tx.Ops() {
		cf, err := s.columnFamily(op.Col)
		if err != nil {
			return err
		}
		switch op.Kind {
		case OpInsert:
			wb.PutCF(cf, op.Key, op.Value)
		case OpDelete:
			wb.DeleteCF(cf, op.Key)
		}
	}

	if err := s.db.Write(s.wo, wb); err != nil {
		return lerrors.NewIOError(err, "failed to write batch")
	}
	return nil
}

// TryCatchUpWithPrimary replays the primary's new WAL and MANIFEST entries
func (s *RocksDBStorage) TryCatchUpWithPrimary() error {
	if !s.secondary {
		return nil
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errClosed()
	}
	if s.db == nil {
		s.mu.RUnlock()
		return s.openSecondary()
	}
	defer s.mu.RUnlock()
	if err := s.db.TryCatchUpWithPrimary(); err != nil {
		return lerrors.NewIOError(err, "failed to catch up with primary")
	}
	return nil
}

func (s *RocksDBStorage) IsSecondary() bool {
	return s.secondary
}

// Close closes the database
func (s *RocksDBStorage) Close() error {
	// avoid double close when being used for multiple store
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		if s.db == nil {
			return
		}
		s.release()
	})
	return nil
}
