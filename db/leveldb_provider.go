package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/logx"
)

// LevelDB keeps every column in one database; the column is the first key byte.
// The on-disk directory is marked by the CURRENT file LevelDB writes on creation.
const leveldbCurrentFile = "CURRENT"

var leveldbPrimaries = newPrimaryRegistry[*leveldb.DB]()

// leveldbReader is satisfied by both *leveldb.DB and *leveldb.Snapshot
type leveldbReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *opt.ReadOptions) (bool, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// LevelDBProvider implements Provider for LevelDB
type LevelDBProvider struct{}

// NewLevelDBProvider creates a new LevelDB provider
func NewLevelDBProvider() *LevelDBProvider {
	return &LevelDBProvider{}
}

func (p *LevelDBProvider) Name() string {
	return "leveldb"
}

// Open opens a primary, or a secondary when secondaryPath is set.
//
// A secondary binds to a primary opened by this process through a snapshot.
// Without one it opens the directory read-only, and when no database exists
// at path yet it starts as an empty view that is filled by catch-up.
func (p *LevelDBProvider) Open(path string, secondaryPath string) (Storage, error) {
	if secondaryPath == "" {
		db, err := leveldb.OpenFile(path, nil)
		if err != nil {
			return nil, lerrors.NewIOError(err, "failed to open LevelDB")
		}
		leveldbPrimaries.register(path, db)
		logx.Debug("LEVELDB", "Opened primary at ", path)
		return &LevelDBStorage{path: path, db: db, reader: db}, nil
	}

	s := &LevelDBStorage{path: path, secondary: true}
	if err := s.refresh(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logx.Info("LEVELDB", "No primary data at ", path, ", secondary starts empty")
	}
	return s, nil
}

// OpenInMemory opens a LevelDB instance backed by memory storage
func (p *LevelDBProvider) OpenInMemory() (Storage, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, lerrors.NewIOError(err, "failed to open in-memory LevelDB")
	}
	return &LevelDBStorage{db: db, reader: db}, nil
}

// LevelDBStorage implements Storage for LevelDB
type LevelDBStorage struct {
	mu        sync.RWMutex
	refreshMu sync.Mutex
	once      sync.Once
	path      string
	secondary bool
	closed    bool

	// db is owned by this handle: the primary, or a read-only secondary
	db *leveldb.DB
	// snap is set when the secondary is bound to an in-process primary
	snap   *leveldb.Snapshot
	reader leveldbReader
}

func prefixKey(col Column, key []byte) []byte {
	prefixedKey := make([]byte, 1, len(key)+1)
	prefixedKey[0] = byte(col)
	return append(prefixedKey, key...)
}

// read runs fn against the current view. When the view is a snapshot of a
// primary that has since been closed, the secondary rebinds to the directory
// and fn runs once more.
func (s *LevelDBStorage) read(fn func(r leveldbReader) error) error {
	stale, err := s.readView(fn)
	if !stale {
		return err
	}

	logx.Info("LEVELDB", "Primary at ", s.path, " was closed, rebinding secondary to disk")
	if err := s.refresh(); err != nil {
		return err
	}
	_, err = s.readView(fn)
	return err
}

// readView leaves fn uncalled when the handle has no view
func (s *LevelDBStorage) readView(fn func(r leveldbReader) error) (stale bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reader == nil {
		return false, nil
	}
	err = fn(s.reader)
	return s.snap != nil && errors.Is(err, leveldb.ErrClosed), err
}

// Get retrieves a value by key
func (s *LevelDBStorage) Get(col Column, key []byte) ([]byte, error) {
	if !col.Valid() {
		return nil, errUnknownColumn(col)
	}

	var value []byte
	err := s.read(func(r leveldbReader) error {
		v, err := r.Get(prefixKey(col, key), nil)
		if err == leveldb.ErrNotFound {
			return nil // nil for not found, consistent with interface
		}
		value = v
		return err
	})
	if err != nil {
		return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to get %s", col))
	}
	return value, nil
}

// GetCol scans every key carrying the column prefix
func (s *LevelDBStorage) GetCol(col Column) ([]KeyValue, error) {
	if !col.Valid() {
		return nil, errUnknownColumn(col)
	}

	var result []KeyValue
	err := s.read(func(r leveldbReader) error {
		result = nil
		iter := r.NewIterator(util.BytesPrefix([]byte{byte(col)}), nil)
		defer iter.Release()

		for iter.Next() {
			// contents of the returned slices are only valid until the next call to Next
			key := iter.Key()
			value := iter.Value()

			dataKey := make([]byte, len(key)-1) // strip the prefix
			copy(dataKey, key[1:])

			dataValue := make([]byte, len(value))
			copy(dataValue, value)

			result = append(result, KeyValue{Key: dataKey, Value: dataValue})
		}
		return iter.Error()
	})
	if err != nil {
		return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to scan %s", col))
	}
	return result, nil
}

// Exists checks if a key exists
func (s *LevelDBStorage) Exists(col Column, key []byte) (bool, error) {
	if !col.Valid() {
		return false, errUnknownColumn(col)
	}

	var ok bool
	err := s.read(func(r leveldbReader) error {
		var err error
		ok, err = r.Has(prefixKey(col, key), nil)
		return err
	})
	if err != nil {
		return false, lerrors.NewIOError(err, fmt.Sprintf("failed to check %s", col))
	}
	return ok, nil
}

// Batch writes all operations in a single LevelDB batch
func (s *LevelDBStorage) Batch(tx *DatabaseTransaction) error {
	if s.secondary {
		return errReadOnly()
	}
	if err := tx.validate(); err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	for _, op := range tx.Ops() {
		switch op.Kind {
		case OpInsert:
			batch.Put(prefixKey(op.Col, op.Key), op.Value)
		case OpDelete:
			batch.Delete(prefixKey(op.Col, op.Key))
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errClosed()
	}
	if err := s.db.Write(batch, nil); err != nil {
		return lerrors.NewIOError(err, "failed to write batch")
	}
	return nil
}

// TryCatchUpWithPrimary moves a secondary onto the primary's latest state
func (s *LevelDBStorage) TryCatchUpWithPrimary() error {
	if !s.secondary {
		return nil
	}
	return s.refresh()
}

// refresh builds a new view and swaps it in, releasing the previous one.
// The previous view stays in place when a new one cannot be built.
func (s *LevelDBStorage) refresh() error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	closed, onDisk := s.closed, s.db != nil
	s.mu.RUnlock()
	if closed {
		return errClosed()
	}

	if primary, ok := leveldbPrimaries.lookup(s.path); ok {
		snap, err := primary.GetSnapshot()
		if err == nil {
			return s.swap(nil, snap, snap)
		}
		logx.Warn("LEVELDB", "Primary snapshot failed, falling back to disk: ", err)
	}

	// a read-only open holds a shared lock on the directory, so no primary
	// can have written since the current disk view was opened
	if onDisk {
		return nil
	}

	if _, err := os.Stat(filepath.Join(s.path, leveldbCurrentFile)); err != nil {
		if os.IsNotExist(err) {
			return lerrors.NewIOError(os.ErrNotExist, fmt.Sprintf("no LevelDB database at %s", s.path))
		}
		return lerrors.NewIOError(err, "failed to stat LevelDB directory")
	}

	db, err := leveldb.OpenFile(s.path, &opt.Options{
		ReadOnly:       true,
		ErrorIfMissing: true,
	})
	if err != nil {
		return lerrors.NewIOError(err, "failed to open LevelDB secondary, a primary may be running in another process")
	}
	return s.swap(db, nil, db)
}

// swap installs a new view. A handle closed in the meantime releases the new
// view instead.
func (s *LevelDBStorage) swap(db *leveldb.DB, snap *leveldb.Snapshot, reader leveldbReader) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		releaseView(db, snap)
		return errClosed()
	}
	oldDB, oldSnap := s.db, s.snap
	s.db, s.snap, s.reader = db, snap, reader
	s.mu.Unlock()

	releaseView(oldDB, oldSnap)
	return nil
}

func releaseView(db *leveldb.DB, snap *leveldb.Snapshot) {
	if snap != nil {
		snap.Release()
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logx.Warn("LEVELDB", "Failed to close previous secondary view: ", err)
		}
	}
}

func (s *LevelDBStorage) IsSecondary() bool {
	return s.secondary
}

// Close closes the database connection
func (s *LevelDBStorage) Close() error {
	// avoid double close when the handle is shared by several stores
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		if s.snap != nil {
			s.snap.Release()
			s.snap = nil
		}
		if s.db != nil {
			if !s.secondary {
				leveldbPrimaries.unregister(s.path, s.db)
			}
			err = s.db.Close()
			s.db = nil
		}
		s.reader = nil
	})
	if err != nil {
		return lerrors.NewIOError(err, "failed to close LevelDB")
	}
	return nil
}
