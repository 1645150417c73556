package db

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/logx"
)

const (
	boltFileName      = "ledger.db"
	boltPublishedFile = "published.db"
	boltOpenTimeout   = 2 * time.Second
)

var boltPrimaries = newPrimaryRegistry[*bolt.DB]()

// BoltProvider implements Provider for bbolt. Each column is a bucket.
//
// A bbolt file cannot be opened while a writer holds it, so a secondary keeps
// its own copy under the secondary path and reopens it read-only on catch-up.
// The copy comes from the primary itself when it runs in this process.
// Otherwise it comes from the snapshot every primary publishes into
// SecondaryPath(path) after each commit, which needs no lock on the live file.
type BoltProvider struct{}

func NewBoltProvider() *BoltProvider {
	return &BoltProvider{}
}

func (p *BoltProvider) Name() string {
	return "bbolt"
}

func (p *BoltProvider) Open(path string, secondaryPath string) (Storage, error) {
	if secondaryPath == "" {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, lerrors.NewIOError(err, "failed to create bbolt directory")
		}
		db, err := openBoltPrimary(filepath.Join(path, boltFileName))
		if err != nil {
			return nil, err
		}
		boltPrimaries.register(path, db)
		logx.Debug("BBOLT", "Opened primary at ", path)
		s := &BoltStorage{path: path, db: db}
		s.publish()
		return s, nil
	}

	if err := os.MkdirAll(secondaryPath, 0o755); err != nil {
		return nil, lerrors.NewIOError(err, "failed to create bbolt secondary directory")
	}
	s := &BoltStorage{path: path, secondaryPath: secondaryPath, secondary: true}
	if err := s.refresh(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logx.Info("BBOLT", "No primary data at ", path, ", secondary starts empty")
	}
	return s, nil
}

// OpenInMemory opens a bbolt file in a temporary directory that is removed on Close
func (p *BoltProvider) OpenInMemory() (Storage, error) {
	dir, err := os.MkdirTemp("", "ledgerstore-bbolt-")
	if err != nil {
		return nil, lerrors.NewIOError(err, "failed to create temporary bbolt directory")
	}
	db, err := openBoltPrimary(filepath.Join(dir, boltFileName))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return &BoltStorage{path: dir, db: db, ephemeral: true}, nil
}

func openBoltPrimary(file string) (*bolt.DB, error) {
	db, err := bolt.Open(file, 0o600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, lerrors.NewIOError(err, "failed to open bbolt")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, col := range Columns() {
			if _, err := tx.CreateBucketIfNotExists([]byte(col.String())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, lerrors.NewIOError(err, "failed to create bbolt buckets")
	}
	return db, nil
}

// BoltStorage implements Storage for bbolt
type BoltStorage struct {
	mu            sync.RWMutex
	refreshMu     sync.Mutex
	publishMu     sync.Mutex
	once          sync.Once
	path          string
	secondaryPath string
	secondary     bool
	ephemeral     bool
	closed        bool
	db            *bolt.DB
}

func (s *BoltStorage) Get(col Column, key []byte) ([]byte, error) {
	if !col.Valid() {
		return nil, errUnknownColumn(col)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, nil
	}

	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(col.String()))
		if bucket == nil {
			return nil
		}
		// values are only valid for the life of the transaction
		if v := bucket.Get(key); v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to get %s", col))
	}
	return value, nil
}

func (s *BoltStorage) GetCol(col Column) ([]KeyValue, error) {
	if !col.Valid() {
		return nil, errUnknownColumn(col)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, nil
	}

	var result []KeyValue
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(col.String()))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			result = append(result, KeyValue{
				Key:   append([]byte{}, k...),
				Value: append([]byte{}, v...),
			})
			return nil
		})
	})
	if err != nil {
		return nil, lerrors.NewIOError(err, fmt.Sprintf("failed to scan %s", col))
	}
	return result, nil
}

func (s *BoltStorage) Exists(col Column, key []byte) (bool, error) {
	value, err := s.Get(col, key)
	if err != nil {
		return false, err
	}
	return value != nil, nil
}

// Batch applies every operation inside one read-write transaction
func (s *BoltStorage) Batch(tx *DatabaseTransaction) error {
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

	err := s.db.Update(func(btx *bolt.Tx) error {
		for _, op := range tx.Ops() {
			bucket := btx.Bucket([]byte(op.Col.String()))
			if bucket == nil {
				return fmt.Errorf("missing bucket %s", op.Col)
			}
			var err error
			switch op.Kind {
			case OpInsert:
				err = bucket.Put(op.Key, op.Value)
			case OpDelete:
				err = bucket.Delete(op.Key)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return lerrors.NewIOError(err, "failed to write batch")
	}
	s.publish()
	return nil
}

// publish copies the committed state to the published snapshot read by
// secondaries in other processes. The batch is already durable, so a failed
// copy only leaves those secondaries behind.
func (s *BoltStorage) publish() {
	if s.ephemeral {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	dir := SecondaryPath(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logx.Warn("BBOLT", "Failed to create ", dir, ": ", err)
		return
	}
	published := filepath.Join(dir, boltPublishedFile)
	staging := published + ".tmp"
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(staging, 0o600)
	})
	if err == nil {
		err = os.Rename(staging, published)
	}
	if err != nil {
		logx.Warn("BBOLT", "Failed to publish snapshot for secondaries: ", err)
	}
}

func (s *BoltStorage) TryCatchUpWithPrimary() error {
	if !s.secondary {
		return nil
	}
	return s.refresh()
}

// refresh copies the primary into the secondary directory and swaps the copy in
func (s *BoltStorage) refresh() error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return errClosed()
	}

	target := filepath.Join(s.secondaryPath, boltFileName)
	staging := target + ".tmp"
	if err := s.copyPrimary(staging); err != nil {
		return err
	}

	if err := os.Rename(staging, target); err != nil {
		return lerrors.NewIOError(err, "failed to install bbolt secondary copy")
	}
	db, err := bolt.Open(target, 0o600, &bolt.Options{ReadOnly: true, Timeout: boltOpenTimeout})
	if err != nil {
		return lerrors.NewIOError(err, "failed to open bbolt secondary copy")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = db.Close()
		return errClosed()
	}
	old := s.db
	s.db = db
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logx.Warn("BBOLT", "Failed to close previous secondary view: ", err)
		}
	}
	return nil
}

// copyPrimary writes the primary's latest state to staging. It prefers a
// primary open in this process, then the published snapshot, then the live
// file, which can only be opened while no primary runs.
func (s *BoltStorage) copyPrimary(staging string) error {
	copyFrom := func(db *bolt.DB) error {
		return db.View(func(tx *bolt.Tx) error {
			return tx.CopyFile(staging, 0o600)
		})
	}

	if primary, ok := boltPrimaries.lookup(s.path); ok {
		if err := copyFrom(primary); err != nil {
			return lerrors.NewIOError(err, "failed to copy bbolt primary")
		}
		return nil
	}

	published := filepath.Join(SecondaryPath(s.path), boltPublishedFile)
	err := copyFile(published, staging)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return lerrors.NewIOError(err, "failed to copy published bbolt snapshot")
	}

	source := filepath.Join(s.path, boltFileName)
	if _, err := os.Stat(source); err != nil {
		return lerrors.NewIOError(err, fmt.Sprintf("no bbolt database at %s", s.path))
	}
	primary, err := bolt.Open(source, 0o600, &bolt.Options{ReadOnly: true, Timeout: boltOpenTimeout})
	if err != nil {
		return lerrors.NewIOError(err, "failed to open bbolt primary read-only")
	}
	err = copyFrom(primary)
	_ = primary.Close()
	if err != nil {
		return lerrors.NewIOError(err, "failed to copy bbolt primary")
	}
	return nil
}

// copyFile copies src to dst. The publisher replaces src by rename, so an
// open src is always one complete snapshot.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (s *BoltStorage) IsSecondary() bool {
	return s.secondary
}

func (s *BoltStorage) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		if s.db != nil {
			if !s.secondary && !s.ephemeral {
				boltPrimaries.unregister(s.path, s.db)
			}
			err = s.db.Close()
			s.db = nil
		}
		if s.ephemeral {
			_ = os.RemoveAll(s.path)
		}
	})
	if err != nil {
		return lerrors.NewIOError(err, "failed to close bbolt")
	}
	return nil
}
