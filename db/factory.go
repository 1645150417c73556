package db

import "fmt"

// ProviderType names a storage backend
type ProviderType string

const (
	// LevelDBProviderType uses the LevelDB implementation
	LevelDBProviderType ProviderType = "leveldb"

	// BoltProviderType uses the bbolt implementation
	BoltProviderType ProviderType = "bbolt"

	// RocksDBProviderType uses the RocksDB implementation
	RocksDBProviderType ProviderType = "rocksdb"
)

// Validate checks the provider type is one of the supported backends
func (t ProviderType) Validate() error {
	switch t {
	case LevelDBProviderType, BoltProviderType, RocksDBProviderType:
		return nil
	case "":
		return fmt.Errorf("store type cannot be empty")
	default:
		return fmt.Errorf("unsupported store type: %s", t)
	}
}

// SupportsExternalSecondary reports whether a secondary can follow a primary
// running in another process. LevelDB secondaries only attach to a primary
// opened by the same process, or to a directory no primary holds.
func (t ProviderType) SupportsExternalSecondary() bool {
	return t != LevelDBProviderType
}

// NewProvider creates a database provider for the given backend
func NewProvider(t ProviderType) (Provider, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	switch t {
	case LevelDBProviderType:
		return NewLevelDBProvider(), nil

	case BoltProviderType:
		return NewBoltProvider(), nil

	case RocksDBProviderType:
		return NewRocksDBProvider()

	default:
		return nil, fmt.Errorf("unsupported store type: %s", t)
	}
}
