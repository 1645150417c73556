package db

// SecondarySuffix marks the directory that holds the state of secondaries
// following the primary at a path
const SecondarySuffix = "_secondary"

// SecondaryPath returns the secondary directory of the primary at path
func SecondaryPath(path string) string {
	return path + SecondarySuffix
}

// KeyValue is a single entry returned by a column scan
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Storage is the column-oriented key-value facade the ledger is written against.
// A primary handle is writable; a secondary handle is a read-only view of a primary
// at the same path that only moves forward on TryCatchUpWithPrimary.
type Storage interface {
	// Get retrieves a value by column and key
	// Returns nil, nil if the key does not exist
	Get(col Column, key []byte) ([]byte, error)

	// GetCol returns every entry of a column. Order is backend specific
	GetCol(col Column) ([]KeyValue, error)

	// Exists checks if a key exists in a column
	Exists(col Column, key []byte) (bool, error)

	// Batch commits all operations atomically, or none of them
	Batch(tx *DatabaseTransaction) error

	// TryCatchUpWithPrimary refreshes a secondary's view of its primary.
	// It is a no-op for primary handles
	TryCatchUpWithPrimary() error

	// IsSecondary reports whether the handle is a read-only secondary
	IsSecondary() bool

	// Close releases the handle. Calling it twice is safe
	Close() error
}

// Provider opens Storage handles for one backend
type Provider interface {
	// Name returns the backend name used in configuration
	Name() string

	// Open opens the storage at path. An empty secondaryPath opens a primary;
	// otherwise a read-only secondary bound to the primary at path is opened,
	// using secondaryPath for any state the backend keeps on its own.
	Open(path string, secondaryPath string) (Storage, error)

	// OpenInMemory opens an ephemeral primary that is discarded on Close
	OpenInMemory() (Storage, error)
}
