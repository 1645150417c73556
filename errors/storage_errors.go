package errors

import (
	stderrors "errors"
	"fmt"
)

// StorageErrorKind classifies failures surfaced by the ledger and its storage backends
type StorageErrorKind string

const (
	// I/O failure opening, reading or writing the backing store
	ErrKindIO StorageErrorKind = "io"

	// A metadata key that must exist is absent
	ErrKindMissingMetadata StorageErrorKind = "missing_metadata"

	// Malformed commitment, index, block or genesis bytes
	ErrKindDecode StorageErrorKind = "decode"

	// Malformed leaf set handed to the commitment tree
	ErrKindTree StorageErrorKind = "tree"

	// Write attempted through a secondary (read-only) handle
	ErrKindReadOnly StorageErrorKind = "read_only"

	// Block rejected by the insertion path
	ErrKindInvalidBlock StorageErrorKind = "invalid_block"

	// Block or transaction lookup found nothing
	ErrKindNotFound StorageErrorKind = "not_found"

	// Genesis install attempted on storage that already holds a chain
	ErrKindExistingDatabase StorageErrorKind = "existing_database"
)

// Error message constants
const (
	ErrMsgBestBlockNumber   = "can't obtain the best block's number"
	ErrMsgReadOnly          = "storage is opened as a read-only secondary instance"
	ErrMsgBlockNotFound     = "block not found"
	ErrMsgTxNotFound        = "transaction not found"
	ErrMsgCmNotFound        = "commitment not found"
	ErrMsgExistingDatabase  = "storage already holds a ledger"
	ErrMsgInvalidTxRoot     = "transactions root does not match the header"
	ErrMsgDuplicateCm       = "commitment already exists"
	ErrMsgUnknownColumn     = "unknown column"
	ErrMsgDuplicateBlock    = "block already exists"
	ErrMsgInvalidParent     = "block does not extend the latest block"
	ErrMsgInvalidIntegerLen = "invalid fixed-width integer length"
	ErrMsgClosed            = "storage is closed"
	ErrMsgCmIndexOverflow   = "commitment index space exhausted"
)

// StorageError is the typed error returned by every storage and decode path
type StorageError struct {
	Kind    StorageErrorKind `json:"kind"`
	Message string           `json:"message"`
	Err     error            `json:"-"`
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewError creates a new StorageError and returns it as error interface
func NewError(kind StorageErrorKind, message string) error {
	return &StorageError{
		Kind:    kind,
		Message: message,
	}
}

// Wrap attaches a kind and message to cause. A nil cause yields nil.
func Wrap(kind StorageErrorKind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &StorageError{
		Kind:    kind,
		Message: message,
		Err:     cause,
	}
}

func NewIOError(cause error, message string) error {
	return Wrap(ErrKindIO, cause, message)
}

func NewDecodeError(cause error, message string) error {
	if cause == nil {
		return NewError(ErrKindDecode, message)
	}
	return Wrap(ErrKindDecode, cause, message)
}

// KindOf returns the kind of the first StorageError in err's chain
func KindOf(err error) (StorageErrorKind, bool) {
	var se *StorageError
	if stderrors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// Is reports whether err carries a StorageError of the given kind
func Is(err error, kind StorageErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
