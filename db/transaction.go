package db

import (
	"fmt"

	lerrors "github.com/mezonai/ledgerstore/errors"
)

// OpKind distinguishes insert from delete operations in a DatabaseTransaction
type OpKind uint8

const (
	OpInsert OpKind = iota
	OpDelete
)

// Op is one write of a DatabaseTransaction
type Op struct {
	Kind  OpKind
	Col   Column
	Key   []byte
	Value []byte
}

// DatabaseTransaction is an ordered list of writes committed by Storage.Batch
type DatabaseTransaction struct {
	ops []Op
}

func NewDatabaseTransaction() *DatabaseTransaction {
	return &DatabaseTransaction{}
}

// Insert adds a key-value pair to the transaction
func (t *DatabaseTransaction) Insert(col Column, key, value []byte) {
	t.ops = append(t.ops, Op{Kind: OpInsert, Col: col, Key: key, Value: value})
}

// Delete adds a deletion to the transaction
func (t *DatabaseTransaction) Delete(col Column, key []byte) {
	t.ops = append(t.ops, Op{Kind: OpDelete, Col: col, Key: key})
}

// Ops returns the staged operations in insertion order
func (t *DatabaseTransaction) Ops() []Op {
	return t.ops
}

func (t *DatabaseTransaction) Len() int {
	return len(t.ops)
}

// Reset clears the transaction
func (t *DatabaseTransaction) Reset() {
	t.ops = t.ops[:0]
}

// validate rejects unknown columns before any backend write starts
func (t *DatabaseTransaction) validate() error {
	for _, op := range t.ops {
		if !op.Col.Valid() {
			return lerrors.NewError(lerrors.ErrKindIO, fmt.Sprintf("%s: %d", lerrors.ErrMsgUnknownColumn, op.Col))
		}
		if op.Kind != OpInsert && op.Kind != OpDelete {
			return lerrors.NewError(lerrors.ErrKindIO, fmt.Sprintf("unknown op kind: %d", op.Kind))
		}
	}
	return nil
}

func errReadOnly() error {
	return lerrors.NewError(lerrors.ErrKindReadOnly, lerrors.ErrMsgReadOnly)
}

func errClosed() error {
	return lerrors.NewError(lerrors.ErrKindIO, lerrors.ErrMsgClosed)
}

func errUnknownColumn(col Column) error {
	return lerrors.NewError(lerrors.ErrKindIO, fmt.Sprintf("%s: %d", lerrors.ErrMsgUnknownColumn, col))
}
