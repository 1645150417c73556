package block

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	lerrors "github.com/mezonai/ledgerstore/errors"
	"github.com/mezonai/ledgerstore/merkle"
)

// Wire layout, protobuf compatible:
//
//	Header      { 1: bytes previous_block_hash, 2: bytes merkle_root_hash, 3: int64 time, 4: uint32 nonce }
//	Transaction { 1: repeated bytes new_commitments, 2: bytes memo }
//	Block       { 1: Header header, 2: repeated Transaction transactions }
const (
	headerPrevHashField   protowire.Number = 1
	headerMerkleRootField protowire.Number = 2
	headerTimeField       protowire.Number = 3
	headerNonceField      protowire.Number = 4

	txCommitmentField protowire.Number = 1
	txMemoField       protowire.Number = 2

	blockHeaderField      protowire.Number = 1
	blockTransactionField protowire.Number = 2
)

func EncodeHeader(h *Header) []byte {
	var b []byte
	b = protowire.AppendTag(b, headerPrevHashField, protowire.BytesType)
	b = protowire.AppendBytes(b, h.PreviousBlockHash[:])
	b = protowire.AppendTag(b, headerMerkleRootField, protowire.BytesType)
	b = protowire.AppendBytes(b, h.MerkleRootHash[:])
	b = protowire.AppendTag(b, headerTimeField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Time))
	b = protowire.AppendTag(b, headerNonceField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Nonce))
	return b
}

func EncodeTransaction(tx *Transaction) []byte {
	var b []byte
	for _, cm := range tx.NewCommitments {
		b = protowire.AppendTag(b, txCommitmentField, protowire.BytesType)
		b = protowire.AppendBytes(b, cm[:])
	}
	if len(tx.Memo) > 0 {
		b = protowire.AppendTag(b, txMemoField, protowire.BytesType)
		b = protowire.AppendBytes(b, tx.Memo)
	}
	return b
}

// EncodeTransactions encodes a transaction list as the repeated field of a block
func EncodeTransactions(txs []Transaction) []byte {
	var b []byte
	for i := range txs {
		b = protowire.AppendTag(b, blockTransactionField, protowire.BytesType)
		b = protowire.AppendBytes(b, EncodeTransaction(&txs[i]))
	}
	return b
}

func EncodeBlock(blk *Block) []byte {
	var b []byte
	b = protowire.AppendTag(b, blockHeaderField, protowire.BytesType)
	b = protowire.AppendBytes(b, EncodeHeader(&blk.Header))
	return append(b, EncodeTransactions(blk.Transactions)...)
}

// fieldVisitor handles one field and returns the bytes consumed, or a negative
// protowire error code. Returning 0 skips the field.
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) int

func walkFields(b []byte, what string, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return pkgerrors.Wrapf(protowire.ParseError(n), "%s tag", what)
		}
		b = b[n:]

		m := visit(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return pkgerrors.Wrapf(protowire.ParseError(m), "%s field %d", what, num)
		}
		b = b[m:]
	}
	return nil
}

func copyHash(dst []byte, src []byte, what string) error {
	if len(src) != HashLength {
		return pkgerrors.Errorf("%s: expected %d bytes, got %d", what, HashLength, len(src))
	}
	copy(dst, src)
	return nil
}

func DecodeHeader(b []byte) (*Header, error) {
	h := &Header{}
	var fieldErr error
	err := walkFields(b, "header", func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == headerPrevHashField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 && fieldErr == nil {
				fieldErr = copyHash(h.PreviousBlockHash[:], v, "previous block hash")
			}
			return n
		case num == headerMerkleRootField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 && fieldErr == nil {
				fieldErr = copyHash(h.MerkleRootHash[:], v, "merkle root hash")
			}
			return n
		case num == headerTimeField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			h.Time = int64(v)
			return n
		case num == headerNonceField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if v > uint64(^uint32(0)) && fieldErr == nil {
				fieldErr = pkgerrors.Errorf("nonce %d overflows uint32", v)
			}
			h.Nonce = uint32(v)
			return n
		}
		return 0
	})
	if err == nil {
		err = fieldErr
	}
	if err != nil {
		return nil, lerrors.NewDecodeError(err, "failed to decode block header")
	}
	return h, nil
}

func DecodeTransaction(b []byte) (*Transaction, error) {
	tx := &Transaction{}
	var fieldErr error
	err := walkFields(b, "transaction", func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.BytesType {
			return 0
		}
		switch num {
		case txCommitmentField:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 && fieldErr == nil {
				cm, err := merkle.CommitmentFromBytes(v)
				if err != nil {
					fieldErr = err
				}
				tx.NewCommitments = append(tx.NewCommitments, cm)
			}
			return n
		case txMemoField:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				tx.Memo = append([]byte(nil), v...)
			}
			return n
		}
		return 0
	})
	if err == nil {
		err = fieldErr
	}
	if err != nil {
		return nil, lerrors.NewDecodeError(err, "failed to decode transaction")
	}
	return tx, nil
}

// DecodeTransactions decodes the output of EncodeTransactions
func DecodeTransactions(b []byte) ([]Transaction, error) {
	var txs []Transaction
	var fieldErr error
	err := walkFields(b, "block", func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != blockTransactionField || typ != protowire.BytesType {
			return 0
		}
		v, n := protowire.ConsumeBytes(b)
		if n >= 0 && fieldErr == nil {
			tx, err := DecodeTransaction(v)
			if err != nil {
				fieldErr = err
				return n
			}
			txs = append(txs, *tx)
		}
		return n
	})
	if err == nil {
		err = fieldErr
	}
	if err != nil {
		return nil, lerrors.NewDecodeError(err, "failed to decode transactions")
	}
	return txs, nil
}

func DecodeBlock(b []byte) (*Block, error) {
	blk := &Block{}
	var fieldErr error
	seenHeader := false
	err := walkFields(b, "block", func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.BytesType {
			return 0
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 || fieldErr != nil {
			return n
		}
		switch num {
		case blockHeaderField:
			h, err := DecodeHeader(v)
			if err != nil {
				fieldErr = err
				return n
			}
			blk.Header = *h
			seenHeader = true
		case blockTransactionField:
			tx, err := DecodeTransaction(v)
			if err != nil {
				fieldErr = err
				return n
			}
			blk.Transactions = append(blk.Transactions, *tx)
		}
		return n
	})
	if err == nil {
		err = fieldErr
	}
	if err == nil && !seenHeader {
		err = fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, lerrors.NewDecodeError(err, "failed to decode block")
	}
	return blk, nil
}
