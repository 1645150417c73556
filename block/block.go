package block

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2s"

	"github.com/mezonai/ledgerstore/merkle"
)

// HashLength is the size of block hashes and transaction ids
const HashLength = 32

// BlockHash identifies a block by the hash of its encoded header
type BlockHash [HashLength]byte

// TransactionID identifies a transaction by the hash of its encoding
type TransactionID [HashLength]byte

func (h BlockHash) String() string {
	return hex.EncodeToString(h[:])
}

func (id TransactionID) String() string {
	return hex.EncodeToString(id[:])
}

type Header struct {
	PreviousBlockHash BlockHash // Hash of the previous block, zero for genesis
	MerkleRootHash    [32]byte  // Root over the transaction ids
	Time              int64     // Unix seconds at assembly
	Nonce             uint32
}

// Transaction carries the record commitments it creates. Everything else about
// a transaction is opaque to the ledger store and travels in Memo.
type Transaction struct {
	NewCommitments []merkle.Commitment
	Memo           []byte
}

type Block struct {
	Header       Header
	Transactions []Transaction
}

// AssembleBlock builds a block on top of prevHash and fills in the transactions root
func AssembleBlock(prevHash BlockHash, nonce uint32, txs []Transaction) *Block {
	b := &Block{
		Header: Header{
			PreviousBlockHash: prevHash,
			Time:              time.Now().Unix(),
			Nonce:             nonce,
		},
		Transactions: txs,
	}
	b.Header.MerkleRootHash = TransactionsRoot(txs)
	return b
}

// Hash returns the block hash
func (h *Header) Hash() BlockHash {
	return blake2s.Sum256(EncodeHeader(h))
}

// Hash returns the hash of the block header
func (b *Block) Hash() BlockHash {
	return b.Header.Hash()
}

// ID returns the transaction id
func (tx *Transaction) ID() TransactionID {
	return blake2s.Sum256(EncodeTransaction(tx))
}

// Commitments returns every commitment created by the block, in transaction order
func (b *Block) Commitments() []merkle.Commitment {
	var out []merkle.Commitment
	for i := range b.Transactions {
		out = append(out, b.Transactions[i].NewCommitments...)
	}
	return out
}

// TransactionsRoot computes the merkle root over the transaction ids.
// An odd node at any level is paired with itself; no transactions give a zero root.
func TransactionsRoot(txs []Transaction) [32]byte {
	if len(txs) == 0 {
		return [32]byte{}
	}

	level := make([][32]byte, len(txs))
	for i := range txs {
		level[i] = txs[i].ID()
	}

	for len(level) > 1 {
		next := make([][32]byte, (len(level)+1)/2)
		for i := range next {
			left := level[2*i]
			right := left // compensate for odd number
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			var buf [64]byte
			copy(buf[:32], left[:])
			copy(buf[32:], right[:])
			next[i] = blake2s.Sum256(buf[:])
		}
		level = next
	}
	return level[0]
}
