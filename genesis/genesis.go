// Package genesis holds the block every ledger starts from.
package genesis

import (
	_ "embed"
	"fmt"

	"github.com/mezonai/ledgerstore/block"
)

//go:embed block.bin
var genesisBlock []byte

// Bytes returns a copy of the encoded genesis block
func Bytes() []byte {
	return append([]byte(nil), genesisBlock...)
}

// Block decodes the embedded genesis block
func Block() (*block.Block, error) {
	blk, err := block.DecodeBlock(genesisBlock)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	return blk, nil
}

// MustBlock is Block for setup paths where a bad genesis payload cannot be recovered from
func MustBlock() *block.Block {
	blk, err := Block()
	if err != nil {
		panic(err)
	}
	return blk
}
