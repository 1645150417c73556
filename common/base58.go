package common

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// EncodeBytesToBase58 encodes bytes directly to base58
func EncodeBytesToBase58(bytes []byte) string {
	return base58.Encode(bytes)
}

// EncodeHash32 encodes a block hash, transaction id or tree digest
func EncodeHash32(h [32]byte) string {
	return base58.Encode(h[:])
}

// DecodeHash32 decodes the output of EncodeHash32
func DecodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	bytes, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("failed to decode base58 string: %w", err)
	}
	if len(bytes) != len(out) {
		return out, fmt.Errorf("invalid hash length: expected %d, got %d", len(out), len(bytes))
	}
	copy(out[:], bytes)
	return out, nil
}
