package store

import (
	"encoding/binary"
	"fmt"

	lerrors "github.com/mezonai/ledgerstore/errors"
)

// Singleton keys of the meta column
const (
	KeyBestBlockNumber = "BEST_BLOCK_NUMBER"
	KeyPeerBook        = "PEER_BOOK"
	KeyCurrCmIndex     = "CURR_CM_INDEX"
)

// u32Length is the width of every integer stored as a value or key
const u32Length = 4

// EncodeU32 encodes heights and commitment indices as 4 big-endian bytes
func EncodeU32(v uint32) []byte {
	buf := make([]byte, u32Length)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeU32 decodes the output of EncodeU32
func DecodeU32(buf []byte) (uint32, error) {
	if len(buf) != u32Length {
		return 0, lerrors.NewDecodeError(nil, fmt.Sprintf("%s: expected %d bytes, got %d", lerrors.ErrMsgInvalidIntegerLen, u32Length, len(buf)))
	}
	return binary.BigEndian.Uint32(buf), nil
}
