package merkle

import (
	"encoding/hex"
	"fmt"

	lerrors "github.com/mezonai/ledgerstore/errors"
)

// number of bytes in a commitment and in a digest
const (
	CommitmentLength = 32
	DigestLength     = 32
)

// Commitment is a record commitment: one leaf of the commitment tree
type Commitment [CommitmentLength]byte

// Digest is a node of the commitment tree
type Digest [DigestLength]byte

// CommitmentFromBytes converts and validates a byte slice to a commitment
func CommitmentFromBytes(buffer []byte) (Commitment, error) {
	var cm Commitment
	if len(buffer) != CommitmentLength {
		return cm, lerrors.NewDecodeError(nil, fmt.Sprintf("invalid commitment length: expected: %d  actual: %d", CommitmentLength, len(buffer)))
	}
	copy(cm[:], buffer)
	return cm, nil
}

// CommitmentFromHex parses a hex encoded commitment
func CommitmentFromHex(s string) (Commitment, error) {
	buffer, err := hex.DecodeString(s)
	if err != nil {
		return Commitment{}, lerrors.NewDecodeError(err, "invalid commitment hex")
	}
	return CommitmentFromBytes(buffer)
}

func (cm Commitment) Bytes() []byte {
	return cm[:]
}

func (cm Commitment) String() string {
	return hex.EncodeToString(cm[:])
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
