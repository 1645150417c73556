package errors

import (
	stderrors "errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageErrorKinds(t *testing.T) {
	err := NewError(ErrKindMissingMetadata, ErrMsgBestBlockNumber)
	require.Error(t, err)
	assert.True(t, Is(err, ErrKindMissingMetadata))
	assert.False(t, Is(err, ErrKindIO))
	assert.Equal(t, "missing_metadata: can't obtain the best block's number", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	err := NewIOError(fs.ErrNotExist, "open ledger")
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
	assert.True(t, Is(err, ErrKindIO))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindIO, kind)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(ErrKindIO, nil, "nothing"))

	_, ok := KindOf(stderrors.New("plain"))
	assert.False(t, ok)

	assert.True(t, Is(NewDecodeError(nil, "short"), ErrKindDecode))
}
