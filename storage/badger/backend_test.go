package badger

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/catalogsync/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir() + "/nested/db"
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func TestWithTx(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	t.Run("committed write is visible", func(t *testing.T) {
		err := backend.WithTx(func(tx *badger.Txn) error {
			if err := tx.Set([]byte("k"), []byte("v")); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		require.NoError(t, err)

		err = backend.WithTx(func(tx *badger.Txn) error {
			item, err := tx.Get([]byte("k"))
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			assert.Equal(t, "v", string(val))
			return err
		}, false)
		require.NoError(t, err)
	})

	t.Run("failed transaction is discarded", func(t *testing.T) {
		err := backend.WithTx(func(tx *badger.Txn) error {
			if err := tx.Set([]byte("discarded"), []byte("v")); err != nil {
				return err
			}
			return assert.AnError
		}, true)
		assert.Equal(t, assert.AnError, err)

		err = backend.WithTx(func(tx *badger.Txn) error {
			_, err := tx.Get([]byte("discarded"))
			return err
		}, false)
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)
	})
}

func TestGetSequence(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	seq, err := backend.GetSequence("test_sequence")
	require.NoError(t, err)
	require.NotNil(t, seq)
	defer seq.Release()

	// Get sequential IDs
	id1, err := seq.Next()
	require.NoError(t, err)

	id2, err := seq.Next()
	require.NoError(t, err)

	// IDs should be sequential
	assert.Greater(t, id2, id1)
}

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind storage.ErrorKind
	}{
		{"db closed", badger.ErrDBClosed, storage.KindConnectionLost},
		{"blocked writes", badger.ErrBlockedWrites, storage.KindConnectionLost},
		{"conflict", badger.ErrConflict, storage.KindConnectionLost},
		{"storage closed", storage.ErrStorageClosed, storage.KindConnectionLost},
		{"too big", badger.ErrTxnTooBig, storage.KindWriteRejected},
		{"other", errors.New("disk full"), storage.KindWriteRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := classifyErr(tt.err)
			assert.Equal(t, tt.kind, se.Kind)
			assert.ErrorIs(t, se, tt.err)
		})
	}

	t.Run("storage errors pass through", func(t *testing.T) {
		orig := storage.NewStorageError(storage.KindDuplicateKey, storage.ErrDuplicateKey)
		assert.Same(t, orig, classifyErr(orig))
	})
}
