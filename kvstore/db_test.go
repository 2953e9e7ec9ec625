package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "kv"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	key := []byte{byte(TagFileByID), 1}
	require.NoError(t, db.Update(func(txn *Txn) error {
		return txn.Put(key, []byte("value"), false)
	}))

	var got []byte
	require.NoError(t, db.View(func(txn *Txn) error {
		v, found, err := txn.Get(key)
		require.NoError(t, err)
		require.True(t, found)
		got = v
		return nil
	}))
	assert.Equal(t, []byte("value"), got)
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.View(func(txn *Txn) error {
		_, found, err := txn.Get([]byte("missing"))
		require.NoError(t, err)
		assert.False(t, found)
		return nil
	}))
}

func TestNoOverwritePutRejectsCollision(t *testing.T) {
	db := openTestDB(t)
	key := []byte("k")
	require.NoError(t, db.Update(func(txn *Txn) error {
		return txn.Put(key, []byte("first"), true)
	}))

	err := db.Update(func(txn *Txn) error {
		return txn.Put(key, []byte("second"), true)
	})
	assert.ErrorIs(t, err, ErrKeyExists)

	require.NoError(t, db.View(func(txn *Txn) error {
		v, _, err := txn.Get(key)
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), v)
		return nil
	}))
}

func TestCursorWalksPrefixInOrder(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Update(func(txn *Txn) error {
		for i := byte(0); i < 5; i++ {
			if err := txn.Put([]byte{byte(TagFileByID), i}, nil, false); err != nil {
				return err
			}
		}
		return nil
	}))

	var seen []byte
	require.NoError(t, db.View(func(txn *Txn) error {
		return txn.Cursor([]byte{byte(TagFileByID)}, func(key, _ []byte) (bool, error) {
			seen = append(seen, key[1])
			return true, nil
		})
	}))
	assert.Equal(t, []byte{0, 1, 2, 3, 4}, seen)
}

func TestCursorReverseWalksPrefixDescending(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Update(func(txn *Txn) error {
		for i := byte(0); i < 5; i++ {
			if err := txn.Put([]byte{byte(TagFileByID), i}, nil, false); err != nil {
				return err
			}
		}
		return nil
	}))

	var seen []byte
	require.NoError(t, db.View(func(txn *Txn) error {
		return txn.CursorReverse([]byte{byte(TagFileByID)}, func(key, _ []byte) (bool, error) {
			seen = append(seen, key[1])
			return true, nil
		})
	}))
	assert.Equal(t, []byte{4, 3, 2, 1, 0}, seen)
}

func TestCursorEarlyStop(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Update(func(txn *Txn) error {
		for i := byte(0); i < 5; i++ {
			if err := txn.Put([]byte{byte(TagFileByID), i}, nil, false); err != nil {
				return err
			}
		}
		return nil
	}))

	count := 0
	require.NoError(t, db.View(func(txn *Txn) error {
		return txn.Cursor([]byte{byte(TagFileByID)}, func(_, _ []byte) (bool, error) {
			count++
			return count < 2, nil
		})
	}))
	assert.Equal(t, 2, count)
}

func TestNextIDSkipsZeroAndIsMonotonic(t *testing.T) {
	db := openTestDB(t)
	first, err := db.NextID(TagFileByID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first)

	second, err := db.NextID(TagFileByID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second)
}

func TestNextIDNamespacesIndependently(t *testing.T) {
	db := openTestDB(t)
	fileID, err := db.NextID(TagFileByID)
	require.NoError(t, err)
	userID, err := db.NextID(TagUserByID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fileID)
	assert.Equal(t, uint64(1), userID)
}

func TestUpdateAbortsOnError(t *testing.T) {
	db := openTestDB(t)
	key := []byte("k")
	boom := assert.AnError
	err := db.Update(func(txn *Txn) error {
		if err := txn.Put(key, []byte("v"), false); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, db.View(func(txn *Txn) error {
		_, found, err := txn.Get(key)
		require.NoError(t, err)
		assert.False(t, found)
		return nil
	}))
}
