package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"stakebank/storage"
)

func TestKVStagesUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	require.NoError(t, mgr.KVPut([]byte("answer"), uint64(42)))
	require.Equal(t, 1, mgr.Dirty())
	require.Equal(t, 0, db.Len())

	var got uint64
	ok, err := mgr.KVGet([]byte("answer"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), got)

	require.NoError(t, mgr.Commit())
	require.Equal(t, 0, mgr.Dirty())
	require.Equal(t, 1, db.Len())

	reopened := NewManager(db)
	ok, err = reopened.KVGet([]byte("answer"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), got)
}

func TestKVDiscard(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	require.NoError(t, mgr.KVPut([]byte("kept"), uint64(1)))
	require.NoError(t, mgr.Commit())

	require.NoError(t, mgr.KVPut([]byte("kept"), uint64(2)))
	require.NoError(t, mgr.KVPut([]byte("dropped"), uint64(3)))
	mgr.Discard()

	var got uint64
	ok, err := mgr.KVGet([]byte("kept"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), got)

	ok, err = mgr.KVGet([]byte("dropped"), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVDelete(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	require.NoError(t, mgr.KVPut([]byte("gone"), big.NewInt(7)))
	require.NoError(t, mgr.Commit())

	require.NoError(t, mgr.KVDelete([]byte("gone")))
	ok, err := mgr.KVGet([]byte("gone"), nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mgr.Commit())
	require.Equal(t, 0, db.Len())
}

func TestKVAppendDeduplicates(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	key := []byte("list")

	var empty [][]byte
	require.NoError(t, mgr.KVGetList(key, &empty))
	require.NotNil(t, empty)
	require.Len(t, empty, 0)

	require.NoError(t, mgr.KVAppend(key, []byte("a")))
	require.NoError(t, mgr.KVAppend(key, []byte("b")))
	require.NoError(t, mgr.KVAppend(key, []byte("a")))

	var list [][]byte
	require.NoError(t, mgr.KVGetList(key, &list))
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, list)
}

func TestKVRejectsEmptyKey(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	require.ErrorIs(t, mgr.KVPut(nil, uint64(1)), ErrEmptyKey)
	_, err := mgr.KVGet(nil, nil)
	require.ErrorIs(t, err, ErrEmptyKey)
	require.ErrorIs(t, mgr.KVDelete(nil), ErrEmptyKey)
	require.ErrorIs(t, mgr.KVAppend(nil, []byte("x")), ErrEmptyKey)
	require.ErrorIs(t, mgr.KVGetList(nil, &[][]byte{}), ErrEmptyKey)
}

func TestKVGetListRejectsNonSlice(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	var scalar uint64
	require.Error(t, mgr.KVGetList([]byte("missing"), &scalar))
	require.Error(t, mgr.KVGetList([]byte("missing"), nil))
}

func TestNilManager(t *testing.T) {
	var mgr *Manager
	require.Error(t, mgr.KVPut([]byte("k"), uint64(1)))
	require.Error(t, mgr.Commit())
	require.Equal(t, 0, mgr.Dirty())
	mgr.Discard()
}

func TestCommitPersistsToLevelDB(t *testing.T) {
	db, err := storage.NewMemLevelDB()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewManager(db)
	require.NoError(t, mgr.SetStateVersion(StateVersion))
	require.NoError(t, mgr.Commit())

	version, ok, err := NewManager(db).StateVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StateVersion, version)
}

func TestEnsureStateVersion(t *testing.T) {
	db := storage.NewMemDB()
	require.NoError(t, EnsureStateVersion(db, false))

	mgr := NewManager(db)
	require.NoError(t, mgr.SetStateVersion(StateVersion+1))
	require.NoError(t, mgr.Commit())

	require.ErrorIs(t, EnsureStateVersion(db, false), ErrStateVersionMismatch)
	require.NoError(t, EnsureStateVersion(db, true))
}

func TestContractVersion(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	_, ok, err := mgr.ContractVersion()
	require.NoError(t, err)
	require.False(t, ok)

	want := ContractVersion{Contract: "stakebank", Version: "1.0.0"}
	require.NoError(t, mgr.SetContractVersion(want))
	got, ok, err := mgr.ContractVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}
