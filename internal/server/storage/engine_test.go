package storage

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := Open(dir, Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOpen_CreatesDirectoryAndNamespaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	e := openTestEngine(t, dir)

	assert.DirExists(t, dir)
	assert.FileExists(t, filepath.Join(dir, dbFileName))
	assert.Equal(t, dir, e.Dir())
	assert.Equal(t, uint64(0), e.IDs().Last())

	for _, ns := range []Namespace{NamespaceDefault, NamespaceIndex, NamespaceData} {
		n, err := e.Len(ns)
		require.NoError(t, err)
		assert.Zero(t, n, "namespace %s", ns)
	}
}

func TestOpen_LockedDirectoryIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	openTestEngine(t, dir)

	_, err := Open(dir, Options{NoSync: true})
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestOpen_UncreatableDirectoryIsUnavailable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := Open(filepath.Join(file, "store"), Options{})
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestClose_ReleasesLock(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, Options{NoSync: true})
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close(), "second close returns the first result")

	again, err := Open(dir, Options{NoSync: true})
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestAtomicBatch_PutGetDelete(t *testing.T) {
	e := openTestEngine(t, t.TempDir())

	require.NoError(t, e.AtomicBatch([]Op{
		Put(NamespaceIndex, []byte("i"), []byte("p")),
		Put(NamespaceData, []byte("p"), []byte("payload\x00")),
	}))

	v, err := e.Get(NamespaceData, []byte("p"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload\x00"), v)

	_, err = e.Get(NamespaceIndex, []byte("p"))
	require.ErrorIs(t, err, common.ErrorNotFound, "namespaces never share keys")

	require.NoError(t, e.AtomicBatch([]Op{
		Delete(NamespaceIndex, []byte("i")),
		Delete(NamespaceData, []byte("p")),
	}))
	_, err = e.Get(NamespaceData, []byte("p"))
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAtomicBatch_FailureCommitsNothing(t *testing.T) {
	e := openTestEngine(t, t.TempDir())

	err := e.AtomicBatch([]Op{
		Put(NamespaceIndex, []byte("i"), []byte("p")),
		Put(NamespaceData, []byte{}, []byte("empty keys are rejected by the engine")),
	})
	require.ErrorIs(t, err, common.ErrStorageWrite)

	_, err = e.Get(NamespaceIndex, []byte("i"))
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate_ReadsOwnWrites(t *testing.T) {
	e := openTestEngine(t, t.TempDir())

	err := e.Update(func(tx *Txn) error {
		if err := tx.Put(NamespaceIndex, []byte("k"), []byte("v1")); err != nil {
			return err
		}
		v, err := tx.Get(NamespaceIndex, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), v)

		missing, err := tx.Get(NamespaceIndex, []byte("nope"))
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestIterate_ForwardOrderAndEarlyStop(t *testing.T) {
	e := openTestEngine(t, t.TempDir())

	var ops []Op
	for _, ts := range []uint64{10, 30, 20} {
		ops = append(ops, Put(NamespaceData, EncodePrimaryKey(ts, ts), []byte{byte(ts)}))
	}
	require.NoError(t, e.AtomicBatch(ops))

	var seen []uint64
	require.NoError(t, e.Iterate(NamespaceData, func(k, v []byte) (bool, error) {
		ts, _ := DecodePrimaryKey(k)
		seen = append(seen, ts)
		return true, nil
	}))
	assert.Equal(t, []uint64{30, 20, 10}, seen)

	seen = nil
	require.NoError(t, e.IterateFrom(NamespaceData, EncodePrimaryKey(20, 20), func(k, v []byte) (bool, error) {
		ts, _ := DecodePrimaryKey(k)
		seen = append(seen, ts)
		return false, nil
	}))
	assert.Equal(t, []uint64{20}, seen)
}

func TestIterate_CallbackErrorIsReturned(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	require.NoError(t, e.AtomicBatch([]Op{Put(NamespaceData, []byte("a"), []byte("1"))}))

	boom := assert.AnError
	err := e.Iterate(NamespaceData, func(k, v []byte) (bool, error) { return true, boom })
	require.ErrorIs(t, err, boom)
}

func TestReopen_RecoversHighestID(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir, Options{NoSync: true})
	require.NoError(t, err)
	var ops []Op
	for _, id := range []uint64{3, 250, 17} {
		ops = append(ops, Put(NamespaceIndex, EncodeIndexKey(id), EncodePrimaryKey(1, id)))
	}
	require.NoError(t, e.AtomicBatch(ops))
	require.NoError(t, e.Close())

	reopened := openTestEngine(t, dir)
	assert.Equal(t, uint64(250), reopened.IDs().Last())
	next, err := reopened.IDs().Allocate()
	require.NoError(t, err)
	assert.Greater(t, next, uint64(250))
}

func TestOpen_ExhaustedIDSpaceStaysExhausted(t *testing.T) {
	dir := t.TempDir()
	e := openTestEngine(t, dir)
	require.NoError(t, e.AtomicBatch([]Op{
		Put(NamespaceIndex, EncodeIndexKey(math.MaxUint64), EncodePrimaryKey(1, math.MaxUint64)),
	}))
	require.NoError(t, e.Close())

	reopened := openTestEngine(t, dir)
	_, err := reopened.IDs().Allocate()
	assert.ErrorIs(t, err, common.ErrIDExhausted)
}

func TestSnapshot_IsOpenable(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	require.NoError(t, e.AtomicBatch([]Op{
		Put(NamespaceIndex, EncodeIndexKey(9), EncodePrimaryKey(5, 9)),
		Put(NamespaceData, EncodePrimaryKey(5, 9), []byte("nine")),
	}))

	var buf bytes.Buffer
	n, err := e.Snapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	restored := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(restored, dbFileName), buf.Bytes(), 0o600))

	copyEngine := openTestEngine(t, restored)
	assert.Equal(t, uint64(9), copyEngine.IDs().Last())
	v, err := copyEngine.Get(NamespaceData, EncodePrimaryKey(5, 9))
	require.NoError(t, err)
	assert.Equal(t, []byte("nine"), v)
}

func TestStats_CountsKeys(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, Options{NoSync: true, Statistics: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	assert.True(t, e.StatisticsEnabled())

	require.NoError(t, e.AtomicBatch([]Op{
		Put(NamespaceIndex, EncodeIndexKey(1), EncodePrimaryKey(1, 1)),
		Put(NamespaceData, EncodePrimaryKey(1, 1), []byte("x")),
	}))

	s, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, s.IndexKeys)
	assert.Equal(t, 1, s.DataKeys)
	assert.Positive(t, s.TxWrite)
}

func TestView_ReturnsCallbackErrorUnwrapped(t *testing.T) {
	e := openTestEngine(t, t.TempDir())

	err := e.View(func(tx *Txn) error { return common.ErrorNotFound })
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NotErrorIs(t, err, common.ErrStorageRead)

	err = e.View(func(tx *Txn) error { return tx.Put(NamespaceData, []byte("k"), []byte("v")) })
	require.Error(t, err, "read-only transactions reject writes")
}

func TestStats_DisabledByDefault(t *testing.T) {
	e := openTestEngine(t, t.TempDir())
	assert.False(t, e.StatisticsEnabled())

	_, err := e.Stats()
	assert.ErrorIs(t, err, common.ErrStatisticsDisabled)
}
