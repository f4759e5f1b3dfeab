package wal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"storecore/pkg/dberror"
	"storecore/pkg/log/record"
	"storecore/pkg/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestWAL(t *testing.T, opts Options) (*WAL, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wal")
	w, err := Open(path, opts)
	require.NoError(t, err)
	return w, path
}

func readAll(t *testing.T, path string) []*record.LogRecord {
	t.Helper()
	r, err := NewLogReader(path)
	require.NoError(t, err)
	defer r.Close()
	recs, err := r.ReadAll()
	require.NoError(t, err)
	return recs
}

func TestWAL_TransactionLifecycle(t *testing.T) {
	for _, compress := range []bool{false, true} {
		w, path := openTestWAL(t, Options{CompressImages: compress})
		tid := primitives.NewTransactionID()
		pid := primitives.NewPageID(3, 1)

		begin, err := w.LogBegin(tid)
		require.NoError(t, err)
		update, err := w.LogWrite(tid, pid, []byte("before"), []byte("after"))
		require.NoError(t, err)
		assert.Greater(t, update, begin)
		assert.ElementsMatch(t, []primitives.TransactionID{tid}, w.ActiveTransactions())

		_, err = w.LogCommit(tid)
		require.NoError(t, err)
		assert.Empty(t, w.ActiveTransactions())

		recs := readAll(t, path)
		require.Len(t, recs, 3)
		assert.Equal(t, record.BeginRecord, recs[0].Type)
		assert.Equal(t, record.UpdateRecord, recs[1].Type)
		assert.Equal(t, record.CommitRecord, recs[2].Type)
		assert.Equal(t, begin, recs[1].PrevLSN)
		assert.Equal(t, update, recs[2].PrevLSN)
		assert.Equal(t, []byte("before"), recs[1].BeforeImage)
		assert.Equal(t, []byte("after"), recs[1].AfterImage)
		assert.Equal(t, pid, recs[1].PageID())

		require.NoError(t, w.Close())
	}
}

func TestWAL_CommitIsDurableWithoutClose(t *testing.T) {
	w, path := openTestWAL(t, Options{BufferSize: 1 << 20})
	tid := primitives.NewTransactionID()

	_, err := w.LogWrite(tid, primitives.NewPageID(1, 0), []byte("x"), []byte("y"))
	require.NoError(t, err)
	_, err = w.LogCommit(tid)
	require.NoError(t, err)

	assert.Len(t, readAll(t, path), 2)
	require.NoError(t, w.Close())
}

func TestWAL_ReopenKeepsLogIDAndAppends(t *testing.T) {
	w, path := openTestWAL(t, Options{})
	tid := primitives.NewTransactionID()
	_, err := w.LogBegin(tid)
	require.NoError(t, err)
	logID := w.LogID()
	require.NoError(t, w.Close())

	w2, err := Open(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, logID, w2.LogID())
	_, err = w2.LogAbort(tid)
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	recs := readAll(t, path)
	require.Len(t, recs, 2)
	assert.Equal(t, record.AbortRecord, recs[1].Type)
}

func TestWAL_TornTailIsTruncated(t *testing.T) {
	w, path := openTestWAL(t, Options{})
	_, err := w.LogBegin(primitives.NewTransactionID())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{0x20, 0, 0, 0, 1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w2, err := Open(path, Options{})
	require.NoError(t, err)
	_, err = w2.LogBegin(primitives.NewTransactionID())
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	assert.Len(t, readAll(t, path), 2)
}

func TestWAL_RejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wal")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a storecore log"), 0o600))

	_, err := Open(path, Options{})
	assert.ErrorIs(t, err, dberror.ErrLogCorrupted)
}

func TestWAL_ConcurrentWriters(t *testing.T) {
	w, path := openTestWAL(t, Options{BufferSize: 256})

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tid := primitives.NewTransactionID()
			for j := 0; j < perWriter; j++ {
				_, err := w.LogWrite(tid, primitives.NewPageID(1, primitives.PageNumber(j)), []byte{byte(j)}, []byte{byte(j + 1)})
				assert.NoError(t, err)
			}
			_, err := w.LogCommit(tid)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	assert.Len(t, readAll(t, path), writers*(perWriter+1))
}
