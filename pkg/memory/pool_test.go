package memory

import (
	"testing"
	"time"

	"storecore/pkg/dberror"
	"storecore/pkg/primitives"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPool_GetPageMissThenHit(t *testing.T) {
	f := newFixture(t, Options{MaxPages: 4}, "a", "b")
	tid := primitives.NewTransactionID()

	p1, err := f.pool.GetPage(tid, pid(0), primitives.ReadOnly)
	require.NoError(t, err)
	p2, err := f.pool.GetPage(tid, pid(0), primitives.ReadOnly)
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, f.store.reads)
	assert.True(t, f.pool.HoldsLock(tid, pid(0)))

	stats := f.pool.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Resident)
	assert.InDelta(t, 0.5, stats.HitRatio(), 1e-9)
}

func TestBufferPool_GetPageErrors(t *testing.T) {
	f := newFixture(t, Options{MaxPages: 4}, "a")
	tid := primitives.NewTransactionID()

	_, err := f.pool.GetPage(tid, pid(5), primitives.ReadOnly)
	assert.ErrorIs(t, err, dberror.ErrUnknownPage)

	_, err = f.pool.GetPage(tid, primitives.NewPageID(99, 0), primitives.ReadOnly)
	assert.ErrorIs(t, err, dberror.ErrUnknownTable)
}

func TestBufferPool_SharedReadersCoexist(t *testing.T) {
	f := newFixture(t, Options{MaxPages: 4}, "a")
	t1, t2 := primitives.NewTransactionID(), primitives.NewTransactionID()

	_, err := f.pool.GetPage(t1, pid(0), primitives.ReadOnly)
	require.NoError(t, err)
	_, err = f.pool.GetPage(t2, pid(0), primitives.ReadOnly)
	require.NoError(t, err)
}

func TestBufferPool_LockTimeoutAborts(t *testing.T) {
	f := newFixture(t, Options{MaxPages: 4, LockTimeout: 60 * time.Millisecond}, "a")
	reader, writer := primitives.NewTransactionID(), primitives.NewTransactionID()

	_, err := f.pool.GetPage(reader, pid(0), primitives.ReadOnly)
	require.NoError(t, err)

	start := time.Now()
	_, err = f.pool.GetPage(writer, pid(0), primitives.ReadWrite)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, dberror.ErrTransactionAborted)
	assert.True(t, dberror.IsAbort(err))
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.False(t, f.pool.HoldsLock(writer, pid(0)))
}

func TestBufferPool_WaiterProceedsAfterCommit(t *testing.T) {
	f := newFixture(t, Options{MaxPages: 4, LockTimeout: time.Second}, "a")
	holder, waiter := primitives.NewTransactionID(), primitives.NewTransactionID()

	_, err := f.pool.GetPage(holder, pid(0), primitives.ReadWrite)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.pool.GetPage(waiter, pid(0), primitives.ReadOnly)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.pool.Commit(holder))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not granted the lock")
	}
}

func TestBufferPool_DeadlockDetection(t *testing.T) {
	f := newFixture(t, Options{MaxPages: 4, LockTimeout: 2 * time.Second, DeadlockDetection: true}, "a", "b")
	t1, t2 := primitives.NewTransactionID(), primitives.NewTransactionID()

	_, err := f.pool.GetPage(t1, pid(0), primitives.ReadWrite)
	require.NoError(t, err)
	_, err = f.pool.GetPage(t2, pid(1), primitives.ReadWrite)
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := f.pool.GetPage(t1, pid(1), primitives.ReadWrite)
		first <- err
	}()
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	_, err = f.pool.GetPage(t2, pid(0), primitives.ReadWrite)
	require.ErrorIs(t, err, dberror.ErrDeadlock)
	assert.ErrorIs(t, err, dberror.ErrTransactionAborted)
	assert.Less(t, time.Since(start), time.Second)

	f.pool.Abort(t2)
	assert.NoError(t, <-first)
}

func TestBufferPool_ReleaseOnlyDropsOwnLock(t *testing.T) {
	f := newFixture(t, Options{MaxPages: 4}, "a")
	owner, other := primitives.NewTransactionID(), primitives.NewTransactionID()

	_, err := f.pool.GetPage(owner, pid(0), primitives.ReadWrite)
	require.NoError(t, err)

	f.pool.Release(other, pid(0))
	assert.True(t, f.pool.HoldsLock(owner, pid(0)))

	f.pool.Release(owner, pid(0))
	assert.False(t, f.pool.HoldsLock(owner, pid(0)))
}

func TestBufferPool_DiscardDropsWithoutWriting(t *testing.T) {
	f := newFixture(t, Options{MaxPages: 4}, "a")
	tid := primitives.NewTransactionID()

	_, err := f.pool.ApplyInsert(tid, testTable, []byte("dirty"))
	require.NoError(t, err)
	require.Equal(t, 1, f.pool.Stats().Dirty)

	f.pool.Discard(pid(0))

	stats := f.pool.Stats()
	assert.Zero(t, stats.Resident)
	assert.Zero(t, stats.Dirty)
	assert.Equal(t, "a", f.store.content(0))
	assert.Empty(t, f.rec.snapshot())
}

func TestBufferPool_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, Options{MaxPages: 1, Registerer: reg}, "a", "b")
	tid := primitives.NewTransactionID()

	_, err := f.pool.GetPage(tid, pid(0), primitives.ReadOnly)
	require.NoError(t, err)
	_, err = f.pool.GetPage(tid, pid(0), primitives.ReadOnly)
	require.NoError(t, err)
	_, err = f.pool.GetPage(tid, pid(1), primitives.ReadOnly)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.pool.metrics.Hits.(prometheus.Counter)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.pool.metrics.Misses.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.pool.metrics.Evictions.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.pool.metrics.ResidentPages.(prometheus.Gauge)))
}

func TestBufferPool_OptionsDefaults(t *testing.T) {
	pool := NewBufferPool(&memCatalog{}, &memLog{}, Options{})
	assert.Equal(t, 50, pool.MaxPages())
	assert.Equal(t, 250*time.Millisecond, pool.opts.LockTimeout)
	assert.Equal(t, 15*time.Millisecond, pool.opts.PollInterval)
	assert.False(t, pool.opts.DeadlockDetection)
}
