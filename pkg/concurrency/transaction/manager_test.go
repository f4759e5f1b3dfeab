package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storecore/pkg/dberror"
	"storecore/pkg/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePool struct {
	mutex     sync.Mutex
	commitErr error
	committed []primitives.TransactionID
	aborted   []primitives.TransactionID
}

func (p *fakePool) Commit(tid primitives.TransactionID) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.commitErr != nil {
		return p.commitErr
	}
	p.committed = append(p.committed, tid)
	return nil
}

func (p *fakePool) Abort(tid primitives.TransactionID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.aborted = append(p.aborted, tid)
}

type fakeLog struct {
	mutex    sync.Mutex
	lsn      primitives.LSN
	beginErr error
	events   []string
}

func (l *fakeLog) next(kind string, tid primitives.TransactionID) primitives.LSN {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.lsn++
	l.events = append(l.events, kind+" "+tid.String())
	return l.lsn
}

func (l *fakeLog) LogBegin(tid primitives.TransactionID) (primitives.LSN, error) {
	if l.beginErr != nil {
		return 0, l.beginErr
	}
	return l.next("begin", tid), nil
}

func (l *fakeLog) LogCommit(tid primitives.TransactionID) (primitives.LSN, error) {
	return l.next("commit", tid), nil
}

func (l *fakeLog) LogAbort(tid primitives.TransactionID) (primitives.LSN, error) {
	return l.next("abort", tid), nil
}

func TestManager_BeginCommit(t *testing.T) {
	pool, log := &fakePool{}, &fakeLog{}
	m := NewManager(pool, log)

	tx, err := m.Begin()
	require.NoError(t, err)
	assert.True(t, tx.IsActive())
	assert.Equal(t, primitives.LSN(1), tx.BeginLSN())
	assert.Equal(t, 1, m.Registry().Count())

	require.NoError(t, m.Commit(tx))
	assert.Equal(t, TxCommitted, tx.GetStatus())
	assert.Equal(t, []primitives.TransactionID{tx.ID}, pool.committed)
	assert.Equal(t, []string{"begin " + tx.ID.String(), "commit " + tx.ID.String()}, log.events)
	assert.Zero(t, m.Registry().Count())

	_, err = m.Registry().Get(tx.ID)
	assert.ErrorIs(t, err, dberror.ErrTxnNotFound)
}

func TestManager_Abort(t *testing.T) {
	pool, log := &fakePool{}, &fakeLog{}
	m := NewManager(pool, log)

	tx, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, m.Abort(tx))

	assert.Equal(t, TxAborted, tx.GetStatus())
	assert.Equal(t, []primitives.TransactionID{tx.ID}, pool.aborted)
	assert.Empty(t, pool.committed)

	err = m.Commit(tx)
	assert.ErrorIs(t, err, dberror.ErrTxnNotActive, "ended transactions cannot commit")
	assert.ErrorIs(t, m.Abort(tx), dberror.ErrTxnNotActive)
}

func TestManager_FailedCommitAborts(t *testing.T) {
	diskFull := errors.New("disk full")
	pool, log := &fakePool{commitErr: diskFull}, &fakeLog{}
	m := NewManager(pool, log)

	tx, err := m.Begin()
	require.NoError(t, err)

	err = m.Commit(tx)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, TxAborted, tx.GetStatus())
	assert.Equal(t, []primitives.TransactionID{tx.ID}, pool.aborted)
	assert.Contains(t, log.events, "abort "+tx.ID.String())
}

func TestManager_BeginLogFailure(t *testing.T) {
	m := NewManager(&fakePool{}, &fakeLog{beginErr: errors.New("closed")})

	_, err := m.Begin()
	assert.Error(t, err)
	assert.Zero(t, m.Registry().Count())
}

func TestManager_RunRetriesAborts(t *testing.T) {
	pool := &fakePool{}
	m := NewManager(pool, &fakeLog{})

	calls := 0
	aborts, err := m.Run(context.Background(), RetryPolicy{MaxAttempts: 5}, func(tx *TransactionContext) error {
		calls++
		if calls < 3 {
			return dberror.ErrTransactionAborted
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, aborts)
	assert.Len(t, pool.aborted, 2)
	assert.Len(t, pool.committed, 1)
}

func TestManager_RunGivesUp(t *testing.T) {
	m := NewManager(&fakePool{}, &fakeLog{})

	aborts, err := m.Run(context.Background(), RetryPolicy{MaxAttempts: 2}, func(tx *TransactionContext) error {
		return dberror.ErrDeadlock
	})

	assert.True(t, dberror.IsAbort(err))
	assert.Equal(t, 2, aborts)
}

func TestManager_RunStopsOnOtherErrors(t *testing.T) {
	pool := &fakePool{}
	m := NewManager(pool, &fakeLog{})
	boom := errors.New("boom")

	calls := 0
	_, err := m.Run(context.Background(), RetryPolicy{MaxAttempts: 5}, func(tx *TransactionContext) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Len(t, pool.aborted, 1)
}

func TestManager_RunHonoursContext(t *testing.T) {
	m := NewManager(&fakePool{}, &fakeLog{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Run(ctx, RetryPolicy{MaxAttempts: 3}, func(tx *TransactionContext) error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_GetActive(t *testing.T) {
	r := NewTransactionRegistry()
	a, b := r.Register(), r.Register()
	b.SetStatus(TxCommitting)

	active := r.GetActive()
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
	assert.Equal(t, 2, r.Count())

	r.Remove(a.ID)
	got, err := r.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestTransactionStatus_String(t *testing.T) {
	assert.Equal(t, "ACTIVE", TxActive.String())
	assert.Equal(t, "ABORTED", TxAborted.String())
	assert.True(t, TxCommitted.IsFinal())
	assert.False(t, TxCommitting.IsFinal())
}
