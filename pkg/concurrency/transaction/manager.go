package transaction

import (
	"context"
	"time"

	"storecore/pkg/dberror"
	"storecore/pkg/logging"
	"storecore/pkg/primitives"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Pool is the buffer pool's transaction-end protocol.
type Pool interface {
	Commit(tid primitives.TransactionID) error
	Abort(tid primitives.TransactionID)
}

// Log records transaction boundaries.
type Log interface {
	LogBegin(tid primitives.TransactionID) (primitives.LSN, error)
	LogCommit(tid primitives.TransactionID) (primitives.LSN, error)
	LogAbort(tid primitives.TransactionID) (primitives.LSN, error)
}

// Manager begins and ends transactions, driving the buffer pool's commit
// and abort protocol and writing boundary records to the log.
type Manager struct {
	pool     Pool
	log      Log
	registry *TransactionRegistry
}

func NewManager(pool Pool, log Log) *Manager {
	return &Manager{pool: pool, log: log, registry: NewTransactionRegistry()}
}

func (m *Manager) Registry() *TransactionRegistry {
	return m.registry
}

// Begin starts a transaction and logs its Begin record.
func (m *Manager) Begin() (*TransactionContext, error) {
	tx := m.registry.Register()
	lsn, err := m.log.LogBegin(tx.ID)
	if err != nil {
		m.registry.Remove(tx.ID)
		return nil, errors.Wrap(err, "failed to log begin")
	}
	tx.setBeginLSN(lsn)
	logging.WithTx(tx.ID).Debug("transaction started")
	return tx, nil
}

// Commit runs the pool's commit protocol and then logs and forces the Commit
// record. If the pool cannot commit, the transaction is aborted and the
// commit error returned.
func (m *Manager) Commit(tx *TransactionContext) error {
	if !tx.transition(TxCommitting, TxActive) {
		return dberror.Detailed(dberror.ErrTxnNotActive, tx.ID.String()+" is "+tx.GetStatus().String(), "Commit", "TransactionManager")
	}

	if err := m.pool.Commit(tx.ID); err != nil {
		tx.SetStatus(TxActive)
		if abortErr := m.Abort(tx); abortErr != nil {
			logging.WithTx(tx.ID).Error("abort after failed commit", zap.Error(abortErr))
		}
		return err
	}

	// Pages are on disk and locks released; the transaction is committed
	// whether or not its Commit record makes it to the log.
	tx.SetStatus(TxCommitted)
	m.registry.Remove(tx.ID)

	if _, err := m.log.LogCommit(tx.ID); err != nil {
		return errors.Wrap(err, "failed to log commit")
	}
	logging.WithTx(tx.ID).Debug("transaction committed", zap.Duration("duration", tx.Duration()))
	return nil
}

// Abort rolls back the transaction's cached changes, releases its locks and
// logs the Abort record.
func (m *Manager) Abort(tx *TransactionContext) error {
	if !tx.transition(TxAborting, TxActive, TxCommitting) {
		return dberror.Detailed(dberror.ErrTxnNotActive, tx.ID.String()+" is "+tx.GetStatus().String(), "Abort", "TransactionManager")
	}

	m.pool.Abort(tx.ID)
	tx.SetStatus(TxAborted)
	m.registry.Remove(tx.ID)

	if _, err := m.log.LogAbort(tx.ID); err != nil {
		return errors.Wrap(err, "failed to log abort")
	}
	logging.WithTx(tx.ID).Debug("transaction aborted", zap.Duration("duration", tx.Duration()))
	return nil
}

// RetryPolicy bounds Run.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Run executes fn in a fresh transaction and commits it. If fn or the commit
// fails with an abort error, the transaction is aborted and fn retried in a new
// transaction, up to policy.MaxAttempts times. Other errors abort and return
// immediately. Run returns the number of aborted attempts alongside the result.
func (m *Manager) Run(ctx context.Context, policy RetryPolicy, fn func(tx *TransactionContext) error) (int, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	aborts := 0
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return aborts, err
		}

		tx, err := m.Begin()
		if err != nil {
			return aborts, err
		}

		err = fn(tx)
		if err != nil {
			if abortErr := m.Abort(tx); abortErr != nil {
				return aborts, abortErr
			}
		} else {
			err = m.Commit(tx)
		}

		if err == nil {
			return aborts, nil
		}
		if !dberror.IsAbort(err) {
			return aborts, err
		}

		aborts++
		if attempt >= policy.MaxAttempts {
			return aborts, err
		}

		select {
		case <-ctx.Done():
			return aborts, ctx.Err()
		case <-time.After(policy.Backoff * time.Duration(attempt)):
		}
	}
}
