package transaction

import (
	"sync"
	"time"

	"storecore/pkg/primitives"
)

type TransactionStatus int

const (
	TxActive TransactionStatus = iota
	TxCommitting
	TxAborting
	TxCommitted
	TxAborted
)

func (ts TransactionStatus) String() string {
	switch ts {
	case TxActive:
		return "ACTIVE"
	case TxCommitting:
		return "COMMITTING"
	case TxAborting:
		return "ABORTING"
	case TxCommitted:
		return "COMMITTED"
	case TxAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// IsFinal reports whether the transaction has ended.
func (ts TransactionStatus) IsFinal() bool {
	return ts == TxCommitted || ts == TxAborted
}

// TransactionContext is the state of one transaction from Begin until it
// commits or aborts.
type TransactionContext struct {
	ID primitives.TransactionID

	mutex     sync.RWMutex
	status    TransactionStatus
	startTime time.Time
	endTime   time.Time
	beginLSN  primitives.LSN
}

func NewTransactionContext(tid primitives.TransactionID) *TransactionContext {
	return &TransactionContext{
		ID:        tid,
		status:    TxActive,
		startTime: time.Now(),
	}
}

func (tc *TransactionContext) IsActive() bool {
	return tc.GetStatus() == TxActive
}

func (tc *TransactionContext) GetStatus() TransactionStatus {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.status
}

func (tc *TransactionContext) SetStatus(status TransactionStatus) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.status = status
	if status.IsFinal() {
		tc.endTime = time.Now()
	}
}

// transition moves from one of the expected states to next, reporting
// whether the move happened.
func (tc *TransactionContext) transition(next TransactionStatus, from ...TransactionStatus) bool {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	for _, s := range from {
		if tc.status == s {
			tc.status = next
			if next.IsFinal() {
				tc.endTime = time.Now()
			}
			return true
		}
	}
	return false
}

// Duration is how long the transaction has run, or ran if it has ended.
func (tc *TransactionContext) Duration() time.Duration {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	if tc.endTime.IsZero() {
		return time.Since(tc.startTime)
	}
	return tc.endTime.Sub(tc.startTime)
}

func (tc *TransactionContext) BeginLSN() primitives.LSN {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.beginLSN
}

func (tc *TransactionContext) setBeginLSN(lsn primitives.LSN) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.beginLSN = lsn
}
