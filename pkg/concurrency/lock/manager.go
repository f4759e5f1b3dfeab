package lock

import (
	"sync"

	"storecore/pkg/primitives"
)

// LockManager grants and releases page locks. Acquire never blocks; callers
// that want to wait use AcquireOrWait and sleep on the returned channel.
type LockManager struct {
	mutex     sync.Mutex
	lockTable *LockTable
	released  map[primitives.PageID]chan struct{}
	depGraph  *DependencyGraph
}

func NewLockManager() *LockManager {
	return &LockManager{
		lockTable: NewLockTable(),
		released:  make(map[primitives.PageID]chan struct{}),
		depGraph:  NewDependencyGraph(),
	}
}

// Acquire grants tid a lockType lock on pid if it is compatible with the
// locks other transactions hold and reports whether it did. A refused request
// leaves lock state untouched. Re-acquiring a lock already held succeeds.
func (lm *LockManager) Acquire(pid primitives.PageID, tid primitives.TransactionID, lockType LockType) bool {
	granted, _ := lm.AcquireOrWait(pid, tid, lockType)
	return granted
}

// AcquireOrWait behaves like Acquire. When the lock is refused it also returns
// a channel that is closed the next time any lock on pid is released, and
// records that tid is waiting on the current holders. The channel is obtained
// under the same critical section as the refusal, so a release that happens
// after the refusal always closes it.
func (lm *LockManager) AcquireOrWait(pid primitives.PageID, tid primitives.TransactionID, lockType LockType) (bool, <-chan struct{}) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.lockTable.HasSufficientLock(tid, pid, lockType) {
		lm.depGraph.ClearWaits(tid)
		return true, nil
	}

	if lm.lockTable.CanGrant(tid, pid, lockType) {
		lm.lockTable.Grant(tid, pid, lockType)
		lm.depGraph.ClearWaits(tid)
		return true, nil
	}

	lm.depGraph.SetWaits(tid, lm.lockTable.ConflictingHolders(tid, pid, lockType))

	ch, ok := lm.released[pid]
	if !ok {
		ch = make(chan struct{})
		lm.released[pid] = ch
	}
	return false, ch
}

// Release drops tid's locks on pid. Locks held by other transactions are never
// touched, so a transaction that does not own the exclusive lock cannot clear it.
func (lm *LockManager) Release(pid primitives.PageID, tid primitives.TransactionID) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.lockTable.Release(tid, pid) {
		lm.signalRelease(pid)
	}
}

// ReleaseAll drops every lock tid holds and forgets its wait-for edges.
func (lm *LockManager) ReleaseAll(tid primitives.TransactionID) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	for _, pid := range lm.lockTable.ReleaseAll(tid) {
		lm.signalRelease(pid)
	}
	lm.depGraph.RemoveTransaction(tid)
}

// signalRelease wakes everyone waiting on pid. Must be called with lm.mutex held.
func (lm *LockManager) signalRelease(pid primitives.PageID) {
	if ch, ok := lm.released[pid]; ok {
		close(ch)
		delete(lm.released, pid)
	}
}

// Holds reports whether tid holds a shared or exclusive lock on pid.
func (lm *LockManager) Holds(pid primitives.PageID, tid primitives.TransactionID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return lm.lockTable.Holds(tid, pid)
}

// HoldsType reports whether tid holds a lock on pid at least as strong as lockType.
func (lm *LockManager) HoldsType(pid primitives.PageID, tid primitives.TransactionID, lockType LockType) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return lm.lockTable.HasSufficientLock(tid, pid, lockType)
}

// IsPageLocked reports whether any transaction holds a lock on pid.
func (lm *LockManager) IsPageLocked(pid primitives.PageID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return lm.lockTable.IsPageLocked(pid)
}

// LockedPages returns the pages tid holds locks on.
func (lm *LockManager) LockedPages(tid primitives.TransactionID) []primitives.PageID {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return lm.lockTable.PagesLockedBy(tid)
}

// StopWaiting forgets that tid is waiting, e.g. after its wait timed out.
func (lm *LockManager) StopWaiting(tid primitives.TransactionID) {
	lm.depGraph.ClearWaits(tid)
}

// DeadlockCycle returns the wait-for cycle through tid, or nil if tid is not
// deadlocked.
func (lm *LockManager) DeadlockCycle(tid primitives.TransactionID) []primitives.TransactionID {
	return lm.depGraph.CycleThrough(tid)
}

// ExclusiveHolder returns the transaction holding the exclusive lock on pid.
func (lm *LockManager) ExclusiveHolder(pid primitives.PageID) (primitives.TransactionID, bool) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return lm.lockTable.ExclusiveHolder(pid)
}
