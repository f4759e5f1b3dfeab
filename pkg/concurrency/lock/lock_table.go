package lock

import (
	"storecore/pkg/primitives"
)

// pageLockState is the lock state of one page: a set of shared holders and at
// most one exclusive holder. The only time both are populated is when the
// exclusive holder upgraded from (or also took) a shared lock, in which case
// the shared set is exactly {exclusive}.
type pageLockState struct {
	shared       map[primitives.TransactionID]struct{}
	exclusive    primitives.TransactionID
	hasExclusive bool
}

func (s *pageLockState) empty() bool {
	return len(s.shared) == 0 && !s.hasExclusive
}

func (s *pageLockState) exclusiveHeldByOther(tid primitives.TransactionID) bool {
	return s.hasExclusive && s.exclusive != tid
}

// LockTable tracks which transactions hold which locks. It keeps a per-page
// view for grant decisions and a per-transaction reverse index so that
// releasing everything a transaction holds does not scan every page.
//
// LockTable is not safe for concurrent use; LockManager serializes access.
type LockTable struct {
	pages          map[primitives.PageID]*pageLockState
	sharedPages    map[primitives.TransactionID]map[primitives.PageID]struct{}
	exclusivePages map[primitives.TransactionID]map[primitives.PageID]struct{}
}

func NewLockTable() *LockTable {
	return &LockTable{
		pages:          make(map[primitives.PageID]*pageLockState),
		sharedPages:    make(map[primitives.TransactionID]map[primitives.PageID]struct{}),
		exclusivePages: make(map[primitives.TransactionID]map[primitives.PageID]struct{}),
	}
}

// CanGrant reports whether tid may be granted lockType on pid right now.
//
// Exclusive: no other transaction holds a shared lock (zero shared holders,
// or tid is the only one) and no other transaction holds the exclusive lock.
// Shared: no other transaction holds the exclusive lock.
func (lt *LockTable) CanGrant(tid primitives.TransactionID, pid primitives.PageID, lockType LockType) bool {
	state, ok := lt.pages[pid]
	if !ok {
		return true
	}

	if state.exclusiveHeldByOther(tid) {
		return false
	}

	if lockType == SharedLock {
		return true
	}

	switch len(state.shared) {
	case 0:
		return true
	case 1:
		_, sole := state.shared[tid]
		return sole
	default:
		return false
	}
}

// Grant records the lock. Callers must have checked CanGrant. Granting a lock
// that is already held is a no-op.
func (lt *LockTable) Grant(tid primitives.TransactionID, pid primitives.PageID, lockType LockType) {
	state, ok := lt.pages[pid]
	if !ok {
		state = &pageLockState{shared: make(map[primitives.TransactionID]struct{})}
		lt.pages[pid] = state
	}

	if lockType == ExclusiveLock {
		state.exclusive = tid
		state.hasExclusive = true
		addToSet(lt.exclusivePages, tid, pid)
		return
	}

	state.shared[tid] = struct{}{}
	addToSet(lt.sharedPages, tid, pid)
}

// Release removes tid's shared lock on pid and its exclusive lock if, and only
// if, tid is the exclusive holder. It reports whether anything was released.
func (lt *LockTable) Release(tid primitives.TransactionID, pid primitives.PageID) bool {
	state, ok := lt.pages[pid]
	if !ok {
		return false
	}

	released := false
	if _, held := state.shared[tid]; held {
		delete(state.shared, tid)
		removeFromSet(lt.sharedPages, tid, pid)
		released = true
	}

	if state.hasExclusive && state.exclusive == tid {
		state.exclusive = primitives.TransactionID{}
		state.hasExclusive = false
		removeFromSet(lt.exclusivePages, tid, pid)
		released = true
	}

	if state.empty() {
		delete(lt.pages, pid)
	}
	return released
}

// ReleaseAll releases every lock tid holds and returns the affected pages.
func (lt *LockTable) ReleaseAll(tid primitives.TransactionID) []primitives.PageID {
	affected := lt.PagesLockedBy(tid)
	for _, pid := range affected {
		lt.Release(tid, pid)
	}
	return affected
}

// Holds reports whether tid holds any lock on pid.
func (lt *LockTable) Holds(tid primitives.TransactionID, pid primitives.PageID) bool {
	state, ok := lt.pages[pid]
	if !ok {
		return false
	}
	if _, held := state.shared[tid]; held {
		return true
	}
	return state.hasExclusive && state.exclusive == tid
}

// HasSufficientLock reports whether tid already holds a lock at least as
// strong as lockType on pid.
func (lt *LockTable) HasSufficientLock(tid primitives.TransactionID, pid primitives.PageID, lockType LockType) bool {
	state, ok := lt.pages[pid]
	if !ok {
		return false
	}
	if state.hasExclusive && state.exclusive == tid {
		return true
	}
	if lockType == ExclusiveLock {
		return false
	}
	_, held := state.shared[tid]
	return held
}

// ConflictingHolders returns the transactions whose locks on pid prevent tid
// from being granted lockType.
func (lt *LockTable) ConflictingHolders(tid primitives.TransactionID, pid primitives.PageID, lockType LockType) []primitives.TransactionID {
	state, ok := lt.pages[pid]
	if !ok {
		return nil
	}

	var holders []primitives.TransactionID
	if state.exclusiveHeldByOther(tid) {
		holders = append(holders, state.exclusive)
	}
	if lockType == ExclusiveLock {
		for holder := range state.shared {
			if holder != tid && !(state.hasExclusive && holder == state.exclusive) {
				holders = append(holders, holder)
			}
		}
	}
	return holders
}

// PagesLockedBy returns every page tid holds a shared or exclusive lock on.
func (lt *LockTable) PagesLockedBy(tid primitives.TransactionID) []primitives.PageID {
	seen := make(map[primitives.PageID]struct{}, len(lt.sharedPages[tid])+len(lt.exclusivePages[tid]))
	pages := make([]primitives.PageID, 0, len(seen))
	for _, index := range []map[primitives.PageID]struct{}{lt.sharedPages[tid], lt.exclusivePages[tid]} {
		for pid := range index {
			if _, dup := seen[pid]; !dup {
				seen[pid] = struct{}{}
				pages = append(pages, pid)
			}
		}
	}
	return pages
}

// IsPageLocked reports whether any transaction holds a lock on pid.
func (lt *LockTable) IsPageLocked(pid primitives.PageID) bool {
	_, ok := lt.pages[pid]
	return ok
}

// ExclusiveHolder returns the transaction holding the exclusive lock on pid.
func (lt *LockTable) ExclusiveHolder(pid primitives.PageID) (primitives.TransactionID, bool) {
	state, ok := lt.pages[pid]
	if !ok || !state.hasExclusive {
		return primitives.TransactionID{}, false
	}
	return state.exclusive, true
}
