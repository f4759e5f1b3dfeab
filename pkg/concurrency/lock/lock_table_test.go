package lock

import (
	"testing"

	"storecore/pkg/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTable_SharedLocksAreCompatible(t *testing.T) {
	lt := NewLockTable()
	pid := primitives.NewPageID(1, 0)
	t1, t2 := primitives.NewTransactionID(), primitives.NewTransactionID()

	require.True(t, lt.CanGrant(t1, pid, SharedLock))
	lt.Grant(t1, pid, SharedLock)
	require.True(t, lt.CanGrant(t2, pid, SharedLock))
	lt.Grant(t2, pid, SharedLock)

	assert.True(t, lt.Holds(t1, pid))
	assert.True(t, lt.Holds(t2, pid))
	assert.False(t, lt.CanGrant(t1, pid, ExclusiveLock), "two shared holders block an upgrade")
}

func TestLockTable_ExclusiveExcludesOthers(t *testing.T) {
	lt := NewLockTable()
	pid := primitives.NewPageID(1, 0)
	t1, t2 := primitives.NewTransactionID(), primitives.NewTransactionID()

	lt.Grant(t1, pid, ExclusiveLock)

	assert.False(t, lt.CanGrant(t2, pid, SharedLock))
	assert.False(t, lt.CanGrant(t2, pid, ExclusiveLock))
	assert.True(t, lt.CanGrant(t1, pid, SharedLock), "writer may read its own page")
	assert.ElementsMatch(t, []primitives.TransactionID{t1}, lt.ConflictingHolders(t2, pid, SharedLock))
}

func TestLockTable_UpgradeKeepsSharedEntry(t *testing.T) {
	lt := NewLockTable()
	pid := primitives.NewPageID(1, 0)
	t1, t2 := primitives.NewTransactionID(), primitives.NewTransactionID()

	lt.Grant(t1, pid, SharedLock)
	require.True(t, lt.CanGrant(t1, pid, ExclusiveLock))
	lt.Grant(t1, pid, ExclusiveLock)

	assert.True(t, lt.HasSufficientLock(t1, pid, ExclusiveLock))
	assert.False(t, lt.CanGrant(t2, pid, SharedLock))
	assert.Empty(t, lt.ConflictingHolders(t1, pid, ExclusiveLock))

	require.True(t, lt.Release(t1, pid))
	assert.False(t, lt.IsPageLocked(pid))
	assert.Empty(t, lt.PagesLockedBy(t1))
}

func TestLockTable_ReleaseIsOwnershipGuarded(t *testing.T) {
	lt := NewLockTable()
	pid := primitives.NewPageID(1, 0)
	owner, other := primitives.NewTransactionID(), primitives.NewTransactionID()

	lt.Grant(owner, pid, ExclusiveLock)

	assert.False(t, lt.Release(other, pid))
	assert.True(t, lt.HasSufficientLock(owner, pid, ExclusiveLock))
}

func TestLockTable_ReleaseAll(t *testing.T) {
	lt := NewLockTable()
	t1, t2 := primitives.NewTransactionID(), primitives.NewTransactionID()
	p0, p1, p2 := primitives.NewPageID(1, 0), primitives.NewPageID(1, 1), primitives.NewPageID(2, 0)

	lt.Grant(t1, p0, SharedLock)
	lt.Grant(t1, p1, ExclusiveLock)
	lt.Grant(t1, p2, SharedLock)
	lt.Grant(t1, p2, ExclusiveLock)
	lt.Grant(t2, p0, SharedLock)

	assert.ElementsMatch(t, []primitives.PageID{p0, p1, p2}, lt.ReleaseAll(t1))
	assert.Empty(t, lt.PagesLockedBy(t1))
	assert.True(t, lt.Holds(t2, p0))
	assert.False(t, lt.IsPageLocked(p1))
	assert.False(t, lt.IsPageLocked(p2))
}

func TestLockTable_ExclusiveHolder(t *testing.T) {
	lt := NewLockTable()
	pid := primitives.NewPageID(1, 0)
	tid := primitives.NewTransactionID()

	_, held := lt.ExclusiveHolder(pid)
	assert.False(t, held)

	lt.Grant(tid, pid, SharedLock)
	_, held = lt.ExclusiveHolder(pid)
	assert.False(t, held)

	lt.Grant(tid, pid, ExclusiveLock)
	holder, held := lt.ExclusiveHolder(pid)
	assert.True(t, held)
	assert.Equal(t, tid, holder)
}
