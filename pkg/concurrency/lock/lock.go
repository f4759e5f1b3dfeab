package lock

import "storecore/pkg/primitives"

// LockType is the mode a lock is held in.
type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

func (lt LockType) String() string {
	if lt == ExclusiveLock {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

// LockTypeFor maps page access permissions onto a lock mode.
func LockTypeFor(perm primitives.Permissions) LockType {
	if perm == primitives.ReadWrite {
		return ExclusiveLock
	}
	return SharedLock
}
