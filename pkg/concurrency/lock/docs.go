// Package lock implements page-level Two-Phase Locking (2PL) for storecore's
// concurrency control layer.
//
// # Overview
//
// A transaction acquires the locks it needs as it touches pages and releases
// them all at once when it commits or aborts. Two lock modes are supported:
//
//   - [SharedLock]   : required to read a page; compatible with other shared locks.
//   - [ExclusiveLock]: required to write a page; incompatible with every lock held
//     by another transaction.
//
// A transaction that is the sole shared holder of a page may upgrade to
// exclusive in place. A writer may also take a shared lock on its own page.
//
// # Components
//
// [LockManager] is the single public entry point. Internally it coordinates:
//
//   - [LockTable]      : per-page lock state (shared holder set, exclusive holder)
//     plus the per-transaction reverse index used by ReleaseAll and Holds.
//   - release signals  : one channel per page that is closed whenever a lock on
//     that page is released, so waiters sleep instead of spinning.
//   - [DependencyGraph]: optional wait-for graph. An edge A→B means A is waiting
//     for a page B holds; a cycle through a waiter is a deadlock.
//
// # Blocking
//
// [LockManager.Acquire] never blocks: it grants or refuses immediately and leaves
// state unchanged on refusal. Blocking policy (poll interval, deadline, abort)
// belongs to the caller; [LockManager.AcquireOrWait] gives the caller a channel
// to sleep on that cannot miss a release racing with the refused attempt.
//
// # Invariants
//
//   - At most one transaction holds the exclusive lock on a page.
//   - The exclusive holder and the shared holders are never different
//     transactions.
//   - A release only ever removes the releasing transaction's own locks.
//   - Page entries are pruned when the last lock on them is released.
package lock
