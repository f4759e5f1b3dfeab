package memory

import (
	"time"

	"storecore/pkg/concurrency/lock"
	"storecore/pkg/dberror"
	"storecore/pkg/logging"
	"storecore/pkg/primitives"

	"go.uber.org/zap"
)

// acquireLock blocks until tid holds lockType on pid. It sleeps on the lock
// manager's release signal, rechecking at least every poll interval, and gives
// up with dberror.ErrTransactionAborted once the lock timeout passes. With
// deadlock detection on, a wait-for cycle through tid ends the wait early
// with dberror.ErrDeadlock if tid is the youngest transaction on the cycle;
// older members keep waiting for the victim to abort.
func (bp *BufferPool) acquireLock(tid primitives.TransactionID, pid primitives.PageID, lockType lock.LockType) error {
	granted, released := bp.lockManager.AcquireOrWait(pid, tid, lockType)
	if granted {
		return nil
	}

	bp.lockMetrics.Waits.Inc()
	start := time.Now()

	deadline := time.NewTimer(bp.opts.LockTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(bp.opts.PollInterval)
	defer poll.Stop()

	for {
		if bp.opts.DeadlockDetection {
			if cycle := bp.lockManager.DeadlockCycle(tid); cycle != nil && youngest(cycle) == tid {
				bp.lockManager.StopWaiting(tid)
				bp.lockMetrics.Deadlocks.Inc()
				logging.WithLock(tid, pid).Warn("deadlock victim",
					zap.Stringer("lock_type", lockType), zap.Int("cycle_length", len(cycle)-1))
				return dberror.Detailed(dberror.ErrDeadlock, tid.String()+" on "+pid.String(), "GetPage", "BufferPool")
			}
		}

		select {
		case <-released:
		case <-poll.C:
		case <-deadline.C:
			bp.lockManager.StopWaiting(tid)
			bp.lockMetrics.Timeouts.Inc()
			logging.WithLock(tid, pid).Info("lock wait timed out",
				zap.Stringer("lock_type", lockType), zap.Duration("waited", time.Since(start)))
			return dberror.Detailed(dberror.ErrTransactionAborted, tid.String()+" timed out on "+pid.String(), "GetPage", "BufferPool")
		}

		granted, released = bp.lockManager.AcquireOrWait(pid, tid, lockType)
		if granted {
			bp.lockMetrics.WaitTime.Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func youngest(cycle []primitives.TransactionID) primitives.TransactionID {
	victim := cycle[0]
	for _, tid := range cycle[1:] {
		if tid.ID() > victim.ID() {
			victim = tid
		}
	}
	return victim
}
