package lock

import (
	"sync"

	"storecore/pkg/primitives"
)

// DependencyGraph tracks wait-for relationships between transactions. An edge
// from A to B means A is waiting for a lock that B holds. A cycle through a
// waiting transaction means none of the transactions on it can make progress
// until one of them aborts.
type DependencyGraph struct {
	edges map[primitives.TransactionID]map[primitives.TransactionID]struct{}
	mutex sync.RWMutex
}

// NewDependencyGraph creates an empty wait-for graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edges: make(map[primitives.TransactionID]map[primitives.TransactionID]struct{}),
	}
}

// SetWaits replaces the outgoing edges of waiter with edges to holders.
// A transaction waits on one page at a time, so older edges are stale.
func (dg *DependencyGraph) SetWaits(waiter primitives.TransactionID, holders []primitives.TransactionID) {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()

	delete(dg.edges, waiter)
	for _, holder := range holders {
		if holder != waiter {
			addToSet(dg.edges, waiter, holder)
		}
	}
}

// ClearWaits removes the outgoing edges of waiter, e.g. once its lock is granted.
func (dg *DependencyGraph) ClearWaits(waiter primitives.TransactionID) {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()
	delete(dg.edges, waiter)
}

// RemoveTransaction removes every edge where tid appears as waiter or holder.
func (dg *DependencyGraph) RemoveTransaction(tid primitives.TransactionID) {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()

	delete(dg.edges, tid)
	for waiter := range dg.edges {
		removeFromSet(dg.edges, waiter, tid)
	}
}

// CycleThrough returns the transactions on a wait-for cycle that starts and
// ends at tid, or nil if there is none.
func (dg *DependencyGraph) CycleThrough(tid primitives.TransactionID) []primitives.TransactionID {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	visited := make(map[primitives.TransactionID]bool)
	path := []primitives.TransactionID{tid}
	if dg.dfs(tid, tid, visited, &path) {
		return path
	}
	return nil
}

func (dg *DependencyGraph) dfs(start, current primitives.TransactionID, visited map[primitives.TransactionID]bool, path *[]primitives.TransactionID) bool {
	visited[current] = true
	for next := range dg.edges[current] {
		if next == start {
			*path = append(*path, next)
			return true
		}
		if visited[next] {
			continue
		}
		*path = append(*path, next)
		if dg.dfs(start, next, visited, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}

// HasCycle reports whether any cycle exists in the graph.
func (dg *DependencyGraph) HasCycle() bool {
	dg.mutex.RLock()
	waiters := make([]primitives.TransactionID, 0, len(dg.edges))
	for tid := range dg.edges {
		waiters = append(waiters, tid)
	}
	dg.mutex.RUnlock()

	for _, tid := range waiters {
		if dg.CycleThrough(tid) != nil {
			return true
		}
	}
	return false
}

// GetWaitingTransactions returns every transaction with an outgoing edge.
func (dg *DependencyGraph) GetWaitingTransactions() []primitives.TransactionID {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	waiters := make([]primitives.TransactionID, 0, len(dg.edges))
	for tid := range dg.edges {
		waiters = append(waiters, tid)
	}
	return waiters
}
