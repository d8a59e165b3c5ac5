package locker

import (
	"log"
	"sort"
	"time"

	"heron/common"
	"heron/transaction"
)

// runCycleDetection is the background detector loop. Every interval it
// rebuilds the waits-for graph from the request queues and aborts the
// youngest transaction of every cycle it finds.
func (lm *LockManager) runCycleDetection() {
	ticker := time.NewTicker(lm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.detect()
		case <-lm.stopChan:
			return
		}
	}
}

func (lm *LockManager) detect() {
	lm.waitsForLatch.Lock()
	defer lm.waitsForLatch.Unlock()
	lm.tableLockMapLatch.Lock()
	defer lm.tableLockMapLatch.Unlock()
	lm.rowLockMapLatch.Lock()
	defer lm.rowLockMapLatch.Unlock()

	lm.waitsFor = map[common.TxnID][]common.TxnID{}
	for _, q := range lm.tableLockMap {
		lm.addEdgesFromQueue(q)
	}
	for _, q := range lm.rowLockMap {
		lm.addEdgesFromQueue(q)
	}

	for {
		victim, ok := lm.findVictim()
		if !ok {
			break
		}
		lm.abortVictim(victim)
	}
}

// addEdgesFromQueue adds an edge waiter -> holder for every incompatible
// (waiter, granted) pair in the queue.
func (lm *LockManager) addEdgesFromQueue(q *lockRequestQueue) {
	q.latch.Lock()
	defer q.latch.Unlock()

	for i, a := range q.requests {
		for _, b := range q.requests[i+1:] {
			if a.TxnID == b.TxnID || compatible(a.Mode, b.Mode) {
				continue
			}
			if !a.Granted && b.Granted {
				lm.addEdge(a.TxnID, b.TxnID)
			}
			if !b.Granted && a.Granted {
				lm.addEdge(b.TxnID, a.TxnID)
			}
		}
	}
}

// addEdge keeps each successor list sorted and free of duplicates so that
// traversal order is deterministic.
func (lm *LockManager) addEdge(t1, t2 common.TxnID) {
	succ := lm.waitsFor[t1]
	i := sort.Search(len(succ), func(i int) bool { return succ[i] >= t2 })
	if i < len(succ) && succ[i] == t2 {
		return
	}
	succ = append(succ, 0)
	copy(succ[i+1:], succ[i:])
	succ[i] = t2
	lm.waitsFor[t1] = succ
}

func (lm *LockManager) removeEdge(t1, t2 common.TxnID) {
	succ := lm.waitsFor[t1]
	for i, t := range succ {
		if t == t2 {
			lm.waitsFor[t1] = append(succ[:i], succ[i+1:]...)
			return
		}
	}
}

// AddEdge inserts the edge t1 -> t2 into the waits-for graph. Exposed for
// tests.
func (lm *LockManager) AddEdge(t1, t2 common.TxnID) {
	lm.waitsForLatch.Lock()
	defer lm.waitsForLatch.Unlock()
	lm.addEdge(t1, t2)
}

// RemoveEdge deletes the edge t1 -> t2 from the waits-for graph. Exposed for
// tests.
func (lm *LockManager) RemoveEdge(t1, t2 common.TxnID) {
	lm.waitsForLatch.Lock()
	defer lm.waitsForLatch.Unlock()
	lm.removeEdge(t1, t2)
}

// GetEdgeList returns every edge currently in the waits-for graph.
func (lm *LockManager) GetEdgeList() [][2]common.TxnID {
	lm.waitsForLatch.Lock()
	defer lm.waitsForLatch.Unlock()

	edges := make([][2]common.TxnID, 0)
	for t1, succ := range lm.waitsFor {
		for _, t2 := range succ {
			edges = append(edges, [2]common.TxnID{t1, t2})
		}
	}
	return edges
}

// HasCycle reports whether the waits-for graph contains a cycle and returns
// the victim, the highest transaction id on the cycle.
func (lm *LockManager) HasCycle() (common.TxnID, bool) {
	lm.waitsForLatch.Lock()
	defer lm.waitsForLatch.Unlock()
	return lm.findVictim()
}

// findVictim searches for a cycle, starting from source nodes in ascending
// txn id order and visiting successors in ascending order so results are
// deterministic. Caller holds the waits-for latch.
func (lm *LockManager) findVictim() (common.TxnID, bool) {
	sources := make([]common.TxnID, 0, len(lm.waitsFor))
	for t := range lm.waitsFor {
		sources = append(sources, t)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	visited := map[common.TxnID]bool{}
	for _, src := range sources {
		if visited[src] {
			continue
		}
		path := make([]common.TxnID, 0)
		onPath := map[common.TxnID]int{}
		if victim, ok := lm.dfs(src, visited, &path, onPath); ok {
			return victim, true
		}
	}
	return common.InvalidTxnID, false
}

func (lm *LockManager) dfs(cur common.TxnID, visited map[common.TxnID]bool, path *[]common.TxnID, onPath map[common.TxnID]int) (common.TxnID, bool) {
	visited[cur] = true
	onPath[cur] = len(*path)
	*path = append(*path, cur)

	for _, next := range lm.waitsFor[cur] {
		if start, ok := onPath[next]; ok {
			// cycle is the path suffix starting at next. abort the youngest.
			victim := next
			for _, t := range (*path)[start:] {
				if t > victim {
					victim = t
				}
			}
			return victim, true
		}
		if visited[next] {
			continue
		}
		if victim, ok := lm.dfs(next, visited, path, onPath); ok {
			return victim, true
		}
	}

	*path = (*path)[:len(*path)-1]
	delete(onPath, cur)
	return common.InvalidTxnID, false
}

// abortVictim marks the victim aborted, purges it from the graph and from
// every queue, and wakes all waiters. Caller holds the waits-for latch and
// both map latches.
func (lm *LockManager) abortVictim(victim common.TxnID) {
	log.Printf("deadlock detected, aborting txn %v\n", victim)

	if lm.registry != nil {
		if txn, ok := lm.registry.GetTransaction(victim); ok {
			txn.LockTxn()
			txn.SetState(transaction.Aborted)
			txn.ClearLockSets()
			txn.UnlockTxn()
		}
	}

	delete(lm.waitsFor, victim)
	for t := range lm.waitsFor {
		lm.removeEdge(t, victim)
	}

	purge := func(q *lockRequestQueue) {
		q.latch.Lock()
		kept := q.requests[:0]
		for _, r := range q.requests {
			if r.TxnID == victim && r.Granted {
				continue
			}
			kept = append(kept, r)
		}
		q.requests = kept
		q.cv.Broadcast()
		q.latch.Unlock()
	}
	for _, q := range lm.tableLockMap {
		purge(q)
	}
	for _, q := range lm.rowLockMap {
		purge(q)
	}
}
