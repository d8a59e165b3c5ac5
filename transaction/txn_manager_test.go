package transaction

import (
	"sync"
	"testing"

	"heron/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReleaser struct {
	mu       sync.Mutex
	released []common.TxnID
}

func (r *recordingReleaser) UnlockAll(txn *Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, txn.GetID())
}

func TestBegin_Should_Assign_Monotone_Txn_Ids(t *testing.T) {
	tm := NewTxnManager()

	t1 := tm.Begin(RepeatableRead)
	t2 := tm.Begin(ReadCommitted)

	assert.Less(t, t1.GetID(), t2.GetID())
	assert.Equal(t, Growing, t1.GetState())
	assert.Equal(t, ReadCommitted, t2.GetIsolationLevel())
}

func TestGetTransaction_Should_Find_Active_Txns_Only(t *testing.T) {
	tm := NewTxnManager()
	tm.SetLockReleaser(&recordingReleaser{})

	txn := tm.Begin(RepeatableRead)

	got, ok := tm.GetTransaction(txn.GetID())
	require.True(t, ok)
	assert.Same(t, txn, got)

	tm.Commit(txn)
	_, ok = tm.GetTransaction(txn.GetID())
	assert.False(t, ok)
}

func TestCommit_And_Abort_Should_Release_Locks_And_Set_State(t *testing.T) {
	tm := NewTxnManager()
	releaser := &recordingReleaser{}
	tm.SetLockReleaser(releaser)

	t1 := tm.Begin(RepeatableRead)
	t2 := tm.Begin(RepeatableRead)

	tm.Commit(t1)
	tm.Abort(t2)

	assert.Equal(t, Committed, t1.GetState())
	assert.Equal(t, Aborted, t2.GetState())
	assert.Equal(t, []common.TxnID{t1.GetID(), t2.GetID()}, releaser.released)
}

func TestConcurrent_Begins_Should_Get_Unique_Ids(t *testing.T) {
	tm := NewTxnManager()

	n := 64
	ids := make([]common.TxnID, n)
	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = tm.Begin(RepeatableRead).GetID()
		}(i)
	}
	wg.Wait()

	seen := map[common.TxnID]struct{}{}
	for _, id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "txn id %v assigned twice", id)
		seen[id] = struct{}{}
	}
}

func TestLockSet_Helpers_Should_Reflect_The_Sets(t *testing.T) {
	txn := NewTransaction(1, RepeatableRead)
	rid := common.RID{PageID: 1, SlotIdx: 2}

	txn.GetSharedTableLockSet()[3] = struct{}{}
	assert.True(t, txn.IsTableSharedLocked(3))
	assert.False(t, txn.IsTableExclusiveLocked(3))

	txn.GetExclusiveRowLockSet()[3] = map[common.RID]struct{}{rid: {}}
	assert.True(t, txn.IsRowExclusiveLocked(3, rid))
	assert.False(t, txn.IsRowSharedLocked(3, rid))

	txn.ClearLockSets()
	assert.False(t, txn.IsTableSharedLocked(3))
	assert.False(t, txn.IsRowExclusiveLocked(3, rid))
}

func TestPageSet_Should_Track_Pinned_And_Deleted_Pages(t *testing.T) {
	txn := NewTransaction(1, RepeatableRead)

	txn.AddIntoPageSet(4)
	txn.AddIntoPageSet(5)
	assert.Equal(t, []common.PageID{4, 5}, txn.GetPageSet())

	txn.ClearPageSet()
	assert.Empty(t, txn.GetPageSet())

	txn.AddIntoDeletedPageSet(9)
	_, ok := txn.GetDeletedPageSet()[9]
	assert.True(t, ok)
}
