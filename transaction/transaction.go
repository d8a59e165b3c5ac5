package transaction

import (
	"sync"
	"sync/atomic"

	"heron/common"
)

type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

type State int

const (
	Growing State = iota
	Shrinking
	Committed
	Aborted
)

// Transaction is the handle the lock manager and the executors operate on. It
// carries the five table lock sets keyed by mode and the two row lock sets
// keyed by (table, rid). The lock manager mutates the sets while holding the
// transaction latch via LockTxn/UnlockTxn.
type Transaction struct {
	id        common.TxnID
	isolation IsolationLevel
	state     atomic.Int32
	latch     sync.Mutex

	sharedTableLockSet                   map[common.TableID]struct{}
	exclusiveTableLockSet                map[common.TableID]struct{}
	intentionSharedTableLockSet          map[common.TableID]struct{}
	intentionExclusiveTableLockSet       map[common.TableID]struct{}
	sharedIntentionExclusiveTableLockSet map[common.TableID]struct{}

	sharedRowLockSet    map[common.TableID]map[common.RID]struct{}
	exclusiveRowLockSet map[common.TableID]map[common.RID]struct{}

	// pinned pages and pages scheduled for deletion, used by executors that
	// navigate storage structures on behalf of this transaction.
	pageSet        []common.PageID
	deletedPageSet map[common.PageID]struct{}
}

func NewTransaction(id common.TxnID, isolation IsolationLevel) *Transaction {
	return &Transaction{
		id:        id,
		isolation: isolation,

		sharedTableLockSet:                   map[common.TableID]struct{}{},
		exclusiveTableLockSet:                map[common.TableID]struct{}{},
		intentionSharedTableLockSet:          map[common.TableID]struct{}{},
		intentionExclusiveTableLockSet:       map[common.TableID]struct{}{},
		sharedIntentionExclusiveTableLockSet: map[common.TableID]struct{}{},

		sharedRowLockSet:    map[common.TableID]map[common.RID]struct{}{},
		exclusiveRowLockSet: map[common.TableID]map[common.RID]struct{}{},

		deletedPageSet: map[common.PageID]struct{}{},
	}
}

func (t *Transaction) GetID() common.TxnID {
	return t.id
}

func (t *Transaction) GetIsolationLevel() IsolationLevel {
	return t.isolation
}

// GetState is an atomic read so that waiters polling for an abort do not
// race with the deadlock detector.
func (t *Transaction) GetState() State {
	return State(t.state.Load())
}

func (t *Transaction) SetState(s State) {
	t.state.Store(int32(s))
}

func (t *Transaction) LockTxn() {
	t.latch.Lock()
}

func (t *Transaction) UnlockTxn() {
	t.latch.Unlock()
}

func (t *Transaction) GetSharedTableLockSet() map[common.TableID]struct{} {
	return t.sharedTableLockSet
}

func (t *Transaction) GetExclusiveTableLockSet() map[common.TableID]struct{} {
	return t.exclusiveTableLockSet
}

func (t *Transaction) GetIntentionSharedTableLockSet() map[common.TableID]struct{} {
	return t.intentionSharedTableLockSet
}

func (t *Transaction) GetIntentionExclusiveTableLockSet() map[common.TableID]struct{} {
	return t.intentionExclusiveTableLockSet
}

func (t *Transaction) GetSharedIntentionExclusiveTableLockSet() map[common.TableID]struct{} {
	return t.sharedIntentionExclusiveTableLockSet
}

func (t *Transaction) GetSharedRowLockSet() map[common.TableID]map[common.RID]struct{} {
	return t.sharedRowLockSet
}

func (t *Transaction) GetExclusiveRowLockSet() map[common.TableID]map[common.RID]struct{} {
	return t.exclusiveRowLockSet
}

func (t *Transaction) IsTableSharedLocked(oid common.TableID) bool {
	_, ok := t.sharedTableLockSet[oid]
	return ok
}

func (t *Transaction) IsTableExclusiveLocked(oid common.TableID) bool {
	_, ok := t.exclusiveTableLockSet[oid]
	return ok
}

func (t *Transaction) IsTableIntentionSharedLocked(oid common.TableID) bool {
	_, ok := t.intentionSharedTableLockSet[oid]
	return ok
}

func (t *Transaction) IsTableIntentionExclusiveLocked(oid common.TableID) bool {
	_, ok := t.intentionExclusiveTableLockSet[oid]
	return ok
}

func (t *Transaction) IsTableSharedIntentionExclusiveLocked(oid common.TableID) bool {
	_, ok := t.sharedIntentionExclusiveTableLockSet[oid]
	return ok
}

func (t *Transaction) IsRowSharedLocked(oid common.TableID, rid common.RID) bool {
	rows, ok := t.sharedRowLockSet[oid]
	if !ok {
		return false
	}
	_, ok = rows[rid]
	return ok
}

func (t *Transaction) IsRowExclusiveLocked(oid common.TableID, rid common.RID) bool {
	rows, ok := t.exclusiveRowLockSet[oid]
	if !ok {
		return false
	}
	_, ok = rows[rid]
	return ok
}

// ClearLockSets drops every held lock record. Called by the deadlock
// detector when it aborts the transaction, just before it purges the
// transaction's granted requests from the queues, and by the lock manager's
// UnlockAll after it dropped the transaction's requests.
func (t *Transaction) ClearLockSets() {
	t.sharedTableLockSet = map[common.TableID]struct{}{}
	t.exclusiveTableLockSet = map[common.TableID]struct{}{}
	t.intentionSharedTableLockSet = map[common.TableID]struct{}{}
	t.intentionExclusiveTableLockSet = map[common.TableID]struct{}{}
	t.sharedIntentionExclusiveTableLockSet = map[common.TableID]struct{}{}
	t.sharedRowLockSet = map[common.TableID]map[common.RID]struct{}{}
	t.exclusiveRowLockSet = map[common.TableID]map[common.RID]struct{}{}
}

func (t *Transaction) AddIntoPageSet(pageID common.PageID) {
	t.pageSet = append(t.pageSet, pageID)
}

func (t *Transaction) GetPageSet() []common.PageID {
	return t.pageSet
}

func (t *Transaction) ClearPageSet() {
	t.pageSet = nil
}

func (t *Transaction) AddIntoDeletedPageSet(pageID common.PageID) {
	t.deletedPageSet[pageID] = struct{}{}
}

func (t *Transaction) GetDeletedPageSet() map[common.PageID]struct{} {
	return t.deletedPageSet
}
