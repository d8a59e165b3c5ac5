package transaction

import (
	"sync/atomic"

	"heron/common"

	"github.com/puzpuzpuz/xsync/v3"
)

// LockReleaser releases every lock a transaction still holds. Implemented by
// the lock manager; injected to avoid a package cycle.
type LockReleaser interface {
	UnlockAll(txn *Transaction)
}

// TxnManager hands out transaction ids and keeps the registry the deadlock
// detector resolves victims through. The registry is an xsync map because it
// is read concurrently by the detector while new transactions begin.
type TxnManager struct {
	nextTxnID atomic.Int32
	txns      *xsync.MapOf[common.TxnID, *Transaction]
	releaser  LockReleaser
}

func NewTxnManager() *TxnManager {
	return &TxnManager{
		txns: xsync.NewMapOf[common.TxnID, *Transaction](),
	}
}

func (m *TxnManager) SetLockReleaser(r LockReleaser) {
	m.releaser = r
}

func (m *TxnManager) Begin(isolation IsolationLevel) *Transaction {
	id := common.TxnID(m.nextTxnID.Add(1))
	txn := NewTransaction(id, isolation)
	m.txns.Store(id, txn)
	return txn
}

func (m *TxnManager) GetTransaction(id common.TxnID) (*Transaction, bool) {
	return m.txns.Load(id)
}

func (m *TxnManager) Commit(txn *Transaction) {
	txn.LockTxn()
	txn.SetState(Committed)
	txn.UnlockTxn()

	m.releaseLocks(txn)
	m.txns.Delete(txn.GetID())
}

func (m *TxnManager) Abort(txn *Transaction) {
	txn.LockTxn()
	txn.SetState(Aborted)
	txn.UnlockTxn()

	m.releaseLocks(txn)
	m.txns.Delete(txn.GetID())
}

func (m *TxnManager) releaseLocks(txn *Transaction) {
	if m.releaser != nil {
		m.releaser.UnlockAll(txn)
	}
}
