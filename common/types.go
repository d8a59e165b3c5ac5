package common

import "fmt"

// PageID identifies a physical page in the database file. Page 0 is reserved
// for the header page that stores the index name to root page id mapping.
type PageID int32

const InvalidPageID PageID = -1

// FrameID indexes a slot in the buffer pool. Valid frame ids are in
// [0, poolSize).
type FrameID int32

const InvalidFrameID FrameID = -1

type TxnID int32

const InvalidTxnID TxnID = -1

// TableID is the oid of a table as assigned by the catalog.
type TableID uint32

// RID points to a tuple slot on a heap page.
type RID struct {
	PageID  PageID
	SlotIdx uint32
}

func (r RID) String() string {
	return fmt.Sprintf("(%v, %v)", r.PageID, r.SlotIdx)
}
