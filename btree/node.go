package btree

import (
	"encoding/binary"
	"sort"

	"heron/buffer"
	"heron/common"
	"heron/disk"
)

// Node pages share a 28 byte header:
//
//	page_type (4) | lsn (4) | size (4) | max_size (4) | parent_page_id (4) | page_id (4) | next_page_id (4)
//
// Leaf pages follow the header with size records of (key, rid); internal
// pages store (key, child page id) pairs and leave the next_page_id slot
// unused. The variant is discriminated by the page_type field, not by
// separate page structs on disk.
const (
	pageTypeInvalid  = 0
	pageTypeLeaf     = 1
	pageTypeInternal = 2

	offPageType = 0
	offLSN      = 4
	offSize     = 8
	offMaxSize  = 12
	offParent   = 16
	offPageID   = 20
	offNext     = 24

	nodeHeaderSize = 28

	leafEntrySize     = 16 // key (8) + rid page id (4) + rid slot (4)
	internalEntrySize = 12 // key (8) + child page id (4)
)

// MaxLeafSize and MaxInternalSize are the largest max_size values that still
// fit a page, keeping one slot of slack for the transient overflow before a
// split.
var (
	MaxLeafSize     = (disk.PageSize-nodeHeaderSize)/leafEntrySize - 1
	MaxInternalSize = (disk.PageSize-nodeHeaderSize)/internalEntrySize - 1
)

// node is the shared header view over a latched page.
type node struct {
	page *buffer.Page
}

func (n node) data() []byte {
	return n.page.GetData()
}

func (n node) getPageType() int {
	return int(binary.BigEndian.Uint32(n.data()[offPageType:]))
}

func (n node) setPageType(t int) {
	binary.BigEndian.PutUint32(n.data()[offPageType:], uint32(t))
}

func (n node) getSize() int {
	return int(int32(binary.BigEndian.Uint32(n.data()[offSize:])))
}

func (n node) setSize(size int) {
	binary.BigEndian.PutUint32(n.data()[offSize:], uint32(size))
}

func (n node) getMaxSize() int {
	return int(int32(binary.BigEndian.Uint32(n.data()[offMaxSize:])))
}

func (n node) setMaxSize(size int) {
	binary.BigEndian.PutUint32(n.data()[offMaxSize:], uint32(size))
}

func (n node) minSize() int {
	return (n.getMaxSize() + 1) / 2
}

func (n node) getParent() common.PageID {
	return common.PageID(int32(binary.BigEndian.Uint32(n.data()[offParent:])))
}

func (n node) setParent(pid common.PageID) {
	binary.BigEndian.PutUint32(n.data()[offParent:], uint32(int32(pid)))
}

func (n node) getPageID() common.PageID {
	return common.PageID(int32(binary.BigEndian.Uint32(n.data()[offPageID:])))
}

func (n node) setPageID(pid common.PageID) {
	binary.BigEndian.PutUint32(n.data()[offPageID:], uint32(int32(pid)))
}

func (n node) getNext() common.PageID {
	return common.PageID(int32(binary.BigEndian.Uint32(n.data()[offNext:])))
}

func (n node) setNext(pid common.PageID) {
	binary.BigEndian.PutUint32(n.data()[offNext:], uint32(int32(pid)))
}

func (n node) isLeaf() bool {
	return n.getPageType() == pageTypeLeaf
}

func (n node) isRoot() bool {
	return n.getParent() == common.InvalidPageID
}

func initLeaf(page *buffer.Page, maxSize int) leafNode {
	n := leafNode{node{page}}
	n.setPageType(pageTypeLeaf)
	n.setSize(0)
	n.setMaxSize(maxSize)
	n.setParent(common.InvalidPageID)
	n.setPageID(page.GetPageId())
	n.setNext(common.InvalidPageID)
	return n
}

func initInternal(page *buffer.Page, maxSize int) internalNode {
	n := internalNode{node{page}}
	n.setPageType(pageTypeInternal)
	n.setSize(0)
	n.setMaxSize(maxSize)
	n.setParent(common.InvalidPageID)
	n.setPageID(page.GetPageId())
	n.setNext(common.InvalidPageID)
	return n
}

// leafNode stores (key, rid) records in strictly ascending key order plus a
// right sibling pointer in the header.
type leafNode struct {
	node
}

func (n leafNode) entryOff(i int) int {
	return nodeHeaderSize + i*leafEntrySize
}

func (n leafNode) keyAt(i int) Key {
	return Key(binary.BigEndian.Uint64(n.data()[n.entryOff(i):]))
}

func (n leafNode) ridAt(i int) common.RID {
	off := n.entryOff(i)
	return common.RID{
		PageID:  common.PageID(int32(binary.BigEndian.Uint32(n.data()[off+8:]))),
		SlotIdx: binary.BigEndian.Uint32(n.data()[off+12:]),
	}
}

func (n leafNode) setEntryAt(i int, key Key, rid common.RID) {
	off := n.entryOff(i)
	binary.BigEndian.PutUint64(n.data()[off:], uint64(key))
	binary.BigEndian.PutUint32(n.data()[off+8:], uint32(int32(rid.PageID)))
	binary.BigEndian.PutUint32(n.data()[off+12:], rid.SlotIdx)
}

// findKey returns the index of the first entry >= key and whether the key at
// that index equals it.
func (n leafNode) findKey(cmp Comparator, key Key) (int, bool) {
	size := n.getSize()
	i := sort.Search(size, func(i int) bool { return cmp(n.keyAt(i), key) >= 0 })
	return i, i < size && cmp(n.keyAt(i), key) == 0
}

func (n leafNode) insertAt(i int, key Key, rid common.RID) {
	size := n.getSize()
	copy(n.data()[n.entryOff(i+1):n.entryOff(size+1)], n.data()[n.entryOff(i):n.entryOff(size)])
	n.setEntryAt(i, key, rid)
	n.setSize(size + 1)
}

func (n leafNode) removeAt(i int) {
	size := n.getSize()
	copy(n.data()[n.entryOff(i):n.entryOff(size-1)], n.data()[n.entryOff(i+1):n.entryOff(size)])
	n.setSize(size - 1)
}

// internalNode stores size child pointers with size keys; key[0] is unused
// as a separator.
type internalNode struct {
	node
}

func (n internalNode) entryOff(i int) int {
	return nodeHeaderSize + i*internalEntrySize
}

func (n internalNode) keyAt(i int) Key {
	return Key(binary.BigEndian.Uint64(n.data()[n.entryOff(i):]))
}

func (n internalNode) setKeyAt(i int, key Key) {
	binary.BigEndian.PutUint64(n.data()[n.entryOff(i):], uint64(key))
}

func (n internalNode) childAt(i int) common.PageID {
	return common.PageID(int32(binary.BigEndian.Uint32(n.data()[n.entryOff(i)+8:])))
}

func (n internalNode) setChildAt(i int, pid common.PageID) {
	binary.BigEndian.PutUint32(n.data()[n.entryOff(i)+8:], uint32(int32(pid)))
}

func (n internalNode) setEntryAt(i int, key Key, child common.PageID) {
	n.setKeyAt(i, key)
	n.setChildAt(i, child)
}

// findChildIndex returns the index of the rightmost child whose separator is
// <= key, or 0 when the key is less than every separator.
func (n internalNode) findChildIndex(cmp Comparator, key Key) int {
	size := n.getSize()
	// first separator in [1, size) that is greater than key
	i := sort.Search(size-1, func(i int) bool { return cmp(n.keyAt(i+1), key) > 0 })
	return i
}

// indexOfChild returns the position of the child page in this node.
func (n internalNode) indexOfChild(pid common.PageID) int {
	for i, size := 0, n.getSize(); i < size; i++ {
		if n.childAt(i) == pid {
			return i
		}
	}
	panic("child page is not under this node")
}

func (n internalNode) insertAt(i int, key Key, child common.PageID) {
	size := n.getSize()
	copy(n.data()[n.entryOff(i+1):n.entryOff(size+1)], n.data()[n.entryOff(i):n.entryOff(size)])
	n.setEntryAt(i, key, child)
	n.setSize(size + 1)
}

func (n internalNode) removeAt(i int) {
	size := n.getSize()
	copy(n.data()[n.entryOff(i):n.entryOff(size-1)], n.data()[n.entryOff(i+1):n.entryOff(size)])
	n.setSize(size - 1)
}
