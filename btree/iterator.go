package btree

import (
	"heron/buffer"
	"heron/common"
)

// Iterator walks the leaf chain left to right, holding the read latch of the
// leaf it is positioned on. The end iterator holds no page.
type Iterator struct {
	tree  *BTree
	page  *buffer.Page
	index int
}

// Begin positions an iterator on the first entry of the tree.
func (t *BTree) Begin() *Iterator {
	t.rootMu.RLock()
	if t.rootPageID == common.InvalidPageID {
		t.rootMu.RUnlock()
		return t.End()
	}

	curPage, err := t.pool.FetchPage(t.rootPageID)
	common.PanicIfErr(err)
	curPage.RLatch()
	t.rootMu.RUnlock()

	for {
		cur := node{curPage}
		if cur.isLeaf() {
			break
		}
		nextPage, err := t.pool.FetchPage(internalNode{cur}.childAt(0))
		common.PanicIfErr(err)
		nextPage.RLatch()
		curPage.RUnLatch()
		t.pool.UnpinPage(curPage.GetPageId(), false)
		curPage = nextPage
	}

	if (node{curPage}).getSize() == 0 {
		curPage.RUnLatch()
		t.pool.UnpinPage(curPage.GetPageId(), false)
		return t.End()
	}
	return &Iterator{tree: t, page: curPage}
}

// BeginAt positions an iterator on the first entry whose key is >= key.
func (t *BTree) BeginAt(key Key) *Iterator {
	ctx := &opContext{op: opRead}

	t.rootMu.RLock()
	if t.rootPageID == common.InvalidPageID {
		t.rootMu.RUnlock()
		return t.End()
	}
	leafPage := t.findLeaf(key, ctx)
	// the leaf is the only page left in the set; hand it to the iterator.
	ctx.pages = nil

	leaf := leafNode{node{leafPage}}
	i, _ := leaf.findKey(t.cmp, key)
	it := &Iterator{tree: t, page: leafPage, index: i}
	if i >= leaf.getSize() {
		it.advanceLeaf()
	}
	return it
}

// End returns the sentinel iterator one past the last entry.
func (t *BTree) End() *Iterator {
	return &Iterator{tree: t}
}

func (it *Iterator) IsEnd() bool {
	return it.page == nil
}

func (it *Iterator) Key() Key {
	return leafNode{node{it.page}}.keyAt(it.index)
}

func (it *Iterator) Value() common.RID {
	return leafNode{node{it.page}}.ridAt(it.index)
}

// Next advances the iterator, following the sibling pointer when it runs off
// the current leaf.
func (it *Iterator) Next() {
	it.index++
	if it.index >= (node{it.page}).getSize() {
		it.advanceLeaf()
	}
}

// advanceLeaf latches the next leaf before releasing the current one, in the
// same left to right order every leaf level multi latch acquisition uses.
func (it *Iterator) advanceLeaf() {
	nextID := (node{it.page}).getNext()
	if nextID == common.InvalidPageID {
		it.Close()
		return
	}

	nextPage, err := it.tree.pool.FetchPage(nextID)
	common.PanicIfErr(err)
	nextPage.RLatch()

	it.page.RUnLatch()
	it.tree.pool.UnpinPage(it.page.GetPageId(), false)

	it.page = nextPage
	it.index = 0
}

// Close releases the iterator's leaf early. Safe to call on the end
// iterator.
func (it *Iterator) Close() {
	if it.page == nil {
		return
	}
	it.page.RUnLatch()
	it.tree.pool.UnpinPage(it.page.GetPageId(), false)
	it.page = nil
	it.index = 0
}
