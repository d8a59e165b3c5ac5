package btree

import (
	"heron/buffer"
	"heron/common"
)

type opType int

const (
	opRead opType = iota
	opInsert
	opRemove
)

// opContext is the page set carried through one tree operation. It tracks
// every latched page on the path, the pages scheduled for deletion, and
// whether rootMu is still held. Every page that enters the set is released
// exactly once: ancestors when a safe child is latched during the descent,
// pages popped from the set at the point they are popped, and everything
// still in the set by releaseAll on the way out of the top level operation.
type opContext struct {
	op         opType
	pages      []*buffer.Page
	deleted    []common.PageID
	rootLocked bool
}

func (t *BTree) latchPage(p *buffer.Page, op opType) {
	if op == opRead {
		p.RLatch()
	} else {
		p.WLatch()
	}
}

func (t *BTree) unlatchPage(p *buffer.Page, op opType) {
	if op == opRead {
		p.RUnLatch()
	} else {
		p.WUnlatch()
	}
}

// findLeaf descends from the root to the leaf that owns key, crabbing
// latches: the read path always releases the parent after latching the
// child, the write paths release all ancestors as soon as the child is safe.
//
// For reads the caller holds rootMu.RLock and has checked the tree is not
// empty; for writes the caller holds rootMu.Lock with ctx.rootLocked set.
func (t *BTree) findLeaf(key Key, ctx *opContext) *buffer.Page {
	curPage, err := t.pool.FetchPage(t.rootPageID)
	common.PanicIfErr(err)
	t.latchPage(curPage, ctx.op)
	ctx.pages = append(ctx.pages, curPage)

	if ctx.op == opRead {
		t.rootMu.RUnlock()
	} else if t.nodeIsSafe(node{curPage}, key, ctx.op) {
		t.rootMu.Unlock()
		ctx.rootLocked = false
	}

	for {
		cur := node{curPage}
		if cur.isLeaf() {
			return curPage
		}

		childIdx := internalNode{cur}.findChildIndex(t.cmp, key)
		childPage, err := t.pool.FetchPage(internalNode{cur}.childAt(childIdx))
		common.PanicIfErr(err)
		t.latchPage(childPage, ctx.op)
		ctx.pages = append(ctx.pages, childPage)

		if ctx.op == opRead || t.nodeIsSafe(node{childPage}, key, ctx.op) {
			t.releaseAncestors(ctx, childPage)
		}

		curPage = childPage
	}
}

// nodeIsSafe reports whether the operation on the subtree below n cannot
// propagate into n's ancestors: an insert into a non full node cannot split
// it, a remove from a node above min size cannot merge it. A leaf whose
// first key is the remove target is treated as unsafe so the parent stays
// latched for the separator refresh.
func (t *BTree) nodeIsSafe(n node, key Key, op opType) bool {
	if op == opInsert {
		return n.getSize() < n.getMaxSize()
	}

	if n.isRoot() {
		return n.isLeaf() || n.getSize() > 2
	}
	if n.isLeaf() {
		leaf := leafNode{n}
		if n.getSize() <= n.minSize() {
			return false
		}
		return n.getSize() == 0 || t.cmp(leaf.keyAt(0), key) != 0
	}
	return n.getSize() > n.minSize()
}

// releaseAncestors unlatches and unpins every page in the set above keep,
// dropping rootMu with them when it is still held.
func (t *BTree) releaseAncestors(ctx *opContext, keep *buffer.Page) {
	for len(ctx.pages) > 0 && ctx.pages[0] != keep {
		p := ctx.pages[0]
		ctx.pages = ctx.pages[1:]
		t.unlatchPage(p, ctx.op)
		t.pool.UnpinPage(p.GetPageId(), false)
	}
	if ctx.rootLocked {
		t.rootMu.Unlock()
		ctx.rootLocked = false
	}
}

// releaseAll releases everything still held by the operation: each retained
// page exactly once, rootMu when still held, and finally the pages marked
// for deletion.
func (t *BTree) releaseAll(ctx *opContext) {
	for _, p := range ctx.pages {
		t.unlatchPage(p, ctx.op)
		t.pool.UnpinPage(p.GetPageId(), ctx.op != opRead)
	}
	ctx.pages = nil

	if ctx.rootLocked {
		t.rootMu.Unlock()
		ctx.rootLocked = false
	}

	for _, pid := range ctx.deleted {
		t.pool.DeletePage(pid)
	}
	ctx.deleted = nil
}
