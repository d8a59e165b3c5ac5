package buffer

import (
	"sync"

	"heron/common"
	"heron/disk"
)

// Page is a frame sized buffer wrapping a physical page. It keeps the pin
// count and dirty flag the pool needs, plus a read write latch that is
// distinct from the pool's own mutex so that callers can latch page content
// while the pool keeps serving other frames.
//
// Pages are owned by the BufferPool; callers only borrow them while pinned.
type Page struct {
	pageID   common.PageID
	pinCount int
	isDirty  bool
	rwLatch  sync.RWMutex
	data     []byte
}

func newPage() *Page {
	return &Page{
		pageID: common.InvalidPageID,
		data:   make([]byte, disk.PageSize),
	}
}

// GetData returns the page's whole content. The caller should hold the page
// latch in the appropriate mode while reading or writing it.
func (p *Page) GetData() []byte {
	return p.data
}

func (p *Page) GetPageId() common.PageID {
	return p.pageID
}

func (p *Page) GetPinCount() int {
	return p.pinCount
}

func (p *Page) IsDirty() bool {
	return p.isDirty
}

func (p *Page) WLatch() {
	p.rwLatch.Lock()
}

func (p *Page) WUnlatch() {
	p.rwLatch.Unlock()
}

func (p *Page) RLatch() {
	p.rwLatch.RLock()
}

func (p *Page) RUnLatch() {
	p.rwLatch.RUnlock()
}

// reset prepares the frame for a new page. Caller must hold the pool latch
// and the frame must not be pinned.
func (p *Page) reset() {
	p.pageID = common.InvalidPageID
	p.pinCount = 0
	p.isDirty = false
	for i := range p.data {
		p.data[i] = 0
	}
}
