package buffer

import (
	"errors"
	"fmt"
	"sync"

	"heron/common"
	"heron/disk"
	"heron/hashtable"
)

var ErrAllFramesPinned = errors.New("all frames are pinned")

const pageTableBucketSize = 8

// BufferPool caches disk pages in a fixed set of frames. The page table is an
// extendible hash table mapping page ids to frame ids; eviction is delegated
// to an IReplacer. One mutex serializes all pool mutation, including disk io,
// which is acceptable because callers keep their pin counts across waits.
type BufferPool struct {
	poolSize    int
	frames      []*Page
	pageTable   *hashtable.ExtendibleHashTable[common.PageID, common.FrameID]
	replacer    IReplacer
	freeList    []common.FrameID
	nextPageID  common.PageID
	diskManager disk.IDiskManager
	latch       sync.Mutex
}

func NewBufferPool(dm disk.IDiskManager, poolSize, replacerK int) *BufferPool {
	frames := make([]*Page, poolSize)
	freeList := make([]common.FrameID, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = newPage()
		freeList[i] = common.FrameID(i)
	}

	return &BufferPool{
		poolSize:    poolSize,
		frames:      frames,
		pageTable:   hashtable.NewExtendibleHashTable[common.PageID, common.FrameID](pageTableBucketSize),
		replacer:    NewLruKReplacer(poolSize, replacerK),
		freeList:    freeList,
		nextPageID:  disk.HeaderPageID + 1,
		diskManager: dm,
	}
}

// NewPage allocates a fresh page id, places it in a free or evicted frame and
// returns the frame pinned once. Returns ErrAllFramesPinned when every frame
// is pinned.
func (b *BufferPool) NewPage() (*Page, error) {
	b.latch.Lock()
	defer b.latch.Unlock()

	frameID, err := b.reserveFrame()
	if err != nil {
		return nil, err
	}

	pageID := b.allocatePage()
	page := b.frames[frameID]
	page.reset()
	page.pageID = pageID
	page.pinCount = 1

	b.pageTable.Insert(pageID, frameID)
	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)
	return page, nil
}

// FetchPage returns the frame holding pageID, reading it from disk if it is
// not resident, and increments the pin count. Returns ErrAllFramesPinned when
// the page is absent and every frame is pinned.
func (b *BufferPool) FetchPage(pageID common.PageID) (*Page, error) {
	if pageID == common.InvalidPageID {
		return nil, fmt.Errorf("fetching the invalid page id")
	}

	b.latch.Lock()
	defer b.latch.Unlock()

	if frameID, ok := b.pageTable.Find(pageID); ok {
		page := b.frames[frameID]
		page.pinCount++
		b.replacer.RecordAccess(frameID)
		b.replacer.SetEvictable(frameID, false)
		return page, nil
	}

	frameID, err := b.reserveFrame()
	if err != nil {
		return nil, err
	}

	page := b.frames[frameID]
	page.reset()
	if err := b.diskManager.ReadPage(pageID, page.data); err != nil {
		// put the frame back so it is not leaked.
		b.freeList = append(b.freeList, frameID)
		return nil, fmt.Errorf("ReadPage failed: %w", err)
	}
	page.pageID = pageID
	page.pinCount = 1

	b.pageTable.Insert(pageID, frameID)
	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)
	return page, nil
}

// UnpinPage decrements the page's pin count and marks the frame evictable
// when it drops to zero. isDirty is merged into the frame's dirty flag, it
// never clears it. Returns false if the page is absent or not pinned.
func (b *BufferPool) UnpinPage(pageID common.PageID, isDirty bool) bool {
	b.latch.Lock()
	defer b.latch.Unlock()

	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return false
	}

	page := b.frames[frameID]
	if page.pinCount <= 0 {
		return false
	}

	page.pinCount--
	if page.pinCount == 0 {
		b.replacer.SetEvictable(frameID, true)
	}
	page.isDirty = page.isDirty || isDirty
	return true
}

// FlushPage writes the page to disk regardless of its dirty flag and clears
// the flag. Returns false if the page is not resident.
func (b *BufferPool) FlushPage(pageID common.PageID) bool {
	b.latch.Lock()
	defer b.latch.Unlock()
	return b.flushFrameOf(pageID)
}

// FlushAllPages flushes every resident page, skipping frames that hold no
// page.
func (b *BufferPool) FlushAllPages() {
	b.latch.Lock()
	defer b.latch.Unlock()

	for _, page := range b.frames {
		if page.pageID == common.InvalidPageID {
			continue
		}
		b.flushFrameOf(page.pageID)
	}
}

// DeletePage removes the page from the pool and deallocates its id. Deleting
// a page that is not resident succeeds; deleting a pinned page fails.
func (b *BufferPool) DeletePage(pageID common.PageID) bool {
	b.latch.Lock()
	defer b.latch.Unlock()

	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return true
	}

	page := b.frames[frameID]
	if page.pinCount > 0 {
		return false
	}

	b.pageTable.Remove(pageID)
	b.replacer.Remove(frameID)
	page.reset()
	b.freeList = append(b.freeList, frameID)
	b.deallocatePage(pageID)
	return true
}

func (b *BufferPool) GetPoolSize() int {
	return b.poolSize
}

// reserveFrame returns a frame ready for reuse, preferring the free list and
// falling back to the replacer. An evicted dirty frame is written back before
// it is handed out. Caller must hold the pool latch.
func (b *BufferPool) reserveFrame() (common.FrameID, error) {
	if len(b.freeList) > 0 {
		frameID := b.freeList[0]
		b.freeList = b.freeList[1:]
		return frameID, nil
	}

	frameID, err := b.replacer.Evict()
	if err != nil {
		return common.InvalidFrameID, ErrAllFramesPinned
	}

	victim := b.frames[frameID]
	if victim.pinCount != 0 {
		panic(fmt.Sprintf("evicted a pinned frame, pin count: %v, page id: %v", victim.pinCount, victim.pageID))
	}

	if victim.isDirty {
		common.PanicIfErr(b.diskManager.WritePage(victim.pageID, victim.data))
	}
	b.pageTable.Remove(victim.pageID)
	return frameID, nil
}

func (b *BufferPool) flushFrameOf(pageID common.PageID) bool {
	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return false
	}

	page := b.frames[frameID]
	common.PanicIfErr(b.diskManager.WritePage(pageID, page.data))
	page.isDirty = false
	return true
}

func (b *BufferPool) allocatePage() common.PageID {
	pageID := b.nextPageID
	b.nextPageID++
	return pageID
}

func (b *BufferPool) deallocatePage(pageID common.PageID) {
	// page ids are monotone and never reused during a flush cycle.
}
