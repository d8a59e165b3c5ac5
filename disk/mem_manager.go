package disk

import (
	"sync"

	"heron/common"
)

var _ IDiskManager = &MemManager{}

// MemManager keeps pages in a map instead of a file so that unit tests do not
// need to touch the file system.
type MemManager struct {
	pages map[common.PageID][]byte
	mu    sync.Mutex
}

func NewMemManager() *MemManager {
	return &MemManager{pages: map[common.PageID][]byte{}}
}

func (m *MemManager) ReadPage(pageID common.PageID, dest []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.pages[pageID]
	if !ok {
		for i := range dest {
			dest[i] = 0
		}
		return nil
	}

	copy(dest, data)
	return nil
}

func (m *MemManager) WritePage(pageID common.PageID, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, PageSize)
	copy(cp, data)
	m.pages[pageID] = cp
	return nil
}

func (m *MemManager) Close() error {
	return nil
}
