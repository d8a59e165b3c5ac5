package btree

import (
	"encoding/binary"
	"fmt"
	"sync"

	"heron/common"
	"heron/disk"

	"github.com/golang/snappy"
	tdbtree "github.com/tidwall/btree"
)

// HeaderManager persists the index name to root page id catalog on the
// reserved header page (page 0). The in-memory view is an ordered map so the
// catalog lists indexes deterministically; the on-disk form is a snappy
// compressed record block written through the disk manager, bypassing the
// buffer pool since the header page is metadata with its own lifecycle.
type HeaderManager struct {
	dm    disk.IDiskManager
	mu    sync.Mutex
	roots tdbtree.Map[string, common.PageID]
}

func NewHeaderManager(dm disk.IDiskManager) (*HeaderManager, error) {
	h := &HeaderManager{dm: dm}

	data := make([]byte, disk.PageSize)
	if err := dm.ReadPage(disk.HeaderPageID, data); err != nil {
		return nil, err
	}

	compLen := binary.BigEndian.Uint32(data)
	if compLen == 0 {
		return h, nil
	}
	if int(compLen) > disk.PageSize-4 {
		return nil, fmt.Errorf("corrupt header page: record block of %v bytes", compLen)
	}

	payload, err := snappy.Decode(nil, data[4:4+compLen])
	if err != nil {
		return nil, fmt.Errorf("corrupt header page: %w", err)
	}

	count := binary.BigEndian.Uint32(payload)
	off := 4
	for i := uint32(0); i < count; i++ {
		nameLen := int(binary.BigEndian.Uint16(payload[off:]))
		off += 2
		name := string(payload[off : off+nameLen])
		off += nameLen
		root := common.PageID(int32(binary.BigEndian.Uint32(payload[off:])))
		off += 4
		h.roots.Set(name, root)
	}

	return h, nil
}

func (h *HeaderManager) GetRoot(name string) (common.PageID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.roots.Get(name)
}

// SetRoot records the root page id of the named index and flushes the
// catalog to the header page.
func (h *HeaderManager) SetRoot(name string, root common.PageID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roots.Set(name, root)
	return h.persist()
}

// DeleteRoot drops the named index from the catalog.
func (h *HeaderManager) DeleteRoot(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roots.Delete(name)
	return h.persist()
}

// Indexes returns every registered index name in order.
func (h *HeaderManager) Indexes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, h.roots.Len())
	h.roots.Scan(func(name string, _ common.PageID) bool {
		names = append(names, name)
		return true
	})
	return names
}

func (h *HeaderManager) persist() error {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(h.roots.Len()))
	h.roots.Scan(func(name string, root common.PageID) bool {
		var entry [2]byte
		binary.BigEndian.PutUint16(entry[:], uint16(len(name)))
		payload = append(payload, entry[:]...)
		payload = append(payload, name...)
		var rootBytes [4]byte
		binary.BigEndian.PutUint32(rootBytes[:], uint32(int32(root)))
		payload = append(payload, rootBytes[:]...)
		return true
	})

	compressed := snappy.Encode(nil, payload)
	if len(compressed)+4 > disk.PageSize {
		return fmt.Errorf("header catalog does not fit the header page: %v bytes", len(compressed))
	}

	data := make([]byte, disk.PageSize)
	binary.BigEndian.PutUint32(data, uint32(len(compressed)))
	copy(data[4:], compressed)
	return h.dm.WritePage(disk.HeaderPageID, data)
}
