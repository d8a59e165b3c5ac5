package disk

import (
	"fmt"
	"io"
	"os"
	"sync"

	"heron/common"
)

// PageSize is the size of a physical page in bytes.
const PageSize int = 4096

// HeaderPageID is reserved for the header page that stores the index name to
// root page id catalog. It is never handed out by the buffer pool's page
// allocator.
const HeaderPageID common.PageID = 0

// IDiskManager reads and writes fixed size pages from a backing store. Both
// operations are synchronous and block the caller until io is complete.
type IDiskManager interface {
	// ReadPage reads the page with the given id into dest. dest must be
	// PageSize bytes long. Reading a page that was never written fills dest
	// with zeroes.
	ReadPage(pageID common.PageID, dest []byte) error

	// WritePage writes data, which must be PageSize bytes long, to the page
	// with the given id.
	WritePage(pageID common.PageID, data []byte) error

	Close() error
}

var _ IDiskManager = &Manager{}

// Manager is a file backed IDiskManager. Pages are laid out back to back in
// the file, page i starting at byte offset i*PageSize.
type Manager struct {
	file     *os.File
	filename string
	mu       sync.Mutex
}

func NewDiskManager(file string) (*Manager, error) {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, err
	}

	return &Manager{file: f, filename: file}, nil
}

func (d *Manager) ReadPage(pageID common.PageID, dest []byte) error {
	if len(dest) != PageSize {
		panic(fmt.Sprintf("ReadPage called with a %v byte buffer", len(dest)))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.file.ReadAt(dest, int64(pageID)*int64(PageSize))
	if err == io.EOF {
		// the page was allocated but never flushed. zero fill so the caller
		// always observes a full page.
		for i := n; i < PageSize; i++ {
			dest[i] = 0
		}
		return nil
	}

	return err
}

func (d *Manager) WritePage(pageID common.PageID, data []byte) error {
	if len(data) != PageSize {
		panic(fmt.Sprintf("WritePage called with a %v byte buffer", len(data)))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.file.WriteAt(data, int64(pageID)*int64(PageSize))
	if err != nil {
		return err
	}
	if n != PageSize {
		panic("written bytes are not equal to page size")
	}

	return nil
}

func (d *Manager) Close() error {
	return d.file.Close()
}
