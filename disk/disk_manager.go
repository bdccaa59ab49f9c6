package disk

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"cs174bufferpool/common"
)

// PageSize is the fixed size, in bytes, of every page and frame in the system.
const PageSize int = 4096

// PageID identifies a page. InvalidPageID never names a real page.
type PageID int64

// InvalidPageID is the sentinel page identifier; it is never returned by NewPage.
const InvalidPageID PageID = -1

// IDiskManager is the narrow, synchronous collaborator the buffer pool manager reads pages from and
// writes pages to. It also owns page identifier allocation.
type IDiskManager interface {
	// ReadPage fills dst (len(dst) must equal PageSize) with the contents of pageId.
	ReadPage(pageId PageID, dst []byte) error

	// WritePage persists src (len(src) must equal PageSize) as the contents of pageId.
	WritePage(pageId PageID, src []byte) error

	// NewPage allocates and returns the next page identifier. Identifiers are never reused.
	NewPage() PageID

	// FreePage notifies the disk manager that pageId has been deleted by the caller.
	FreePage(pageId PageID)

	Close() error
}

var ErrShortIO = errors.New("disk: partial page read or write")

// Manager is a single-file IDiskManager. Page pageId occupies PageSize bytes starting at offset
// pageId*PageSize.
type Manager struct {
	file     *os.File
	mu       sync.Mutex
	nextPage int64 // accessed via atomic; next identifier NewPage will hand out
	freed    int64 // accessed via atomic; count of identifiers FreePage has seen, for diagnostics only
}

// NewDiskManager opens (creating if necessary) the backing file for a buffer pool manager instance.
func NewDiskManager(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}

	d := &Manager{file: f}
	d.nextPage = stat.Size() / int64(PageSize)
	if common.EnableLogging {
		log.Printf("disk: opened %s, %d pages already on disk\n", path, d.nextPage)
	}

	return d, nil
}

func (d *Manager) ReadPage(pageId PageID, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("disk: ReadPage: dst must be %d bytes, got %d", PageSize, len(dst))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.file.ReadAt(dst, int64(pageId)*int64(PageSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("disk: ReadPage(%d): %w", pageId, err)
	}
	// a page that was allocated but never written back yet reads as a run of zero bytes past EOF.
	for i := n; i < PageSize; i++ {
		dst[i] = 0
	}
	return nil
}

func (d *Manager) WritePage(pageId PageID, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("disk: WritePage: src must be %d bytes, got %d", PageSize, len(src))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.file.WriteAt(src, int64(pageId)*int64(PageSize))
	if err != nil {
		return fmt.Errorf("disk: WritePage(%d): %w", pageId, err)
	}
	if n != PageSize {
		return ErrShortIO
	}
	return nil
}

func (d *Manager) NewPage() PageID {
	return PageID(atomic.AddInt64(&d.nextPage, 1) - 1)
}

func (d *Manager) FreePage(pageId PageID) {
	atomic.AddInt64(&d.freed, 1)
}

func (d *Manager) Close() error {
	return d.file.Close()
}

var _ IDiskManager = &Manager{}
