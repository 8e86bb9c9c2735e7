package disk

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const PageSize int = 4096

// Manager maps fixed-size pages onto one file. Page 0 is reserved and stays
// all zero for the life of the file; page id 0 therefore always reads as an
// empty page, which the index relies on as its "none" sentinel. Real pages are
// handed out sequentially starting at 1.
type Manager struct {
	file       *os.File
	filename   string
	lastPageId uint64
	mu         sync.Mutex
}

// NewManager opens or creates the page file. The second return value reports
// whether the file was created by this call.
func NewManager(file string) (*Manager, bool, error) {
	d := Manager{filename: file}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, false, err
	}
	d.file = f

	stats, err := f.Stat()
	if err != nil {
		return nil, false, err
	}

	filesize := stats.Size()
	if filesize == 0 {
		log.Printf("page file %v is initializing", file)
		// reserve page 0 as the zero page
		if err := d.WritePage(make([]byte, PageSize), 0); err != nil {
			return nil, false, err
		}
		d.lastPageId = 0
		return &d, true, nil
	}

	d.lastPageId = uint64(int(filesize)/PageSize - 1)
	return &d, false, nil
}

func (d *Manager) WritePage(data []byte, pageId uint64) error {
	if _, err := d.file.Seek(int64(PageSize)*int64(pageId), io.SeekStart); err != nil {
		return err
	}

	n, err := d.file.Write(data)
	if err != nil {
		return err
	}
	if n != PageSize {
		return fmt.Errorf("short write on page %v: %v bytes", pageId, n)
	}

	return nil
}

func (d *Manager) ReadPage(pageId uint64, dest []byte) error {
	if _, err := d.file.Seek(int64(PageSize)*int64(pageId), io.SeekStart); err != nil {
		return err
	}

	n, err := io.ReadFull(d.file, dest[:PageSize])
	if err != nil {
		return fmt.Errorf("read of page %v failed after %v bytes: %w", pageId, n, err)
	}

	return nil
}

func (d *Manager) NewPage() (pageId uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastPageId++
	return d.lastPageId
}

// FirstPageNo is the id of the first allocatable page. Page 0 is the reserved
// zero page and is never handed out.
func (d *Manager) FirstPageNo() uint64 {
	return 1
}

func (d *Manager) LastPageNo() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.lastPageId
}

func (d *Manager) Close() error {
	return d.file.Close()
}

// Remove closes the manager and deletes the underlying file.
func (d *Manager) Remove() error {
	if err := d.file.Close(); err != nil {
		return err
	}
	return os.Remove(d.filename)
}
