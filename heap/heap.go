package heap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"larch/buffer"
	"larch/disk"
	"larch/disk/pages"
)

// ErrEndOfFile is returned by Scan.Next when the relation is exhausted.
var ErrEndOfFile = errors.New("end of relation file")

var ErrRecordNotFound = errors.New("no record at the given rid")

// RID identifies one record as (page number, slot number). (0, 0) is reserved
// as the empty-slot sentinel; record pages start after the header page, so no
// real record ever carries it.
type RID struct {
	PageNo uint64
	SlotNo uint16
}

const (
	headerPageNo   = uint64(1)
	firstDataPage  = uint64(2)
	pageHeaderSize = 2 // record count

	// file header layout on the header page
	recordSizeOff   = 0
	lastDataPageOff = 4
)

// File is a heap of fixed-size records over a page file. The header page
// carries the record size and the id of the last data page; data pages are
// allocated sequentially after it, each prefixed with its record count.
type File struct {
	pool       *buffer.Pool
	name       string
	recordSize int
}

// Create makes a new relation file holding records of exactly recordSize bytes.
func Create(name string, recordSize int, poolSize int) (*File, error) {
	if recordSize <= 0 || recordSize > disk.PageSize-pageHeaderSize {
		return nil, fmt.Errorf("record size %v does not fit a page", recordSize)
	}

	pool, created, err := buffer.NewPool(name, poolSize)
	if err != nil {
		return nil, err
	}
	if !created {
		_ = pool.Close()
		return nil, fmt.Errorf("relation file already exists: %v", name)
	}

	hp, err := pool.NewPage()
	if err != nil {
		return nil, err
	}
	if hp.GetPageId() != headerPageNo {
		panic(fmt.Sprintf("relation header allocated at page %v", hp.GetPageId()))
	}
	binary.BigEndian.PutUint32(hp.GetData()[recordSizeOff:], uint32(recordSize))
	binary.BigEndian.PutUint64(hp.GetData()[lastDataPageOff:], 0)
	if err := pool.Unpin(headerPageNo, true); err != nil {
		return nil, err
	}

	return &File{pool: pool, name: name, recordSize: recordSize}, nil
}

// Open opens an existing relation file and reads the record size back from its
// header page.
func Open(name string, poolSize int) (*File, error) {
	if _, err := os.Stat(name); err != nil {
		return nil, err
	}

	pool, _, err := buffer.NewPool(name, poolSize)
	if err != nil {
		return nil, err
	}

	hp, err := pool.GetPage(headerPageNo)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	recordSize := int(binary.BigEndian.Uint32(hp.GetData()[recordSizeOff:]))
	if err := pool.Unpin(headerPageNo, false); err != nil {
		return nil, err
	}

	return &File{pool: pool, name: name, recordSize: recordSize}, nil
}

func (f *File) RecordSize() int {
	return f.recordSize
}

func (f *File) recordsPerPage() int {
	return (disk.PageSize - pageHeaderSize) / f.recordSize
}

// Insert appends the record to the last data page, allocating a fresh page
// when the heap is empty or the last page is full.
func (f *File) Insert(record []byte) (RID, error) {
	if len(record) != f.recordSize {
		return RID{}, fmt.Errorf("record is %v bytes, want %v", len(record), f.recordSize)
	}

	hp, err := f.pool.GetPage(headerPageNo)
	if err != nil {
		return RID{}, err
	}
	last := binary.BigEndian.Uint64(hp.GetData()[lastDataPageOff:])

	if last == 0 {
		return f.insertOnNewPage(hp, record)
	}

	dp, err := f.pool.GetPage(last)
	if err != nil {
		_ = f.pool.Unpin(headerPageNo, false)
		return RID{}, err
	}

	n := int(binary.BigEndian.Uint16(dp.GetData()))
	if n >= f.recordsPerPage() {
		if err := f.pool.Unpin(last, false); err != nil {
			return RID{}, err
		}
		return f.insertOnNewPage(hp, record)
	}

	f.writeRecord(dp.GetData(), n, record)
	if err := f.pool.Unpin(last, true); err != nil {
		return RID{}, err
	}
	if err := f.pool.Unpin(headerPageNo, false); err != nil {
		return RID{}, err
	}
	return RID{PageNo: last, SlotNo: uint16(n)}, nil
}

// insertOnNewPage takes over the pinned header page and releases it.
func (f *File) insertOnNewPage(hp *pages.RawPage, record []byte) (RID, error) {
	dp, err := f.pool.NewPage()
	if err != nil {
		_ = f.pool.Unpin(headerPageNo, false)
		return RID{}, err
	}

	binary.BigEndian.PutUint64(hp.GetData()[lastDataPageOff:], dp.GetPageId())
	f.writeRecord(dp.GetData(), 0, record)

	if err := f.pool.Unpin(dp.GetPageId(), true); err != nil {
		return RID{}, err
	}
	if err := f.pool.Unpin(headerPageNo, true); err != nil {
		return RID{}, err
	}
	return RID{PageNo: dp.GetPageId(), SlotNo: 0}, nil
}

func (f *File) writeRecord(data []byte, slot int, record []byte) {
	copy(data[pageHeaderSize+slot*f.recordSize:], record)
	binary.BigEndian.PutUint16(data, uint16(slot+1))
}

// Get copies the record bytes at rid out of its page.
func (f *File) Get(rid RID) ([]byte, error) {
	dp, err := f.pool.GetPage(rid.PageNo)
	if err != nil {
		return nil, err
	}

	n := int(binary.BigEndian.Uint16(dp.GetData()))
	if rid.PageNo < firstDataPage || int(rid.SlotNo) >= n {
		_ = f.pool.Unpin(rid.PageNo, false)
		return nil, fmt.Errorf("%w: %v", ErrRecordNotFound, rid)
	}

	record := make([]byte, f.recordSize)
	copy(record, dp.GetData()[pageHeaderSize+int(rid.SlotNo)*f.recordSize:])
	if err := f.pool.Unpin(rid.PageNo, false); err != nil {
		return nil, err
	}
	return record, nil
}

func (f *File) Close() error {
	return f.pool.Close()
}

// Remove closes the relation and deletes the file.
func (f *File) Remove() error {
	if err := f.pool.Close(); err != nil {
		return err
	}
	return os.Remove(f.name)
}

func (f *File) lastDataPage() (uint64, error) {
	hp, err := f.pool.GetPage(headerPageNo)
	if err != nil {
		return 0, err
	}
	last := binary.BigEndian.Uint64(hp.GetData()[lastDataPageOff:])
	if err := f.pool.Unpin(headerPageNo, false); err != nil {
		return 0, err
	}
	return last, nil
}
