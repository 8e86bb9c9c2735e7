package btree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"larch/buffer"
	"larch/common"
	"larch/disk/pages"
	"larch/heap"
)

// Datatype tags the indexed attribute in the metadata page. Only Integer is
// implemented; the other tags exist so metadata written for them round-trips.
type Datatype int16

const (
	Integer Datatype = iota
	Double
	Char
)

// Operator bounds a range scan. The low bound accepts GT/GTE, the high bound
// LT/LTE.
type Operator int

const (
	LT Operator = iota
	LTE
	GTE
	GT
)

const relationNameLimit = 20

// indexMeta occupies the first page of the index file. On open, every
// descriptor must equal the caller's arguments; rootPageNo is the only field
// that changes afterwards (root promotion rewrites it).
type indexMeta struct {
	RelationName   [relationNameLimit]byte
	AttrByteOffset int32
	AttrType       int16
	RootPageNo     uint64
}

func readMeta(data []byte) *indexMeta {
	dest := indexMeta{}
	err := binary.Read(bytes.NewReader(data), binary.BigEndian, &dest)
	common.PanicIfErr(err)
	return &dest
}

func writeMeta(m *indexMeta, dest []byte) {
	buf := bytes.Buffer{}
	err := binary.Write(&buf, binary.BigEndian, m)
	common.PanicIfErr(err)
	copy(dest, buf.Bytes())
}

func boundName(name string) (b [relationNameLimit]byte) {
	copy(b[:], name)
	return b
}

// Index is a B+Tree secondary index over one integer attribute of a relation
// file. All node state lives in pages owned by the buffer pool; the index
// itself holds page ids only, plus the state of the one scan it can run at a
// time. Not safe for concurrent use.
type Index struct {
	pool           *buffer.Pool
	name           string
	relationName   string
	attrByteOffset int
	attrType       Datatype
	poolSize       int
	headerPageNum  uint64
	rootPageNum    uint64

	scanExecuting  bool
	lowVal         int64
	highVal        int64
	lowOp          Operator
	highOp         Operator
	currentPageNum uint64
	currentPage    *pages.RawPage
	nextEntry      int
}

// Open opens the index file named "<relationName>.<attrByteOffset>", creating
// and bulk-populating it from the relation when it does not exist yet. On an
// existing file the metadata page must agree with every argument, otherwise
// ErrBadIndexInfo.
func Open(relationName string, attrByteOffset int, attrType Datatype, poolSize int) (*Index, error) {
	indexName := fmt.Sprintf("%s.%d", relationName, attrByteOffset)

	pool, created, err := buffer.NewPool(indexName, poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		pool:           pool,
		name:           indexName,
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
		attrType:       attrType,
		poolSize:       poolSize,
		headerPageNum:  pool.DiskManager.FirstPageNo(),
	}

	if !created {
		if err := ix.validateMeta(); err != nil {
			_ = pool.Close()
			return nil, err
		}
		return ix, nil
	}

	if err := ix.create(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return ix, nil
}

// Name returns the external index file name.
func (ix *Index) Name() string {
	return ix.name
}

func (ix *Index) validateMeta() error {
	mp, err := ix.pool.GetPage(ix.headerPageNum)
	if err != nil {
		return err
	}
	meta := readMeta(mp.GetData())
	if err := ix.pool.Unpin(ix.headerPageNum, false); err != nil {
		return err
	}

	if meta.RelationName != boundName(ix.relationName) ||
		int(meta.AttrByteOffset) != ix.attrByteOffset ||
		Datatype(meta.AttrType) != ix.attrType {
		return fmt.Errorf("%v: %w", ix.name, ErrBadIndexInfo)
	}

	ix.rootPageNum = meta.RootPageNo
	return nil
}

// create writes the metadata page and an empty root, then feeds every record
// of the relation through InsertEntry.
func (ix *Index) create() error {
	mp, err := ix.pool.NewPage()
	if err != nil {
		return err
	}
	rp, err := ix.pool.NewPage()
	if err != nil {
		return err
	}
	ix.rootPageNum = rp.GetPageId()

	writeMeta(&indexMeta{
		RelationName:   boundName(ix.relationName),
		AttrByteOffset: int32(ix.attrByteOffset),
		AttrType:       int16(ix.attrType),
		RootPageNo:     ix.rootPageNum,
	}, mp.GetData())

	// the root starts as an empty non-leaf; the first insert seeds its leaves
	root := internalNode{rp}
	root.setHeader(&internalHeader{IsLeaf: 0, Level: 0, KeyCount: 0, Parent: 0})

	if err := ix.pool.Unpin(mp.GetPageId(), true); err != nil {
		return err
	}
	if err := ix.pool.Unpin(rp.GetPageId(), true); err != nil {
		return err
	}

	if err := ix.build(); err != nil {
		return err
	}
	return ix.pool.FlushAll()
}

func (ix *Index) build() error {
	rel, err := heap.Open(ix.relationName, ix.poolSize)
	if err != nil {
		return fmt.Errorf("cannot scan relation %v: %w", ix.relationName, err)
	}
	defer rel.Close()

	sc, err := rel.NewScan()
	if err != nil {
		return err
	}

	for {
		rid, err := sc.Next()
		if errors.Is(err, heap.ErrEndOfFile) {
			return nil
		}
		if err != nil {
			return err
		}

		record, err := rel.Get(rid)
		if err != nil {
			return err
		}

		key := int64(binary.BigEndian.Uint64(record[ix.attrByteOffset:]))
		ix.InsertEntry(key, rid)
	}
}

// Close ends any live scan, flushes the file and releases it.
func (ix *Index) Close() error {
	if ix.scanExecuting {
		_ = ix.EndScan()
	}
	return ix.pool.Close()
}
