package btree

import (
	"bytes"
	"encoding/binary"
	"sort"

	"larch/common"
	"larch/disk"
	"larch/disk/pages"
	"larch/heap"
)

// Every node page starts with a one-byte discriminator; the rest of the layout
// depends on it. Both views operate in place on the pinned page buffer, so a
// mutation through a view dirties the page it wraps.
//
// Leaf:      isLeaf(1) keyCount(2) rightSib(8) parent(8) | keyCount × (key(8) rid(10))
// Internal:  isLeaf(1) level(2) keyCount(2) parent(8) | child0(8) keyCount × (key(8) child(8))
//
// An internal node with level 1 has leaf children; any other level means
// internal children. parent 0 marks the root (page 0 is reserved and never a
// node).
const (
	leafHeaderSize     = 19
	internalHeaderSize = 13
	keySize            = 8
	ridSize            = 10
	pointerSize        = 8
	leafEntrySize      = keySize + ridSize
	internalPairSize   = keySize + pointerSize

	// LeafCapacity and InternalCapacity are derived so that a full node still
	// fits in one page.
	LeafCapacity     = (disk.PageSize - leafHeaderSize) / leafEntrySize
	InternalCapacity = (disk.PageSize - internalHeaderSize - pointerSize) / internalPairSize
)

type leafHeader struct {
	IsLeaf   int8
	KeyCount int16
	RightSib uint64
	Parent   uint64
}

type internalHeader struct {
	IsLeaf   int8
	Level    int16
	KeyCount int16
	Parent   uint64
}

func isLeafPage(data []byte) bool {
	return data[0] == 1
}

type leafNode struct {
	p *pages.RawPage
}

func (n leafNode) header() *leafHeader {
	dest := leafHeader{}
	err := binary.Read(bytes.NewReader(n.p.GetData()), binary.BigEndian, &dest)
	common.PanicIfErr(err)
	return &dest
}

func (n leafNode) setHeader(h *leafHeader) {
	buf := bytes.Buffer{}
	err := binary.Write(&buf, binary.BigEndian, h)
	common.PanicIfErr(err)
	copy(n.p.GetData(), buf.Bytes())
}

func (n leafNode) keyCount() int {
	return int(int16(binary.BigEndian.Uint16(n.p.GetData()[1:])))
}

func (n leafNode) setKeyCount(c int) {
	binary.BigEndian.PutUint16(n.p.GetData()[1:], uint16(c))
}

func (n leafNode) rightSib() uint64 {
	return binary.BigEndian.Uint64(n.p.GetData()[3:])
}

func (n leafNode) setRightSib(pid uint64) {
	binary.BigEndian.PutUint64(n.p.GetData()[3:], pid)
}

func (n leafNode) parent() uint64 {
	return binary.BigEndian.Uint64(n.p.GetData()[11:])
}

func (n leafNode) setParent(pid uint64) {
	binary.BigEndian.PutUint64(n.p.GetData()[11:], pid)
}

func (n leafNode) keyAt(i int) int64 {
	return int64(binary.BigEndian.Uint64(n.p.GetData()[leafHeaderSize+i*leafEntrySize:]))
}

func (n leafNode) setKeyAt(i int, key int64) {
	binary.BigEndian.PutUint64(n.p.GetData()[leafHeaderSize+i*leafEntrySize:], uint64(key))
}

func (n leafNode) ridAt(i int) heap.RID {
	off := leafHeaderSize + i*leafEntrySize + keySize
	return heap.RID{
		PageNo: binary.BigEndian.Uint64(n.p.GetData()[off:]),
		SlotNo: binary.BigEndian.Uint16(n.p.GetData()[off+8:]),
	}
}

func (n leafNode) setRidAt(i int, rid heap.RID) {
	off := leafHeaderSize + i*leafEntrySize + keySize
	binary.BigEndian.PutUint64(n.p.GetData()[off:], rid.PageNo)
	binary.BigEndian.PutUint16(n.p.GetData()[off+8:], rid.SlotNo)
}

// insert places (key, rid) before the first strictly greater key, shifting the
// tail right. Duplicates land after their equals. The leaf must not be full.
func (n leafNode) insert(key int64, rid heap.RID) {
	count := n.keyCount()
	i := sort.Search(count, func(i int) bool { return n.keyAt(i) > key })

	data := n.p.GetData()
	src := leafHeaderSize + i*leafEntrySize
	end := leafHeaderSize + count*leafEntrySize
	copy(data[src+leafEntrySize:end+leafEntrySize], data[src:end])

	n.setKeyAt(i, key)
	n.setRidAt(i, rid)
	n.setKeyCount(count + 1)
}

type internalNode struct {
	p *pages.RawPage
}

func (n internalNode) header() *internalHeader {
	dest := internalHeader{}
	err := binary.Read(bytes.NewReader(n.p.GetData()), binary.BigEndian, &dest)
	common.PanicIfErr(err)
	return &dest
}

func (n internalNode) setHeader(h *internalHeader) {
	buf := bytes.Buffer{}
	err := binary.Write(&buf, binary.BigEndian, h)
	common.PanicIfErr(err)
	copy(n.p.GetData(), buf.Bytes())
}

func (n internalNode) level() int {
	return int(int16(binary.BigEndian.Uint16(n.p.GetData()[1:])))
}

func (n internalNode) setLevel(l int) {
	binary.BigEndian.PutUint16(n.p.GetData()[1:], uint16(l))
}

func (n internalNode) keyCount() int {
	return int(int16(binary.BigEndian.Uint16(n.p.GetData()[3:])))
}

func (n internalNode) setKeyCount(c int) {
	binary.BigEndian.PutUint16(n.p.GetData()[3:], uint16(c))
}

func (n internalNode) parent() uint64 {
	return binary.BigEndian.Uint64(n.p.GetData()[5:])
}

func (n internalNode) setParent(pid uint64) {
	binary.BigEndian.PutUint64(n.p.GetData()[5:], pid)
}

func keyOff(i int) int {
	return internalHeaderSize + pointerSize + i*internalPairSize
}

func childOff(i int) int {
	if i == 0 {
		return internalHeaderSize
	}
	return keyOff(i-1) + keySize
}

func (n internalNode) keyAt(i int) int64 {
	return int64(binary.BigEndian.Uint64(n.p.GetData()[keyOff(i):]))
}

func (n internalNode) setKeyAt(i int, key int64) {
	binary.BigEndian.PutUint64(n.p.GetData()[keyOff(i):], uint64(key))
}

func (n internalNode) childAt(i int) uint64 {
	return binary.BigEndian.Uint64(n.p.GetData()[childOff(i):])
}

func (n internalNode) setChildAt(i int, pid uint64) {
	binary.BigEndian.PutUint64(n.p.GetData()[childOff(i):], pid)
}

// findIndex picks the descent slot for key: the smallest i whose separator is
// strictly greater, or keyCount when no separator is. Separators bound their
// left subtree exclusively and their right subtree inclusively.
func (n internalNode) findIndex(key int64) int {
	return sort.Search(n.keyCount(), func(i int) bool { return n.keyAt(i) > key })
}

// insertSeparatorAt splices (key, left, right) in at slot i: keys [i..) and
// children [i+1..) shift right, the child slot at i is overwritten with left.
// The node must not be full.
func (n internalNode) insertSeparatorAt(i int, key int64, left, right uint64) {
	count := n.keyCount()
	data := n.p.GetData()
	src := keyOff(i)
	end := keyOff(count)
	copy(data[src+internalPairSize:end+internalPairSize], data[src:end])

	n.setKeyAt(i, key)
	n.setChildAt(i, left)
	n.setChildAt(i+1, right)
	n.setKeyCount(count + 1)
}
